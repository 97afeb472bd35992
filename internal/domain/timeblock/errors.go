package timeblock

import "errors"

var (
	// ErrTimeblockNotFound indicates the time block doesn't exist.
	ErrTimeblockNotFound = errors.New("time block not found")
	// ErrInvalidInput indicates invalid time block input.
	ErrInvalidInput = errors.New("invalid time block input")
	// ErrInvalidReference indicates a reference that can never resolve.
	ErrInvalidReference = errors.New("invalid time block reference")
	// ErrInvariantViolation indicates an external id on a block without an end.
	ErrInvariantViolation = errors.New("time block with an external id must have an end")
)
