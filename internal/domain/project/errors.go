package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrInvalidReference indicates a reference that can never resolve.
	ErrInvalidReference = errors.New("invalid project reference")
	// ErrParentCycle indicates a parent chain that loops back on itself.
	ErrParentCycle = errors.New("project parent chain contains a cycle")
)
