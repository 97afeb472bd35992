package tracker

import "errors"

var (
	// ErrNoOpenTimeblock indicates a punch-out with nothing open.
	ErrNoOpenTimeblock = errors.New("no open time block")
	// ErrAmbiguousTimeblock indicates a punch-out without a project while several blocks are open.
	ErrAmbiguousTimeblock = errors.New("several time blocks are open; name a project")
	// ErrAlreadyPunchedIn indicates a punch-in on a project that already has an open block.
	ErrAlreadyPunchedIn = errors.New("project already has an open time block")
)
