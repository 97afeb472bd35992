package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/domain/tracker"
	"github.com/rpggio/tt/internal/teamwork"
)

// errInvalidArgument indicates a tool argument that could not be parsed.
var errInvalidArgument = errors.New("invalid argument")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for valid names"}
	case errors.Is(err, project.ErrParentCycle):
		return &APIError{Code: "PARENT_CYCLE", Message: "project would become its own ancestor"}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, timeblock.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, timeblock.ErrTimeblockNotFound):
		return &APIError{Code: "TIMEBLOCK_NOT_FOUND", Message: "time block not found"}
	case errors.Is(err, tracker.ErrAlreadyPunchedIn):
		return &APIError{Code: "ALREADY_PUNCHED_IN", Message: "project already has an open time block", RecoveryHint: "Call punch_out first"}
	case errors.Is(err, tracker.ErrNoOpenTimeblock):
		return &APIError{Code: "NOT_PUNCHED_IN", Message: "no open time block", RecoveryHint: "Call status to see open work"}
	case errors.Is(err, tracker.ErrAmbiguousTimeblock):
		return &APIError{Code: "AMBIGUOUS_TIMEBLOCK", Message: "several time blocks are open", RecoveryHint: "Pass project to punch_out"}
	case errors.Is(err, teamwork.ErrMissingCredentials):
		return &APIError{Code: "SYNC_NOT_CONFIGURED", Message: "teamwork credentials are missing", RecoveryHint: "Set TT_TEAMWORK_BASE_URL and TT_TEAMWORK_API_KEY"}
	case errors.Is(err, errInvalidArgument):
		return &APIError{Code: "INVALID_ARGUMENT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError returns the mapped APIError, or err itself when it has no code.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
