package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/tt/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isOwnershipViolation matches the trigger that keeps an external id on a
// single time block.
func isOwnershipViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "external id belongs to another time block")
}

func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// storageErr classifies a driver error. Constraint failures map onto the
// repository sentinels; anything else is an opaque StorageError.
func storageErr(op string, err error) error {
	switch {
	case isForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w", op, repository.ErrForeignKeyViolation)
	case isUniqueViolation(err), isCheckViolation(err), isOwnershipViolation(err):
		return fmt.Errorf("failed to %s: %w: %v", op, repository.ErrConstraintViolation, err)
	default:
		return &repository.StorageError{Op: op, Err: err}
	}
}
