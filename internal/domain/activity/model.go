package activity

import "time"

// Type classifies an activity entry
type Type string

const (
	TypeSyncCompleted   Type = "sync_completed"
	TypeSyncFailed      Type = "sync_failed"
	TypeBackupCompleted Type = "backup_completed"
	TypeBackupFailed    Type = "backup_failed"
	TypeExportWritten   Type = "export_written"
)

// Entry records one operation that ran beside the ledger. Entries are not
// versioned; the log is append-only.
type Entry struct {
	ID        int64     `json:"id"`
	Type      Type      `json:"type"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details,omitempty"` // JSON string
	CreatedAt time.Time `json:"created_at"`
}
