package sqlite

import (
	"context"

	"github.com/rpggio/tt/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry and sets its ID
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (activity_type, summary, details, created_at)
		VALUES (?, ?, ?, ?)
	`, string(entry.Type), entry.Summary, entry.Details, formatTime(entry.CreatedAt))
	if err != nil {
		return storageErr("log activity", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storageErr("read activity id", err)
	}
	entry.ID = id
	return nil
}

// List returns activity entries, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	query := `
		SELECT id, activity_type, summary, details, created_at
		FROM activity_log
	`
	var args []any
	if opts.Type != nil {
		query += " WHERE activity_type = ?"
		args = append(args, string(*opts.Type))
	}
	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list activity", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var (
			entry     activity.Entry
			typ       string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &typ, &entry.Summary, &entry.Details, &createdAt); err != nil {
			return nil, storageErr("scan activity entry", err)
		}
		entry.Type = activity.Type(typ)
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate activity rows", err)
	}
	return entries, nil
}
