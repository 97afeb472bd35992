package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/repository"
)

const timeblockColumns = `tb.entity_id, tb.version_id, tb.version_time, tb.external_id, tb.project_entity_id,
	tb.start_time, tb.end_time, tb.billable, tb.notes, tb.tags, tb.alive`

// searchBase joins each time block's latest version as of the bound parameter
// with the latest version of its project. The compiled filter is appended
// after the final AND.
const searchBase = `SELECT ` + timeblockColumns + `
FROM timeblock_version tb
INNER JOIN project_version p ON p.entity_id = tb.project_entity_id
	AND p.version_id = (SELECT MAX(p2.version_id) FROM project_version p2 WHERE p2.entity_id = p.entity_id)
WHERE tb.version_id = (SELECT MAX(tb2.version_id) FROM timeblock_version tb2
		WHERE tb2.entity_id = tb.entity_id AND tb2.version_time <= ?)
	AND `

// queryer is the subset of *sql.DB that Search runs against.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TimeblockRepository implements timeblock.Repository for SQLite
type TimeblockRepository struct {
	db *DB
	q  queryer
}

// NewTimeblockRepository creates a new TimeblockRepository
func NewTimeblockRepository(db *DB) *TimeblockRepository {
	return &TimeblockRepository{db: db, q: db}
}

// Allocate reserves a new time block identity.
func (r *TimeblockRepository) Allocate(ctx context.Context) (entity.ID, error) {
	return allocate(ctx, r.db, entity.KindTimeblock)
}

// Insert appends one time block version.
func (r *TimeblockRepository) Insert(ctx context.Context, tb *timeblock.Timeblock) error {
	query := `
		INSERT INTO timeblock_version (
			entity_id, version_id, version_time, external_id, project_entity_id,
			start_time, end_time, billable, notes, tags, alive
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var externalID any
	if tb.ExternalID != nil {
		externalID = *tb.ExternalID
	}

	_, err := r.db.ExecContext(ctx, query,
		int64(tb.Version.EntityID),
		tb.Version.VersionID,
		formatTime(tb.Version.VersionTime),
		externalID,
		int64(tb.ProjectEntityID),
		formatTime(tb.Start),
		formatTimePtr(tb.End),
		boolInt(tb.Billable),
		tb.Notes,
		strings.Join(tb.Tags, timeblock.TagSeparator),
		boolInt(tb.Alive),
	)
	if err != nil {
		return storageErr("insert time block version", err)
	}
	return nil
}

// GetByEntityID returns the block's latest version written at or before asOf.
func (r *TimeblockRepository) GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*timeblock.Timeblock, error) {
	query := `
		SELECT ` + timeblockColumns + `
		FROM timeblock_version tb
		WHERE tb.entity_id = ? AND tb.version_time <= ?
		ORDER BY tb.version_id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, int64(id), formatTime(asOf))
}

// GetByExternalID finds the entity most recently written with externalID and
// returns its latest version written at or before asOf.
func (r *TimeblockRepository) GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*timeblock.Timeblock, error) {
	query := `
		SELECT ` + timeblockColumns + `
		FROM timeblock_version tb
		WHERE tb.entity_id = (
			SELECT cur.entity_id FROM timeblock_version cur
			WHERE cur.external_id = ?
			ORDER BY cur.version_time DESC, cur.entity_id DESC
			LIMIT 1
		) AND tb.version_time <= ?
		ORDER BY tb.version_id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, externalID, formatTime(asOf))
}

// History returns every version of a block, oldest first.
func (r *TimeblockRepository) History(ctx context.Context, id entity.ID) ([]timeblock.Timeblock, error) {
	query := `
		SELECT ` + timeblockColumns + `
		FROM timeblock_version tb
		WHERE tb.entity_id = ?
		ORDER BY tb.version_id
	`
	versions, err := r.query(ctx, r.db, "load time block history", query, int64(id))
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, repository.ErrNotFound
	}
	return versions, nil
}

// Search returns, in entity order, each block's latest version as of the
// filter's bound when that version matches filter. A filter without a bound
// reads the latest version ever written.
func (r *TimeblockRepository) Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error) {
	asOf, ok := timeblock.AsOf(filter)
	if !ok {
		asOf = entity.EndOfTime
	}
	where, params, err := CompileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	query := searchBase + "(" + where + ")\nORDER BY tb.entity_id, tb.version_id"
	args := append([]any{formatTime(asOf)}, params...)
	return r.query(ctx, r.q, "search time blocks", query, args...)
}

// LastVersionTime returns the newest version time of any time block, or nil
// when none has been written.
func (r *TimeblockRepository) LastVersionTime(ctx context.Context) (*time.Time, error) {
	var last sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(version_time) FROM timeblock_version`).Scan(&last)
	if err != nil {
		return nil, storageErr("read last version time", err)
	}
	t, err := parseNullTime(last)
	if err != nil {
		return nil, storageErr("read last version time", err)
	}
	return t, nil
}

func (r *TimeblockRepository) getOne(ctx context.Context, query string, args ...any) (*timeblock.Timeblock, error) {
	tb, err := scanTimeblock(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get time block", err)
	}
	return tb, nil
}

func (r *TimeblockRepository) query(ctx context.Context, q queryer, op, query string, args ...any) ([]timeblock.Timeblock, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	blocks := []timeblock.Timeblock{}
	for rows.Next() {
		tb, err := scanTimeblock(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		blocks = append(blocks, *tb)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return blocks, nil
}

func scanTimeblock(s scanner) (*timeblock.Timeblock, error) {
	var (
		tb          timeblock.Timeblock
		entityID    int64
		projectID   int64
		versionTime string
		start       string
		end         sql.NullString
		externalID  sql.NullString
		billable    int
		tags        string
		alive       int
	)
	err := s.Scan(
		&entityID,
		&tb.Version.VersionID,
		&versionTime,
		&externalID,
		&projectID,
		&start,
		&end,
		&billable,
		&tb.Notes,
		&tags,
		&alive,
	)
	if err != nil {
		return nil, err
	}

	tb.Version.EntityID = entity.ID(entityID)
	tb.ProjectEntityID = entity.ID(projectID)
	if tb.Version.VersionTime, err = parseTime(versionTime); err != nil {
		return nil, err
	}
	if tb.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if tb.End, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if externalID.Valid {
		ext := externalID.String
		tb.ExternalID = &ext
	}
	tb.Billable = billable != 0
	tb.Tags = []string{}
	if tags != "" {
		tb.Tags = strings.Split(tags, timeblock.TagSeparator)
	}
	tb.Alive = alive != 0
	return &tb, nil
}
