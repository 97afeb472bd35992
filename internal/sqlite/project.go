package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/repository"
)

const projectColumns = `entity_id, version_id, version_time, external_id, name, parent_entity_id, alive`

// latestProjectAsOf restricts pv to the newest version of its entity written at or before ?.
const latestProjectAsOf = `pv.version_id = (
	SELECT MAX(pv2.version_id) FROM project_version pv2
	WHERE pv2.entity_id = pv.entity_id AND pv2.version_time <= ?)`

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Allocate reserves a new project identity.
func (r *ProjectRepository) Allocate(ctx context.Context) (entity.ID, error) {
	return allocate(ctx, r.db, entity.KindProject)
}

// Insert appends one project version.
func (r *ProjectRepository) Insert(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO project_version (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var parent any
	if proj.ParentEntityID != nil {
		parent = int64(*proj.ParentEntityID)
	}

	_, err := r.db.ExecContext(ctx, query,
		int64(proj.Version.EntityID),
		proj.Version.VersionID,
		formatTime(proj.Version.VersionTime),
		proj.ExternalID,
		proj.Name,
		parent,
		boolInt(proj.Alive),
	)
	if err != nil {
		return storageErr("insert project version", err)
	}
	return nil
}

// GetByEntityID returns the project's latest version written at or before asOf.
func (r *ProjectRepository) GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM project_version pv
		WHERE pv.entity_id = ? AND pv.version_time <= ?
		ORDER BY pv.version_id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, int64(id), formatTime(asOf))
}

// GetByExternalID finds the entity most recently written with externalID and
// returns its latest version written at or before asOf.
func (r *ProjectRepository) GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM project_version pv
		WHERE pv.entity_id = (
			SELECT cur.entity_id FROM project_version cur
			WHERE cur.external_id = ?
			ORDER BY cur.version_time DESC, cur.entity_id DESC
			LIMIT 1
		) AND pv.version_time <= ?
		ORDER BY pv.version_id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, externalID, formatTime(asOf))
}

// List returns, for every project, its latest version written at or before asOf.
func (r *ProjectRepository) List(ctx context.Context, asOf time.Time) ([]project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM project_version pv
		WHERE ` + latestProjectAsOf + `
		ORDER BY pv.entity_id
	`
	return r.query(ctx, "list projects", query, formatTime(asOf))
}

// History returns every version of a project, oldest first.
func (r *ProjectRepository) History(ctx context.Context, id entity.ID) ([]project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM project_version pv
		WHERE pv.entity_id = ?
		ORDER BY pv.version_id
	`
	versions, err := r.query(ctx, "load project history", query, int64(id))
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, repository.ErrNotFound
	}
	return versions, nil
}

func (r *ProjectRepository) getOne(ctx context.Context, query string, args ...any) (*project.Project, error) {
	proj, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get project", err)
	}
	return proj, nil
}

func (r *ProjectRepository) query(ctx context.Context, op, query string, args ...any) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return projects, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*project.Project, error) {
	var (
		proj        project.Project
		entityID    int64
		versionTime string
		parent      sql.NullInt64
		alive       int
	)
	err := s.Scan(
		&entityID,
		&proj.Version.VersionID,
		&versionTime,
		&proj.ExternalID,
		&proj.Name,
		&parent,
		&alive,
	)
	if err != nil {
		return nil, err
	}

	proj.Version.EntityID = entity.ID(entityID)
	if proj.Version.VersionTime, err = parseTime(versionTime); err != nil {
		return nil, err
	}
	if parent.Valid {
		pid := entity.ID(parent.Int64)
		proj.ParentEntityID = &pid
	}
	proj.Alive = alive != 0
	return &proj, nil
}
