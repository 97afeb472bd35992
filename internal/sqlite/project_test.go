package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/repository"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func insertProject(t *testing.T, repo *ProjectRepository, id entity.ID, vid int64, at time.Time, name string, parent *entity.ID) *project.Project {
	t.Helper()
	proj := &project.Project{
		ExternalID:     "ext-" + name,
		Name:           name,
		ParentEntityID: parent,
		Alive:          true,
		Version:        entity.Version{EntityID: id, VersionID: vid, VersionTime: at},
	}
	require.NoError(t, repo.Insert(context.Background(), proj))
	return proj
}

func TestProjectRepository_InsertAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	id, err := repo.Allocate(ctx)
	require.NoError(t, err)
	want := insertProject(t, repo, id, 0, t0, "Acme", nil)

	got, err := repo.GetByEntityID(ctx, id, entity.EndOfTime)
	require.NoError(t, err)
	require.Equal(t, want, got)

	got, err = repo.GetByExternalID(ctx, "ext-Acme", entity.EndOfTime)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestProjectRepository_AsOf(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	id, err := repo.Allocate(ctx)
	require.NoError(t, err)
	insertProject(t, repo, id, 0, t0, "v0", nil)
	insertProject(t, repo, id, 1, t0.Add(time.Hour), "v1", nil)
	insertProject(t, repo, id, 2, t0.Add(2*time.Hour), "v2", nil)

	got, err := repo.GetByEntityID(ctx, id, t0.Add(90*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Name)

	got, err = repo.GetByEntityID(ctx, id, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "v1", got.Name, "as-of is inclusive")

	got, err = repo.GetByEntityID(ctx, id, entity.EndOfTime)
	require.NoError(t, err)
	require.Equal(t, "v2", got.Name)

	_, err = repo.GetByEntityID(ctx, id, t0.Add(-time.Second))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_List(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	a, _ := repo.Allocate(ctx)
	b, _ := repo.Allocate(ctx)
	insertProject(t, repo, a, 0, t0, "A", nil)
	insertProject(t, repo, b, 0, t0.Add(time.Hour), "B", &a)
	insertProject(t, repo, a, 1, t0.Add(2*time.Hour), "A2", nil)

	list, err := repo.List(ctx, t0.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "A", list[0].Name)
	require.Equal(t, "B", list[1].Name)
	require.Equal(t, a, *list[1].ParentEntityID)

	list, err = repo.List(ctx, t0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestProjectRepository_History(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	id, _ := repo.Allocate(ctx)
	insertProject(t, repo, id, 0, t0, "v0", nil)
	insertProject(t, repo, id, 1, t0, "v1", nil)

	versions, err := repo.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, int64(0), versions[0].Version.VersionID)
	require.Equal(t, int64(1), versions[1].Version.VersionID)

	_, err = repo.History(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_Constraints(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	id, _ := repo.Allocate(ctx)
	insertProject(t, repo, id, 0, t0, "A", nil)

	err := repo.Insert(ctx, &project.Project{ExternalID: "x", Name: "dup", Alive: true,
		Version: entity.Version{EntityID: id, VersionID: 0, VersionTime: t0}})
	require.ErrorIs(t, err, repository.ErrConstraintViolation)

	missing := entity.ID(999)
	err = repo.Insert(ctx, &project.Project{ExternalID: "y", Name: "orphan", ParentEntityID: &missing, Alive: true,
		Version: entity.Version{EntityID: id, VersionID: 1, VersionTime: t0}})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
