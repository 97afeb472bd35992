package project_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/repository"
	"github.com/rpggio/tt/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func idPtr(id entity.ID) *entity.ID { return &id }

func TestProjectService_UpsertCreates(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ProjectRepository{}
	repo.On("GetByExternalID", ctx, "acme", entity.EndOfTime).Return((*project.Project)(nil), repository.ErrNotFound)
	repo.On("Allocate", ctx).Return(entity.ID(7), nil)
	repo.On("Insert", ctx, mock.Anything).Return(nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	proj, err := svc.Upsert(ctx, project.UpsertRequest{Name: "Acme", ExternalID: "acme"})
	require.NoError(t, err)
	require.Equal(t, entity.Version{EntityID: 7, VersionID: 0, VersionTime: fixedNow}, proj.Version)
	require.True(t, proj.Alive)
	repo.AssertExpectations(t)
}

func TestProjectService_UpsertAppendsVersion(t *testing.T) {
	ctx := context.Background()
	later := fixedNow.Add(time.Hour)
	existing := &project.Project{
		ExternalID: "acme",
		Name:       "Acme",
		Alive:      true,
		Version:    entity.Version{EntityID: 7, VersionID: 2, VersionTime: later},
	}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByExternalID", ctx, "acme", entity.EndOfTime).Return(existing, nil)
	repo.On("Insert", ctx, mock.Anything).Return(nil)

	// The clock is behind the stored version; the new version must not go back.
	svc := project.NewService(repo, nil, project.WithClock(clock))
	proj, err := svc.Upsert(ctx, project.UpsertRequest{Name: "Acme Corp", ExternalID: "acme"})
	require.NoError(t, err)
	require.Equal(t, entity.ID(7), proj.EntityID())
	require.Equal(t, int64(3), proj.Version.VersionID)
	require.Equal(t, later, proj.Version.VersionTime)
	require.Equal(t, "Acme Corp", proj.Name)
	repo.AssertNotCalled(t, "Allocate", mock.Anything)
}

func TestProjectService_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	svc := project.NewService(&mocks.ProjectRepository{}, nil)

	_, err := svc.Upsert(ctx, project.UpsertRequest{Name: "", ExternalID: "x"})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = svc.Upsert(ctx, project.UpsertRequest{Name: "X", ExternalID: " "})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_UpsertRejectsMissingParent(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ProjectRepository{}
	repo.On("GetByExternalID", ctx, "child", entity.EndOfTime).Return((*project.Project)(nil), repository.ErrNotFound)
	repo.On("GetByEntityID", ctx, entity.ID(99), entity.EndOfTime).Return((*project.Project)(nil), repository.ErrNotFound)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	_, err := svc.Upsert(ctx, project.UpsertRequest{Name: "Child", ExternalID: "child", ParentEntityID: idPtr(99)})
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_UpsertRejectsCycle(t *testing.T) {
	ctx := context.Background()
	root := &project.Project{ExternalID: "root", Name: "Root", Alive: true,
		Version: entity.Version{EntityID: 1, VersionTime: fixedNow}}
	child := &project.Project{ExternalID: "child", Name: "Child", ParentEntityID: idPtr(1), Alive: true,
		Version: entity.Version{EntityID: 2, VersionTime: fixedNow}}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByExternalID", ctx, "root", entity.EndOfTime).Return(root, nil)
	repo.On("GetByEntityID", ctx, entity.ID(2), entity.EndOfTime).Return(child, nil)
	repo.On("GetByEntityID", ctx, entity.ID(1), fixedNow).Return(root, nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	_, err := svc.Upsert(ctx, project.UpsertRequest{Name: "Root", ExternalID: "root", ParentEntityID: idPtr(2)})
	require.ErrorIs(t, err, project.ErrParentCycle)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProjectService_DeleteAppendsTombstone(t *testing.T) {
	ctx := context.Background()
	existing := &project.Project{ExternalID: "acme", Name: "Acme", Alive: true,
		Version: entity.Version{EntityID: 3, VersionID: 0, VersionTime: fixedNow}}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByEntityID", ctx, entity.ID(3), entity.EndOfTime).Return(existing, nil)
	repo.On("Insert", ctx, mock.MatchedBy(func(p *project.Project) bool {
		return !p.Alive && p.Version.VersionID == 1
	})).Return(nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	proj, err := svc.Delete(ctx, project.ByEntityID(3))
	require.NoError(t, err)
	require.False(t, proj.Alive)
	require.True(t, existing.Alive)
	repo.AssertExpectations(t)
}

func TestProjectService_GetMaterializedRunsNoQuery(t *testing.T) {
	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, nil)

	p := project.Project{Name: "Acme", Version: entity.Version{EntityID: 5}}
	got, err := svc.Get(context.Background(), project.RefOf(&p), nil)
	require.NoError(t, err)
	require.Equal(t, p, *got)
	repo.AssertExpectations(t)
}

func TestProjectService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("GetByExternalID", ctx, "nope", fixedNow).Return((*project.Project)(nil), repository.ErrNotFound)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	_, err := svc.Get(ctx, project.ByExternalID("nope"), nil)
	require.ErrorIs(t, err, project.ErrProjectNotFound)

	_, err = svc.Get(ctx, project.ByExternalID(""), nil)
	require.ErrorIs(t, err, project.ErrInvalidReference)

	_, err = svc.Get(ctx, nil, nil)
	require.ErrorIs(t, err, project.ErrInvalidReference)
}

func TestProjectService_FQN(t *testing.T) {
	ctx := context.Background()
	asOf := fixedNow.Add(-time.Minute)
	root := &project.Project{Name: "Acme", Alive: true, Version: entity.Version{EntityID: 1}}
	child := &project.Project{Name: "Web/API", ParentEntityID: idPtr(1), Alive: true, Version: entity.Version{EntityID: 2}}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByEntityID", ctx, entity.ID(2), asOf).Return(child, nil)
	repo.On("GetByEntityID", ctx, entity.ID(1), asOf).Return(root, nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	fqn, err := svc.FQN(ctx, project.ByEntityID(2), &asOf)
	require.NoError(t, err)
	require.Equal(t, `Acme/Web\/API`, fqn)
}

func TestProjectService_ParentsDetectsCycle(t *testing.T) {
	ctx := context.Background()
	a := &project.Project{Name: "A", ParentEntityID: idPtr(2), Version: entity.Version{EntityID: 1}}
	b := &project.Project{Name: "B", ParentEntityID: idPtr(1), Version: entity.Version{EntityID: 2}}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByEntityID", ctx, entity.ID(1), fixedNow).Return(a, nil)
	repo.On("GetByEntityID", ctx, entity.ID(2), fixedNow).Return(b, nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	_, err := svc.Parents(ctx, project.ByEntityID(1), nil)
	require.ErrorIs(t, err, project.ErrParentCycle)
}

func TestProjectService_FindByFQN(t *testing.T) {
	ctx := context.Background()
	list := []project.Project{
		{Name: "Acme", Alive: true, Version: entity.Version{EntityID: 1}},
		{Name: "Web", ParentEntityID: idPtr(1), Alive: true, Version: entity.Version{EntityID: 2}},
		{Name: "Old", ParentEntityID: idPtr(1), Alive: false, Version: entity.Version{EntityID: 3}},
	}

	repo := &mocks.ProjectRepository{}
	repo.On("List", ctx, fixedNow).Return(list, nil)

	svc := project.NewService(repo, nil, project.WithClock(clock))
	proj, err := svc.FindByFQN(ctx, "Acme/Web", nil)
	require.NoError(t, err)
	require.Equal(t, entity.ID(2), proj.EntityID())

	_, err = svc.FindByFQN(ctx, "Acme/Old", nil)
	require.ErrorIs(t, err, project.ErrProjectNotFound)

	fqns, err := svc.FQNs(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "Acme/Old", fqns[3])
}

func TestJoinFQN(t *testing.T) {
	require.Equal(t, "", project.JoinFQN(nil))
	require.Equal(t, "a/b", project.JoinFQN([]string{"a", "b"}))
	require.Equal(t, `a\/b/c`, project.JoinFQN([]string{"a/b", "c"}))
}
