package mocks

import (
	"context"
	"time"

	"github.com/rpggio/tt/internal/domain/activity"
	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Allocate(ctx context.Context) (entity.ID, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.ID), args.Error(1)
}

func (m *ProjectRepository) Insert(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*project.Project, error) {
	args := m.Called(ctx, id, asOf)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*project.Project, error) {
	args := m.Called(ctx, externalID, asOf)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, asOf time.Time) ([]project.Project, error) {
	args := m.Called(ctx, asOf)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) History(ctx context.Context, id entity.ID) ([]project.Project, error) {
	args := m.Called(ctx, id)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// TimeblockRepository is a mock for timeblock.Repository.
type TimeblockRepository struct {
	mock.Mock
}

func (m *TimeblockRepository) Allocate(ctx context.Context) (entity.ID, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.ID), args.Error(1)
}

func (m *TimeblockRepository) Insert(ctx context.Context, tb *timeblock.Timeblock) error {
	args := m.Called(ctx, tb)
	return args.Error(0)
}

func (m *TimeblockRepository) GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*timeblock.Timeblock, error) {
	args := m.Called(ctx, id, asOf)
	if tb, ok := args.Get(0).(*timeblock.Timeblock); ok {
		return tb, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeblockRepository) GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*timeblock.Timeblock, error) {
	args := m.Called(ctx, externalID, asOf)
	if tb, ok := args.Get(0).(*timeblock.Timeblock); ok {
		return tb, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeblockRepository) History(ctx context.Context, id entity.ID) ([]timeblock.Timeblock, error) {
	args := m.Called(ctx, id)
	if list, ok := args.Get(0).([]timeblock.Timeblock); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeblockRepository) Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error) {
	args := m.Called(ctx, filter)
	if list, ok := args.Get(0).([]timeblock.Timeblock); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeblockRepository) LastVersionTime(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if t, ok := args.Get(0).(*time.Time); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectService is a mock for the project lookups other services depend on.
type ProjectService struct {
	mock.Mock
}

func (m *ProjectService) Get(ctx context.Context, ref project.Ref, asOf *time.Time) (*project.Project, error) {
	args := m.Called(ctx, ref, asOf)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

// TimeblockService is a mock for tracker.TimeblockService.
type TimeblockService struct {
	mock.Mock
}

func (m *TimeblockService) Upsert(ctx context.Context, req timeblock.UpsertRequest) (*timeblock.Timeblock, error) {
	args := m.Called(ctx, req)
	if tb, ok := args.Get(0).(*timeblock.Timeblock); ok {
		return tb, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimeblockService) Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error) {
	args := m.Called(ctx, filter)
	if list, ok := args.Get(0).([]timeblock.Timeblock); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
