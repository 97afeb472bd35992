package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/repository"
	"github.com/stretchr/testify/require"
)

type timeblockFixture struct {
	projects   *ProjectRepository
	timeblocks *TimeblockRepository
	acme       entity.ID
	globex     entity.ID
}

func newTimeblockFixture(t *testing.T) *timeblockFixture {
	t.Helper()
	db := NewTestDB(t)
	ctx := context.Background()

	f := &timeblockFixture{
		projects:   NewProjectRepository(db),
		timeblocks: NewTimeblockRepository(db),
	}
	var err error
	f.acme, err = f.projects.Allocate(ctx)
	require.NoError(t, err)
	f.globex, err = f.projects.Allocate(ctx)
	require.NoError(t, err)
	insertProject(t, f.projects, f.acme, 0, t0, "Acme", nil)
	insertProject(t, f.projects, f.globex, 0, t0, "Globex", nil)
	return f
}

func (f *timeblockFixture) insert(t *testing.T, tb timeblock.Timeblock) timeblock.Timeblock {
	t.Helper()
	ctx := context.Background()
	if tb.Version.EntityID == 0 {
		id, err := f.timeblocks.Allocate(ctx)
		require.NoError(t, err)
		tb.Version.EntityID = id
	}
	if tb.Tags == nil {
		tb.Tags = []string{}
	}
	tb.Alive = true
	require.NoError(t, f.timeblocks.Insert(ctx, &tb))
	return tb
}

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func TestTimeblockRepository_InsertAndGet(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()
	ext := "entry:42"

	want := f.insert(t, timeblock.Timeblock{
		ExternalID:      &ext,
		ProjectEntityID: f.acme,
		Start:           t0,
		End:             at(time.Hour),
		Billable:        true,
		Notes:           "standup",
		Tags:            []string{"meeting", "billing"},
		Version:         entity.Version{VersionTime: t0.Add(time.Hour)},
	})

	got, err := f.timeblocks.GetByEntityID(ctx, want.EntityID(), entity.EndOfTime)
	require.NoError(t, err)
	require.Equal(t, want, *got)

	got, err = f.timeblocks.GetByExternalID(ctx, ext, entity.EndOfTime)
	require.NoError(t, err)
	require.Equal(t, want.EntityID(), got.EntityID())

	_, err = f.timeblocks.GetByExternalID(ctx, "entry:0", entity.EndOfTime)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTimeblockRepository_SearchAsOf(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()

	open := f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0,
		Version: entity.Version{VersionTime: t0}})
	closed := open
	closed.End = at(time.Hour)
	closed.Version = entity.Next(open.Version, t0.Add(time.Hour))
	f.insert(t, closed)

	before, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.Open(true), timeblock.AtTime(t0.Add(30*time.Minute))))
	require.NoError(t, err)
	require.Len(t, before, 1)
	require.Equal(t, int64(0), before[0].Version.VersionID)

	after, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.Open(true), timeblock.AtTime(t0.Add(time.Hour))))
	require.NoError(t, err)
	require.Empty(t, after)

	closedNow, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.Open(false), timeblock.AtTime(entity.EndOfTime)))
	require.NoError(t, err)
	require.Len(t, closedNow, 1)
	require.Equal(t, int64(1), closedNow[0].Version.VersionID)

	latest, err := f.timeblocks.Search(ctx, nil)
	require.NoError(t, err)
	require.Len(t, latest, 1, "without a bound only the latest version is visible")
	require.Equal(t, int64(1), latest[0].Version.VersionID)

	nested, err := f.timeblocks.Search(ctx, timeblock.Or(timeblock.Open(true), timeblock.AtTime(t0.Add(2*time.Hour))))
	require.NoError(t, err)
	require.Len(t, nested, 1)
	require.Equal(t, int64(1), nested[0].Version.VersionID)
}

func TestTimeblockRepository_SearchByProjectAndRef(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()
	now := timeblock.AtTime(entity.EndOfTime)

	a := f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Version: entity.Version{VersionTime: t0}})
	g := f.insert(t, timeblock.Timeblock{ProjectEntityID: f.globex, Start: t0, Version: entity.Version{VersionTime: t0}})

	byProject, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.MatchProject(project.ByEntityID(f.globex)), now))
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	require.Equal(t, g.EntityID(), byProject[0].EntityID())

	byExternal, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.MatchProject(project.ByExternalID("ext-Acme")), now))
	require.NoError(t, err)
	require.Len(t, byExternal, 1)
	require.Equal(t, a.EntityID(), byExternal[0].EntityID())

	anyProject, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.MatchProject(nil), now))
	require.NoError(t, err)
	require.Len(t, anyProject, 2)

	either, err := f.timeblocks.Search(ctx, timeblock.And(
		timeblock.Or(timeblock.MatchRef(timeblock.ByEntityID(a.EntityID())), timeblock.MatchRef(timeblock.RefOf(&g))),
		now,
	))
	require.NoError(t, err)
	require.Len(t, either, 2)
}

func TestTimeblockRepository_SearchJoinsLatestProjectVersion(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()

	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Version: entity.Version{VersionTime: t0}})
	insertProject(t, f.projects, f.acme, 1, t0.Add(time.Hour), "Acme Renamed", nil)

	blocks, err := f.timeblocks.Search(ctx, timeblock.AtTime(entity.EndOfTime))
	require.NoError(t, err)
	require.Len(t, blocks, 1, "one row per block, not per project version")
}

func TestTimeblockRepository_SearchTags(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()
	now := timeblock.AtTime(entity.EndOfTime)

	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Tags: []string{"dev", "billing"},
		Version: entity.Version{VersionTime: t0}})
	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Tags: []string{"development"},
		Version: entity.Version{VersionTime: t0}})
	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Tags: []string{"50%_off"},
		Version: entity.Version{VersionTime: t0}})

	tests := []struct {
		tag  string
		want int
	}{
		{"dev", 1},
		{"billing", 1},
		{"development", 1},
		{"DEV", 0},
		{"50%_off", 1},
		{"%", 0},
		{"velop", 0},
	}
	for _, tc := range tests {
		t.Run(tc.tag, func(t *testing.T) {
			blocks, err := f.timeblocks.Search(ctx, timeblock.And(timeblock.Tag(tc.tag), now))
			require.NoError(t, err)
			require.Len(t, blocks, tc.want)
		})
	}
}

func TestTimeblockRepository_History(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()

	open := f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Version: entity.Version{VersionTime: t0}})
	closed := open
	closed.End = at(time.Hour)
	closed.Version = entity.Next(open.Version, t0.Add(time.Hour))
	f.insert(t, closed)

	versions, err := f.timeblocks.History(ctx, open.EntityID())
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.True(t, versions[0].IsOpen())
	require.False(t, versions[1].IsOpen())

	_, err = f.timeblocks.History(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTimeblockRepository_LastVersionTime(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()

	last, err := f.timeblocks.LastVersionTime(ctx)
	require.NoError(t, err)
	require.Nil(t, last)

	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Version: entity.Version{VersionTime: t0.Add(time.Hour)}})
	f.insert(t, timeblock.Timeblock{ProjectEntityID: f.acme, Start: t0, Version: entity.Version{VersionTime: t0}})

	last, err = f.timeblocks.LastVersionTime(ctx)
	require.NoError(t, err)
	require.Equal(t, t0.Add(time.Hour), *last)
}

func TestTimeblockRepository_ProjectMustExist(t *testing.T) {
	f := newTimeblockFixture(t)
	ctx := context.Background()

	id, err := f.timeblocks.Allocate(ctx)
	require.NoError(t, err)
	err = f.timeblocks.Insert(ctx, &timeblock.Timeblock{ProjectEntityID: 999, Start: t0, Alive: true,
		Version: entity.Version{EntityID: id, VersionTime: t0}})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
