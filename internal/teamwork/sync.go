package teamwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/metrics"
)

// Remote is the Teamwork API surface the syncer reads.
type Remote interface {
	Projects(ctx context.Context) ([]RemoteProject, error)
	Tasks(ctx context.Context, projectID string) ([]RemoteTask, error)
	TimeEntries(ctx context.Context, since *time.Time) ([]RemoteTimeEntry, error)
}

// ProjectStore is the project ledger the syncer writes to.
type ProjectStore interface {
	Get(ctx context.Context, ref project.Ref, asOf *time.Time) (*project.Project, error)
	Upsert(ctx context.Context, req project.UpsertRequest) (*project.Project, error)
}

// TimeblockStore is the time block ledger the syncer writes to.
type TimeblockStore interface {
	Get(ctx context.Context, ref timeblock.Ref, asOf *time.Time) (*timeblock.Timeblock, error)
	Upsert(ctx context.Context, req timeblock.UpsertRequest) (*timeblock.Timeblock, error)
	LastSyncTime(ctx context.Context) (*time.Time, error)
}

// Result summarizes one sync run.
type Result struct {
	RunID    string `json:"run_id"`
	Projects int    `json:"projects"`
	Tasks    int    `json:"tasks"`
	Entries  int    `json:"entries"`
	Skipped  int    `json:"skipped"`
}

// Syncer pulls remote state into the ledger. Calls run sequentially; every
// write is preceded by an external-id lookup so a rerun appends nothing for
// unchanged remote records.
type Syncer struct {
	remote     Remote
	projects   ProjectStore
	timeblocks TimeblockStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewSyncer creates a Syncer. m may be nil.
func NewSyncer(remote Remote, projects ProjectStore, timeblocks TimeblockStore, logger *slog.Logger, m *metrics.Metrics) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{remote: remote, projects: projects, timeblocks: timeblocks, logger: logger, metrics: m}
}

// ProjectExternalID namespaces a remote project id.
func ProjectExternalID(id string) string { return "project:" + id }

// TaskExternalID namespaces a remote task id.
func TaskExternalID(id string) string { return "task:" + id }

// EntryExternalID namespaces a remote time entry id.
func EntryExternalID(id string) string { return "entry:" + id }

// Sync imports projects, their tasks as child projects, and the time entries
// updated since the ledger's last time block write.
func (s *Syncer) Sync(ctx context.Context) (res *Result, err error) {
	res = &Result{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", res.RunID)
	defer func() { s.metrics.SyncRun(err) }()

	since, err := s.timeblocks.LastSyncTime(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("sync started", "since", since)

	remoteProjects, err := s.remote.Projects(ctx)
	if err != nil {
		return nil, err
	}
	for _, rp := range remoteProjects {
		parent, changed, err := s.upsertProject(ctx, ProjectExternalID(rp.ID.String()), rp.Name, nil)
		if err != nil {
			return nil, err
		}
		if changed {
			res.Projects++
		}

		tasks, err := s.remote.Tasks(ctx, rp.ID.String())
		if err != nil {
			return nil, err
		}
		parentID := parent.EntityID()
		for _, task := range tasks {
			_, changed, err := s.upsertProject(ctx, TaskExternalID(task.ID.String()), task.Name, &parentID)
			if err != nil {
				return nil, err
			}
			if changed {
				res.Tasks++
			}
		}
	}

	entries, err := s.remote.TimeEntries(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		changed, err := s.upsertEntry(ctx, logger, entry)
		if errors.Is(err, project.ErrProjectNotFound) {
			logger.Warn("skipping time entry for unknown project", "entry", entry.ID.String(), "project", entry.ProjectID.String())
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		if changed {
			res.Entries++
		}
	}

	s.metrics.Synced(string(entity.KindProject), res.Projects+res.Tasks)
	s.metrics.Synced(string(entity.KindTimeblock), res.Entries)
	logger.Info("sync finished",
		"projects", res.Projects,
		"tasks", res.Tasks,
		"entries", res.Entries,
		"skipped", res.Skipped,
	)
	return res, nil
}

// upsertProject writes a version only when the name, parent or liveness differ
// from the current one.
func (s *Syncer) upsertProject(ctx context.Context, externalID, name string, parent *entity.ID) (*project.Project, bool, error) {
	current, err := s.projects.Get(ctx, project.ByExternalID(externalID), &entity.EndOfTime)
	if err != nil && !errors.Is(err, project.ErrProjectNotFound) {
		return nil, false, fmt.Errorf("looking up %s: %w", externalID, err)
	}
	if current != nil && current.Alive && current.Name == name && sameParent(current.ParentEntityID, parent) {
		return current, false, nil
	}

	proj, err := s.projects.Upsert(ctx, project.UpsertRequest{Name: name, ExternalID: externalID, ParentEntityID: parent})
	if err != nil {
		return nil, false, fmt.Errorf("importing %s: %w", externalID, err)
	}
	return proj, true, nil
}

func (s *Syncer) upsertEntry(ctx context.Context, logger *slog.Logger, entry RemoteTimeEntry) (bool, error) {
	projectExt := ProjectExternalID(entry.ProjectID.String())
	if id := entry.TaskID.String(); id != "" && id != "0" {
		projectExt = TaskExternalID(id)
	}
	proj, err := s.projects.Get(ctx, project.ByExternalID(projectExt), &entity.EndOfTime)
	if err != nil {
		return false, err
	}

	dur, err := entry.Duration()
	if err != nil {
		return false, err
	}
	externalID := EntryExternalID(entry.ID.String())
	start := entry.Date.UTC()
	end := start.Add(dur)
	tags := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		// The ledger stores tags newline-separated.
		if tag.Name == "" || strings.Contains(tag.Name, timeblock.TagSeparator) {
			logger.Warn("dropping unstorable tag", "entry", entry.ID.String(), "tag", tag.Name)
			continue
		}
		tags = append(tags, tag.Name)
	}

	req := timeblock.UpsertRequest{
		ExternalID: &externalID,
		Project:    project.RefOf(proj),
		Start:      start,
		End:        &end,
		Billable:   entry.IsBillable(),
		Notes:      entry.Description,
		Tags:       tags,
		Alive:      true,
	}

	current, err := s.timeblocks.Get(ctx, timeblock.ByExternalID(externalID), &entity.EndOfTime)
	if err != nil && !errors.Is(err, timeblock.ErrTimeblockNotFound) {
		return false, fmt.Errorf("looking up %s: %w", externalID, err)
	}
	if current != nil {
		if sameEntry(current, &req, proj.EntityID()) {
			return false, nil
		}
		req.Ref = timeblock.RefOf(current)
	}

	if _, err := s.timeblocks.Upsert(ctx, req); err != nil {
		return false, fmt.Errorf("importing %s: %w", externalID, err)
	}
	return true, nil
}

func sameParent(a, b *entity.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameEntry(tb *timeblock.Timeblock, req *timeblock.UpsertRequest, projectID entity.ID) bool {
	return tb.Alive &&
		tb.ProjectEntityID == projectID &&
		tb.Start.Equal(req.Start) &&
		tb.End != nil && tb.End.Equal(*req.End) &&
		tb.Billable == req.Billable &&
		tb.Notes == req.Notes &&
		slices.Equal(tb.Tags, req.Tags)
}
