package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/metrics"
)

// Service implements punch-in, punch-out and status on top of the project and
// time block stores. A project is active while it has an open, live block.
type Service struct {
	projects   ProjectService
	timeblocks TimeblockService
	logger     *slog.Logger
	now        func() time.Time
	metrics    *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for punch times and elapsed durations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics counts punches on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new tracker service.
func NewService(projects ProjectService, timeblocks TimeblockService, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{projects: projects, timeblocks: timeblocks, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PunchIn opens a new, non-billable block on the referenced project.
func (s *Service) PunchIn(ctx context.Context, ref project.Ref) (*timeblock.Timeblock, error) {
	proj, err := s.projects.Get(ctx, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("punching in: %w", err)
	}
	if !proj.Alive {
		return nil, fmt.Errorf("punching in: project %d is deleted: %w", proj.EntityID(), project.ErrProjectNotFound)
	}

	open, err := s.openBlocks(ctx, project.ByEntityID(proj.EntityID()))
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("project %q: %w", proj.Name, ErrAlreadyPunchedIn)
	}

	tb, err := s.timeblocks.Upsert(ctx, timeblock.UpsertRequest{
		Project:  project.ByEntityID(proj.EntityID()),
		Start:    s.now(),
		Billable: false,
		Alive:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("punching in: %w", err)
	}

	s.metrics.Punch("in")
	s.logger.Info("punched in", "project", proj.Name, "timeblock", tb.EntityID())
	return tb, nil
}

// PunchOut closes the open block of the referenced project. With a nil ref it
// closes the only open block, and refuses to guess when several are open.
func (s *Service) PunchOut(ctx context.Context, ref project.Ref) (*timeblock.Timeblock, error) {
	var scope project.Ref
	if ref != nil {
		proj, err := s.projects.Get(ctx, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("punching out: %w", err)
		}
		scope = project.ByEntityID(proj.EntityID())
	}

	open, err := s.openBlocks(ctx, scope)
	if err != nil {
		return nil, err
	}
	switch {
	case len(open) == 0:
		return nil, ErrNoOpenTimeblock
	case len(open) > 1 && ref == nil:
		return nil, fmt.Errorf("%d open: %w", len(open), ErrAmbiguousTimeblock)
	}

	tb := open[0]
	end := s.now().UTC()
	if end.Before(tb.Start) {
		end = tb.Start
	}

	closed, err := s.timeblocks.Upsert(ctx, timeblock.UpsertRequest{
		Ref:        timeblock.RefOf(&tb),
		ExternalID: tb.ExternalID,
		Project:    tb.ProjectRef(),
		Start:      tb.Start,
		End:        &end,
		Billable:   tb.Billable,
		Notes:      tb.Notes,
		Tags:       tb.Tags,
		Alive:      tb.Alive,
	})
	if err != nil {
		return nil, fmt.Errorf("punching out: %w", err)
	}

	s.metrics.Punch("out")
	s.logger.Info("punched out", "timeblock", closed.EntityID(), "elapsed", closed.Elapsed(end))
	return closed, nil
}

// Status lists every open block with its project and elapsed time.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	now := s.now().UTC()
	open, err := s.openBlocks(ctx, nil)
	if err != nil {
		return nil, err
	}

	status := &Status{At: now, Open: make([]OpenEntry, 0, len(open))}
	for _, tb := range open {
		proj, err := s.projects.Get(ctx, tb.ProjectRef(), nil)
		if err != nil {
			return nil, fmt.Errorf("resolving project of time block %d: %w", tb.EntityID(), err)
		}
		status.Open = append(status.Open, OpenEntry{
			Project:   *proj,
			Timeblock: tb,
			Elapsed:   tb.Elapsed(now),
		})
	}
	return status, nil
}

// openBlocks returns the live open blocks, optionally restricted to a project.
func (s *Service) openBlocks(ctx context.Context, scope project.Ref) ([]timeblock.Timeblock, error) {
	filter := timeblock.Open(true)
	if scope != nil {
		filter = timeblock.And(timeblock.MatchProject(scope), filter)
	}
	blocks, err := s.timeblocks.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding open time blocks: %w", err)
	}

	live := blocks[:0]
	for _, tb := range blocks {
		if tb.Alive {
			live = append(live, tb)
		}
	}
	return live, nil
}
