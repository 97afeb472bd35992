package timeblock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/metrics"
	"github.com/rpggio/tt/internal/repository"
)

// Service handles time block operations.
type Service struct {
	repo     Repository
	projects ProjectResolver
	logger   *slog.Logger
	now      func() time.Time
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used to stamp versions and default as-of reads.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics counts appended versions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new time block service.
func NewService(repo Repository, projects ProjectResolver, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{repo: repo, projects: projects, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert appends a version onto the block req.Ref resolves to, or creates a
// new block. Upserts are not idempotent: callers retrying a write must look the
// block up by external id first.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*Timeblock, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}

	proj, err := s.projects.Get(ctx, req.Project, nil)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	var existing *Timeblock
	if req.Ref != nil {
		existing, err = s.resolve(ctx, req.Ref, entity.EndOfTime)
		if err != nil && !errors.Is(err, ErrTimeblockNotFound) {
			return nil, err
		}
	}

	if req.ExternalID != nil {
		owner, err := s.repo.GetByExternalID(ctx, *req.ExternalID, entity.EndOfTime)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("checking external id: %w", err)
		}
		if owner != nil && (existing == nil || owner.EntityID() != existing.EntityID()) {
			return nil, fmt.Errorf("external id %q belongs to time block %d: %w",
				*req.ExternalID, owner.EntityID(), repository.ErrConstraintViolation)
		}
	}

	tb := &Timeblock{
		ExternalID:      req.ExternalID,
		ProjectEntityID: proj.EntityID(),
		Start:           req.Start.UTC(),
		End:             utcPtr(req.End),
		Billable:        req.Billable,
		Notes:           req.Notes,
		Tags:            append([]string(nil), req.Tags...),
		Alive:           req.Alive,
	}

	now := s.now()
	if existing != nil {
		tb.Version = entity.Next(existing.Version, now)
	} else {
		id, err := s.repo.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocating time block: %w", err)
		}
		tb.Version = entity.First(id, now)
	}

	if err := s.repo.Insert(ctx, tb); err != nil {
		return nil, fmt.Errorf("writing time block version: %w", err)
	}
	s.metrics.VersionAppended(string(entity.KindTimeblock))
	s.logger.Debug("time block version appended",
		"entity_id", tb.Version.EntityID,
		"version_id", tb.Version.VersionID,
		"project_entity_id", tb.ProjectEntityID,
		"open", tb.IsOpen(),
	)
	return tb, nil
}

// Get returns the latest version of the referenced block visible at asOf
// (default now). Materialized references are returned as-is.
func (s *Service) Get(ctx context.Context, ref Ref, asOf *time.Time) (*Timeblock, error) {
	return s.resolve(ctx, ref, s.at(asOf))
}

// History returns every version of the referenced block, oldest first.
func (s *Service) History(ctx context.Context, ref Ref) ([]Timeblock, error) {
	current, err := s.resolve(ctx, ref, entity.EndOfTime)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.History(ctx, current.EntityID())
	if err != nil {
		return nil, fmt.Errorf("loading time block history: %w", err)
	}
	return versions, nil
}

// Search returns the blocks matching filter. A nil filter, or one without an
// as-of bound, is evaluated as of now.
func (s *Service) Search(ctx context.Context, filter Filter) ([]Timeblock, error) {
	now := AtTime(s.now().UTC())
	if filter == nil {
		filter = now
	} else if _, ok := AsOf(filter); !ok {
		filter = And(filter, now)
	}

	blocks, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("searching time blocks: %w", err)
	}
	return blocks, nil
}

// LastSyncTime returns the latest version time ever written, or nil for an
// empty ledger.
func (s *Service) LastSyncTime(ctx context.Context) (*time.Time, error) {
	t, err := s.repo.LastVersionTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading last sync time: %w", err)
	}
	return t, nil
}

func (s *Service) resolve(ctx context.Context, ref Ref, asOf time.Time) (*Timeblock, error) {
	var (
		tb  *Timeblock
		err error
	)
	switch r := ref.(type) {
	case Materialized:
		t := r.Timeblock
		return &t, nil
	case ByVersion:
		tb, err = s.repo.GetByEntityID(ctx, r.EntityID, asOf)
	case ByEntityID:
		tb, err = s.repo.GetByEntityID(ctx, entity.ID(r), asOf)
	case ByExternalID:
		if strings.TrimSpace(string(r)) == "" {
			return nil, ErrInvalidReference
		}
		tb, err = s.repo.GetByExternalID(ctx, string(r), asOf)
	case nil:
		return nil, ErrInvalidReference
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidReference, ref)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTimeblockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting time block: %w", err)
	}
	return tb, nil
}

func (s *Service) at(asOf *time.Time) time.Time {
	if asOf != nil {
		return asOf.UTC()
	}
	return s.now().UTC()
}

func validateUpsert(req UpsertRequest) error {
	if req.ExternalID != nil {
		if strings.TrimSpace(*req.ExternalID) == "" {
			return ErrInvalidInput
		}
		if req.End == nil {
			return ErrInvariantViolation
		}
	}
	if req.Start.IsZero() {
		return ErrInvalidInput
	}
	if req.End != nil && req.End.Before(req.Start) {
		return ErrInvalidInput
	}
	for _, tag := range req.Tags {
		if tag == "" || strings.Contains(tag, TagSeparator) {
			return fmt.Errorf("%w: tag %q", ErrInvalidInput, tag)
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
