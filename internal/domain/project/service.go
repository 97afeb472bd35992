package project

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

// maxDepth bounds parent-chain walks.
const maxDepth = 256

// Service handles project operations.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	now     func() time.Time
	metrics *metrics.Metrics
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

// NewService creates a new project service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert appends a new version of the project with the given external id, or
// creates the project if no entity carries that id yet.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*Project, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ExternalID) == "" {
		return nil, ErrInvalidInput
	}

	now := s.now().UTC()
	existing, err := s.repo.GetByExternalID(ctx, req.ExternalID, entity.EndOfTime)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("resolving project %q: %w", req.ExternalID, err)
	}

	if req.ParentEntityID != nil {
		if err := s.checkParent(ctx, existing, *req.ParentEntityID, now); err != nil {
			return nil, err
		}
	}

	proj := &Project{
		ExternalID:     req.ExternalID,
		Name:           req.Name,
		ParentEntityID: req.ParentEntityID,
		Alive:          true,
	}
	if existing != nil {
		proj.Version = entity.Next(existing.Version, now)
	} else {
		id, err := s.repo.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocating project: %w", err)
		}
		proj.Version = entity.First(id, now)
	}

	if err := s.append(ctx, proj); err != nil {
		return nil, err
	}
	return proj, nil
}

// Delete appends a version that marks the project as no longer alive.
func (s *Service) Delete(ctx context.Context, ref Ref) (*Project, error) {
	current, err := s.resolve(ctx, ref, entity.EndOfTime)
	if err != nil {
		return nil, err
	}
	if !current.Alive {
		return current, nil
	}

	proj := *current
	proj.Alive = false
	proj.Version = entity.Next(current.Version, s.now())
	if err := s.append(ctx, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// Get returns the latest version of the referenced project visible at asOf
// (default now). Materialized references are returned as-is.
func (s *Service) Get(ctx context.Context, ref Ref, asOf *time.Time) (*Project, error) {
	return s.resolve(ctx, ref, s.at(asOf))
}

// List returns the latest-as-of version of every project, by entity id.
func (s *Service) List(ctx context.Context, asOf *time.Time) ([]Project, error) {
	projects, err := s.repo.List(ctx, s.at(asOf))
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// History returns every version of the referenced project, oldest first.
func (s *Service) History(ctx context.Context, ref Ref) ([]Project, error) {
	current, err := s.resolve(ctx, ref, entity.EndOfTime)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.History(ctx, current.EntityID())
	if err != nil {
		return nil, fmt.Errorf("loading project history: %w", err)
	}
	return versions, nil
}

// Parents returns the chain from the root down to the referenced project.
func (s *Service) Parents(ctx context.Context, ref Ref, asOf *time.Time) ([]Project, error) {
	at := s.at(asOf)
	cur, err := s.resolve(ctx, ref, at)
	if err != nil {
		return nil, err
	}

	chain := []Project{*cur}
	seen := map[entity.ID]bool{cur.EntityID(): true}
	for cur.ParentEntityID != nil {
		pid := *cur.ParentEntityID
		if seen[pid] || len(chain) >= maxDepth {
			return nil, fmt.Errorf("%w: at entity %d", ErrParentCycle, pid)
		}
		seen[pid] = true

		parent, err := s.repo.GetByEntityID(ctx, pid, at)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("parent %d: %w", pid, ErrProjectNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("getting parent project: %w", err)
		}
		chain = append(chain, *parent)
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// FQN returns the slash-joined names from the root to the referenced project.
// Ancestors are resolved at the same asOf as the project itself.
func (s *Service) FQN(ctx context.Context, ref Ref, asOf *time.Time) (string, error) {
	chain, err := s.Parents(ctx, ref, asOf)
	if err != nil {
		return "", err
	}
	names := make([]string, len(chain))
	for i := range chain {
		names[i] = chain[i].Name
	}
	return JoinFQN(names), nil
}

// FQNs computes the FQN of every project visible at asOf in one pass.
func (s *Service) FQNs(ctx context.Context, asOf *time.Time) (map[entity.ID]string, error) {
	projects, err := s.List(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return buildFQNIndex(projects)
}

// FindByFQN returns the live project whose FQN equals fqn at asOf.
func (s *Service) FindByFQN(ctx context.Context, fqn string, asOf *time.Time) (*Project, error) {
	projects, err := s.List(ctx, asOf)
	if err != nil {
		return nil, err
	}
	index, err := buildFQNIndex(projects)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Alive && index[projects[i].EntityID()] == fqn {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", fqn, ErrProjectNotFound)
}

// JoinFQN joins path elements with "/", escaping "/" inside names as "\/".
func JoinFQN(names []string) string {
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = strings.ReplaceAll(name, "/", `\/`)
	}
	return strings.Join(escaped, "/")
}

func buildFQNIndex(projects []Project) (map[entity.ID]string, error) {
	byID := make(map[entity.ID]*Project, len(projects))
	for i := range projects {
		byID[projects[i].EntityID()] = &projects[i]
	}

	index := make(map[entity.ID]string, len(projects))
	for i := range projects {
		var names []string
		seen := map[entity.ID]bool{}
		cur := &projects[i]
		for cur != nil {
			if seen[cur.EntityID()] {
				return nil, fmt.Errorf("%w: at entity %d", ErrParentCycle, cur.EntityID())
			}
			seen[cur.EntityID()] = true
			names = append(names, cur.Name)
			if cur.ParentEntityID == nil {
				break
			}
			cur = byID[*cur.ParentEntityID]
		}
		for l, r := 0, len(names)-1; l < r; l, r = l+1, r-1 {
			names[l], names[r] = names[r], names[l]
		}
		index[projects[i].EntityID()] = JoinFQN(names)
	}
	return index, nil
}

// checkParent requires the parent to be a live project and rejects a parent
// whose own chain already passes through the project being written.
func (s *Service) checkParent(ctx context.Context, existing *Project, parentID entity.ID, now time.Time) error {
	parent, err := s.repo.GetByEntityID(ctx, parentID, entity.EndOfTime)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("parent %d: %w", parentID, ErrProjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting parent project: %w", err)
	}
	if !parent.Alive {
		return fmt.Errorf("parent %d is deleted: %w", parentID, ErrProjectNotFound)
	}
	if existing == nil {
		return nil
	}

	chain, err := s.Parents(ctx, RefOf(parent), &now)
	if err != nil {
		return err
	}
	for i := range chain {
		if chain[i].EntityID() == existing.EntityID() {
			return fmt.Errorf("%w: %d would become its own ancestor", ErrParentCycle, existing.EntityID())
		}
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, ref Ref, asOf time.Time) (*Project, error) {
	var (
		proj *Project
		err  error
	)
	switch r := ref.(type) {
	case Materialized:
		p := r.Project
		return &p, nil
	case ByVersion:
		proj, err = s.repo.GetByEntityID(ctx, r.EntityID, asOf)
	case ByEntityID:
		proj, err = s.repo.GetByEntityID(ctx, entity.ID(r), asOf)
	case ByExternalID:
		if strings.TrimSpace(string(r)) == "" {
			return nil, ErrInvalidReference
		}
		proj, err = s.repo.GetByExternalID(ctx, string(r), asOf)
	case nil:
		return nil, ErrInvalidReference
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidReference, ref)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

func (s *Service) append(ctx context.Context, proj *Project) error {
	if err := s.repo.Insert(ctx, proj); err != nil {
		return fmt.Errorf("writing project version: %w", err)
	}
	s.metrics.VersionAppended(string(entity.KindProject))
	s.logger.Debug("project version appended",
		"entity_id", proj.Version.EntityID,
		"version_id", proj.Version.VersionID,
		"external_id", proj.ExternalID,
	)
	return nil
}

func (s *Service) at(asOf *time.Time) time.Time {
	if asOf != nil {
		return asOf.UTC()
	}
	return s.now().UTC()
}
