package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DefaultLimit caps Recent when the caller asks for no limit.
const DefaultLimit = 50

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new activity service.
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

// Log appends an entry. details, when non-nil, is stored as JSON.
func (s *Service) Log(ctx context.Context, typ Type, summary string, details any) (*Entry, error) {
	if typ == "" || summary == "" {
		return nil, ErrInvalidInput
	}
	entry := &Entry{Type: typ, Summary: summary, CreatedAt: s.now().UTC()}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encoding activity details: %w", err)
		}
		entry.Details = string(data)
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return nil, fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("activity logged", "type", typ, "id", entry.ID)
	return entry, nil
}

// LogResult logs okType with details when err is nil, and failType with the
// error message otherwise. Failures to log are reported but never replace err.
func (s *Service) LogResult(ctx context.Context, okType, failType Type, summary string, details any, err error) {
	typ := okType
	if err != nil {
		typ = failType
		details = map[string]string{"error": err.Error()}
	}
	if _, logErr := s.Log(ctx, typ, summary, details); logErr != nil {
		s.logger.Warn("failed to log activity", "type", typ, "error", logErr)
	}
}

// Recent lists entries, newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}
