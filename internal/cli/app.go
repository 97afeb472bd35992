package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/tt/internal/config"
	"github.com/rpggio/tt/internal/domain/activity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/domain/tracker"
	"github.com/rpggio/tt/internal/metrics"
	"github.com/rpggio/tt/internal/sqlite"
	"github.com/rpggio/tt/internal/teamwork"
	"github.com/spf13/cobra"
)

// app is the ledger wired for one command invocation.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	logCloser  io.Closer
	db         *sqlite.DB
	metrics    *metrics.Metrics
	projects   *project.Service
	timeblocks *timeblock.Service
	tracker    *tracker.Service
	activity   *activity.Service
}

func newApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DB.Path = opts.DBPath
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	// stdout carries command output, so logs always go to stderr.
	logger, logCloser, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}

	if err := ensureParentDir(cfg.DB.Path); err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		logCloser.Close()
		return nil, err
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	m := metrics.New()
	projects := project.NewService(sqlite.NewProjectRepository(db), logger,
		project.WithClock(now), project.WithMetrics(m))
	timeblocks := timeblock.NewService(sqlite.NewTimeblockRepository(db), projects, logger,
		timeblock.WithClock(now), timeblock.WithMetrics(m))
	trackerSvc := tracker.NewService(projects, timeblocks, logger,
		tracker.WithClock(now), tracker.WithMetrics(m))

	return &app{
		cfg:        cfg,
		logger:     logger,
		logCloser:  logCloser,
		db:         db,
		metrics:    m,
		projects:   projects,
		timeblocks: timeblocks,
		tracker:    trackerSvc,
		activity:   activity.NewService(sqlite.NewActivityRepository(db), logger, activity.WithClock(now)),
	}, nil
}

func (a *app) Close() error {
	err := a.db.Close()
	return errors.Join(err, a.logCloser.Close())
}

// syncer returns a Teamwork syncer, or teamwork.ErrMissingCredentials.
func (a *app) syncer() (*teamwork.Syncer, error) {
	client, err := teamwork.NewClient(a.cfg.Teamwork.BaseURL, a.cfg.Teamwork.APIKey, nil)
	if err != nil {
		return nil, err
	}
	return teamwork.NewSyncer(client, a.projects, a.timeblocks, a.logger, a.metrics), nil
}

// withApp runs fn against a freshly opened ledger and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(cmd.Context(), a)
}

// findProject resolves a fully qualified name to a live project.
func (a *app) findProject(ctx context.Context, fqn string) (*project.Project, error) {
	return a.projects.FindByFQN(ctx, fqn, nil)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeCompactJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
