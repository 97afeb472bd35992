package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rpggio/tt/internal/backup"
	"github.com/rpggio/tt/internal/domain/activity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/export"
	"github.com/rpggio/tt/internal/mcp"
	"github.com/spf13/cobra"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Aliases: []string{"down"},
		Short:   "Import projects, tasks and time entries from Teamwork",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				syncer, err := a.syncer()
				if err != nil {
					return err
				}
				res, err := syncer.Sync(ctx)
				a.activity.LogResult(ctx, activity.TypeSyncCompleted, activity.TypeSyncFailed, "teamwork sync", res, err)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

type exportOptions struct {
	project string
	tag     string
	asOf    string
}

type exportOutput struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	var eo exportOptions
	cmd := &cobra.Command{
		Use:   "export <path.xlsx>",
		Short: "Write time blocks to an Excel timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				filter, err := exportFilter(ctx, a, eo)
				if err != nil {
					return err
				}

				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				exporter := export.NewExporter(a.timeblocks, a.projects, a.logger)
				rows, err := exporter.Write(ctx, f, filter)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				out := exportOutput{Path: args[0], Rows: rows}
				a.activity.LogResult(ctx, activity.TypeExportWritten, "", "timesheet export", out, nil)
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&eo.project, "project", "", "only blocks of this project (fully qualified name)")
	cmd.Flags().StringVar(&eo.tag, "tag", "", "only blocks carrying this tag")
	cmd.Flags().StringVar(&eo.asOf, "as-of", "", "read the ledger as of this RFC 3339 time")
	return cmd
}

// exportFilter builds the search filter for export. A nil filter exports the
// current state of every block.
func exportFilter(ctx context.Context, a *app, eo exportOptions) (timeblock.Filter, error) {
	var filters []timeblock.Filter
	if eo.project != "" {
		p, err := a.findProject(ctx, eo.project)
		if err != nil {
			return nil, err
		}
		filters = append(filters, timeblock.MatchProject(project.RefOf(p)))
	}
	if eo.tag != "" {
		filters = append(filters, timeblock.Tag(eo.tag))
	}
	if eo.asOf != "" {
		at, err := time.Parse(time.RFC3339Nano, eo.asOf)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-of %q: %w", eo.asOf, err)
		}
		filters = append(filters, timeblock.AtTime(at))
	}

	var filter timeblock.Filter
	for _, f := range filters {
		if filter == nil {
			filter = f
			continue
		}
		filter = timeblock.And(filter, f)
	}
	return filter, nil
}

func newBackupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the ledger to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cfg := a.cfg.Backup
				if cfg.Bucket == "" {
					return backup.ErrMissingBucket
				}
				client, err := backup.NewS3Client(ctx, cfg)
				if err != nil {
					return err
				}
				svc, err := backup.NewService(a.db, client, cfg.Bucket, cfg.Prefix, a.logger)
				if err != nil {
					return err
				}
				res, err := svc.Run(ctx)
				a.activity.LogResult(ctx, activity.TypeBackupCompleted, activity.TypeBackupFailed, "s3 backup", res, err)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

type activityOptions struct {
	typ   string
	limit int
}

func newActivityCommand(opts *RootOptions) *cobra.Command {
	var ao activityOptions
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent sync runs, backups and exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				lo := activity.ListOptions{Limit: ao.limit}
				if ao.typ != "" {
					typ := activity.Type(ao.typ)
					lo.Type = &typ
				}
				entries, err := a.activity.Recent(ctx, lo)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVar(&ao.typ, "type", "", "only entries of this type, e.g. sync_failed")
	cmd.Flags().IntVarP(&ao.limit, "limit", "n", activity.DefaultLimit, "maximum number of entries")
	return cmd
}

type versionOutput struct {
	Version       string `json:"version"`
	SchemaVersion uint   `json:"schema_version"`
	Dirty         bool   `json:"dirty"`
}

func newVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tt and ledger schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				v, dirty, err := a.db.SchemaVersion()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), versionOutput{
					Version:       mcp.Version,
					SchemaVersion: v,
					Dirty:         dirty,
				})
			})
		},
	}
}
