package cli

import (
	"context"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/tracker"
	"github.com/spf13/cobra"
)

// statusOutput is {"open": [[fqn, "HH:MM:SS"], ...]}.
type statusOutput struct {
	Open [][2]string `json:"open"`
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show open time blocks and their elapsed time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				status, err := a.tracker.Status(ctx)
				if err != nil {
					return err
				}
				out := statusOutput{Open: make([][2]string, 0, len(status.Open))}
				for _, entry := range status.Open {
					fqn, err := a.projects.FQN(ctx, project.RefOf(&entry.Project), nil)
					if err != nil {
						return err
					}
					out.Open = append(out.Open, [2]string{fqn, tracker.FormatElapsed(entry.Elapsed)})
				}
				return writeCompactJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newPunchInCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "punchin <fqn>",
		Short: "Start working on a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				tb, err := a.tracker.PunchIn(ctx, project.RefOf(p))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), tb)
			})
		},
	}
}

func newPunchOutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "punchout [fqn]",
		Short: "Stop working on a project, or on the only open one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				var ref project.Ref
				if len(args) == 1 {
					p, err := a.findProject(ctx, args[0])
					if err != nil {
						return err
					}
					ref = project.RefOf(p)
				}
				tb, err := a.tracker.PunchOut(ctx, ref)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), tb)
			})
		},
	}
}
