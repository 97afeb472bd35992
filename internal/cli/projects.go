package cli

import (
	"context"
	"strings"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/spf13/cobra"
)

// newProjectsCommand lists live projects by FQN, and groups the commands that
// edit the hierarchy.
func newProjectsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects by fully qualified name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				names, err := liveProjectNames(ctx, a)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), names)
			})
		},
	}
	cmd.AddCommand(newProjectAddCommand(opts))
	cmd.AddCommand(newProjectRemoveCommand(opts))
	return cmd
}

func liveProjectNames(ctx context.Context, a *app) ([]string, error) {
	projects, err := a.projects.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	index, err := a.projects.FQNs(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for i := range projects {
		if projects[i].Alive {
			names = append(names, index[projects[i].EntityID()])
		}
	}
	return names, nil
}

func newProjectAddCommand(opts *RootOptions) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a local project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				req := project.UpsertRequest{
					Name:       strings.TrimSpace(args[0]),
					ExternalID: project.NewLocalExternalID(),
				}
				if parent != "" {
					p, err := a.findProject(ctx, parent)
					if err != nil {
						return err
					}
					id := p.EntityID()
					req.ParentEntityID = &id
				}
				proj, err := a.projects.Upsert(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), proj)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "fully qualified name of the parent project")
	return cmd
}

func newProjectRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <fqn>",
		Short: "Mark a project as deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				deleted, err := a.projects.Delete(ctx, project.RefOf(p))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), deleted)
			})
		},
	}
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <fqn>",
		Short: "Show every version of a project, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				versions, err := a.projects.History(ctx, project.RefOf(p))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), versions)
			})
		},
	}
}
