// Package snapshots provides commands that inspect persisted session
// snapshots.
package snapshots

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/cmd/output"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/errors"
)

// NewCommand creates the snapshots command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snapshot", "snap"},
		GroupID: "management",
		Short:   "Inspect saved session snapshots",
		Long: `Inspect layer trees saved by the server's snapshot endpoint.

The store is selected with the store, sqlite_path and database_url
settings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newListCommand(app), newShowCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions with saved snapshots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), app, func(st store.Store) error {
				summaries, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				format := output.DetectFormat(app.OutputFormat())
				if isTable(format) {
					return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.SummariesTable(summaries))
				}
				if summaries == nil {
					summaries = []store.Summary{}
				}
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), summaries)
			})
		},
	}
}

func newShowCommand(app application.Application) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: "Show a saved layer tree",
		Example: `  leafmap snapshots show demo
  leafmap snapshots show demo --version 2 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), app, func(st store.Store) error {
				var (
					rec store.Record
					err error
				)
				if version > 0 {
					rec, err = st.Version(cmd.Context(), args[0], version)
				} else {
					rec, err = st.Latest(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				format := output.DetectFormat(app.OutputFormat())
				if isTable(format) {
					return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.TreeTable(rec.Snapshot))
				}
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), rec)
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "snapshot version (default latest)")
	return cmd
}

func withStore(ctx context.Context, app application.Application, fn func(store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := app.Store(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.NewConfigError("store", "no snapshot store configured; set store to sqlite or postgres", nil)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			app.Logger().Warn().Err(cerr).Msg("Closing snapshot store")
		}
	}()
	return fn(st)
}

func isTable(f output.Format) bool {
	return f == output.FormatTable || f == output.FormatWide
}
