// Package events provides the event-type listing command.
package events

import (
	"github.com/spf13/cobra"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/cmd/output"
	"github.com/gubancs/leafmap/pkg/errors"
	eventtypes "github.com/gubancs/leafmap/pkg/events"
)

// Family lists the event types of one family.
type Family struct {
	Family string   `json:"family" yaml:"family"`
	Types  []string `json:"types" yaml:"types"`
}

// NewCommand creates the events command.
func NewCommand(app application.Application) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:     "events",
		GroupID: "core",
		Short:   "List registered event types",
		Long: `List the event families and wire names the registry resolves.

Inbound events whose name is not listed here are dropped by sessions.`,
		Example: `  leafmap events
  leafmap events --family mouse
  leafmap events -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := app.Registry()
			fam := eventtypes.Family(family)
			if family != "" && len(reg.Types(fam)) == 0 {
				return errors.NewNotFoundError("event family", family)
			}

			format := output.DetectFormat(app.OutputFormat())
			formatter := output.NewFormatter(format)
			if format == output.FormatTable || format == output.FormatWide {
				return formatter.Format(cmd.OutOrStdout(), output.EventTypesTable(reg, fam))
			}
			return formatter.Format(cmd.OutOrStdout(), families(reg, fam))
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "only list this family")
	return cmd
}

func families(reg *eventtypes.Registry, only eventtypes.Family) []Family {
	var out []Family
	for _, fam := range reg.Families() {
		if only != "" && fam != only {
			continue
		}
		f := Family{Family: string(fam)}
		for _, t := range reg.Types(fam) {
			f.Types = append(f.Types, t.Name())
		}
		out = append(out, f)
	}
	return out
}
