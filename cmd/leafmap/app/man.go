package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// NewManCommand creates the hidden man command, which writes the man
// page for the whole command tree to stdout.
func (a *App) NewManCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "LEAFMAP",
				Section: "1",
				Source:  "leafmap " + a.version,
				Manual:  "leafmap Manual",
			}
			return doc.GenMan(cmd.Root(), header, cmd.OutOrStdout())
		},
	}
}
