package console

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/cmd/application"
)

// NewCommand creates the console command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		load    string
		id      string
		history string
	)

	cmd := &cobra.Command{
		Use:     "console",
		Aliases: []string{"repl"},
		GroupID: "core",
		Short:   "Drive a local map session interactively",
		Long: `Start an interactive shell around a local session.

The session is attached to a loopback transport: outbound commands are
recorded (see 'sent'), calls such as getZoom are answered from local
state, and 'fire' feeds inbound events as a browser would.`,
		Example: `  leafmap console
  leafmap console --load examples/london.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := app.Logger()

			opts := append(append([]leafmap.Option{}, app.SessionOptions()...), leafmap.WithID(id), leafmap.WithLogger(logger))
			sess, err := leafmap.New(opts...)
			if err != nil {
				return err
			}
			defer sess.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "leafmap> ",
				HistoryFile:     history,
				AutoComplete:    completer(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("initializing readline: %w", err)
			}
			defer rl.Close()

			c, err := New(ctx, sess, rl.Stdout(), logger)
			if err != nil {
				return err
			}
			if load != "" {
				if err := c.Load(ctx, load); err != nil {
					return err
				}
			}

			fmt.Fprintln(rl.Stdout(), "Session "+sess.ID()+" ready. Use 'help' for the list of commands.")
			for {
				line, err := rl.Readline()
				if stderrors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if stderrors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := c.Exec(ctx, strings.TrimSpace(line)); err != nil {
					if stderrors.Is(err, ErrQuit) {
						return nil
					}
					fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&load, "load", "", "map definition (YAML) to apply at start")
	cmd.Flags().StringVar(&id, "id", "console", "session id")
	cmd.Flags().StringVar(&history, "history", defaultHistoryFile(), "history file")
	return cmd
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".leafmap_history")
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandHelp))
	for name := range commandHelp {
		switch name {
		case "help":
			var sub []readline.PrefixCompleterInterface
			for n := range commandHelp {
				sub = append(sub, readline.PcItem(n))
			}
			items = append(items, readline.PcItem(name, sub...))
		case "load":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(yamlFiles)))
		case "snapshot":
			items = append(items, readline.PcItem(name,
				readline.PcItem("yaml"), readline.PcItem("json"), readline.PcItem("table")))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func yamlFiles(string) []string {
	var out []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, _ := filepath.Glob(pattern)
		out = append(out, matches...)
	}
	return out
}
