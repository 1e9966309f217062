// Package cmd provides the CLI commands for textindex.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/shell"
)

type rootOptions struct {
	configPath string
	watch      bool
}

// NewRootCmd creates the root command. Without a subcommand it starts the
// interactive shell.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "textindex",
		Short: "In-memory full-text index over local text files",
		Long: `textindex builds an inverted index of the text files you point it at
and answers single-word queries against it.

Run it without arguments to start the interactive shell.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.watch, "watch", false, "Re-index files when they change on disk")

	cmd.AddCommand(newSearchCmd(opts))
	return cmd
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func runShell(cmd *cobra.Command, opts *rootOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a, err := newApp(ctx, opts.configPath, opts.watch)
	if err != nil {
		return err
	}
	defer a.close()
	defer cancel()
	a.start(ctx)

	shellOpts := []shell.Option{shell.WithInteractive(isTerminal(cmd.InOrStdin()))}
	if a.watcher != nil {
		shellOpts = append(shellOpts, shell.WithWatcher(a.watcher))
	}
	sh, err := shell.New(a.indexer, a.src, cmd.InOrStdin(), cmd.OutOrStdout(), shellOpts...)
	if err != nil {
		return err
	}
	return sh.Run(ctx)
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
