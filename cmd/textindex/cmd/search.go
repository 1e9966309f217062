package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "search <word> <path>...",
		Short: "Index the given paths once and print the files containing word",
		Long: `Search indexes every text file under the given paths as one batch,
prints the files that contain word (one per line, sorted) and exits.

Examples:
  textindex search hello ./notes
  textindex search -r todo ~/projects`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, args[0], args[1:], recursive)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, word string, paths []string, recursive bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a, err := newApp(ctx, root.configPath, false)
	if err != nil {
		return err
	}
	defer a.close()
	defer cancel()
	a.start(ctx)

	var files []string
	for _, p := range paths {
		found, err := a.src.Enumerate(ctx, p, recursive)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if err := a.indexer.IndexFiles(ctx, files...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range a.indexer.Search(word) {
		fmt.Fprintln(out, f)
	}
	return nil
}
