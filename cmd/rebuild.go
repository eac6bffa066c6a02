package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Clone the repository and index every unit from scratch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := newIndexer(progressPrinter())
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Rebuilding knowledge of %s...\n", cfg.RepoURL)
		res, err := idx.Rebuild(ctx)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [commit]",
	Short: "Pull the latest changes and re-enrich only what changed",
	Long: "Pull the latest changes and re-enrich only what changed. When commit is\n" +
		"given and already recorded in the store, nothing is fetched.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := newIndexer(progressPrinter())
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		var commit string
		if len(args) == 1 {
			commit = args[0]
		}
		res, err := idx.Sync(ctx, commit)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd, syncCmd)
}
