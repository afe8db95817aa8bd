package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/storage"
)

var (
	runsFolder string
	runsLimit  int
	runsID     string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	Long: `List the analysis runs recorded in the results database, newest first,
followed by the accuracy over every labeled run.

Example:
  hdlift runs --folder designs/aes --limit 10
  hdlift runs --id 3f2a9c1e-...`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsFolder, "folder", "", "only runs of this design folder")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs (0 for all)")
	runsCmd.Flags().StringVar(&runsID, "id", "", "show one run in full")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("run recording is disabled (storage.results_db is empty)")
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if runsID != "" {
		run, err := store.GetRun(ctx, runsID)
		if err != nil {
			return err
		}
		renderRun(w, run)
		return nil
	}

	runs, err := store.ListRuns(ctx, storage.ListOptions{Folder: runsFolder, Limit: runsLimit})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	acc, err := store.Accuracy(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute accuracy: %w", err)
	}
	renderRuns(w, runs, acc)
	return nil
}
