package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/batch"
)

var (
	batchFile        string
	batchOutput      string
	batchConcurrency int
	batchNoContexts  bool
	batchQuiet       bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Review every design listed in a batch file",
	Long: `Analyze a list of designs and report prediction accuracy against their labels.

The batch file (YAML or JSON) lists the designs and may override the LLM
settings for the whole batch:

  llm:
    provider: openrouter
    model: openai/gpt-4o
  designs:
    - folder: designs/aes
      top_module: aes_top
      label: true
    - folder: designs/uart
      top_module: uart_top

The output directory receives one <folder>.json per successful design,
contexts/<folder>/ with per-module contexts and summary.json. Every run is
recorded in the results database.

Example:
  hdlift batch -c designs.yml -o batch_results --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "config", "c", "", "batch file listing the designs (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "results directory (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "designs analyzed at once (default from config)")
	batchCmd.Flags().BoolVar(&batchNoContexts, "no-contexts", false, "do not save per-module contexts")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "suppress progress output")
	_ = batchCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := batch.LoadFile(batchFile)
	if err != nil {
		return err
	}
	cfg.LLM = f.LLM.Apply(cfg.LLM)

	resultsDir := cfg.Batch.ResultsDir
	if batchOutput != "" {
		resultsDir = batchOutput
	}
	concurrency := cfg.Batch.Concurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}

	gen, err := analyzer.NewOpenAIGenerator(cfg.GeneratorConfig())
	if err != nil {
		return err
	}

	opts := []batch.Option{
		batch.WithConcurrency(concurrency),
		batch.WithContexts(!batchNoContexts),
		batch.WithLogger(logger),
	}

	progress := newBatchProgress(os.Stderr, batchQuiet)
	opts = append(opts, batch.WithReporter(progress))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, batch.WithRecorder(store))
	}

	ctx, stop := signalContext()
	defer stop()

	// Per-module progress bars would interleave between designs
	runner := batch.NewRunner(newPreparer(cfg), newAnalyzerFactory(cfg, gen, nil), opts...)
	summary, err := runner.Run(ctx, f, resultsDir)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	renderSummary(cmd.OutOrStdout(), summary)
	fmt.Fprintf(cmd.OutOrStdout(), "\nResults written to %s\n", filepath.Join(resultsDir, batch.SummaryFileName))
	return nil
}
