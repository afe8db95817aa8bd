package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/batch"
)

var (
	analyzeLabel  string
	analyzeOutput string
	analyzeQuiet  bool
)

// analyzeOutputFile is the document written by --output.
type analyzeOutputFile struct {
	Folder          string              `json:"folder"`
	TopModule       string              `json:"top_module"`
	ActualLabel     *bool               `json:"actual_label"`
	Modules         []string            `json:"modules"`
	Dependencies    map[string][]string `json:"dependencies"`
	AnalysisResults *batch.Result       `json:"analysis_results"`
	Report          *analyzer.Report    `json:"report,omitempty"`
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <folder> <top-module>",
	Short: "Review one design for information leakage",
	Long: `Prepare a design and review it module by module with the configured LLM,
then ask for a final verdict on whether the design leaks information.

Modules are reviewed in dependency order. Each request carries the module's
code, its dependencies and the findings for its ancestors. The run is recorded
in the results database unless storage.results_db is empty.

Provider keys are read from the environment (AZURE_OPENAI_API_KEY,
OPENROUTER_API_KEY or OPENAI_API_KEY) or a .env file.

Example:
  hdlift analyze designs/aes aes_top --label true --output aes.json`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLabel, "label", "", "expected verdict (true if the design is known to leak)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the full result to this JSON file")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	spec := batch.DesignSpec{Folder: args[0], TopModule: args[1]}
	if analyzeLabel != "" {
		label, err := strconv.ParseBool(analyzeLabel)
		if err != nil {
			return fmt.Errorf("invalid --label %q: %w", analyzeLabel, err)
		}
		spec.Label = &label
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gen, err := analyzer.NewOpenAIGenerator(cfg.GeneratorConfig())
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signalContext()
	defer stop()

	w := cmd.OutOrStdout()
	progress := newAnalysisProgress(os.Stderr, analyzeQuiet)
	runner := batch.NewRunner(newPreparer(cfg), newAnalyzerFactory(cfg, gen, progress), batch.WithLogger(logger))

	out := runner.Analyze(ctx, spec, cfg.ContextDir())
	if err := ctx.Err(); err != nil {
		return err
	}

	if out.Design != nil && !analyzeQuiet {
		renderDesign(w, out.Design)
	}

	if store != nil {
		recordOutcome(ctx, store, out)
	}

	renderResult(w, &out.Result)

	if analyzeOutput != "" {
		if err := writeAnalyzeOutput(analyzeOutput, out); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nResults written to %s\n", analyzeOutput)
	}

	if !out.Result.Success {
		return fmt.Errorf("analysis of %s failed", spec.Folder)
	}
	return nil
}

// recordOutcome stores the run. Failing to record does not fail the analysis.
func recordOutcome(ctx context.Context, rec batch.RunRecorder, out *batch.Outcome) {
	id, err := rec.RecordRun(ctx, out.StorageRun())
	if err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}
	out.Result.RunID = id
}

func writeAnalyzeOutput(path string, out *batch.Outcome) error {
	doc := analyzeOutputFile{
		Folder:          out.Result.Folder,
		TopModule:       out.Result.TopModule,
		ActualLabel:     out.Result.ActualLabel,
		Modules:         out.Result.Modules,
		AnalysisResults: &out.Result,
		Report:          out.Report,
	}
	if out.Design != nil && out.Design.Adjacency != nil {
		doc.Dependencies = out.Design.Adjacency.Map()
	}
	return batch.WriteJSON(path, doc)
}
