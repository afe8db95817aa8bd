package batch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

// SummaryFileName is written at the root of the results directory.
const SummaryFileName = "summary.json"

// DesignPreparer turns a design folder into ordered module records.
type DesignPreparer interface {
	Prepare(ctx context.Context, in design.Input) (*design.Design, error)
}

// DesignAnalyzer runs the leakage review of one prepared design.
type DesignAnalyzer interface {
	Run(ctx context.Context, d *design.Design) (*analyzer.Report, error)
}

// AnalyzerFactory builds an analyzer whose contexts go to contextDir ("" for none).
type AnalyzerFactory func(contextDir string) DesignAnalyzer

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *storage.Run) (string, error)
}

// Reporter receives batch progress. Calls may come from several goroutines.
type Reporter interface {
	OnDesignStart(index, total int, spec DesignSpec)
	OnDesignComplete(done, total int, result *Result)
}

// Runner analyzes designs one by one or as a batch.
type Runner struct {
	preparer    DesignPreparer
	newAnalyzer AnalyzerFactory
	recorder    RunRecorder
	reporter    Reporter
	concurrency int
	contexts    bool
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder stores every run.
func WithRecorder(r RunRecorder) Option {
	return func(b *Runner) { b.recorder = r }
}

// WithReporter sets the progress receiver.
func WithReporter(r Reporter) Option {
	return func(b *Runner) { b.reporter = r }
}

// WithConcurrency bounds how many designs run at once. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(b *Runner) { b.concurrency = n }
}

// WithContexts turns per-design context files on or off.
func WithContexts(save bool) Option {
	return func(b *Runner) { b.contexts = save }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Runner) { b.logger = l }
}

// NewRunner creates a Runner. Contexts are saved by default.
func NewRunner(preparer DesignPreparer, newAnalyzer AnalyzerFactory, opts ...Option) *Runner {
	r := &Runner{
		preparer:    preparer,
		newAnalyzer: newAnalyzer,
		concurrency: 1,
		contexts:    true,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Analyze prepares and reviews one design. Failures are reported in the Result,
// never returned, so one broken design does not stop a batch.
func (r *Runner) Analyze(ctx context.Context, spec DesignSpec, contextDir string) *Outcome {
	start := r.now()
	out := &Outcome{Result: Result{
		Folder:      spec.Folder,
		TopModule:   spec.TopModule,
		ActualLabel: spec.Label,
		StartedAt:   start.UTC(),
	}}
	defer func() {
		out.Result.DurationSeconds = r.now().Sub(start).Seconds()
	}()

	log := r.logger.With("folder", spec.Folder, "top", spec.TopModule)

	d, err := r.preparer.Prepare(ctx, design.Input{Dir: spec.Folder, Top: spec.TopModule})
	if err != nil {
		log.Warn("design preparation failed", "error", err)
		out.Result.Error = "could not extract module hierarchy: " + err.Error()
		return out
	}
	out.Design = d
	out.Result.Modules = d.Order
	out.Result.Flat = d.Flat
	out.Result.Cyclic = d.Cyclic

	if len(d.Records) == 0 {
		out.Result.Error = "no module text could be extracted"
		return out
	}

	report, err := r.newAnalyzer(contextDir).Run(ctx, d)
	if err != nil {
		log.Warn("analysis failed", "error", err)
		out.Result.Error = err.Error()
		return out
	}
	out.Report = report

	if report.Verdict == nil {
		out.Result.Error = "could not parse results"
		out.Result.RawOutput = report.Summary
		return out
	}

	predicted := report.Verdict.IsVulnerable
	out.Result.PredictedLabel = &predicted
	out.Result.VulnerableModules = report.Verdict.VulnerableModules
	out.Result.LeakageType = report.Verdict.LeakageType
	out.Result.Success = true
	if spec.Label != nil {
		correct := predicted == *spec.Label
		out.Result.Correct = &correct
	}
	return out
}

// Run analyzes every design of f, writes one JSON file per design plus the summary
// into resultsDir and records each run. Only cancellation and summary write failures
// are returned as errors.
func (r *Runner) Run(ctx context.Context, f *File, resultsDir string) (*Summary, error) {
	total := len(f.Designs)
	results := make([]Result, total)
	names := ResultNames(f.Designs)
	batchID := uuid.New().String()

	r.logger.Info("starting batch", "batch_id", batchID, "designs", total, "concurrency", r.concurrency)

	var completed atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, spec := range f.Designs {
		i, spec := i, spec // Capture loop variables

		g.Go(func() error {
			if r.reporter != nil {
				r.reporter.OnDesignStart(i+1, total, spec)
			}

			name := names[i]
			contextDir := ""
			if r.contexts {
				contextDir = filepath.Join(resultsDir, "contexts", name)
			}

			out := r.Analyze(gCtx, spec, contextDir)
			if r.recorder != nil {
				id, err := r.recorder.RecordRun(gCtx, out.StorageRun())
				if err != nil {
					r.logger.Warn("failed to record run", "folder", spec.Folder, "error", err)
				} else {
					out.Result.RunID = id
				}
			}

			if out.Result.Success {
				if err := WriteJSON(filepath.Join(resultsDir, name+".json"), out.File()); err != nil {
					r.logger.Warn("failed to write design result", "folder", spec.Folder, "error", err)
				}
			}

			results[i] = out.Result
			n := int(completed.Add(1))
			if r.reporter != nil {
				r.reporter.OnDesignComplete(n, total, &results[i])
			}
			return nil // Design failures live in the Result
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(batchID, results)
	if err := WriteJSON(filepath.Join(resultsDir, SummaryFileName), summary); err != nil {
		return summary, err
	}
	r.logger.Info("batch complete",
		"batch_id", batchID,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"accuracy", summary.Accuracy)
	return summary, nil
}
