package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/hdl-ift/internal/batch"
)

// analysisProgress shows a progress bar while the modules of one design are reviewed.
type analysisProgress struct {
	w     io.Writer
	quiet bool
	bar   *progressbar.ProgressBar
}

func newAnalysisProgress(w io.Writer, quiet bool) *analysisProgress {
	return &analysisProgress{w: w, quiet: quiet}
}

func (p *analysisProgress) OnAnalysisStart(totalModules int) {
	if p.quiet {
		return
	}
	p.bar = progressbar.NewOptions(totalModules,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Analyzing modules"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *analysisProgress) OnModuleAnalyzed(done, total int, module string) {
	if p.quiet || p.bar == nil {
		return
	}
	p.bar.Describe("Analyzing " + module)
	_ = p.bar.Set(done)
}

func (p *analysisProgress) OnSummaryStart() {
	if p.quiet {
		return
	}
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintln(p.w, "Requesting final summary...")
}

func (p *analysisProgress) OnAnalysisComplete(duration time.Duration) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "✓ Review finished in %.1fs\n", duration.Seconds())
}

// batchProgress tracks completed designs. Designs may finish concurrently.
type batchProgress struct {
	w      io.Writer
	quiet  bool
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

func newBatchProgress(w io.Writer, quiet bool) *batchProgress {
	return &batchProgress{w: w, quiet: quiet}
}

func (p *batchProgress) OnDesignStart(index, total int, spec batch.DesignSpec) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("Analyzing designs"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("designs/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.w)
			}),
		)
	}
}

func (p *batchProgress) OnDesignComplete(done, total int, result *batch.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !result.Success {
		p.failed++
	}
	if p.quiet || p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("Analyzing designs (%d failed)", p.failed))
	_ = p.bar.Add(1)
}

// Failed returns how many designs failed so far.
func (p *batchProgress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
