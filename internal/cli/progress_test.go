package cli

// Test Plan for progress reporting:
// - quiet reporters write nothing
// - analysisProgress prints the summary notice and the completion line
// - batchProgress counts failed designs, also from concurrent callers

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mvp-joe/hdl-ift/internal/batch"
)

// syncBuffer is a bytes.Buffer safe for the progress bar's writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAnalysisProgress_Quiet(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	p := newAnalysisProgress(&buf, true)
	p.OnAnalysisStart(2)
	p.OnModuleAnalyzed(1, 2, "a")
	p.OnModuleAnalyzed(2, 2, "b")
	p.OnSummaryStart()
	p.OnAnalysisComplete(time.Second)

	assert.Empty(t, buf.String())
}

func TestAnalysisProgress_Output(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	p := newAnalysisProgress(&buf, false)
	p.OnAnalysisStart(2)
	p.OnModuleAnalyzed(1, 2, "a")
	p.OnModuleAnalyzed(2, 2, "b")
	p.OnSummaryStart()
	p.OnAnalysisComplete(1500 * time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Requesting final summary...")
	assert.Contains(t, out, "✓ Review finished in 1.5s")
	assert.Nil(t, p.bar)
}

func TestBatchProgress_CountsFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		quiet bool
	}{
		{"quiet", true},
		{"bar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf syncBuffer
			p := newBatchProgress(&buf, tt.quiet)

			const total = 10
			var wg sync.WaitGroup
			for i := 0; i < total; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					p.OnDesignStart(i+1, total, batch.DesignSpec{Folder: "d", TopModule: "top"})
					p.OnDesignComplete(i+1, total, &batch.Result{Success: i%2 == 0})
				}(i)
			}
			wg.Wait()

			assert.Equal(t, total/2, p.Failed())
			if tt.quiet {
				assert.Empty(t, buf.String())
			}
		})
	}
}
