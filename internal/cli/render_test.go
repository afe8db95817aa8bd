package cli

// Test Plan for output rendering:
// - renderDesign lists modules in order with their dependencies
// - renderDesign warns about flat, cyclic and missing modules
// - renderChanges reports added, removed and unchanged module sets
// - renderSpans prints line ranges and handles sources without modules
// - lineOf counts lines from byte offsets
// - renderAncestors handles empty and non-empty chains
// - renderResult prints verdicts, labels and failures with raw output
// - renderSummary prints totals and accuracy
// - renderRuns and renderRun format recorded runs and the accuracy footer
// - formatBool and shortID helpers

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mvp-joe/hdl-ift/internal/batch"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

func boolRef(b bool) *bool { return &b }

func testDesign() *design.Design {
	edges := []hierarchy.Edge{
		{Parent: "top", Child: "alu"},
		{Parent: "top", Child: "regfile"},
	}
	modules := []string{"top", "alu", "regfile"}
	return &design.Design{
		Top:       "top",
		Order:     []string{"alu", "regfile", "top"},
		Adjacency: graph.Build(edges, modules),
		Edges:     edges,
	}
}

func TestRenderDesign(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderDesign(&buf, testDesign())
	out := buf.String()

	assert.Contains(t, out, "Top module: top")
	assert.Contains(t, out, "Modules (3, dependencies first):")
	assert.Contains(t, out, "  1. alu -> []\n")
	assert.Contains(t, out, "  2. regfile -> []\n")
	assert.Contains(t, out, "  3. top -> [alu, regfile]\n")
	assert.NotContains(t, out, "Warning")
}

func TestRenderDesign_Warnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(d *design.Design)
		want   string
	}{
		{
			name:   "flat",
			modify: func(d *design.Design) { d.Flat = true },
			want:   "No hierarchy reported",
		},
		{
			name:   "cyclic",
			modify: func(d *design.Design) { d.Cyclic = true },
			want:   "module hierarchy is cyclic",
		},
		{
			name:   "missing",
			modify: func(d *design.Design) { d.Missing = []string{"alu", "regfile"} },
			want:   "could not extract code for: alu, regfile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := testDesign()
			tt.modify(d)

			var buf bytes.Buffer
			renderDesign(&buf, d)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestRenderChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		changes graph.ModuleChanges
		want    []string
		notWant []string
	}{
		{
			name:    "unchanged",
			changes: graph.ModuleChanges{},
			want:    []string{"Module set unchanged since the last save"},
		},
		{
			name:    "added only",
			changes: graph.ModuleChanges{Added: []string{"fifo", "uart"}},
			want:    []string{"Added since the last save:   fifo, uart"},
			notWant: []string{"Removed"},
		},
		{
			name:    "both",
			changes: graph.ModuleChanges{Added: []string{"fifo"}, Removed: []string{"alu"}},
			want:    []string{"Added since the last save:   fifo", "Removed since the last save: alu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			renderChanges(&buf, tt.changes)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, buf.String(), w)
			}
		})
	}
}

func TestRenderSpans(t *testing.T) {
	t.Parallel()

	source := "// header\nmodule a;\nendmodule\n\nmodule b(input x);\n  wire y;\nendmodule\n"
	spans := extract.New(extract.Boundary).Scan(source)

	var buf bytes.Buffer
	renderSpans(&buf, source, spans)
	out := buf.String()

	assert.Contains(t, out, "lines 2-3")
	assert.Contains(t, out, "lines 5-7")
}

func TestRenderSpans_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderSpans(&buf, "wire x;\n", nil)
	assert.Equal(t, "No module definitions found\n", buf.String())
}

func TestLineOf(t *testing.T) {
	t.Parallel()

	source := "ab\ncd\nef"
	tests := []struct {
		pos  int
		want int
	}{
		{0, 1},
		{2, 1},
		{3, 2},
		{6, 3},
		{100, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lineOf(source, tt.pos), "pos %d", tt.pos)
	}
}

func TestRenderAncestors(t *testing.T) {
	t.Parallel()

	t.Run("chain", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		renderAncestors(&buf, "alu", []string{"core", "top"})
		assert.Equal(t, "Ancestors of alu (nearest first):\n  1. core\n  2. top\n", buf.String())
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		renderAncestors(&buf, "top", nil)
		assert.Equal(t, "top has no ancestors\n", buf.String())
	})
}

func TestRenderResult_Success(t *testing.T) {
	t.Parallel()

	r := &batch.Result{
		Success:           true,
		PredictedLabel:    boolRef(true),
		ActualLabel:       boolRef(false),
		Correct:           boolRef(false),
		VulnerableModules: []string{"key_reg"},
		LeakageType:       "timing",
		DurationSeconds:   12.34,
	}

	var buf bytes.Buffer
	renderResult(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "✓ Analysis complete")
	assert.Contains(t, out, "Vulnerable:         yes")
	assert.Contains(t, out, "Vulnerable modules: key_reg")
	assert.Contains(t, out, "Leakage type:       timing")
	assert.Contains(t, out, "Expected:           no")
	assert.Contains(t, out, "Correct:            no")
	assert.Contains(t, out, "Duration:           12.3s")
}

func TestRenderResult_Unlabeled(t *testing.T) {
	t.Parallel()

	r := &batch.Result{Success: true, PredictedLabel: boolRef(false)}

	var buf bytes.Buffer
	renderResult(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Vulnerable:         no")
	assert.NotContains(t, out, "Expected")
	assert.NotContains(t, out, "Leakage type")
}

func TestRenderResult_Failure(t *testing.T) {
	t.Parallel()

	r := &batch.Result{Error: "could not parse results", RawOutput: "no json here"}

	var buf bytes.Buffer
	renderResult(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "✗ Analysis failed: could not parse results")
	assert.Contains(t, out, "Raw output:\nno json here")
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	s := batch.Summarize("b1", []batch.Result{
		{Success: true, Correct: boolRef(true)},
		{Success: true, Correct: boolRef(false)},
		{Success: false},
	})

	var buf bytes.Buffer
	renderSummary(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "✓ Batch complete: 3 designs")
	assert.Contains(t, out, "Successful:          2")
	assert.Contains(t, out, "Failed:              1")
	assert.Contains(t, out, "Correct predictions: 1 of 2 labeled")
	assert.Contains(t, out, "Accuracy:            50.00%")
}

func TestRenderRuns(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*storage.Run{
		{
			ID:        "0123456789abcdef",
			Folder:    "designs/aes",
			TopModule: "aes_top",
			StartedAt: started,
			Success:   true,
			Predicted: boolRef(true),
			Actual:    boolRef(true),
		},
		{
			ID:        "fedcba9876543210",
			Folder:    "designs/uart",
			TopModule: "uart_top",
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	renderRuns(&buf, runs, storage.Accuracy{Labeled: 3, Correct: 2})
	out := buf.String()

	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "designs/aes (aes_top)")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "predicted=yes")
	assert.Contains(t, out, "predicted=-")
	assert.Contains(t, out, "Accuracy: 66.67% (2 of 3 labeled runs)")
}

func TestRenderRuns_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderRuns(&buf, nil, storage.Accuracy{})
	out := buf.String()

	assert.Contains(t, out, "No runs recorded")
	assert.Contains(t, out, "Accuracy: 0.00% (0 of 0 labeled runs)")
}

func TestRenderRun(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &storage.Run{
		ID:          "run-1",
		Folder:      "designs/aes",
		TopModule:   "aes_top",
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Success:     true,
		Predicted:   boolRef(true),
		LeakageType: "power",
		Modules: []storage.RunModule{
			{Position: 0, Name: "sbox", Dependencies: []string{}},
			{Position: 1, Name: "aes_top", Dependencies: []string{"sbox"}},
		},
	}

	var buf bytes.Buffer
	renderRun(&buf, run)
	out := buf.String()

	assert.Contains(t, out, "Run:      run-1")
	assert.Contains(t, out, "Duration: 90.0s")
	assert.Contains(t, out, "predicted=yes actual=- correct=-")
	assert.Contains(t, out, "Leakage:  power")
	assert.Contains(t, out, "  1. sbox -> []")
	assert.Contains(t, out, "  2. aes_top -> [sbox]")
}

func TestRenderRun_Failed(t *testing.T) {
	t.Parallel()

	run := &storage.Run{ID: "run-2", Error: "could not extract module hierarchy: boom"}

	var buf bytes.Buffer
	renderRun(&buf, run)
	out := buf.String()

	assert.Contains(t, out, "Error:    could not extract module hierarchy: boom")
	assert.NotContains(t, out, "Modules:")
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatBool(nil))
	assert.Equal(t, "yes", formatBool(boolRef(true)))
	assert.Equal(t, "no", formatBool(boolRef(false)))

	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))

	assert.Equal(t, "[]", formatList(nil))
	assert.Equal(t, "[a, b]", formatList([]string{"a", "b"}))
}
