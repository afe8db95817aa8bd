package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// Test Plan for Analyzer.Run:
// - One priming call, one call per module, one summary call
// - Priming exchange is replayed in front of every later request
// - Ancestor context comes from modules analyzed earlier in the same run
// - Context files are written per module
// - Verdict is parsed from the summary; unparseable summaries keep the raw text
// - Generator errors abort the run
// - Progress reporter sees every module

const verdictJSON = `{"is_vulnerable": true, "vulnerable_modules": ["sub2"], "leakage_path": ["Step 1: top.key --> sub2.out"], "leakage_type": "key leak", "explanation": "key reaches output"}`

type fakeGenerator struct {
	mu      sync.Mutex
	calls   [][]Message
	summary string
	failOn  string
}

func (f *fakeGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]Message(nil), messages...))

	last := messages[len(messages)-1].Content
	if f.failOn != "" && strings.Contains(last, f.failOn) {
		return "", errors.New("service unavailable")
	}
	switch {
	case strings.Contains(last, "Store this context"):
		return "Understood.", nil
	case strings.Contains(last, "final** analysis"):
		return "Here is the result:\n" + f.summary + "\nDone.", nil
	default:
		name := between(last, "**Module Name**: ", "\n")
		return "findings for " + name, nil
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		return rest[:j]
	}
	return rest
}

type recordingProgress struct {
	started  int
	modules  []string
	summary  bool
	finished bool
}

func (r *recordingProgress) OnAnalysisStart(total int) { r.started = total }
func (r *recordingProgress) OnModuleAnalyzed(done, total int, module string) {
	r.modules = append(r.modules, module)
}
func (r *recordingProgress) OnSummaryStart()                  { r.summary = true }
func (r *recordingProgress) OnAnalysisComplete(time.Duration) { r.finished = true }

func testDesign() *design.Design {
	edges := []hierarchy.Edge{
		{Parent: "top", Child: "sub1"},
		{Parent: "top", Child: "sub2"},
		{Parent: "sub2", Child: "sub1"},
	}
	adj := graph.Build(edges, []string{"top", "sub1", "sub2"})
	return &design.Design{
		Top:       "top",
		Order:     []string{"sub1", "sub2", "top"},
		Adjacency: adj,
		Edges:     edges,
		Records: []design.ModuleRecord{
			{Name: "sub1", Dependencies: []string{}, Text: "module sub1; endmodule"},
			{Name: "sub2", Dependencies: []string{"sub1"}, Text: "module sub2; sub1 u(); endmodule"},
			{Name: "top", Dependencies: []string{"sub1", "sub2"}, Text: "module top; sub1 a(); sub2 b(); endmodule"},
		},
	}
}

func TestRun_CallSequence(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{summary: verdictJSON}
	progress := &recordingProgress{}

	report, err := New(gen, WithProgress(progress)).Run(context.Background(), testDesign())
	require.NoError(t, err)

	require.Len(t, gen.calls, 5)

	priming := gen.calls[0]
	require.Len(t, priming, 2)
	assert.Equal(t, RoleSystem, priming[0].Role)
	assert.Contains(t, priming[1].Content, `["sub1","sub2","top"]`)
	assert.Contains(t, priming[1].Content, `{"top":["sub1","sub2"],"sub1":[],"sub2":["sub1"]}`)

	for _, call := range gen.calls[1:] {
		require.Len(t, call, 5)
		assert.Equal(t, priming, call[:2])
		assert.Equal(t, Message{Role: RoleAssistant, Content: "Understood."}, call[2])
	}

	assert.Contains(t, gen.calls[1][4].Content, "**Module Name**: sub1")
	assert.Contains(t, gen.calls[1][4].Content, `["top","sub2","top"]`)
	assert.Contains(t, gen.calls[1][4].Content, NoAncestorContext)

	summary := gen.calls[4][4].Content
	assert.Contains(t, summary, "Module: sub1\nResponse:\nfindings for sub1")
	assert.Contains(t, summary, "Module: top\nResponse:\nfindings for top")

	require.Len(t, report.Modules, 3)
	assert.Equal(t, "findings for sub2", report.Modules[1].Response)
	assert.Equal(t, []string{"top"}, report.Modules[1].Ancestors)

	require.NotNil(t, report.Verdict)
	assert.True(t, report.Verdict.IsVulnerable)
	assert.Equal(t, []string{"sub2"}, report.Verdict.VulnerableModules)
	assert.Empty(t, report.Err)

	assert.Equal(t, 3, progress.started)
	assert.Equal(t, []string{"sub1", "sub2", "top"}, progress.modules)
	assert.True(t, progress.summary)
	assert.True(t, progress.finished)
}

func TestRun_TopDownCarriesAncestorContext(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{summary: verdictJSON}

	report, err := New(gen, WithTraversal(TopDown)).Run(context.Background(), testDesign())
	require.NoError(t, err)

	names := []string{}
	for _, m := range report.Modules {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"top", "sub2", "sub1"}, names)

	sub1Prompt := gen.calls[3][4].Content
	assert.Contains(t, sub1Prompt, "Context of module top:\nfindings for top")
	assert.Contains(t, sub1Prompt, "Context of module sub2:\nfindings for sub2")
	assert.NotContains(t, sub1Prompt, NoAncestorContext)
}

func TestRun_FirstPathPolicy(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{summary: verdictJSON}

	report, err := New(gen, WithAncestorPolicy(graph.FirstPath)).Run(context.Background(), testDesign())
	require.NoError(t, err)
	assert.Equal(t, []string{"top"}, report.Modules[0].Ancestors)
}

func TestRun_SavesContexts(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "contexts")
	_, err := New(&fakeGenerator{summary: verdictJSON}, WithContextDir(dir)).Run(context.Background(), testDesign())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sub2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Context of module sub2:\nfindings for sub2\n", string(data))
}

func TestRun_UnparseableSummary(t *testing.T) {
	t.Parallel()

	report, err := New(&fakeGenerator{summary: "no json at all"}).Run(context.Background(), testDesign())
	require.NoError(t, err)
	assert.Nil(t, report.Verdict)
	assert.NotEmpty(t, report.Err)
	assert.Contains(t, report.Summary, "no json at all")
}

func TestRun_GeneratorError(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{summary: verdictJSON, failOn: "**Module Name**: sub2"}

	_, err := New(gen).Run(context.Background(), testDesign())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub2")
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeGenerator{summary: verdictJSON}).Run(ctx, testDesign())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "top.txt", ContextFileName("top"))
	assert.Equal(t, "$paramod_fifo_DEPTH=16.txt", ContextFileName(`$paramod\fifo\DEPTH=16`))
	assert.Equal(t, "a_b.txt", ContextFileName("a/b"))
}
