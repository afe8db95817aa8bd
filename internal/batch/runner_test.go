package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

// Test Plan for batch Runner:
// - Analyze fills predicted label, correctness and verdict fields on success
// - Analyze reports preparation, analysis and verdict parse failures in the Result
// - Run writes one file per successful design and summary.json
// - Run records every design in the results store with its module order
// - Run gives each design its own context directory
// - Two tops of one folder get separate result files and context directories
// - Run respects the concurrency bound
// - Summarize computes accuracy over successful labeled designs
// - A cancelled context aborts the batch

type fakePreparer struct {
	designs map[string]*design.Design
}

func (f *fakePreparer) Prepare(ctx context.Context, in design.Input) (*design.Design, error) {
	d, ok := f.designs[in.Dir]
	if !ok {
		return nil, errors.New("yosys exited with status 1")
	}
	return d, nil
}

type fakeAnalyzer struct {
	report *analyzer.Report
	err    error
	onRun  func()
}

func (f *fakeAnalyzer) Run(ctx context.Context, d *design.Design) (*analyzer.Report, error) {
	if f.onRun != nil {
		f.onRun()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.report, f.err
}

func testDesign(top string) *design.Design {
	edges := []hierarchy.Edge{{Parent: top, Child: "core"}}
	modules := []string{top, "core"}
	return &design.Design{
		Top:       top,
		Order:     []string{"core", top},
		Adjacency: graph.Build(edges, modules),
		Edges:     edges,
		Records: []design.ModuleRecord{
			{Name: "core", Dependencies: []string{}, Text: "module core; endmodule"},
			{Name: top, Dependencies: []string{"core"}, Text: "module " + top + "; core u(); endmodule"},
		},
	}
}

func vulnerableReport() *analyzer.Report {
	return &analyzer.Report{
		Summary: `{"is_vulnerable": true}`,
		Verdict: &analyzer.Verdict{
			IsVulnerable:      true,
			VulnerableModules: []string{"core"},
			LeakagePath:       []string{"key -> core -> out"},
			LeakageType:       "direct",
			Explanation:       "key reaches out",
		},
	}
}

func boolp(b bool) *bool { return &b }

func staticFactory(a DesignAnalyzer) AnalyzerFactory {
	return func(string) DesignAnalyzer { return a }
}

func TestRunner_Analyze(t *testing.T) {
	t.Parallel()

	prep := &fakePreparer{designs: map[string]*design.Design{
		"designs/aes":   testDesign("aes_top"),
		"designs/empty": {Top: "empty", Order: []string{"empty"}, Adjacency: graph.NewAdjacency()},
	}}

	tests := []struct {
		name        string
		spec        DesignSpec
		analyzer    *fakeAnalyzer
		wantSuccess bool
		wantCorrect *bool
		wantError   string
	}{
		{
			name:        "labeled correct",
			spec:        DesignSpec{Folder: "designs/aes", TopModule: "aes_top", Label: boolp(true)},
			analyzer:    &fakeAnalyzer{report: vulnerableReport()},
			wantSuccess: true,
			wantCorrect: boolp(true),
		},
		{
			name:        "labeled incorrect",
			spec:        DesignSpec{Folder: "designs/aes", TopModule: "aes_top", Label: boolp(false)},
			analyzer:    &fakeAnalyzer{report: vulnerableReport()},
			wantSuccess: true,
			wantCorrect: boolp(false),
		},
		{
			name:        "unlabeled",
			spec:        DesignSpec{Folder: "designs/aes", TopModule: "aes_top"},
			analyzer:    &fakeAnalyzer{report: vulnerableReport()},
			wantSuccess: true,
		},
		{
			name:      "preparation failure",
			spec:      DesignSpec{Folder: "designs/missing", TopModule: "top"},
			analyzer:  &fakeAnalyzer{report: vulnerableReport()},
			wantError: "could not extract module hierarchy",
		},
		{
			name:      "no module text",
			spec:      DesignSpec{Folder: "designs/empty", TopModule: "empty"},
			analyzer:  &fakeAnalyzer{report: vulnerableReport()},
			wantError: "no module text",
		},
		{
			name:      "generator failure",
			spec:      DesignSpec{Folder: "designs/aes", TopModule: "aes_top"},
			analyzer:  &fakeAnalyzer{err: errors.New("rate limited")},
			wantError: "rate limited",
		},
		{
			name:      "unparseable verdict",
			spec:      DesignSpec{Folder: "designs/aes", TopModule: "aes_top"},
			analyzer:  &fakeAnalyzer{report: &analyzer.Report{Summary: "no json here"}},
			wantError: "could not parse results",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRunner(prep, staticFactory(tt.analyzer))
			out := r.Analyze(t.Context(), tt.spec, "")

			assert.Equal(t, tt.wantSuccess, out.Result.Success)
			assert.Equal(t, tt.wantCorrect, out.Result.Correct)
			if tt.wantError != "" {
				assert.Contains(t, out.Result.Error, tt.wantError)
				assert.Nil(t, out.Result.PredictedLabel)
				return
			}
			assert.Empty(t, out.Result.Error)
			require.NotNil(t, out.Result.PredictedLabel)
			assert.True(t, *out.Result.PredictedLabel)
			assert.Equal(t, []string{"core", "aes_top"}, out.Result.Modules)
			assert.Equal(t, []string{"core"}, out.Result.VulnerableModules)
			assert.Equal(t, "direct", out.Result.LeakageType)
		})
	}
}

func TestRunner_Analyze_KeepsRawOutput(t *testing.T) {
	t.Parallel()

	prep := &fakePreparer{designs: map[string]*design.Design{"d": testDesign("top")}}
	r := NewRunner(prep, staticFactory(&fakeAnalyzer{report: &analyzer.Report{Summary: "I am not sure."}}))

	out := r.Analyze(t.Context(), DesignSpec{Folder: "d", TopModule: "top"}, "")

	assert.Equal(t, "I am not sure.", out.Result.RawOutput)
	assert.NotNil(t, out.Design)
	assert.NotNil(t, out.Report)
}

func TestRunner_Run_WritesResultsAndRecords(t *testing.T) {
	t.Parallel()

	resultsDir := t.TempDir()
	store := storage.NewStoreWithDB(storage.NewTestDB(t))

	prep := &fakePreparer{designs: map[string]*design.Design{
		"designs/aes":  testDesign("aes_top"),
		"designs/uart": testDesign("uart_top"),
	}}

	var mu sync.Mutex
	contextDirs := []string{}
	factory := func(dir string) DesignAnalyzer {
		mu.Lock()
		contextDirs = append(contextDirs, dir)
		mu.Unlock()
		return &fakeAnalyzer{report: vulnerableReport()}
	}

	f := &File{Designs: []DesignSpec{
		{Folder: "designs/aes", TopModule: "aes_top", Label: boolp(true)},
		{Folder: "designs/uart", TopModule: "uart_top", Label: boolp(false)},
		{Folder: "designs/broken", TopModule: "top", Label: boolp(true)},
	}}

	r := NewRunner(prep, factory, WithRecorder(store), WithConcurrency(2))
	summary, err := r.Run(t.Context(), f, resultsDir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalDesigns)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Labeled)
	assert.Equal(t, 1, summary.CorrectPredictions)
	assert.Equal(t, "50.00%", summary.Accuracy)
	assert.NotEmpty(t, summary.BatchID)

	// Results keep batch file order regardless of completion order
	assert.Equal(t, "designs/aes", summary.Results[0].Folder)
	assert.Equal(t, "designs/broken", summary.Results[2].Folder)

	assert.ElementsMatch(t, []string{
		filepath.Join(resultsDir, "contexts", "designs_aes"),
		filepath.Join(resultsDir, "contexts", "designs_uart"),
	}, contextDirs)

	data, err := os.ReadFile(filepath.Join(resultsDir, "designs_aes.json"))
	require.NoError(t, err)
	var file DesignFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, "aes_top", file.TopModule)
	assert.Equal(t, map[string][]string{"aes_top": {"core"}, "core": {}}, file.Dependencies)
	require.NotNil(t, file.FullAnalysis)
	assert.Equal(t, "direct", file.FullAnalysis.LeakageType)

	assert.NoFileExists(t, filepath.Join(resultsDir, "designs_broken.json"))
	assert.FileExists(t, filepath.Join(resultsDir, SummaryFileName))

	runs, err := store.ListRuns(t.Context(), storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	for _, res := range summary.Results {
		require.NotEmpty(t, res.RunID)
		run, err := store.GetRun(t.Context(), res.RunID)
		require.NoError(t, err)
		assert.Equal(t, res.Success, run.Success)
		if res.Folder == "designs/aes" {
			require.Len(t, run.Modules, 2)
			assert.Equal(t, "core", run.Modules[0].Name)
			assert.Equal(t, []string{"core"}, run.Modules[1].Dependencies)
		}
	}

	acc, err := store.Accuracy(t.Context())
	require.NoError(t, err)
	assert.Equal(t, storage.Accuracy{Labeled: 2, Correct: 1}, acc)
}

func TestRunner_Run_SameFolderTwoTops(t *testing.T) {
	t.Parallel()

	resultsDir := t.TempDir()
	prep := &fakePreparer{designs: map[string]*design.Design{"designs/soc": testDesign("cpu")}}

	var mu sync.Mutex
	contextDirs := []string{}
	factory := func(dir string) DesignAnalyzer {
		mu.Lock()
		contextDirs = append(contextDirs, dir)
		mu.Unlock()
		return &fakeAnalyzer{report: vulnerableReport()}
	}

	f := &File{Designs: []DesignSpec{
		{Folder: "designs/soc", TopModule: "cpu"},
		{Folder: "designs/soc", TopModule: "dma"},
	}}

	r := NewRunner(prep, factory, WithConcurrency(2))
	summary, err := r.Run(t.Context(), f, resultsDir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)

	assert.ElementsMatch(t, []string{
		filepath.Join(resultsDir, "contexts", "designs_soc_cpu"),
		filepath.Join(resultsDir, "contexts", "designs_soc_dma"),
	}, contextDirs)
	assert.FileExists(t, filepath.Join(resultsDir, "designs_soc_cpu.json"))
	assert.FileExists(t, filepath.Join(resultsDir, "designs_soc_dma.json"))
	assert.NoFileExists(t, filepath.Join(resultsDir, "designs_soc.json"))
}

func TestRunner_Run_WithoutContexts(t *testing.T) {
	t.Parallel()

	prep := &fakePreparer{designs: map[string]*design.Design{"d": testDesign("top")}}
	var got []string
	factory := func(dir string) DesignAnalyzer {
		got = append(got, dir)
		return &fakeAnalyzer{report: vulnerableReport()}
	}

	r := NewRunner(prep, factory, WithContexts(false))
	_, err := r.Run(t.Context(), &File{Designs: []DesignSpec{{Folder: "d", TopModule: "top"}}}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{""}, got)
}

func TestRunner_Run_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	designs := map[string]*design.Design{}
	f := &File{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		designs[name] = testDesign("top")
		f.Designs = append(f.Designs, DesignSpec{Folder: name, TopModule: "top"})
	}

	var mu sync.Mutex
	active, peak := 0, 0
	a := &fakeAnalyzer{report: vulnerableReport()}
	a.onRun = func() {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	}

	rep := &recordingReporter{}
	r := NewRunner(&fakePreparer{designs: designs}, staticFactory(a), WithConcurrency(2), WithReporter(rep))
	summary, err := r.Run(t.Context(), f, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Successful)
	assert.LessOrEqual(t, peak, 2)
	assert.Equal(t, 6, rep.started)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, rep.done)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	prep := &fakePreparer{designs: map[string]*design.Design{"d": testDesign("top")}}
	r := NewRunner(prep, staticFactory(&fakeAnalyzer{report: vulnerableReport()}))

	resultsDir := t.TempDir()
	_, err := r.Run(ctx, &File{Designs: []DesignSpec{{Folder: "d", TopModule: "top"}}}, resultsDir)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(resultsDir, SummaryFileName))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize("b1", nil)
	assert.Equal(t, 0, s.TotalDesigns)
	assert.Equal(t, "0.00%", s.Accuracy)
	assert.NotNil(t, s.Results)

	s = Summarize("b2", []Result{
		{Success: true, Correct: boolp(true)},
		{Success: true, Correct: boolp(true)},
		{Success: true, Correct: boolp(false)},
		{Success: true},
		{Success: false},
	})
	assert.Equal(t, 5, s.TotalDesigns)
	assert.Equal(t, 4, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, s.Labeled)
	assert.Equal(t, 2, s.CorrectPredictions)
	assert.Equal(t, "66.67%", s.Accuracy)
}

type recordingReporter struct {
	mu      sync.Mutex
	started int
	done    []int
}

func (r *recordingReporter) OnDesignStart(index, total int, spec DesignSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingReporter) OnDesignComplete(done, total int, result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, done)
}
