package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

// Result is the outcome of one design.
type Result struct {
	RunID             string    `json:"run_id,omitempty"`
	Folder            string    `json:"folder"`
	TopModule         string    `json:"top_module"`
	ActualLabel       *bool     `json:"actual_label"`
	PredictedLabel    *bool     `json:"predicted_label"`
	Correct           *bool     `json:"correct"` // nil without both labels
	Modules           []string  `json:"modules,omitempty"`
	VulnerableModules []string  `json:"vulnerable_modules,omitempty"`
	LeakageType       string    `json:"leakage_type,omitempty"`
	Flat              bool      `json:"flat,omitempty"`
	Cyclic            bool      `json:"cyclic,omitempty"`
	Success           bool      `json:"success"`
	Error             string    `json:"error,omitempty"`
	RawOutput         string    `json:"raw_output,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// Outcome carries a Result together with the intermediate values that produced it.
// Design and Report are nil when the run failed before reaching them.
type Outcome struct {
	Result Result
	Design *design.Design
	Report *analyzer.Report
}

// DesignFile is the per-design JSON document.
type DesignFile struct {
	Result
	Dependencies map[string][]string `json:"dependencies,omitempty"`
	FullAnalysis *analyzer.Verdict   `json:"full_analysis,omitempty"`
}

// File returns the per-design document for o.
func (o *Outcome) File() DesignFile {
	f := DesignFile{Result: o.Result}
	if o.Design != nil && o.Design.Adjacency != nil {
		f.Dependencies = o.Design.Adjacency.Map()
	}
	if o.Report != nil {
		f.FullAnalysis = o.Report.Verdict
	}
	return f
}

// StorageRun converts o into a row for the results store.
func (o *Outcome) StorageRun() *storage.Run {
	r := o.Result
	run := &storage.Run{
		ID:          r.RunID,
		Folder:      r.Folder,
		TopModule:   r.TopModule,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.StartedAt.Add(time.Duration(r.DurationSeconds * float64(time.Second))),
		Success:     r.Success,
		Error:       r.Error,
		Predicted:   r.PredictedLabel,
		Actual:      r.ActualLabel,
		Correct:     r.Correct,
		LeakageType: r.LeakageType,
		Flat:        r.Flat,
		Cyclic:      r.Cyclic,
	}
	if o.Design != nil {
		adj := o.Design.Adjacency
		if adj == nil {
			adj = graph.NewAdjacency()
		}
		for i, name := range o.Design.Order {
			run.Modules = append(run.Modules, storage.RunModule{
				Position:     i,
				Name:         name,
				Dependencies: adj.Dependencies(name),
			})
		}
	}
	return run
}

// FileName maps a design folder to its result file stem.
func FileName(folder string) string {
	name := strings.Trim(filepath.ToSlash(filepath.Clean(folder)), "/")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == "." {
		return "design"
	}
	return name
}

// ResultNames returns the result file stem of every design. A folder listed more
// than once gets its top module appended so no two designs share a result file or
// context directory.
func ResultNames(designs []DesignSpec) []string {
	count := make(map[string]int, len(designs))
	for _, d := range designs {
		count[FileName(d.Folder)]++
	}

	names := make([]string, len(designs))
	used := make(map[string]int, len(designs))
	for i, d := range designs {
		name := FileName(d.Folder)
		if count[name] > 1 {
			name += "_" + FileName(d.TopModule)
		}
		// Same folder and top twice
		if n := used[name]; n > 0 {
			used[name]++
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			used[name] = 1
		}
		names[i] = name
	}
	return names
}

// WriteJSON writes v indented to path, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
