package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/hdl-ift/internal/batch"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

// renderDesign prints the module order with each module's direct dependencies.
func renderDesign(w io.Writer, d *design.Design) {
	fmt.Fprintf(w, "Top module: %s\n", d.Top)
	switch {
	case d.Flat:
		fmt.Fprintln(w, "No hierarchy reported, modules listed in source order")
	case d.Cyclic:
		fmt.Fprintln(w, "Warning: module hierarchy is cyclic, modules listed in first-seen order")
	}

	fmt.Fprintf(w, "\nModules (%d, dependencies first):\n", len(d.Order))
	for i, name := range d.Order {
		fmt.Fprintf(w, "  %d. %s -> %s\n", i+1, name, formatList(d.Adjacency.Dependencies(name)))
	}

	if len(d.Missing) > 0 {
		fmt.Fprintf(w, "\nWarning: could not extract code for: %s\n", strings.Join(d.Missing, ", "))
	}
}

// renderChanges prints modules added or removed since the last saved graph.
func renderChanges(w io.Writer, c graph.ModuleChanges) {
	if c.Empty() {
		fmt.Fprintln(w, "\nModule set unchanged since the last save")
		return
	}
	if len(c.Added) > 0 {
		fmt.Fprintf(w, "\nAdded since the last save:   %s\n", strings.Join(c.Added, ", "))
	}
	if len(c.Removed) > 0 {
		fmt.Fprintf(w, "Removed since the last save: %s\n", strings.Join(c.Removed, ", "))
	}
}

// renderSpans lists the module definitions of source with their line ranges.
func renderSpans(w io.Writer, source string, spans []extract.Span) {
	if len(spans) == 0 {
		fmt.Fprintln(w, "No module definitions found")
		return
	}
	for _, s := range spans {
		first := lineOf(source, s.Start)
		last := lineOf(source, s.End-1)
		fmt.Fprintf(w, "%-32s lines %d-%d\n", s.Name, first, last)
	}
}

// lineOf returns the 1-based line holding byte offset pos.
func lineOf(source string, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return strings.Count(source[:pos], "\n") + 1
}

// renderAncestors prints a resolved ancestor chain.
func renderAncestors(w io.Writer, module string, ancestors []string) {
	if len(ancestors) == 0 {
		fmt.Fprintf(w, "%s has no ancestors\n", module)
		return
	}
	fmt.Fprintf(w, "Ancestors of %s (nearest first):\n", module)
	for i, a := range ancestors {
		fmt.Fprintf(w, "  %d. %s\n", i+1, a)
	}
}

// renderResult prints the verdict of a single design.
func renderResult(w io.Writer, r *batch.Result) {
	fmt.Fprintln(w)
	if !r.Success {
		fmt.Fprintf(w, "✗ Analysis failed: %s\n", r.Error)
		if r.RawOutput != "" {
			fmt.Fprintf(w, "\nRaw output:\n%s\n", r.RawOutput)
		}
		return
	}

	fmt.Fprintln(w, "✓ Analysis complete")
	fmt.Fprintf(w, "  Vulnerable:         %s\n", formatBool(r.PredictedLabel))
	if len(r.VulnerableModules) > 0 {
		fmt.Fprintf(w, "  Vulnerable modules: %s\n", strings.Join(r.VulnerableModules, ", "))
	}
	if r.LeakageType != "" {
		fmt.Fprintf(w, "  Leakage type:       %s\n", r.LeakageType)
	}
	if r.ActualLabel != nil {
		fmt.Fprintf(w, "  Expected:           %s\n", formatBool(r.ActualLabel))
		fmt.Fprintf(w, "  Correct:            %s\n", formatBool(r.Correct))
	}
	fmt.Fprintf(w, "  Duration:           %.1fs\n", r.DurationSeconds)
}

// renderSummary prints the batch totals.
func renderSummary(w io.Writer, s *batch.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ Batch complete: %d designs\n", s.TotalDesigns)
	fmt.Fprintf(w, "  Successful:          %d\n", s.Successful)
	fmt.Fprintf(w, "  Failed:              %d\n", s.Failed)
	fmt.Fprintf(w, "  Correct predictions: %d of %d labeled\n", s.CorrectPredictions, s.Labeled)
	fmt.Fprintf(w, "  Accuracy:            %s\n", s.Accuracy)
}

// renderRuns prints one line per recorded run followed by the overall accuracy.
func renderRuns(w io.Writer, runs []*storage.Run, acc storage.Accuracy) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
	}
	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s  %s  %-7s predicted=%-5s actual=%-5s %s (%s)\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			status,
			formatBool(r.Predicted),
			formatBool(r.Actual),
			r.Folder,
			r.TopModule)
	}
	fmt.Fprintf(w, "\nAccuracy: %.2f%% (%d of %d labeled runs)\n", acc.Percent(), acc.Correct, acc.Labeled)
}

// renderRun prints one run in full.
func renderRun(w io.Writer, r *storage.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Folder:   %s\n", r.Folder)
	fmt.Fprintf(w, "Top:      %s\n", r.TopModule)
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %.1fs\n", r.FinishedAt.Sub(r.StartedAt).Seconds())
	if r.Success {
		fmt.Fprintf(w, "Result:   predicted=%s actual=%s correct=%s\n",
			formatBool(r.Predicted), formatBool(r.Actual), formatBool(r.Correct))
		if r.LeakageType != "" {
			fmt.Fprintf(w, "Leakage:  %s\n", r.LeakageType)
		}
	} else {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}

	if len(r.Modules) > 0 {
		fmt.Fprintln(w, "\nModules:")
		for _, m := range r.Modules {
			fmt.Fprintf(w, "  %d. %s -> %s\n", m.Position+1, m.Name, formatList(m.Dependencies))
		}
	}
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func formatBool(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
