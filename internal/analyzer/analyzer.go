// Package analyzer drives an information-flow-tracking review of a prepared design
// through a text-generation service, one module at a time in dependency order.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
)

// ProgressReporter receives progress while a design is analyzed.
type ProgressReporter interface {
	OnAnalysisStart(totalModules int)
	OnModuleAnalyzed(done, total int, module string)
	OnSummaryStart()
	OnAnalysisComplete(duration time.Duration)
}

// Traversal is the order in which modules are analyzed.
type Traversal string

const (
	// BottomUp follows the design order: dependencies before the modules using them.
	BottomUp Traversal = "bottom-up"
	// TopDown reverses it so ancestors are analyzed, and their context is available,
	// before their descendants.
	TopDown Traversal = "top-down"
)

// Valid reports whether t is a known traversal.
func (t Traversal) Valid() bool {
	return t == BottomUp || t == TopDown
}

// ModuleAnalysis is the reply for one module.
type ModuleAnalysis struct {
	Name      string   `json:"name"`
	Ancestors []string `json:"ancestors"`
	Response  string   `json:"response"`
}

// Report is the outcome of one analysis run.
type Report struct {
	Modules []ModuleAnalysis `json:"modules"`
	Summary string           `json:"summary"`
	Verdict *Verdict         `json:"verdict,omitempty"` // nil when the summary held no parseable JSON
	Err     string           `json:"verdict_error,omitempty"`
}

// Analyzer runs the review.
type Analyzer struct {
	gen        Generator
	policy     graph.AncestorPolicy
	traversal  Traversal
	contextDir string
	progress   ProgressReporter
	logger     *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAncestorPolicy selects how ancestor chains are resolved.
func WithAncestorPolicy(p graph.AncestorPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithTraversal selects the module analysis order.
func WithTraversal(t Traversal) Option {
	return func(a *Analyzer) { a.traversal = t }
}

// WithContextDir writes each module's context to <dir>/<module>.txt.
func WithContextDir(dir string) Option {
	return func(a *Analyzer) { a.contextDir = dir }
}

// WithProgress configures progress reporting.
func WithProgress(p ProgressReporter) Option {
	return func(a *Analyzer) { a.progress = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer around gen.
func New(gen Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:       gen,
		policy:    graph.AllPaths,
		traversal: BottomUp,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run analyzes every extracted module of d in order and asks for a final summary.
//
// The design structure exchange is replayed in front of every later request. Module
// context is kept in a map owned by this call, so concurrent runs on one Analyzer do
// not share findings.
func (a *Analyzer) Run(ctx context.Context, d *design.Design) (*Report, error) {
	start := time.Now()
	designIn := DesignInput{Order: d.Order, Adjacency: d.Adjacency}

	priming, err := PrimingMessages(designIn)
	if err != nil {
		return nil, err
	}
	primingReply, err := a.gen.Generate(ctx, priming)
	if err != nil {
		return nil, fmt.Errorf("design structure prompt failed: %w", err)
	}
	prefix := append(priming, Message{Role: RoleAssistant, Content: primingReply})

	if a.contextDir != "" {
		if err := os.MkdirAll(a.contextDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create context directory: %w", err)
		}
	}

	records := d.Records
	if a.traversal == TopDown {
		records = make([]design.ModuleRecord, len(d.Records))
		for i, rec := range d.Records {
			records[len(records)-1-i] = rec
		}
	}

	if a.progress != nil {
		a.progress.OnAnalysisStart(len(records))
	}

	contexts := make(map[string]string, len(records))
	report := &Report{Modules: make([]ModuleAnalysis, 0, len(records))}
	var accumulated strings.Builder

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ancestors := a.policy.Resolve(rec.Name, d.Adjacency)
		var ancestorContext strings.Builder
		for _, anc := range ancestors {
			ancestorContext.WriteString(contexts[anc])
		}

		msgs, err := ModuleMessages(ModuleInput{
			Name:            rec.Name,
			Dependencies:    rec.Dependencies,
			Text:            rec.Text,
			AncestorPath:    ancestors,
			AncestorContext: ancestorContext.String(),
		})
		if err != nil {
			return nil, err
		}

		a.logger.Info("analyzing module", "module", rec.Name, "index", i+1, "total", len(records))
		reply, err := a.gen.Generate(ctx, withPrefix(prefix, msgs))
		if err != nil {
			return nil, fmt.Errorf("analysis of module %s failed: %w", rec.Name, err)
		}

		fmt.Fprintf(&accumulated, "\nModule: %s\nResponse:\n%s\n", rec.Name, reply)
		contexts[rec.Name] = fmt.Sprintf("Context of module %s:\n%s\n", rec.Name, reply)
		report.Modules = append(report.Modules, ModuleAnalysis{
			Name:      rec.Name,
			Ancestors: ancestors,
			Response:  reply,
		})

		if a.contextDir != "" {
			if err := a.saveContext(rec.Name, contexts[rec.Name]); err != nil {
				return nil, err
			}
		}
		if a.progress != nil {
			a.progress.OnModuleAnalyzed(i+1, len(records), rec.Name)
		}
	}

	if a.progress != nil {
		a.progress.OnSummaryStart()
	}
	summaryMsgs, err := SummaryMessages(designIn, accumulated.String())
	if err != nil {
		return nil, err
	}
	summary, err := a.gen.Generate(ctx, withPrefix(prefix, summaryMsgs))
	if err != nil {
		return nil, fmt.Errorf("final summary failed: %w", err)
	}
	report.Summary = summary

	verdict, err := ParseVerdict(summary)
	if err != nil {
		a.logger.Warn("could not parse verdict", "error", err)
		report.Err = err.Error()
	} else {
		report.Verdict = verdict
	}

	if a.progress != nil {
		a.progress.OnAnalysisComplete(time.Since(start))
	}
	return report, nil
}

func (a *Analyzer) saveContext(module, content string) error {
	path := filepath.Join(a.contextDir, ContextFileName(module))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save context for %s: %w", module, err)
	}
	return nil
}

// ContextFileName maps a module name to a file name, replacing path separators.
func ContextFileName(module string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", ":", "_")
	return r.Replace(module) + ".txt"
}

func withPrefix(prefix, msgs []Message) []Message {
	out := make([]Message, 0, len(prefix)+len(msgs))
	out = append(out, prefix...)
	return append(out, msgs...)
}
