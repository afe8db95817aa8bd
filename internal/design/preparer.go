package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// ErrEmptyHierarchy is returned when the report names no top module and the caller
// asked for a real hierarchy.
var ErrEmptyHierarchy = errors.New("hierarchy report names no top module")

// HierarchyRunner produces the hierarchy report for a source file and top module.
// *yosys.Runner satisfies it.
type HierarchyRunner interface {
	Hierarchy(ctx context.Context, file, top string) (string, error)
}

// Input names the design to prepare. Source, when set, is used instead of reading Dir.
type Input struct {
	Dir    string
	Source string
	Top    string
}

// Preparer runs the full design pipeline.
type Preparer struct {
	runner           HierarchyRunner
	extractor        *extract.Extractor
	cache            *ReportCache
	include          []string
	ignore           []string
	requireHierarchy bool
	tempDir          string
	logger           *slog.Logger
	order            func(edges []hierarchy.Edge, modules []string) ([]string, error)
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithExtractor sets the module text extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Preparer) { p.extractor = e }
}

// WithCache reuses reports for unchanged sources.
func WithCache(c *ReportCache) Option {
	return func(p *Preparer) { p.cache = c }
}

// WithSourcePatterns sets the include and ignore globs used to read Input.Dir.
func WithSourcePatterns(include, ignore []string) Option {
	return func(p *Preparer) {
		p.include = include
		p.ignore = ignore
	}
}

// WithRequireHierarchy makes an empty report an error instead of a flat fallback.
func WithRequireHierarchy(require bool) Option {
	return func(p *Preparer) { p.requireHierarchy = require }
}

// WithTempDir sets where the combined source file is written for yosys.
func WithTempDir(dir string) Option {
	return func(p *Preparer) { p.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Preparer) { p.logger = l }
}

// NewPreparer creates a Preparer around runner.
func NewPreparer(runner HierarchyRunner, opts ...Option) *Preparer {
	p := &Preparer{
		runner:    runner,
		extractor: extract.New(extract.Boundary),
		ignore:    DefaultIgnore,
		logger:    slog.Default(),
		order:     graph.Order,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare loads the sources, obtains the hierarchy and assembles the Design.
//
// Tool failures are returned as is (see yosys.ToolInvocationError). A cycle in the
// hierarchy is not an error: the order falls back to first-seen and Design.Cyclic is
// set. Modules whose text cannot be found are listed in Design.Missing.
func (p *Preparer) Prepare(ctx context.Context, in Input) (*Design, error) {
	if in.Top == "" {
		return nil, errors.New("top module is required")
	}

	source := in.Source
	var files []string
	if source == "" {
		if in.Dir == "" {
			return nil, errors.New("either a source folder or source text is required")
		}
		var err error
		source, files, err = LoadSources(in.Dir, p.include, p.ignore)
		if err != nil {
			return nil, err
		}
	}

	report, cached, err := p.report(ctx, source, in.Top)
	if err != nil {
		return nil, err
	}

	result := hierarchy.Parse(report)

	var d *Design
	if result.Empty() {
		if p.requireHierarchy {
			return nil, fmt.Errorf("%w (top %s)", ErrEmptyHierarchy, in.Top)
		}
		p.logger.Warn("hierarchy report is empty, falling back to source order", "top", in.Top)
		d = p.flat(source, in.Top)
	} else {
		d = p.hierarchical(result)
	}

	d.Files = files
	d.Cached = cached
	p.attachText(d, source)
	return d, nil
}

// report returns the hierarchy report for source, from the cache when possible.
func (p *Preparer) report(ctx context.Context, source, top string) (string, bool, error) {
	key := ReportKey(source, top)
	if p.cache != nil {
		if report, ok := p.cache.Get(key); ok {
			p.logger.Debug("hierarchy report cache hit", "top", top)
			return report, true, nil
		}
	}

	tmp, err := os.CreateTemp(p.tempDir, "hdlift-*.v")
	if err != nil {
		return "", false, fmt.Errorf("failed to create temp source file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("failed to write temp source file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close temp source file: %w", err)
	}

	report, err := p.runner.Hierarchy(ctx, tmp.Name(), top)
	if err != nil {
		return "", false, fmt.Errorf("hierarchy extraction failed: %w", err)
	}

	if p.cache != nil {
		p.cache.Put(key, report)
	}
	return report, false, nil
}

func (p *Preparer) hierarchical(result *hierarchy.Result) *Design {
	d := &Design{
		Top:       result.Top,
		Adjacency: graph.Build(result.Edges, result.Modules),
		Edges:     result.Edges,
	}

	order, err := p.order(result.Edges, result.Modules)
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			p.logger.Warn("module hierarchy is cyclic, using first-seen order",
				"parent", cycleErr.Edge.Parent,
				"child", cycleErr.Edge.Child)
			d.Cyclic = true
		} else {
			p.logger.Warn("topological sort failed, using first-seen order", "error", err)
		}
		order = append([]string(nil), result.Modules...)
	}
	d.Order = order
	return d
}

// flat builds a design without hierarchy: every declared module in source order, no
// edges.
func (p *Preparer) flat(source, top string) *Design {
	modules := extract.Names(p.extractor.Scan(source))
	return &Design{
		Top:       top,
		Order:     modules,
		Adjacency: graph.Build(nil, modules),
		Edges:     []hierarchy.Edge{},
		Flat:      true,
	}
}

// attachText extracts each ordered module. Parameterized yosys names fall back to
// the base module name.
func (p *Preparer) attachText(d *Design, source string) {
	d.Records = make([]ModuleRecord, 0, len(d.Order))
	for _, name := range d.Order {
		text, ok := p.extractor.ExtractOne(source, name)
		if !ok {
			if base := hierarchy.BaseName(name); base != name {
				text, ok = p.extractor.ExtractOne(source, base)
			}
		}
		if !ok {
			p.logger.Warn("could not extract module text, skipping", "module", name)
			d.Missing = append(d.Missing, name)
			continue
		}

		deps := d.Adjacency.Dependencies(name)
		if deps == nil {
			deps = []string{}
		}
		d.Records = append(d.Records, ModuleRecord{Name: name, Dependencies: deps, Text: text})
	}
}
