package config

import (
	"log/slog"
	"time"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/yosys"
)

// Runner converts the yosys section into a runner.
func (c *Config) Runner(logger *slog.Logger) *yosys.Runner {
	r := yosys.NewRunner(c.Yosys.Binary, time.Duration(c.Yosys.TimeoutSeconds)*time.Second)
	r.Logger = logger
	return r
}

// ExtractMode returns the configured extraction mode. Validate has already rejected
// unknown values, so the zero value falls back to Boundary.
func (c *Config) ExtractMode() extract.Mode {
	mode, err := extract.ParseMode(c.Extract.Mode)
	if err != nil {
		return extract.Boundary
	}
	return mode
}

// PreparerOptions returns the design pipeline options for the sources and extract
// sections. A nil logger keeps the pipeline default.
func (c *Config) PreparerOptions(logger *slog.Logger) []design.Option {
	opts := []design.Option{
		design.WithExtractor(extract.New(c.ExtractMode())),
		design.WithSourcePatterns(c.Sources.Include, c.Sources.Ignore),
	}
	if logger != nil {
		opts = append(opts, design.WithLogger(logger))
	}
	return opts
}

// GeneratorConfig converts the llm section. Keys are read from the environment by
// the generator itself.
func (c *Config) GeneratorConfig() analyzer.GeneratorConfig {
	return analyzer.GeneratorConfig{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		Endpoint:    c.LLM.Endpoint,
		APIVersion:  c.LLM.APIVersion,
	}
}

// ContextDir returns where per-module contexts are written, or "" when
// save_contexts is off.
func (c *Config) ContextDir() string {
	if !c.Analysis.SaveContexts {
		return ""
	}
	return c.Analysis.ContextDir
}

// AnalyzerOptions converts the analysis section. contextDir is passed separately so
// batch runs can give every design its own folder; "" disables context files.
func (c *Config) AnalyzerOptions(contextDir string, logger *slog.Logger) []analyzer.Option {
	opts := []analyzer.Option{
		analyzer.WithAncestorPolicy(graph.AncestorPolicy(c.Analysis.AncestorPolicy)),
		analyzer.WithTraversal(analyzer.Traversal(c.Analysis.Traversal)),
	}
	if contextDir != "" {
		opts = append(opts, analyzer.WithContextDir(contextDir))
	}
	if logger != nil {
		opts = append(opts, analyzer.WithLogger(logger))
	}
	return opts
}
