package cli

import (
	"fmt"
	"time"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/batch"
	"github.com/mvp-joe/hdl-ift/internal/config"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/storage"
)

// reportCacheTTL bounds how long a hierarchy report is reused in long-running modes.
const reportCacheTTL = 30 * time.Minute

// newPreparer wires the yosys runner and the configured extractor and source globs.
func newPreparer(cfg *config.Config, opts ...design.Option) *design.Preparer {
	all := append(cfg.PreparerOptions(logger), opts...)
	return design.NewPreparer(cfg.Runner(logger), all...)
}

// newCachedPreparer is newPreparer with a report cache, for watch mode and the MCP server.
func newCachedPreparer(cfg *config.Config) (*design.Preparer, *design.ReportCache, error) {
	cache, err := design.NewReportCache(design.DefaultCacheBytes, reportCacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return newPreparer(cfg, design.WithCache(cache)), cache, nil
}

// newAnalyzerFactory builds analyzers that share one generator.
func newAnalyzerFactory(cfg *config.Config, gen analyzer.Generator, progress analyzer.ProgressReporter) batch.AnalyzerFactory {
	return func(contextDir string) batch.DesignAnalyzer {
		opts := cfg.AnalyzerOptions(contextDir, logger)
		if progress != nil {
			opts = append(opts, analyzer.WithProgress(progress))
		}
		return analyzer.New(gen, opts...)
	}
}

// openStore opens the results database, or returns nil when recording is disabled.
func openStore(cfg *config.Config) (*storage.Store, error) {
	if cfg.Storage.ResultsDB == "" {
		return nil, nil
	}
	store, err := storage.Open(cfg.Storage.ResultsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	return store, nil
}
