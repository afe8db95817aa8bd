// Package config loads hdlift settings from .hdlift/config.yml with HDLIFT_*
// environment variable overrides.
package config

import (
	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/yosys"
)

// DirName is the per-project settings directory.
const DirName = ".hdlift"

// Config represents the complete hdlift configuration.
type Config struct {
	Yosys    YosysConfig    `yaml:"yosys" mapstructure:"yosys"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
}

// YosysConfig configures the structural-analysis tool.
type YosysConfig struct {
	Binary         string `yaml:"binary" mapstructure:"binary"`                   // Name or path of the yosys executable
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"` // 0 disables the timeout
}

// SourcesConfig defines which files of a design folder are combined.
type SourcesConfig struct {
	Include []string `yaml:"include" mapstructure:"include"`
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`
}

// ExtractConfig selects the module text extraction mode.
type ExtractConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // "boundary" or "lexical"
}

// LLMConfig configures the text-generation backend. API keys come from the
// environment, never from this file.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "azure", "openrouter" or "openai"
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	APIVersion  string  `yaml:"api_version" mapstructure:"api_version"`
}

// AnalysisConfig controls the per-module review.
type AnalysisConfig struct {
	AncestorPolicy string `yaml:"ancestor_policy" mapstructure:"ancestor_policy"` // "all-paths" or "first-path"
	Traversal      string `yaml:"traversal" mapstructure:"traversal"`             // "bottom-up" or "top-down"
	SaveContexts   bool   `yaml:"save_contexts" mapstructure:"save_contexts"`
	ContextDir     string `yaml:"context_dir" mapstructure:"context_dir"`
}

// BatchConfig controls batch runs.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	ResultsDir  string `yaml:"results_dir" mapstructure:"results_dir"`
}

// StorageConfig locates the results database.
type StorageConfig struct {
	ResultsDB string `yaml:"results_db" mapstructure:"results_db"` // Empty disables run recording
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Yosys: YosysConfig{
			Binary:         yosys.DefaultBinary,
			TimeoutSeconds: int(yosys.DefaultTimeout.Seconds()),
		},
		Sources: SourcesConfig{
			Include: append([]string(nil), design.DefaultInclude...),
			Ignore:  append([]string(nil), design.DefaultIgnore...),
		},
		Extract: ExtractConfig{
			Mode: string(extract.Boundary),
		},
		LLM: LLMConfig{
			Provider:    analyzer.ProviderAzure,
			Model:       analyzer.DefaultModel,
			Temperature: 0,
		},
		Analysis: AnalysisConfig{
			AncestorPolicy: string(graph.AllPaths),
			Traversal:      string(analyzer.BottomUp),
			SaveContexts:   false,
			ContextDir:     "contexts",
		},
		Batch: BatchConfig{
			Concurrency: 1,
			ResultsDir:  "batch_results",
		},
		Storage: StorageConfig{
			ResultsDB: DirName + "/results.db",
		},
	}
}
