package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HDLIFT_LLM_PROVIDER.
const EnvPrefix = "HDLIFT"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults -> config file -> environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// envKeys lists every key that can be overridden from the environment.
var envKeys = []string{
	"yosys.binary",
	"yosys.timeout_seconds",
	"sources.include",
	"sources.ignore",
	"extract.mode",
	"llm.provider",
	"llm.model",
	"llm.temperature",
	"llm.endpoint",
	"llm.api_version",
	"analysis.ancestor_policy",
	"analysis.traversal",
	"analysis.save_contexts",
	"analysis.context_dir",
	"batch.concurrency",
	"batch.results_dir",
	"storage.results_db",
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (HDLIFT_*)
// 2. Config file (.hdlift/config.yml or .hdlift/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., HDLIFT_ANALYSIS_ANCESTOR_POLICY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("yosys.binary", defaults.Yosys.Binary)
	v.SetDefault("yosys.timeout_seconds", defaults.Yosys.TimeoutSeconds)

	v.SetDefault("sources.include", defaults.Sources.Include)
	v.SetDefault("sources.ignore", defaults.Sources.Ignore)

	v.SetDefault("extract.mode", defaults.Extract.Mode)

	v.SetDefault("llm.provider", defaults.LLM.Provider)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("llm.temperature", defaults.LLM.Temperature)
	v.SetDefault("llm.endpoint", defaults.LLM.Endpoint)
	v.SetDefault("llm.api_version", defaults.LLM.APIVersion)

	v.SetDefault("analysis.ancestor_policy", defaults.Analysis.AncestorPolicy)
	v.SetDefault("analysis.traversal", defaults.Analysis.Traversal)
	v.SetDefault("analysis.save_contexts", defaults.Analysis.SaveContexts)
	v.SetDefault("analysis.context_dir", defaults.Analysis.ContextDir)

	v.SetDefault("batch.concurrency", defaults.Batch.Concurrency)
	v.SetDefault("batch.results_dir", defaults.Batch.ResultsDir)

	v.SetDefault("storage.results_db", defaults.Storage.ResultsDB)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
