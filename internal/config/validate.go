package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/hdl-ift/internal/analyzer"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
)

var (
	// ErrInvalidProvider indicates an unsupported LLM provider
	ErrInvalidProvider = errors.New("invalid LLM provider")

	// ErrInvalidTemperature indicates a sampling temperature outside [0, 2]
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrEmptyBinary indicates a missing yosys binary name
	ErrEmptyBinary = errors.New("empty yosys binary")

	// ErrInvalidTimeout indicates a negative tool timeout
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPattern indicates a source glob that does not compile
	ErrInvalidPattern = errors.New("invalid source pattern")

	// ErrInvalidMode indicates an unknown extraction mode
	ErrInvalidMode = errors.New("invalid extract mode")

	// ErrInvalidPolicy indicates an unknown ancestor policy
	ErrInvalidPolicy = errors.New("invalid ancestor policy")

	// ErrInvalidTraversal indicates an unknown analysis traversal
	ErrInvalidTraversal = errors.New("invalid traversal")

	// ErrInvalidConcurrency indicates a non-positive batch concurrency
	ErrInvalidConcurrency = errors.New("invalid batch concurrency")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateYosys(&cfg.Yosys); err != nil {
		errs = append(errs, err)
	}
	if err := validateSources(&cfg.Sources); err != nil {
		errs = append(errs, err)
	}
	if _, err := extract.ParseMode(cfg.Extract.Mode); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidMode, err))
	}
	if err := validateLLM(&cfg.LLM); err != nil {
		errs = append(errs, err)
	}
	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}
	if cfg.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConcurrency, cfg.Batch.Concurrency))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateYosys(cfg *YosysConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Binary) == "" {
		errs = append(errs, fmt.Errorf("%w: binary is required", ErrEmptyBinary))
	}
	if cfg.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout_seconds cannot be negative, got %d", ErrInvalidTimeout, cfg.TimeoutSeconds))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateSources(cfg *SourcesConfig) error {
	var errs []error

	// An empty include list is allowed; the design loader falls back to its defaults
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateLLM(cfg *LLMConfig) error {
	var errs []error

	switch strings.ToLower(cfg.Provider) {
	case analyzer.ProviderAzure, analyzer.ProviderOpenRouter, analyzer.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'azure', 'openrouter' or 'openai', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, fmt.Errorf("%w: must be between 0 and 2, got %.2f", ErrInvalidTemperature, cfg.Temperature))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	if !graph.AncestorPolicy(cfg.AncestorPolicy).Valid() {
		errs = append(errs, fmt.Errorf("%w: must be 'all-paths' or 'first-path', got '%s'", ErrInvalidPolicy, cfg.AncestorPolicy))
	}
	if !analyzer.Traversal(cfg.Traversal).Valid() {
		errs = append(errs, fmt.Errorf("%w: must be 'bottom-up' or 'top-down', got '%s'", ErrInvalidTraversal, cfg.Traversal))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every sentinel through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &multiError{errs: errs}
}

type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	msgs := make([]string, 0, len(m.errs))
	for _, err := range m.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (m *multiError) Unwrap() []error {
	return m.errs
}
