// Package batch analyzes many designs from one batch file and summarizes how the
// predictions compare with their labels.
package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mvp-joe/hdl-ift/internal/config"
)

// ErrNoDesigns is returned for a batch file without designs.
var ErrNoDesigns = errors.New("batch file lists no designs")

// DesignSpec is one design entry of a batch file.
type DesignSpec struct {
	Folder    string `mapstructure:"folder" json:"folder"`
	TopModule string `mapstructure:"top_module" json:"top_module"`
	Label     *bool  `mapstructure:"label" json:"label"` // Ground truth, nil when unknown
}

// LLMOverride replaces the matching fields of the project's llm section. Empty fields
// keep the project value.
type LLMOverride struct {
	Provider    string   `mapstructure:"provider"`
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
	Endpoint    string   `mapstructure:"endpoint"`
	APIVersion  string   `mapstructure:"api_version"`
}

// Apply returns base with the override's non-empty fields.
func (o LLMOverride) Apply(base config.LLMConfig) config.LLMConfig {
	if o.Provider != "" {
		base.Provider = o.Provider
	}
	if o.Model != "" {
		base.Model = o.Model
	}
	if o.Temperature != nil {
		base.Temperature = *o.Temperature
	}
	if o.Endpoint != "" {
		base.Endpoint = o.Endpoint
	}
	if o.APIVersion != "" {
		base.APIVersion = o.APIVersion
	}
	return base
}

// File is a parsed batch file.
type File struct {
	LLM     LLMOverride  `mapstructure:"llm"`
	Designs []DesignSpec `mapstructure:"designs"`
}

// LoadFile reads a batch file. The format (JSON or YAML) follows the extension.
func LoadFile(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	f := &File{}
	if err := v.Unmarshal(f); err != nil {
		return nil, fmt.Errorf("failed to decode batch file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch file %s: %w", path, err)
	}
	return f, nil
}

// Validate checks that every design names a folder and a top module.
func (f *File) Validate() error {
	if len(f.Designs) == 0 {
		return ErrNoDesigns
	}
	var errs []error
	for i, d := range f.Designs {
		if strings.TrimSpace(d.Folder) == "" {
			errs = append(errs, fmt.Errorf("design %d: folder is required", i+1))
		}
		if strings.TrimSpace(d.TopModule) == "" {
			errs = append(errs, fmt.Errorf("design %d: top_module is required", i+1))
		}
	}
	return errors.Join(errs...)
}
