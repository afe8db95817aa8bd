package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoVerdict is returned when a summary holds no JSON object.
var ErrNoVerdict = errors.New("no JSON verdict in response")

// Verdict is the structured result of the final summary.
type Verdict struct {
	IsVulnerable      bool     `json:"is_vulnerable"`
	VulnerableModules []string `json:"vulnerable_modules"`
	LeakagePath       []string `json:"leakage_path"`
	LeakageType       string   `json:"leakage_type"`
	Explanation       string   `json:"explanation"`
}

// ParseVerdict decodes the text between the first '{' and the last '}' of response.
func ParseVerdict(response string) (*Verdict, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return nil, ErrNoVerdict
	}

	var v Verdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}
	if v.VulnerableModules == nil {
		v.VulnerableModules = []string{}
	}
	if v.LeakagePath == nil {
		v.LeakagePath = []string{}
	}
	return &v, nil
}
