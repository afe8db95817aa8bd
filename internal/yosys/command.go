package yosys

import (
	"errors"
	"fmt"
	"strings"
)

// HierarchyScript builds the yosys command script that reads file and prints the
// hierarchy report for top.
//
// yosys splits its script on ';', so neither value may contain one. Paths containing
// whitespace are quoted.
func HierarchyScript(file, top string) (string, error) {
	if err := validateArgs(file, top); err != nil {
		return "", err
	}
	return fmt.Sprintf("read_verilog %s; hierarchy -top %s -auto-top", quote(file), top), nil
}

func validateArgs(file, top string) error {
	if file == "" {
		return errors.New("source file is required")
	}
	if top == "" {
		return errors.New("top module is required")
	}
	if strings.ContainsAny(file, ";\n\"") {
		return fmt.Errorf("invalid source path %q", file)
	}
	if strings.ContainsAny(top, "; \t\n\"") {
		return fmt.Errorf("invalid top module name %q", top)
	}
	return nil
}

func quote(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}
