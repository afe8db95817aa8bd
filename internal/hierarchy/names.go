package hierarchy

import "strings"

// paramodPrefix marks modules yosys derived from a parameterized definition,
// e.g. `$paramod\fifo\DEPTH=16` or `$paramod$1a2b3c\fifo`.
const paramodPrefix = "$paramod"

// NormalizeName strips surrounding whitespace and the leading escape marker yosys
// prints in front of escaped identifiers (`\top` -> `top`).
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, `\`)
	return strings.TrimSpace(name)
}

// BaseName returns the source-level module name behind a derived module name.
// Names that are not derived are returned unchanged.
func BaseName(name string) string {
	if !strings.HasPrefix(name, paramodPrefix) {
		return name
	}
	_, rest, ok := strings.Cut(name, `\`)
	if !ok || rest == "" {
		return name
	}
	base, _, _ := strings.Cut(rest, `\`)
	return base
}
