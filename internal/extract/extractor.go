// Package extract cuts individual module definitions out of Verilog source text.
//
// A definition starts at the keyword `module` followed by the module name and ends at
// the nearest `endmodule` after it. Nested declarations are kept verbatim inside the
// enclosing span. The default Boundary mode matches on word boundaries only, so an
// `endmodule` inside a comment or string ends the span early. Lexical mode skips
// comments, string literals and escaped identifiers when looking for keywords.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// Mode selects how keywords are located in the source.
type Mode string

const (
	Boundary Mode = "boundary"
	Lexical  Mode = "lexical"
)

// ParseMode converts a config value into a Mode. Empty means Boundary.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Boundary:
		return Boundary, nil
	case Lexical:
		return Lexical, nil
	default:
		return "", fmt.Errorf("unknown extract mode %q (expected boundary or lexical)", s)
	}
}

// Span is one module definition found in a source text.
type Span struct {
	Name  string // Declared name, escape marker stripped
	Text  string // Declaration through terminator, inclusive
	Start int    // Byte offset of the declaration keyword
	End   int    // Byte offset just past the terminator
}

var (
	declPattern = regexp.MustCompile(`\bmodule\s+(\\\S+|[A-Za-z_][\w$]*)`)
	endPattern  = regexp.MustCompile(`\bendmodule\b`)
)

// Extractor finds module definitions using one Mode.
type Extractor struct {
	mode Mode
}

// New creates an Extractor. Unknown modes fall back to Boundary.
func New(mode Mode) *Extractor {
	if mode != Lexical {
		mode = Boundary
	}
	return &Extractor{mode: mode}
}

// Mode returns the keyword matching mode in use.
func (e *Extractor) Mode() Mode {
	return e.mode
}

// ExtractOne returns the first definition of name. Not finding it is a normal outcome
// reported through the boolean.
func (e *Extractor) ExtractOne(source, name string) (string, bool) {
	name = hierarchy.NormalizeName(name)
	if name == "" {
		return "", false
	}

	// The trailing class stands in for a word boundary since names may end in '$'
	pattern := regexp.MustCompile(`\bmodule\s+\\?` + regexp.QuoteMeta(name) + `(?:[^\w$]|\z)`)
	skip := e.skipper(source)

	for _, loc := range pattern.FindAllStringIndex(source, -1) {
		if skip.inside(loc[0]) {
			continue
		}
		end, ok := e.terminator(source, loc[0]+len("module"), skip)
		if !ok {
			return "", false
		}
		return source[loc[0]:end], true
	}
	return "", false
}

// ExtractAll returns every definition keyed by name. A later definition with the same
// name replaces an earlier one.
func (e *Extractor) ExtractAll(source string) map[string]string {
	spans := e.Scan(source)
	out := make(map[string]string, len(spans))
	for _, s := range spans {
		out[s.Name] = s.Text
	}
	return out
}

// Scan returns the non-overlapping definitions in source order.
func (e *Extractor) Scan(source string) []Span {
	skip := e.skipper(source)
	spans := []Span{}

	pos := 0
	for pos < len(source) {
		loc := declPattern.FindStringSubmatchIndex(source[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		nameEnd := pos + loc[3]
		if skip.inside(start) {
			pos = start + len("module")
			continue
		}

		end, ok := e.terminator(source, nameEnd, skip)
		if !ok {
			break
		}
		spans = append(spans, Span{
			Name:  hierarchy.NormalizeName(source[pos+loc[2] : nameEnd]),
			Text:  source[start:end],
			Start: start,
			End:   end,
		})
		pos = end
	}
	return spans
}

// terminator returns the offset just past the first usable `endmodule` at or after from.
func (e *Extractor) terminator(source string, from int, skip regions) (int, bool) {
	for from < len(source) {
		loc := endPattern.FindStringIndex(source[from:])
		if loc == nil {
			return 0, false
		}
		start := from + loc[0]
		if !skip.inside(start) {
			return from + loc[1], true
		}
		from = start + len("endmodule")
	}
	return 0, false
}

func (e *Extractor) skipper(source string) regions {
	if e.mode != Lexical {
		return nil
	}
	return nonCode(source)
}

var defaultExtractor = New(Boundary)

// ExtractOne finds name using Boundary mode.
func ExtractOne(source, name string) (string, bool) {
	return defaultExtractor.ExtractOne(source, name)
}

// ExtractAll extracts every module using Boundary mode.
func ExtractAll(source string) map[string]string {
	return defaultExtractor.ExtractAll(source)
}

// Scan lists every module using Boundary mode.
func Scan(source string) []Span {
	return defaultExtractor.Scan(source)
}

// Names returns the declared module names in source order, first occurrence only.
func Names(spans []Span) []string {
	seen := make(map[string]bool, len(spans))
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}
	return names
}
