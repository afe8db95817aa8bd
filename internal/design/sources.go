package design

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Default source selection, matching the usual layout of a design folder with
// testbenches next to the RTL.
var (
	DefaultInclude = []string{"**/*.v", "**/*.vhd"}
	DefaultIgnore  = []string{"**/test_*", "**/tb_*", "**/tbTOP*"}
)

// ErrNoSources is returned when a folder holds no matching source file.
var ErrNoSources = errors.New("no source files found")

// compiledPattern holds a pattern and its compiled glob. rootGlob is set for `**/`
// patterns so files at the root of the folder match as well.
type compiledPattern struct {
	pattern  string
	glob     glob.Glob
	rootGlob glob.Glob
}

// SourceFilter selects design files by glob patterns relative to the design folder.
type SourceFilter struct {
	include []compiledPattern
	ignore  []compiledPattern
}

// NewSourceFilter compiles include and ignore patterns. Empty include uses
// DefaultInclude.
func NewSourceFilter(include, ignore []string) (*SourceFilter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}

	f := &SourceFilter{}
	var err error
	if f.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if f.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.rootGlob = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// Match reports whether a slash-separated path relative to the design folder is a
// source file.
func (f *SourceFilter) Match(relPath string) bool {
	if matchesAny(relPath, f.ignore) {
		return false
	}
	return matchesAny(relPath, f.include)
}

func matchesAny(path string, patterns []compiledPattern) bool {
	root := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if root && cp.rootGlob != nil && cp.rootGlob.Match(path) {
			return true
		}
	}
	return false
}

// Discover walks dir and returns the matching files, sorted by relative path.
func (f *SourceFilter) Discover(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if f.Match(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// LoadSources concatenates every matching file under dir, each followed by a newline.
// It returns the combined text and the files that went into it.
func LoadSources(dir string, include, ignore []string) (string, []string, error) {
	filter, err := NewSourceFilter(include, ignore)
	if err != nil {
		return "", nil, err
	}

	files, err := filter.Discover(dir)
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("%w in %s", ErrNoSources, dir)
	}

	var b strings.Builder
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), files, nil
}
