package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// GraphFileSuffix ends every saved design graph: <top>.graph.json.
	GraphFileSuffix = ".graph.json"
	// GraphVersion is the current version of the graph format
	GraphVersion = "1.0"
)

// ErrUnsupportedVersion is returned when a saved graph was written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported design graph version")

// Storage keeps one saved graph per top module under a directory, so every top of a
// shared source folder can be saved side by side.
type Storage interface {
	Load(top string) (*GraphData, error)
	Save(data *GraphData) error
	Exists(top string) bool
	Tops() ([]string, error)
}

type storage struct {
	graphDir string
	now      func() time.Time
}

// NewStorage creates graphDir if needed.
func NewStorage(graphDir string) (Storage, error) {
	if err := os.MkdirAll(graphDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}
	return &storage{graphDir: graphDir, now: time.Now}, nil
}

// Load returns nil without error when nothing was saved for top.
func (s *storage) Load(top string) (*GraphData, error) {
	data, err := os.ReadFile(s.path(top))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph for %s: %w", top, err)
	}

	var g GraphData
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph for %s: %w", top, err)
	}
	if major(g.Metadata.Version) != major(GraphVersion) {
		return nil, fmt.Errorf("%w: %q (expected %s)", ErrUnsupportedVersion, g.Metadata.Version, GraphVersion)
	}
	if g.Adjacency == nil {
		g.Adjacency = Build(g.Edges, g.Order)
	}
	return &g, nil
}

// Save fills in the metadata and replaces the graph of data.Top. The file is written
// to a temp file in the same directory and renamed into place.
func (s *storage) Save(data *GraphData) error {
	if data.Top == "" {
		return errors.New("design graph has no top module")
	}
	if data.Adjacency == nil {
		data.Adjacency = Build(data.Edges, data.Order)
	}
	data.Metadata = GraphMetadata{
		Version:     GraphVersion,
		GeneratedAt: s.now().UTC(),
		ModuleCount: data.Adjacency.Len(),
		EdgeCount:   len(data.Edges),
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph for %s: %w", data.Top, err)
	}

	tmp, err := os.CreateTemp(s.graphDir, ".graph-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp graph file: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after a successful rename

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp graph file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp graph file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(data.Top)); err != nil {
		return fmt.Errorf("failed to replace graph for %s: %w", data.Top, err)
	}
	return nil
}

func (s *storage) Exists(top string) bool {
	_, err := os.Stat(s.path(top))
	return err == nil
}

// Tops lists the top modules with a saved graph, sorted.
func (s *storage) Tops() ([]string, error) {
	entries, err := os.ReadDir(s.graphDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	tops := []string{}
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), GraphFileSuffix); ok && !e.IsDir() {
			tops = append(tops, unescapeTop(name))
		}
	}
	sort.Strings(tops)
	return tops, nil
}

func (s *storage) path(top string) string {
	return filepath.Join(s.graphDir, escapeTop(top)+GraphFileSuffix)
}

// Module names may carry yosys path characters; keep file names flat.
var topEscaper = strings.NewReplacer("%", "%25", "/", "%2F", `\`, "%5C", ":", "%3A")
var topUnescaper = strings.NewReplacer("%2F", "/", "%5C", `\`, "%3A", ":", "%25", "%")

func escapeTop(top string) string   { return topEscaper.Replace(top) }
func unescapeTop(name string) string { return topUnescaper.Replace(name) }

func major(version string) string {
	m, _, _ := strings.Cut(version, ".")
	return m
}
