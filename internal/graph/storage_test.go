package graph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// Test Plan for design graph storage:
// - Save and Load round trip one graph with metadata filled in
// - Adjacency key order survives the round trip
// - Load of a top that was never saved returns nil without error
// - graphs of several tops live side by side and Tops lists them
// - top names with path characters map to flat file names and back
// - Save leaves no temp file behind and rejects graphs without a top
// - Load rejects graphs from another major version
// - Load rebuilds a missing adjacency from edges and order
// - DiffModules reports added and removed modules

func testGraph() *GraphData {
	edges := []hierarchy.Edge{
		{Parent: "top", Child: "sub1"},
		{Parent: "top", Child: "sub2"},
		{Parent: "sub2", Child: "sub1"},
	}
	return &GraphData{
		Top:       "top",
		Order:     []string{"sub1", "sub2", "top"},
		Adjacency: Build(edges, []string{"top", "sub1", "sub2"}),
		Edges:     edges,
	}
}

func newTestStorage(t *testing.T) (Storage, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "graphs")
	s, err := NewStorage(dir)
	require.NoError(t, err)
	return s, dir
}

func TestStorage_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s, _ := newTestStorage(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.(*storage).now = func() time.Time { return fixed }

	data := testGraph()
	require.NoError(t, s.Save(data))
	assert.True(t, s.Exists("top"))

	loaded, err := s.Load("top")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, GraphVersion, loaded.Metadata.Version)
	assert.Equal(t, 3, loaded.Metadata.ModuleCount)
	assert.Equal(t, 3, loaded.Metadata.EdgeCount)
	assert.True(t, fixed.Equal(loaded.Metadata.GeneratedAt))

	assert.Equal(t, "top", loaded.Top)
	assert.Equal(t, []string{"sub1", "sub2", "top"}, loaded.Order)
	assert.Equal(t, data.Edges, loaded.Edges)
	require.NotNil(t, loaded.Adjacency)
	assert.Equal(t, []string{"top", "sub1", "sub2"}, loaded.Adjacency.Modules())
	assert.Equal(t, []string{"sub1", "sub2"}, loaded.Adjacency.Dependencies("top"))
	assert.Equal(t, []string{"sub1"}, loaded.Adjacency.Dependencies("sub2"))
}

func TestStorage_LoadNonExistent(t *testing.T) {
	t.Parallel()

	s, _ := newTestStorage(t)

	loaded, err := s.Load("top")
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.False(t, s.Exists("top"))
}

func TestStorage_SeveralTops(t *testing.T) {
	t.Parallel()

	s, dir := newTestStorage(t)

	require.NoError(t, s.Save(testGraph()))
	require.NoError(t, s.Save(&GraphData{Top: "alu", Order: []string{"alu"}}))
	require.NoError(t, s.Save(&GraphData{Top: `lib/core\x`, Order: []string{`lib/core\x`}}))

	tops, err := s.Tops()
	require.NoError(t, err)
	assert.Equal(t, []string{"alu", `lib/core\x`, "top"}, tops)

	_, err = os.Stat(filepath.Join(dir, "lib%2Fcore%5Cx"+GraphFileSuffix))
	assert.NoError(t, err)

	loaded, err := s.Load(`lib/core\x`)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, `lib/core\x`, loaded.Top)
}

func TestStorage_NoTempFileLeft(t *testing.T) {
	t.Parallel()

	s, dir := newTestStorage(t)
	require.NoError(t, s.Save(&GraphData{Top: "leaf", Order: []string{"leaf"}}))
	require.NoError(t, s.Save(&GraphData{Top: "leaf", Order: []string{"leaf"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "leaf"+GraphFileSuffix, entries[0].Name())
}

func TestStorage_SaveRequiresTop(t *testing.T) {
	t.Parallel()

	s, _ := newTestStorage(t)
	assert.Error(t, s.Save(&GraphData{Order: []string{"a"}}))
}

func TestStorage_LoadRejectsOtherVersion(t *testing.T) {
	t.Parallel()

	s, dir := newTestStorage(t)
	doc := `{"_metadata":{"version":"2.0"},"top":"top","order":["top"],"edges":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top"+GraphFileSuffix), []byte(doc), 0644))

	_, err := s.Load("top")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestStorage_LoadRebuildsAdjacency(t *testing.T) {
	t.Parallel()

	s, dir := newTestStorage(t)
	doc := `{"_metadata":{"version":"1.0"},"top":"top","order":["leaf","top"],"edges":[{"parent":"top","child":"leaf"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top"+GraphFileSuffix), []byte(doc), 0644))

	loaded, err := s.Load("top")
	require.NoError(t, err)
	require.NotNil(t, loaded.Adjacency)
	assert.Equal(t, []string{"leaf"}, loaded.Adjacency.Dependencies("top"))
}

func TestDiffModules(t *testing.T) {
	t.Parallel()

	prev := &GraphData{Order: []string{"a", "b", "top"}}
	next := &GraphData{Order: []string{"b", "c", "top"}}

	tests := []struct {
		name string
		prev *GraphData
		want ModuleChanges
	}{
		{"changed", prev, ModuleChanges{Added: []string{"c"}, Removed: []string{"a"}}},
		{"first save", nil, ModuleChanges{Added: []string{"b", "c", "top"}, Removed: []string{}}},
		{"unchanged", next, ModuleChanges{Added: []string{}, Removed: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DiffModules(tt.prev, next)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name == "unchanged", got.Empty())
		})
	}
}
