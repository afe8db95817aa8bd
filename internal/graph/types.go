package graph

import (
	"time"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// GraphData is the persisted form of one design's module graph.
type GraphData struct {
	Metadata  GraphMetadata    `json:"_metadata"`
	Top       string           `json:"top"`
	Order     []string         `json:"order"`     // Dependencies first
	Adjacency *Adjacency       `json:"adjacency"` // Module -> direct dependencies
	Edges     []hierarchy.Edge `json:"edges"`
	Cyclic    bool             `json:"cyclic,omitempty"` // Order fell back to first-seen
	Flat      bool             `json:"flat,omitempty"`   // No hierarchy report was available
}

// GraphMetadata describes a saved graph.
type GraphMetadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	ModuleCount int       `json:"module_count"`
	EdgeCount   int       `json:"edge_count"`
}

// ModuleChanges lists modules that appeared or disappeared between two graphs.
type ModuleChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether nothing changed.
func (c ModuleChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// DiffModules compares the module orders of prev and next. A nil prev counts every
// module of next as added.
func DiffModules(prev, next *GraphData) ModuleChanges {
	before := map[string]bool{}
	if prev != nil {
		for _, m := range prev.Order {
			before[m] = true
		}
	}
	after := map[string]bool{}
	changes := ModuleChanges{Added: []string{}, Removed: []string{}}

	for _, m := range next.Order {
		after[m] = true
		if !before[m] {
			changes.Added = append(changes.Added, m)
		}
	}
	if prev != nil {
		for _, m := range prev.Order {
			if !after[m] {
				changes.Removed = append(changes.Removed, m)
			}
		}
	}
	return changes
}
