// Package design turns a folder of Verilog sources and a top module into an ordered
// set of per-module records: it runs yosys for the hierarchy report, builds the
// dependency graph, orders it and extracts every module's text.
package design

import (
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// ModuleRecord is one module ready for downstream analysis.
type ModuleRecord struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
	Text         string   `json:"verilog_code"`
}

// Design is a prepared design.
type Design struct {
	Top       string           `json:"top"`
	Order     []string         `json:"order"` // Dependencies first
	Adjacency *graph.Adjacency `json:"adjacency"`
	Edges     []hierarchy.Edge `json:"edges"`
	Records   []ModuleRecord   `json:"records"`           // In Order, extracted modules only
	Missing   []string         `json:"missing,omitempty"` // Ordered modules with no extractable text
	Files     []string         `json:"files,omitempty"`   // Sources that were combined
	Flat      bool             `json:"flat,omitempty"`    // No hierarchy report, modules taken from the source
	Cyclic    bool             `json:"cyclic,omitempty"`  // Order is first-seen, not topological
	Cached    bool             `json:"-"`                 // Report came from the cache
}

// Record returns the record for name.
func (d *Design) Record(name string) (ModuleRecord, bool) {
	for _, r := range d.Records {
		if r.Name == name {
			return r, true
		}
	}
	return ModuleRecord{}, false
}

// Ancestors resolves the ancestor chain of module with the given policy.
func (d *Design) Ancestors(module string, policy graph.AncestorPolicy) []string {
	return policy.Resolve(module, d.Adjacency)
}

// GraphData converts the design into its persisted graph form.
func (d *Design) GraphData() *graph.GraphData {
	return &graph.GraphData{
		Top:       d.Top,
		Order:     d.Order,
		Adjacency: d.Adjacency,
		Edges:     d.Edges,
		Cyclic:    d.Cyclic,
		Flat:      d.Flat,
	}
}
