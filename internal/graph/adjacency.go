package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// Adjacency maps every module to the modules it instantiates directly. The zero
// value is an empty mapping ready to use. Keys and dependency lists keep first-seen
// order so walks over the mapping are deterministic.
type Adjacency struct {
	keys []string
	deps map[string][]string
}

// NewAdjacency creates an empty mapping.
func NewAdjacency() *Adjacency {
	return &Adjacency{deps: make(map[string][]string)}
}

// Build converts parsed edges and modules into an Adjacency.
// Every module starts with an empty dependency list; each edge appends its child to
// the parent's list unless already present.
func Build(edges []hierarchy.Edge, modules []string) *Adjacency {
	a := NewAdjacency()
	for _, m := range modules {
		a.AddModule(m)
	}
	for _, e := range edges {
		a.AddDependency(e.Parent, e.Child)
	}
	return a
}

// AddModule registers a module with no dependencies. Existing entries are kept.
func (a *Adjacency) AddModule(name string) {
	if a.deps == nil {
		a.deps = make(map[string][]string)
	}
	if _, ok := a.deps[name]; ok {
		return
	}
	a.keys = append(a.keys, name)
	a.deps[name] = []string{}
}

// AddDependency records that parent instantiates child.
// Both modules are registered if they were not seen before.
func (a *Adjacency) AddDependency(parent, child string) {
	a.AddModule(parent)
	a.AddModule(child)
	for _, existing := range a.deps[parent] {
		if existing == child {
			return
		}
	}
	a.deps[parent] = append(a.deps[parent], child)
}

// Modules returns all keys in first-seen order.
func (a *Adjacency) Modules() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Dependencies returns the direct dependencies of name, or nil if it is unknown.
func (a *Adjacency) Dependencies(name string) []string {
	deps, ok := a.deps[name]
	if !ok {
		return nil
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Has reports whether name is a key.
func (a *Adjacency) Has(name string) bool {
	_, ok := a.deps[name]
	return ok
}

// Len returns the number of modules.
func (a *Adjacency) Len() int {
	return len(a.keys)
}

// dependsOn reports whether parent lists child directly.
func (a *Adjacency) dependsOn(parent, child string) bool {
	for _, d := range a.deps[parent] {
		if d == child {
			return true
		}
	}
	return false
}

// Map returns a plain copy of the mapping.
func (a *Adjacency) Map() map[string][]string {
	out := make(map[string][]string, len(a.keys))
	for _, k := range a.keys {
		out[k] = a.Dependencies(k)
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object with keys in first-seen order.
func (a *Adjacency) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.deps[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the key order of the document.
func (a *Adjacency) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("adjacency: expected object, got %v", tok)
	}

	type entry struct {
		key  string
		deps []string
	}
	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("adjacency: expected key, got %v", tok)
		}
		var deps []string
		if err := dec.Decode(&deps); err != nil {
			return fmt.Errorf("adjacency: dependencies of %s: %w", key, err)
		}
		entries = append(entries, entry{key: key, deps: deps})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	// Keys first so dependency-only names do not jump ahead of their own entry
	*a = Adjacency{deps: make(map[string][]string)}
	for _, e := range entries {
		a.AddModule(e.key)
	}
	for _, e := range entries {
		for _, d := range e.deps {
			a.AddDependency(e.key, d)
		}
	}
	return nil
}
