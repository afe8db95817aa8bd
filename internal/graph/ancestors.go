package graph

// AncestorPolicy selects how ancestor chains are merged when a module has more than
// one parent.
type AncestorPolicy string

const (
	// AllPaths concatenates the chain of every parent, duplicates included.
	AllPaths AncestorPolicy = "all-paths"
	// FirstPath follows only the first parent found at each level.
	FirstPath AncestorPolicy = "first-path"
)

// Valid reports whether p is a known policy.
func (p AncestorPolicy) Valid() bool {
	return p == AllPaths || p == FirstPath
}

// Resolve returns the ancestor chain of module under the policy, without the module
// itself. An unknown policy behaves like AllPaths.
func (p AncestorPolicy) Resolve(module string, adj *Adjacency) []string {
	if p == FirstPath {
		return FirstPathAncestors(module, adj)
	}
	return WithoutSelf(module, Ancestors(module, adj))
}

// Ancestors walks every parent of module, prepending each ancestor's own chain in
// front of the path built so far. A module with two parents therefore yields both
// chains back to back, and shared ancestors show up once per path that reaches them.
// The module itself is the last element.
//
// For top -> {sub1, sub2} and sub2 -> {sub1}, Ancestors("sub1") is
// [top sub2 top sub1].
func Ancestors(module string, adj *Adjacency) []string {
	w := &ancestorWalk{adj: adj, onPath: make(map[string]bool)}
	return w.walk(module, nil)
}

type ancestorWalk struct {
	adj    *Adjacency
	onPath map[string]bool
}

func (w *ancestorWalk) walk(module string, path []string) []string {
	path = append([]string{module}, path...)

	w.onPath[module] = true
	defer delete(w.onPath, module)

	for _, parent := range w.adj.Modules() {
		if !w.adj.dependsOn(parent, module) {
			continue
		}
		// Cyclic input: stop this branch instead of recursing forever
		if w.onPath[parent] {
			continue
		}
		path = w.walk(parent, path)
	}
	return path
}

// WithoutSelf drops every occurrence of module from chain.
func WithoutSelf(module string, chain []string) []string {
	out := make([]string, 0, len(chain))
	for _, m := range chain {
		if m != module {
			out = append(out, m)
		}
	}
	return out
}

// FirstPathAncestors follows the first parent of module (in adjacency key order) up to
// a root. The nearest parent comes first and the module itself is not included.
func FirstPathAncestors(module string, adj *Adjacency) []string {
	visited := map[string]bool{module: true}
	chain := []string{}

	current := module
	for {
		parent, ok := firstParent(current, adj)
		if !ok || visited[parent] {
			return chain
		}
		visited[parent] = true
		chain = append(chain, parent)
		current = parent
	}
}

func firstParent(module string, adj *Adjacency) (string, bool) {
	for _, candidate := range adj.Modules() {
		if adj.dependsOn(candidate, module) {
			return candidate, true
		}
	}
	return "", false
}
