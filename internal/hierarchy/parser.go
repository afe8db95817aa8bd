// Package hierarchy parses the module hierarchy report printed by the yosys
// HIERARCHY pass into instantiation edges and the set of modules it mentions.
package hierarchy

import (
	"bufio"
	"strings"
)

// Report labels emitted by the yosys HIERARCHY pass.
const (
	TopLabel  = "Top module:"
	UsedLabel = "Used module:"
)

// Edge is a "parent instantiates child" relationship.
type Edge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Result holds everything recovered from one hierarchy report.
type Result struct {
	Top     string   `json:"top"`     // Root module, empty when no root line was seen
	Edges   []Edge   `json:"edges"`   // Deduplicated, first-seen order
	Modules []string `json:"modules"` // Every module mentioned, first-seen order
}

// Empty reports whether the report contained no root declaration.
// Callers treat this as "extraction failed upstream", not as an error.
func (r *Result) Empty() bool {
	return r.Top == ""
}

// frame is one open module on the nesting stack.
type frame struct {
	name  string
	depth int
}

// parser accumulates edges and modules while walking report lines.
type parser struct {
	stack     []frame
	edges     []Edge
	edgeSeen  map[Edge]bool
	modules   []string
	moduleSet map[string]bool
	lastDepth int
	started   bool
	top       string
}

// Parse reconstructs the module tree from an indentation-encoded hierarchy report.
//
// Each module line is tagged with its depth (leading whitespace once the label is
// removed). A deeper line is a child of the stack top, an equal line replaces its
// sibling, and a shallower line pops until the stack top is strictly shallower.
// Parsing stops at the first blank line after the root line.
func Parse(report string) *Result {
	p := &parser{
		edgeSeen:  make(map[Edge]bool),
		moduleSet: make(map[string]bool),
	}

	scanner := bufio.NewScanner(strings.NewReader(report))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if done := p.line(scanner.Text()); done {
			break
		}
	}

	edges := p.edges
	if edges == nil {
		edges = []Edge{}
	}
	modules := p.modules
	if modules == nil {
		modules = []string{}
	}
	return &Result{Top: p.top, Edges: edges, Modules: modules}
}

// line processes one report line and returns true once the section has ended.
func (p *parser) line(line string) bool {
	if name, depth, ok := cutLabel(line, TopLabel); ok {
		p.addModule(name)
		p.top = name
		p.stack = []frame{{name: name, depth: depth}}
		p.lastDepth = depth
		p.started = true
		return false
	}

	if p.started {
		if name, depth, ok := cutLabel(line, UsedLabel); ok {
			p.used(name, depth)
			return false
		}
		if strings.TrimSpace(line) == "" {
			p.pop()
			p.started = false
			return true
		}
	}
	return false
}

// used places a "Used module" line into the tree according to its depth.
func (p *parser) used(name string, depth int) {
	p.addModule(name)

	switch {
	case depth > p.lastDepth:
		if top, ok := p.peek(); ok {
			p.addEdge(top.name, name)
		}
	case depth == p.lastDepth:
		// Sibling of the previous entry
		p.pop()
		if top, ok := p.peek(); ok {
			p.addEdge(top.name, name)
		}
	default:
		for {
			top, ok := p.peek()
			if !ok || top.depth < depth {
				break
			}
			p.pop()
		}
		if top, ok := p.peek(); ok {
			p.addEdge(top.name, name)
		}
	}

	p.stack = append(p.stack, frame{name: name, depth: depth})
	p.lastDepth = depth
}

func (p *parser) peek() (frame, bool) {
	if len(p.stack) == 0 {
		return frame{}, false
	}
	return p.stack[len(p.stack)-1], true
}

func (p *parser) pop() {
	if len(p.stack) > 0 {
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *parser) addModule(name string) {
	if name == "" || p.moduleSet[name] {
		return
	}
	p.moduleSet[name] = true
	p.modules = append(p.modules, name)
}

func (p *parser) addEdge(parent, child string) {
	if parent == "" || child == "" {
		return
	}
	e := Edge{Parent: parent, Child: child}
	if p.edgeSeen[e] {
		return
	}
	p.edgeSeen[e] = true
	p.edges = append(p.edges, e)
}

// cutLabel returns the normalized module name following label and the line's depth.
// Depth is the leading whitespace once the label is removed, so indentation on
// either side of the label counts.
func cutLabel(line, label string) (name string, depth int, ok bool) {
	idx := strings.Index(line, label)
	if idx < 0 {
		return "", 0, false
	}
	rest := line[idx+len(label):]
	return NormalizeName(rest), leadingWhitespace(line[:idx] + rest), true
}

// leadingWhitespace counts leading spaces and tabs.
func leadingWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}
