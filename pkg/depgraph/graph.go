package depgraph

import (
	"errors"
	"slices"
	"sort"
	"strings"
)

var (
	// ErrInvalidKey is returned by [Graph.AddNode] when the node key is empty.
	ErrInvalidKey = errors.New("node key must not be empty")

	// ErrDuplicateKey is returned by [Graph.AddNode] when a node with the
	// same key already exists.
	ErrDuplicateKey = errors.New("duplicate node key")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// MissingVersion is the version shown for a declared dependency that is not
// part of the graph's source.
const MissingVersion = "?"

// Node is one package.
type Node struct {
	Key     string // normalized name, unique within the graph
	Name    string // display name
	Version string // pinned or installed version; MissingVersion if absent
	// Missing marks a node created only because something depends on it.
	Missing bool
}

// Edge points from a package to one of its dependencies.
type Edge struct {
	From string
	To   string
	// Required is the specifier the dependent places on the dependency, ""
	// meaning any version.
	Required string
}

// Graph is a directed dependency graph. Unlike a lock closure it may contain
// cycles. The zero value is not usable; use [New].
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]Edge
	incoming map[string][]Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
	}
}

// AddNode adds n. Name defaults to Key.
func (g *Graph) AddNode(n Node) error {
	if n.Key == "" {
		return ErrInvalidKey
	}
	if _, exists := g.nodes[n.Key]; exists {
		return ErrDuplicateKey
	}
	if n.Name == "" {
		n.Name = n.Key
	}
	g.nodes[n.Key] = &n
	return nil
}

// AddEdge adds a dependency edge between two existing nodes. A second edge
// between the same pair is ignored.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.ContainsFunc(g.outgoing[e.From], func(x Edge) bool { return x.To == e.To }) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e)
	g.incoming[e.To] = append(g.incoming[e.To], e)
	return nil
}

// addDependency adds an edge from -> to, creating a missing node for an
// unknown target.
func (g *Graph) addDependency(from, to, name, required string) {
	if _, ok := g.nodes[to]; !ok {
		g.nodes[to] = &Node{Key: to, Name: name, Version: MissingVersion, Missing: true}
	}
	_ = g.AddEdge(Edge{From: from, To: to, Required: required})
}

// Node returns the node with the given key.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Nodes returns all nodes sorted by key.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Children returns the dependency edges of key sorted by target.
func (g *Graph) Children(key string) []Edge {
	out := slices.Clone(g.outgoing[key])
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// Parents returns the edges pointing at key sorted by source.
func (g *Graph) Parents(key string) []Edge {
	out := slices.Clone(g.incoming[key])
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// Reverse returns a graph with every edge inverted, so that Children lists
// dependents. Edge.Required keeps the specifier of the original edge.
func (g *Graph) Reverse() *Graph {
	r := New()
	for key, n := range g.nodes {
		cp := *n
		r.nodes[key] = &cp
	}
	for _, e := range g.edges {
		inv := Edge{From: e.To, To: e.From, Required: e.Required}
		r.edges = append(r.edges, inv)
		r.outgoing[inv.From] = append(r.outgoing[inv.From], inv)
		r.incoming[inv.To] = append(r.incoming[inv.To], inv)
	}
	return r
}

// Roots returns the keys of nodes nothing depends on, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for key := range g.nodes {
		if len(g.incoming[key]) == 0 {
			roots = append(roots, key)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns the keys of nodes without dependencies, sorted.
func (g *Graph) Leaves() []string {
	var leaves []string
	for key := range g.nodes {
		if len(g.outgoing[key]) == 0 {
			leaves = append(leaves, key)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Cycles returns every distinct cycle reachable by depth-first search, each
// rotated to start at its smallest key. The result is sorted.
func (g *Graph) Cycles() [][]string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	seen := map[string]bool{}
	var cycles [][]string

	var dfs func(key string)
	dfs = func(key string) {
		color[key] = gray
		stack = append(stack, key)
		for _, e := range g.Children(key) {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				start := slices.Index(stack, e.To)
				cycle := rotate(slices.Clone(stack[start:]))
				id := strings.Join(cycle, "\x00")
				if !seen[id] {
					seen[id] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[key] = black
	}

	for _, n := range g.Nodes() {
		if color[n.Key] == white {
			dfs(n.Key)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], " ") < strings.Join(cycles[j], " ")
	})
	return cycles
}

func rotate(cycle []string) []string {
	minIdx := 0
	for i, k := range cycle {
		if k < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minIdx:]...)
	return append(out, cycle[:minIdx]...)
}
