package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/stacklock/pkg/depgraph"
	"github.com/matzehuels/stacklock/pkg/environment"
)

const cycleSuffix = " (cycle)"

// Text writes the forward dependency tree:
//
//	tablib==0.13.0
//	  - openpyxl [required: >=2.4.0, installed: 2.5.4]
//	    - et-xmlfile [required: Any, installed: 1.0.1]
//
// Top-level entries are the packages nothing depends on, followed by any
// package only reachable through a cycle. Bookkeeping packages are left out
// of the top level unless showAll is set. A package already on the current
// path is printed with a " (cycle)" suffix and not expanded.
func Text(w io.Writer, g *depgraph.Graph, showAll bool) error {
	bw := bufio.NewWriter(w)
	for _, key := range tops(g) {
		if !showAll && environment.Bookkeeping(key) {
			continue
		}
		n, _ := g.Node(key)
		fmt.Fprintf(bw, "%s==%s\n", n.Name, n.Version)
		forward(bw, g, key, 1, map[string]bool{key: true})
	}
	return bw.Flush()
}

func forward(w *bufio.Writer, g *depgraph.Graph, key string, depth int, path map[string]bool) {
	indent := strings.Repeat("  ", depth)
	for _, e := range g.Children(key) {
		child, _ := g.Node(e.To)
		line := fmt.Sprintf("%s- %s [required: %s, installed: %s]", indent, child.Name, requiredOrAny(e.Required), child.Version)
		if path[e.To] {
			fmt.Fprintln(w, line+cycleSuffix)
			continue
		}
		fmt.Fprintln(w, line)
		path[e.To] = true
		forward(w, g, e.To, depth+1, path)
		delete(path, e.To)
	}
}

// ReverseText writes the inverted tree, starting from packages without
// dependencies and listing who requires them:
//
//	et-xmlfile==1.0.1
//	  - openpyxl==2.5.4 [requires: et-xmlfile]
//	    - tablib==0.13.0 [requires: openpyxl>=2.4.0]
//
// Bookkeeping packages are shown.
func ReverseText(w io.Writer, g *depgraph.Graph) error {
	r := g.Reverse()
	bw := bufio.NewWriter(w)
	for _, key := range tops(r) {
		n, _ := r.Node(key)
		fmt.Fprintf(bw, "%s==%s\n", n.Name, n.Version)
		reverse(bw, r, key, 1, map[string]bool{key: true})
	}
	return bw.Flush()
}

func reverse(w *bufio.Writer, r *depgraph.Graph, key string, depth int, path map[string]bool) {
	indent := strings.Repeat("  ", depth)
	required, _ := r.Node(key)
	for _, e := range r.Children(key) {
		dependent, _ := r.Node(e.To)
		line := fmt.Sprintf("%s- %s==%s [requires: %s%s]", indent, dependent.Name, dependent.Version, required.Name, e.Required)
		if path[e.To] {
			fmt.Fprintln(w, line+cycleSuffix)
			continue
		}
		fmt.Fprintln(w, line)
		path[e.To] = true
		reverse(w, r, e.To, depth+1, path)
		delete(path, e.To)
	}
}

// tops returns the roots of g followed, in key order, by a representative of
// every part of the graph the roots do not reach.
func tops(g *depgraph.Graph) []string {
	roots := g.Roots()
	seen := make(map[string]bool, g.NodeCount())
	var mark func(string)
	mark = func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		for _, e := range g.Children(key) {
			mark(e.To)
		}
	}
	for _, key := range roots {
		mark(key)
	}
	out := roots
	for _, n := range g.Nodes() {
		if !seen[n.Key] && !n.Missing {
			out = append(out, n.Key)
			mark(n.Key)
		}
	}
	return out
}

func requiredOrAny(spec string) string {
	if spec == "" {
		return "Any"
	}
	return spec
}
