package render

import (
	"io"

	"github.com/matzehuels/stacklock/pkg/depgraph"
	"github.com/matzehuels/stacklock/pkg/environment"
	stio "github.com/matzehuels/stacklock/pkg/io"
)

const jsonIndent = "    "

type jsonPackage struct {
	Key              string `json:"key"`
	PackageName      string `json:"package_name"`
	InstalledVersion string `json:"installed_version"`
}

type jsonDependency struct {
	Key              string  `json:"key"`
	PackageName      string  `json:"package_name"`
	InstalledVersion string  `json:"installed_version"`
	RequiredVersion  *string `json:"required_version"`
}

type jsonEntry struct {
	Package      jsonPackage      `json:"package"`
	Dependencies []jsonDependency `json:"dependencies"`
}

// JSON writes one object per package, sorted by key, listing its direct
// dependencies. required_version is null when any version is accepted.
// Packages only known as someone's dependency get no entry of their own.
func JSON(w io.Writer, g *depgraph.Graph, showAll bool) error {
	out := []jsonEntry{}
	for _, n := range g.Nodes() {
		if n.Missing || (!showAll && environment.Bookkeeping(n.Key)) {
			continue
		}
		entry := jsonEntry{
			Package:      jsonPackage{Key: n.Key, PackageName: n.Name, InstalledVersion: n.Version},
			Dependencies: []jsonDependency{},
		}
		for _, e := range g.Children(n.Key) {
			dep, _ := g.Node(e.To)
			d := jsonDependency{Key: dep.Key, PackageName: dep.Name, InstalledVersion: dep.Version}
			if e.Required != "" {
				spec := e.Required
				d.RequiredVersion = &spec
			}
			entry.Dependencies = append(entry.Dependencies, d)
		}
		out = append(out, entry)
	}
	return stio.WriteJSON(w, out, jsonIndent)
}

type jsonTreeNode struct {
	Key              string         `json:"key"`
	PackageName      string         `json:"package_name"`
	InstalledVersion string         `json:"installed_version"`
	RequiredVersion  string         `json:"required_version"`
	Dependencies     []jsonTreeNode `json:"dependencies"`
	Cycle            bool           `json:"cycle,omitempty"`
}

// JSONTree writes the forward tree as nested objects. Top-level nodes carry
// their installed version as required_version; nested ones the specifier
// or "Any". A node already on the current path is emitted with no
// dependencies and "cycle": true. Bookkeeping packages are dropped at every level unless
// showAll is set.
func JSONTree(w io.Writer, g *depgraph.Graph, showAll bool) error {
	out := []jsonTreeNode{}
	for _, key := range tops(g) {
		if !showAll && environment.Bookkeeping(key) {
			continue
		}
		n, _ := g.Node(key)
		out = append(out, jsonTreeNode{
			Key:              n.Key,
			PackageName:      n.Name,
			InstalledVersion: n.Version,
			RequiredVersion:  n.Version,
			Dependencies:     tree(g, key, showAll, map[string]bool{key: true}),
		})
	}
	return stio.WriteJSON(w, out, jsonIndent)
}

func tree(g *depgraph.Graph, key string, showAll bool, path map[string]bool) []jsonTreeNode {
	out := []jsonTreeNode{}
	for _, e := range g.Children(key) {
		if !showAll && environment.Bookkeeping(e.To) {
			continue
		}
		child, _ := g.Node(e.To)
		node := jsonTreeNode{
			Key:              child.Key,
			PackageName:      child.Name,
			InstalledVersion: child.Version,
			RequiredVersion:  requiredOrAny(e.Required),
			Dependencies:     []jsonTreeNode{},
		}
		if !path[e.To] {
			path[e.To] = true
			node.Dependencies = tree(g, e.To, showAll, path)
			delete(path, e.To)
		} else {
			node.Cycle = true
		}
		out = append(out, node)
	}
	return out
}
