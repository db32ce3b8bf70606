package depgraph

import (
	"sort"

	"github.com/matzehuels/stacklock/pkg/environment"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// FromClosure builds the graph of a resolved closure.
func FromClosure(c *resolve.Closure) *Graph {
	g := New()
	addEntries(g, c.Entries)
	addEntryEdges(g, c.Entries)
	return g
}

// FromLock builds the graph of the given lock sections, default and develop
// when none are named. Sections are merged; a package in several sections is
// one node.
func FromLock(lf *lock.Lockfile, sections ...string) *Graph {
	if len(sections) == 0 {
		sections = []string{lock.SectionDefault, lock.SectionDevelop}
	}
	g := New()
	for _, s := range sections {
		if c := lf.Section(s); c != nil {
			addEntries(g, c.Entries)
		}
	}
	for _, s := range sections {
		if c := lf.Section(s); c != nil {
			addEntryEdges(g, c.Entries)
		}
	}
	return g
}

// DisplayNames restores the spelling of names, such as the keys of a
// Pipfile, on the nodes they normalize to. Lock entries only carry the
// normalized name. Names with no node are ignored.
func (g *Graph) DisplayNames(names ...string) {
	for _, name := range names {
		if n, ok := g.nodes[requirement.Normalize(name)]; ok {
			n.Name = name
		}
	}
}

// FromInstalled builds the graph of an installed-package listing. A
// requirement is an edge when its marker holds in env with no extra
// requested; with a nil env only extra markers are evaluated.
func FromInstalled(pkgs []environment.Package, env markers.Environment) *Graph {
	g := New()
	for _, p := range pkgs {
		_ = g.AddNode(Node{Key: p.Key(), Name: p.Name, Version: p.Version})
	}
	for _, p := range pkgs {
		for _, r := range p.Requires {
			if !installedApplies(r, env) {
				continue
			}
			required := ""
			if !r.Specifiers.IsAny() {
				required = r.Specifiers.String()
			}
			g.addDependency(p.Key(), r.Key(), r.Name, required)
		}
	}
	return g
}

func installedApplies(r requirement.Requirement, env markers.Environment) bool {
	if r.Marker == nil {
		return true
	}
	if env == nil {
		return len(r.Marker.Extras()) == 0
	}
	return r.Marker.Evaluate(env.With("extra", ""))
}

func addEntries(g *Graph, entries map[string]*resolve.Entry) {
	for name, e := range entries {
		version := e.Version
		if version == "" {
			version = MissingVersion
		}
		_ = g.AddNode(Node{Key: name, Name: e.Name, Version: version})
	}
}

func addEntryEdges(g *Graph, entries map[string]*resolve.Entry) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		deps := entries[name].Dependencies
		targets := make([]string, 0, len(deps))
		for dep := range deps {
			targets = append(targets, dep)
		}
		sort.Strings(targets)
		for _, dep := range targets {
			required := deps[dep]
			if required == "*" {
				required = ""
			}
			g.addDependency(name, dep, dep, required)
		}
	}
}
