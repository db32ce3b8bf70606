package resolve

import (
	"context"
	"slices"
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

func (r *resolver) closure(ctx context.Context, st *state, roots []requirement.Requirement) (*Closure, error) {
	c := &Closure{Entries: make(map[string]*Entry, len(st.pins)), Rounds: r.rounds}

	var applicable []requirement.Requirement
	seen := map[string]bool{}
	for _, root := range roots {
		if !root.AppliesTo(r.opts.Environments) {
			continue
		}
		applicable = append(applicable, root)
		if !seen[root.Key()] {
			seen[root.Key()] = true
			c.Roots = append(c.Roots, root.Key())
		}
	}
	sort.Strings(c.Roots)

	hashPins := make(map[string]pep440.Version)
	for name, p := range st.pins {
		d := st.demands[name]
		e := &Entry{
			Name:         name,
			Extras:       d.req.Extras,
			Source:       d.req.Source,
			Editable:     d.req.Editable,
			Hashes:       []string{},
			Dependencies: make(map[string]string),
		}
		if !p.direct {
			e.Version = p.version.String()
			hashPins[name] = p.version
		}
		specs := make(map[string]pep440.Specifiers)
		for i, dep := range p.deps {
			if !p.added[i] || dep.Key() == name {
				continue
			}
			specs[dep.Key()] = specs[dep.Key()].Intersect(dep.Specifiers)
		}
		for dep, s := range specs {
			if s.IsAny() {
				e.Dependencies[dep] = "*"
			} else {
				e.Dependencies[dep] = s.String()
			}
		}
		c.Entries[name] = e
	}

	for name, m := range pathMarkers(st, applicable) {
		if e, ok := c.Entries[name]; ok {
			e.Markers = m
		}
	}

	hashes, err := r.p.HashesAll(ctx, hashPins)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "fetch hashes")
	}
	for name, h := range hashes {
		if h != nil {
			c.Entries[name].Hashes = h
		}
	}
	return c, nil
}

// term is a conjunction of marker atoms, kept sorted by their text.
type term []string

// pathMarkers computes, for every pinned package, the disjunction over all
// paths from a root of the conjunction of markers along the path. Terms that
// are supersets of another term are absorbed, which also makes cycles
// converge. An empty result means the package is needed unconditionally.
func pathMarkers(st *state, roots []requirement.Requirement) map[string]string {
	atoms := make(map[string]*markers.Marker)
	dnf := make(map[string][]term)
	queued := make(map[string]bool)
	var queue []string

	push := func(name string, t term) {
		if addTerm(dnf, name, t) && !queued[name] {
			queued[name] = true
			queue = append(queue, name)
		}
	}
	for _, root := range roots {
		push(root.Key(), extend(nil, root.Marker, atoms))
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		queued[name] = false

		p := st.pins[name]
		if p == nil {
			continue
		}
		for i, dep := range p.deps {
			if !p.added[i] {
				continue
			}
			for _, t := range dnf[name] {
				push(dep.Key(), extend(t, dep.Marker, atoms))
			}
		}
	}

	out := make(map[string]string, len(dnf))
	for name, terms := range dnf {
		out[name] = render(terms, atoms)
	}
	return out
}

func extend(t term, m *markers.Marker, atoms map[string]*markers.Marker) term {
	m = m.WithoutExtras()
	if m == nil {
		return slices.Clone(t)
	}
	s := m.String()
	atoms[s] = m
	if slices.Contains(t, s) {
		return slices.Clone(t)
	}
	out := append(slices.Clone(t), s)
	sort.Strings(out)
	return out
}

// addTerm adds t to the disjunction of name unless an existing term already
// covers it, and drops the terms t covers. It reports whether anything
// changed.
func addTerm(dnf map[string][]term, name string, t term) bool {
	for _, existing := range dnf[name] {
		if subset(existing, t) {
			return false
		}
	}
	kept := dnf[name][:0:0]
	for _, existing := range dnf[name] {
		if !subset(t, existing) {
			kept = append(kept, existing)
		}
	}
	dnf[name] = append(kept, t)
	return true
}

// subset reports whether every atom of a is in b.
func subset(a, b term) bool {
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}

func render(terms []term, atoms map[string]*markers.Marker) string {
	keys := make([]string, 0, len(terms))
	byKey := make(map[string]term, len(terms))
	for _, t := range terms {
		if len(t) == 0 {
			return ""
		}
		k := strings.Join(t, "\x00")
		keys = append(keys, k)
		byKey[k] = t
	}
	sort.Strings(keys)

	var result *markers.Marker
	for i, k := range keys {
		var conj *markers.Marker
		for j, s := range byKey[k] {
			if j == 0 {
				conj = atoms[s]
			} else {
				conj = markers.And(conj, atoms[s])
			}
		}
		if i == 0 {
			result = conj
		} else {
			result = markers.Or(result, conj)
		}
	}
	return result.String()
}
