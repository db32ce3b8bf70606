package lock

import (
	"maps"
	"slices"

	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// FileName is the lock artifact written next to the manifest.
const FileName = "Pipfile.lock"

// PipfileSpec is the lock format revision written to _meta.
const PipfileSpec = 6

// Section names as they appear in the lock artifact.
const (
	SectionDefault = "default"
	SectionDevelop = "develop"
)

// Meta is the _meta block of a lock artifact.
type Meta struct {
	// Hash is the manifest fingerprint the artifact was computed from.
	Hash        string
	PipfileSpec int
	Requires    map[string]any
	Sources     []manifest.Source
}

// Lockfile is a decoded lock artifact. Both sections are always non-nil.
// Roots are not persisted, so decoded closures have none.
type Lockfile struct {
	Meta    Meta
	Default *resolve.Closure
	Develop *resolve.Closure
}

// New builds a lock artifact from the resolved sections of m. Index entries
// without an explicit index are attributed to the first manifest source, and
// develop entries that also appear in default are replaced by the default
// entry so both sections agree on a package.
func New(def, dev *resolve.Closure, m *manifest.Manifest) *Lockfile {
	sources := m.Sources()
	lf := &Lockfile{
		Meta: Meta{
			Hash:        m.Fingerprint(),
			PipfileSpec: PipfileSpec,
			Requires:    maps.Clone(m.Requires()),
			Sources:     sources,
		},
		Default: cloneClosure(def, sources[0].Name),
		Develop: cloneClosure(dev, sources[0].Name),
	}
	overwriteWithDefault(lf.Default, lf.Develop)
	return lf
}

// Section returns the closure stored under name ("default" or "develop"),
// or nil for any other name.
func (lf *Lockfile) Section(name string) *resolve.Closure {
	switch name {
	case SectionDefault:
		return lf.Default
	case SectionDevelop:
		return lf.Develop
	}
	return nil
}

// Entry looks name up in default first, then develop.
func (lf *Lockfile) Entry(name string) (*resolve.Entry, bool) {
	if e, ok := lf.Default.Entries[name]; ok {
		return e, true
	}
	e, ok := lf.Develop.Entries[name]
	return e, ok
}

func overwriteWithDefault(def, dev *resolve.Closure) {
	for name := range dev.Entries {
		if e, ok := def.Entries[name]; ok {
			dev.Entries[name] = cloneEntry(e)
		}
	}
}

func cloneClosure(c *resolve.Closure, index string) *resolve.Closure {
	out := &resolve.Closure{Entries: map[string]*resolve.Entry{}}
	if c == nil {
		return out
	}
	out.Roots = slices.Clone(c.Roots)
	out.Rounds = c.Rounds
	for name, e := range c.Entries {
		cp := cloneEntry(e)
		if cp.Version != "" && cp.Source.Index == "" {
			cp.Source.Index = index
		}
		out.Entries[name] = cp
	}
	return out
}

func cloneEntry(e *resolve.Entry) *resolve.Entry {
	cp := *e
	cp.Extras = slices.Clone(e.Extras)
	cp.Hashes = slices.Clone(e.Hashes)
	cp.Dependencies = maps.Clone(e.Dependencies)
	return &cp
}
