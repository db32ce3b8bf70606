// Package environment lists the packages installed in a Python interpreter.
//
// It is the only part of stacklock that looks at a live interpreter, and it
// only reads: nothing here installs or removes packages. [PipInspect] shells
// out to "python -m pip inspect"; [Installed] is a fixed listing for tests
// and offline use.
package environment

import (
	"context"
	"slices"
	"sort"

	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// Package is one installed distribution.
type Package struct {
	Name     string
	Version  string
	Requires []requirement.Requirement
}

// Key returns the normalized package name.
func (p Package) Key() string { return requirement.Normalize(p.Name) }

// Lister reports the packages installed in an environment.
type Lister interface {
	ListInstalled(ctx context.Context) ([]Package, error)
}

// Installed is a fixed listing.
type Installed []Package

// ListInstalled implements Lister.
func (in Installed) ListInstalled(ctx context.Context) ([]Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(in), nil
}

var bookkeeping = map[string]bool{
	"distribute":    true,
	"pip":           true,
	"pkg-resources": true,
	"setuptools":    true,
	"wheel":         true,
}

// Bookkeeping reports whether name is one of the packaging tools present in
// every environment (pip, setuptools, wheel, distribute, pkg-resources).
// They are hidden from top-level listings and never cleaned.
func Bookkeeping(name string) bool {
	return bookkeeping[requirement.Normalize(name)]
}

// CleanPlan returns the sorted normalized names of installed packages that
// appear in neither section of lf. Bookkeeping packages are never included.
func CleanPlan(installed []Package, lf *lock.Lockfile) []string {
	var out []string
	for _, p := range installed {
		key := p.Key()
		if Bookkeeping(key) {
			continue
		}
		if lf != nil {
			if _, ok := lf.Entry(key); ok {
				continue
			}
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return slices.Compact(out)
}
