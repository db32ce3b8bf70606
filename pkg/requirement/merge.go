package requirement

import (
	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
)

// RootRequester is the requester identity of manifest entries.
const RootRequester = "<root>"

// Merge combines two top-level requirements for the same package.
// See [MergeFrom].
func Merge(a, b Requirement) (Requirement, error) {
	return MergeFrom(a, RootRequester, b, RootRequester)
}

// MergeFrom intersects the specifiers and unions the extras of two
// requirements for the same package. The sources and editable flags must
// agree. A statically empty intersection is a *errors.ConflictError naming
// both requesters.
func MergeFrom(a Requirement, aFrom string, b Requirement, bFrom string) (Requirement, error) {
	conflict := func(reason string) error {
		return &errs.ConflictError{
			Package: a.Key(),
			First:   errs.Requester{From: aFrom, Specifier: a.SpecifierString()},
			Second:  errs.Requester{From: bFrom, Specifier: b.SpecifierString()},
			Reason:  reason,
		}
	}
	if a.Key() != b.Key() {
		return Requirement{}, conflict("different packages " + a.Key() + " and " + b.Key())
	}
	if !a.Source.compatible(b.Source) {
		return Requirement{}, conflict("sources differ (" + a.Source.Kind.String() + " and " + b.Source.Kind.String() + ")")
	}
	if a.Editable != b.Editable {
		return Requirement{}, conflict("editable flags differ")
	}

	merged := a
	merged.Specifiers = a.Specifiers.Intersect(b.Specifiers)
	if !merged.Specifiers.Satisfiable() {
		return Requirement{}, conflict("no version satisfies " + merged.Specifiers.String())
	}
	merged.Extras = UnionExtras(a.Extras, b.Extras)
	merged.Marker = markers.Or(a.Marker, b.Marker)
	if merged.Source.Index == "" {
		merged.Source.Index = b.Source.Index
	}
	return merged, nil
}
