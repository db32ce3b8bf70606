package pep440

import (
	"slices"
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
)

// Operators recognized in a version specifier.
const (
	OpEqual      = "=="
	OpNotEqual   = "!="
	OpLessEq     = "<="
	OpGreaterEq  = ">="
	OpLess       = "<"
	OpGreater    = ">"
	OpCompatible = "~="
	OpArbitrary  = "==="
)

// operators is ordered longest first so prefix matching is unambiguous.
var operators = []string{OpArbitrary, OpCompatible, OpEqual, OpNotEqual, OpLessEq, OpGreaterEq, OpLess, OpGreater}

// Specifier is a single constraint such as ">=1.0" or "==2.*".
type Specifier struct {
	Op       string
	Raw      string // version text as written, without the operator
	Version  Version
	Wildcard bool
}

// ParseSpecifier parses one clause.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	var op string
	for _, candidate := range operators {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Specifier{}, errs.Parse("invalid specifier %q: missing operator", s)
	}
	raw := strings.TrimSpace(s[len(op):])
	if raw == "" {
		return Specifier{}, errs.Parse("invalid specifier %q: missing version", s)
	}
	spec := Specifier{Op: op, Raw: raw}
	if op == OpArbitrary {
		if v, err := Parse(raw); err == nil {
			spec.Version = v
		}
		return spec, nil
	}

	text := raw
	if strings.HasSuffix(raw, ".*") {
		if op != OpEqual && op != OpNotEqual {
			return Specifier{}, errs.Parse("invalid specifier %q: wildcard only allowed with == and !=", s)
		}
		spec.Wildcard = true
		text = strings.TrimSuffix(raw, ".*")
	}
	v, err := Parse(text)
	if err != nil {
		return Specifier{}, errs.Parse("invalid specifier %q: bad version %q", s, text)
	}
	if spec.Wildcard && (len(v.Local) > 0 || v.Dev >= 0) {
		return Specifier{}, errs.Parse("invalid specifier %q: wildcard with dev or local segment", s)
	}
	if len(v.Local) > 0 && op != OpEqual && op != OpNotEqual {
		return Specifier{}, errs.Parse("invalid specifier %q: local versions only allowed with == and !=", s)
	}
	if op == OpCompatible && len(v.Release) < 2 {
		return Specifier{}, errs.Parse("invalid specifier %q: ~= needs at least two release segments", s)
	}
	spec.Version = v
	return spec, nil
}

// String renders the clause in canonical form.
func (s Specifier) String() string {
	if s.Op == OpArbitrary {
		return s.Op + s.Raw
	}
	if s.Wildcard {
		return s.Op + s.Version.String() + ".*"
	}
	return s.Op + s.Version.String()
}

// explicitPrerelease reports whether the clause names a pre-release, which
// opts the whole set into admitting pre-release candidates.
func (s Specifier) explicitPrerelease() bool {
	switch s.Op {
	case OpEqual, OpGreaterEq, OpLessEq, OpCompatible, OpArbitrary, OpGreater, OpLess:
		return !s.Wildcard && s.Version.Release != nil && s.Version.IsPrerelease()
	}
	return false
}

// Allows reports whether v satisfies this single clause, ignoring the
// pre-release admission policy.
func (s Specifier) Allows(v Version) bool {
	switch s.Op {
	case OpArbitrary:
		return strings.EqualFold(s.Raw, v.String())
	case OpEqual:
		if s.Wildcard {
			return prefixMatch(s.Version, v)
		}
		if len(s.Version.Local) == 0 {
			v = v.WithoutLocal()
		}
		return v.Equal(s.Version)
	case OpNotEqual:
		eq := s
		eq.Op = OpEqual
		return !eq.Allows(v)
	case OpLessEq:
		return v.WithoutLocal().Compare(s.Version) <= 0
	case OpGreaterEq:
		return v.WithoutLocal().Compare(s.Version) >= 0
	case OpLess:
		if v.WithoutLocal().Compare(s.Version) >= 0 {
			return false
		}
		if !s.Version.IsPrerelease() && v.IsPrerelease() && v.Base().Equal(s.Version.Base()) {
			return false
		}
		return true
	case OpGreater:
		if v.WithoutLocal().Compare(s.Version) <= 0 {
			return false
		}
		if !s.Version.IsPostrelease() && v.IsPostrelease() && v.Base().Equal(s.Version.Base()) {
			return false
		}
		if len(v.Local) > 0 && v.Base().Equal(s.Version.Base()) {
			return false
		}
		return true
	case OpCompatible:
		if v.WithoutLocal().Compare(s.Version) < 0 {
			return false
		}
		prefix := Version{Epoch: s.Version.Epoch, Release: s.Version.Release[:len(s.Version.Release)-1], Post: -1, Dev: -1}
		return prefixMatch(prefix, v)
	}
	return false
}

// prefixMatch implements "==prefix.*": epoch equal and the candidate's
// release, zero padded, begins with the prefix release. Pre, post and dev
// segments of the prefix must match exactly when present.
func prefixMatch(prefix, v Version) bool {
	if prefix.Epoch != v.Epoch {
		return false
	}
	for i, n := range prefix.Release {
		var got int
		if i < len(v.Release) {
			got = v.Release[i]
		}
		if got != n {
			return false
		}
	}
	if prefix.PreKind != "" && (prefix.PreKind != v.PreKind || prefix.PreNum != v.PreNum) {
		return false
	}
	if prefix.Post >= 0 && prefix.Post != v.Post {
		return false
	}
	return true
}

// Specifiers is an AND-combination of clauses. The empty set admits any version.
type Specifiers []Specifier

// ParseSpecifiers parses a comma separated list such as ">=1.0,<2". The strings
// "" and "*" yield the empty set.
func ParseSpecifiers(s string) (Specifiers, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return nil, nil
	}
	var out Specifiers
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			return nil, errs.Parse("invalid specifier %q: empty clause", s)
		}
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out.dedupe(), nil
}

// MustParseSpecifiers is like [ParseSpecifiers] but panics on error.
func MustParseSpecifiers(s string) Specifiers {
	specs, err := ParseSpecifiers(s)
	if err != nil {
		panic(err)
	}
	return specs
}

// String renders the set sorted, comma separated, e.g. "<2,>=1.0".
// The empty set renders as "".
func (ss Specifiers) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// IsAny reports whether the set has no clauses.
func (ss Specifiers) IsAny() bool { return len(ss) == 0 }

// Intersect returns the conjunction of both sets.
func (ss Specifiers) Intersect(other Specifiers) Specifiers {
	out := make(Specifiers, 0, len(ss)+len(other))
	out = append(out, ss...)
	out = append(out, other...)
	return out.dedupe()
}

func (ss Specifiers) dedupe() Specifiers {
	if len(ss) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ss))
	out := ss[:0:0]
	for _, s := range ss {
		key := s.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Prereleases reports whether any clause explicitly names a pre-release.
func (ss Specifiers) Prereleases() bool {
	return slices.ContainsFunc(ss, Specifier.explicitPrerelease)
}

// Contains reports whether v satisfies every clause. Pre-release candidates
// are rejected unless allowPre is set or a clause names a pre-release.
func (ss Specifiers) Contains(v Version, allowPre bool) bool {
	if v.IsPrerelease() && !allowPre && !ss.Prereleases() {
		return false
	}
	for _, s := range ss {
		if !s.Allows(v) {
			return false
		}
	}
	return true
}

// Filter returns the versions in vs that satisfy the set, preserving order.
// When no final release matches and allowPre is false, matching
// pre-releases are returned instead.
func (ss Specifiers) Filter(vs []Version, allowPre bool) []Version {
	var out, pre []Version
	for _, v := range vs {
		if ss.Contains(v, true) {
			if v.IsPrerelease() && !allowPre && !ss.Prereleases() {
				pre = append(pre, v)
				continue
			}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return pre
	}
	return out
}
