package requirement

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
)

// SourceKind tells where a requirement's distributions come from.
type SourceKind int

const (
	SourceIndex SourceKind = iota // a package index (the default)
	SourceVCS                     // a version control checkout
	SourcePath                    // a local directory or archive
	SourceURL                     // a remote archive URL
)

func (k SourceKind) String() string {
	switch k {
	case SourceVCS:
		return "vcs"
	case SourcePath:
		return "path"
	case SourceURL:
		return "url"
	}
	return "index"
}

// Source describes where to obtain a package. For SourceIndex, Index names
// the configured index ("" means the default). For SourceVCS, VCS is the
// system ("git", "hg", "svn", "bzr"), URL the repository and Ref an optional
// revision.
type Source struct {
	Kind         SourceKind
	Index        string
	VCS          string
	URL          string
	Ref          string
	Path         string
	Subdirectory string
}

// compatible reports whether two sources may be merged. An unnamed index is
// compatible with any named one.
func (s Source) compatible(o Source) bool {
	if s.Kind == SourceIndex && o.Kind == SourceIndex {
		return s.Index == "" || o.Index == "" || s.Index == o.Index
	}
	return s == o
}

// Requirement is one dependency declaration.
type Requirement struct {
	Name       string
	Specifiers pep440.Specifiers
	Extras     []string // normalized, sorted
	Marker     *markers.Marker
	Source     Source
	Editable   bool
}

// Key returns the normalized identity of the requirement.
func (r Requirement) Key() string { return Normalize(r.Name) }

var normalizeRE = regexp.MustCompile(`[-_.]+`)

// Normalize returns the PEP 503 normalized form of a package or extra name.
func Normalize(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// ValidName reports whether name is a syntactically valid package name.
func ValidName(name string) bool { return nameRE.MatchString(name) }

// HasExtra reports whether extra (in any spelling) was requested.
func (r Requirement) HasExtra(extra string) bool {
	return slices.Contains(r.Extras, Normalize(extra))
}

// AppliesTo reports whether the marker holds in at least one environment.
// Extra gates are ignored; they are decided by the requester.
func (r Requirement) AppliesTo(envs []markers.Environment) bool {
	return r.Marker.WithoutExtras().EvaluateAny(envs)
}

// Matches reports whether version v satisfies the specifier and the marker
// holds in env.
func (r Requirement) Matches(v pep440.Version, env markers.Environment) bool {
	return r.Specifiers.Contains(v, true) && r.Marker.Evaluate(env)
}

// IsPinned reports whether the requirement is an exact "==" pin on an index.
func (r Requirement) IsPinned() bool {
	return len(r.Specifiers) == 1 && r.Specifiers[0].Op == pep440.OpEqual && !r.Specifiers[0].Wildcard
}

// SpecifierString renders the version constraint, or "*" when there is none.
func (r Requirement) SpecifierString() string {
	if r.Specifiers.IsAny() {
		return "*"
	}
	return r.Specifiers.String()
}

// String renders the requirement as a PEP 508 line.
func (r Requirement) String() string {
	var b strings.Builder
	if r.Editable {
		b.WriteString("-e ")
		b.WriteString(r.location())
		b.WriteString("#egg=")
		b.WriteString(r.Name)
		return b.String()
	}
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.Source.Kind != SourceIndex {
		b.WriteString(" @ ")
		b.WriteString(r.location())
		if r.Marker != nil {
			b.WriteString(" ; ")
			b.WriteString(r.Marker.String())
		}
		return b.String()
	}
	b.WriteString(r.Specifiers.String())
	if r.Marker != nil {
		b.WriteString("; ")
		b.WriteString(r.Marker.String())
	}
	return b.String()
}

func (r Requirement) location() string {
	switch r.Source.Kind {
	case SourceVCS:
		loc := r.Source.VCS + "+" + r.Source.URL
		if r.Source.Ref != "" {
			loc += "@" + r.Source.Ref
		}
		return loc
	case SourcePath:
		return r.Source.Path
	}
	return r.Source.URL
}

func normalizeExtras(extras []string) []string {
	if len(extras) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(extras))
	var out []string
	for _, e := range extras {
		n := Normalize(e)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// UnionExtras returns the sorted union of two extras lists.
func UnionExtras(a, b []string) []string {
	return normalizeExtras(append(append([]string(nil), a...), b...))
}
