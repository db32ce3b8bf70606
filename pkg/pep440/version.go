package pep440

import (
	"regexp"
	"strconv"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
)

var versionRE = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|beta|preview|pre|rc|a|b|c)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Version is a parsed PEP 440 version. The zero value is not a valid version;
// use [Parse] or [MustParse].
//
// Post and Dev are -1 when the segment is absent. PreKind is "" when the
// version has no pre-release segment, otherwise one of "a", "b", "rc".
type Version struct {
	Epoch   int
	Release []int
	PreKind string
	PreNum  int
	Post    int
	Dev     int
	Local   []string
}

// Parse parses a PEP 440 version string.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return Version{}, errs.Parse("invalid version %q", s)
	}
	group := func(name string) string { return m[versionRE.SubexpIndex(name)] }

	v := Version{Post: -1, Dev: -1}
	if e := group("epoch"); e != "" {
		v.Epoch = atoi(e)
	}
	for _, part := range strings.Split(group("release"), ".") {
		v.Release = append(v.Release, atoi(part))
	}
	if group("pre") != "" {
		v.PreKind = normalizePre(strings.ToLower(group("pre_l")))
		v.PreNum = atoi(group("pre_n"))
	}
	if group("post") != "" {
		n := group("post_n1")
		if n == "" {
			n = group("post_n2")
		}
		v.Post = atoi(n)
	}
	if group("dev") != "" {
		v.Dev = atoi(group("dev_n"))
	}
	if l := group("local"); l != "" {
		v.Local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '.' || r == '-' || r == '_'
		})
	}
	return v, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

func normalizePre(l string) string {
	switch l {
	case "alpha", "a":
		return "a"
	case "beta", "b":
		return "b"
	default:
		return "rc"
	}
}

// String returns the normalized form, e.g. "1.0rc1" or "2!1.0.post2.dev3+ubuntu.1".
func (v Version) String() string {
	if len(v.Local) == 0 {
		return v.Public()
	}
	return v.Public() + "+" + strings.Join(v.Local, ".")
}

// Public returns the version without its local segment.
func (v Version) Public() string {
	var b strings.Builder
	b.WriteString(epochPrefix(v))
	b.WriteString(joinInts(v.Release))
	if v.PreKind != "" {
		b.WriteString(v.PreKind)
		b.WriteString(strconv.Itoa(v.PreNum))
	}
	if v.Post >= 0 {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(v.Post))
	}
	if v.Dev >= 0 {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(v.Dev))
	}
	return b.String()
}

func epochPrefix(v Version) string {
	if v.Epoch == 0 {
		return ""
	}
	return strconv.Itoa(v.Epoch) + "!"
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ".")
}

// IsPrerelease reports whether v is a pre-release or development release.
func (v Version) IsPrerelease() bool { return v.PreKind != "" || v.Dev >= 0 }

// IsPostrelease reports whether v has a post-release segment.
func (v Version) IsPostrelease() bool { return v.Post >= 0 }

// Base returns epoch and release only.
func (v Version) Base() Version {
	return Version{Epoch: v.Epoch, Release: v.Release, Post: -1, Dev: -1}
}

// WithoutLocal returns v with the local segment dropped.
func (v Version) WithoutLocal() Version {
	v.Local = nil
	return v
}

// Equal reports whether v and o compare equal.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Compare returns -1, 0 or +1. Ordering follows PEP 440: epoch, release with
// trailing zeros ignored, then dev < pre < final < post, then local.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := cmpRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := cmpInt(v.preKey(), o.preKey()); c != 0 {
		return c
	}
	if v.PreKind != "" && o.PreKind != "" {
		if c := cmpInt(v.PreNum, o.PreNum); c != 0 {
			return c
		}
	}
	if c := cmpInt(v.Post, o.Post); c != 0 {
		return c
	}
	if c := cmpInt(v.devKey(), o.devKey()); c != 0 {
		return c
	}
	return cmpLocal(v.Local, o.Local)
}

// preKey ranks the pre-release phase. A dev-only release sorts below every
// pre-release of the same release; a final release sorts above them.
func (v Version) preKey() int {
	switch {
	case v.PreKind == "" && v.Post < 0 && v.Dev >= 0:
		return -1
	case v.PreKind == "a":
		return 1
	case v.PreKind == "b":
		return 2
	case v.PreKind == "rc":
		return 3
	default:
		return 4
	}
}

func (v Version) devKey() int {
	if v.Dev < 0 {
		return int(^uint(0) >> 1)
	}
	return v.Dev
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := range n {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmpInt(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// cmpLocal orders local segments. Numeric segments sort above alphanumeric
// ones; a shorter segment list sorts first when it is a prefix of the other.
func cmpLocal(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aerr := strconv.Atoi(a[i])
		bn, berr := strconv.Atoi(b[i])
		switch {
		case aerr == nil && berr == nil:
			if c := cmpInt(an, bn); c != 0 {
				return c
			}
		case aerr == nil:
			return 1
		case berr == nil:
			return -1
		default:
			if c := strings.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(a), len(b))
}
