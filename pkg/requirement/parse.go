package requirement

import (
	"net/url"
	"regexp"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
)

var (
	leadingNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)
	urlMarkerRE   = regexp.MustCompile(`\s;`)
)

// Parse parses a single PEP 508 requirement line:
//
//	requests[security,socks]>=2.8.1,<3 ; python_version >= "3.6"
//	django @ https://example.com/django-4.0.tar.gz
//	-e git+https://github.com/psf/requests.git@v2.31.0#egg=requests
//
// Comments after " #" are ignored. Unsafe characters in the name and
// malformed specifiers or markers are rejected with a ParseError.
func Parse(line string) (Requirement, error) {
	raw := line
	line = stripComment(strings.TrimSpace(line))
	if line == "" {
		return Requirement{}, errs.Parse("empty requirement")
	}
	for _, prefix := range []string{"-e ", "--editable "} {
		if strings.HasPrefix(line, prefix) {
			return parseEditable(raw, strings.TrimSpace(line[len(prefix):]))
		}
	}

	name := leadingNameRE.FindString(line)
	if name == "" {
		return Requirement{}, errs.Parse("invalid requirement %q: missing package name", raw)
	}
	name = strings.TrimRight(name, "._-")
	if !ValidName(name) {
		return Requirement{}, errs.Parse("invalid requirement %q: invalid package name %q", raw, name)
	}
	req := Requirement{Name: name}
	rest := strings.TrimSpace(line[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Requirement{}, errs.Parse("invalid requirement %q: unclosed extras", raw)
		}
		extras, err := parseExtras(rest[1:end])
		if err != nil {
			return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
		}
		req.Extras = extras
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		return parseDirectReference(raw, req, strings.TrimSpace(rest[1:]))
	}

	spec, marker, _ := strings.Cut(rest, ";")
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "(") && strings.HasSuffix(spec, ")") {
		spec = strings.TrimSpace(spec[1 : len(spec)-1])
	}
	if spec != "" && !strings.ContainsAny(spec[:1], "<>=!~") {
		return Requirement{}, errs.Parse("invalid requirement %q: unexpected %q after package name", raw, spec)
	}
	specs, err := pep440.ParseSpecifiers(spec)
	if err != nil {
		return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
	}
	req.Specifiers = specs
	if req.Marker, err = markers.Parse(marker); err != nil {
		return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
	}
	return req, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(line string) Requirement {
	r, err := Parse(line)
	if err != nil {
		panic(err)
	}
	return r
}

func stripComment(line string) string {
	if i := strings.Index(line, " #"); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	if strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

func parseExtras(s string) ([]string, error) {
	var out []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !ValidName(e) {
			return nil, errs.Parse("invalid extra %q", e)
		}
		out = append(out, e)
	}
	return normalizeExtras(out), nil
}

func parseDirectReference(raw string, req Requirement, rest string) (Requirement, error) {
	loc, marker := rest, ""
	if idx := urlMarkerRE.FindStringIndex(rest); idx != nil {
		loc, marker = strings.TrimSpace(rest[:idx[0]]), rest[idx[1]:]
	}
	if loc == "" {
		return Requirement{}, errs.Parse("invalid requirement %q: missing URL after @", raw)
	}
	src, _, err := parseLocation(loc)
	if err != nil {
		return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
	}
	req.Source = src
	if req.Marker, err = markers.Parse(marker); err != nil {
		return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
	}
	return req, nil
}

func parseEditable(raw, loc string) (Requirement, error) {
	src, egg, err := parseLocation(loc)
	if err != nil {
		return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
	}
	if src.Kind != SourceVCS && src.Kind != SourcePath {
		return Requirement{}, errs.Parse("invalid requirement %q: editable requires a VCS URL or local path", raw)
	}
	name, extras := egg, []string(nil)
	if open := strings.IndexByte(egg, '['); open >= 0 && strings.HasSuffix(egg, "]") {
		name = egg[:open]
		if extras, err = parseExtras(egg[open+1 : len(egg)-1]); err != nil {
			return Requirement{}, errs.Parse("invalid requirement %q: %s", raw, errs.UserMessage(err))
		}
	}
	if name == "" {
		return Requirement{}, errs.Parse("invalid requirement %q: missing #egg=<name>", raw)
	}
	if !ValidName(name) {
		return Requirement{}, errs.Parse("invalid requirement %q: invalid package name %q", raw, name)
	}
	return Requirement{Name: name, Extras: extras, Source: src, Editable: true}, nil
}

var vcsSchemes = []string{"git", "hg", "svn", "bzr"}

// parseLocation classifies a direct reference and extracts the #egg= name.
func parseLocation(loc string) (Source, string, error) {
	loc, fragment, _ := strings.Cut(loc, "#")
	frag, _ := url.ParseQuery(fragment)
	egg := frag.Get("egg")
	sub := frag.Get("subdirectory")

	for _, vcs := range vcsSchemes {
		if !strings.HasPrefix(loc, vcs+"+") {
			continue
		}
		repo := loc[len(vcs)+1:]
		u, err := url.Parse(repo)
		if err != nil || u.Scheme == "" {
			return Source{}, "", errs.Parse("invalid %s URL %q", vcs, repo)
		}
		ref := ""
		if at := strings.LastIndexByte(u.Path, '@'); at >= 0 {
			ref = u.Path[at+1:]
			repo = strings.TrimSuffix(repo, "@"+ref)
		}
		return Source{Kind: SourceVCS, VCS: vcs, URL: repo, Ref: ref, Subdirectory: sub}, egg, nil
	}

	switch {
	case strings.HasPrefix(loc, "file://"):
		return Source{Kind: SourcePath, Path: strings.TrimPrefix(loc, "file://"), Subdirectory: sub}, egg, nil
	case strings.HasPrefix(loc, "."), strings.HasPrefix(loc, "/"), strings.HasPrefix(loc, "~"):
		return Source{Kind: SourcePath, Path: loc, Subdirectory: sub}, egg, nil
	}
	u, err := url.Parse(loc)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Source{}, "", errs.Parse("unsupported location %q", loc)
	}
	return Source{Kind: SourceURL, URL: loc, Subdirectory: sub}, egg, nil
}
