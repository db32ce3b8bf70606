package lock

import (
	"slices"
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// Requirements renders sections of lf in requirements.txt form. The first
// line selects the primary index, further sources become extra indexes, and
// every entry follows sorted by name:
//
//	-i https://pypi.org/simple
//	certifi==2024.2.2; python_version >= '3.6' --hash=sha256:...
//
// A package present in several sections is written once.
func Requirements(lf *Lockfile, withHashes bool, sections ...string) ([]string, error) {
	var lines []string
	for i, src := range lf.Meta.Sources {
		if i == 0 {
			lines = append(lines, "-i "+src.URL)
		} else {
			lines = append(lines, "--extra-index-url "+src.URL)
		}
	}

	entries := map[string]*resolve.Entry{}
	for _, section := range sections {
		c := lf.Section(section)
		if c == nil {
			return nil, errs.Usage("unknown lock section %q", section)
		}
		for name, e := range c.Entries {
			if _, seen := entries[name]; !seen {
				entries[name] = e
			}
		}
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		line, err := requirementLine(entries[name], withHashes)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func requirementLine(e *resolve.Entry, withHashes bool) (string, error) {
	req := requirement.Requirement{
		Name:     e.Name,
		Extras:   e.Extras,
		Source:   e.Source,
		Editable: e.Editable,
	}
	if e.Version != "" {
		spec, err := pep440.ParseSpecifiers("==" + e.Version)
		if err != nil {
			return "", err
		}
		req.Specifiers = spec
	}
	if e.Markers != "" {
		m, err := markers.Parse(e.Markers)
		if err != nil {
			return "", err
		}
		req.Marker = m
	}

	var b strings.Builder
	b.WriteString(req.String())
	if withHashes && e.Version != "" {
		hashes := slices.Clone(e.Hashes)
		slices.Sort(hashes)
		for _, h := range hashes {
			b.WriteString(" --hash=")
			b.WriteString(h)
		}
	}
	return b.String(), nil
}
