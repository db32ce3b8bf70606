package requirement

import (
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
)

// FromPipfile converts one manifest entry into a Requirement. value is either
// a specifier string ("*", ">=1.0,<2") or a table with the keys version,
// extras, markers, index, editable, git/hg/svn/bzr, ref, path, file and
// subdirectory. Marker variables may also appear as keys, e.g.
// sys_platform = "== 'win32'".
func FromPipfile(name string, value any) (Requirement, error) {
	if !ValidName(name) {
		return Requirement{}, errs.Parse("invalid package name %q", name)
	}
	req := Requirement{Name: name}

	switch v := value.(type) {
	case string:
		specs, err := parseSpecString(name, v)
		if err != nil {
			return Requirement{}, err
		}
		req.Specifiers = specs
		return req, nil
	case map[string]any:
		return fromTable(req, v)
	}
	return Requirement{}, errs.Parse("invalid entry for %s: unsupported value %v", name, value)
}

func parseSpecString(name, s string) (pep440.Specifiers, error) {
	specs, err := pep440.ParseSpecifiers(s)
	if err != nil {
		return nil, errs.Parse("invalid entry for %s: %s", name, errs.UserMessage(err))
	}
	return specs, nil
}

func fromTable(req Requirement, table map[string]any) (Requirement, error) {
	name := req.Name
	str := func(key string) (string, error) {
		raw, ok := table[key]
		if !ok {
			return "", nil
		}
		s, ok := raw.(string)
		if !ok {
			return "", errs.Parse("invalid entry for %s: %s must be a string", name, key)
		}
		return s, nil
	}

	version, err := str("version")
	if err != nil {
		return Requirement{}, err
	}
	if req.Specifiers, err = parseSpecString(name, version); err != nil {
		return Requirement{}, err
	}

	if raw, ok := table["extras"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return Requirement{}, errs.Parse("invalid entry for %s: extras must be a list", name)
		}
		var extras []string
		for _, e := range list {
			s, ok := e.(string)
			if !ok || !ValidName(s) {
				return Requirement{}, errs.Parse("invalid entry for %s: invalid extra %v", name, e)
			}
			extras = append(extras, s)
		}
		req.Extras = normalizeExtras(extras)
	}

	if raw, ok := table["editable"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return Requirement{}, errs.Parse("invalid entry for %s: editable must be a boolean", name)
		}
		req.Editable = b
	}

	marker, err := tableMarker(name, table)
	if err != nil {
		return Requirement{}, err
	}
	req.Marker = marker

	ref, err := str("ref")
	if err != nil {
		return Requirement{}, err
	}
	sub, err := str("subdirectory")
	if err != nil {
		return Requirement{}, err
	}
	index, err := str("index")
	if err != nil {
		return Requirement{}, err
	}
	req.Source = Source{Kind: SourceIndex, Index: index}
	for _, vcs := range vcsSchemes {
		repo, err := str(vcs)
		if err != nil {
			return Requirement{}, err
		}
		if repo != "" {
			req.Source = Source{Kind: SourceVCS, VCS: vcs, URL: repo, Ref: ref, Subdirectory: sub}
		}
	}
	if path, err := str("path"); err != nil {
		return Requirement{}, err
	} else if path != "" {
		req.Source = Source{Kind: SourcePath, Path: path, Subdirectory: sub}
	}
	if file, err := str("file"); err != nil {
		return Requirement{}, err
	} else if file != "" {
		req.Source = Source{Kind: SourceURL, URL: file, Subdirectory: sub}
	}
	if req.Editable && req.Source.Kind != SourceVCS && req.Source.Kind != SourcePath {
		return Requirement{}, errs.Parse("invalid entry for %s: editable requires a VCS URL or local path", name)
	}
	return req, nil
}

// tableMarker combines the markers key with any marker variables used as
// keys, in sorted key order.
func tableMarker(name string, table map[string]any) (*markers.Marker, error) {
	var parts []string
	if raw, ok := table["markers"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, errs.Parse("invalid entry for %s: markers must be a string", name)
		}
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	var keys []string
	for key := range table {
		if markers.Variables[key] && key != "extra" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		s, ok := table[key].(string)
		if !ok {
			return nil, errs.Parse("invalid entry for %s: %s must be a string", name, key)
		}
		parts = append(parts, key+" "+strings.TrimSpace(s))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	var expr string
	if len(parts) == 1 {
		expr = parts[0]
	} else {
		expr = "(" + strings.Join(parts, ") and (") + ")"
	}
	m, err := markers.Parse(expr)
	if err != nil {
		return nil, errs.Parse("invalid entry for %s: %s", name, errs.UserMessage(err))
	}
	return m, nil
}

// PipfileValue converts r into the value stored under its name in a
// manifest section: a plain specifier string when that is enough, a table
// otherwise.
func (r Requirement) PipfileValue() any {
	simple := r.Source.Kind == SourceIndex && r.Source.Index == "" &&
		len(r.Extras) == 0 && r.Marker == nil && !r.Editable
	if simple {
		return r.SpecifierString()
	}
	table := map[string]any{}
	switch r.Source.Kind {
	case SourceIndex:
		table["version"] = r.SpecifierString()
		if r.Source.Index != "" {
			table["index"] = r.Source.Index
		}
	case SourceVCS:
		table[r.Source.VCS] = r.Source.URL
		if r.Source.Ref != "" {
			table["ref"] = r.Source.Ref
		}
	case SourcePath:
		table["path"] = r.Source.Path
	case SourceURL:
		table["file"] = r.Source.URL
	}
	if r.Source.Subdirectory != "" {
		table["subdirectory"] = r.Source.Subdirectory
	}
	if len(r.Extras) > 0 {
		extras := make([]any, len(r.Extras))
		for i, e := range r.Extras {
			extras[i] = e
		}
		table["extras"] = extras
	}
	if r.Marker != nil {
		table["markers"] = r.Marker.String()
	}
	if r.Editable {
		table["editable"] = true
	}
	return table
}
