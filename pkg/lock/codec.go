package lock

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	stio "github.com/matzehuels/stacklock/pkg/io"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// =============================================================================
// Wire Format
// =============================================================================

// Struct fields are declared in key order so that the encoded object keys
// come out sorted.

type fileJSON struct {
	Meta    metaJSON             `json:"_meta"`
	Default map[string]entryJSON `json:"default"`
	Develop map[string]entryJSON `json:"develop"`
}

type metaJSON struct {
	Hash        map[string]string `json:"hash"`
	PipfileSpec int               `json:"pipfile-spec"`
	Requires    map[string]any    `json:"requires"`
	Sources     []manifest.Source `json:"sources"`
}

type entryJSON struct {
	Bzr          string            `json:"bzr,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Editable     bool              `json:"editable,omitempty"`
	Extras       []string          `json:"extras,omitempty"`
	File         string            `json:"file,omitempty"`
	Git          string            `json:"git,omitempty"`
	Hashes       []string          `json:"hashes,omitempty"`
	Hg           string            `json:"hg,omitempty"`
	Index        string            `json:"index,omitempty"`
	Markers      string            `json:"markers,omitempty"`
	Path         string            `json:"path,omitempty"`
	Ref          string            `json:"ref,omitempty"`
	Subdirectory string            `json:"subdirectory,omitempty"`
	Svn          string            `json:"svn,omitempty"`
	Version      string            `json:"version,omitempty"`
}

// =============================================================================
// Encode / Decode
// =============================================================================

// Encode serializes lf as indented JSON with sorted keys and a trailing
// newline. The same artifact always encodes to the same bytes.
func Encode(lf *Lockfile) ([]byte, error) {
	out := fileJSON{
		Meta: metaJSON{
			Hash:        map[string]string{"sha256": lf.Meta.Hash},
			PipfileSpec: lf.Meta.PipfileSpec,
			Requires:    lf.Meta.Requires,
			Sources:     lf.Meta.Sources,
		},
		Default: encodeSection(lf.Default),
		Develop: encodeSection(lf.Develop),
	}
	if out.Meta.Requires == nil {
		out.Meta.Requires = map[string]any{}
	}
	if out.Meta.Sources == nil {
		out.Meta.Sources = []manifest.Source{}
	}
	return stio.MarshalJSON(out, "    ")
}

func encodeSection(c *resolve.Closure) map[string]entryJSON {
	out := map[string]entryJSON{}
	if c == nil {
		return out
	}
	for name, e := range c.Entries {
		out[name] = encodeEntry(e)
	}
	return out
}

func encodeEntry(e *resolve.Entry) entryJSON {
	out := entryJSON{
		Dependencies: e.Dependencies,
		Editable:     e.Editable,
		Extras:       e.Extras,
		Markers:      e.Markers,
		Subdirectory: e.Source.Subdirectory,
	}
	if len(out.Dependencies) == 0 {
		out.Dependencies = nil
	}
	if e.Version != "" {
		out.Version = "==" + e.Version
	}
	if len(e.Hashes) > 0 {
		out.Hashes = append([]string(nil), e.Hashes...)
		sort.Strings(out.Hashes)
	}
	switch e.Source.Kind {
	case requirement.SourceIndex:
		out.Index = e.Source.Index
	case requirement.SourceVCS:
		out.Ref = e.Source.Ref
		switch e.Source.VCS {
		case "hg":
			out.Hg = e.Source.URL
		case "svn":
			out.Svn = e.Source.URL
		case "bzr":
			out.Bzr = e.Source.URL
		default:
			out.Git = e.Source.URL
		}
	case requirement.SourcePath:
		out.Path = e.Source.Path
	case requirement.SourceURL:
		out.File = e.Source.URL
	}
	return out
}

// Decode parses a lock artifact. Malformed JSON, a missing _meta.hash.sha256
// and invalid entries are reported as INVALID_LOCK errors.
func Decode(data []byte) (*Lockfile, error) {
	var in fileJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return nil, errs.Format(err, "malformed lock artifact")
	}
	hash := in.Meta.Hash["sha256"]
	if hash == "" {
		return nil, errs.Format(nil, "lock artifact has no _meta.hash.sha256")
	}

	lf := &Lockfile{
		Meta: Meta{
			Hash:        hash,
			PipfileSpec: in.Meta.PipfileSpec,
			Requires:    in.Meta.Requires,
			Sources:     in.Meta.Sources,
		},
	}
	if lf.Meta.Requires == nil {
		lf.Meta.Requires = map[string]any{}
	}
	var err error
	if lf.Default, err = decodeSection(SectionDefault, in.Default); err != nil {
		return nil, err
	}
	if lf.Develop, err = decodeSection(SectionDevelop, in.Develop); err != nil {
		return nil, err
	}
	return lf, nil
}

func decodeSection(section string, in map[string]entryJSON) (*resolve.Closure, error) {
	c := &resolve.Closure{Entries: make(map[string]*resolve.Entry, len(in))}
	for name, raw := range in {
		e, err := decodeEntry(name, raw)
		if err != nil {
			return nil, errs.Format(err, "%s.%s", section, name)
		}
		c.Entries[e.Name] = e
	}
	return c, nil
}

func decodeEntry(name string, in entryJSON) (*resolve.Entry, error) {
	if !requirement.ValidName(name) {
		return nil, errs.Parse("invalid package name %q", name)
	}
	e := &resolve.Entry{
		Name:         requirement.Normalize(name),
		Extras:       in.Extras,
		Markers:      in.Markers,
		Editable:     in.Editable,
		Hashes:       in.Hashes,
		Dependencies: in.Dependencies,
	}
	if e.Hashes == nil {
		e.Hashes = []string{}
	}
	if e.Dependencies == nil {
		e.Dependencies = map[string]string{}
	}
	if in.Markers != "" {
		if _, err := markers.Parse(in.Markers); err != nil {
			return nil, err
		}
	}

	src := requirement.Source{Subdirectory: in.Subdirectory, Ref: in.Ref}
	switch {
	case in.Git != "":
		src.Kind, src.VCS, src.URL = requirement.SourceVCS, "git", in.Git
	case in.Hg != "":
		src.Kind, src.VCS, src.URL = requirement.SourceVCS, "hg", in.Hg
	case in.Svn != "":
		src.Kind, src.VCS, src.URL = requirement.SourceVCS, "svn", in.Svn
	case in.Bzr != "":
		src.Kind, src.VCS, src.URL = requirement.SourceVCS, "bzr", in.Bzr
	case in.Path != "":
		src.Kind, src.Path = requirement.SourcePath, in.Path
	case in.File != "":
		src.Kind, src.URL = requirement.SourceURL, in.File
	default:
		src.Kind, src.Index = requirement.SourceIndex, in.Index
	}
	e.Source = src

	if in.Version != "" {
		raw, ok := strings.CutPrefix(in.Version, "==")
		if !ok || strings.HasPrefix(raw, "=") {
			return nil, errs.Parse("version %q is not an exact pin", in.Version)
		}
		v, err := pep440.Parse(raw)
		if err != nil {
			return nil, err
		}
		e.Version = v.String()
	} else if src.Kind == requirement.SourceIndex {
		return nil, errs.Parse("index entry has no version")
	}
	return e, nil
}
