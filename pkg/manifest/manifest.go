package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	stio "github.com/matzehuels/stacklock/pkg/io"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// FileName is the manifest file name looked up in a project directory.
const FileName = "Pipfile"

// Section names as they appear in the manifest.
const (
	SectionDefault = "packages"
	SectionDevelop = "dev-packages"
)

// ErrNotFound is returned when no manifest exists at or above a directory.
var ErrNotFound = errors.New("no Pipfile present at project home")

// DefaultSource is assumed when the manifest declares no [[source]].
var DefaultSource = Source{Name: "pypi", URL: "https://pypi.org/simple", VerifySSL: true}

// Source is a package index declared in the manifest.
type Source struct {
	Name      string `toml:"name" json:"name"`
	URL       string `toml:"url" json:"url"`
	VerifySSL bool   `toml:"verify_ssl" json:"verify_ssl"`
}

// Manifest is a decoded Pipfile. The raw TOML document is kept so that
// unknown sections survive a rewrite and the fingerprint covers exactly what
// was read.
type Manifest struct {
	Path string
	raw  map[string]any
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// New returns an empty manifest for path declaring [DefaultSource].
func New(path string) *Manifest {
	return &Manifest{Path: path, raw: map[string]any{
		"source": []map[string]any{{
			"name":       DefaultSource.Name,
			"url":        DefaultSource.URL,
			"verify_ssl": DefaultSource.VerifySSL,
		}},
		SectionDefault: map[string]any{},
		SectionDevelop: map[string]any{},
	}}
}

// Parse decodes manifest content and validates every requirement entry.
func Parse(data []byte) (*Manifest, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrCodeParse, err, "invalid Pipfile")
	}
	m := &Manifest{raw: raw}
	for _, section := range []string{SectionDefault, SectionDevelop} {
		if _, err := m.Requirements(section); err != nil {
			return nil, err
		}
	}
	if _, err := m.sources(); err != nil {
		return nil, err
	}
	return m, nil
}

// Find walks up from dir at most maxDepth parent directories looking for the
// manifest and returns its path.
func Find(dir string, maxDepth int) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for range maxDepth + 1 {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNotFound
}

// Dir returns the project directory containing the manifest.
func (m *Manifest) Dir() string { return filepath.Dir(m.Path) }

func (m *Manifest) table(key string) map[string]any {
	t, _ := m.raw[key].(map[string]any)
	return t
}

// Section returns the raw entries of a requirement section.
func (m *Manifest) Section(section string) map[string]any {
	if t := m.table(section); t != nil {
		return t
	}
	return map[string]any{}
}

// Requirements returns the parsed requirements of a section sorted by
// normalized name.
func (m *Manifest) Requirements(section string) ([]requirement.Requirement, error) {
	entries := m.Section(section)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return requirement.Normalize(names[i]) < requirement.Normalize(names[j])
	})

	reqs := make([]requirement.Requirement, 0, len(names))
	for _, name := range names {
		r, err := requirement.FromPipfile(name, entries[name])
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeParse, err, "[%s] %s", section, name)
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

// Sources returns the declared indexes, or [DefaultSource] when none are.
func (m *Manifest) Sources() []Source {
	sources, _ := m.sources()
	return sources
}

func (m *Manifest) sources() ([]Source, error) {
	list, _ := m.raw["source"].([]map[string]any)
	if list == nil {
		if generic, ok := m.raw["source"].([]any); ok {
			for _, item := range generic {
				if t, ok := item.(map[string]any); ok {
					list = append(list, t)
				}
			}
		}
	}
	if len(list) == 0 {
		return []Source{DefaultSource}, nil
	}
	out := make([]Source, 0, len(list))
	for i, t := range list {
		name, _ := t["name"].(string)
		url, _ := t["url"].(string)
		if url == "" {
			return nil, errs.Parse("[[source]] #%d: missing url", i+1)
		}
		if err := errs.ValidateURL(url); err != nil {
			return nil, errs.Parse("[[source]] #%d: %s", i+1, errs.UserMessage(err))
		}
		verify := true
		if v, ok := t["verify_ssl"].(bool); ok {
			verify = v
		}
		out = append(out, Source{Name: name, URL: url, VerifySSL: verify})
	}
	return out, nil
}

// Requires returns the [requires] table (python_version, python_full_version).
func (m *Manifest) Requires() map[string]any {
	if t := m.table("requires"); t != nil {
		return t
	}
	return map[string]any{}
}

// PythonVersion returns the required interpreter version, or "".
func (m *Manifest) PythonVersion() string {
	req := m.Requires()
	if v, ok := req["python_full_version"].(string); ok && v != "" {
		return v
	}
	v, _ := req["python_version"].(string)
	return v
}

// AllowPrereleases reports [pipenv] allow_prereleases.
func (m *Manifest) AllowPrereleases() bool {
	v, _ := m.table("pipenv")["allow_prereleases"].(bool)
	return v
}

// Add records req in section, replacing any entry with the same normalized
// name. The value is validated by reading it back before anything changes.
func (m *Manifest) Add(section string, req requirement.Requirement) error {
	value := req.PipfileValue()
	if _, err := requirement.FromPipfile(req.Name, value); err != nil {
		return err
	}
	entries := m.table(section)
	if entries == nil {
		entries = map[string]any{}
		m.raw[section] = entries
	}
	for name := range entries {
		if requirement.Normalize(name) == req.Key() {
			delete(entries, name)
		}
	}
	entries[req.Name] = value
	return nil
}

// Remove deletes the entry for name from section and reports whether one
// existed.
func (m *Manifest) Remove(section, name string) bool {
	entries := m.table(section)
	key := requirement.Normalize(name)
	found := false
	for existing := range entries {
		if requirement.Normalize(existing) == key {
			delete(entries, existing)
			found = true
		}
	}
	return found
}

// Encode renders the manifest as TOML.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.raw); err != nil {
		return nil, fmt.Errorf("encode Pipfile: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the manifest back to its path atomically.
func (m *Manifest) Save() error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return stio.WriteFileAtomic(m.Path, data, 0o644)
}
