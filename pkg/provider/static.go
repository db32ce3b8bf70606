package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// Release describes one published version in a [Static] provider.
type Release struct {
	Version  string   `json:"version"`
	Requires []string `json:"requires,omitempty"`
	Hashes   []string `json:"hashes,omitempty"`
}

// Static serves metadata from memory. It backs offline index files and
// tests.
type Static struct {
	mu       sync.RWMutex
	packages map[string]map[string]staticRelease
}

type staticRelease struct {
	version  pep440.Version
	requires []requirement.Requirement
	hashes   []string
}

// NewStatic returns an empty provider.
func NewStatic() *Static {
	return &Static{packages: make(map[string]map[string]staticRelease)}
}

// Add registers a release of name. Requirement lines use PEP 508 syntax.
func (s *Static) Add(name string, rel Release) error {
	v, err := pep440.Parse(rel.Version)
	if err != nil {
		return err
	}
	reqs := make([]requirement.Requirement, 0, len(rel.Requires))
	for _, line := range rel.Requires {
		r, err := requirement.Parse(line)
		if err != nil {
			return errs.Wrap(errs.ErrCodeParse, err, "%s %s", name, rel.Version)
		}
		reqs = append(reqs, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := requirement.Normalize(name)
	if s.packages[key] == nil {
		s.packages[key] = make(map[string]staticRelease)
	}
	s.packages[key][v.String()] = staticRelease{version: v, requires: reqs, hashes: rel.Hashes}
	return nil
}

// MustAdd is like Add but panics on invalid input. Requires are given as
// PEP 508 lines.
func (s *Static) MustAdd(name, version string, requires ...string) *Static {
	if err := s.Add(name, Release{Version: version, Requires: requires}); err != nil {
		panic(err)
	}
	return s
}

// Versions implements Provider.
func (s *Static) Versions(_ context.Context, name string) ([]pep440.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rels, ok := s.packages[requirement.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	out := make([]pep440.Version, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (s *Static) release(name string, v pep440.Version) (staticRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rels, ok := s.packages[requirement.Normalize(name)]
	if !ok {
		return staticRelease{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	for _, r := range rels {
		if r.version.Equal(v) {
			return r, nil
		}
	}
	return staticRelease{}, fmt.Errorf("%w: %s==%s", ErrNotFound, name, v)
}

// Requirements implements Provider.
func (s *Static) Requirements(_ context.Context, name string, v pep440.Version) ([]requirement.Requirement, error) {
	r, err := s.release(name, v)
	if err != nil {
		return nil, err
	}
	return append([]requirement.Requirement(nil), r.requires...), nil
}

// Hashes implements Provider.
func (s *Static) Hashes(_ context.Context, name string, v pep440.Version) ([]string, error) {
	r, err := s.release(name, v)
	if err != nil {
		return nil, err
	}
	out := append([]string(nil), r.hashes...)
	sort.Strings(out)
	return out, nil
}

// indexFile is the on-disk form read by LoadIndex:
//
//	{"packages": {"requests": [{"version": "2.31.0", "requires": ["idna<4,>=2.5"], "hashes": ["sha256:..."]}]}}
type indexFile struct {
	Packages map[string][]Release `json:"packages"`
}

// LoadIndex reads an offline index file into a Static provider.
func LoadIndex(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIndex(data)
}

// ParseIndex decodes offline index content.
func ParseIndex(data []byte) (*Static, error) {
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errs.Wrap(errs.ErrCodeParse, err, "invalid index file")
	}
	s := NewStatic()
	for name, rels := range f.Packages {
		for _, rel := range rels {
			if err := s.Add(name, rel); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}
