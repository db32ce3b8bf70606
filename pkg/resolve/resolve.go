package resolve

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/observability"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/provider"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// DefaultMaxRounds bounds the number of search rounds.
const DefaultMaxRounds = 200000

// PinPolicy decides how previously locked versions influence candidate order.
type PinPolicy int

const (
	// PreferLocked tries the locked version first while it still satisfies
	// the accumulated specifier, then falls back to newest first.
	PreferLocked PinPolicy = iota
	// PreferLatest ignores existing pins and always tries newest first.
	PreferLatest
)

func (p PinPolicy) String() string {
	if p == PreferLatest {
		return "prefer-latest"
	}
	return "prefer-locked"
}

// Options configures a resolution.
type Options struct {
	// Environments are the target platforms. A requirement applies when its
	// marker holds for at least one of them. With none, only extra markers
	// are evaluated and every platform specific requirement applies.
	Environments []markers.Environment

	// ExistingPins are versions from a previous lock, keyed by normalized
	// name. They only affect candidate order, see PinPolicy.
	ExistingPins map[string]pep440.Version
	PinPolicy    PinPolicy

	// Constraints restrict the versions of a package if something demands
	// it, but never add a package on their own.
	Constraints []requirement.Requirement

	AllowPrereleases bool

	// MaxRounds bounds the search (DefaultMaxRounds if zero).
	MaxRounds int

	// Section labels observability events ("default", "develop").
	Section string
	Logger  *log.Logger
}

// Entry is one pinned package of a closure.
type Entry struct {
	Name     string // normalized
	Version  string // empty for VCS, path and URL requirements
	Extras   []string
	Markers  string // disjunction of the paths reaching the entry; empty means always
	Source   requirement.Source
	Editable bool
	Hashes   []string

	// Dependencies maps the normalized names of the entry's applicable
	// requirements to their specifier text ("*" for any version).
	Dependencies map[string]string
}

// Closure is the result of a successful resolution.
type Closure struct {
	Entries map[string]*Entry
	// Roots are the normalized names requested directly.
	Roots  []string
	Rounds int
}

// Names returns the entry names in sorted order.
func (c *Closure) Names() []string {
	names := make([]string, 0, len(c.Entries))
	for n := range c.Entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Pins returns the pinned versions keyed by name, skipping direct references.
func (c *Closure) Pins() map[string]pep440.Version {
	out := make(map[string]pep440.Version, len(c.Entries))
	for name, e := range c.Entries {
		if e.Version == "" {
			continue
		}
		if v, err := pep440.Parse(e.Version); err == nil {
			out[name] = v
		}
	}
	return out
}

// Resolve computes a pinned closure satisfying roots.
//
// Root requirements for the same package are merged first; a contradiction
// there is a *errors.ConflictError. An exhausted search is a
// *errors.ResolutionError naming the package and its requesters, as is a
// provider failure (wrapped as the cause). Cancelling ctx returns ctx.Err().
//
// Given identical provider responses, Resolve returns identical closures.
func Resolve(ctx context.Context, roots []requirement.Requirement, p provider.Provider, opts Options) (*Closure, error) {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Section == "" {
		opts.Section = "default"
	}
	memo, ok := p.(*provider.Cache)
	if !ok {
		memo = provider.NewCache(p)
	}

	observability.Resolver().OnResolveStart(ctx, opts.Section, len(roots))
	start := time.Now()
	r := newResolver(memo, opts)
	closure, err := r.run(ctx, roots)
	packages := 0
	if closure != nil {
		packages = len(closure.Entries)
	}
	observability.Resolver().OnResolveComplete(ctx, opts.Section, packages, r.rounds, time.Since(start), err)
	return closure, err
}

// mergeRoots filters roots by marker and merges them per normalized name.
func mergeRoots(roots []requirement.Requirement, envs []markers.Environment) ([]requirement.Requirement, error) {
	byKey := make(map[string]requirement.Requirement)
	var order []string
	for _, r := range roots {
		if !r.AppliesTo(envs) {
			continue
		}
		key := r.Key()
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = r
			order = append(order, key)
			continue
		}
		merged, err := requirement.Merge(existing, r)
		if err != nil {
			return nil, err
		}
		byKey[key] = merged
	}
	sort.Strings(order)
	out := make([]requirement.Requirement, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

func exhausted(name string, d *demand, cause error) *errs.ResolutionError {
	return &errs.ResolutionError{
		Package:    name,
		Requesters: append([]errs.Requester(nil), d.requesters...),
		Cause:      cause,
	}
}
