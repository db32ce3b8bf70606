package pipeline

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"time"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	stio "github.com/matzehuels/stacklock/pkg/io"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/provider"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// Lock resolves the manifest's default section and then its develop section
// and builds the lock artifact.
//
// Develop is resolved with the default pins as constraints, so a package in
// both sections gets the same version. An unparsable manifest fails before
// any metadata is fetched. A previous Pipfile.lock that cannot be decoded is
// ignored with a warning. The artifact is only stored when opts.Write is
// set, and it is replaced atomically.
func (r *Runner) Lock(ctx context.Context, opts LockOptions) (*LockResult, error) {
	if r.Provider == nil {
		return nil, errs.New(errs.ErrCodeInternal, "no metadata provider configured")
	}
	m, err := r.loadManifest(opts.ProjectDir, opts.Manifest)
	if err != nil {
		return nil, err
	}
	path := lock.PathFor(m.Path)
	previous, previousData := r.readPrevious(path)

	base := resolve.Options{
		Environments:     opts.Environments,
		PinPolicy:        opts.PinPolicy,
		AllowPrereleases: opts.Pre || m.AllowPrereleases(),
		MaxRounds:        opts.MaxRounds,
		Logger:           r.Logger,
	}
	if base.Environments == nil {
		base.Environments = TargetEnvironments(m.PythonVersion())
	}
	if opts.KeepOutdated {
		base.PinPolicy = resolve.PreferLocked
	}
	memo := provider.NewCache(r.Provider)

	start := time.Now()
	def, err := r.resolveSection(ctx, m, memo, base, sectionState{
		manifest: manifest.SectionDefault,
		lock:     lock.SectionDefault,
		previous: previous,
		keep:     opts.KeepOutdated,
	})
	if err != nil {
		return nil, err
	}

	var dev *resolve.Closure
	switch {
	case !opts.SkipDevelop:
		dev, err = r.resolveSection(ctx, m, memo, base, sectionState{
			manifest:    manifest.SectionDevelop,
			lock:        lock.SectionDevelop,
			previous:    previous,
			keep:        opts.KeepOutdated,
			constraints: pinConstraints(def.Pins()),
		})
		if err != nil {
			return nil, err
		}
	case previous != nil:
		dev = previous.Develop
	default:
		dev = &resolve.Closure{Entries: map[string]*resolve.Entry{}}
	}

	lf := lock.New(def, dev, m)
	data, err := lock.Encode(lf)
	if err != nil {
		return nil, err
	}
	hits, misses := memo.Stats()
	res := &LockResult{
		Lockfile: lf,
		Path:     path,
		Changed:  !bytes.Equal(data, previousData),
		Stats: LockStats{
			Packages:       len(lf.Default.Entries) + len(lf.Develop.Entries),
			Rounds:         def.Rounds + dev.Rounds,
			Duration:       time.Since(start),
			ProviderHits:   hits,
			ProviderMisses: misses,
		},
	}
	r.Logger.Info("locked",
		"default", len(lf.Default.Entries),
		"develop", len(lf.Develop.Entries),
		"rounds", res.Stats.Rounds,
		"duration", res.Stats.Duration)

	if opts.Write {
		if err := stio.WriteFileAtomic(path, data, 0o644); err != nil {
			return nil, err
		}
		res.Written = true
		r.Logger.Debug("wrote lock", "path", path, "changed", res.Changed)
	}
	return res, nil
}

// sectionState describes one section to resolve.
type sectionState struct {
	manifest    string
	lock        string
	previous    *lock.Lockfile
	keep        bool
	constraints []requirement.Requirement
}

func (r *Runner) resolveSection(ctx context.Context, m *manifest.Manifest, p provider.Provider, base resolve.Options, s sectionState) (*resolve.Closure, error) {
	roots, err := m.Requirements(s.manifest)
	if err != nil {
		return nil, err
	}
	opts := base
	opts.Section = s.lock
	opts.Constraints = s.constraints
	if s.previous != nil && opts.PinPolicy == resolve.PreferLocked {
		pins := s.previous.Section(s.lock).Pins()
		opts.ExistingPins = pins
		if s.keep {
			opts.Constraints = append(opts.Constraints, keptRoots(roots, pins)...)
		}
	}

	start := time.Now()
	c, err := resolve.Resolve(ctx, roots, p, opts)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("resolved",
		"section", s.lock,
		"roots", len(roots),
		"packages", len(c.Entries),
		"rounds", c.Rounds,
		"duration", time.Since(start))
	return c, nil
}

// pinConstraints turns pins into exact-version constraints.
func pinConstraints(pins map[string]pep440.Version) []requirement.Requirement {
	out := make([]requirement.Requirement, 0, len(pins))
	for _, name := range slices.Sorted(maps.Keys(pins)) {
		out = append(out, exact(name, pins[name]))
	}
	return out
}

// keptRoots pins each root to its previously locked version while the root
// still admits it.
func keptRoots(roots []requirement.Requirement, pins map[string]pep440.Version) []requirement.Requirement {
	var out []requirement.Requirement
	for _, root := range roots {
		v, ok := pins[root.Key()]
		if !ok || root.Source.Kind != requirement.SourceIndex {
			continue
		}
		if !root.Specifiers.Contains(v, true) {
			continue
		}
		out = append(out, exact(root.Key(), v))
	}
	return out
}

func exact(name string, v pep440.Version) requirement.Requirement {
	return requirement.Requirement{
		Name:       name,
		Specifiers: pep440.MustParseSpecifiers("==" + v.String()),
	}
}
