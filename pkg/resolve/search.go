package resolve

import (
	"context"
	"errors"
	"slices"
	"sort"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/observability"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/provider"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// prefetchDepth is how many candidates of a selected demand have their
// requirements fetched ahead of need.
const prefetchDepth = 3

// demand is an accumulated request for one package. req carries the merged
// specifiers, extras and source; its marker is always nil because markers
// are tracked per path once the search is over.
type demand struct {
	req        requirement.Requirement
	requesters []errs.Requester
}

// pin is a selected candidate. Direct references (VCS, path, URL) are pinned
// without a version and contribute no requirements.
type pin struct {
	version pep440.Version
	direct  bool
	deps    []requirement.Requirement
	added   []bool // deps already turned into demands
}

type state struct {
	demands map[string]*demand
	pins    map[string]*pin
}

func newState() *state {
	return &state{demands: make(map[string]*demand), pins: make(map[string]*pin)}
}

func (s *state) clone() *state {
	c := &state{
		demands: make(map[string]*demand, len(s.demands)),
		pins:    make(map[string]*pin, len(s.pins)),
	}
	for k, d := range s.demands {
		cp := *d
		cp.requesters = slices.Clone(d.requesters)
		c.demands[k] = &cp
	}
	for k, p := range s.pins {
		cp := *p
		cp.added = slices.Clone(p.added)
		c.pins[k] = &cp
	}
	return c
}

// frame is one decision point. before is the state prior to the decision and
// is never mutated; every candidate is tried on a fresh clone of it.
type frame struct {
	name       string
	candidates []pep440.Version
	next       int
	before     *state
}

type outcome int

const (
	ok outcome = iota
	conflict
)

type resolver struct {
	p           *provider.Cache
	opts        Options
	constraints map[string]pep440.Specifiers
	rounds      int
	// last is the most recent conflict, reported if the search fails.
	last *errs.ResolutionError
}

func newResolver(p *provider.Cache, opts Options) *resolver {
	cons := make(map[string]pep440.Specifiers)
	for _, c := range opts.Constraints {
		if !c.AppliesTo(opts.Environments) {
			continue
		}
		cons[c.Key()] = cons[c.Key()].Intersect(c.Specifiers)
	}
	return &resolver{p: p, opts: opts, constraints: cons}
}

func (r *resolver) tick() error {
	r.rounds++
	if r.rounds > r.opts.MaxRounds {
		return errs.New(errs.ErrCodeResolution, "resolution did not finish within %d rounds", r.opts.MaxRounds)
	}
	return nil
}

func (r *resolver) run(ctx context.Context, roots []requirement.Requirement) (*Closure, error) {
	merged, err := mergeRoots(roots, r.opts.Environments)
	if err != nil {
		return nil, err
	}
	st := newState()
	for _, req := range merged {
		r.addDemand(st, req, requirement.RootRequester)
	}

	var frames []frame
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.tick(); err != nil {
			return nil, err
		}
		name, cands, err := r.selectDemand(ctx, st)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return r.closure(ctx, st, roots)
		}

		if len(cands) == 0 {
			if r.last == nil || r.last.Package != name {
				r.last = exhausted(name, st.demands[name], nil)
			}
			r.opts.Logger.Debug("no candidates", "package", name, "specifier", st.demands[name].req.SpecifierString())
		} else {
			r.p.PrefetchRequirements(ctx, name, cands[:min(len(cands), prefetchDepth)])
			frames = append(frames, frame{name: name, candidates: cands, before: st})
		}
		if st, err = r.advance(ctx, &frames); err != nil {
			return nil, err
		}
	}
}

// selectDemand returns the unpinned demand with the fewest candidates, ties
// broken by name, and its candidates in preference order. An empty name
// means every demand is pinned.
func (r *resolver) selectDemand(ctx context.Context, st *state) (string, []pep440.Version, error) {
	var unpinned []string
	for name := range st.demands {
		if _, pinned := st.pins[name]; !pinned {
			unpinned = append(unpinned, name)
		}
	}
	if len(unpinned) == 0 {
		return "", nil, nil
	}
	sort.Strings(unpinned)
	r.p.Prefetch(ctx, unpinned)

	best := -1
	var bestCands []pep440.Version
	for i, name := range unpinned {
		cands, err := r.candidates(ctx, name, st.demands[name])
		if err != nil {
			return "", nil, err
		}
		if best < 0 || len(cands) < len(bestCands) {
			best, bestCands = i, cands
		}
		if len(cands) == 0 {
			break
		}
	}
	return unpinned[best], bestCands, nil
}

// candidates lists the versions satisfying d, newest first, with the locked
// version moved to the front under PreferLocked.
func (r *resolver) candidates(ctx context.Context, name string, d *demand) ([]pep440.Version, error) {
	all, err := r.p.Versions(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, provider.ErrNotFound) {
			r.last = exhausted(name, d, err)
			return nil, nil
		}
		return nil, exhausted(name, d, err)
	}

	specs := d.req.Specifiers
	if c, ok := r.constraints[name]; ok {
		specs = specs.Intersect(c)
	}
	out := slices.Clone(specs.Filter(all, r.opts.AllowPrereleases))
	sort.SliceStable(out, func(i, j int) bool { return out[j].Less(out[i]) })

	if r.opts.PinPolicy == PreferLocked {
		if locked, ok := r.opts.ExistingPins[name]; ok {
			for i, v := range out {
				if v.Equal(locked) {
					copy(out[1:i+1], out[:i])
					out[0] = v
					break
				}
			}
		}
	}
	return out, nil
}

// advance tries the next candidate of the innermost frame, popping exhausted
// frames, and returns the resulting state. With no frames left the search
// has failed.
func (r *resolver) advance(ctx context.Context, frames *[]frame) (*state, error) {
	for len(*frames) > 0 {
		f := &(*frames)[len(*frames)-1]
		for f.next < len(f.candidates) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := r.tick(); err != nil {
				return nil, err
			}
			v := f.candidates[f.next]
			f.next++

			st := f.before.clone()
			o, err := r.pin(ctx, st, f.name, v)
			if err != nil {
				return nil, err
			}
			if o == ok {
				return st, nil
			}
			observability.Resolver().OnBacktrack(ctx, f.name)
			r.opts.Logger.Debug("rejected candidate", "package", f.name, "version", v.String())
		}
		*frames = (*frames)[:len(*frames)-1]
	}
	if r.last == nil {
		return nil, &errs.ResolutionError{Package: "<root>"}
	}
	return nil, r.last
}

// pin selects v for name and adds its applicable requirements as demands.
func (r *resolver) pin(ctx context.Context, st *state, name string, v pep440.Version) (outcome, error) {
	deps, err := r.p.Requirements(ctx, name, v)
	if err != nil {
		if ctx.Err() != nil {
			return conflict, ctx.Err()
		}
		if errors.Is(err, provider.ErrNotFound) {
			r.last = exhausted(name, st.demands[name], err)
			return conflict, nil
		}
		return conflict, exhausted(name, st.demands[name], err)
	}
	st.pins[name] = &pin{version: v, deps: deps, added: make([]bool, len(deps))}
	return r.expand(st, name), nil
}

// expand turns the pinned requirements of name that apply under its
// requested extras into demands. It is called again whenever the extras
// grow; requirements already added are skipped.
func (r *resolver) expand(st *state, name string) outcome {
	p := st.pins[name]
	d := st.demands[name]
	from := name + "==" + p.version.String()
	for i, dep := range p.deps {
		if p.added[i] || !r.applies(dep, d.req.Extras) {
			continue
		}
		p.added[i] = true
		if r.addDemand(st, dep, from) != ok {
			return conflict
		}
	}
	return ok
}

// addDemand merges req into the demand for its package. Conflicts with the
// accumulated demand or with an existing pin are reported as outcomes.
func (r *resolver) addDemand(st *state, req requirement.Requirement, from string) outcome {
	req.Marker = nil
	key := req.Key()
	requester := errs.Requester{From: from, Specifier: req.SpecifierString()}

	d, exists := st.demands[key]
	if !exists {
		st.demands[key] = &demand{req: req, requesters: []errs.Requester{requester}}
		if req.Source.Kind != requirement.SourceIndex {
			st.pins[key] = &pin{direct: true}
		}
		return ok
	}

	d.requesters = append(d.requesters, requester)
	if d.req.Source.Kind != requirement.SourceIndex && req.Source.Kind == requirement.SourceIndex {
		// A direct reference satisfies index requirements; its version is
		// not known before it is built.
		return ok
	}
	merged, err := requirement.MergeFrom(d.req, d.requesters[0].From, req, from)
	if err != nil {
		r.last = exhausted(key, d, err)
		return conflict
	}
	grew := len(merged.Extras) > len(d.req.Extras)
	d.req = merged

	p, pinned := st.pins[key]
	if !pinned || p.direct {
		return ok
	}
	if !merged.Specifiers.Contains(p.version, true) {
		r.last = exhausted(key, d, nil)
		return conflict
	}
	if grew {
		return r.expand(st, key)
	}
	return ok
}

// applies reports whether req is in effect for some target environment with
// extra bound to "" or one of extras.
func (r *resolver) applies(req requirement.Requirement, extras []string) bool {
	if req.Marker == nil {
		return true
	}
	if len(r.opts.Environments) == 0 {
		want := req.Marker.Extras()
		if len(want) == 0 {
			return true
		}
		for _, e := range want {
			if slices.Contains(extras, e) {
				return true
			}
		}
		return false
	}
	for _, env := range r.opts.Environments {
		if req.Marker.Evaluate(env.With("extra", "")) {
			return true
		}
		for _, e := range extras {
			if req.Marker.Evaluate(env.With("extra", e)) {
				return true
			}
		}
	}
	return false
}
