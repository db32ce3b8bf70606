package pipeline

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/stacklock/pkg/environment"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
	"github.com/matzehuels/stacklock/pkg/verify"
)

// Verify reports whether the project's Pipfile.lock was computed from its
// current Pipfile. It never resolves: a missing or unreadable lock is simply
// stale. Only a missing or unparsable manifest is an error.
func (r *Runner) Verify(projectDir, manifestPath string) (verify.Result, error) {
	path, err := ManifestPath(projectDir, manifestPath)
	if err != nil {
		return verify.Result{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return verify.Result{}, manifest.ErrNotFound
		}
		return verify.Result{}, err
	}

	lf, lockErr := lock.ReadFile(lock.PathFor(path))
	if lockErr != nil && !errors.Is(lockErr, os.ErrNotExist) {
		r.Logger.Warn("unreadable lock", "err", lockErr)
	}
	res, err := verify.Verify(content, lf)
	if err != nil {
		return verify.Result{}, err
	}
	if lockErr != nil && !errors.Is(lockErr, os.ErrNotExist) {
		res.Reason = "unreadable lock artifact: " + errs.UserMessage(lockErr)
	}
	r.Logger.Debug("verified lock", "fresh", res.Fresh, "expected", res.Expected, "recorded", res.Recorded)
	return res, nil
}

// Add parses opts.Lines and records them in the Pipfile, creating it in
// opts.ProjectDir when none exists. Every line is parsed before the manifest
// is touched: a malformed one is a parse error and nothing is written.
func (r *Runner) Add(opts AddOptions) ([]requirement.Requirement, error) {
	if len(opts.Lines) == 0 {
		return nil, errs.Usage("no requirements given")
	}
	reqs := make([]requirement.Requirement, 0, len(opts.Lines))
	for _, line := range opts.Lines {
		req, err := requirement.Parse(line)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	m, err := r.loadManifest(opts.ProjectDir, opts.Manifest)
	if errors.Is(err, manifest.ErrNotFound) && opts.Manifest == "" {
		dir := opts.ProjectDir
		if dir == "" {
			dir = "."
		}
		m = manifest.New(filepath.Join(dir, manifest.FileName))
		r.Logger.Info("creating Pipfile", "path", m.Path)
	} else if err != nil {
		return nil, err
	}

	section := manifest.SectionDefault
	if opts.Dev {
		section = manifest.SectionDevelop
	}
	for _, req := range reqs {
		if err := m.Add(section, req); err != nil {
			return nil, err
		}
		r.Logger.Info("added requirement", "package", req.Name, "section", section)
	}
	if err := m.Save(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Requirements exports the locked default section, and the develop section
// when opts.Dev is set, as requirements.txt lines.
func (r *Runner) Requirements(opts RequirementsOptions) ([]string, error) {
	lf, err := r.projectLock(opts.ProjectDir, opts.Manifest)
	if err != nil {
		return nil, err
	}
	sections := []string{lock.SectionDefault}
	if opts.Dev {
		sections = append(sections, lock.SectionDevelop)
	}
	return lock.Requirements(lf, !opts.NoHashes, sections...)
}

// Clean returns the installed packages that neither lock section contains.
// It only plans: nothing is uninstalled.
func (r *Runner) Clean(ctx context.Context, opts CleanOptions) ([]string, error) {
	if opts.Lister == nil {
		return nil, errs.New(errs.ErrCodeInternal, "no environment to inspect")
	}
	lf, err := r.projectLock(opts.ProjectDir, opts.Manifest)
	if err != nil {
		return nil, err
	}
	installed, err := opts.Lister.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	plan := environment.CleanPlan(installed, lf)
	r.Logger.Debug("planned clean", "installed", len(installed), "extraneous", len(plan))
	return plan, nil
}

// Remove deletes packages from the Pipfile and, unless opts.SkipLock is
// set, re-locks the project. Names missing from every edited section are
// reported in the result; when none of them is found the Pipfile is left
// alone and an errors.ErrCodeNotFound error is returned.
func (r *Runner) Remove(ctx context.Context, opts RemoveOptions) (*RemoveResult, error) {
	if len(opts.Names) == 0 {
		return nil, errs.Usage("no packages given")
	}
	m, err := r.loadManifest(opts.ProjectDir, opts.Manifest)
	if err != nil {
		return nil, err
	}

	sections := []string{manifest.SectionDefault, manifest.SectionDevelop}
	if opts.Dev {
		sections = []string{manifest.SectionDevelop}
	}
	res := &RemoveResult{}
	for _, name := range opts.Names {
		found := false
		for _, section := range sections {
			if m.Remove(section, name) {
				res.Removed = append(res.Removed, Removal{Name: name, Section: section})
				r.Logger.Info("removed requirement", "package", name, "section", section)
				found = true
			}
		}
		if !found {
			res.Missing = append(res.Missing, name)
			r.Logger.Warn("package not in Pipfile", "package", name)
		}
	}
	if len(res.Removed) == 0 {
		return nil, errs.New(errs.ErrCodeNotFound, "no package %s to remove from Pipfile", strings.Join(opts.Names, ", "))
	}
	if err := m.Save(); err != nil {
		return nil, err
	}
	if opts.SkipLock {
		return res, nil
	}

	lockOpts := opts.Lock
	lockOpts.ProjectDir = ""
	lockOpts.Manifest = m.Path
	lockOpts.Write = true
	if res.Lock, err = r.Lock(ctx, lockOpts); err != nil {
		return nil, err
	}
	return res, nil
}

// Outdated re-resolves the project preferring the newest releases, without
// writing anything, and lists the locked packages whose version would
// change. Updates are ordered by section and name.
func (r *Runner) Outdated(ctx context.Context, opts OutdatedOptions) ([]Update, error) {
	locked, err := r.projectLock(opts.ProjectDir, opts.Manifest)
	if err != nil {
		return nil, err
	}
	fresh, err := r.Lock(ctx, LockOptions{
		ProjectDir: opts.ProjectDir,
		Manifest:   opts.Manifest,
		Pre:        opts.Pre,
		PinPolicy:  resolve.PreferLatest,
		MaxRounds:  opts.MaxRounds,
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	for _, section := range []string{lock.SectionDefault, lock.SectionDevelop} {
		current := fresh.Lockfile.Section(section)
		for _, name := range sortedNames(locked.Section(section)) {
			old := locked.Section(section).Entries[name]
			available := ""
			if e, ok := current.Entries[name]; ok {
				available = e.Version
			}
			if available != old.Version {
				updates = append(updates, Update{
					Name:      old.Name,
					Section:   section,
					Locked:    old.Version,
					Available: available,
				})
			}
		}
	}
	r.Logger.Debug("checked for updates", "outdated", len(updates))
	return updates, nil
}

func sortedNames(c *resolve.Closure) []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.Entries))
}
