package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/matzehuels/stacklock/pkg/cache"
	"github.com/matzehuels/stacklock/pkg/depgraph"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/render"
	"github.com/matzehuels/stacklock/pkg/render/nodelink"
)

// Graph builds and renders the project's dependency graph.
//
// Render options are validated before anything is read, so an invalid
// combination fails without touching the filesystem or the environment. The
// graph comes from Pipfile.lock when one exists next to the manifest, and
// from opts.Lister otherwise (or whenever opts.Installed is set).
func (r *Runner) Graph(ctx context.Context, opts GraphOptions) (*GraphResult, error) {
	if err := opts.Render.Validate(); err != nil {
		return nil, err
	}

	g, source, err := r.graphSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("built graph",
		"source", source,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())

	res := &GraphResult{Graph: g, Source: source}
	res.Output, res.CacheHit, err = r.RenderGraph(ctx, g, opts.Render, opts.SVG)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RenderGraph renders g in the format selected by opts, or as an SVG
// node-link diagram when svg is set. The second result reports an SVG served
// from the artifact cache.
func (r *Runner) RenderGraph(ctx context.Context, g *depgraph.Graph, opts render.Options, svg bool) ([]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	if svg {
		return r.renderSVG(ctx, g, opts.Detailed)
	}
	var buf bytes.Buffer
	if err := render.Render(&buf, g, opts); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), false, nil
}

func (r *Runner) graphSource(ctx context.Context, opts GraphOptions) (*depgraph.Graph, string, error) {
	if !opts.Installed {
		lf, err := r.projectLock(opts.ProjectDir, opts.Manifest)
		switch {
		case err == nil:
			g := depgraph.FromLock(lf)
			if m, err := r.loadManifest(opts.ProjectDir, opts.Manifest); err == nil {
				for _, section := range []string{manifest.SectionDefault, manifest.SectionDevelop} {
					g.DisplayNames(slices.Collect(maps.Keys(m.Section(section)))...)
				}
			}
			return g, SourceLock, nil
		case !errors.Is(err, ErrNoLock) && !errors.Is(err, manifest.ErrNotFound):
			return nil, "", err
		}
		r.Logger.Debug("no lock to graph, listing installed packages", "reason", err)
	}

	if opts.Lister == nil {
		return nil, "", fmt.Errorf("%w and no environment to inspect", ErrNoLock)
	}
	pkgs, err := opts.Lister.ListInstalled(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list installed packages: %w", err)
	}
	return depgraph.FromInstalled(pkgs, opts.Env), SourceInstalled, nil
}

// projectLock finds the manifest and reads the lock next to it.
func (r *Runner) projectLock(dir, explicit string) (*lock.Lockfile, error) {
	path, err := ManifestPath(dir, explicit)
	if err != nil {
		return nil, err
	}
	lf, err := lock.ReadFile(lock.PathFor(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoLock, lock.PathFor(path))
		}
		return nil, err
	}
	return lf, nil
}

// renderSVG lays out the node-link diagram, serving repeated renders of the
// same graph from the artifact cache.
func (r *Runner) renderSVG(ctx context.Context, g *depgraph.Graph, detailed bool) ([]byte, bool, error) {
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})
	key := cache.Key("svg", dot)

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}

	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return nil, false, fmt.Errorf("render svg: %w", err)
	}
	if err := r.Cache.Set(ctx, key, svg, TTLArtifact); err != nil {
		r.Logger.Warn("failed to cache svg", "err", err)
	}
	return svg, false, nil
}
