package pipeline

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stacklock/pkg/cache"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/provider"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so that locking and rendering behave the same
// everywhere.
//
// The Runner is stateless except for its provider, cache and logger: it does
// not store results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	// Provider answers metadata queries during Lock. Each Lock call wraps
	// it in its own memo cache.
	Provider provider.Provider
	// Cache stores rendered SVG diagrams.
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given provider and artifact cache.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(p provider.Provider, c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Provider: p,
		Cache:    c,
		Logger:   logger,
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// ManifestPath returns the Pipfile path for a project: explicit when set,
// otherwise found at or above dir.
func ManifestPath(dir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if dir == "" {
		dir = "."
	}
	return manifest.Find(dir, DefaultSearchDepth)
}

func (r *Runner) loadManifest(dir, explicit string) (*manifest.Manifest, error) {
	path, err := ManifestPath(dir, explicit)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("loaded manifest", "path", m.Path)
	return m, nil
}

// readPrevious returns the lock stored at path and its raw bytes. A missing
// artifact yields nil; an unreadable one is logged and ignored, but its bytes
// are still returned.
func (r *Runner) readPrevious(path string) (*lock.Lockfile, []byte) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.Logger.Warn("ignoring existing lock", "path", path, "err", err)
		}
		return nil, nil
	}
	lf, err := lock.Decode(data)
	if err != nil {
		r.Logger.Warn("ignoring existing lock", "path", path, "err", err)
		return nil, data
	}
	return lf, data
}
