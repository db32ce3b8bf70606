package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/httputil"
	"github.com/matzehuels/stacklock/pkg/observability"
	"github.com/matzehuels/stacklock/pkg/pep440"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
	defaultWorkers  = 8
)

// Cache memoizes a Provider. Identical concurrent fetches are collapsed into
// one call, and only successful results are stored: a failed or cancelled
// fetch leaves the cache as it was so a later call can retry.
//
// Transient failures (errors wrapping *httputil.RetryableError) are retried
// with exponential backoff. Failures that survive the retries are returned as
// PROVIDER errors.
//
// A Cache is safe for concurrent use. Create one per resolution, or share one
// across resolutions to reuse fetched metadata.
type Cache struct {
	inner Provider

	// Attempts and Delay configure the retry of transient failures.
	Attempts int
	Delay    time.Duration
	// Workers bounds concurrent fetches issued by the Prefetch methods.
	Workers int

	mu       sync.Mutex
	versions map[string][]pep440.Version
	reqs     map[string][]requirement.Requirement
	hashes   map[string][]string
	group    singleflight.Group

	hits, misses atomic.Int64
}

// NewCache wraps p with memoization.
func NewCache(p Provider) *Cache {
	return &Cache{
		inner:    p,
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		Workers:  defaultWorkers,
		versions: make(map[string][]pep440.Version),
		reqs:     make(map[string][]requirement.Requirement),
		hashes:   make(map[string][]string),
	}
}

// Stats returns the number of memo hits and upstream fetches so far.
func (c *Cache) Stats() (hits, misses int64) { return c.hits.Load(), c.misses.Load() }

// Versions implements Provider.
func (c *Cache) Versions(ctx context.Context, name string) ([]pep440.Version, error) {
	return fetch(ctx, c, c.versions, "versions", name, func(ctx context.Context) ([]pep440.Version, error) {
		return c.inner.Versions(ctx, name)
	})
}

// Requirements implements Provider.
func (c *Cache) Requirements(ctx context.Context, name string, v pep440.Version) ([]requirement.Requirement, error) {
	return fetch(ctx, c, c.reqs, "requirements", name+"=="+v.String(), func(ctx context.Context) ([]requirement.Requirement, error) {
		return c.inner.Requirements(ctx, name, v)
	})
}

// Hashes implements Provider.
func (c *Cache) Hashes(ctx context.Context, name string, v pep440.Version) ([]string, error) {
	return fetch(ctx, c, c.hashes, "hashes", name+"=="+v.String(), func(ctx context.Context) ([]string, error) {
		return c.inner.Hashes(ctx, name, v)
	})
}

func fetch[T any](ctx context.Context, c *Cache, memo map[string]T, kind, key string, call func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := memo[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		observability.Provider().OnMemoHit(ctx, kind)
		return v, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(kind+":"+key, func() (any, error) {
		c.misses.Add(1)
		start := time.Now()
		var out T
		err := httputil.Retry(ctx, c.Attempts, c.Delay, func() error {
			var err error
			out, err = call(ctx)
			return err
		})
		observability.Provider().OnFetch(ctx, kind, time.Since(start), err)
		if err != nil {
			return out, err
		}
		c.mu.Lock()
		memo[key] = out
		c.mu.Unlock()
		return out, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return zero, res.Err
			}
			return zero, errs.Provider(res.Err, "fetch %s for %s", kind, key)
		}
		return res.Val.(T), nil
	}
}

// Prefetch fetches version lists for names concurrently. Failures are not
// reported here; they resurface when the value is actually requested.
func (c *Cache) Prefetch(ctx context.Context, names []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for _, name := range names {
		g.Go(func() error {
			_, _ = c.Versions(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

// PrefetchRequirements fetches the declared requirements of several
// candidate versions of one package concurrently.
func (c *Cache) PrefetchRequirements(ctx context.Context, name string, versions []pep440.Version) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for _, v := range versions {
		g.Go(func() error {
			_, _ = c.Requirements(ctx, name, v)
			return nil
		})
	}
	_ = g.Wait()
}

// HashesAll fetches hashes for every pin concurrently. Unlike the Prefetch
// methods it fails on the first error.
func (c *Cache) HashesAll(ctx context.Context, pins map[string]pep440.Version) (map[string][]string, error) {
	var mu sync.Mutex
	out := make(map[string][]string, len(pins))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for name, v := range pins {
		g.Go(func() error {
			h, err := c.Hashes(ctx, name, v)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
