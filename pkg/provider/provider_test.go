package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/httputil"
	"github.com/matzehuels/stacklock/pkg/pep440"
)

// counting wraps a provider, counting Versions calls and optionally failing
// the first few of them.
type counting struct {
	Provider
	calls    atomic.Int32
	failures int32
	err      error
	gate     chan struct{}
}

func (c *counting) Versions(ctx context.Context, name string) ([]pep440.Version, error) {
	n := c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if n <= c.failures {
		return nil, c.err
	}
	return c.Provider.Versions(ctx, name)
}

func fixture() *Static {
	return NewStatic().
		MustAdd("six", "1.16.0").
		MustAdd("six", "1.9.0").
		MustAdd("six", "1.10.0").
		MustAdd("requests", "2.31.0", "idna<4,>=2.5", "PySocks!=1.5.7,>=1.5.6; extra == 'socks'")
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	p := fixture()

	vs, err := p.Versions(ctx, "Six")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.9.0", "1.10.0", "1.16.0"}, versionStrings(vs))

	reqs, err := p.Requirements(ctx, "requests", pep440.MustParse("2.31"))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "idna", reqs[0].Name)
	assert.Equal(t, []string{"socks"}, reqs[1].Marker.Extras())

	_, err = p.Versions(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = p.Requirements(ctx, "six", pep440.MustParse("2.0"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseIndex(t *testing.T) {
	p, err := ParseIndex([]byte(`{"packages": {
		"Flask": [{"version": "3.0.0", "requires": ["Werkzeug>=3.0.0"], "hashes": ["sha256:bb", "sha256:aa"]}],
		"werkzeug": [{"version": "3.0.1"}]
	}}`))
	require.NoError(t, err)

	ctx := context.Background()
	h, err := p.Hashes(ctx, "flask", pep440.MustParse("3.0.0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sha256:aa", "sha256:bb"}, h)

	_, err = ParseIndex([]byte(`{"packages": {"x": [{"version": "not a version"}]}}`))
	assert.Error(t, err)
	_, err = ParseIndex([]byte(`{`))
	assert.True(t, errs.Is(err, errs.ErrCodeParse))
}

func TestCacheMemoizes(t *testing.T) {
	inner := &counting{Provider: fixture()}
	c := NewCache(inner)
	ctx := context.Background()

	for range 3 {
		vs, err := c.Versions(ctx, "six")
		require.NoError(t, err)
		assert.Len(t, vs, 3)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheCollapsesConcurrentFetches(t *testing.T) {
	inner := &counting{Provider: fixture(), gate: make(chan struct{})}
	c := NewCache(inner)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Versions(ctx, "six")
			assert.NoError(t, err)
		}()
	}
	// Let the goroutines pile up on the in-flight call before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCacheRetriesTransientFailures(t *testing.T) {
	inner := &counting{
		Provider: fixture(),
		failures: 2,
		err:      &httputil.RetryableError{Err: errors.New("503")},
	}
	c := NewCache(inner)
	c.Delay = time.Millisecond

	vs, err := c.Versions(context.Background(), "six")
	require.NoError(t, err)
	assert.Len(t, vs, 3)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	inner := &counting{Provider: fixture(), failures: 1, err: errors.New("boom")}
	c := NewCache(inner)
	ctx := context.Background()

	_, err := c.Versions(ctx, "six")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodeProvider))

	_, err = c.Versions(ctx, "six")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCacheCancellation(t *testing.T) {
	inner := &counting{Provider: fixture(), gate: make(chan struct{})}
	defer close(inner.gate)
	c := NewCache(inner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Versions(ctx, "six")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Versions did not return after cancellation")
	}
}

func TestPrefetchAndHashesAll(t *testing.T) {
	p := NewStatic()
	require.NoError(t, p.Add("six", Release{Version: "1.16.0", Hashes: []string{"sha256:01"}}))
	require.NoError(t, p.Add("idna", Release{Version: "3.6", Hashes: []string{"sha256:02"}}))
	inner := &counting{Provider: p}
	c := NewCache(inner)
	ctx := context.Background()

	c.Prefetch(ctx, []string{"six", "idna", "missing"})
	assert.Equal(t, int32(3), inner.calls.Load())
	_, err := c.Versions(ctx, "six")
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())

	hashes, err := c.HashesAll(ctx, map[string]pep440.Version{
		"six":  pep440.MustParse("1.16.0"),
		"idna": pep440.MustParse("3.6"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"six": {"sha256:01"}, "idna": {"sha256:02"}}, hashes)

	_, err = c.HashesAll(ctx, map[string]pep440.Version{"six": pep440.MustParse("9")})
	assert.Error(t, err)
}

func versionStrings(vs []pep440.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

var _ Provider = (*Cache)(nil)
var _ Provider = (*Static)(nil)
