package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopResolverHooks{}
	r.OnResolveStart(ctx, "default", 3)
	r.OnResolveComplete(ctx, "default", 12, 40, time.Second, nil)
	r.OnBacktrack(ctx, "requests")

	p := NoopProviderHooks{}
	p.OnFetch(ctx, "versions", time.Second, nil)
	p.OnMemoHit(ctx, "hashes")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "pypi")
	c.OnCacheMiss(ctx, "pypi")
	c.OnCacheSet(ctx, "pypi", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "pypi.org", "/pypi/requests/json")
	h.OnResponse(ctx, "GET", "pypi.org", "/pypi/requests/json", 200, time.Second)
	h.OnError(ctx, "GET", "pypi.org", "/pypi/requests/json", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Resolver().(NoopResolverHooks); !ok {
		t.Error("Resolver() should return NoopResolverHooks by default")
	}
	if _, ok := Provider().(NoopProviderHooks); !ok {
		t.Error("Provider() should return NoopProviderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customResolver := &testResolverHooks{}
	SetResolverHooks(customResolver)
	if Resolver() != customResolver {
		t.Error("SetResolverHooks should set custom hooks")
	}

	customProvider := &testProviderHooks{}
	SetProviderHooks(customProvider)
	if Provider() != customProvider {
		t.Error("SetProviderHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Resolver().(NoopResolverHooks); !ok {
		t.Error("Reset() should restore NoopResolverHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testResolverHooks{}
	SetResolverHooks(custom)
	SetResolverHooks(nil)

	if Resolver() != custom {
		t.Error("SetResolverHooks(nil) should be ignored")
	}

	Reset()
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())

	m.OnResolveComplete(ctx, "default", 5, 9, time.Millisecond, nil)
	m.OnResolveComplete(ctx, "default", 0, 3, time.Millisecond, errors.New("conflict"))
	m.OnBacktrack(ctx, "six")
	m.OnBacktrack(ctx, "six")
	m.OnFetch(ctx, "versions", time.Millisecond, nil)
	m.OnMemoHit(ctx, "versions")
	m.OnCacheSet(ctx, "pypi", 100)
	m.OnResponse(ctx, "GET", "pypi.org", "/", 200, time.Millisecond)

	if got := testutil.ToFloat64(m.resolveTotal.WithLabelValues("default", "ok")); got != 1 {
		t.Errorf("resolve ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resolveTotal.WithLabelValues("default", "error")); got != 1 {
		t.Errorf("resolve error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.backtracks.WithLabelValues("six")); got != 2 {
		t.Errorf("backtracks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("pypi")); got != 100 {
		t.Errorf("cache bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("pypi.org", "200")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

type testResolverHooks struct{ NoopResolverHooks }
type testProviderHooks struct{ NoopProviderHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
