package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements every hook interface on top of Prometheus collectors.
type Metrics struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	resolveRounds   prometheus.Histogram
	backtracks      *prometheus.CounterVec

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	memoHits      *prometheus.CounterVec

	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

var (
	_ ResolverHooks = (*Metrics)(nil)
	_ ProviderHooks = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
	_ HTTPHooks     = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_resolve_total",
			Help: "Resolutions by section and result",
		}, []string{"section", "result"}),
		resolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stacklock_resolve_duration_seconds",
			Help:    "Resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"section"}),
		resolveRounds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacklock_resolve_rounds",
			Help:    "Resolver rounds per resolution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		backtracks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_backtrack_total",
			Help: "Abandoned candidates by package",
		}, []string{"package"}),
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_provider_fetch_total",
			Help: "Upstream metadata fetches by kind and result",
		}, []string{"kind", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stacklock_provider_fetch_duration_seconds",
			Help:    "Upstream metadata fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		memoHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_provider_memo_hits_total",
			Help: "Metadata lookups answered from memory",
		}, []string{"kind"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_cache_events_total",
			Help: "Cache operations by key type and event",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_http_requests_total",
			Help: "HTTP responses by host and status",
		}, []string{"host", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stacklock_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklock_http_errors_total",
			Help: "HTTP transport failures by host",
		}, []string{"host"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnResolveStart(context.Context, string, int) {}

func (m *Metrics) OnResolveComplete(_ context.Context, section string, _ int, rounds int, d time.Duration, err error) {
	m.resolveTotal.WithLabelValues(section, result(err)).Inc()
	m.resolveDuration.WithLabelValues(section).Observe(d.Seconds())
	m.resolveRounds.Observe(float64(rounds))
}

func (m *Metrics) OnBacktrack(_ context.Context, pkg string) {
	m.backtracks.WithLabelValues(pkg).Inc()
}

func (m *Metrics) OnFetch(_ context.Context, kind string, d time.Duration, err error) {
	m.fetchTotal.WithLabelValues(kind, result(err)).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) OnMemoHit(_ context.Context, kind string) {
	m.memoHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(host).Inc()
}

// Install registers m for every hook category.
func (m *Metrics) Install() {
	SetResolverHooks(m)
	SetProviderHooks(m)
	SetCacheHooks(m)
	SetHTTPHooks(m)
}
