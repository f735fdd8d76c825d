package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvestgoat"

// Metrics tracks operational metrics for harvest runs.
//
// All recording methods are safe on a nil *Metrics so components can be
// built without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	fetchRequests  *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchRetries   *prometheus.CounterVec
	fetchInFlight  prometheus.Gauge
	bytesFetched   prometheus.Counter
	itemsListed    *prometheus.CounterVec
	articlesParsed *prometheus.CounterVec
	articlesDrop   *prometheus.CounterVec
	articlesStored *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	runDuration    prometheus.Histogram

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance backed by its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Outbound fetches by fetcher type and outcome.",
		}, []string{"fetcher", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent per outbound fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"fetcher"}),
		fetchRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Retried fetch attempts by host.",
		}, []string{"host"}),
		fetchInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detail_fetches_in_flight",
			Help:      "Detail fetches currently in flight.",
		}),
		bytesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_fetched_total",
			Help:      "Decoded response bytes received.",
		}),
		itemsListed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_listed_total",
			Help:      "Index items listed per source.",
		}, []string{"source"}),
		articlesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_parsed_total",
			Help:      "Articles produced per source.",
		}, []string{"source"}),
		articlesDrop: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_dropped_total",
			Help:      "Items or articles dropped per source and reason.",
		}, []string{"source", "reason"}),
		articlesStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_stored_total",
			Help:      "Articles handed to a storage backend.",
		}, []string{"backend"}),
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources that failed a run.",
		}, []string{"source"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full multi-source run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		logger: logger.With("component", "metrics"),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records one outbound fetch.
func (m *Metrics) ObserveFetch(fetcher string, d time.Duration, size int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetchRequests.WithLabelValues(fetcher, outcome).Inc()
	m.fetchDuration.WithLabelValues(fetcher).Observe(d.Seconds())
	if size > 0 {
		m.bytesFetched.Add(float64(size))
	}
}

// FetchRetried records a retry against host.
func (m *Metrics) FetchRetried(host string) {
	if m == nil {
		return
	}
	m.fetchRetries.WithLabelValues(host).Inc()
}

// DetailStarted and DetailFinished bracket one in-flight detail fetch.
func (m *Metrics) DetailStarted() {
	if m == nil {
		return
	}
	m.fetchInFlight.Inc()
}

func (m *Metrics) DetailFinished() {
	if m == nil {
		return
	}
	m.fetchInFlight.Dec()
}

// ItemsListed records the size of a source listing.
func (m *Metrics) ItemsListed(source string, n int) {
	if m == nil {
		return
	}
	m.itemsListed.WithLabelValues(source).Add(float64(n))
}

// ArticlesParsed records the articles produced by a source.
func (m *Metrics) ArticlesParsed(source string, n int) {
	if m == nil {
		return
	}
	m.articlesParsed.WithLabelValues(source).Add(float64(n))
}

// ArticleDropped records one drop decision.
func (m *Metrics) ArticleDropped(source, reason string) {
	if m == nil {
		return
	}
	m.articlesDrop.WithLabelValues(source, reason).Inc()
}

// ArticleStored records one successful hand-off.
func (m *Metrics) ArticleStored(backend string) {
	if m == nil {
		return
	}
	m.articlesStored.WithLabelValues(backend).Inc()
}

// SourceFailed records a failed source.
func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

// ObserveRun records the duration of a full run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
