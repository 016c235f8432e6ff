// Package metrics exposes Prometheus collectors for the HTTP layer, the
// session domain and the WebSocket hub.
//
// Every method is safe on a nil *Metrics, so tests and the CLI can run
// without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "emocircle"

// Domain events counted by Event.
const (
	EventSessionCreated = "session_created"
	EventSessionEnded   = "session_ended"
	EventJoin           = "participant_joined"
	EventEmotion        = "emotion_reported"
	EventMessage        = "message_posted"
	EventReply          = "reply_posted"
)

// Exposed family names, for readers of the /metrics body.
const (
	MetricHTTPRequests = namespace + "_http_requests_total"
	MetricDomainEvents = namespace + "_domain_events_total"
	MetricSubscribers  = namespace + "_ws_subscribers"
	MetricCacheLookups = namespace + "_detail_cache_lookups_total"
)

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	events      *prometheus.CounterVec
	subscribers prometheus.Gauge
	cacheHits   *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Committed session writes by kind.",
		}, []string{"event"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_subscribers",
			Help:      "Open WebSocket session subscriptions.",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_cache_lookups_total",
			Help:      "Session detail cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.requests, m.duration, m.events, m.subscribers, m.cacheHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry, e.g. for tests gathering values.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Event counts a committed domain write.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// SubscriberAdded and SubscriberRemoved track open subscriptions.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

// CacheLookup records a detail cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}
