package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drawcast"

// Recorder owns the service's Prometheus instruments. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	connectionsOpen prometheus.Counter
	eventsPublished *prometheus.CounterVec
	framesDropped   prometheus.Counter
	publishOutcomes *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connections",
			Help:      "Viewer stream connections currently open.",
		}),
		connectionsOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_connections_opened_total",
			Help:      "Viewer stream connections opened since start.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published on the bus, by kind.",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_dropped_total",
			Help:      "Frames not delivered because a viewer fell behind.",
		}),
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_publish_total",
			Help:      "Result publish attempts, by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		r.connections,
		r.connectionsOpen,
		r.eventsPublished,
		r.framesDropped,
		r.publishOutcomes,
		r.requests,
		r.requestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ConnectionOpened() {
	if r == nil {
		return
	}
	r.connections.Inc()
	r.connectionsOpen.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connections.Dec()
}

func (r *Recorder) EventPublished(kind string) {
	if r == nil {
		return
	}
	r.eventsPublished.WithLabelValues(kind).Inc()
}

func (r *Recorder) FrameDropped() {
	if r == nil {
		return
	}
	r.framesDropped.Inc()
}

// PublishOutcome counts a publish attempt. outcome is a short label such as
// "ok", "already_published" or "error".
func (r *Recorder) PublishOutcome(outcome string) {
	if r == nil {
		return
	}
	r.publishOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}
