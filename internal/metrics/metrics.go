package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tfm"

type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	DocumentSaves   *prometheus.CounterVec
	DocumentPlayers prometheus.Gauge
	DocumentGames   prometheus.Gauge
	SyncChecks      *prometheus.CounterVec
	ArchiveUploads  *prometheus.CounterVec
}

// New registers on a private registry so tests can build as many as they need.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route"}),
		DocumentSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_saves_total",
			Help:      "Document writes by result",
		}, []string{"result"}),
		DocumentPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_players",
			Help:      "Players in the last saved document",
		}),
		DocumentGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_games",
			Help:      "Games in the last saved document",
		}),
		SyncChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_checks_total",
			Help:      "Sync checks by whether the client was stale",
		}, []string{"needs_update"}),
		ArchiveUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_uploads_total",
			Help:      "Export archive uploads by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestLatency,
		m.DocumentSaves,
		m.DocumentPlayers,
		m.DocumentGames,
		m.SyncChecks,
		m.ArchiveUploads,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveSave(err error, players, games int) {
	if err != nil {
		m.DocumentSaves.WithLabelValues("error").Inc()
		return
	}
	m.DocumentSaves.WithLabelValues("ok").Inc()
	m.DocumentPlayers.Set(float64(players))
	m.DocumentGames.Set(float64(games))
}

func (m *Metrics) ObserveSync(needsUpdate bool) {
	m.SyncChecks.WithLabelValues(strconv.FormatBool(needsUpdate)).Inc()
}

func (m *Metrics) ObserveArchive(err error) {
	if err != nil {
		m.ArchiveUploads.WithLabelValues("error").Inc()
		return
	}
	m.ArchiveUploads.WithLabelValues("ok").Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument counts and times requests under a fixed route label.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.RequestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
