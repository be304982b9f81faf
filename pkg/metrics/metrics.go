// Package metrics exposes the Prometheus collectors for the game server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subway"

// Registry holds every collector of this package plus the Go/process
// collectors; it is served by Handler.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	resolveDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "leaderboard",
		Name:      "resolve_duration_seconds",
		Help:      "Surrounding-score window resolution latency by outcome.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"outcome"})

	scoreSubmissions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leaderboard",
		Name:      "score_submissions_total",
		Help:      "Score submissions by result (updated, unchanged, invalid, error).",
	}, []string{"result"})

	feedClients = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "clients",
		Help:      "Connected leaderboard feed websocket clients.",
	})

	reindexRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ranking_index",
		Name:      "reindex_runs_total",
		Help:      "Ranking index rebuilds by outcome.",
	}, []string{"outcome"})

	reindexEntries = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ranking_index",
		Name:      "entries",
		Help:      "Entries written by the last successful rebuild.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordHTTPRequest(route, method string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func ObserveResolve(outcome string, d time.Duration) {
	resolveDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordScoreSubmission(result string) {
	scoreSubmissions.WithLabelValues(result).Inc()
}

func SetFeedClients(n int) {
	feedClients.Set(float64(n))
}

func RecordReindex(outcome string, entries int) {
	reindexRuns.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		reindexEntries.Set(float64(entries))
	}
}
