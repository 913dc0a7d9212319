package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ParsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "parses_total",
		Help:      "Total completed parses by the strategy that produced the result.",
	}, []string{"parser"})

	ParseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediaprobe",
		Name:      "parse_duration_seconds",
		Help:      "Time spent in a backend strategy.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"parser"})

	BackendFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "backend_failures_total",
		Help:      "Total backend attempts that failed, by backend and reason.",
	}, []string{"backend", "reason"})

	InFlightParses = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaprobe",
		Name:      "in_flight_parses",
		Help:      "Number of parses currently in progress.",
	})

	WaitTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "wait_timeouts_total",
		Help:      "Callers that gave up waiting for an in-flight parse.",
	})

	SubprocessTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "subprocess_timeouts_total",
		Help:      "External tool invocations killed by the fail-safe timeout.",
	}, []string{"tool"})

	ThumbnailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "thumbnails_total",
		Help:      "Resolved thumbnails by source.",
	}, []string{"source"})

	CoverLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaprobe",
		Name:      "cover_lookups_total",
		Help:      "Remote cover lookups by result (hit, miss, cached, error).",
	}, []string{"result"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ParsesTotal,
		ParseDuration,
		BackendFailuresTotal,
		InFlightParses,
		WaitTimeoutsTotal,
		SubprocessTimeoutsTotal,
		ThumbnailsTotal,
		CoverLookupsTotal,
	)
}
