package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	viewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storypath",
			Name:      "book_views_total",
			Help:      "Book view requests by source (heuristic, compiled)",
		},
		[]string{"source"},
	)

	viewPages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storypath",
			Name:      "view_pages",
			Help:      "Pages produced per heuristic view",
			Buckets:   []float64{4, 8, 16, 32, 64, 128, 256},
		},
	)

	compilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storypath",
			Name:      "compiles_total",
			Help:      "Layout compilations by result (success, failed, locked)",
		},
		[]string{"result"},
	)

	compileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storypath",
			Name:      "compile_duration_seconds",
			Help:      "Duration of layout compilations",
			Buckets:   prometheus.DefBuckets,
		},
	)

	scenesCompiled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storypath",
			Name:      "scenes_compiled_total",
			Help:      "Scenes laid out by the compiler",
		},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storypath",
			Name:      "queue_depth",
			Help:      "Compile queue depth gauges for stream and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(viewsTotal, viewPages, compilesTotal, compileDuration, scenesCompiled, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncView(source string)    { viewsTotal.WithLabelValues(source).Inc() }
func ObserveViewPages(n int)   { viewPages.Observe(float64(n)) }
func IncCompile(result string) { compilesTotal.WithLabelValues(result).Inc() }

func ObserveCompile(result string, dur time.Duration, scenes int) {
	compilesTotal.WithLabelValues(result).Inc()
	compileDuration.Observe(dur.Seconds())
	scenesCompiled.Add(float64(scenes))
}

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
