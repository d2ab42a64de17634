package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nyayagpt_queries_total",
		Help: "Queries processed, by mode and outcome.",
	}, []string{"mode", "outcome"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nyayagpt_query_duration_seconds",
		Help:    "End-to-end query processing duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nyayagpt_cache_hits_total",
		Help: "Non-streaming responses served from the cache.",
	})

	fastPathHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nyayagpt_fastpath_hits_total",
		Help: "Greeting queries answered without retrieval or generation.",
	})
)

func observe(mode, outcome string, start time.Time) {
	queriesTotal.WithLabelValues(mode, outcome).Inc()
	queryDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
