package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loom_runs_total",
			Help: "Number of blueprint runs by outcome.",
		},
		[]string{"outcome"},
	)
	nodeExecutionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loom_node_executions_total",
			Help: "Number of calls actually executed by a driver.",
		},
	)
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loom_cache_hits_total",
			Help: "Number of calls satisfied from the store without execution.",
		},
	)
	nodeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loom_node_failures_total",
			Help: "Number of call executions that failed.",
		},
	)
	nodeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loom_node_duration_seconds",
			Help:    "Wall time from dispatch to completion per call.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		runsTotal,
		nodeExecutionsTotal,
		cacheHitsTotal,
		nodeFailuresTotal,
		nodeDuration,
	)
}
