package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "eveview"

	fetchRequestsTotal   = "fetch_requests_total"
	fetchSupersededTotal = "fetch_superseded_total"
	fetchOutcomesTotal   = "fetch_outcomes_total"
	fetchDurationSeconds = "fetch_duration_seconds"
	resultCacheTotal     = "result_cache_total"

	// Labels
	triggerLabel = "trigger"
	kindLabel    = "kind"
	resultLabel  = "result"
)

// Fetch triggers.
const (
	TriggerQuery   = "query"
	TriggerSearch  = "search"
	TriggerPage    = "page"
	TriggerClear   = "clear"
	TriggerRefresh = "refresh"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var fetchRequestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      fetchRequestsTotal,
		Help:      "number of result list requests issued, by trigger",
	},
	[]string{triggerLabel},
)

var fetchSupersededTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      fetchSupersededTotal,
		Help:      "number of in-flight requests cancelled by a newer request",
	},
)

var fetchOutcomesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      fetchOutcomesTotal,
		Help:      "number of committed fetch outcomes, by kind",
	},
	[]string{kindLabel},
)

var fetchDurationSecondsMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      fetchDurationSeconds,
		Help:      "latency of committed result list requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

var resultCacheTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      resultCacheTotal,
		Help:      "result page cache lookups, by result",
	},
	[]string{resultLabel},
)

func IncreaseFetchRequests(trigger string) {
	fetchRequestsTotalMetric.With(prometheus.Labels{triggerLabel: trigger}).Inc()
}

func IncreaseFetchSuperseded() {
	fetchSupersededTotalMetric.Inc()
}

// ObserveFetchOutcome records a committed outcome and its latency.
func ObserveFetchOutcome(kind string, seconds float64) {
	fetchOutcomesTotalMetric.With(prometheus.Labels{kindLabel: kind}).Inc()
	fetchDurationSecondsMetric.Observe(seconds)
}

func IncreaseResultCache(result string) {
	resultCacheTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(fetchRequestsTotalMetric)
	prometheus.MustRegister(fetchSupersededTotalMetric)
	prometheus.MustRegister(fetchOutcomesTotalMetric)
	prometheus.MustRegister(fetchDurationSecondsMetric)
	prometheus.MustRegister(resultCacheTotalMetric)
}
