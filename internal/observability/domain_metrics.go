package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	providerSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costnav_provider_searches_total",
			Help: "Total number of provider searches by filter shape (drg_filter: none|id|text, geo_filter: none|radius).",
		},
		[]string{"drg_filter", "geo_filter"},
	)
	providerSearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "costnav_provider_search_results",
			Help:    "Number of providers returned per search after all filters.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	askRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costnav_ask_requests_total",
			Help: "Total /ask requests by outcome (answered, declined, rejected, translation_failed, execution_failed).",
		},
		[]string{"outcome"},
	)
	askStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costnav_ask_stage_duration_seconds",
			Help:    "Duration of /ask pipeline stages (translate, execute, answer).",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	sqlGateRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "costnav_sql_gate_rejections_total",
			Help: "Total number of generated statements rejected by the read-only gate.",
		},
	)
	etlRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costnav_etl_rows_total",
			Help: "Rows loaded by the ETL pipeline per entity (providers, drgs, drg_prices, ratings, zip_codes, skipped).",
		},
		[]string{"entity"},
	)
)

func init() {
	prometheus.MustRegister(
		providerSearchesTotal,
		providerSearchResults,
		askRequestsTotal,
		askStageDurationSeconds,
		sqlGateRejectionsTotal,
		etlRowsTotal,
	)
}

func ObserveProviderSearch(drgFilter, geoFilter string, results int) {
	providerSearchesTotal.WithLabelValues(drgFilter, geoFilter).Inc()
	providerSearchResults.Observe(float64(results))
}

func ObserveAskOutcome(outcome string) {
	askRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveAskStage(stage string, elapsed time.Duration) {
	askStageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func IncrementSQLGateRejections() {
	sqlGateRejectionsTotal.Inc()
}

func AddETLRows(entity string, count int) {
	if count <= 0 {
		return
	}
	etlRowsTotal.WithLabelValues(entity).Add(float64(count))
}
