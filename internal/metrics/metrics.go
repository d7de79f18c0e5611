// Package metrics holds the Prometheus collectors for ingestion, similarity
// projection and recommendation serving.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestBatchesTotal counts batches by stage and outcome (committed, skipped, failed).
	IngestBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_ingest_batches_total",
		Help: "Total number of ingestion batches by stage and outcome",
	}, []string{"stage", "outcome"})

	// IngestRecordsTotal counts records written by stage.
	IngestRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_ingest_records_total",
		Help: "Total number of records written to the graph by stage",
	}, []string{"stage"})

	// IngestBatchDuration measures batch transaction latency.
	IngestBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movierec_ingest_batch_duration_seconds",
		Help:    "Batch transaction latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// SimilarityRunsTotal counts projection runs by outcome.
	SimilarityRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_similarity_runs_total",
		Help: "Total number of similarity projection runs by outcome",
	}, []string{"outcome"})

	// SimilarityRelationships is the number of SIMILAR edges written by the last run.
	SimilarityRelationships = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "movierec_similarity_relationships",
		Help: "SIMILAR relationships written by the last projection run",
	})

	// RecommendationsTotal counts requests by the strategy that produced the result.
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_recommendations_total",
		Help: "Total number of recommendation requests by strategy",
	}, []string{"strategy"})

	// RecommendPassTimeouts counts content passes that hit the pass deadline.
	RecommendPassTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movierec_recommend_pass_timeouts_total",
		Help: "Total number of content-based passes that timed out",
	})

	// RecommendErrorsTotal counts failed recommendation requests.
	RecommendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movierec_recommend_errors_total",
		Help: "Total number of failed recommendation requests",
	})

	// RecommendDuration measures end-to-end recommendation latency.
	RecommendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "movierec_recommend_duration_seconds",
		Help:    "Recommendation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordBatch records one ingestion batch outcome.
func RecordBatch(stage, outcome string, records int, d time.Duration) {
	IngestBatchesTotal.WithLabelValues(stage, outcome).Inc()
	if outcome == "committed" {
		IngestRecordsTotal.WithLabelValues(stage).Add(float64(records))
		IngestBatchDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// RecordSimilarity records a projection run.
func RecordSimilarity(written int64, err error) {
	if err != nil {
		SimilarityRunsTotal.WithLabelValues("failed").Inc()
		return
	}
	SimilarityRunsTotal.WithLabelValues("succeeded").Inc()
	SimilarityRelationships.Set(float64(written))
}

// RecordRecommendation records a served request.
func RecordRecommendation(strategy string, d time.Duration, err error) {
	RecommendDuration.Observe(d.Seconds())
	if err != nil {
		RecommendErrorsTotal.Inc()
		return
	}
	RecommendationsTotal.WithLabelValues(strategy).Inc()
}
