package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragtutor_generation_attempts_total",
			Help: "Generation attempts by model, auth scheme and outcome",
		},
		[]string{"model", "auth", "outcome"},
	)

	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragtutor_answers_total",
			Help: "Answers returned, split by whether retrieved context grounded them",
		},
		[]string{"grounded"},
	)

	RetrievalDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragtutor_retrieval_degraded_total",
			Help: "Retrieval calls that failed and were treated as no context",
		},
	)

	TranslationCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragtutor_translation_cache_total",
			Help: "Translation cache lookups by result",
		},
		[]string{"result"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragtutor_persistence_failures_total",
			Help: "Transcript writes that failed",
		},
		[]string{"op"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ragtutor_pipeline_stage_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	IndexRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragtutor_index_requests_total",
			Help: "Documents sent to the indexer by outcome",
		},
		[]string{"outcome"},
	)
)
