package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PairsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kelpdry_accuracy_pairs_scored_total",
			Help: "Forecast/observation pairs scored by the accuracy analyzer",
		},
	)

	PairsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kelpdry_accuracy_pairs_skipped_total",
			Help: "Pairs skipped because forecast or observation was absent",
		},
	)

	SamplesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kelpdry_quality_samples_classified_total",
			Help: "Field outcomes run through the data quality classifier",
		},
		[]string{"recommendation"},
	)

	ContextFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kelpdry_weather_context_fetches_total",
			Help: "Weather context fetch attempts for field outcomes",
		},
		[]string{"status"},
	)

	Retrains = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kelpdry_retrains_total",
			Help: "Retrain attempts by outcome",
		},
		[]string{"outcome"},
	)
)
