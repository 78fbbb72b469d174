package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Duration of one full batch analysis run
	AnalysisRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_run_duration_seconds",
		Help:    "Duration of one batch analysis run",
		Buckets: prometheus.DefBuckets,
	})

	// Total number of batch analysis runs, by outcome
	AnalysisRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_runs_total",
		Help: "Total number of batch analysis runs",
	}, []string{"outcome"})

	// Entities analyzed per run
	AnalysisEntitiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_entities_total",
		Help: "Total number of entities analyzed",
	})

	// Detector findings by detector name and risk tier
	DetectorFindingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_findings_total",
		Help: "Total number of detector findings",
	}, []string{"detector", "risk"})

	// Rating upsert retries after transient persistence failures
	RatingUpsertRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rating_upsert_retries_total",
		Help: "Total number of rating upsert retries",
	})
)

func Init() {
	prometheus.MustRegister(
		AnalysisRunDuration,
		AnalysisRunsTotal,
		AnalysisEntitiesTotal,
		DetectorFindingsTotal,
		RatingUpsertRetriesTotal,
	)
}
