package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simcatalog",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Rows seen by the import pipeline, by stage (valid, rejected, committed).",
	}, []string{"stage"})

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simcatalog",
		Subsystem: "import",
		Name:      "commits_total",
		Help:      "Import commits by result (ok, invalid, failed).",
	}, []string{"result"})

	workbookRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simcatalog",
		Subsystem: "import",
		Name:      "workbook_rows_total",
		Help:      "Workbook import rows by sheet and result (created, skipped, error).",
	}, []string{"sheet", "result"})

	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simcatalog",
		Subsystem: "import",
		Name:      "commit_duration_seconds",
		Help:      "Time spent writing an import to the store.",
		Buckets:   prometheus.DefBuckets,
	})
)

func observeValidation(res ValidationResult) {
	rowsTotal.WithLabelValues("valid").Add(float64(len(res.NormalizedRows)))
	rejected := make(map[int]bool)
	for _, e := range res.Errors {
		if e.Row > 0 {
			rejected[e.Row] = true
		}
	}
	rowsTotal.WithLabelValues("rejected").Add(float64(len(rejected)))
}
