package postcache

import "github.com/prometheus/client_golang/prometheus"

// Label values for flush results.
const (
	resultOK   = "ok"
	resultFail = "fail"
)

// Collectors for Cache flush and read metrics.
var (
	flushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcache_flush_total",
		Help: "Cumulative number of flushes, by result.",
	}, []string{"result"})
	flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "postcache_flush_duration_seconds",
		Help:    "Duration of flush transactions.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
	rowsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcache_rows_written_total",
		Help: "Cumulative number of rows written by committed flushes, by table.",
	}, []string{"table"})
	rowsDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcache_rows_deleted_total",
		Help: "Cumulative number of rows deleted by committed flushes, by table.",
	}, []string{"table"})
	facetReadErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcache_facet_read_errors_total",
		Help: "Cumulative number of post facet lookups that failed and were read as empty.",
	}, []string{"facet"})
)

// Collectors returns the post cache metric collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		flushTotal,
		flushDuration,
		rowsWrittenTotal,
		rowsDeletedTotal,
		facetReadErrorsTotal,
	}
}

// RegisterMetrics registers the post cache collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
