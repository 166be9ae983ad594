package storage

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

var (
	// OperationsTotal counts registry operations by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gojsondb_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"operation", "result"},
	)
	// RetrieveDuration is the in-memory lookup time of retrieve.
	RetrieveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gojsondb_retrieve_duration_seconds",
			Help:    "Retrieve latency in seconds",
			Buckets: []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3},
		},
		[]string{"collection"},
	)
	// DocumentsResident tracks live documents per collection.
	DocumentsResident = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gojsondb_documents",
			Help: "Number of documents held in memory",
		},
		[]string{"collection"},
	)
	// CompactionsTotal counts finished compactions.
	CompactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gojsondb_compactions_total",
			Help: "Total number of log compactions",
		},
		[]string{"collection", "result"},
	)
)

func observeRetrieve(collection string, d time.Duration) {
	RetrieveDuration.WithLabelValues(collection).Observe(d.Seconds())
}

// observeOp records an operation against its error kind.
func observeOp(operation string, err error) {
	OperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, domain.ErrIOFailure):
		return "io_failure"
	default:
		return "error"
	}
}
