// Package metrics provides Prometheus metrics for catalog sync runs.
//
// A sync is a batch job rather than a scraped service, so the collected
// values are pushed to a Pushgateway once the run finishes.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// SourceRequestsTotal tracks catalog API requests by operation and status
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "source",
			Name:      "requests_total",
			Help:      "Total number of catalog API requests",
		},
		[]string{"operation", "status_code"},
	)

	// SourceRequestDuration tracks catalog API latency
	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "source",
			Name:      "request_duration_seconds",
			Help:      "Duration of catalog API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// SourceRetriesTotal tracks retried requests by reason
	SourceRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "source",
			Name:      "retries_total",
			Help:      "Total number of retried catalog API requests",
		},
		[]string{"operation", "reason"},
	)

	// SourceGiveUpsTotal tracks requests abandoned after exhausting retries
	SourceGiveUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "source",
			Name:      "give_ups_total",
			Help:      "Total number of catalog API requests abandoned after retries",
		},
		[]string{"operation"},
	)

	// UpsertsTotal tracks gateway ensure outcomes per table
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "store",
			Name:      "ensures_total",
			Help:      "Total number of ensure-exists calls by table and outcome",
		},
		[]string{"table", "status"},
	)

	// EntitiesTotal tracks cascade outcomes per vehicle type and level
	EntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "entities_total",
			Help:      "Total number of catalog entities processed by the sync",
		},
		[]string{"vehicle_type", "entity", "status"},
	)

	// RunDuration tracks the wall time of a full sync run
	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last sync run in seconds",
		},
	)

	// LastRunTimestamp records when the last sync finished
	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sync run finished, by outcome",
		},
		[]string{"outcome"},
	)
)

// Push sends every registered metric to the Pushgateway at url under job.
// An empty url is a no-op.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
