// Package metrics exposes Prometheus collectors for the sync subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagebook_sync_operations_total",
		Help: "Queued operations replayed against the remote store",
	}, []string{"status", "type"})

	SyncPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "wagebook_sync_pass_duration_seconds",
		Help: "Time spent in a single sync pass",
	})

	QueueBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wagebook_queue_backlog",
		Help: "Current unsynced operations in the local queue",
	})
)
