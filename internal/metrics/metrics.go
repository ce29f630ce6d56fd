package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the reconciliation loop and the best-effort remote sink.
// The sink never surfaces failures to callers, so these counters are the
// only way to see it dropping payloads.
var (
	SyncRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sync_runs_total",
		Help: "Number of reconciliation passes executed.",
	})

	SyncMergesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sync_merges_applied_total",
		Help: "Number of reconciliation passes that changed the shared snapshot.",
	})

	SyncRecordsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sync_records_discarded_total",
		Help: "User records discarded whole by last-writer-wins merging.",
	})

	SinkDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sink_deliveries_total",
		Help: "Payloads delivered to the remote sink.",
	})

	SinkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sink_retries_total",
		Help: "Failed sink attempts that were retried.",
	})

	SinkDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shplus_sink_dropped_total",
		Help: "Payloads dropped after exhausting sink retries.",
	})
)
