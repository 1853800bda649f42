package staging

import (
	"fastlog/internal/metrics"
	"sync/atomic"
	"time"
)

type MetricStorage struct {
	Backlog          atomic.Uint64 // Committed bytes not yet drained
	BytesCommitted   atomic.Uint64 // Total payload bytes published by the producer
	EntriesCommitted atomic.Uint64 // Total records published by the producer
	BytesConsumed    atomic.Uint64 // Total bytes released back by the drainer
	Wraps            atomic.Uint64 // Times the producer position rolled over
	ReserveSpins     atomic.Uint64 // Yield loops while waiting on the drainer
	ReserveFails     atomic.Uint64 // Non-blocking reservations that returned the sentinel
}

func (buffer *Buffer) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	// Helper to add metrics
	add := func(name string, raw interface{}, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   buffer.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	add("backlog", buffer.Metrics.Backlog.Load(), "bytes", metrics.Gauge, "Committed bytes not yet drained")
	add("bytes_committed", buffer.Metrics.BytesCommitted.Load(), "bytes", metrics.Counter, "Total payload bytes published by the producer")
	add("entries_committed", buffer.Metrics.EntriesCommitted.Load(), "count", metrics.Counter, "Total records published by the producer")
	add("bytes_consumed", buffer.Metrics.BytesConsumed.Load(), "bytes", metrics.Counter, "Total bytes released back to the producer")
	add("wraps", buffer.Metrics.Wraps.Load(), "count", metrics.Counter, "Times the producer position rolled over")
	add("reserve_spins", buffer.Metrics.ReserveSpins.Load(), "count", metrics.Counter, "Yield loops while the ring was too full")
	add("reserve_fails", buffer.Metrics.ReserveFails.Load(), "count", metrics.Counter, "Non-blocking reservations that returned the sentinel")

	return
}
