package drainer

import (
	"fastlog/internal/metrics"
	"sync/atomic"
	"time"
)

type MetricStorage struct {
	TotalBytesRead   atomic.Uint64 // Uncompressed bytes pulled off staging rings
	TotalBytesWritten atomic.Uint64 // Compressed bytes handed to the kernel (incl. direct I/O padding, also counted in PadBytesWritten)
	PadBytesWritten  atomic.Uint64 // Zero bytes appended for direct I/O block alignment
	EventsProcessed  atomic.Uint64 // Records compressed
	WritesCompleted  atomic.Uint64 // Batches accepted by the kernel
	BuffersReclaimed atomic.Uint64 // Staging rings destroyed after their producer released them

	CycleAtThreadStart           atomic.Uint64 // Counter value when Run started
	CyclesAwake                  atomic.Uint64 // Counter ticks spent not blocked
	CyclesCompressing            atomic.Uint64 // Ticks inside the compression inner loop
	CyclesScanningAndCompressing atomic.Uint64 // Ticks across full registry scans
	CyclesDiskIO                 atomic.Uint64 // Ticks submitting and reaping writes
}

func (drainer *Drainer) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	add := func(name string, raw interface{}, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   drainer.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	add("events_processed", drainer.Metrics.EventsProcessed.Load(), "count", metrics.Counter, "Total records compressed")
	add("bytes_read", drainer.Metrics.TotalBytesRead.Load(), "bytes", metrics.Counter, "Uncompressed bytes drained from staging rings")
	add("bytes_written", drainer.Metrics.TotalBytesWritten.Load(), "bytes", metrics.Counter, "Compressed bytes handed to the kernel")
	add("pad_bytes_written", drainer.Metrics.PadBytesWritten.Load(), "bytes", metrics.Counter, "Zero padding appended for direct I/O alignment")
	add("writes_completed", drainer.Metrics.WritesCompleted.Load(), "count", metrics.Counter, "Batches accepted by the kernel")
	add("buffers_reclaimed", drainer.Metrics.BuffersReclaimed.Load(), "count", metrics.Counter, "Staging rings destroyed after producer release")
	add("cycles_awake", drainer.Metrics.CyclesAwake.Load(), "ns", metrics.Counter, "Time spent not blocked")
	add("cycles_compressing", drainer.Metrics.CyclesCompressing.Load(), "ns", metrics.Counter, "Time inside the compression inner loop")
	add("cycles_disk_io", drainer.Metrics.CyclesDiskIO.Load(), "ns", metrics.Counter, "Time submitting and reaping writes")

	return
}
