package logger

import (
	"fastlog/internal/cycles"
	"fastlog/pkg/protocol"
	"fmt"
)

// Hot-path emit: captures the cycle timestamp, reserves the record's
// exact footprint on the goroutine's staging ring, packs the header
// and arguments, and commits. Blocks only while the ring is full.
func (producer *Producer) Log(fmtID uint32, args ...any) (err error) {
	err = producer.LogAt(fmtID, cycles.Now(), args...)
	return
}

// Emit with a caller-captured timestamp. The runtime only requires the
// counter to be monotonic per producer.
func (producer *Producer) LogAt(fmtID uint32, timestamp uint64, args ...any) (err error) {
	size, format, err := producer.prepare(fmtID, args)
	if err != nil {
		return
	}

	span := producer.buffer.Reserve(size)
	if _, err = protocol.AppendEntry(span, format, timestamp, args); err != nil {
		// Nothing was committed; the next record reuses the span
		return
	}

	producer.buffer.Commit(size)
	return
}

// Non-blocking emit. Returns ErrRingFull instead of waiting on the
// drainer; the caller decides the policy.
func (producer *Producer) TryLog(fmtID uint32, args ...any) (err error) {
	size, format, err := producer.prepare(fmtID, args)
	if err != nil {
		return
	}

	timestamp := cycles.Now()

	span := producer.buffer.TryReserve(size)
	if span == nil {
		err = ErrRingFull
		return
	}

	if _, err = protocol.AppendEntry(span, format, timestamp, args); err != nil {
		return
	}

	producer.buffer.Commit(size)
	return
}

// Shared validation for both emit paths
func (producer *Producer) prepare(fmtID uint32, args []any) (size int, format protocol.Format, err error) {
	if producer.released {
		err = fmt.Errorf("producer handle already released")
		return
	}

	format, err = producer.runtime.table.Format(fmtID)
	if err != nil {
		return
	}

	size, err = protocol.EntrySizeFor(format, args)
	if err != nil {
		return
	}

	if size > producer.runtime.maxEntrySize {
		err = fmt.Errorf("record of %d bytes exceeds the %d byte limit", size, producer.runtime.maxEntrySize)
		return
	}
	return
}

// Releases the goroutine's staging ring. The ring is destroyed by the
// drainer once every committed record has drained; the producer must
// not emit afterwards.
func (producer *Producer) Release() {
	if producer.released {
		return
	}
	producer.released = true
	producer.buffer.MarkForDealloc()
}

// Ring metrics for this handle (diagnostics)
func (producer *Producer) Backlog() (bytes uint64) {
	bytes = producer.buffer.Metrics.Backlog.Load()
	return
}
