// Single-producer single-consumer staging ring holding uncompressed log records
package staging

import (
	"fastlog/internal/atomics"
	"fmt"
	"runtime"
)

// Creates a new staging ring. Capacity must be a power of two; usable
// capacity is one byte less (equal positions always mean empty).
func New(namespace []string, id int, capacity int) (new *Buffer, err error) {
	if capacity < 2 || (capacity&(capacity-1)) != 0 {
		err = fmt.Errorf("capacity must be a power of two greater than 1")
		return
	}

	new = &Buffer{
		Namespace: namespace,
		ID:        id,
		storage:   make([]byte, capacity),
		size:      uint64(capacity),
		Metrics:   &MetricStorage{},
	}
	new.endOfRecordedSpace.Store(uint64(capacity))
	return
}

// Reserves a contiguous span of exactly nbytes for the owning producer.
// Blocks (spinning) while the ring is too full. The span is not visible
// to the consumer until Commit.
func (buffer *Buffer) Reserve(nbytes int) (span []byte) {
	n := uint64(nbytes)

	// Fast path: the cached free space answer avoids touching
	// consumerPos (a cache line shared with the drainer)
	if buffer.minFreeSpace > n {
		pos := buffer.producerPos.Load()
		span = buffer.storage[pos : pos+n : pos+n]
		return
	}

	span = buffer.reserveSpaceInternal(n, true)
	return
}

// Non-blocking Reserve. Returns nil when the span cannot be handed out
// without waiting on the consumer.
func (buffer *Buffer) TryReserve(nbytes int) (span []byte) {
	n := uint64(nbytes)

	if buffer.minFreeSpace > n {
		pos := buffer.producerPos.Load()
		span = buffer.storage[pos : pos+n : pos+n]
		return
	}

	span = buffer.reserveSpaceInternal(n, false)
	return
}

// Slow path of Reserve: re-examines consumerPos and wraps the producer
// position when the tail of the ring cannot fit the request.
//
// All the space checks are strictly > or <=, never >= or <. Allowing
// the positions to meet would make a full ring indistinguishable from
// an empty one, so equality is reserved to mean empty and the ring
// holds at most size-1 payload bytes.
func (buffer *Buffer) reserveSpaceInternal(nbytes uint64, blocking bool) (span []byte) {
	for buffer.minFreeSpace <= nbytes {
		// consumerPos moves under the drainer; take one consistent
		// copy per iteration to do the math on
		cachedConsumerPos := buffer.consumerPos.Load()
		pos := buffer.producerPos.Load()

		if cachedConsumerPos <= pos {
			// Free run is the tail between producerPos and the end
			buffer.minFreeSpace = buffer.size - pos

			if buffer.minFreeSpace > nbytes {
				break
			}

			// Tail too small, wrap to the start. Wrapping is only
			// legal while the consumer is away from the start: the
			// producer may never land on consumerPos (equality means
			// empty and the committed tail would become unreachable).
			if cachedConsumerPos != 0 {
				// endOfRecordedSpace must be visible before the
				// wrapped producerPos or the consumer could walk past
				// the last committed byte into stale tail data
				buffer.endOfRecordedSpace.Store(pos)
				buffer.producerPos.Store(0)
				buffer.Metrics.Wraps.Add(1)
				buffer.minFreeSpace = cachedConsumerPos
			} else {
				buffer.minFreeSpace = 0
			}
		} else {
			buffer.minFreeSpace = cachedConsumerPos - pos
		}

		if buffer.minFreeSpace <= nbytes {
			if !blocking {
				buffer.Metrics.ReserveFails.Add(1)
				return
			}

			buffer.Metrics.ReserveSpins.Add(1)
			runtime.Gosched()
		}
	}

	pos := buffer.producerPos.Load()
	span = buffer.storage[pos : pos+nbytes : pos+nbytes]
	return
}

// Publishes exactly nbytes previously handed out by Reserve. The
// atomic store orders the payload writes before the position update,
// so the consumer never observes uncommitted bytes.
func (buffer *Buffer) Commit(nbytes int) {
	if nbytes <= 0 {
		return
	}

	n := uint64(nbytes)
	pos := buffer.producerPos.Load()
	buffer.producerPos.Store(pos + n)
	buffer.minFreeSpace -= n

	buffer.Metrics.Backlog.Add(n)
	buffer.Metrics.BytesCommitted.Add(n)
	buffer.Metrics.EntriesCommitted.Add(1)
}

// Returns the contiguous run of committed bytes at the consumer
// position. When the producer has wrapped and the run above the
// consumer is exhausted, the consumer position rolls over to the start
// of the ring and the post-wrap run is returned. An empty slice means
// no committed data.
func (buffer *Buffer) Peek() (readable []byte) {
	// Save a consistent copy of the producer position
	cachedProducerPos := buffer.producerPos.Load()
	pos := buffer.consumerPos.Load()

	if cachedProducerPos < pos {
		// Producer wrapped; remaining data runs up to the recorded
		// bound published before the wrap
		endOfData := buffer.endOfRecordedSpace.Load()
		if endOfData > pos {
			readable = buffer.storage[pos:endOfData:endOfData]
			return
		}

		// Roll over
		buffer.consumerPos.Store(0)
		pos = 0
	}

	readable = buffer.storage[pos:cachedProducerPos:cachedProducerPos]
	return
}

// Releases the first nbytes of the last Peek back to the producer
func (buffer *Buffer) Consume(nbytes int) {
	if nbytes <= 0 {
		return
	}

	pos := buffer.consumerPos.Load()
	buffer.consumerPos.Store(pos + uint64(nbytes))
	buffer.Metrics.BytesConsumed.Add(uint64(nbytes))
	atomics.Subtract(&buffer.Metrics.Backlog, uint64(nbytes), 4)
}

// True when there are no committed-but-unconsumed bytes
func (buffer *Buffer) Empty() (empty bool) {
	empty = buffer.producerPos.Load() == buffer.consumerPos.Load()
	return
}

// Marks the ring for deallocation once drained. Called by the owning
// producer on release; the ring itself is freed by the drainer only
// after it observes the ring empty.
func (buffer *Buffer) MarkForDealloc() {
	buffer.shouldDeallocate.Store(true)
}

// True only when the owning producer has released the ring and no
// committed data remains
func (buffer *Buffer) CheckCanDelete() (deletable bool) {
	deletable = buffer.shouldDeallocate.Load() && buffer.Empty()
	return
}

// Total ring capacity in bytes (usable capacity is one less)
func (buffer *Buffer) Size() (size int) {
	size = int(buffer.size)
	return
}
