package staging

import "sync/atomic"

// Per-producer byte ring. Exactly one goroutine writes (Reserve/Commit)
// and exactly one goroutine reads (Peek/Consume); the protocol is
// lock-free on both sides.
//
// Producer-written and consumer-written positions live on separate
// cache lines. Without the padding the positions share a line and every
// commit forces a coherency miss on the drainer (and vice versa).
type Buffer struct {
	Namespace []string
	ID        int

	storage []byte
	size    uint64

	// Producer line: the publish position, the recorded-space bound
	// published on wrap, and the producer-private free space cache
	_                  [64]byte
	producerPos        atomic.Uint64
	endOfRecordedSpace atomic.Uint64
	minFreeSpace       uint64
	_                  [64 - 3*8]byte

	// Consumer line
	consumerPos atomic.Uint64
	_           [64 - 8]byte

	// Set once by the owning producer on release, read by the drainer
	shouldDeallocate atomic.Bool

	Metrics *MetricStorage
}
