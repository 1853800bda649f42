package drainer

import (
	"fastlog/internal/externalio/file"
	"fastlog/internal/registry"
	"fastlog/pkg/protocol"
	"sync"
	"sync/atomic"
)

// The single background worker that round-robins over the staging
// rings, compresses whatever is committed, and emits batches to the
// log sink.
type Drainer struct {
	Namespace []string

	registry *registry.Registry
	table    *protocol.Table
	sink     *file.Sink

	useAsync bool
	directIO bool

	// Two scratch buffers: compress into one while the kernel writes
	// the other. Swapped on every async submission.
	compressing             []byte
	doubleBuffer            []byte
	hasOutstandingOperation bool

	// Round-robin cursor across the registry
	lastStagingBufferChecked int

	// Delta compression baselines carried across entries and batches
	lastFmtID     uint32
	lastTimestamp uint64

	// Condition protocol. syncRequested and stopped are guarded by
	// condMutex; workAdded carries wakeups into the timed idle wait.
	condMutex        sync.Mutex
	hintQueueEmptied *sync.Cond
	workAdded        chan struct{}
	syncRequested    bool
	stopped          bool

	exitRequested atomic.Bool
	paused        atomic.Bool // test hook: skip scanning while set

	done chan struct{} // closed when Run returns

	Metrics *MetricStorage
}
