// Background worker scanning staging rings, compressing records and emitting batches
package drainer

import (
	"context"
	"fastlog/internal/cycles"
	"fastlog/internal/externalio/file"
	"fastlog/internal/global"
	"fastlog/internal/logctx"
	"fastlog/internal/registry"
	"fastlog/pkg/protocol"
	"fmt"
	"sync"
	"time"
)

// Creates a new drainer bound to a registry, a compressor table and an
// open sink. Scratch buffers are page aligned so direct I/O writes can
// come straight out of them.
func New(namespace []string, reg *registry.Registry, table *protocol.Table, sink *file.Sink, outputBufferSize int, useAsync bool, directIO bool) (new *Drainer, err error) {
	if outputBufferSize < global.DirectIOBlockSize {
		err = fmt.Errorf("output buffer of %d bytes is smaller than one block", outputBufferSize)
		return
	}

	compressing, err := file.AllocBuffer(outputBufferSize)
	if err != nil {
		return
	}

	doubleBuffer, err := file.AllocBuffer(outputBufferSize)
	if err != nil {
		file.FreeBuffer(compressing)
		return
	}

	new = &Drainer{
		Namespace:    namespace,
		registry:     reg,
		table:        table,
		sink:         sink,
		useAsync:     useAsync,
		directIO:     directIO,
		compressing:  compressing,
		doubleBuffer: doubleBuffer,
		workAdded:    make(chan struct{}, 1),
		done:         make(chan struct{}),
		Metrics:      &MetricStorage{},
	}
	new.hintQueueEmptied = sync.NewCond(&new.condMutex)
	return
}

// Main drain loop. Each iteration scans the staging rings for
// committed records, compresses as much as fits into the scratch
// buffer, and outputs one batch.
func (drainer *Drainer) Run(ctx context.Context) {
	cyclesAwakeStart := cycles.Now()
	drainer.Metrics.CycleAtThreadStart.Store(cyclesAwakeStart)

	for !drainer.exitRequested.Load() {
		// Test hook: hold off scanning entirely while paused
		if drainer.paused.Load() {
			time.Sleep(time.Millisecond)
			continue
		}

		out := drainer.scanAndCompress(ctx)

		// Nothing was compressed
		if out == 0 {
			// The kernel-acceptance guarantee sync gives out covers
			// the last submitted batch too, so settle it before
			// hinting that the queue is empty
			if drainer.hasOutstandingOperation {
				ioStart := cycles.Now()
				if err := drainer.sink.Reap(); err != nil {
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"async write failed: %v\n", err)
				}
				drainer.Metrics.WritesCompleted.Add(1)
				drainer.hasOutstandingOperation = false
				drainer.Metrics.CyclesDiskIO.Add(cycles.Now() - ioStart)
			}

			drainer.condMutex.Lock()

			// A sync caller needs at least one more full pass so
			// everything committed before its request is covered
			if drainer.syncRequested {
				drainer.syncRequested = false
				drainer.condMutex.Unlock()
				continue
			}

			// Tell sync waiters the queue looks empty, then nap
			drainer.hintQueueEmptied.Broadcast()
			drainer.condMutex.Unlock()

			drainer.Metrics.CyclesAwake.Add(cycles.Now() - cyclesAwakeStart)

			select {
			case <-drainer.workAdded:
			case <-time.After(global.DrainerIdleWait):
			}

			cyclesAwakeStart = cycles.Now()
			continue
		}

		drainer.output(ctx, out)
	}

	// Reap any write still in flight before the buffers go away
	if drainer.hasOutstandingOperation {
		ioStart := cycles.Now()
		if err := drainer.sink.Reap(); err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"async write failed during shutdown: %v\n", err)
		}
		drainer.Metrics.WritesCompleted.Add(1)
		drainer.hasOutstandingOperation = false
		drainer.Metrics.CyclesDiskIO.Add(cycles.Now() - ioStart)
	}

	drainer.Metrics.CyclesAwake.Add(cycles.Now() - cyclesAwakeStart)

	// Release stuck sync callers; the drainer will never drain again
	drainer.condMutex.Lock()
	drainer.stopped = true
	drainer.syncRequested = false
	drainer.hintQueueEmptied.Broadcast()
	drainer.condMutex.Unlock()

	close(drainer.done)
}

// One full round-robin pass over the registry. Returns the number of
// compressed bytes staged in the scratch buffer.
func (drainer *Drainer) scanAndCompress(ctx context.Context) (out int) {
	endOfBuffer := len(drainer.compressing)

	scanStart := cycles.Now()
	drainer.registry.Lock()

	i := drainer.lastStagingBufferChecked
	outputBufferFull := false
	workFound := false

	for drainer.registry.Size() > 0 && !outputBufferFull && !drainer.exitRequested.Load() {
		if i >= drainer.registry.Size() {
			i = 0
		}
		sb := drainer.registry.Index(i)
		readable := sb.Peek()

		if len(readable) > 0 {
			// There is work: drop the lock to compress so attaches
			// and other producers are not blocked behind us
			workFound = true
			drainer.registry.Unlock()

			compressStart := cycles.Now()
			bytesRead := 0

			for len(readable) > 0 {
				header, ok := protocol.ParseHeader(readable)
				if !ok {
					// A committed run always holds whole records
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"staging ring %d: truncated record header in committed data\n", sb.ID)
					break
				}

				entrySize := int(header.EntrySize)

				// Worst case bound: compressed output never exceeds
				// the uncompressed record plus its descriptors
				if entrySize+int(header.ArgMetaBytes) > endOfBuffer-out {
					drainer.lastStagingBufferChecked = i
					outputBufferFull = true
					break
				}

				if !drainer.table.ValidID(header.FmtID) {
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"staging ring %d: record carries unknown format id %d, skipping\n", sb.ID, header.FmtID)
					readable = readable[entrySize:]
					sb.Consume(entrySize)
					bytesRead += entrySize
					continue
				}

				drainer.Metrics.EventsProcessed.Add(1)

				out += protocol.CompressMetadata(header, drainer.compressing[out:], drainer.lastTimestamp, drainer.lastFmtID)
				drainer.lastFmtID = header.FmtID
				drainer.lastTimestamp = header.Timestamp

				out += drainer.table.Compressor(header.FmtID)(readable[:entrySize], drainer.compressing[out:])

				readable = readable[entrySize:]
				sb.Consume(entrySize)
				bytesRead += entrySize
			}

			drainer.Metrics.TotalBytesRead.Add(uint64(bytesRead))
			drainer.Metrics.CyclesCompressing.Add(cycles.Now() - compressStart)

			drainer.registry.Lock()
		} else {
			// No work on this ring: reclaim it if its producer left
			if sb.CheckCanDelete() {
				drainer.registry.RemoveIndex(i)
				drainer.Metrics.BuffersReclaimed.Add(1)
				logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
					"Reclaimed staging ring %d\n", sb.ID)

				// Keep the cursor on the same ring after the shift
				if drainer.lastStagingBufferChecked > i {
					drainer.lastStagingBufferChecked--
				}
				if i == drainer.registry.Size() {
					if drainer.lastStagingBufferChecked == i {
						drainer.lastStagingBufferChecked = 0
					}
					i = 0
				}
				continue
			}
		}

		if drainer.registry.Size() == 0 {
			break
		}
		i = (i + 1) % drainer.registry.Size()

		// Completed a pass through the rings
		if i == drainer.lastStagingBufferChecked {
			// If no work was found in the last pass, stop
			if !workFound {
				break
			}
			workFound = false
		}
	}

	drainer.registry.Unlock()
	drainer.Metrics.CyclesScanningAndCompressing.Add(cycles.Now() - scanStart)
	return
}

// Emits one batch from the scratch buffer, padding to the block size
// under direct I/O and double-buffering under async I/O
func (drainer *Drainer) output(ctx context.Context, out int) {
	bytesToWrite := out

	if drainer.directIO {
		over := bytesToWrite % global.DirectIOBlockSize
		if over != 0 {
			pad := global.DirectIOBlockSize - over
			clear(drainer.compressing[bytesToWrite : bytesToWrite+pad])
			bytesToWrite += pad
			drainer.Metrics.PadBytesWritten.Add(uint64(pad))
		}
	}

	ioStart := cycles.Now()

	if drainer.useAsync {
		if drainer.hasOutstandingOperation {
			if err := drainer.sink.Reap(); err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"async write failed: %v\n", err)
			}
			drainer.Metrics.WritesCompleted.Add(1)
			drainer.hasOutstandingOperation = false
		}

		drainer.sink.Submit(drainer.compressing[:bytesToWrite])
		drainer.Metrics.TotalBytesWritten.Add(uint64(bytesToWrite))
		drainer.hasOutstandingOperation = true

		// Swap scratch buffers: keep compressing while the kernel
		// owns the submitted one
		drainer.compressing, drainer.doubleBuffer = drainer.doubleBuffer, drainer.compressing
	} else {
		if err := drainer.sink.Write(drainer.compressing[:bytesToWrite]); err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"Error dumping log: %v\n", err)
		} else {
			drainer.Metrics.WritesCompleted.Add(1)
		}
		drainer.Metrics.TotalBytesWritten.Add(uint64(bytesToWrite))
	}

	drainer.Metrics.CyclesDiskIO.Add(cycles.Now() - ioStart)
}

// Frees the scratch buffers. Only legal after Run returned.
func (drainer *Drainer) ReleaseBuffers() {
	<-drainer.done

	if drainer.compressing != nil {
		file.FreeBuffer(drainer.compressing)
		drainer.compressing = nil
	}
	if drainer.doubleBuffer != nil {
		file.FreeBuffer(drainer.doubleBuffer)
		drainer.doubleBuffer = nil
	}
}
