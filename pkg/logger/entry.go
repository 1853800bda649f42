// Public runtime API for the low-latency binary logging system
package logger

import (
	"context"
	"fastlog/internal/atomics"
	"fastlog/internal/drainer"
	"fastlog/internal/externalio/file"
	"fastlog/internal/global"
	"fastlog/internal/logctx"
	"fastlog/internal/registry"
	"fastlog/internal/staging"
	"fastlog/pkg/protocol"
	"fmt"
	"io"

	"github.com/pbnjay/memory"
)

// Starts the runtime: opens the output sink, allocates the drainer's
// scratch buffers and launches the drain loop. Configuration problems
// here are fatal to the caller by contract; nothing else reports them.
func Start(ctx context.Context, cfg Config, table *protocol.Table) (runtime *Runtime, err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSRuntime)

	if cfg.LogFile == "" {
		cfg.LogFile = global.DefaultLogPath
	}
	if cfg.StagingBufferSize == 0 {
		cfg.StagingBufferSize = global.DefaultStagingBufferSize
	}
	if cfg.OutputBufferSize == 0 {
		cfg.OutputBufferSize = global.DefaultOutputBufferSize
	}

	if cfg.StagingBufferSize < 2 || (cfg.StagingBufferSize&(cfg.StagingBufferSize-1)) != 0 {
		err = fmt.Errorf("staging buffer size %d is not a power of two", cfg.StagingBufferSize)
		return
	}

	// Refuse to start when one producer ring plus both scratch
	// buffers would not even fit in free memory
	requiredBytes := uint64(cfg.StagingBufferSize) + 2*uint64(cfg.OutputBufferSize)
	availMem := memory.FreeMemory()
	if availMem > 0 && requiredBytes > availMem {
		err = fmt.Errorf("buffers need %d bytes but only %d bytes of memory are free", requiredBytes, availMem)
		return
	}

	sink, err := file.Open(logctx.GetTagList(logctx.AppendCtxTag(ctx, global.NSOut)), cfg.LogFile, cfg.UseDirectIO, cfg.UseAsyncIO)
	if err != nil {
		return
	}

	reg := registry.New(logctx.GetTagList(logctx.AppendCtxTag(ctx, global.NSRegistry)))

	drn, err := drainer.New(logctx.GetTagList(logctx.AppendCtxTag(ctx, global.NSDrainer)),
		reg, table, sink, cfg.OutputBufferSize, cfg.UseAsyncIO, cfg.UseDirectIO)
	if err != nil {
		sink.Close()
		return
	}

	runtime = &Runtime{
		Namespace:    logctx.GetTagList(ctx),
		ctx:          ctx,
		cfg:          cfg,
		table:        table,
		registry:     reg,
		sink:         sink,
		drainer:      drn,
		maxEntrySize: maxEntrySize(cfg),
	}

	go runtime.drainer.Run(runtime.ctx)

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Runtime started, logging to %s\n", cfg.LogFile)
	return
}

// A record must fit the staging ring (strictly less than its size) and
// its worst-case compressed form must fit one scratch buffer
func maxEntrySize(cfg Config) (limit int) {
	limit = global.MaxEntrySize
	if cfg.StagingBufferSize-1 < limit {
		limit = cfg.StagingBufferSize - 1
	}
	// The drainer compares entrySize+argMetaBytes against scratch
	// space; halving keeps even descriptor-heavy records safe
	if cfg.OutputBufferSize/2 < limit {
		limit = cfg.OutputBufferSize / 2
	}
	return
}

// Creates and registers the calling goroutine's staging ring. The
// returned handle must stay with one goroutine; the ring has exactly
// one producer by construction.
func (runtime *Runtime) Handle() (producer *Producer, err error) {
	buffer, err := runtime.registry.Attach(runtime.cfg.StagingBufferSize)
	if err != nil {
		err = fmt.Errorf("failed to attach staging ring: %v", err)
		return
	}

	producer = &Producer{
		runtime: runtime,
		buffer:  buffer,
	}
	return
}

// Forces staging ring creation ahead of the first emission so the
// allocation cost is not paid on the hot path
func (runtime *Runtime) Preallocate() (producer *Producer, err error) {
	producer, err = runtime.Handle()
	return
}

// Blocks until everything committed before the call is accepted by the
// kernel. Records committed while the sync runs may be persisted too.
func (runtime *Runtime) Sync() {
	runtime.mu.Lock()
	drn := runtime.drainer
	runtime.mu.Unlock()

	drn.Sync()
}

// Swaps the output file. Not hot-path safe: flushes pending records,
// stops the drainer, switches descriptors and restarts. During normal
// operation the switch should happen before the first emission.
func (runtime *Runtime) SetLogFile(path string) (err error) {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if runtime.stopped {
		err = fmt.Errorf("runtime is shut down")
		return
	}

	// Validate the new path before disturbing the running drainer
	newSink, err := file.Open(runtime.sink.Namespace, path, runtime.cfg.UseDirectIO, runtime.cfg.UseAsyncIO)
	if err != nil {
		return
	}

	// Flush everything buffered for the old file, then stop
	runtime.drainer.Sync()
	runtime.drainer.RequestExit()
	<-runtime.drainer.Done()
	runtime.drainer.ReleaseBuffers()
	runtime.sink.Close()

	runtime.sink = newSink
	runtime.cfg.LogFile = path

	runtime.drainer, err = drainer.New(runtime.drainer.Namespace, runtime.registry, runtime.table,
		newSink, runtime.cfg.OutputBufferSize, runtime.cfg.UseAsyncIO, runtime.cfg.UseDirectIO)
	if err != nil {
		// Allocation failure at this point leaves no working sink
		err = fmt.Errorf("failed to relaunch drainer: %v", err)
		return
	}

	go runtime.drainer.Run(runtime.ctx)

	logctx.LogEvent(runtime.ctx, global.VerbosityStandard, global.InfoLog,
		"Output switched to %s\n", path)
	return
}

// Diagnostic counter dump; not on the hot path
func (runtime *Runtime) PrintStats(output io.Writer) {
	runtime.mu.Lock()
	drn := runtime.drainer
	runtime.mu.Unlock()

	drn.PrintStats(output)
}

// Flushes remaining records and tears the runtime down: sync, drainer
// join, then buffer release and descriptor close, strictly in that
// order
func (runtime *Runtime) Shutdown() {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if runtime.stopped {
		return
	}
	runtime.stopped = true

	// Give every ring a bounded window to drain before the final sync;
	// anything a still-live producer commits past this point is dropped
	for _, ring := range runtime.registry.Snapshot() {
		drained, remaining := atomics.WaitUntilZero(&ring.Metrics.Backlog, global.ShutdownTimeout)
		if !drained {
			logctx.LogEvent(runtime.ctx, global.VerbosityStandard, global.WarnLog,
				"staging ring %d did not empty in time: dropping %d bytes\n", ring.ID, remaining)
			break
		}
	}

	runtime.drainer.Sync()
	runtime.drainer.RequestExit()
	<-runtime.drainer.Done()
	runtime.drainer.ReleaseBuffers()
	runtime.sink.Close()

	logctx.LogEvent(runtime.ctx, global.VerbosityStandard, global.InfoLog,
		"Runtime shutdown complete\n")
}

// Snapshot of live staging rings for metric collection
func (runtime *Runtime) StagingRings() (rings []*staging.Buffer) {
	rings = runtime.registry.Snapshot()
	return
}

// The drainer currently running (metric collection, stats)
func (runtime *Runtime) Drainer() (drn *drainer.Drainer) {
	runtime.mu.Lock()
	drn = runtime.drainer
	runtime.mu.Unlock()
	return
}
