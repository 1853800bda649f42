package drainer

import (
	"fastlog/internal/cycles"
	"fmt"
	"io"
)

// Blocks until every record committed before this call has been handed
// to the kernel. Records committed while the sync is in flight may be
// persisted as well.
func (drainer *Drainer) Sync() {
	drainer.condMutex.Lock()
	defer drainer.condMutex.Unlock()

	if drainer.stopped {
		return
	}

	drainer.syncRequested = true
	drainer.notifyWork()

	// The drainer clears the flag after one more full pass and only
	// signals once the queue looks empty
	for drainer.syncRequested && !drainer.stopped {
		drainer.hintQueueEmptied.Wait()
	}
}

// Asks the drain loop to exit after its current iteration
func (drainer *Drainer) RequestExit() {
	drainer.exitRequested.Store(true)
	drainer.condMutex.Lock()
	drainer.notifyWork()
	drainer.condMutex.Unlock()
}

// Closed when the drain loop has fully exited
func (drainer *Drainer) Done() (done <-chan struct{}) {
	done = drainer.done
	return
}

// Test hooks: suspend and resume scanning
func (drainer *Drainer) Pause() {
	drainer.paused.Store(true)
}

func (drainer *Drainer) Resume() {
	drainer.paused.Store(false)
}

// Wakes the drain loop out of its idle wait, dropping the token if one
// is already pending. Caller holds condMutex.
func (drainer *Drainer) notifyWork() {
	select {
	case drainer.workAdded <- struct{}{}:
	default:
	}
}

// Diagnostic dump of the drainer counters. Not on the hot path; forces
// a data sync first so the I/O time is observable.
func (drainer *Drainer) PrintStats(output io.Writer) {
	start := cycles.Now()
	drainer.sink.Fdatasync()
	stop := cycles.Now()
	drainer.Metrics.CyclesDiskIO.Add(stop - start)

	outputTime := cycles.ToSeconds(drainer.Metrics.CyclesDiskIO.Load())
	compressTime := cycles.ToSeconds(drainer.Metrics.CyclesCompressing.Load())
	workTime := outputTime + compressTime

	eventsProcessed := drainer.Metrics.EventsProcessed.Load()
	totalBytesWritten := float64(drainer.Metrics.TotalBytesWritten.Load())
	totalBytesRead := float64(drainer.Metrics.TotalBytesRead.Load())
	padBytesWritten := float64(drainer.Metrics.PadBytesWritten.Load())
	writesCompleted := drainer.Metrics.WritesCompleted.Load()

	fmt.Fprintf(output, "Wrote %d events (%0.2f MB) in %0.3f seconds (%0.3f seconds spent compressing)\n",
		eventsProcessed,
		totalBytesWritten/1.0e6,
		workTime,
		compressTime)

	fmt.Fprintf(output, "There were %d batch flushes and the final sync took %f sec\n",
		writesCompleted, cycles.ToSeconds(stop-start))

	secondsAwake := cycles.ToSeconds(drainer.Metrics.CyclesAwake.Load())
	secondsAlive := cycles.ToSeconds(cycles.Now() - drainer.Metrics.CycleAtThreadStart.Load())
	if secondsAlive > 0 {
		fmt.Fprintf(output, "Drainer was active for %0.3f out of %0.3f seconds (%0.2f %%)\n",
			secondsAwake,
			secondsAlive,
			100.0*secondsAwake/secondsAlive)
	}

	if workTime > 0 && totalBytesWritten > 0 {
		fmt.Fprintf(output, "On average, that's\n\t%0.2f MB/s or %0.2f ns/byte w/ processing\n",
			(totalBytesWritten/1.0e6)/workTime,
			(workTime*1.0e9)/totalBytesWritten)
	}

	if writesCompleted > 0 && eventsProcessed > 0 {
		fmt.Fprintf(output, "\t%0.2f MB per flush with %0.1f bytes/event\n",
			(totalBytesWritten/1.0e6)/float64(writesCompleted),
			totalBytesWritten/float64(eventsProcessed))

		fmt.Fprintf(output, "\t%0.2f ns/event in total\n\t%0.2f ns/event compressing\n",
			workTime*1.0e9/float64(eventsProcessed),
			compressTime*1.0e9/float64(eventsProcessed))
	}

	if totalBytesWritten > 0 {
		fmt.Fprintf(output, "The compression ratio was %0.2f-%0.2fx (%0.0f bytes in, %0.0f bytes out, %0.0f pad bytes)\n",
			totalBytesRead/(totalBytesWritten+padBytesWritten),
			totalBytesRead/totalBytesWritten,
			totalBytesRead,
			totalBytesWritten,
			padBytesWritten)
	}
}
