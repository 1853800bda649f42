// Gathers runtime metrics and saves them to the central registry
package gatherer

import (
	"context"
	"fastlog/internal/global"
	"fastlog/internal/logctx"
	"fastlog/internal/metrics"
	"fastlog/pkg/logger"
	"runtime/debug"
	"time"
)

func New(runtime *logger.Runtime, interval time.Duration, maximumMetricAge time.Duration) (new *Gatherer) {
	if interval == 0 {
		interval = global.DefaultMetricInterval
	}
	if maximumMetricAge == 0 {
		maximumMetricAge = global.DefaultMetricRetention
	}

	new = &Gatherer{
		Registry:  metrics.New(),
		Runtime:   runtime,
		Interval:  interval,
		Retention: maximumMetricAge,
	}
	return
}

func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)
	defer func() { ctx = logctx.RemoveLastCtxTag(ctx) }()

	// Tracking last interval run time
	lastRun := time.Now()

	ticker := time.NewTicker(gatherer.Interval / 2) // Use polling interval half of desired record interval
	defer ticker.Stop()

	// Counter to track how many ticks have passed (for retention)
	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastRun) >= gatherer.Interval {
				timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)

				lastRun = now
				go gatherer.runIntervalTasks(ctx, timeSlice)
			}

			// Conduct old metric evaluations and cleanup
			tickCount++
			if tickCount >= 30 {
				gatherer.Registry.Prune(now, gatherer.Retention)
				tickCount = 0 // Reset the counter after cleanup
			}
		}
	}
}

// Read metrics from the drainer and every live staging ring
func (gatherer *Gatherer) runIntervalTasks(ctx context.Context, timeSlice time.Time) {
	// Record panics and continue on next interval
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector thread: %v\n%s", fatalError, stack)
		}
	}()

	gatherer.Registry.Add(timeSlice, gatherer.Runtime.Drainer().CollectMetrics(gatherer.Interval))

	for _, ring := range gatherer.Runtime.StagingRings() {
		gatherer.Registry.Add(timeSlice, ring.CollectMetrics(gatherer.Interval))
	}
}
