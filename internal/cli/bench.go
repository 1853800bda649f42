package cli

import (
	"context"
	"fastlog/internal/gatherer"
	"fastlog/internal/global"
	"fastlog/internal/lifecycle"
	"fastlog/internal/logctx"
	"fastlog/internal/metricsrv"
	"fastlog/pkg/logger"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Runs concurrent demo producers against the runtime until the
// requested count is emitted or a signal arrives, then prints drainer
// statistics
func BenchMode(ctx context.Context, cliOpts *global.CommandSet, command string, args []string) {
	commandFlags := flag.NewFlagSet(command, flag.ExitOnError)

	var configPath string
	SetCommon(commandFlags, &configPath)
	logPath := commandFlags.String("o", global.DefaultLogPath, "Compressed log output path")
	producerCount := commandFlags.Int("producers", 4, "Number of concurrent producers")
	eventCount := commandFlags.Int("events", 1_000_000, "Events each producer emits")
	useAsync := commandFlags.Bool("async", true, "Overlap disk writes with compression")
	useDirect := commandFlags.Bool("direct", false, "Bypass the page cache (block-aligned writes)")
	serveMetrics := commandFlags.Bool("metrics", false, "Expose the local metric query server")
	commandFlags.Usage = func() { PrintHelpMenu(commandFlags, command, cliOpts) }
	commandFlags.Parse(args)

	ctx = logctx.AppendCtxTag(ctx, global.NSBench)

	fileCfg, err := LoadConfig(configPath)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		os.Exit(1)
	}

	cfg := logger.Config{
		LogFile:           *logPath,
		StagingBufferSize: fileCfg.Buffers.StagingSize,
		OutputBufferSize:  fileCfg.Buffers.OutputSize,
		UseAsyncIO:        *useAsync,
		UseDirectIO:       *useDirect,
	}
	if fileCfg.LogFile != "" {
		cfg.LogFile = fileCfg.LogFile
	}

	table, err := BenchFormats()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "format table: %v\n", err)
		os.Exit(1)
	}

	runtime, err := logger.Start(ctx, cfg, table)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "runtime start: %v\n", err)
		os.Exit(1)
	}

	// Optional metric collection and query endpoint
	benchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if *serveMetrics || fileCfg.Metrics.Enabled {
		collector := gatherer.New(runtime, global.DefaultMetricInterval, global.DefaultMetricRetention)
		go collector.Run(benchCtx)

		serverCtx := logctx.AppendCtxTag(ctx, global.NSMetric)
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetricSrv)
		server := metricsrv.SetupListener(serverCtx, fileCfg.Metrics.QueryServerPort, collector.Registry.Search, collector.Registry.Discover)
		go metricsrv.Start(serverCtx, server)
		defer server.Shutdown(ctx)
	}

	// Handle exit requests during the run
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)
		cancel()
	}()

	lifecycle.NotifyReady(ctx)

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Running %d producers x %d events into %s\n", *producerCount, *eventCount, cfg.LogFile)

	start := time.Now()

	var wg sync.WaitGroup
	for p := 0; p < *producerCount; p++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()

			producer, handleErr := runtime.Preallocate()
			if handleErr != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"producer %d: %v\n", id, handleErr)
				return
			}
			defer producer.Release()

			producer.Log(0)
			for seq := 0; seq < *eventCount; seq++ {
				select {
				case <-benchCtx.Done():
					return
				default:
				}
				producer.Log(1, id, uint64(seq))
			}
			producer.Log(4)
		}(uint64(p))
	}
	wg.Wait()

	runtime.Sync()
	elapsed := time.Since(start)

	totalEvents := uint64(*producerCount) * uint64(*eventCount)
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Emitted %d events in %v (%0.0f events/sec)\n",
		totalEvents, elapsed, float64(totalEvents)/elapsed.Seconds())

	runtime.PrintStats(os.Stdout)

	lifecycle.NotifyStopping(ctx)
	signal.Stop(sigChan)
	close(sigChan)

	runtime.Shutdown()
}
