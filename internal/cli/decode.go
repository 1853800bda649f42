package cli

import (
	"context"
	"fastlog/internal/global"
	"fastlog/internal/logctx"
	"fastlog/pkg/protocol"
	"flag"
	"fmt"
	"os"
)

// Reconstructs human-readable events from a compressed output file
func DecodeMode(ctx context.Context, cliOpts *global.CommandSet, command string, args []string) {
	commandFlags := flag.NewFlagSet(command, flag.ExitOnError)
	inputPath := commandFlags.String("i", global.DefaultLogPath, "Compressed log file to decode")
	commandFlags.Usage = func() { PrintHelpMenu(commandFlags, command, cliOpts) }
	commandFlags.Parse(args)

	ctx = logctx.AppendCtxTag(ctx, global.NSDecode)

	table, err := BenchFormats()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "format table: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed reading log: %v\n", err)
		os.Exit(1)
	}

	decoder := protocol.NewDecoder(data, table)

	count := 0
	for {
		event, ok, decodeErr := decoder.Next()
		if decodeErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"decode stopped after %d events: %v\n", count, decodeErr)
			os.Exit(1)
		}
		if !ok {
			break
		}

		line, renderErr := decoder.Render(event)
		if renderErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"render failed: %v\n", renderErr)
			os.Exit(1)
		}

		fmt.Println(line)
		count++
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Decoded %d events\n", count)
}
