package cli

import (
	"encoding/json"
	"fastlog/internal/global"
	"fastlog/pkg/protocol"
	"flag"
	"fmt"
	"os"
)

func SetGlobalArguments(fs *flag.FlagSet) {
	fs.IntVar(&global.Verbosity, "v", 1, "Increase detailed progress messages (Higher is more verbose) <0...5>")
	fs.IntVar(&global.Verbosity, "verbosity", 1, "Increase detailed progress messages (Higher is more verbose) <0...5>")
}

func SetCommon(fs *flag.FlagSet, configPath *string) {
	fs.StringVar(configPath, "c", "", "Path to the configuration file")
	fs.StringVar(configPath, "config", "", "Path to the configuration file")
}

// Reads JSON runtime configuration from disk. Missing path yields the
// zero config (all defaults).
func LoadConfig(path string) (cfg global.RuntimeConfig, err error) {
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed reading config file: %v", err)
		return
	}

	err = json.Unmarshal(raw, &cfg)
	if err != nil {
		err = fmt.Errorf("failed parsing config file: %v", err)
		return
	}
	return
}

// Format table for the bench and decode commands. Stands in for the
// preprocessor output a real deployment would generate from its call
// sites; decode must use the same table the producers logged with.
func BenchFormats() (table *protocol.Table, err error) {
	table, err = protocol.NewTable([]protocol.Format{
		{ID: 0, Name: "producer started"},
		{ID: 1, Name: "producer %d emitted event %d", Args: []protocol.ArgKind{protocol.ArgUint64, protocol.ArgUint64}},
		{ID: 2, Name: "request from %s handled in %d ns", Args: []protocol.ArgKind{protocol.ArgString, protocol.ArgInt64}},
		{ID: 3, Name: "queue utilization %f", Args: []protocol.ArgKind{protocol.ArgFloat64}},
		{ID: 4, Name: "producer finished"},
	})
	return
}
