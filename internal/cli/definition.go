package cli

import "fastlog/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Fastlog compressed binary logger",
		FullDescription: "  Nanosecond-scale binary logging runtime with offline decompression",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	// Benchmark/demo producer
	root.ChildCommands["bench"] = &global.CommandSet{
		CommandName:     "bench",
		Description:     "Run Producers",
		FullDescription: "Runs concurrent demo producers against the runtime and reports drainer statistics",
		ChildCommands:   nil,
	}

	// Offline decode
	root.ChildCommands["decode"] = &global.CommandSet{
		CommandName:     "decode",
		Description:     "Decode Log File",
		FullDescription: "Reconstructs human-readable events from a compressed output file",
		ChildCommands:   nil,
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
