package cli

import (
	"fastlog/internal/global"
	"flag"
	"fmt"
	"os"
	"sort"
)

const RootCLICommand string = "root"

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	var curCmdSet *global.CommandSet

	// Find the command in tree
	if command == "" || command == RootCLICommand {
		curCmdSet = rootCmd
	} else if cmd, ok := rootCmd.ChildCommands[command]; ok {
		curCmdSet = cmd
	} else {
		fmt.Printf("Unknown command: %s\n", command)
		curCmdSet = rootCmd
	}

	// Usage line
	usage := os.Args[0]
	if curCmdSet != rootCmd {
		usage += " " + curCmdSet.CommandName
	} else if len(curCmdSet.ChildCommands) > 0 {
		usage += " [command]"
	}
	fmt.Printf("Usage: %s [options]\n\n", usage)

	fmt.Printf("%s\n%s\n\n", curCmdSet.Description, curCmdSet.FullDescription)

	// Sorted child command list
	if len(curCmdSet.ChildCommands) > 0 {
		names := make([]string, 0, len(curCmdSet.ChildCommands))
		for name := range curCmdSet.ChildCommands {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("Commands:\n")
		for _, name := range names {
			fmt.Printf("  %-10s %s\n", name, curCmdSet.ChildCommands[name].Description)
		}
		fmt.Printf("\n")
	}

	fmt.Printf("Options:\n")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
}
