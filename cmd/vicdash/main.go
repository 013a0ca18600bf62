package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  __   _____ ___     _         _
  \ \ / /_ _/ __|  _| |__ _ __| |_
   \ V / | | (__  / _' / _' (_-< ' \
    \_/ |___\___| \__,_\__,_/__/_||_|

  ValueInvestorsClub ideas dashboard

  Usage: vicdash <command> [options]
         vicdash --help

  MCP server mode requires piped input.`)
}

// args returns the command line to run. Without a command, piped stdin
// means an MCP client is attached.
func args(osArgs []string, terminal bool) ([]string, bool) {
	if len(osArgs) >= 2 {
		return osArgs, true
	}
	if terminal {
		return nil, false
	}
	return append(osArgs, "mcp"), true
}

func main() {
	argv, ok := args(os.Args, isTerminal())
	if !ok {
		printBanner()
		return
	}

	app := newCLIApp(apiBackend, os.Stdout, os.Stderr)
	if err := app.Run(argv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
