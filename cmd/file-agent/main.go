// Package main provides the file-agent CLI application.
//
// file-agent discovers files under configured roots, keeps watching
// for changes, and registers each discovered or changed file with a
// remote inventory endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	flag.Parse()

	if *showVersion {
		fmt.Printf("file-agent %s\n", version)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	switch command := args[0]; command {
	case "run":
		return runAgentCommand(*configPath, false)
	case "scan":
		return runAgentCommand(*configPath, true)
	case "version":
		fmt.Printf("file-agent %s\n", version)
		return nil
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage prints command usage information.
func showUsage() error {
	fmt.Println(`file-agent - file discovery and registration agent

Usage:
  file-agent [flags] <command>

Commands:
  run       Scan the configured roots, then monitor them for changes
  scan      Perform one bulk scan and exit
  version   Show version information
  help      Show this help

Flags:
  -config string   Path to configuration file
  -version         Show version information

Configuration is read from ./file-agent.yaml or
~/.config/file-agent/config.yaml unless -config is given; individual
settings can be overridden with FILE_AGENT_* environment variables.`)
	return nil
}
