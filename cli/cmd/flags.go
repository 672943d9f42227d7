// Package cmd provides CLI commands for the ideastream binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for commands that drive a generation pipeline.
var (
	// ConfigFlag points at an ideastream.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to ideastream.yaml config file",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Show the run in an interactive TUI",
	}

	// QuietFlag suppresses streamed text and the result summary.
	QuietFlag = &cli.BoolFlag{
		Name:  "quiet",
		Usage: "Suppress streamed output (exit code still reports the outcome)",
	}

	// NoNavigateFlag disables printing the result location on success.
	NoNavigateFlag = &cli.BoolFlag{
		Name:  "no-navigate",
		Usage: "Do not print the conversation location on success",
	}
)

// StreamFlags returns the shared flags for commands that consume a
// generation stream (run and replay).
func StreamFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		TUIFlag,
		QuietFlag,
		NoNavigateFlag,
	}
}
