// ABOUTME: Help display for the flume CLI with grouped flags and examples.
// ABOUTME: Provides printHelp for polished usage output.
package main

import (
	"fmt"
	"io"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, and examples.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "flume %s — event-driven pipeline runner\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  flume <pipeline.yaml>               Run a pipeline")
	fmt.Fprintln(w, "  flume -validate <pipeline.yaml>     Validate without executing")
	fmt.Fprintln(w, "  flume -watch <pipeline.yaml>        Run with interactive terminal UI")
	fmt.Fprintln(w, "  flume -server [-port 3586]          Start HTTP API server")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Pipeline Flags:")
	fmt.Fprintln(w, "  -trigger <json>       Trigger payload as a JSON object")
	fmt.Fprintln(w, "  -user <id>            User id to load memory and profile for")
	fmt.Fprintln(w, "  -mem <path>           SQLite memory database path")
	fmt.Fprintln(w, "  -data <dir>           Data directory for run logs and the run index")
	fmt.Fprintln(w, "  -max-parallel <n>     Max concurrent node executions (0 = unlimited)")
	fmt.Fprintln(w, "  -verbose              Echo engine events to stderr")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server Flags:")
	fmt.Fprintln(w, "  -server               Start HTTP server mode")
	fmt.Fprintln(w, "  -port <port>          Server port (default: 3586)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -validate             Validate pipeline without executing")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  flume examples/alerts.yaml")
	fmt.Fprintln(w, "  flume -validate alerts.yaml")
	fmt.Fprintln(w, "  flume -watch alerts.yaml")
	fmt.Fprintln(w, "  flume -trigger '{\"value\": 42}' alerts.yaml")
	fmt.Fprintln(w, "  flume -server -port 8080 -data ./flume-data")
	fmt.Fprintln(w, "  flume -mem memory.db -user ada alerts.yaml")
}
