// Command snapoctl is the CLI entry point exercising the capture →
// publish → export pipeline end to end: "capture" runs a recording HTTP
// proxy, "export-har" turns a recorded NDJSON stream into a .har file, and
// "tail-logs" drives the log-tab processor over threadtime input.
//
// Grounded on _examples/brennhill-gasoline-mcp-ai-devtools/cmd/gasoline-cmd's
// directory shape (a thin main.go delegating to command implementations),
// rebuilt on cobra/pflag/viper per SPEC_FULL.md §1.3/§2 rather than the
// teacher's hand-rolled flag extraction — the teacher's CLI talks to an
// already-running MCP server over JSON-RPC, this CLI drives the capture
// pipeline directly in-process.
package main

import (
	"fmt"
	"os"

	"github.com/brennhill/snapo-core/cmd/snapoctl/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
