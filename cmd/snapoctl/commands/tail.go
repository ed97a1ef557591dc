package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/brennhill/snapo-core/internal/config"
	"github.com/brennhill/snapo-core/internal/logtab"
	"github.com/brennhill/snapo-core/internal/record"
	"github.com/brennhill/snapo-core/internal/telemetry"
	"github.com/brennhill/snapo-core/internal/threadtime"
)

func newTailLogsCmd() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "tail-logs",
		Short: "Parse threadtime log lines and print coalesced log-tab updates as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runTailLogs(cfg, inPath)
		},
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&inPath, "in", "-", "threadtime log file to read (\"-\" for stdin)")
	return cmd
}

func runTailLogs(cfg config.Config, inPath string) error {
	in := os.Stdin
	if inPath != "-" {
		f, err := os.Open(inPath) // #nosec G304 -- operator-supplied input path
		if err != nil {
			return fmt.Errorf("tail-logs: opening %s: %w", inPath, err)
		}
		defer f.Close()
		in = f
	}

	log, err := telemetry.NewLogger(cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	enc := json.NewEncoder(os.Stdout)
	processor := logtab.NewProcessor(cfg.LogTabRingCapacity,
		func(upd logtab.Update) { enc.Encode(upd) }, //nolint:errcheck
		func(e record.CoreError) { fmt.Fprintln(os.Stderr, "warning:", e.Error()) },
		log, metrics,
	)
	defer processor.Close()

	parser := threadtime.NewParser()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		processor.Enqueue(*parser.Parse(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("tail-logs: reading input: %w", err)
	}

	// logtab's flush is coalesced on a 50ms timer (internal/logtab's
	// flushDelay); give the last batch time to land before the process
	// exits and the mailbox goroutine is torn down.
	time.Sleep(100 * time.Millisecond)
	return nil
}
