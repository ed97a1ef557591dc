package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/brennhill/snapo-core/internal/config"
	"github.com/brennhill/snapo-core/internal/har"
	"github.com/brennhill/snapo-core/internal/record"
)

func newExportHARCmd() *cobra.Command {
	var inPath, outPath, creatorName, creatorVersion string

	cmd := &cobra.Command{
		Use:   "export-har",
		Short: "Replay a recorded NDJSON stream (plain or .gz) into a .har file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runExportHAR(cfg, inPath, outPath, creatorName, creatorVersion)
		},
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&inPath, "in", "capture.ndjson", "recorded NDJSON input path (.gz decompressed automatically)")
	cmd.Flags().StringVar(&outPath, "out", "", "HAR output path (default: a generated name under the current directory)")
	cmd.Flags().StringVar(&creatorName, "creator-name", "snapoctl", "HAR creator.name field")
	cmd.Flags().StringVar(&creatorVersion, "creator-version", "dev", "HAR creator.version field")
	return cmd
}

func runExportHAR(cfg config.Config, inPath, outPath, creatorName, creatorVersion string) error {
	r, closeIn, err := openMaybeGzip(inPath)
	if err != nil {
		return err
	}
	defer closeIn()

	events, decodeErr := record.DecodeEvents(r)
	if decodeErr != nil && len(events) == 0 {
		return fmt.Errorf("export-har: %w", decodeErr)
	}
	// A truncated recording still exports whatever decoded cleanly; surface
	// the truncation rather than silently hiding it.
	if decodeErr != nil {
		fmt.Fprintf(os.Stderr, "warning: recording truncated, exporting %d events decoded before the error: %v\n", len(events), decodeErr)
	}

	httpExchanges := har.GroupHTTP(events)
	wsExchanges := har.GroupWebSocket(events)

	redactor, err := cfg.NewRedactionEngine()
	if err != nil {
		return err
	}
	exporter := har.NewExporter(creatorName, creatorVersion, redactor)
	doc := exporter.Export(httpExchanges, wsExchanges)

	if outPath == "" {
		outPath = har.DefaultFilename(len(doc.Log.Entries), time.Now())
	}
	safePath, err := safeOutputPath(outPath)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("export-har: marshaling HAR document: %w", err)
	}
	if err := os.WriteFile(safePath, data, 0o600); err != nil {
		return fmt.Errorf("export-har: writing %s: %w", safePath, err)
	}
	fmt.Printf("wrote %s (%d entries)\n", safePath, len(doc.Log.Entries))
	return nil
}

func openMaybeGzip(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied input path
	if err != nil {
		return nil, nil, fmt.Errorf("export-har: opening %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("export-har: opening gzip stream %s: %w", path, err)
	}
	return gz, func() error {
		gz.Close()
		return f.Close()
	}, nil
}

// safeOutputPath rejects path traversal, grounded on
// _examples/brennhill-gasoline-mcp-ai-devtools's internal/export/
// export_har.go isPathSafe (reject any ".." segment; the teacher also
// allows absolute paths under a temp directory, which this CLI's
// always-relative --out convention has no use for, so absolute paths are
// rejected outright here instead).
func safeOutputPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("export-har: empty output path")
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("export-har: output path must be relative, got %q", path)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("export-har: output path escapes the working directory: %q", path)
	}
	return clean, nil
}
