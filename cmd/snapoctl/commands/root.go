package commands

import (
	"github.com/spf13/cobra"

	"github.com/brennhill/snapo-core/internal/config"
)

var configPath string

// Root builds the snapoctl command tree. Every subcommand reads its
// operator-tunable knobs through internal/config.Load, layering the
// --config file (if given) under SNAPO_-prefixed env vars and the
// subcommand's own flags, per SPEC_FULL.md §1.3.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "snapoctl",
		Short:         "Capture, filter, and export HTTP/WebSocket/device-log traffic",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON/YAML/TOML config file")

	root.AddCommand(newCaptureCmd())
	root.AddCommand(newExportHARCmd())
	root.AddCommand(newTailLogsCmd())
	return root
}

// resolveConfig resolves internal/config.Config for cmd's flag set, after
// cobra has already parsed os.Args into it, layering --config's file and
// SNAPO_-prefixed env vars underneath.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, _, err := config.Load(configPath, cmd.Flags())
	return cfg, err
}
