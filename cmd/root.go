// =============================================================================
// SEPA Export - Root Command
// =============================================================================
//
// Defines the root command for the CLI. The root command carries the
// global flags shared by every subcommand and builds the logger the rest
// of the tool uses.
//
// COMMAND STRUCTURE:
//   sepa-export
//   ├── export    export selected payments to SEPA files
//   ├── list      list previously generated SEPA files
//   ├── validate  validate an XML file against the message schema
//   └── version   display version information
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/finbatch/sepa-export/internal/config"
)

// cfgFile holds the path to the configuration file, overridable with
// --config.
var cfgFile string

// verbose forces debug-level logging regardless of the configured level.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sepa-export",
	Short: "Export outbound payments to SEPA credit transfer files",
	Long: `sepa-export turns posted outbound payments into schema-valid SEPA credit
transfer messages (ISO 20022 pain.001.001.03).

Payments are selected by id, grouped into one file per originating journal,
rendered through the message template, validated against the canonical XSD,
and committed atomically: either every file of a run is created and every
payment marked sent, or nothing is.

Example Usage:
  sepa-export export --ids 12,13,14           # export three payments
  sepa-export export --ids 12 --report        # also write an XLSX run summary
  sepa-export list                            # show generated files
  sepa-export validate output/some-file.xml   # re-check a file against the XSD`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug output",
	)
}

// loadConfig reads the configured YAML file (defaults apply when missing).
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the process logger at the configured level; --verbose
// wins over the config file.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
