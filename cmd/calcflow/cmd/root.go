// Package cmd implements the calcflow command tree.
package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags
var Version = "dev"

// Environment fallbacks for flags
const (
	EnvAdderURL      = "CALCFLOW_ADDER_URL"
	EnvMultiplierURL = "CALCFLOW_MULTIPLIER_URL"
	EnvTable         = "CALCFLOW_TABLE"
	EnvLogLevel      = "CALCFLOW_LOG_LEVEL"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "calcflow",
	Short: "Run the add-then-multiply calculator pipeline",
	Long: `calcflow serves the adder and multiplier compute units and chains them
into a pipeline: sum = a + b + 3, result = sum * a.

Examples:
  calcflow serve adder --addr :9001
  calcflow serve multiplier --addr :9002
  calcflow run --a 5 --b 3 --adder-url http://localhost:9001 --multiplier-url http://localhost:9002
  calcflow run --a 5 --b 3 --local
  calcflow api --addr :3000 --local`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := calcflow.NewLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		log.Logger = logger
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr(EnvLogLevel, "info"), "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", calcflow.LogFormatConsole, "log format (console, json)")
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns the trimmed value of key, or fallback when unset or blank
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
