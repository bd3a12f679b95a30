package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveStrict bool
)

// defaultUnitAddrs are the listen addresses used when --addr is not given
var defaultUnitAddrs = map[string]string{
	calcflow.AdderID:      ":9001",
	calcflow.MultiplierID: ":9002",
}

var serveCmd = &cobra.Command{
	Use:   "serve adder|multiplier",
	Short: "Serve a compute unit on the Lambda invoke route",
	Long: `Serve a compute unit over HTTP on the Lambda runtime emulator invoke route:

  POST /2015-03-31/functions/function/invocations  {"a": 1, "b": 2} -> {"result": n}

Examples:
  calcflow serve adder                 # listens on :9001
  calcflow serve multiplier --addr :8080
  calcflow serve adder --strict        # reject non-integer values`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{calcflow.AdderID, calcflow.MultiplierID},
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := calcflow.LookupUnit(args[0], unitOptions(serveStrict)...)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = defaultUnitAddrs[unit.ID]
		}

		log.Info().
			Str("unit", unit.ID).
			Str("policy", string(unit.Policy())).
			Msg("Compute unit initialized")

		return serveApp(server.NewUnitApp(unit, log.Logger), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :9001 for adder, :9002 for multiplier)")
	serveCmd.Flags().BoolVar(&serveStrict, "strict", false, "reject non-integer request values instead of treating them as 0")
	rootCmd.AddCommand(serveCmd)
}
