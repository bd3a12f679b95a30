package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/lambdafn"
	"github.com/spf13/cobra"
)

var lambdaStrict bool

var lambdaCmd = &cobra.Command{
	Use:       "lambda adder|multiplier",
	Short:     "Run a compute unit under the AWS Lambda runtime",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{calcflow.AdderID, calcflow.MultiplierID},
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := calcflow.LookupUnit(args[0], unitOptions(lambdaStrict)...)
		if err != nil {
			return err
		}

		lambdafn.Start(unit, log.Logger)
		return nil
	},
}

func init() {
	lambdaCmd.Flags().BoolVar(&lambdaStrict, "strict", false, "reject non-integer request values instead of treating them as 0")
	rootCmd.AddCommand(lambdaCmd)
}
