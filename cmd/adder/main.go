// Command adder is the Lambda bootstrap for the adder unit.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/lambdafn"
)

func main() {
	logger, err := calcflow.NewLogger(os.Stderr, os.Getenv("CALCFLOW_LOG_LEVEL"), calcflow.LogFormatJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logger")
	}
	log.Logger = logger

	policy, err := calcflow.ParseInputPolicy(os.Getenv("CALCFLOW_INPUT_POLICY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid input policy")
	}

	lambdafn.Start(calcflow.NewAdder(calcflow.WithInputPolicy(policy)), log.Logger)
}
