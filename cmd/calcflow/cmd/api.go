package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/calculator"
	"github.com/sicko7947/calcflow/engine"
	"github.com/sicko7947/calcflow/server"
	"github.com/sicko7947/calcflow/store"
	"github.com/spf13/cobra"
)

var (
	apiAddr             string
	apiJournal          string
	apiTable            string
	apiRegion           string
	apiDynamoDBEndpoint string
	apiAdderURL         string
	apiMultiplierURL    string
	apiTimeout          time.Duration
	apiLocal            bool
	apiStrict           bool
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the calculator pipeline API",
	Long: `Serve the calculator pipeline as a JSON API:

  POST /api/v1/pipelines/calculator        run the pipeline (?async=true to start in background)
  GET  /api/v1/runs                        list runs (?status=, ?limit=)
  GET  /api/v1/runs/:runId                 run status and derived state
  GET  /api/v1/runs/:runId/stages          stage executions
  POST /api/v1/runs/:runId/cancel          cancel a background run

Examples:
  calcflow api --local
  calcflow api --local --strict             # reject non-integer values with 400
  calcflow api --adder-url http://localhost:9001 --multiplier-url http://localhost:9002
  calcflow api --local --journal dynamodb --table calcflow-runs --dynamodb-endpoint http://localhost:8000`,
	Args: cobra.NoArgs,
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().StringVar(&apiAddr, "addr", ":3000", "listen address")
	apiCmd.Flags().StringVar(&apiJournal, "journal", JournalMemory, "run journal backend (memory, dynamodb)")
	apiCmd.Flags().StringVar(&apiTable, "table", envOr(EnvTable, ""), "DynamoDB table for the dynamodb journal")
	apiCmd.Flags().StringVar(&apiRegion, "region", "", "AWS region override for the dynamodb journal")
	apiCmd.Flags().StringVar(&apiDynamoDBEndpoint, "dynamodb-endpoint", "", "DynamoDB endpoint override, e.g. DynamoDB Local")
	apiCmd.Flags().StringVar(&apiAdderURL, "adder-url", envOr(EnvAdderURL, ""), "adder unit base URL")
	apiCmd.Flags().StringVar(&apiMultiplierURL, "multiplier-url", envOr(EnvMultiplierURL, ""), "multiplier unit base URL")
	apiCmd.Flags().DurationVar(&apiTimeout, "timeout", calcflow.DefaultStageTimeout, "per-stage timeout")
	apiCmd.Flags().BoolVar(&apiLocal, "local", false, "run the units in-process instead of over HTTP")
	apiCmd.Flags().BoolVar(&apiStrict, "strict", false, "reject non-integer request values instead of treating them as 0")
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	invoker, err := newInvoker(apiLocal, apiAdderURL, apiMultiplierURL, apiTimeout)
	if err != nil {
		return err
	}

	runStore, err := newStore(cmd.Context(), apiJournal, apiTable, store.DynamoDBConfig{
		Region:   apiRegion,
		Endpoint: apiDynamoDBEndpoint,
	})
	if err != nil {
		return err
	}

	config := engine.DefaultEngineConfig
	if apiTimeout > 0 {
		config.DefaultStageTimeout = apiTimeout
	}

	orchestrator, err := calculator.NewOrchestrator(invoker, runStore, log.Logger, config)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	log.Info().
		Str("journal", apiJournal).
		Bool("local", apiLocal).
		Str("policy", string(inputPolicy(apiStrict))).
		Msg("Pipeline engine initialized successfully")

	app := server.NewPipelineApp(orchestrator, log.Logger, server.WithInputPolicy(inputPolicy(apiStrict)))
	return serveApp(app, apiAddr)
}
