package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/store"
	"github.com/sicko7947/calcflow/transport"
)

// Journal backends accepted by --journal
const (
	JournalMemory   = "memory"
	JournalDynamoDB = "dynamodb"
)

// shutdownTimeout bounds graceful server shutdown
const shutdownTimeout = 5 * time.Second

// inputPolicy maps the --strict flag to an input policy
func inputPolicy(strict bool) calcflow.InputPolicy {
	if strict {
		return calcflow.InputStrict
	}
	return calcflow.InputLenient
}

// unitOptions maps the --strict flag to unit options
func unitOptions(strict bool) []calcflow.UnitOption {
	return []calcflow.UnitOption{calcflow.WithInputPolicy(inputPolicy(strict))}
}

// newInvoker builds the invoker a pipeline calls units through.
// Local runs the units in-process; otherwise both unit URLs are required.
func newInvoker(local bool, adderURL, multiplierURL string, timeout time.Duration) (calcflow.Invoker, error) {
	if local {
		return transport.NewLocalInvoker(calcflow.NewAdder(), calcflow.NewMultiplier()), nil
	}

	adderURL = strings.TrimSpace(adderURL)
	multiplierURL = strings.TrimSpace(multiplierURL)
	if adderURL == "" {
		return nil, fmt.Errorf("adder URL is required (--adder-url or %s), or use --local", EnvAdderURL)
	}
	if multiplierURL == "" {
		return nil, fmt.Errorf("multiplier URL is required (--multiplier-url or %s), or use --local", EnvMultiplierURL)
	}

	cfg := transport.DefaultHTTPConfig
	cfg.Endpoints = map[string]string{
		calcflow.AdderID:      adderURL,
		calcflow.MultiplierID: multiplierURL,
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	return transport.NewHTTPInvoker(cfg)
}

// newStore builds the run journal named by --journal
func newStore(ctx context.Context, journal, table string, dynamoCfg store.DynamoDBConfig) (calcflow.RunStore, error) {
	switch strings.ToLower(strings.TrimSpace(journal)) {
	case "", JournalMemory:
		return store.NewMemoryStore(), nil
	case JournalDynamoDB:
		if strings.TrimSpace(table) == "" {
			return nil, fmt.Errorf("table name is required for the dynamodb journal (--table or %s)", EnvTable)
		}
		client, err := store.NewDynamoDBClient(ctx, dynamoCfg)
		if err != nil {
			return nil, err
		}
		return store.NewDynamoDBStore(client, table), nil
	default:
		return nil, fmt.Errorf("unknown journal %q, expected %s or %s", journal, JournalMemory, JournalDynamoDB)
	}
}

// serveApp listens on addr until interrupted, then shuts the app down gracefully
func serveApp(app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("Starting HTTP server")
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
