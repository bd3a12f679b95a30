package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/calculator"
	"github.com/sicko7947/calcflow/store"
	"github.com/sicko7947/calcflow/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestEnvOr(t *testing.T) {
	t.Setenv(EnvTable, "  runs  ")
	assert.Equal(t, "runs", envOr(EnvTable, "fallback"))

	t.Setenv(EnvTable, "   ")
	assert.Equal(t, "fallback", envOr(EnvTable, "fallback"))
}

func TestNewInvoker(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		invoker, err := newInvoker(true, "", "", 0)
		require.NoError(t, err)
		local, ok := invoker.(*transport.LocalInvoker)
		require.True(t, ok)
		assert.Equal(t, []string{calcflow.AdderID, calcflow.MultiplierID}, local.Functions())
	})

	t.Run("missing urls", func(t *testing.T) {
		_, err := newInvoker(false, "", "http://localhost:9002", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvAdderURL)

		_, err = newInvoker(false, "http://localhost:9001", " ", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvMultiplierURL)
	})

	t.Run("http", func(t *testing.T) {
		invoker, err := newInvoker(false, "http://localhost:9001", "http://localhost:9002", time.Second)
		require.NoError(t, err)
		httpInvoker, ok := invoker.(*transport.HTTPInvoker)
		require.True(t, ok)

		endpoint, ok := httpInvoker.Endpoint(calcflow.AdderID)
		require.True(t, ok)
		assert.Equal(t, "http://localhost:9001"+transport.InvocationPath, endpoint)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := newInvoker(false, "localhost:9001", "http://localhost:9002", 0)
		assert.Error(t, err)
	})
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := newStore(ctx, "", "", store.DynamoDBConfig{})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = newStore(ctx, "Memory", "", store.DynamoDBConfig{})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	_, err = newStore(ctx, JournalDynamoDB, "", store.DynamoDBConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTable)

	_, err = newStore(ctx, "redis", "", store.DynamoDBConfig{})
	assert.Error(t, err)
}

func TestInputPolicy(t *testing.T) {
	assert.Equal(t, calcflow.InputStrict, inputPolicy(true))
	assert.Equal(t, calcflow.InputLenient, inputPolicy(false))

	_, err := calcflow.NewAdder(unitOptions(true)...).Invoke(context.Background(), []byte(`{"a":"x"}`))
	assert.True(t, calcflow.IsValidationError(err))

	out, err := calcflow.NewAdder(unitOptions(false)...).Invoke(context.Background(), []byte(`{"a":"x"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":3}`, string(out))
}

func TestAPICommand_StrictFlag(t *testing.T) {
	flag := apiCmd.Flags().Lookup("strict")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRunCommand_Local(t *testing.T) {
	out, err := execute(t, "run", "--a", "5", "--b", "3", "--local")
	require.NoError(t, err)

	var status calculator.PipelineStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status), out)
	assert.Equal(t, calcflow.RunStatusCompleted, status.Status)
	require.NotNil(t, status.Output)
	assert.Equal(t, int64(55), status.Output.Result)
	require.NotNil(t, status.Trigger)
	assert.Equal(t, calcflow.TriggerCLI, status.Trigger.Type)
}

func TestRunCommand_HTTP(t *testing.T) {
	serve := func(unit *calcflow.Unit) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body bytes.Buffer
			_, _ = body.ReadFrom(r.Body)
			out, err := unit.Invoke(r.Context(), body.Bytes())
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(out)
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	adder := serve(calcflow.NewAdder())
	multiplier := serve(calcflow.NewMultiplier())

	out, err := execute(t, "run", "--a", "4", "--b", "5", "--local=false",
		"--adder-url", adder.URL, "--multiplier-url", multiplier.URL, "--timeout", "2s")
	require.NoError(t, err)

	var status calculator.PipelineStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status), out)
	assert.Equal(t, int64(48), status.Output.Result)
}

func TestRunCommand_Failure(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	out, err := execute(t, "run", "--a", "5", "--b", "3", "--local=false",
		"--adder-url", dead.URL, "--multiplier-url", dead.URL, "--timeout", "1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline failed")
	assert.Equal(t, calcflow.ErrCodeTransport, calcflow.ErrorCode(err))
	assert.Contains(t, out, string(calcflow.RunStatusFailed))
}

func TestServeCommand_UnknownUnit(t *testing.T) {
	_, err := execute(t, "serve", "subtractor")
	require.Error(t, err)
	assert.True(t, calcflow.IsNotFoundError(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "calcflow dev\n", out)
}
