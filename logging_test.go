package calcflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", LogFormatJSON)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	logger, err = NewLogger(&buf, "", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	logger.Info().Msg("console")
	assert.Contains(t, buf.String(), "console")

	_, err = NewLogger(&buf, "loud", LogFormatJSON)
	assert.Error(t, err)

	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := StageLogger(RunLogger(zerolog.New(&buf), "run-1", "calculator"), "add", AdderID, 0)

	LogStageStarted(logger, "run-1", "add", AdderID, InvocationRequest{A: 5, B: 3})
	LogStageCompleted(logger, "run-1", "add", 11, 2)
	LogStageFailed(logger, "run-1", "add", NewInvocationError(ErrCodeTimeout, "slow"), 5000)
	LogPipelineCompleted(logger, "run-1", 55, time.Millisecond)
	LogJournalError(logger, "run-1", "update_run", errors.New("throttled"))

	out := buf.String()
	for _, want := range []string{
		`"run_id":"run-1"`,
		`"pipeline_id":"calculator"`,
		`"stage_index":0`,
		EventStageStarted,
		EventStageCompleted,
		EventStageFailed,
		`"code":"TIMEOUT"`,
		EventPipelineCompleted,
		EventJournalError,
	} {
		assert.Contains(t, out, want)
	}
}
