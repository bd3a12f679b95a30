package calcflow

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log event names
const (
	// Unit-level events
	EventUnitInvoked        = "unit_invoked"
	EventUnitInputDefaulted = "unit_input_defaulted"
	EventUnitInputRejected  = "unit_input_rejected"

	// Pipeline-level events
	EventPipelineStarted   = "pipeline_started"
	EventPipelineCompleted = "pipeline_completed"
	EventPipelineFailed    = "pipeline_failed"
	EventPipelineCancelled = "pipeline_cancelled"

	// Stage-level events
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"

	// Journal events
	EventJournalError = "journal_error"
)

// Log output formats
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// NewLogger builds a logger writing to w at the given level.
// Format is LogFormatConsole (human readable) or LogFormatJSON.
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", LogFormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case LogFormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl), nil
}

// LogUnitInvoked logs a completed unit invocation
func LogUnitInvoked(logger zerolog.Logger, unitID string, req InvocationRequest, result InvocationResult) {
	logger.Debug().
		Str("event", EventUnitInvoked).
		Str("unit", unitID).
		Int64("a", req.A).
		Int64("b", req.B).
		Int64("result", result.Result).
		Msg("Unit invoked")
}

// LogUnitInputDefaulted logs fields that were present but treated as 0
func LogUnitInputDefaulted(logger zerolog.Logger, unitID string, fields []string) {
	logger.Warn().
		Str("event", EventUnitInputDefaulted).
		Str("unit", unitID).
		Strs("fields", fields).
		Msg("Non-integer input defaulted to zero")
}

// LogUnitInputRejected logs a payload refused by input validation
func LogUnitInputRejected(logger zerolog.Logger, unitID string, err error) {
	logger.Warn().
		Str("event", EventUnitInputRejected).
		Str("unit", unitID).
		Err(err).
		Msg("Input rejected")
}

// LogPipelineStarted logs when a pipeline run starts
func LogPipelineStarted(logger zerolog.Logger, runID, pipelineID string, input InvocationRequest) {
	logger.Info().
		Str("event", EventPipelineStarted).
		Str("run_id", runID).
		Str("pipeline_id", pipelineID).
		Int64("a", input.A).
		Int64("b", input.B).
		Msg("Pipeline started")
}

// LogPipelineCompleted logs successful pipeline completion
func LogPipelineCompleted(logger zerolog.Logger, runID string, result int64, duration time.Duration) {
	logger.Info().
		Str("event", EventPipelineCompleted).
		Str("run_id", runID).
		Int64("result", result).
		Dur("duration", duration).
		Msg("Pipeline completed")
}

// LogPipelineFailed logs pipeline failure
func LogPipelineFailed(logger zerolog.Logger, runID, stageID string, err error) {
	logger.Error().
		Str("event", EventPipelineFailed).
		Str("run_id", runID).
		Str("stage_id", stageID).
		Err(err).
		Msg("Pipeline failed")
}

// LogPipelineCancelled logs pipeline cancellation
func LogPipelineCancelled(logger zerolog.Logger, runID string) {
	logger.Warn().
		Str("event", EventPipelineCancelled).
		Str("run_id", runID).
		Msg("Pipeline cancelled")
}

// LogStageStarted logs when a stage invocation starts
func LogStageStarted(logger zerolog.Logger, runID, stageID, function string, req InvocationRequest) {
	logger.Info().
		Str("event", EventStageStarted).
		Str("run_id", runID).
		Str("stage_id", stageID).
		Str("function", function).
		Int64("a", req.A).
		Int64("b", req.B).
		Msg("Stage started")
}

// LogStageCompleted logs successful stage completion
func LogStageCompleted(logger zerolog.Logger, runID, stageID string, result int64, durationMs int64) {
	logger.Info().
		Str("event", EventStageCompleted).
		Str("run_id", runID).
		Str("stage_id", stageID).
		Int64("result", result).
		Int64("duration_ms", durationMs).
		Msg("Stage completed")
}

// LogStageFailed logs stage failure
func LogStageFailed(logger zerolog.Logger, runID, stageID string, err error, durationMs int64) {
	logger.Error().
		Str("event", EventStageFailed).
		Str("run_id", runID).
		Str("stage_id", stageID).
		Str("code", ErrorCode(err)).
		Err(err).
		Int64("duration_ms", durationMs).
		Msg("Stage failed")
}

// LogJournalError logs errors while recording a run
func LogJournalError(logger zerolog.Logger, runID, operation string, err error) {
	logger.Error().
		Str("event", EventJournalError).
		Str("run_id", runID).
		Str("operation", operation).
		Err(err).
		Msg("Journal error")
}

// RunLogger creates a logger enriched with run context
func RunLogger(baseLogger zerolog.Logger, runID, pipelineID string) zerolog.Logger {
	return baseLogger.With().
		Str("run_id", runID).
		Str("pipeline_id", pipelineID).
		Logger()
}

// StageLogger creates a logger enriched with stage context
func StageLogger(runLogger zerolog.Logger, stageID, function string, index int) zerolog.Logger {
	return runLogger.With().
		Str("stage_id", stageID).
		Str("function", function).
		Int("stage_index", index).
		Logger()
}
