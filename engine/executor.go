package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
)

// executeStage binds and invokes a single stage once, with timeout and panic recovery
func (e *Engine) executeStage(
	ctx context.Context,
	p *calcflow.Pipeline,
	run *calcflow.PipelineRun,
	index int,
	stage calcflow.Stage,
	runLogger zerolog.Logger,
) (calcflow.InvocationResult, error) {
	stageLogger := calcflow.StageLogger(runLogger, stage.ID, stage.Function, index)

	// Binders get a copy so they cannot rewrite earlier results
	results := make(calcflow.StageResults, len(run.Results))
	for k, v := range run.Results {
		results[k] = v
	}

	req, err := stage.Bind(run.Input, results)
	if err != nil {
		ie := calcflow.WrapInvocationError(calcflow.ErrCodeValidation, fmt.Errorf("failed to bind request: %w", err)).
			WithStage(stage.ID).
			WithFunction(stage.Function)
		calcflow.LogStageFailed(stageLogger, run.RunID, stage.ID, ie, 0)
		return calcflow.InvocationResult{}, ie
	}

	now := time.Now()
	exec := &calcflow.StageExecution{
		RunID:     run.RunID,
		StageID:   stage.ID,
		Function:  stage.Function,
		Index:     index,
		Status:    calcflow.StageStatusPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.journalStage(ctx, exec, stageLogger, true)

	timeout := calcflow.ResolveStageTimeout(stage.Timeout, p.StageTimeout(), e.config.DefaultStageTimeout)

	startTime := time.Now()
	exec.Status = calcflow.StageStatusRunning
	exec.StartedAt = &startTime
	exec.UpdatedAt = startTime
	e.journalStage(ctx, exec, stageLogger, false)

	calcflow.LogStageStarted(stageLogger, run.RunID, stage.ID, stage.Function, req)

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	result, err := e.invoke(stageCtx, stage.Function, req)
	deadlineHit := errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	duration := time.Since(startTime)
	completedAt := time.Now()
	exec.DurationMs = duration.Milliseconds()
	exec.CompletedAt = &completedAt
	exec.UpdatedAt = completedAt

	if err != nil {
		var ie *calcflow.InvocationError
		if deadlineHit && !calcflow.IsTimeoutError(err) {
			ie = calcflow.WrapInvocationError(calcflow.ErrCodeTimeout,
				fmt.Errorf("stage timed out after %s: %w", timeout, err))
		} else {
			ie = calcflow.ToInvocationError(err).Clone()
		}
		ie.WithStage(stage.ID)
		if ie.Function == "" {
			ie.WithFunction(stage.Function)
		}

		exec.Status = calcflow.StageStatusFailed
		exec.Error = ie
		e.journalStage(ctx, exec, stageLogger, false)

		calcflow.LogStageFailed(stageLogger, run.RunID, stage.ID, ie, exec.DurationMs)
		return calcflow.InvocationResult{}, ie
	}

	exec.Status = calcflow.StageStatusCompleted
	exec.Result = &result
	e.journalStage(ctx, exec, stageLogger, false)

	calcflow.LogStageCompleted(stageLogger, run.RunID, stage.ID, result.Result, exec.DurationMs)
	return result, nil
}

// invoke calls the invoker, turning a panic into a PANIC error
func (e *Engine) invoke(ctx context.Context, function string, req calcflow.InvocationRequest) (result calcflow.InvocationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = calcflow.NewInvocationError(calcflow.ErrCodePanic, fmt.Sprintf("invoker panicked: %v", r)).
				WithFunction(function)
		}
	}()

	return e.invoker.Invoke(ctx, function, req)
}

// journalStage records exec. Journal failures are logged, never fatal.
func (e *Engine) journalStage(ctx context.Context, exec *calcflow.StageExecution, logger zerolog.Logger, create bool) {
	jctx, cancel := e.journalContext(ctx)
	defer cancel()

	op, write := "update_stage_execution", e.store.UpdateStageExecution
	if create {
		op, write = "create_stage_execution", e.store.CreateStageExecution
	}

	if err := write(jctx, exec); err != nil {
		calcflow.LogJournalError(logger, exec.RunID, op, err)
	}
}
