package calculator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/engine"
)

// Orchestrator handles the execution of calculator pipelines
type Orchestrator struct {
	pipeline *calcflow.Pipeline
	engine   *engine.Engine
	logger   zerolog.Logger
}

// NewOrchestrator creates a calculator orchestrator invoking units through invoker
func NewOrchestrator(
	invoker calcflow.Invoker,
	store calcflow.RunStore,
	logger zerolog.Logger,
	config engine.EngineConfig,
) (*Orchestrator, error) {
	p, err := NewPipeline()
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine(invoker, store,
		engine.WithLogger(logger),
		engine.WithConfig(config),
	)

	return &Orchestrator{
		pipeline: p,
		engine:   eng,
		logger:   logger,
	}, nil
}

// Pipeline returns the calculator pipeline definition
func (o *Orchestrator) Pipeline() *calcflow.Pipeline {
	return o.pipeline
}

// Run executes the calculation synchronously. A failed run is returned
// alongside its error so callers can report the failing stage.
func (o *Orchestrator) Run(
	ctx context.Context,
	input calcflow.InvocationRequest,
	opts ...calcflow.RunOption,
) (*PipelineStatus, error) {
	o.logger.Debug().
		Int64("a", input.A).
		Int64("b", input.B).
		Msg("Running calculator pipeline")

	run, err := o.engine.Run(ctx, o.pipeline, input, opts...)
	if run == nil {
		return nil, fmt.Errorf("failed to run calculator pipeline: %w", err)
	}

	status := &PipelineStatus{
		PipelineRun: run,
		State:       StateOf(run),
	}
	return status, err
}

// Compute runs the pipeline and returns only the final product
func (o *Orchestrator) Compute(ctx context.Context, a, b int64) (int64, error) {
	status, err := o.Run(ctx, calcflow.InvocationRequest{A: a, B: b})
	if err != nil {
		return 0, err
	}
	return status.Output.Result, nil
}

// Start initiates a calculator run in the background
func (o *Orchestrator) Start(
	ctx context.Context,
	input calcflow.InvocationRequest,
	opts ...calcflow.RunOption,
) (string, error) {
	runID, err := o.engine.Start(ctx, o.pipeline, input, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to start calculator pipeline: %w", err)
	}

	o.logger.Info().
		Str("run_id", runID).
		Msg("Calculator pipeline started")

	return runID, nil
}

// Status retrieves the run record, its derived state and its stage executions
func (o *Orchestrator) Status(ctx context.Context, runID string) (*PipelineStatus, error) {
	run, err := o.engine.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}

	execs, err := o.engine.GetStageExecutions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage executions: %w", err)
	}

	return &PipelineStatus{
		PipelineRun:     run,
		State:           StateOf(run),
		StageExecutions: execs,
	}, nil
}

// StageExecutions lists a run's stage executions in pipeline order
func (o *Orchestrator) StageExecutions(ctx context.Context, runID string) ([]*calcflow.StageExecution, error) {
	if _, err := o.engine.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return o.engine.GetStageExecutions(ctx, runID)
}

// ListRuns lists calculator runs, newest first
func (o *Orchestrator) ListRuns(ctx context.Context, status *calcflow.RunStatus, limit int) ([]*calcflow.PipelineRun, error) {
	return o.engine.ListRuns(ctx, calcflow.RunFilter{
		PipelineID: o.pipeline.ID(),
		Status:     status,
		Limit:      limit,
	})
}

// Cancel cancels a running calculation
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	return o.engine.Cancel(ctx, runID)
}
