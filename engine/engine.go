package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
)

// Engine executes pipelines stage by stage through an Invoker.
// Stages run strictly in order; the first failing stage fails the run and
// nothing is retried.
type Engine struct {
	invoker calcflow.Invoker
	store   calcflow.RunStore
	logger  zerolog.Logger
	config  EngineConfig

	mu     sync.Mutex
	active map[string]*runHandle
}

// runHandle tracks a run this engine is executing.
// Once finished is set the run's terminal status is decided and Cancel no longer applies.
type runHandle struct {
	cancel   context.CancelFunc
	finished bool
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	// DefaultStageTimeout applies to stages when neither the stage nor the pipeline sets one
	DefaultStageTimeout time.Duration

	// JournalTimeout bounds each journal write, including writes made after the run context ended
	JournalTimeout time.Duration
}

// DefaultEngineConfig provides sensible defaults
var DefaultEngineConfig = EngineConfig{
	DefaultStageTimeout: calcflow.DefaultStageTimeout,
	JournalTimeout:      5 * time.Second,
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the engine
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig sets a custom configuration for the engine
func WithConfig(config EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = config
	}
}

// NewEngine creates a new pipeline engine with optional configuration
// If no logger is provided, a default stdout logger with Info level is used
// If no config is provided, DefaultEngineConfig is used
func NewEngine(invoker calcflow.Invoker, store calcflow.RunStore, opts ...EngineOption) *Engine {
	// Default logger: pretty console output, Info level
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	eng := &Engine{
		invoker: invoker,
		store:   store,
		logger:  defaultLogger,
		config:  DefaultEngineConfig,
		active:  make(map[string]*runHandle),
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.config.JournalTimeout <= 0 {
		eng.config.JournalTimeout = DefaultEngineConfig.JournalTimeout
	}

	return eng
}

// Run executes the pipeline synchronously and returns the finished run record.
// On failure the returned run carries the error as well; err is an *calcflow.InvocationError
// naming the failing stage. Cancel stops the run like a cancelled ctx does.
func (e *Engine) Run(
	ctx context.Context,
	p *calcflow.Pipeline,
	input calcflow.InvocationRequest,
	opts ...calcflow.RunOption,
) (*calcflow.PipelineRun, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run, err := e.createRun(ctx, p, input, cancel, opts...)
	if err != nil {
		return nil, err
	}
	defer e.untrack(run.RunID)

	err = e.executePipeline(runCtx, p, run)
	return run.Clone(), err
}

// Start launches the pipeline in the background and returns the run ID.
// The run outlives ctx; use Cancel to stop it and GetRun to observe it.
func (e *Engine) Start(
	ctx context.Context,
	p *calcflow.Pipeline,
	input calcflow.InvocationRequest,
	opts ...calcflow.RunOption,
) (string, error) {
	runCtx, cancel := context.WithCancel(context.Background())

	run, err := e.createRun(ctx, p, input, cancel, opts...)
	if err != nil {
		cancel()
		return "", err
	}

	go func() {
		defer func() {
			e.untrack(run.RunID)
			cancel()
		}()
		_ = e.executePipeline(runCtx, p, run)
	}()

	return run.RunID, nil
}

// track registers runID as owned by this engine
func (e *Engine) track(runID string, cancel context.CancelFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[runID]; ok {
		return calcflow.NewInvocationError(calcflow.ErrCodeValidation,
			fmt.Sprintf("pipeline run %s is already executing", runID))
	}
	e.active[runID] = &runHandle{cancel: cancel}
	return nil
}

// untrack releases runID after its terminal status has been journaled
func (e *Engine) untrack(runID string) {
	e.mu.Lock()
	delete(e.active, runID)
	e.mu.Unlock()
}

// finish fixes the run's outcome: it reports whether the run was cancelled and
// makes later Cancel calls fail
func (e *Engine) finish(ctx context.Context, runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.active[runID]; ok {
		h.finished = true
	}
	return errors.Is(ctx.Err(), context.Canceled)
}

func (e *Engine) createRun(
	ctx context.Context,
	p *calcflow.Pipeline,
	input calcflow.InvocationRequest,
	cancel context.CancelFunc,
	opts ...calcflow.RunOption,
) (*calcflow.PipelineRun, error) {
	if p == nil || len(p.Stages()) == 0 {
		return nil, calcflow.NewInvocationError(calcflow.ErrCodeValidation, "pipeline has no stages")
	}

	options := calcflow.NewRunOptions(opts...)

	runID := options.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	now := time.Now()
	run := &calcflow.PipelineRun{
		RunID:           runID,
		PipelineID:      p.ID(),
		PipelineVersion: p.Version(),
		Status:          calcflow.RunStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Input:           input,
		Results:         make(calcflow.StageResults),
		Tags:            mergeTags(p.Tags(), options.Tags),
	}

	if options.TriggerType != "" {
		run.Trigger = &calcflow.TriggerInfo{
			Type:      options.TriggerType,
			Source:    options.TriggerSource,
			Timestamp: now,
		}
	}

	if options.TTL > 0 {
		run.TTL = now.Add(options.TTL).Unix()
	}

	// Owned before it is journaled, so Cancel never mistakes it for an orphan
	if err := e.track(runID, cancel); err != nil {
		return nil, err
	}

	if err := e.store.CreateRun(ctx, run); err != nil {
		e.untrack(runID)
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	e.logger.Debug().
		Str("run_id", runID).
		Str("pipeline_id", p.ID()).
		Msg("Pipeline run created")

	return run, nil
}

// mergeTags layers run tags over pipeline tags
func mergeTags(pipelineTags, runTags map[string]string) map[string]string {
	if len(pipelineTags) == 0 && len(runTags) == 0 {
		return nil
	}
	tags := make(map[string]string, len(pipelineTags)+len(runTags))
	for k, v := range pipelineTags {
		tags[k] = v
	}
	for k, v := range runTags {
		tags[k] = v
	}
	return tags
}

// executePipeline runs every stage in order, recording progress on run
func (e *Engine) executePipeline(ctx context.Context, p *calcflow.Pipeline, run *calcflow.PipelineRun) error {
	runLogger := calcflow.RunLogger(e.logger, run.RunID, run.PipelineID)

	startTime := time.Now()
	run.Status = calcflow.RunStatusRunning
	run.StartedAt = &startTime
	run.UpdatedAt = startTime
	e.saveRun(ctx, run, runLogger)

	calcflow.LogPipelineStarted(runLogger, run.RunID, run.PipelineID, run.Input)

	var last calcflow.InvocationResult
	for i, stage := range p.Stages() {
		if errors.Is(ctx.Err(), context.Canceled) && e.finish(ctx, run.RunID) {
			return e.cancelRun(ctx, run, runLogger)
		}

		result, err := e.executeStage(ctx, p, run, i, stage, runLogger)
		if err != nil {
			if e.finish(ctx, run.RunID) {
				return e.cancelRun(ctx, run, runLogger)
			}
			return e.failRun(ctx, run, stage.ID, err, runLogger)
		}

		run.Results[stage.ID] = result.Result
		run.UpdatedAt = time.Now()
		last = result
		e.saveRun(ctx, run, runLogger)
	}

	if e.finish(ctx, run.RunID) {
		return e.cancelRun(ctx, run, runLogger)
	}
	return e.completeRun(ctx, run, last, runLogger)
}

// completeRun marks the run as completed with the last stage's result as output
func (e *Engine) completeRun(ctx context.Context, run *calcflow.PipelineRun, output calcflow.InvocationResult, logger zerolog.Logger) error {
	completedAt := time.Now()
	run.Status = calcflow.RunStatusCompleted
	run.Output = &output
	run.CompletedAt = &completedAt
	run.UpdatedAt = completedAt
	e.saveRun(ctx, run, logger)

	calcflow.LogPipelineCompleted(logger, run.RunID, output.Result, completedAt.Sub(*run.StartedAt))
	return nil
}

// failRun marks the run as failed
func (e *Engine) failRun(ctx context.Context, run *calcflow.PipelineRun, stageID string, err error, logger zerolog.Logger) error {
	ie := calcflow.ToInvocationError(err)
	if ie.Stage == "" {
		ie.WithStage(stageID)
	}

	completedAt := time.Now()
	run.Status = calcflow.RunStatusFailed
	run.CompletedAt = &completedAt
	run.UpdatedAt = completedAt
	run.Error = ie
	e.saveRun(ctx, run, logger)

	calcflow.LogPipelineFailed(logger, run.RunID, stageID, ie)
	return ie
}

// cancelRun marks the run as cancelled
func (e *Engine) cancelRun(ctx context.Context, run *calcflow.PipelineRun, logger zerolog.Logger) error {
	ie := calcflow.NewInvocationError(calcflow.ErrCodeCancelled, "pipeline run cancelled")

	completedAt := time.Now()
	run.Status = calcflow.RunStatusCancelled
	run.CompletedAt = &completedAt
	run.UpdatedAt = completedAt
	run.Error = ie
	e.saveRun(ctx, run, logger)

	calcflow.LogPipelineCancelled(logger, run.RunID)
	return ie
}

// saveRun writes run to the journal. Journal failures are logged, never fatal.
func (e *Engine) saveRun(ctx context.Context, run *calcflow.PipelineRun, logger zerolog.Logger) {
	jctx, cancel := e.journalContext(ctx)
	defer cancel()

	if err := e.store.UpdateRun(jctx, run); err != nil {
		calcflow.LogJournalError(logger, run.RunID, "update_run", err)
	}
}

// journalContext detaches journal writes from run cancellation
func (e *Engine) journalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.config.JournalTimeout)
}

// GetRun retrieves a pipeline run
func (e *Engine) GetRun(ctx context.Context, runID string) (*calcflow.PipelineRun, error) {
	return e.store.GetRun(ctx, runID)
}

// GetStageExecutions retrieves all stage executions for a run in stage order
func (e *Engine) GetStageExecutions(ctx context.Context, runID string) ([]*calcflow.StageExecution, error) {
	execs, err := e.store.ListStageExecutions(ctx, runID)
	if err != nil {
		return nil, err
	}
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].Index < execs[j].Index
	})
	return execs, nil
}

// ListRuns lists pipeline runs with filtering
func (e *Engine) ListRuns(ctx context.Context, filter calcflow.RunFilter) ([]*calcflow.PipelineRun, error) {
	return e.store.ListRuns(ctx, filter)
}

// Cancel stops a run this engine is executing, whether started with Run or Start.
// A run no engine owns is only marked as cancelled in the journal.
// Runs that are finished, or whose outcome is already decided, cannot be cancelled.
func (e *Engine) Cancel(ctx context.Context, runID string) error {
	e.mu.Lock()
	h, owned := e.active[runID]
	if owned && !h.finished {
		h.cancel()
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if owned {
		return calcflow.NewInvocationError(calcflow.ErrCodeValidation,
			fmt.Sprintf("pipeline run %s is already finishing", runID))
	}

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if run.Status.IsTerminal() {
		return calcflow.NewInvocationError(calcflow.ErrCodeValidation,
			fmt.Sprintf("cannot cancel pipeline run in %s state", run.Status))
	}

	_ = e.cancelRun(ctx, run, calcflow.RunLogger(e.logger, run.RunID, run.PipelineID))
	return nil
}
