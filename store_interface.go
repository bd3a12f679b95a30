package calcflow

import "context"

// RunStore journals pipeline runs so their status can be queried.
// Nothing reads a journal to resume or replay a run.
type RunStore interface {
	// Pipeline runs
	CreateRun(ctx context.Context, run *PipelineRun) error
	GetRun(ctx context.Context, runID string) (*PipelineRun, error)
	UpdateRun(ctx context.Context, run *PipelineRun) error
	ListRuns(ctx context.Context, filter RunFilter) ([]*PipelineRun, error)

	// Stage executions
	CreateStageExecution(ctx context.Context, exec *StageExecution) error
	UpdateStageExecution(ctx context.Context, exec *StageExecution) error
	ListStageExecutions(ctx context.Context, runID string) ([]*StageExecution, error)

	// Queries
	CountRunsByStatus(ctx context.Context, pipelineID string, status RunStatus) (int, error)
}

// RunFilter defines filtering criteria for pipeline runs
type RunFilter struct {
	PipelineID string
	Status     *RunStatus
	Limit      int
}
