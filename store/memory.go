package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sicko7947/calcflow"
)

// MemoryStore implements calcflow.RunStore using in-memory storage
type MemoryStore struct {
	runs            map[string]*calcflow.PipelineRun
	stageExecutions map[string]map[string]*calcflow.StageExecution // runID -> stageID -> execution
	mu              sync.RWMutex
}

var _ calcflow.RunStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory run journal
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:            make(map[string]*calcflow.PipelineRun),
		stageExecutions: make(map[string]map[string]*calcflow.StageExecution),
	}
}

func runNotFound(runID string) error {
	return calcflow.NewInvocationError(calcflow.ErrCodeNotFound, fmt.Sprintf("pipeline run %s not found", runID))
}

func stageExecutionNotFound(exec *calcflow.StageExecution) error {
	return calcflow.NewInvocationError(calcflow.ErrCodeNotFound,
		fmt.Sprintf("stage execution %s/%s not found", exec.RunID, exec.StageID))
}

// Pipeline run operations

func (s *MemoryStore) CreateRun(ctx context.Context, run *calcflow.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return fmt.Errorf("pipeline run %s already exists", run.RunID)
	}

	s.runs[run.RunID] = run.Clone()
	s.stageExecutions[run.RunID] = make(map[string]*calcflow.StageExecution)

	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*calcflow.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, runNotFound(runID)
	}

	return run.Clone(), nil
}

func (s *MemoryStore) UpdateRun(ctx context.Context, run *calcflow.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; !exists {
		return runNotFound(run.RunID)
	}

	s.runs[run.RunID] = run.Clone()

	return nil
}

// ListRuns returns matching runs, newest first
func (s *MemoryStore) ListRuns(ctx context.Context, filter calcflow.RunFilter) ([]*calcflow.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*calcflow.PipelineRun, 0)

	for _, run := range s.runs {
		// Apply filters
		if filter.PipelineID != "" && run.PipelineID != filter.PipelineID {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}

		runs = append(runs, run.Clone())
	}

	sortRunsNewestFirst(runs)

	// Apply limit
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}

	return runs, nil
}

// Stage execution operations

func (s *MemoryStore) CreateStageExecution(ctx context.Context, exec *calcflow.StageExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stageExecutions[exec.RunID]; !exists {
		s.stageExecutions[exec.RunID] = make(map[string]*calcflow.StageExecution)
	}

	s.stageExecutions[exec.RunID][exec.StageID] = exec.Clone()

	return nil
}

func (s *MemoryStore) UpdateStageExecution(ctx context.Context, exec *calcflow.StageExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runExecs := s.stageExecutions[exec.RunID]
	if _, exists := runExecs[exec.StageID]; !exists {
		return stageExecutionNotFound(exec)
	}

	runExecs[exec.StageID] = exec.Clone()

	return nil
}

// ListStageExecutions returns a run's stage executions in pipeline order
func (s *MemoryStore) ListStageExecutions(ctx context.Context, runID string) ([]*calcflow.StageExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runExecs, exists := s.stageExecutions[runID]
	if !exists {
		return []*calcflow.StageExecution{}, nil
	}

	executions := make([]*calcflow.StageExecution, 0, len(runExecs))
	for _, exec := range runExecs {
		executions = append(executions, exec.Clone())
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].Index < executions[j].Index
	})

	return executions, nil
}

// Query operations

func (s *MemoryStore) CountRunsByStatus(ctx context.Context, pipelineID string, status calcflow.RunStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, run := range s.runs {
		if run.PipelineID == pipelineID && run.Status == status {
			count++
		}
	}

	return count, nil
}

func sortRunsNewestFirst(runs []*calcflow.PipelineRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
