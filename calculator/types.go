package calculator

import "github.com/sicko7947/calcflow"

// PipelineState is the per-run view of the calculation.
// Sum and Product stay nil until their stage has produced a result.
type PipelineState struct {
	OriginalA int64  `json:"originalA"`
	Sum       *int64 `json:"sum,omitempty"`
	Product   *int64 `json:"product,omitempty"`
}

// StateOf derives the calculation state from a run record
func StateOf(run *calcflow.PipelineRun) PipelineState {
	state := PipelineState{OriginalA: run.Input.A}
	if sum, ok := run.Results[StageAdd]; ok {
		state.Sum = calcflow.ToPtr(sum)
	}
	if product, ok := run.Results[StageMultiply]; ok {
		state.Product = calcflow.ToPtr(product)
	}
	return state
}

// PipelineStatus represents the current status of a calculator run
type PipelineStatus struct {
	*calcflow.PipelineRun
	State           PipelineState              `json:"state"`
	StageExecutions []*calcflow.StageExecution `json:"stageExecutions,omitempty"`
}
