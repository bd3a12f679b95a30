package calculator

import (
	"fmt"

	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/builder"
)

// Pipeline and stage identifiers
const (
	PipelineID    = "calculator"
	StageAdd      = "add"
	StageMultiply = "multiply"
)

// NewPipeline constructs the calculator pipeline: the adder receives the caller's
// request, then the multiplier receives {a: sum, b: original a}.
func NewPipeline() (*calcflow.Pipeline, error) {
	p, err := builder.NewPipeline(PipelineID, "Calculator Pipeline").
		WithDescription("Custom add followed by multiply with the original a").
		WithVersion("1.0").
		WithTags(map[string]string{
			"type": "calculator",
		}).
		Then(calcflow.Stage{
			ID:       StageAdd,
			Name:     "Custom Add",
			Function: calcflow.AdderID,
			Bind:     builder.PassThrough,
		}).
		Then(calcflow.Stage{
			ID:       StageMultiply,
			Name:     "Multiply By Original A",
			Function: calcflow.MultiplierID,
			Bind:     BindMultiply,
		}).
		Build()

	if err != nil {
		return nil, fmt.Errorf("failed to build calculator pipeline: %w", err)
	}

	return p, nil
}

// BindMultiply builds the multiplier request from the add result and the original a
func BindMultiply(input calcflow.InvocationRequest, results calcflow.StageResults) (calcflow.InvocationRequest, error) {
	sum, ok := results[StageAdd]
	if !ok {
		return calcflow.InvocationRequest{}, fmt.Errorf("stage %s has no result", StageAdd)
	}
	return calcflow.InvocationRequest{A: sum, B: input.A}, nil
}
