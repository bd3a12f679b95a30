package builder

import (
	"fmt"
	"time"

	"github.com/sicko7947/calcflow"
)

// PipelineBuilder provides a fluent API for building pipelines
type PipelineBuilder struct {
	pipeline *calcflow.Pipeline
	errs     []error
}

// NewPipeline creates a new pipeline builder
func NewPipeline(id, name string, opts ...PipelineOption) *PipelineBuilder {
	p := calcflow.NewPipelineInstance(id, name)
	ApplyOptions(p, opts...)
	return &PipelineBuilder{
		pipeline: p,
	}
}

// WithDescription sets the pipeline description
func (b *PipelineBuilder) WithDescription(description string) *PipelineBuilder {
	b.pipeline.SetDescription(description)
	return b
}

// WithVersion sets the pipeline version
func (b *PipelineBuilder) WithVersion(version string) *PipelineBuilder {
	b.pipeline.SetVersion(version)
	return b
}

// WithStageTimeout sets the default timeout of every stage that does not set its own
func (b *PipelineBuilder) WithStageTimeout(d time.Duration) *PipelineBuilder {
	if d < 0 {
		b.errs = append(b.errs, fmt.Errorf("stage timeout must not be negative, got %s", d))
		return b
	}
	b.pipeline.SetStageTimeout(d)
	return b
}

// WithTags sets pipeline tags
func (b *PipelineBuilder) WithTags(tags map[string]string) *PipelineBuilder {
	b.pipeline.SetTags(tags)
	return b
}

// Then appends stage after the last added stage.
// The first stage of a pipeline may leave Bind nil; it then receives the pipeline input.
func (b *PipelineBuilder) Then(stage calcflow.Stage) *PipelineBuilder {
	if stage.Bind == nil && len(b.pipeline.Stages()) == 0 {
		stage.Bind = PassThrough
	}
	if stage.Name == "" {
		stage.Name = stage.ID
	}
	b.pipeline.AddStage(stage)
	return b
}

// Stage appends a stage calling function with the request built by bind
func (b *PipelineBuilder) Stage(id, function string, bind calcflow.Binder) *PipelineBuilder {
	return b.Then(calcflow.Stage{
		ID:       id,
		Function: function,
		Bind:     bind,
	})
}

// Sequence appends several stages in order
func (b *PipelineBuilder) Sequence(stages ...calcflow.Stage) *PipelineBuilder {
	for _, stage := range stages {
		b.Then(stage)
	}
	return b
}

// Build finalizes and validates the pipeline
func (b *PipelineBuilder) Build() (*calcflow.Pipeline, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid pipeline: %w", b.errs[0])
	}

	if err := ValidatePipeline(b.pipeline); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	return b.pipeline, nil
}

// MustBuild finalizes and validates the pipeline, panics on error
func (b *PipelineBuilder) MustBuild() *calcflow.Pipeline {
	p, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build pipeline: %v", err))
	}
	return p
}
