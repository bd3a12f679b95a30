package calcflow

import (
	"context"
	"fmt"
	"time"
)

// Binder builds a stage's request from the pipeline input and the results of earlier stages
type Binder func(input InvocationRequest, results StageResults) (InvocationRequest, error)

// Stage is one step of a pipeline: a call to a named function with a bound request
type Stage struct {
	ID       string
	Name     string
	Function string
	Bind     Binder

	// Timeout overrides the pipeline's default stage timeout when non-zero
	Timeout time.Duration
}

// Invoker calls a compute unit by function name.
// Implementations may dispatch in-process or over a transport.
type Invoker interface {
	Invoke(ctx context.Context, function string, req InvocationRequest) (InvocationResult, error)
}

// InvokerFunc adapts a plain function to Invoker
type InvokerFunc func(ctx context.Context, function string, req InvocationRequest) (InvocationResult, error)

// Invoke calls f(ctx, function, req)
func (f InvokerFunc) Invoke(ctx context.Context, function string, req InvocationRequest) (InvocationResult, error) {
	return f(ctx, function, req)
}

// Pipeline is an ordered, linear sequence of stages
type Pipeline struct {
	id          string
	name        string
	description string
	version     string

	stages []Stage

	// Default per-stage timeout
	stageTimeout time.Duration

	// Metadata
	tags      map[string]string
	createdAt time.Time
}

// ID returns the pipeline ID
func (p *Pipeline) ID() string {
	return p.id
}

// Name returns the pipeline name
func (p *Pipeline) Name() string {
	return p.name
}

// Description returns the pipeline description
func (p *Pipeline) Description() string {
	return p.description
}

// Version returns the pipeline version
func (p *Pipeline) Version() string {
	return p.version
}

// Stages returns a copy of the stages in execution order
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// GetStage retrieves a stage by ID
func (p *Pipeline) GetStage(stageID string) (Stage, error) {
	for _, s := range p.stages {
		if s.ID == stageID {
			return s, nil
		}
	}
	return Stage{}, NewInvocationError(ErrCodeNotFound, fmt.Sprintf("stage %s not found in pipeline", stageID))
}

// StageTimeout returns the default per-stage timeout, 0 when unset
func (p *Pipeline) StageTimeout() time.Duration {
	return p.stageTimeout
}

// Tags returns the pipeline tags
func (p *Pipeline) Tags() map[string]string {
	return p.tags
}

// CreatedAt returns when the pipeline definition was created
func (p *Pipeline) CreatedAt() time.Time {
	return p.createdAt
}

// NewPipelineInstance creates an empty pipeline definition
func NewPipelineInstance(id, name string) *Pipeline {
	return &Pipeline{
		id:        id,
		name:      name,
		version:   "1.0",
		tags:      make(map[string]string),
		createdAt: time.Now(),
	}
}

// SetDescription sets the pipeline description
func (p *Pipeline) SetDescription(description string) {
	p.description = description
}

// SetVersion sets the pipeline version
func (p *Pipeline) SetVersion(version string) {
	p.version = version
}

// SetStageTimeout sets the default per-stage timeout
func (p *Pipeline) SetStageTimeout(d time.Duration) {
	p.stageTimeout = d
}

// SetTags sets the pipeline tags
func (p *Pipeline) SetTags(tags map[string]string) {
	p.tags = tags
}

// AddStage appends a stage
func (p *Pipeline) AddStage(stage Stage) {
	p.stages = append(p.stages, stage)
}
