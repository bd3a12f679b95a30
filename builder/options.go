package builder

import "github.com/sicko7947/calcflow"

// PassThrough forwards the pipeline input unchanged
func PassThrough(input calcflow.InvocationRequest, _ calcflow.StageResults) (calcflow.InvocationRequest, error) {
	return input, nil
}

// PipelineOption is a functional option for configuring pipelines
type PipelineOption func(*calcflow.Pipeline)

// WithDescription sets the pipeline description
func WithDescription(description string) PipelineOption {
	return func(p *calcflow.Pipeline) {
		p.SetDescription(description)
	}
}

// WithVersion sets the pipeline version
func WithVersion(version string) PipelineOption {
	return func(p *calcflow.Pipeline) {
		p.SetVersion(version)
	}
}

// WithTags sets pipeline tags
func WithTags(tags map[string]string) PipelineOption {
	return func(p *calcflow.Pipeline) {
		p.SetTags(tags)
	}
}

// ApplyOptions applies a list of options to a pipeline
func ApplyOptions(p *calcflow.Pipeline, opts ...PipelineOption) {
	for _, opt := range opts {
		opt(p)
	}
}
