package calcflow

import "time"

// DefaultStageTimeout bounds a single stage invocation when neither the stage
// nor the pipeline sets a timeout
const DefaultStageTimeout = 5 * time.Second

// Trigger types recorded on runs
const (
	TriggerAPI  = "api"
	TriggerCLI  = "cli"
	TriggerTest = "test"
)

// RunOption allows functional configuration of a pipeline run
type RunOption func(*RunOptions)

// RunOptions holds options for starting a pipeline run
type RunOptions struct {
	RunID         string
	TTL           time.Duration
	Tags          map[string]string
	TriggerType   string
	TriggerSource string
}

// NewRunOptions applies opts over the zero options
func NewRunOptions(opts ...RunOption) *RunOptions {
	options := &RunOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithRunID sets an explicit run ID instead of a generated one
func WithRunID(id string) RunOption {
	return func(opts *RunOptions) {
		opts.RunID = id
	}
}

// WithTTL sets how long the journal should keep the run record
func WithTTL(ttl time.Duration) RunOption {
	return func(opts *RunOptions) {
		opts.TTL = ttl
	}
}

// WithTags sets custom tags for the run
func WithTags(tags map[string]string) RunOption {
	return func(opts *RunOptions) {
		opts.Tags = tags
	}
}

// WithTrigger records what initiated the run
func WithTrigger(triggerType, source string) RunOption {
	return func(opts *RunOptions) {
		opts.TriggerType = triggerType
		opts.TriggerSource = source
	}
}
