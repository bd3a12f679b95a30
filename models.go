package calcflow

import (
	"time"
)

// InvocationRequest is the decoded payload a unit is invoked with.
// Absent or unusable fields decode to 0, see DecodeRequest.
type InvocationRequest struct {
	A int64 `json:"a" dynamodbav:"a"`
	B int64 `json:"b" dynamodbav:"b"`
}

// InvocationResult is the payload a unit answers with
type InvocationResult struct {
	Result int64 `json:"result" dynamodbav:"result"`
}

// RunStatus represents the current state of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// AllRunStatuses lists every run status in lifecycle order
var AllRunStatuses = []RunStatus{
	RunStatusPending,
	RunStatusRunning,
	RunStatusCompleted,
	RunStatusFailed,
	RunStatusCancelled,
}

// IsTerminal returns true if the status is a final state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// String returns the string representation
func (s RunStatus) String() string {
	return string(s)
}

// StageStatus represents the current state of a single stage invocation
type StageStatus string

const (
	StageStatusPending   StageStatus = "PENDING"
	StageStatusRunning   StageStatus = "RUNNING"
	StageStatusCompleted StageStatus = "COMPLETED"
	StageStatusFailed    StageStatus = "FAILED"
)

// IsTerminal returns true if the status is a final state
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusCompleted || s == StageStatusFailed
}

// String returns the string representation
func (s StageStatus) String() string {
	return string(s)
}

// StageResults maps a stage ID to the integer result that stage produced
type StageResults map[string]int64

// PipelineRun records a single pipeline execution.
// It is a journal entry for status queries; runs are never resumed from it.
type PipelineRun struct {
	// Identity
	RunID           string `json:"runId" dynamodbav:"run_id"`
	PipelineID      string `json:"pipelineId" dynamodbav:"pipeline_id"`
	PipelineVersion string `json:"pipelineVersion" dynamodbav:"pipeline_version"`

	// Status
	Status RunStatus `json:"status" dynamodbav:"status"`

	// Timing
	CreatedAt   time.Time  `json:"createdAt" dynamodbav:"created_at"`
	StartedAt   *time.Time `json:"startedAt,omitempty" dynamodbav:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt" dynamodbav:"updated_at"`

	// Input/Output
	Input   InvocationRequest `json:"input" dynamodbav:"input"`
	Results StageResults      `json:"results,omitempty" dynamodbav:"results,omitempty"`
	Output  *InvocationResult `json:"output,omitempty" dynamodbav:"output,omitempty"`

	// Error handling
	Error *InvocationError `json:"error,omitempty" dynamodbav:"error,omitempty"`

	// Metadata
	Trigger *TriggerInfo      `json:"trigger,omitempty" dynamodbav:"trigger,omitempty"`
	Tags    map[string]string `json:"tags,omitempty" dynamodbav:"tags,omitempty"`

	// DynamoDB TTL
	TTL int64 `json:"-" dynamodbav:"ttl,omitempty"`
}

// Clone returns a copy that shares no mutable state with r
func (r *PipelineRun) Clone() *PipelineRun {
	c := *r
	if r.Results != nil {
		c.Results = make(StageResults, len(r.Results))
		for k, v := range r.Results {
			c.Results[k] = v
		}
	}
	if r.Tags != nil {
		c.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			c.Tags[k] = v
		}
	}
	if r.Output != nil {
		out := *r.Output
		c.Output = &out
	}
	if r.Error != nil {
		c.Error = r.Error.Clone()
	}
	return &c
}

// TriggerInfo captures what initiated the run
type TriggerInfo struct {
	Type      string    `json:"type" dynamodbav:"type"`     // "api", "cli", "test"
	Source    string    `json:"source" dynamodbav:"source"` // caller identity, host, etc.
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// StageExecution tracks one stage invocation within a run
type StageExecution struct {
	// Identity
	RunID    string `json:"runId" dynamodbav:"run_id"`
	StageID  string `json:"stageId" dynamodbav:"stage_id"`
	Function string `json:"function" dynamodbav:"function"`
	Index    int    `json:"index" dynamodbav:"index"`

	// Status
	Status StageStatus `json:"status" dynamodbav:"status"`

	// Timing
	StartedAt   *time.Time `json:"startedAt,omitempty" dynamodbav:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
	DurationMs  int64      `json:"durationMs" dynamodbav:"duration_ms"`

	// Payloads
	Request InvocationRequest `json:"request" dynamodbav:"request"`
	Result  *InvocationResult `json:"result,omitempty" dynamodbav:"result,omitempty"`

	// Error handling
	Error *InvocationError `json:"error,omitempty" dynamodbav:"error,omitempty"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Clone returns a copy that shares no mutable state with e
func (e *StageExecution) Clone() *StageExecution {
	c := *e
	if e.Result != nil {
		res := *e.Result
		c.Result = &res
	}
	if e.Error != nil {
		c.Error = e.Error.Clone()
	}
	return &c
}
