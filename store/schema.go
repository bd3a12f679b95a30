package store

import (
	"fmt"
	"time"
)

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrEntityType = "entity_type"
	AttrTTL        = "ttl"

	// Entity types
	EntityTypePipelineRun    = "PipelineRun"
	EntityTypeStageExecution = "StageExecution"

	// Index names
	IndexStatusIndex = "GSI1"
)

// gsi1SKLayout sorts lexically in creation order
const gsi1SKLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Key builders for single-table design

// PipelineRun keys: PK=RUN#{runID}, SK=META
func pipelineRunPK(runID string) string {
	return fmt.Sprintf("RUN#%s", runID)
}

func pipelineRunSK() string {
	return "META"
}

func pipelineRunGSI1PK(pipelineID, status string) string {
	return fmt.Sprintf("PIPE#%s#STATUS#%s", pipelineID, status)
}

func pipelineRunGSI1SK(createdAt time.Time) string {
	return createdAt.UTC().Format(gsi1SKLayout)
}

// StageExecution keys: PK=RUN#{runID}, SK=STAGE#{index}#{stageID}
// The zero-padded index keeps stages in pipeline order within the partition.
func stageExecutionPK(runID string) string {
	return fmt.Sprintf("RUN#%s", runID)
}

func stageExecutionSK(index int, stageID string) string {
	return fmt.Sprintf("STAGE#%04d#%s", index, stageID)
}

// Prefix for range queries
func stagePrefix() string {
	return "STAGE#"
}
