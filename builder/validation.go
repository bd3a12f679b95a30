package builder

import (
	"fmt"

	"github.com/sicko7947/calcflow"
)

// ValidatePipeline performs comprehensive validation on a pipeline
func ValidatePipeline(p *calcflow.Pipeline) error {
	if p.ID() == "" {
		return fmt.Errorf("pipeline has no id")
	}

	stages := p.Stages()
	if len(stages) == 0 {
		return fmt.Errorf("pipeline %s has no stages", p.ID())
	}

	if err := ValidateStageIDs(stages); err != nil {
		return err
	}

	return ValidateStages(stages)
}

// ValidateStageIDs ensures every stage has a unique, non-empty ID
func ValidateStageIDs(stages []calcflow.Stage) error {
	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return fmt.Errorf("stage %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate stage id %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// ValidateStages ensures every stage names a function and knows how to build its request
func ValidateStages(stages []calcflow.Stage) error {
	for _, s := range stages {
		if s.Function == "" {
			return fmt.Errorf("stage %s has no function", s.ID)
		}
		if s.Bind == nil {
			return fmt.Errorf("stage %s has no binder", s.ID)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("stage %s has a negative timeout", s.ID)
		}
	}
	return nil
}
