package calcflow

import "time"

// ToPtr returns a pointer to the given value.
// This is useful for creating pointers to literals or converting values to pointers.
func ToPtr[T any](v T) *T {
	return &v
}

// ResolveStageTimeout picks the first positive timeout of stage, pipeline and
// fallback, in that order
func ResolveStageTimeout(stage, pipeline, fallback time.Duration) time.Duration {
	switch {
	case stage > 0:
		return stage
	case pipeline > 0:
		return pipeline
	case fallback > 0:
		return fallback
	default:
		return DefaultStageTimeout
	}
}
