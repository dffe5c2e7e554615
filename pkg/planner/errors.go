package planner

import "fmt"

// PlanErrorKind enumerates the ways Plan can fail to produce a plan.
type PlanErrorKind string

const (
	NoEligibleDisks             PlanErrorKind = "NoEligibleDisks"
	InsufficientCapacityForRoot PlanErrorKind = "InsufficientCapacityForRoot"
	ConfigConflict              PlanErrorKind = "ConfigConflict"
	MixedBucketRAID             PlanErrorKind = "MixedBucketRAID"
)

// PlanError is the planner's structured failure value. Plan is total:
// every input either yields a Plan or a PlanError, never a panic.
type PlanError struct {
	Kind    PlanErrorKind
	Message string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("planner: %s: %s", e.Kind, e.Message)
}
