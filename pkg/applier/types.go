// Package applier drives a planner.Plan to a live system: rendering the
// declarative file, running pre-cleanup, invoking the external
// formatter, executing post-apply commands, and recording the outcome —
// as an explicit state machine, re-entrant and exactly-once.
package applier

import "fmt"

// State is one node of the applier's state machine.
type State string

const (
	StateReady              State = "Ready"
	StateRenderingPlan       State = "RenderingPlan"
	StatePreCleanup          State = "PreCleanup"
	StateFormatting          State = "Formatting"
	StatePostFailureCleanup State = "PostFailureCleanup"
	StatePostApply           State = "PostApply"
	StateAppliedSuccess      State = "AppliedSuccess"
	StateAppliedFailed       State = "AppliedFailed"
)

// AllStates lists every State value, in transition order, for use with
// metrics.Metrics.SetState.
var AllStates = []string{
	string(StateReady),
	string(StateRenderingPlan),
	string(StatePreCleanup),
	string(StateFormatting),
	string(StatePostFailureCleanup),
	string(StatePostApply),
	string(StateAppliedSuccess),
	string(StateAppliedFailed),
}

// FormatterFailed is returned when the external formatter exits non-zero
// on both the initial attempt and the post-failure-cleanup retry.
type FormatterFailed struct {
	Attempt int
	Argv    []string
	Exit    int
	Stderr  string
}

func (e *FormatterFailed) Error() string {
	return fmt.Sprintf("applier: formatter failed (attempt %d): argv=%v exit=%d stderr=%s", e.Attempt, e.Argv, e.Exit, e.Stderr)
}

// PostApplyFailed is returned when a post-apply command exits non-zero;
// the state machine aborts on the first such failure (spec §4.6).
type PostApplyFailed struct {
	Description string
	Argv        []string
	Exit        int
	Stderr      string
}

func (e *PostApplyFailed) Error() string {
	return fmt.Sprintf("applier: post-apply command %q failed: argv=%v exit=%d stderr=%s", e.Description, e.Argv, e.Exit, e.Stderr)
}

// StatusWriteFailed wraps a failure to persist the status record. It is
// always a secondary error: the underlying apply outcome is still
// returned to the caller, with this recorded as Outcome.StatusWriteErr.
type StatusWriteFailed struct {
	Err error
}

func (e *StatusWriteFailed) Error() string { return fmt.Sprintf("applier: writing status record: %v", e.Err) }
func (e *StatusWriteFailed) Unwrap() error { return e.Err }

// Outcome is the result of a single Apply call.
type Outcome struct {
	FinalState     State
	Detail         string
	StatusWriteErr error
	Err            error
}
