// Package cleanup tears down the live md/LVM/dm/loop topology under a
// set of root devices so a fresh GPT write will succeed, walking the
// storage graph leaf-to-root and never consulting plan state — it is
// safe, and idempotent, to re-enter at any time.
package cleanup

import "github.com/trbarbour/diskprep/pkg/storagegraph"

// Mode selects how aggressively Phase C scrubs the root disks.
type Mode string

const (
	ModeWipeSignatures Mode = "wipe-signatures"
	ModeZapOnly        Mode = "zap-only"
	ModeMetadataOnly   Mode = "metadata-only"
)

// Phase identifies which pass of the engine produced a NodeOutcome.
type Phase string

const (
	PhaseTeardown    Phase = "teardown"
	PhaseDescendant  Phase = "descendant-scrub"
	PhaseRootScrub   Phase = "root-scrub"
)

// NodeOutcome is one command's diagnostic snapshot, recorded regardless
// of success so a failed run still tells a full story.
type NodeOutcome struct {
	Phase      Phase
	Kind       storagegraph.Kind
	Identifier string
	Op         string
	Argv       []string
	Exit       int
	StderrTail string
	Err        error
}

func (o NodeOutcome) Failed() bool { return o.Err != nil }

// Report is the per-run result: every NodeOutcome produced across all
// three phases, regardless of whether the step succeeded.
type Report struct {
	Outcomes []NodeOutcome
}

// Failures returns every NodeOutcome whose command failed.
func (r *Report) Failures() []NodeOutcome {
	var out []NodeOutcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) record(o NodeOutcome) {
	r.Outcomes = append(r.Outcomes, o)
}
