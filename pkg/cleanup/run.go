package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/log"
	"github.com/trbarbour/diskprep/pkg/metrics"
	"github.com/trbarbour/diskprep/pkg/process"
	"github.com/trbarbour/diskprep/pkg/storagegraph"
)

// Run builds a fresh storage graph rooted at roots and walks Phase A
// (teardown), Phase B (descendant metadata scrub), and Phase C (root
// scrub) in order. It never consults plan state, so running it twice in
// a row is well-defined: the second pass simply finds fewer descendants.
// m may be nil, in which case no metrics are recorded.
func Run(ctx context.Context, e env.Environment, roots []string, mode Mode, m *metrics.Metrics) (*Report, error) {
	start := e.NowOrDefault()

	g, err := storagegraph.Build(ctx, e, roots)
	if err != nil {
		return nil, fmt.Errorf("cleanup: building storage graph: %w", err)
	}

	order := g.TeardownOrder()
	report := &Report{}

	phaseA(ctx, g, order, report)
	phaseB(ctx, g, order, report)
	phaseC(ctx, roots, mode, report)

	if m != nil {
		for _, o := range report.Outcomes {
			m.CleanupNodesVisited.Inc()
			if o.Failed() {
				m.CleanupNodesFailed.Inc()
			}
		}
		m.CleanupDuration.Observe(e.NowOrDefault().Sub(start).Seconds())
	}

	return report, nil
}

// run executes argv, recording a NodeOutcome in report regardless of the
// result, and returns the captured output and the command's error. A
// non-zero exit or start failure is also logged as a warning; the phase
// walkers ignore the returned values, so no failure, partprobe's
// included, ever stops the walk.
func run(ctx context.Context, report *Report, phase Phase, kind storagegraph.Kind, identifier, op string, argv []string) ([]byte, error) {
	p, err := process.New(process.WithCommand(argv...))
	if err != nil {
		report.record(NodeOutcome{Phase: phase, Kind: kind, Identifier: identifier, Op: op, Argv: argv, Exit: -1, Err: err})
		log.Logger.Warnw("cleanup: command construction failed", "phase", phase, "kind", kind, "identifier", identifier, "op", op, "error", err)
		return nil, err
	}

	out, runErr := p.StartAndWaitForCombinedOutput(ctx)

	var cmdErr *process.CommandError
	exit := 0
	stderrTail := ""
	if runErr != nil {
		exit = -1
		if errors.As(runErr, &cmdErr) {
			exit = cmdErr.Exit
			stderrTail = cmdErr.StderrTail
		}
	}

	report.record(NodeOutcome{
		Phase: phase, Kind: kind, Identifier: identifier, Op: op, Argv: argv,
		Exit: exit, StderrTail: stderrTail, Err: runErr,
	})

	if runErr != nil {
		log.Logger.Warnw("cleanup: command failed, continuing walk", "phase", phase, "kind", kind, "identifier", identifier, "op", op, "error", runErr)
	}

	return out, runErr
}
