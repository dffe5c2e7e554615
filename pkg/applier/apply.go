package applier

import (
	"context"
	"errors"
	"fmt"

	"github.com/trbarbour/diskprep/pkg/cleanup"
	"github.com/trbarbour/diskprep/pkg/diskoplan"
	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/file"
	"github.com/trbarbour/diskprep/pkg/log"
	"github.com/trbarbour/diskprep/pkg/metrics"
	"github.com/trbarbour/diskprep/pkg/planner"
	"github.com/trbarbour/diskprep/pkg/planstore"
	"github.com/trbarbour/diskprep/pkg/process"
)

// RootMountpoint is where the formatter is told to mount the new root
// filesystem.
const RootMountpoint = "/mnt"

// Apply drives plan through the state machine described in spec §4.6:
// Ready → RenderingPlan → PreCleanup → Formatting → PostApply →
// AppliedSuccess, with a PostFailureCleanup retry loop on a formatter
// failure and an idempotency short-circuit when the plan is already in
// effect. m may be nil, in which case no metrics are recorded.
func Apply(ctx context.Context, e env.Environment, plan *planner.Plan, m *metrics.Metrics) Outcome {
	state := StateReady
	start := e.NowOrDefault()
	if m != nil {
		defer func() { m.ApplyDuration.Observe(e.NowOrDefault().Sub(start).Seconds()) }()
		m.PlannedArrays.Set(float64(len(plan.Arrays)))
		m.PlannedLogicalVolumes.Set(float64(len(plan.LogicalVolumes)))
	}
	setState := func(s State) {
		state = s
		if m != nil {
			m.SetState(AllStates, string(s))
		}
	}
	setState(StateReady)

	hash, planJSON, err := planHash(plan)
	if err != nil {
		return failWith(e, state, fmt.Errorf("applier: hashing plan: %w", err), m)
	}

	if e.PlanStoreDB != "" {
		if skip, detail := checkIdempotency(ctx, e, plan, hash); skip {
			return succeedWith(e, detail, m)
		}
	}

	setState(StateRenderingPlan)
	if _, err := diskoplan.RenderToFile(e, plan); err != nil {
		return failWith(e, state, fmt.Errorf("applier: rendering plan: %w", err), m)
	}
	if err := writePlanJSON(e, planJSON); err != nil {
		return failWith(e, state, fmt.Errorf("applier: persisting plan json: %w", err), m)
	}

	setState(StatePreCleanup)
	roots := diskPaths(plan)
	if _, err := cleanup.Run(ctx, e, roots, cleanup.ModeWipeSignatures, m); err != nil {
		return failWith(e, state, fmt.Errorf("applier: pre-cleanup: %w", err), m)
	}

	setState(StateFormatting)
	renderedPath := renderedFilePath(e)
	ffErr := runFormatter(ctx, e, renderedPath, 1, m)
	if ffErr != nil {
		log.Logger.Warnw("applier: formatter failed, running post-failure cleanup and retrying once", "error", ffErr)
		setState(StatePostFailureCleanup)
		if _, err := cleanup.Run(ctx, e, roots, cleanup.ModeWipeSignatures, m); err != nil {
			return failWith(e, state, fmt.Errorf("applier: post-failure cleanup: %w", err), m)
		}

		setState(StateFormatting)
		if ffErr = runFormatter(ctx, e, renderedPath, 2, m); ffErr != nil {
			return failWith(e, state, ffErr, m)
		}
	}

	setState(StatePostApply)
	if err := runPostApplyCommands(ctx, plan); err != nil {
		return failWith(e, state, err, m)
	}

	outcome := succeedWith(e, DetailAutoApplied, m)

	if e.PlanStoreDB != "" {
		recordApplied(ctx, e, hash, planJSON, StatusApplied, DetailAutoApplied)
	}

	return outcome
}

func checkIdempotency(ctx context.Context, e env.Environment, plan *planner.Plan, hash string) (bool, string) {
	db, err := planstore.OpenDefault(ctx, e.PlanStoreDB)
	if err != nil {
		log.Logger.Warnw("applier: could not open plan store, skipping idempotency check", "error", err)
		return false, ""
	}
	defer db.Close()

	last, err := planstore.Latest(ctx, db)
	if err != nil || last == nil || last.PlanHash != hash || last.State != StatusApplied {
		return false, ""
	}

	same, err := alreadyApplied(ctx, e, plan)
	if err != nil || !same {
		return false, ""
	}

	consistent, err := verifyPostApplyState(ctx, plan)
	if err != nil || !consistent {
		return false, ""
	}

	return true, DetailExistingStorage
}

func runFormatter(ctx context.Context, e env.Environment, renderedPath string, attempt int, m *metrics.Metrics) error {
	formatterCmd := e.FormatterCmd
	if formatterCmd == "" {
		formatterCmd = env.DefaultFormatterCmd
	}

	if resolved, err := file.LocateExecutable(formatterCmd); err == nil {
		formatterCmd = resolved
	} else {
		log.Logger.Warnw("applier: could not resolve formatter on PATH, invoking by name", "formatter_cmd", formatterCmd, "error", err)
	}

	caps, err := probeFormatterCapabilities(ctx, formatterCmd)
	if err != nil {
		if m != nil {
			m.FormatterInvocations.WithLabelValues("failure").Inc()
		}
		return err
	}

	out, err := invokeFormatter(ctx, formatterCmd, renderedPath, RootMountpoint, caps)
	if err != nil {
		if m != nil {
			m.FormatterInvocations.WithLabelValues("failure").Inc()
		}
		var cmdErr *process.CommandError
		exit := -1
		stderr := string(out)
		if errors.As(err, &cmdErr) {
			exit = cmdErr.Exit
			stderr = cmdErr.StderrTail
		}
		return &FormatterFailed{Attempt: attempt, Argv: []string{formatterCmd}, Exit: exit, Stderr: stderr}
	}
	if m != nil {
		m.FormatterInvocations.WithLabelValues("success").Inc()
	}
	return nil
}

func runPostApplyCommands(ctx context.Context, plan *planner.Plan) error {
	for _, cmd := range plan.PostApplyCommands {
		argv := []string{"chmod", cmd.Mode, cmd.Path}
		p, err := process.New(process.WithCommand(argv...))
		if err != nil {
			return &PostApplyFailed{Description: cmd.Description, Argv: argv, Exit: -1, Stderr: err.Error()}
		}

		out, err := p.StartAndWaitForCombinedOutput(ctx)
		if err != nil {
			var cmdErr *process.CommandError
			exit := -1
			stderr := string(out)
			if errors.As(err, &cmdErr) {
				exit = cmdErr.Exit
				stderr = cmdErr.StderrTail
			}
			return &PostApplyFailed{Description: cmd.Description, Argv: argv, Exit: exit, Stderr: stderr}
		}
	}
	return nil
}

func recordApplied(ctx context.Context, e env.Environment, hash string, planJSON []byte, state, detail string) {
	db, err := planstore.OpenDefault(ctx, e.PlanStoreDB)
	if err != nil {
		log.Logger.Warnw("applier: could not open plan store to record outcome", "error", err)
		return
	}
	defer db.Close()

	rec := planstore.Record{
		UnixSeconds: e.NowOrDefault().Unix(),
		PlanHash:    hash,
		PlanJSON:    planJSON,
		State:       state,
		Detail:      detail,
	}
	if err := planstore.Put(ctx, db, rec); err != nil {
		log.Logger.Warnw("applier: could not record applied plan", "error", err)
	}
}

func diskPaths(plan *planner.Plan) []string {
	var out []string
	for _, d := range plan.Disks {
		out = append(out, d.Path)
	}
	return out
}

func succeedWith(e env.Environment, detail string, m *metrics.Metrics) Outcome {
	if m != nil {
		m.SetState(AllStates, string(StateAppliedSuccess))
	}
	o := Outcome{FinalState: StateAppliedSuccess, Detail: detail}
	if err := writeStatus(e.StateDir, StatusRecord{State: StatusApplied, Detail: detail}); err != nil {
		o.StatusWriteErr = &StatusWriteFailed{Err: err}
	}
	return o
}

func failWith(e env.Environment, state State, err error, m *metrics.Metrics) Outcome {
	if m != nil {
		m.SetState(AllStates, string(StateAppliedFailed))
	}
	o := Outcome{FinalState: StateAppliedFailed, Detail: err.Error(), Err: err}
	if writeErr := writeStatus(e.StateDir, StatusRecord{State: StatusFailed, Detail: err.Error()}); writeErr != nil {
		o.StatusWriteErr = &StatusWriteFailed{Err: writeErr}
	}
	log.Logger.Errorw("applier: apply failed", "state", state, "error", err)
	return o
}
