package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/urfave/cli"

	"github.com/trbarbour/diskprep/pkg/applier"
	"github.com/trbarbour/diskprep/pkg/cleanup"
	"github.com/trbarbour/diskprep/pkg/disk"
	"github.com/trbarbour/diskprep/pkg/diskoplan"
	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/log"
	"github.com/trbarbour/diskprep/pkg/metrics"
	"github.com/trbarbour/diskprep/pkg/planner"
)

// MetricsFileName is where a run's Prometheus textfile-collector output
// is written under the environment's state directory.
const MetricsFileName = "metrics.prom"

// newRunMetrics builds a Metrics bound to a fresh, isolated registry —
// diskprep is a one-shot CLI, so there is no long-lived registry to share
// across invocations.
func newRunMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// writeRunMetrics dumps m to the textfile-collector path under e.StateDir.
// A write failure is logged but never fails the command it's attached to.
func writeRunMetrics(e env.Environment, m *metrics.Metrics) {
	path := filepath.Join(e.StateDir, MetricsFileName)
	if err := m.WriteTextfile(path); err != nil {
		log.Logger.Warnw("could not write metrics textfile", "path", path, "error", err)
		return
	}
	fmt.Printf("wrote metrics to %s\n", path)
}

// probeRAMBytes is the caller-side RAM probe the planner's pure Plan
// function depends on for swap_size=auto; it never probes RAM itself.
func probeRAMBytes() uint64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return v.Total
}

func loadAndPlan(c *cli.Context) (*planner.Plan, fileConfig, error) {
	fc, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, fc, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := fc.toEnvironment()
	inv, err := disk.GetDisks(ctx, e)
	if err != nil {
		return nil, fc, fmt.Errorf("inventorying disks: %w", err)
	}

	plan, perr := planner.Plan(inv, fc.toPlannerConfig(probeRAMBytes()))
	if perr != nil {
		return nil, fc, perr
	}
	return plan, fc, nil
}

func cmdPlanCommand() cli.Command {
	return cli.Command{
		Name:  "plan",
		Usage: "inventory disks and render a storage plan without applying it",
		Action: func(c *cli.Context) error {
			plan, fc, err := loadAndPlan(c)
			if err != nil {
				return err
			}

			e := fc.toEnvironment()
			path, err := diskoplan.RenderToFile(e, plan)
			if err != nil {
				return err
			}

			fmt.Printf("rendered plan to %s\n", path)
			fmt.Printf("volume groups: %d, logical volumes: %d\n", len(plan.VolumeGroups), len(plan.LogicalVolumes))
			return nil
		},
	}
}

func cmdApplyCommand() cli.Command {
	return cli.Command{
		Name:  "apply",
		Usage: "plan and apply a storage layout to the local disks",
		Action: func(c *cli.Context) error {
			plan, fc, err := loadAndPlan(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			e := fc.toEnvironment()
			m := newRunMetrics()
			outcome := applier.Apply(ctx, e, plan, m)
			writeRunMetrics(e, m)
			fmt.Printf("applier finished in state %s: %s\n", outcome.FinalState, outcome.Detail)
			if outcome.Err != nil {
				return outcome.Err
			}
			return nil
		},
	}
}

func cmdCleanupCommand() cli.Command {
	var mode string
	return cli.Command{
		Name:      "cleanup",
		Usage:     "tear down the md/LVM/dm/loop topology under the given root devices",
		ArgsUsage: "<device> [<device> ...]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "mode", Usage: "wipe-signatures|zap-only|metadata-only", Value: string(cleanup.ModeWipeSignatures), Destination: &mode},
		},
		Action: func(c *cli.Context) error {
			roots := []string(c.Args())
			if len(roots) == 0 {
				return cli.NewExitError("cleanup requires at least one root device", 1)
			}

			fc, err := loadConfig(c.GlobalString("config"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			e := fc.toEnvironment()
			m := newRunMetrics()
			report, err := cleanup.Run(ctx, e, roots, cleanup.Mode(mode), m)
			writeRunMetrics(e, m)
			if err != nil {
				return err
			}

			fmt.Printf("cleanup ran %d steps, %d failed\n", len(report.Outcomes), len(report.Failures()))
			for _, f := range report.Failures() {
				fmt.Fprintf(os.Stderr, "  %s %s %s: %v\n", f.Phase, f.Kind, f.Identifier, f.Err)
			}
			return nil
		},
	}
}

func cmdDetectCommand() cli.Command {
	return cli.Command{
		Name:  "detect",
		Usage: "print the currently detected disk inventory",
		Action: func(c *cli.Context) error {
			fc, err := loadConfig(c.GlobalString("config"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			inv, err := disk.GetDisks(ctx, fc.toEnvironment())
			if err != nil {
				return err
			}

			for _, d := range inv {
				fmt.Printf("%s  serial=%s  size=%d  rotational=%v  bus=%s\n", d.Path, d.Serial, d.SizeBytes, d.Rotational, d.Bus)
			}
			return nil
		},
	}
}
