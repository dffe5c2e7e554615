// Package env carries the ambient state that diskprep's entrypoints need
// — run mode, state directory, formatter binary name — as an explicit
// value instead of module-level globals.
package env

import "time"

// Mode biases RAID level and mkfs choices made by the planner.
type Mode string

const (
	ModeFast    Mode = "fast"
	ModeCareful Mode = "careful"
)

// Environment is threaded explicitly through disk.GetDisks,
// storagegraph.Build, cleanup.Run and applier.Apply (planner.Plan takes a
// planner.Config instead). Nothing in pkg/planner, pkg/cleanup or
// pkg/applier reads global state; everything it needs comes from here.
type Environment struct {
	// Mode biases RAID/mkfs decisions (see planner.Config.Mode, which is
	// usually derived from this field).
	Mode Mode

	// StateDir is the runtime state directory: plan JSON, the rendered
	// declarative file, and the status record are written here.
	StateDir string

	// FormatterCmd is the name of the external declarative formatter
	// binary (default "disko").
	FormatterCmd string

	// PlanStoreDB is the path to the sqlite database backing
	// pkg/planstore. Empty disables plan history / idempotency
	// short-circuiting (every Apply runs Formatting).
	PlanStoreDB string

	// Now returns the current time; overridable in tests. Defaults to
	// time.Now when the zero value is used via NowOrDefault.
	Now func() time.Time
}

// NowOrDefault returns e.Now() if set, else time.Now().
func (e Environment) NowOrDefault() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

const (
	DefaultFormatterCmd = "disko"
	DefaultStateDir     = "/var/lib/diskprep"
)

// Default returns an Environment with the package defaults filled in.
func Default() Environment {
	return Environment{
		Mode:         ModeFast,
		StateDir:     DefaultStateDir,
		FormatterCmd: DefaultFormatterCmd,
	}
}
