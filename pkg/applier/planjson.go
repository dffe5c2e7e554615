package applier

import (
	"os"
	"path/filepath"

	"github.com/trbarbour/diskprep/pkg/diskoplan"
	"github.com/trbarbour/diskprep/pkg/env"
)

// PlanJSONFileName is the well-known basename of the persisted canonical
// plan JSON within an Environment's StateDir.
const PlanJSONFileName = "plan.json"

func writePlanJSON(e env.Environment, planJSON []byte) error {
	if err := os.MkdirAll(e.StateDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.StateDir, PlanJSONFileName), planJSON, 0o644)
}

func renderedFilePath(e env.Environment) string {
	return filepath.Join(e.StateDir, diskoplan.RenderedFileName)
}
