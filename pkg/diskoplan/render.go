package diskoplan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/planner"
)

// RenderedFileName is the well-known basename of the rendered declarative
// file within an Environment's StateDir.
const RenderedFileName = "disko-plan.json"

// RenderToFile builds a Document from plan and writes its canonical JSON
// encoding to e.StateDir/disko-plan.json, creating StateDir if needed.
func RenderToFile(e env.Environment, plan *planner.Plan) (string, error) {
	doc, err := Build(plan)
	if err != nil {
		return "", fmt.Errorf("diskoplan: building document: %w", err)
	}

	out, err := Encode(doc)
	if err != nil {
		return "", fmt.Errorf("diskoplan: encoding document: %w", err)
	}

	if err := os.MkdirAll(e.StateDir, 0o755); err != nil {
		return "", fmt.Errorf("diskoplan: creating state dir %q: %w", e.StateDir, err)
	}

	path := filepath.Join(e.StateDir, RenderedFileName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("diskoplan: writing %q: %w", path, err)
	}

	return path, nil
}
