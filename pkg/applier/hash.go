package applier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/trbarbour/diskprep/pkg/planner"
)

// canonicalPlanJSON renders plan as JSON. planner.Plan contains no maps,
// so encoding/json's stable struct-field order and the planner's own
// deterministic slice construction together already give a canonical
// encoding — no separate key-sorting pass is needed the way diskoplan's
// tagged-variant tree requires one.
func canonicalPlanJSON(plan *planner.Plan) ([]byte, error) {
	out, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("applier: marshaling plan: %w", err)
	}
	return out, nil
}

// planHash returns the hex-encoded sha256 of the plan's canonical JSON,
// the key planstore uses to recognize a previously applied plan.
func planHash(plan *planner.Plan) (string, []byte, error) {
	out, err := canonicalPlanJSON(plan)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(out)
	return hex.EncodeToString(sum[:]), out, nil
}
