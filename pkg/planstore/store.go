// Package planstore persists the history of applied storage plans in a
// sqlite3 database, so the applier state machine can short-circuit an
// apply run when the requested plan already matches the last
// successfully applied one (the idempotency check in the apply
// operation).
package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trbarbour/diskprep/pkg/log"
	"github.com/trbarbour/diskprep/pkg/sqlite"
)

const TableNameAppliedPlans = "applied_plans"

const (
	ColumnUnixSeconds = "unix_seconds"
	ColumnPlanHash     = "plan_hash"
	ColumnPlanJSON     = "plan_json"
	ColumnState        = "state"
	ColumnDetail       = "detail"
)

// Record is one row of applied-plan history: the plan that was rendered,
// its content hash, the terminal (or in-flight) applier state it
// reached, and a free-form detail string (an error message, or "").
type Record struct {
	UnixSeconds int64  `json:"unix_seconds"`
	PlanHash    string `json:"plan_hash"`
	PlanJSON    []byte `json:"plan_json"`
	State       string `json:"state"`
	Detail      string `json:"detail"`
}

func CreateTableAppliedPlans(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	%s INTEGER NOT NULL,
	%s TEXT NOT NULL PRIMARY KEY,
	%s BLOB NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT
);`, TableNameAppliedPlans,
		ColumnUnixSeconds,
		ColumnPlanHash,
		ColumnPlanJSON,
		ColumnState,
		ColumnDetail,
	))
	return err
}

// Put records the outcome of rendering/applying a plan, keyed by its
// hash. A later Put with the same hash replaces the earlier row: only
// the most recent outcome for a given plan content is kept.
func Put(ctx context.Context, db *sql.DB, rec Record) error {
	log.Logger.Debugw("recording applied plan", "planHash", rec.PlanHash, "state", rec.State)

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
INSERT OR REPLACE INTO %s (%s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?);
`, TableNameAppliedPlans, ColumnUnixSeconds, ColumnPlanHash, ColumnPlanJSON, ColumnState, ColumnDetail),
		rec.UnixSeconds, rec.PlanHash, rec.PlanJSON, rec.State, rec.Detail,
	)
	return err
}

// Get returns the record for planHash, or nil if none exists.
func Get(ctx context.Context, db *sql.DB, planHash string) (*Record, error) {
	row := db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = ?;
`, ColumnUnixSeconds, ColumnPlanHash, ColumnPlanJSON, ColumnState, ColumnDetail, TableNameAppliedPlans, ColumnPlanHash),
		planHash,
	)

	var rec Record
	if err := row.Scan(&rec.UnixSeconds, &rec.PlanHash, &rec.PlanJSON, &rec.State, &rec.Detail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Latest returns the most recently recorded outcome across all plans, or
// nil if the store is empty. The applier uses this to decide whether the
// currently requested plan is identical to the last one it successfully
// applied.
func Latest(ctx context.Context, db *sql.DB) (*Record, error) {
	row := db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s, %s, %s, %s, %s FROM %s ORDER BY %s DESC LIMIT 1;
`, ColumnUnixSeconds, ColumnPlanHash, ColumnPlanJSON, ColumnState, ColumnDetail, TableNameAppliedPlans, ColumnUnixSeconds),
	)

	var rec Record
	if err := row.Scan(&rec.UnixSeconds, &rec.PlanHash, &rec.PlanJSON, &rec.State, &rec.Detail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Purge deletes rows older than before, returning the number removed.
func Purge(ctx context.Context, db *sql.DB, before time.Time) (int, error) {
	log.Logger.Debugw("purging applied plan history", "before", before)

	rs, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s < ?;`, TableNameAppliedPlans, ColumnUnixSeconds),
		before.Unix(),
	)
	if err != nil {
		return 0, err
	}

	affected, err := rs.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// MarshalPlan is a thin wrapper so callers don't need to import
// encoding/json just to build a Record.
func MarshalPlan(v any) ([]byte, error) {
	return json.Marshal(v)
}

// OpenDefault opens (creating if needed) the sqlite-backed plan store at
// path, applying schema migrations.
func OpenDefault(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if err := CreateTableAppliedPlans(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
