package journal

import (
	"context"
	"fmt"
)

// Entry is one journaled reconciliation.
type Entry struct {
	Run               string
	Seq               int64
	Op                string
	Kind              string
	Outcome           string
	Revision          int64
	SortMode          string
	Payload           []byte
	StateFingerprint  string
	ForestFingerprint string
}

// Record appends an entry. Writing the same (run, seq) twice is a no-op.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Run == "" {
		return fmt.Errorf("record seq %d: empty run id", e.Seq)
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO reconciliations
		(run_id, seq, op, kind, outcome, revision, sort_mode, payload, state_fingerprint, forest_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		e.Run,
		e.Seq,
		e.Op,
		e.Kind,
		e.Outcome,
		e.Revision,
		e.SortMode,
		string(e.Payload),
		e.StateFingerprint,
		e.ForestFingerprint,
	)
	if err != nil {
		return fmt.Errorf("record seq %d: %w", e.Seq, err)
	}
	return nil
}

// Entries returns the entries of run ordered by seq. An empty run returns the
// entries of every run, grouped by run in the order runs were first recorded.
//
// Returns an empty slice (not nil) if nothing matches.
func (j *Journal) Entries(ctx context.Context, run string) ([]Entry, error) {
	return j.Query(ctx, Filter{Run: run})
}

// Runs lists run ids in the order they were first recorded.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id
		FROM reconciliations
		GROUP BY run_id
		ORDER BY MIN(rowid) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
