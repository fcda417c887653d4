package journal

import (
	"context"
	"fmt"
	"strings"
)

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	Run     string
	Op      string
	Kind    string
	Outcome string
	MinSeq  int64 // only entries with seq >= MinSeq
	Limit   int   // at most Limit entries; 0 means no limit
}

const entryColumns = `run_id, seq, op, kind, outcome, revision, sort_mode, payload, state_fingerprint, forest_fingerprint`

// Query returns the entries matching f, grouped by run in the order runs were
// first recorded, then by seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (j *Journal) Query(ctx context.Context, f Filter) ([]Entry, error) {
	query, args, err := compileFilter(f)
	if err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(
			&e.Run, &e.Seq, &e.Op, &e.Kind, &e.Outcome, &e.Revision, &e.SortMode,
			&payload, &e.StateFingerprint, &e.ForestFingerprint,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// compileFilter turns f into parameterized SQL. Values are always bound as
// parameters, never interpolated, and every query has a total order.
func compileFilter(f Filter) (string, []any, error) {
	if f.MinSeq < 0 {
		return "", nil, fmt.Errorf("query entries: negative min seq %d", f.MinSeq)
	}
	if f.Limit < 0 {
		return "", nil, fmt.Errorf("query entries: negative limit %d", f.Limit)
	}

	var (
		where []string
		args  []any
	)
	eq := func(column, value string) {
		if value != "" {
			where = append(where, column+" = ?")
			args = append(args, value)
		}
	}
	eq("run_id", f.Run)
	eq("op", f.Op)
	eq("kind", f.Kind)
	eq("outcome", f.Outcome)
	if f.MinSeq > 0 {
		where = append(where, "seq >= ?")
		args = append(args, f.MinSeq)
	}

	var b strings.Builder
	b.WriteString("SELECT " + entryColumns + " FROM reconciliations r")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY (SELECT MIN(rowid) FROM reconciliations WHERE run_id = r.run_id) ASC, seq ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	return b.String(), args, nil
}
