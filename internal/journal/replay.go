package journal

import (
	"context"
	"fmt"
)

// Mismatch is a journaled entry whose state fingerprint was not reproduced.
type Mismatch struct {
	Seq  int64
	Op   string
	Want string
	Got  string
}

// ReplayFunc applies one journaled payload and returns the resulting state
// fingerprint.
type ReplayFunc func(ctx context.Context, e Entry) (string, error)

// Replay feeds every entry of run to fn in seq order and compares the state
// fingerprint fn reports with the journaled one.
//
// An empty slice means the run was reproduced exactly.
func (j *Journal) Replay(ctx context.Context, run string, fn ReplayFunc) ([]Mismatch, error) {
	if run == "" {
		return nil, fmt.Errorf("replay: empty run id")
	}

	entries, err := j.Entries(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", run, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("replay %s: no entries", run)
	}

	mismatches := []Mismatch{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := fn(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("replay %s seq %d: %w", run, e.Seq, err)
		}
		if got != e.StateFingerprint {
			mismatches = append(mismatches, Mismatch{Seq: e.Seq, Op: e.Op, Want: e.StateFingerprint, Got: got})
		}
	}
	return mismatches, nil
}
