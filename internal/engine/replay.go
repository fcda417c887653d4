package engine

import (
	"context"
	"fmt"

	"github.com/roach88/threadview/internal/canon"
	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/protocol"
)

// Replay applies raw wire messages in order to a fresh engine built with
// opts. The same messages always yield the same state fingerprint.
func Replay(ctx context.Context, messages [][]byte, opts ...Option) (*Engine, error) {
	e := New(opts...)
	for i, raw := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.Apply(ctx, protocol.Decode(raw)); err != nil {
			return nil, fmt.Errorf("replay message %d: %w", i, err)
		}
	}
	return e, nil
}

// VerifyJournal re-applies a journaled run to a fresh engine and reports
// every entry whose state fingerprint differs from the journaled one.
func VerifyJournal(ctx context.Context, j *journal.Journal, run string, opts ...Option) ([]journal.Mismatch, error) {
	e := New(opts...)
	return j.Replay(ctx, run, func(ctx context.Context, entry journal.Entry) (string, error) {
		if err := e.Apply(ctx, protocol.Decode(entry.Payload)); err != nil {
			return "", err
		}
		return canon.Fingerprint(canon.DomainState, e.State())
	})
}
