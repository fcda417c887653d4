package engine

import (
	"context"
	"errors"

	"github.com/roach88/threadview/internal/canon"
	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/store"
)

// Outcome is what one event did to the view.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeReplaced Outcome = "replaced"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error_event"
	OutcomeIgnored  Outcome = "ignored"
)

// Apply reconciles one event. It implements stream.Sink.
//
// Apply returns nil for every event it can handle, including error events
// and patches on missing records; those are logged and passed to OnFailure
// handlers. It returns ErrClosed once the engine is closed.
func (e *Engine) Apply(ctx context.Context, ev protocol.Event) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	outcome, failure := e.reconcileLocked(ev)

	var (
		view    View
		rebuilt bool
	)
	if outcome != OutcomeError && outcome != OutcomeIgnored {
		view = e.rebuildLocked()
		rebuilt = true
	}

	var entry *journal.Entry
	if e.journal != nil {
		entry = e.entryLocked(ev, outcome)
	}
	e.mu.Unlock()

	e.logger.Debug("event reconciled",
		"op", ev.Op(),
		"kind", ev.Kind(),
		"outcome", outcome,
		"revision", e.Revision(),
	)

	if entry != nil {
		if err := e.journal.Record(ctx, *entry); err != nil {
			e.logger.Warn("journal record failed", "seq", entry.Seq, "op", entry.Op, "error", err)
		}
	}
	if failure != nil {
		e.notifyFailure(failure)
	}
	if rebuilt {
		e.notifyUpdate(view)
	}
	return nil
}

// reconcileLocked mutates the store for ev. It returns the outcome and, for
// non-fatal failures, the error to report.
func (e *Engine) reconcileLocked(ev protocol.Event) (Outcome, error) {
	switch ev := ev.(type) {
	case protocol.InitialSnapshot:
		dropped, err := e.store.ReplaceAll(ev.Post, ev.Comments, ev.Community, ev.Moderators)
		if err != nil {
			return e.storeFailure(ev.Op(), 0, err)
		}
		for _, id := range dropped {
			e.logger.Warn("duplicate comment in snapshot", "code", ErrCodeDuplicateComment, "comment_id", id)
		}
		e.cache.purge()
		e.logger.Info("snapshot applied",
			"post_id", ev.Post.ID,
			"comments", e.store.Len(),
			"moderators", len(ev.Moderators),
		)
		return OutcomeApplied, nil

	case protocol.CommentCreated:
		replaced, err := e.store.InsertComment(ev.Comment)
		if err != nil {
			return e.storeFailure(ev.Op(), ev.Comment.ID, err)
		}
		if replaced {
			e.logger.Warn("created comment already present, updated in place",
				"code", ErrCodeDuplicateComment,
				"comment_id", ev.Comment.ID,
			)
			return OutcomeReplaced, nil
		}
		return OutcomeApplied, nil

	case protocol.CommentEdited:
		in := ev.Comment
		err := e.store.PatchComment(in.ID, func(c *model.Comment) {
			c.Content = in.Content
			c.Updated = in.Clone().Updated
		})
		if err != nil {
			return e.storeFailure(ev.Op(), in.ID, err)
		}
		return OutcomeApplied, nil

	case protocol.CommentVoted:
		in := ev.Comment
		err := e.store.PatchComment(in.ID, func(c *model.Comment) {
			c.Score = in.Score
			c.Upvotes = in.Upvotes
			c.Downvotes = in.Downvotes
			// A null my_vote means the caller's vote did not change.
			if in.MyVote != nil {
				c.MyVote = model.Int64(*in.MyVote)
			}
		})
		if err != nil {
			return e.storeFailure(ev.Op(), in.ID, err)
		}
		return OutcomeApplied, nil

	case protocol.PostVoted:
		in := ev.Post.Clone()
		err := e.store.PatchPost(func(p *model.Post) {
			p.Score = in.Score
			p.Upvotes = in.Upvotes
			p.Downvotes = in.Downvotes
			p.MyVote = in.MyVote
		})
		if err != nil {
			return e.storeFailure(ev.Op(), 0, err)
		}
		return OutcomeApplied, nil

	case protocol.PostEdited:
		in := ev.Post.Clone()
		err := e.store.PatchPost(func(p *model.Post) {
			*p = in
		})
		if err != nil {
			return e.storeFailure(ev.Op(), 0, err)
		}
		return OutcomeApplied, nil

	case protocol.CommunityEdited:
		in := ev.Community.Clone()
		err := e.store.PatchCommunity(func(c *model.Community) {
			*c = in
		})
		if err != nil {
			return e.storeFailure(ev.Op(), 0, err)
		}
		// The post carries the community id and name denormalized.
		if err := e.store.PatchPost(func(p *model.Post) {
			p.CommunityID = in.ID
			p.CommunityName = in.Name
		}); err != nil {
			e.logger.Warn("community edited without a post", "error", err)
		}
		return OutcomeApplied, nil

	case protocol.CommunityFollowed:
		in := ev.Community
		err := e.store.PatchCommunity(func(c *model.Community) {
			c.Subscribed = in.Subscribed
			c.NumberOfSubscribers = in.NumberOfSubscribers
		})
		if err != nil {
			return e.storeFailure(ev.Op(), 0, err)
		}
		return OutcomeApplied, nil

	case protocol.ErrorEvent:
		failure := newErrorEvent(ev)
		e.logger.Warn("error event", "code", failure.Code, "op", ev.Operation, "error", failure.Message)
		return OutcomeError, failure

	default:
		e.logger.Debug("unknown operation ignored", "op", ev.Op())
		return OutcomeIgnored, nil
	}
}

// storeFailure turns a store error into an outcome. Only NotFound reaches
// here in practice: Apply rejects events once the store is invalidated.
func (e *Engine) storeFailure(op protocol.Op, commentID int64, err error) (Outcome, error) {
	if errors.Is(err, store.ErrNotFound) {
		failure := newNotFound(op, commentID, err)
		e.logger.Warn("patch target missing", "code", failure.Code, "op", op, "comment_id", commentID)
		return OutcomeNotFound, failure
	}
	e.logger.Warn("store rejected event", "op", op, "error", err)
	return OutcomeIgnored, nil
}

// entryLocked builds the journal entry for ev, fingerprinting the state as it
// is right after reconciliation.
func (e *Engine) entryLocked(ev protocol.Event, outcome Outcome) *journal.Entry {
	entry := &journal.Entry{
		Run:      e.run,
		Seq:      e.seq.Next(),
		Op:       string(ev.Op()),
		Kind:     ev.Kind().String(),
		Outcome:  string(outcome),
		Revision: e.revisions.Current(),
		SortMode: e.mode.String(),
	}

	raw, err := protocol.Encode(ev)
	if err == nil {
		raw, err = canon.Canonicalize(raw)
	}
	if err != nil {
		e.logger.Warn("journal payload encoding failed", "seq", entry.Seq, "error", err)
		raw = []byte("{}")
	}
	entry.Payload = raw

	state, forest, err := e.fingerprintsLocked()
	if err != nil {
		e.logger.Warn("journal fingerprint failed", "seq", entry.Seq, "error", err)
	}
	entry.StateFingerprint = state
	entry.ForestFingerprint = forest
	return entry
}
