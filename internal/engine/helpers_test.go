package engine

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/testutil"
)

func at(hour int) string {
	return fmt.Sprintf("2019-04-10T%02d:00:00", hour)
}

func comment(id, parent, score int64, published string) model.Comment {
	c := model.Comment{
		ID:          id,
		PostID:      1,
		CreatorID:   7,
		CreatorName: "alice",
		Content:     fmt.Sprintf("comment %d", id),
		Published:   published,
		Score:       score,
		Upvotes:     score,
	}
	if parent != 0 {
		c.ParentID = model.Int64(parent)
	}
	return c
}

func snapshot(comments ...model.Comment) protocol.InitialSnapshot {
	return protocol.InitialSnapshot{
		Post: model.Post{
			ID:            1,
			Name:          "hello",
			CreatorID:     7,
			CreatorName:   "alice",
			CommunityID:   2,
			CommunityName: "main",
			Published:     at(9),
			Score:         3,
			Upvotes:       3,
		},
		Comments: comments,
		Community: model.Community{
			ID:                  2,
			Name:                "main",
			Title:               "Main",
			NumberOfSubscribers: 5,
		},
		Moderators: []model.Moderator{
			{ID: 1, UserID: 7, UserName: "alice", CommunityID: 2, CommunityName: "main", Published: at(8)},
		},
	}
}

// twoCommentThread is the two-comment thread: 2 replies to 1.
func twoCommentThread() protocol.InitialSnapshot {
	return snapshot(
		comment(1, 0, 5, at(10)),
		comment(2, 1, 10, at(11)),
	)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithNow(testutil.NewWallClock(testutil.FixedNow).Now),
		WithRunID("run-test"),
	}
	return New(append(base, opts...)...)
}

func apply(t *testing.T, e *Engine, events ...protocol.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, e.Apply(context.Background(), ev))
	}
}

func shape(f model.Forest) string {
	return f.Shape()
}

func fingerprints(t *testing.T, e *Engine) (string, string) {
	t.Helper()
	state, forest, err := e.Fingerprints()
	require.NoError(t, err)
	return state, forest
}
