package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/rank"
)

func TestEngine_New(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, model.SortHot, e.SortMode())
	assert.NotNil(t, e.Forest())
	assert.Empty(t, e.Forest())
	assert.Equal(t, int64(0), e.Revision())
	_, ok := e.Post()
	assert.False(t, ok)
	assert.Equal(t, "run-test", e.RunID())
	require.NoError(t, e.Wait())
}

func TestEngine_NewFallsBackOnBadOptions(t *testing.T) {
	e := newTestEngine(t,
		WithSortMode(model.SortMode(42)),
		WithRankConfig(rank.Config{Scale: 1, Offset: 3, Gravity: -1}),
	)
	assert.Equal(t, model.SortHot, e.SortMode())
	assert.Equal(t, rank.DefaultConfig, e.rankCfg)
}

func TestEngine_TopSortsChildrenUnderParent(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortTop))
	apply(t, e, twoCommentThread())

	assert.Equal(t, "1[2]", shape(e.Forest()))
	assert.Equal(t, int64(1), e.Revision())
}

func TestEngine_CreatedCommentJoinsRoots(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortTop))
	apply(t, e, twoCommentThread())
	apply(t, e, protocol.CommentCreated{Comment: comment(3, 0, 1, at(11))})

	assert.Equal(t, "1[2],3", shape(e.Forest()))

	var ids []int64
	for _, c := range e.Comments() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids, "new comments are prepended")
}

func TestEngine_EditMissingCommentIsNotFound(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())
	before, _ := fingerprints(t, e)

	var failures []error
	e.OnFailure(func(err error) { failures = append(failures, err) })

	edit := comment(99, 0, 0, at(12))
	edit.Content = "ghost"
	require.NoError(t, e.Apply(context.Background(), protocol.CommentEdited{Comment: edit}))

	after, _ := fingerprints(t, e)
	assert.Equal(t, before, after)
	require.Len(t, failures, 1)
	assert.True(t, IsNotFound(failures[0]))

	var ee *Error
	require.ErrorAs(t, failures[0], &ee)
	assert.Equal(t, int64(99), ee.CommentID)
	assert.Equal(t, protocol.OpEditComment, ee.Op)
}

func TestEngine_SnapshotIdempotent(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())
	state1, forest1 := fingerprints(t, e)

	apply(t, e, twoCommentThread())
	state2, forest2 := fingerprints(t, e)

	assert.Equal(t, state1, state2)
	assert.Equal(t, forest1, forest2)
}

func TestEngine_SnapshotReplacesEverything(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread(), protocol.CommentCreated{Comment: comment(3, 0, 1, at(11))})
	apply(t, e, snapshot(comment(7, 0, 1, at(10))))

	assert.Equal(t, "7", shape(e.Forest()))
	assert.Len(t, e.Comments(), 1)
}

func TestEngine_ReplayDeterministic(t *testing.T) {
	events := []protocol.Event{
		twoCommentThread(),
		protocol.CommentCreated{Comment: comment(3, 1, 4, at(11))},
		protocol.CommentVoted{Comment: comment(2, 1, 12, at(11))},
		protocol.PostVoted{Post: model.Post{ID: 1, Score: 9, Upvotes: 10, Downvotes: 1}},
		protocol.ErrorEvent{Operation: protocol.OpEditPost, Message: "no"},
	}

	run := func() (string, string) {
		e := newTestEngine(t)
		apply(t, e, events...)
		return fingerprints(t, e)
	}
	s1, f1 := run()
	s2, f2 := run()
	assert.Equal(t, s1, s2)
	assert.Equal(t, f1, f2)
}

func TestEngine_CommentEditedPatchesContentOnly(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())

	edit := comment(2, 1, 999, at(12))
	edit.Content = "edited"
	edit.Updated = model.String(at(12))
	apply(t, e, protocol.CommentEdited{Comment: edit})

	n, ok := e.Forest().Find(2)
	require.True(t, ok)
	assert.Equal(t, "edited", n.Comment.Content)
	require.NotNil(t, n.Comment.Updated)
	assert.Equal(t, at(12), *n.Comment.Updated)
	assert.Equal(t, int64(10), n.Comment.Score, "score is not part of an edit")
	assert.Equal(t, at(11), n.Comment.Published)
}

func TestEngine_CommentVotedKeepsMyVoteWhenNull(t *testing.T) {
	e := newTestEngine(t)
	start := comment(1, 0, 5, at(10))
	start.MyVote = model.Int64(1)
	apply(t, e, snapshot(start))

	vote := comment(1, 0, 6, at(10))
	vote.Upvotes = 8
	vote.Downvotes = 2
	vote.MyVote = nil
	apply(t, e, protocol.CommentVoted{Comment: vote})

	n, ok := e.Forest().Find(1)
	require.True(t, ok)
	assert.Equal(t, int64(6), n.Comment.Score)
	assert.Equal(t, int64(8), n.Comment.Upvotes)
	assert.Equal(t, int64(2), n.Comment.Downvotes)
	require.NotNil(t, n.Comment.MyVote)
	assert.Equal(t, int64(1), *n.Comment.MyVote)

	vote.MyVote = model.Int64(-1)
	apply(t, e, protocol.CommentVoted{Comment: vote})
	n, _ = e.Forest().Find(1)
	assert.Equal(t, int64(-1), *n.Comment.MyVote)
}

func TestEngine_CommentVotedReordersTop(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortTop))
	apply(t, e, snapshot(comment(1, 0, 5, at(10)), comment(2, 0, 3, at(10))))
	assert.Equal(t, "1,2", shape(e.Forest()))

	apply(t, e, protocol.CommentVoted{Comment: comment(2, 0, 8, at(10))})
	assert.Equal(t, "2,1", shape(e.Forest()))
}

func TestEngine_PostVotedClearsMyVote(t *testing.T) {
	e := newTestEngine(t)
	snap := twoCommentThread()
	snap.Post.MyVote = model.Int64(1)
	apply(t, e, snap)

	apply(t, e, protocol.PostVoted{Post: model.Post{ID: 1, Name: "ignored", Score: 2, Upvotes: 3, Downvotes: 1}})

	p, ok := e.Post()
	require.True(t, ok)
	assert.Nil(t, p.MyVote)
	assert.Equal(t, int64(2), p.Score)
	assert.Equal(t, int64(3), p.Upvotes)
	assert.Equal(t, int64(1), p.Downvotes)
	assert.Equal(t, "hello", p.Name, "only vote fields change")
}

func TestEngine_PostEditedReplacesPost(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())

	edited := model.Post{ID: 1, Name: "renamed", Body: "body", Locked: true, CommunityID: 2, CommunityName: "main"}
	apply(t, e, protocol.PostEdited{Post: edited})

	p, _ := e.Post()
	assert.Equal(t, edited, p)
}

func TestEngine_PostEventsBeforeSnapshot(t *testing.T) {
	e := newTestEngine(t)
	var failures []error
	e.OnFailure(func(err error) { failures = append(failures, err) })

	apply(t, e,
		protocol.PostEdited{Post: model.Post{ID: 1}},
		protocol.CommunityFollowed{Community: model.Community{ID: 2, Subscribed: true}},
	)

	require.Len(t, failures, 2)
	assert.True(t, IsNotFound(failures[0]))
	assert.True(t, IsNotFound(failures[1]))
	_, ok := e.Post()
	assert.False(t, ok)
}

func TestEngine_CommunityEditedUpdatesPost(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())

	apply(t, e, protocol.CommunityEdited{Community: model.Community{ID: 3, Name: "renamed", Title: "Renamed"}})

	c, ok := e.Community()
	require.True(t, ok)
	assert.Equal(t, "Renamed", c.Title)
	assert.Equal(t, int64(0), c.NumberOfSubscribers, "edit replaces the whole community")

	p, _ := e.Post()
	assert.Equal(t, int64(3), p.CommunityID)
	assert.Equal(t, "renamed", p.CommunityName)
}

func TestEngine_CommunityFollowedPatchesSubscription(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())

	apply(t, e, protocol.CommunityFollowed{Community: model.Community{ID: 2, Name: "other", Subscribed: true, NumberOfSubscribers: 6}})

	c, _ := e.Community()
	assert.True(t, c.Subscribed)
	assert.Equal(t, int64(6), c.NumberOfSubscribers)
	assert.Equal(t, "main", c.Name)
	assert.Equal(t, "Main", c.Title)
	assert.Len(t, e.Moderators(), 1)
}

func TestEngine_ErrorEventDoesNotRebuild(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())
	rev := e.Revision()

	var failures []error
	var updates int
	e.OnFailure(func(err error) { failures = append(failures, err) })
	e.OnUpdate(func(View) { updates++ })

	apply(t, e,
		protocol.Decode([]byte(`{"op":"CreateComment","error":"rate_limited"}`)),
		protocol.Decode([]byte(`{not json`)),
	)

	assert.Equal(t, rev, e.Revision())
	assert.Zero(t, updates)
	require.Len(t, failures, 2)
	assert.True(t, IsErrorEvent(failures[0]))
	assert.ErrorContains(t, failures[0], "rate_limited")
	assert.True(t, IsErrorEvent(failures[1]))
	assert.ErrorContains(t, failures[1], "malformed")
}

func TestEngine_UnknownOpIgnored(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())
	rev := e.Revision()
	before, _ := fingerprints(t, e)

	apply(t, e, protocol.Decode([]byte(`{"op":"SaveComment","comment":{"id":1}}`)))

	after, _ := fingerprints(t, e)
	assert.Equal(t, rev, e.Revision())
	assert.Equal(t, before, after)
}

func TestEngine_OrphanBecomesRoot(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortNew))
	apply(t, e, snapshot(comment(1, 0, 1, at(10)), comment(5, 42, 1, at(11))))

	assert.Equal(t, "5,1", shape(e.Forest()))
}

func TestEngine_CreatedDuplicateUpdatesInPlace(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortTop))
	apply(t, e, twoCommentThread())

	again := comment(1, 0, 20, at(10))
	apply(t, e, protocol.CommentCreated{Comment: again})

	assert.Len(t, e.Comments(), 2)
	n, _ := e.Forest().Find(1)
	assert.Equal(t, int64(20), n.Comment.Score)
}

func TestEngine_HotOrdering(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, snapshot(
		comment(1, 0, 1, at(10)),
		comment(2, 0, 5, at(10)),
		comment(3, 0, 1, at(11)),
	))

	// Same age: higher score first. Same score: younger first.
	assert.Equal(t, "3,2,1", shape(e.Forest()))
	assert.True(t, rank.IsSorted(e.Forest(), rank.Hot(e.now(), e.rankCfg)))
}

func TestEngine_SetSortMode(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, snapshot(
		comment(1, 0, 9, at(8)),
		comment(2, 0, 1, at(11)),
		comment(3, 1, 2, at(9)),
		comment(4, 1, 7, at(10)),
	))
	gen := e.generation

	var views []View
	e.OnUpdate(func(v View) { views = append(views, v) })

	require.NoError(t, e.SetSortMode(model.SortTop))
	assert.Equal(t, "1[4,3],2", shape(e.Forest()))

	require.NoError(t, e.SetSortMode(model.SortNew))
	assert.Equal(t, "2,1[4,3]", shape(e.Forest()))

	assert.Equal(t, gen, e.generation, "re-sorting does not rebuild")
	require.Len(t, views, 2)
	assert.Equal(t, model.SortTop, views[0].Mode)
	assert.Equal(t, model.SortNew, views[1].Mode)
	assert.Less(t, views[0].Revision, views[1].Revision)

	assert.Error(t, e.SetSortMode(model.SortMode(9)))
	assert.Equal(t, model.SortNew, e.SortMode())
}

func TestEngine_SortCache(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread(), protocol.CommentCreated{Comment: comment(3, 0, 1, at(11))})

	require.NoError(t, e.SetSortMode(model.SortTop))
	top := e.forest
	require.NoError(t, e.SetSortMode(model.SortNew))
	require.NoError(t, e.SetSortMode(model.SortTop))
	assert.Same(t, top[0], e.forest[0], "top order served from cache")
	assert.Equal(t, 2, e.cache.len())

	require.NoError(t, e.SetSortMode(model.SortHot))
	assert.Equal(t, 2, e.cache.len(), "hot is never cached")

	// A rebuild starts a new generation, so cached orders are not reused.
	apply(t, e, protocol.CommentVoted{Comment: comment(3, 0, 50, at(11))})
	require.NoError(t, e.SetSortMode(model.SortTop))
	assert.Equal(t, "3,1[2]", shape(e.Forest()))
}

func TestEngine_CacheDisabled(t *testing.T) {
	e := newTestEngine(t, WithCacheSize(0))
	apply(t, e, twoCommentThread())
	require.NoError(t, e.SetSortMode(model.SortTop))
	assert.Equal(t, 0, e.cache.len())
	assert.Equal(t, "1[2]", shape(e.Forest()))
}

func TestEngine_ReadersGetCopies(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())

	comments := e.Comments()
	comments[0].Content = "mutated"
	p, _ := e.Post()
	p.Name = "mutated"

	for _, c := range e.Comments() {
		assert.NotEqual(t, "mutated", c.Content)
	}
	p2, _ := e.Post()
	assert.Equal(t, "hello", p2.Name)
}

func TestEngine_ForestIsACopy(t *testing.T) {
	e := newTestEngine(t, WithSortMode(model.SortTop))
	apply(t, e, twoCommentThread())

	f := e.Forest()
	f[0].Comment.Content = "mutated"
	f[0].Children = nil
	f[0] = &model.CommentNode{Comment: comment(9, 0, 0, at(10))}

	v := e.View()
	v.Forest[0].Children[0].Comment.Score = 1000

	// Switching away and back serves Top from the cache.
	require.NoError(t, e.SetSortMode(model.SortNew))
	require.NoError(t, e.SetSortMode(model.SortTop))

	got := e.Forest()
	assert.Equal(t, "1[2]", shape(got))
	assert.Equal(t, "comment 1", got[0].Comment.Content)
	assert.Equal(t, int64(10), got[0].Children[0].Comment.Score)
}

func TestEngine_CloseRejectsEvents(t *testing.T) {
	e := newTestEngine(t)
	apply(t, e, twoCommentThread())
	forest := shape(e.Forest())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	err := e.Apply(context.Background(), protocol.CommentCreated{Comment: comment(3, 0, 1, at(11))})
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, IsClosed(e.SetSortMode(model.SortTop)))

	assert.Equal(t, forest, shape(e.Forest()), "last state stays readable")
	assert.Len(t, e.Comments(), 2)
}

func TestEngine_Journal(t *testing.T) {
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	e := newTestEngine(t, WithJournal(j))
	apply(t, e,
		twoCommentThread(),
		protocol.CommentCreated{Comment: comment(3, 1, 1, at(11))},
		protocol.CommentEdited{Comment: comment(99, 0, 0, at(12))},
		protocol.ErrorEvent{Operation: protocol.OpCreatePostLike, Message: "nope"},
		protocol.UnknownEvent{Operation: "SaveComment"},
	)

	entries, err := j.Entries(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, entries, 5)

	var outcomes []string
	for i, en := range entries {
		assert.Equal(t, int64(i+1), en.Seq)
		outcomes = append(outcomes, en.Outcome)
	}
	assert.Equal(t, []string{"applied", "applied", "not_found", "error_event", "ignored"}, outcomes)
	assert.Equal(t, "GetPost", entries[0].Op)
	assert.Equal(t, "InitialSnapshot", entries[0].Kind)

	state, forest := fingerprints(t, e)
	assert.Equal(t, state, entries[4].StateFingerprint)
	assert.Equal(t, forest, entries[4].ForestFingerprint)

	mismatches, err := VerifyJournal(ctx, j, "run-test", WithLogger(e.logger))
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestReplay_Messages(t *testing.T) {
	var messages [][]byte
	for _, ev := range []protocol.Event{
		twoCommentThread(),
		protocol.CommentCreated{Comment: comment(3, 0, 1, at(11))},
	} {
		raw, err := protocol.Encode(ev)
		require.NoError(t, err)
		messages = append(messages, raw)
	}
	messages = append(messages, []byte(`garbage`))

	e, err := Replay(context.Background(), messages, WithSortMode(model.SortTop), WithLogger(newTestEngine(t).logger))
	require.NoError(t, err)
	assert.Equal(t, "1[2],3", shape(e.Forest()))
}
