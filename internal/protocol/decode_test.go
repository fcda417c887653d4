package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadview/internal/model"
)

func TestDecode_EveryOperation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"snapshot", `{"op":"GetPost","post":{"id":1},"comments":[],"community":{"id":2},"moderators":[]}`, KindInitialSnapshot},
		{"create comment", `{"op":"CreateComment","comment":{"id":3}}`, KindCommentCreated},
		{"edit comment", `{"op":"EditComment","comment":{"id":3,"content":"x"}}`, KindCommentEdited},
		{"comment like", `{"op":"CreateCommentLike","comment":{"id":3,"score":2}}`, KindCommentVoted},
		{"post like", `{"op":"CreatePostLike","post":{"id":1,"score":9}}`, KindPostVoted},
		{"edit post", `{"op":"EditPost","post":{"id":1,"name":"n"}}`, KindPostEdited},
		{"edit community", `{"op":"EditCommunity","community":{"id":2,"name":"c"}}`, KindCommunityEdited},
		{"follow community", `{"op":"FollowCommunity","community":{"id":2,"subscribed":true}}`, KindCommunityFollowed},
		{"unknown", `{"op":"GetSite"}`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.raw))
			assert.Equal(t, tt.kind, ev.Kind())
		})
	}
}

func TestDecode_SnapshotFields(t *testing.T) {
	raw := `{"op":"GetPost",
		"post":{"id":1,"community_id":2,"community_name":"golang","score":5,"my_vote":1},
		"comments":[{"id":10,"parent_id":null,"published":"2019-04-01T10:00:00"},{"id":11,"parent_id":10}],
		"community":{"id":2,"name":"golang","number_of_subscribers":7},
		"moderators":[{"id":1,"user_id":3,"user_name":"mod"}]}`

	ev, ok := Decode([]byte(raw)).(InitialSnapshot)
	require.True(t, ok)

	assert.Equal(t, int64(1), ev.Post.ID)
	assert.Equal(t, "golang", ev.Post.CommunityName)
	require.NotNil(t, ev.Post.MyVote)
	assert.Equal(t, int64(1), *ev.Post.MyVote)
	require.Len(t, ev.Comments, 2)
	assert.Nil(t, ev.Comments[0].ParentID)
	require.NotNil(t, ev.Comments[1].ParentID)
	assert.Equal(t, int64(10), *ev.Comments[1].ParentID)
	assert.Equal(t, int64(7), ev.Community.NumberOfSubscribers)
	assert.Equal(t, "mod", ev.Moderators[0].UserName)
}

func TestDecode_CommentVotedNullVote(t *testing.T) {
	ev, ok := Decode([]byte(`{"op":"CreateCommentLike","comment":{"id":3,"score":2,"my_vote":null}}`)).(CommentVoted)
	require.True(t, ok)
	assert.Nil(t, ev.Comment.MyVote)
}

func TestDecode_ErrorFieldSupersedesOp(t *testing.T) {
	ev := Decode([]byte(`{"op":"CreateComment","error":"Couldn't create comment","comment":{"id":3}}`))

	errEv, ok := ev.(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, OpCreateComment, errEv.Op())
	assert.Equal(t, "Couldn't create comment", errEv.Message)
	assert.False(t, errEv.Malformed)
	assert.EqualError(t, errEv, "CreateComment: Couldn't create comment")
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"op":`},
		{"not an object", `[1,2]`},
		{"wrong payload type", `{"op":"CreateComment","comment":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.raw))
			errEv, ok := ev.(ErrorEvent)
			require.True(t, ok, "expected ErrorEvent, got %T", ev)
			assert.True(t, errEv.Malformed)
			assert.NotEmpty(t, errEv.Message)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	in := CommentCreated{Comment: model.Comment{ID: 3, ParentID: model.Int64(1), Content: "hi", Published: "t3"}}

	raw, err := Encode(in)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "CreateComment", fields["op"])

	out, ok := Decode(raw).(CommentCreated)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestEncodePostRequest(t *testing.T) {
	raw, err := EncodePostRequest(42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"GetPost","data":{"id":42}}`, string(raw))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPostVoted, KindOf(OpCreatePostLike))
	assert.Equal(t, KindUnknown, KindOf("Login"))
	assert.Equal(t, "CommentVoted", KindCommentVoted.String())
}
