package protocol

import "github.com/roach88/threadview/internal/model"

// Event is one decoded server message.
type Event interface {
	Kind() Kind
	Op() Op
}

// InitialSnapshot carries the full view state. It answers GetPost.
type InitialSnapshot struct {
	Post       model.Post        `json:"post"`
	Comments   []model.Comment   `json:"comments"`
	Community  model.Community   `json:"community"`
	Moderators []model.Moderator `json:"moderators"`
}

// CommentCreated announces a new comment.
type CommentCreated struct {
	Comment model.Comment `json:"comment"`
}

// CommentEdited carries a comment whose content and updated fields changed.
type CommentEdited struct {
	Comment model.Comment `json:"comment"`
}

// CommentVoted carries new vote totals for a comment. A nil MyVote means the
// caller's own vote did not change.
type CommentVoted struct {
	Comment model.Comment `json:"comment"`
}

// PostVoted carries new vote totals for the post.
type PostVoted struct {
	Post model.Post `json:"post"`
}

// PostEdited carries a full replacement of the post.
type PostEdited struct {
	Post model.Post `json:"post"`
}

// CommunityEdited carries a full replacement of the community.
type CommunityEdited struct {
	Community model.Community `json:"community"`
}

// CommunityFollowed carries the caller's new subscription state.
type CommunityFollowed struct {
	Community model.Community `json:"community"`
}

// ErrorEvent is a message the server flagged as failed, or one that could not
// be decoded.
type ErrorEvent struct {
	Operation Op     `json:"op,omitempty"`
	Message   string `json:"error"`
	Malformed bool   `json:"-"`
}

// UnknownEvent is a well-formed message with an operation this view does not
// handle.
type UnknownEvent struct {
	Operation Op `json:"op"`
}

func (InitialSnapshot) Kind() Kind   { return KindInitialSnapshot }
func (CommentCreated) Kind() Kind    { return KindCommentCreated }
func (CommentEdited) Kind() Kind     { return KindCommentEdited }
func (CommentVoted) Kind() Kind      { return KindCommentVoted }
func (PostVoted) Kind() Kind         { return KindPostVoted }
func (PostEdited) Kind() Kind        { return KindPostEdited }
func (CommunityEdited) Kind() Kind   { return KindCommunityEdited }
func (CommunityFollowed) Kind() Kind { return KindCommunityFollowed }
func (ErrorEvent) Kind() Kind        { return KindError }
func (UnknownEvent) Kind() Kind      { return KindUnknown }

func (InitialSnapshot) Op() Op   { return OpGetPost }
func (CommentCreated) Op() Op    { return OpCreateComment }
func (CommentEdited) Op() Op     { return OpEditComment }
func (CommentVoted) Op() Op      { return OpCreateCommentLike }
func (PostVoted) Op() Op         { return OpCreatePostLike }
func (PostEdited) Op() Op        { return OpEditPost }
func (CommunityEdited) Op() Op   { return OpEditCommunity }
func (CommunityFollowed) Op() Op { return OpFollowCommunity }
func (e ErrorEvent) Op() Op      { return e.Operation }
func (e UnknownEvent) Op() Op    { return e.Operation }

// Error implements error so an ErrorEvent can be handed to failure handlers.
func (e ErrorEvent) Error() string {
	if e.Operation != "" {
		return string(e.Operation) + ": " + e.Message
	}
	return e.Message
}
