package protocol

// Op is the server operation tag carried by every message.
type Op string

// Operations understood by the reconciler.
const (
	OpGetPost           Op = "GetPost"
	OpCreateComment     Op = "CreateComment"
	OpEditComment       Op = "EditComment"
	OpCreateCommentLike Op = "CreateCommentLike"
	OpCreatePostLike    Op = "CreatePostLike"
	OpEditPost          Op = "EditPost"
	OpEditCommunity     Op = "EditCommunity"
	OpFollowCommunity   Op = "FollowCommunity"
)

// Kind discriminates decoded events.
type Kind int

const (
	KindInitialSnapshot Kind = iota + 1
	KindCommentCreated
	KindCommentEdited
	KindCommentVoted
	KindPostVoted
	KindPostEdited
	KindCommunityEdited
	KindCommunityFollowed
	KindError
	KindUnknown
)

var kindNames = map[Kind]string{
	KindInitialSnapshot:   "InitialSnapshot",
	KindCommentCreated:    "CommentCreated",
	KindCommentEdited:     "CommentEdited",
	KindCommentVoted:      "CommentVoted",
	KindPostVoted:         "PostVoted",
	KindPostEdited:        "PostEdited",
	KindCommunityEdited:   "CommunityEdited",
	KindCommunityFollowed: "CommunityFollowed",
	KindError:             "ErrorEvent",
	KindUnknown:           "Unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(?)"
}

var opKinds = map[Op]Kind{
	OpGetPost:           KindInitialSnapshot,
	OpCreateComment:     KindCommentCreated,
	OpEditComment:       KindCommentEdited,
	OpCreateCommentLike: KindCommentVoted,
	OpCreatePostLike:    KindPostVoted,
	OpEditPost:          KindPostEdited,
	OpEditCommunity:     KindCommunityEdited,
	OpFollowCommunity:   KindCommunityFollowed,
}

// KindOf maps an operation tag to the event kind it produces.
func KindOf(op Op) Kind {
	if k, ok := opKinds[op]; ok {
		return k
	}
	return KindUnknown
}
