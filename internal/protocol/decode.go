package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope holds the fields common to every message.
type envelope struct {
	Op    Op     `json:"op"`
	Error string `json:"error"`
}

// Decode turns one raw message into an Event.
//
// Decode never fails: undecodable input becomes an ErrorEvent with Malformed
// set, since the reconciler treats both cases the same way.
func Decode(raw []byte) Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return malformed("", fmt.Errorf("decode envelope: %w", err))
	}
	if env.Error != "" {
		return ErrorEvent{Operation: env.Op, Message: env.Error}
	}

	var (
		ev  Event
		err error
	)
	switch KindOf(env.Op) {
	case KindInitialSnapshot:
		ev, err = decodeInto[InitialSnapshot](raw)
	case KindCommentCreated:
		ev, err = decodeInto[CommentCreated](raw)
	case KindCommentEdited:
		ev, err = decodeInto[CommentEdited](raw)
	case KindCommentVoted:
		ev, err = decodeInto[CommentVoted](raw)
	case KindPostVoted:
		ev, err = decodeInto[PostVoted](raw)
	case KindPostEdited:
		ev, err = decodeInto[PostEdited](raw)
	case KindCommunityEdited:
		ev, err = decodeInto[CommunityEdited](raw)
	case KindCommunityFollowed:
		ev, err = decodeInto[CommunityFollowed](raw)
	default:
		return UnknownEvent{Operation: env.Op}
	}
	if err != nil {
		return malformed(env.Op, err)
	}
	return ev
}

func decodeInto[T Event](raw []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ev.Kind(), err)
	}
	return ev, nil
}

func malformed(op Op, err error) ErrorEvent {
	return ErrorEvent{Operation: op, Message: err.Error(), Malformed: true}
}
