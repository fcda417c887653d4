package model

// Comment is one entry of the flat, parent-linked comment collection.
//
// ParentID nil marks a root. Published is an ISO-8601 string; lexical order
// of two timestamps in the same format is chronological order.
type Comment struct {
	ID          int64   `json:"id"`
	CreatorID   int64   `json:"creator_id"`
	CreatorName string  `json:"creator_name"`
	PostID      int64   `json:"post_id"`
	ParentID    *int64  `json:"parent_id"`
	Content     string  `json:"content"`
	Removed     bool    `json:"removed"`
	Read        bool    `json:"read"`
	Published   string  `json:"published"`
	Updated     *string `json:"updated"`
	Score       int64   `json:"score"`
	Upvotes     int64   `json:"upvotes"`
	Downvotes   int64   `json:"downvotes"`
	MyVote      *int64  `json:"my_vote"`
	Saved       bool    `json:"saved"`
}

// IsRoot reports whether the comment declares no parent.
func (c Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Clone returns a copy that shares no pointers with c.
func (c Comment) Clone() Comment {
	c.ParentID = cloneInt(c.ParentID)
	c.Updated = cloneString(c.Updated)
	c.MyVote = cloneInt(c.MyVote)
	return c
}

// CloneComments deep-copies a comment slice. A nil input yields an empty slice.
func CloneComments(in []Comment) []Comment {
	out := make([]Comment, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// Int64 returns a pointer to v. Handy for nullable fields.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
