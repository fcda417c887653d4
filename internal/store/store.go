package store

import (
	"github.com/roach88/threadview/internal/model"
)

// Store is the in-memory state of one view.
type Store struct {
	post        *model.Post
	community   *model.Community
	moderators  []model.Moderator
	comments    []*model.Comment
	index       map[int64]*model.Comment
	invalidated bool
}

// State is a detached copy of everything the store holds.
type State struct {
	Post       *model.Post       `json:"post"`
	Comments   []model.Comment   `json:"comments"`
	Community  *model.Community  `json:"community"`
	Moderators []model.Moderator `json:"moderators"`
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[int64]*model.Comment)}
}

// ReplaceAll swaps in a complete snapshot.
//
// Comments keep the order given. If the snapshot repeats a comment id, the
// first occurrence is kept and the ids of the dropped repeats are returned.
func (s *Store) ReplaceAll(post model.Post, comments []model.Comment, community model.Community, moderators []model.Moderator) (dropped []int64, err error) {
	if s.invalidated {
		return nil, ErrInvalidated
	}

	p := post.Clone()
	c := community.Clone()
	s.post = &p
	s.community = &c
	s.moderators = append([]model.Moderator(nil), moderators...)

	s.comments = make([]*model.Comment, 0, len(comments))
	s.index = make(map[int64]*model.Comment, len(comments))
	for _, in := range comments {
		if _, dup := s.index[in.ID]; dup {
			dropped = append(dropped, in.ID)
			continue
		}
		rec := in.Clone()
		s.comments = append(s.comments, &rec)
		s.index[rec.ID] = &rec
	}
	return dropped, nil
}

// InsertComment prepends a comment to the collection.
//
// If a comment with the same id is already present its record is overwritten
// in place and keeps its position; replaced reports that case.
func (s *Store) InsertComment(c model.Comment) (replaced bool, err error) {
	if s.invalidated {
		return false, ErrInvalidated
	}

	rec := c.Clone()
	if existing, ok := s.index[c.ID]; ok {
		*existing = rec
		return true, nil
	}

	s.comments = append(s.comments, nil)
	copy(s.comments[1:], s.comments)
	s.comments[0] = &rec
	s.index[rec.ID] = &rec
	return false, nil
}

// PatchComment applies fn to the stored comment with the given id.
func (s *Store) PatchComment(id int64, fn func(*model.Comment)) error {
	if s.invalidated {
		return ErrInvalidated
	}
	rec, ok := s.index[id]
	if !ok {
		return &NotFoundError{Entity: "comment", ID: id}
	}
	fn(rec)
	// fn must not re-key the record.
	rec.ID = id
	return nil
}

// PatchPost applies fn to the stored post.
func (s *Store) PatchPost(fn func(*model.Post)) error {
	if s.invalidated {
		return ErrInvalidated
	}
	if s.post == nil {
		return &NotFoundError{Entity: "post"}
	}
	fn(s.post)
	return nil
}

// PatchCommunity applies fn to the stored community.
func (s *Store) PatchCommunity(fn func(*model.Community)) error {
	if s.invalidated {
		return ErrInvalidated
	}
	if s.community == nil {
		return &NotFoundError{Entity: "community"}
	}
	fn(s.community)
	return nil
}

// Invalidate tears the store down. Reads keep working; writes are rejected.
// Calling it more than once is harmless.
func (s *Store) Invalidate() {
	s.invalidated = true
}

// Invalidated reports whether Invalidate has been called.
func (s *Store) Invalidated() bool {
	return s.invalidated
}

// Post returns a copy of the post and whether one has been loaded.
func (s *Store) Post() (model.Post, bool) {
	if s.post == nil {
		return model.Post{}, false
	}
	return s.post.Clone(), true
}

// Community returns a copy of the community and whether one has been loaded.
func (s *Store) Community() (model.Community, bool) {
	if s.community == nil {
		return model.Community{}, false
	}
	return s.community.Clone(), true
}

// Moderators returns a copy of the moderator list.
func (s *Store) Moderators() []model.Moderator {
	return append([]model.Moderator{}, s.moderators...)
}

// Comments returns copies of all comments in arrival order, newest first.
func (s *Store) Comments() []model.Comment {
	out := make([]model.Comment, len(s.comments))
	for i, c := range s.comments {
		out[i] = c.Clone()
	}
	return out
}

// Comment returns a copy of one comment.
func (s *Store) Comment(id int64) (model.Comment, bool) {
	rec, ok := s.index[id]
	if !ok {
		return model.Comment{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of stored comments.
func (s *Store) Len() int {
	return len(s.comments)
}

// Snapshot returns a detached copy of the whole state.
func (s *Store) Snapshot() State {
	st := State{
		Comments:   s.Comments(),
		Moderators: s.Moderators(),
	}
	if p, ok := s.Post(); ok {
		st.Post = &p
	}
	if c, ok := s.Community(); ok {
		st.Community = &c
	}
	return st
}
