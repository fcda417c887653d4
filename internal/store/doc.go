// Package store holds the canonical state of one discussion view.
//
// The store keeps the post, its community and moderators, and the flat
// comment collection in arrival order (newest first). It is the single source
// of truth: the comment forest is always re-derived from it.
//
// Patches mutate records in place, so a comment keeps its identity across
// edits and votes. Patching something that is not there is not an error
// condition worth failing over: late events routinely reference state that a
// newer snapshot replaced. Such patches return a *NotFoundError and change
// nothing.
//
// Once Invalidate is called every mutation is rejected with ErrInvalidated.
// The store does no locking of its own; its owner serializes access.
package store
