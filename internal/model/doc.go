// Package model defines the entities of a discussion view.
//
// Post, Comment, Community and Moderator mirror the records the server sends.
// CommentNode and Forest are projections derived from the flat comment list;
// they are rebuilt on every reconciliation and never stored.
//
// JSON tags follow the server's snake_case wire names so the protocol package
// can decode messages straight into these types.
package model
