package model

import (
	"strconv"
	"strings"
)

// CommentNode pairs a comment with its ordered replies.
//
// Nodes are projections: they are constructed fresh on every rebuild and are
// not modified afterwards. Sorting produces new child slices.
type CommentNode struct {
	Comment  Comment        `json:"comment"`
	Children []*CommentNode `json:"children"`
}

// Forest is the ordered sequence of root nodes for one post.
type Forest []*CommentNode

// Walk visits every node depth-first in forest order. Returning false from fn
// stops the walk.
func (f Forest) Walk(fn func(n *CommentNode, depth int) bool) {
	var visit func(nodes []*CommentNode, depth int) bool
	visit = func(nodes []*CommentNode, depth int) bool {
		for _, n := range nodes {
			if !fn(n, depth) {
				return false
			}
			if !visit(n.Children, depth+1) {
				return false
			}
		}
		return true
	}
	visit(f, 0)
}

// Clone returns a deep copy of the forest. Comments are cloned too, so the
// copy shares nothing with f. A nil forest stays nil.
func (f Forest) Clone() Forest {
	if f == nil {
		return nil
	}
	out := make(Forest, len(f))
	for i, n := range f {
		out[i] = &CommentNode{
			Comment:  n.Comment.Clone(),
			Children: Forest(n.Children).Clone(),
		}
	}
	return out
}

// Len counts all nodes in the forest.
func (f Forest) Len() int {
	count := 0
	f.Walk(func(*CommentNode, int) bool {
		count++
		return true
	})
	return count
}

// Find returns the node with the given comment id.
func (f Forest) Find(id int64) (*CommentNode, bool) {
	var found *CommentNode
	f.Walk(func(n *CommentNode, _ int) bool {
		if n.Comment.ID == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// RootIDs lists the ids of the root nodes in order.
func (f Forest) RootIDs() []int64 {
	ids := make([]int64, len(f))
	for i, n := range f {
		ids[i] = n.Comment.ID
	}
	return ids
}

// Shape renders the forest structure by id, children in brackets:
// "1[2,3[4]],5". An empty forest renders as "".
func (f Forest) Shape() string {
	var b strings.Builder
	writeShape(&b, f)
	return b.String()
}

func writeShape(b *strings.Builder, nodes []*CommentNode) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(n.Comment.ID, 10))
		if len(n.Children) > 0 {
			b.WriteByte('[')
			writeShape(b, n.Children)
			b.WriteByte(']')
		}
	}
}

// ChildIDs lists the ids of the node's direct children in order.
func (n *CommentNode) ChildIDs() []int64 {
	ids := make([]int64, len(n.Children))
	for i, c := range n.Children {
		ids[i] = c.Comment.ID
	}
	return ids
}
