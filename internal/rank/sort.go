// Package rank orders comment forests.
//
// Three orderings exist: Top (score, descending), New (published timestamp,
// descending, compared as strings) and Hot (HotRank, descending). Sort applies
// the same ordering at every depth and returns a new forest, leaving its
// input untouched. Ties keep input order, so a fixed input always sorts the
// same way.
package rank

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/roach88/threadview/internal/model"
)

// Comparator orders two nodes the way slices.SortFunc expects.
type Comparator func(a, b *model.CommentNode) int

// Top orders by descending score.
func Top(a, b *model.CommentNode) int {
	return cmp.Compare(b.Comment.Score, a.Comment.Score)
}

// New orders by descending published timestamp.
func New(a, b *model.CommentNode) int {
	return strings.Compare(b.Comment.Published, a.Comment.Published)
}

// Hot returns a comparator ranking nodes by HotRank at the given instant.
// Ranks are memoized per comment id for the lifetime of the comparator.
func Hot(now time.Time, cfg Config) Comparator {
	ranks := make(map[int64]float64)
	rankOf := func(c model.Comment) float64 {
		if r, ok := ranks[c.ID]; ok {
			return r
		}
		r := HotRankAt(c.Score, c.Published, now, cfg)
		ranks[c.ID] = r
		return r
	}
	return func(a, b *model.CommentNode) int {
		return cmp.Compare(rankOf(b.Comment), rankOf(a.Comment))
	}
}

// For returns the comparator for mode. Unknown modes fall back to Hot.
func For(mode model.SortMode, now time.Time, cfg Config) Comparator {
	switch mode {
	case model.SortTop:
		return Top
	case model.SortNew:
		return New
	default:
		return Hot(now, cfg)
	}
}

// Sort returns a copy of f with every sibling sequence ordered by c.
func Sort(f model.Forest, c Comparator) model.Forest {
	out := make(model.Forest, len(f))
	for i, n := range f {
		out[i] = &model.CommentNode{
			Comment:  n.Comment,
			Children: Sort(n.Children, c),
		}
	}
	slices.SortStableFunc(out, c)
	return out
}

// IsSorted reports whether every sibling sequence in f is ordered by c.
func IsSorted(f model.Forest, c Comparator) bool {
	if !slices.IsSortedFunc(f, c) {
		return false
	}
	for _, n := range f {
		if !IsSorted(n.Children, c) {
			return false
		}
	}
	return true
}
