// Package tree turns the flat comment collection into a forest.
//
// Build never fails. Input that would break the forest shape is repaired and
// reported instead:
//
//   - a comment whose parent is not in the collection becomes a root (orphan)
//   - a parent chain that loops back on itself is cut by making the comment at
//     which the loop is detected a root (cycle)
//   - a repeated comment id keeps its first occurrence only (duplicate)
package tree

import (
	"github.com/roach88/threadview/internal/model"
)

// Result is the output of Build.
type Result struct {
	// Forest holds the roots in input order; children are in input order too.
	Forest model.Forest

	// Orphans lists comments promoted to roots because their parent is missing.
	Orphans []int64

	// Cycles lists comments promoted to roots to cut a parent cycle.
	Cycles []int64

	// Duplicates lists repeated ids that were left out of the forest.
	Duplicates []int64
}

const (
	unvisited = iota
	visiting
	done
)

// Build links comments into a forest by parent id. It runs in linear time.
func Build(comments []model.Comment) Result {
	var res Result

	// Pass 1: one fresh node per distinct id.
	nodes := make(map[int64]*model.CommentNode, len(comments))
	order := make([]int64, 0, len(comments))
	for _, c := range comments {
		if _, dup := nodes[c.ID]; dup {
			res.Duplicates = append(res.Duplicates, c.ID)
			continue
		}
		nodes[c.ID] = &model.CommentNode{Comment: c.Clone(), Children: []*model.CommentNode{}}
		order = append(order, c.ID)
	}

	// Resolve parents, marking orphans.
	parent := make(map[int64]int64, len(order))
	for _, id := range order {
		c := nodes[id].Comment
		if c.ParentID == nil {
			continue
		}
		if _, ok := nodes[*c.ParentID]; !ok {
			res.Orphans = append(res.Orphans, id)
			continue
		}
		parent[id] = *c.ParentID
	}

	// Cut cycles. Each id is visited at most once across all walks.
	state := make(map[int64]int, len(order))
	for _, start := range order {
		var path []int64
		id := start
		for {
			if s := state[id]; s == done {
				break
			} else if s == visiting {
				delete(parent, id)
				res.Cycles = append(res.Cycles, id)
				break
			}
			state[id] = visiting
			path = append(path, id)
			pid, ok := parent[id]
			if !ok {
				break
			}
			id = pid
		}
		for _, p := range path {
			state[p] = done
		}
	}

	// Pass 2: attach children, collect roots.
	for _, id := range order {
		n := nodes[id]
		if pid, ok := parent[id]; ok {
			p := nodes[pid]
			p.Children = append(p.Children, n)
			continue
		}
		res.Forest = append(res.Forest, n)
	}
	if res.Forest == nil {
		res.Forest = model.Forest{}
	}

	return res
}
