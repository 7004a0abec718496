// Package thread assembles flat comment documents into a reply tree.
package thread

import (
	"time"

	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/sortpolicy"
)

// Node is one comment in the tree with its aggregate and sorted replies.
type Node struct {
	Comment   model.Comment     `json:"comment"`
	Aggregate ratings.Aggregate `json:"aggregate"`
	Replies   []*Node           `json:"replies,omitempty"`

	// ReplyCount is the number of direct replies, len(Replies) after
	// the build. Nested replies count toward their own parent only.
	ReplyCount int `json:"reply_count"`
}

func (n *Node) SortAverage() *float64 { return n.Aggregate.Average }
func (n *Node) SortRatingCount() int  { return n.Aggregate.Count }
func (n *Node) SortTime() time.Time   { return n.Comment.CreatedAt }

// Build arranges comments into a tree ordered by mode at every level.
// A comment whose parent is missing from the input (deleted, or not yet
// synced) is promoted to a root rather than dropped. Aggregates absent
// from aggs default to the unrated zero value.
func Build(comments []model.Comment, aggs map[string]ratings.Aggregate, mode sortpolicy.Mode) []*Node {
	nodes := make(map[string]*Node, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &Node{Comment: c, Aggregate: aggs[c.ID]}
	}

	var roots []*Node
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, root := range roots {
		finish(root, mode)
	}
	sortpolicy.Apply(mode, roots)
	return roots
}

// finish sorts replies bottom-up and records each node's direct-child
// count once its subtree is settled.
func finish(n *Node, mode sortpolicy.Mode) {
	for _, reply := range n.Replies {
		finish(reply, mode)
	}
	sortpolicy.Apply(mode, n.Replies)
	n.ReplyCount = len(n.Replies)
}
