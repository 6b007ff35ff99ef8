// Package replytree turns the comment tree of a theme into the view tree
// the theme page renders.
package replytree

import (
	"sort"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

const DefaultMaxDepth = 5

// Policy controls which actions are offered on rendered nodes.
type Policy struct {
	// MaxDepth is the depth from which replying is no longer offered. Deeper
	// nodes still render.
	MaxDepth int
	// Viewer is the logged-in user, nil for guests.
	Viewer *domain.User
}

type Node struct {
	Comment   domain.CommentNode
	Depth     int
	CanReply  bool
	CanDelete bool
	// ReplyToName is the display name of the node this one answers, empty
	// for top-level comments.
	ReplyToName string
	Children    []*Node
}

// Build walks nodes depth-first and applies policy to every node.
func Build(nodes []domain.CommentNode, policy Policy) []*Node {
	return build(nodes, policy, 0)
}

func build(nodes []domain.CommentNode, policy Policy, depth int) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, c := range nodes {
		n := &Node{
			Comment:   c,
			Depth:     depth,
			CanReply:  depth < policy.MaxDepth,
			CanDelete: policy.Viewer.Same(c.Author),
			Children:  build(c.Replies, policy, depth+1),
		}
		if c.ReplyTo != nil {
			n.ReplyToName = c.ReplyTo.Author.DisplayName()
		}
		n.Comment.Replies = nil
		out = append(out, n)
	}
	return out
}

// Count returns the number of comments on all levels.
func Count(nodes []domain.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}

// Find returns the comment with id and its depth.
func Find(nodes []domain.CommentNode, id domain.ID) (domain.CommentNode, int, bool) {
	return find(nodes, id, 0)
}

func find(nodes []domain.CommentNode, id domain.ID, depth int) (domain.CommentNode, int, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, depth, true
		}
		if found, d, ok := find(n.Replies, id, depth+1); ok {
			return found, d, true
		}
	}
	return domain.CommentNode{}, 0, false
}

// Flatten lists every comment once, oldest first, the way discussion themes
// show their posts. Children are dropped from the returned values.
func Flatten(nodes []domain.CommentNode) []domain.CommentNode {
	var flat []domain.CommentNode
	var walk func([]domain.CommentNode)
	walk = func(level []domain.CommentNode) {
		for _, n := range level {
			children := n.Replies
			n.Replies = nil
			flat = append(flat, n)
			walk(children)
		}
	}
	walk(nodes)
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].CreatedAt.Before(flat[j].CreatedAt.Time)
	})
	return flat
}
