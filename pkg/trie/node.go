// Package trie implements the prefix tree used to match request paths against
// registered route patterns.
//
// Each node holds one path segment. Static segments match themselves, ":name"
// matches any single segment and "*name" matches the rest of the path.
// Children are kept in insertion order and both insertion and search take the
// first child that fits, so a parameter registered before a literal sibling
// absorbs that literal.
package trie

import "strings"

// Node is a single segment in the route tree.
type Node struct {
	// Segment is the pattern segment this node matches, e.g. "users", ":id" or "*path".
	Segment string

	// Children in insertion order.
	Children []*Node

	// Wild is true when Segment starts with ':' or '*'.
	Wild bool

	// Pattern is the full registered pattern ending at this node, or "" if no
	// route ends here.
	Pattern string
}

// NewRoot returns an empty root node.
func NewRoot() *Node {
	return &Node{}
}

// Insert registers pattern along parts starting at depth.
// It returns the pattern previously stored at the terminal node, which is
// either pattern itself (re-registration), a different pattern that was
// shadowed by this one, or "".
func (n *Node) Insert(pattern string, parts []string, depth int) string {
	if len(parts) == depth {
		old := n.Pattern
		n.Pattern = pattern
		return old
	}

	part := parts[depth]
	child := n.matchChild(part)
	if child == nil {
		child = &Node{Segment: part, Wild: IsWild(part)}
		n.Children = append(n.Children, child)
	}
	return child.Insert(pattern, parts, depth+1)
}

// Search walks parts starting at depth and returns the node holding the
// matched pattern, or nil if nothing matches.
func (n *Node) Search(parts []string, depth int) *Node {
	if len(parts) == depth || strings.HasPrefix(n.Segment, "*") {
		if n.Pattern == "" {
			return nil
		}
		return n
	}

	part := parts[depth]
	for _, child := range n.matchChildren(part) {
		if result := child.Search(parts, depth+1); result != nil {
			return result
		}
	}
	return nil
}

// Walk calls fn for every node that holds a pattern, depth first in insertion order.
func (n *Node) Walk(fn func(*Node)) {
	if n.Pattern != "" {
		fn(n)
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

func (n *Node) matchChild(part string) *Node {
	for _, child := range n.Children {
		if child.Segment == part || child.Wild {
			return child
		}
	}
	return nil
}

func (n *Node) matchChildren(part string) []*Node {
	nodes := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		if child.Segment == part || child.Wild {
			nodes = append(nodes, child)
		}
	}
	return nodes
}
