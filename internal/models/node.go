package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NodeType identifies the structural level of a TextNode.
type NodeType string

const (
	NodeRoot    NodeType = "root"
	NodeChapter NodeType = "chapter"
	NodeSection NodeType = "section"
	NodeLeaf    NodeType = "leaf"
)

// ErrParentNotFound reports an attempt to attach a child to a parent id
// that is not registered in the tree's index. It indicates corrupted
// cursor state and must not be swallowed.
var ErrParentNotFound = errors.New("parent node not found")

// TextNode is one node in a textbook hierarchy. Struct field order is
// the field order of the serialized record.
type TextNode struct {
	Title    string         `json:"title"`
	Content  string         `json:"content,omitempty"`
	Type     NodeType       `json:"node_type"`
	ID       string         `json:"node_id"`
	ParentID string         `json:"parent_id,omitempty"`
	Pages    []int          `json:"page_number"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Children []*TextNode    `json:"children,omitempty"`
}

// Walk visits n and every descendant depth-first, children in document
// order.
func (n *TextNode) Walk(fn func(*TextNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Tree owns one document hierarchy: a single root plus a non-owning
// index from node id to node. The index exists to validate parents and
// attach children without traversal; ownership is only ever through the
// Children slices reachable from the root.
type Tree struct {
	Root  *TextNode
	index map[string]*TextNode
}

// NewTree creates a fresh tree whose root node carries the document
// title.
func NewTree(title string) *Tree {
	root := &TextNode{
		Title: title,
		Type:  NodeRoot,
		ID:    uuid.NewString(),
		Pages: []int{},
	}
	return &Tree{
		Root:  root,
		index: map[string]*TextNode{root.ID: root},
	}
}

// Attach creates a node of the given type under parentID, appends it to
// the parent's children and registers it in the index. The parent must
// already exist; a miss wraps ErrParentNotFound.
func (t *Tree) Attach(parentID, title, content string, typ NodeType) (*TextNode, error) {
	parent, ok := t.index[parentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}
	node := &TextNode{
		Title:    title,
		Content:  content,
		Type:     typ,
		ID:       uuid.NewString(),
		ParentID: parentID,
		Pages:    []int{},
	}
	parent.Children = append(parent.Children, node)
	t.index[node.ID] = node
	return node, nil
}

// Node looks up a node by id.
func (t *Tree) Node(id string) (*TextNode, bool) {
	n, ok := t.index[id]
	return n, ok
}

// Len reports the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.index)
}
