package models

import (
	"errors"
	"testing"
)

func TestNewTree_RootFields(t *testing.T) {
	tree := NewTree("algebra")
	root := tree.Root

	if root.Title != "algebra" {
		t.Errorf("expected title %q, got %q", "algebra", root.Title)
	}
	if root.Type != NodeRoot {
		t.Errorf("expected type %q, got %q", NodeRoot, root.Type)
	}
	if root.ID == "" {
		t.Error("expected a generated node id")
	}
	if root.ParentID != "" {
		t.Errorf("root must have no parent, got %q", root.ParentID)
	}
	if root.Pages == nil || len(root.Pages) != 0 {
		t.Errorf("expected empty page list, got %v", root.Pages)
	}
	if tree.Len() != 1 {
		t.Errorf("expected 1 node, got %d", tree.Len())
	}
}

func TestAttach_LinksParentAndKeepsOrder(t *testing.T) {
	tree := NewTree("book")

	ch, err := tree.Attach(tree.Root.ID, "Chapter: One", "", NodeChapter)
	if err != nil {
		t.Fatalf("attach chapter: %v", err)
	}
	if ch.ParentID != tree.Root.ID {
		t.Errorf("expected parent %q, got %q", tree.Root.ID, ch.ParentID)
	}

	sec1, err := tree.Attach(ch.ID, "Section: A", "", NodeSection)
	if err != nil {
		t.Fatalf("attach section: %v", err)
	}
	sec2, err := tree.Attach(ch.ID, "Section: B", "", NodeSection)
	if err != nil {
		t.Fatalf("attach section: %v", err)
	}

	if len(ch.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(ch.Children))
	}
	if ch.Children[0] != sec1 || ch.Children[1] != sec2 {
		t.Error("children must keep insertion order")
	}

	leaf, err := tree.Attach(sec1.ID, "Content from page 1", "some text", NodeLeaf)
	if err != nil {
		t.Fatalf("attach leaf: %v", err)
	}
	if leaf.Content != "some text" {
		t.Errorf("expected content %q, got %q", "some text", leaf.Content)
	}
	if tree.Len() != 5 {
		t.Errorf("expected 5 nodes, got %d", tree.Len())
	}
}

func TestAttach_UnknownParent(t *testing.T) {
	tree := NewTree("book")

	_, err := tree.Attach("no-such-id", "Chapter: X", "", NodeChapter)
	if err == nil {
		t.Fatal("expected an error for an unknown parent")
	}
	if !errors.Is(err, ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
	if tree.Len() != 1 {
		t.Errorf("failed attach must not grow the tree, got %d nodes", tree.Len())
	}
}

func TestNode_Lookup(t *testing.T) {
	tree := NewTree("book")
	ch, err := tree.Attach(tree.Root.ID, "Chapter: One", "", NodeChapter)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	got, ok := tree.Node(ch.ID)
	if !ok || got != ch {
		t.Errorf("expected to find attached node by id")
	}
	if _, ok := tree.Node("missing"); ok {
		t.Error("expected a miss for an unknown id")
	}
}

func TestWalk_DepthFirstOrder(t *testing.T) {
	tree := NewTree("book")
	ch, _ := tree.Attach(tree.Root.ID, "Chapter: One", "", NodeChapter)
	sec, _ := tree.Attach(ch.ID, "Section: A", "", NodeSection)
	tree.Attach(sec.ID, "Content from page 1", "text", NodeLeaf)
	tree.Attach(tree.Root.ID, "Chapter: Two", "", NodeChapter)

	var titles []string
	tree.Root.Walk(func(n *TextNode) { titles = append(titles, n.Title) })

	want := []string{"book", "Chapter: One", "Section: A", "Content from page 1", "Chapter: Two"}
	if len(titles) != len(want) {
		t.Fatalf("expected %d visits, got %d (%v)", len(want), len(titles), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("visit %d: expected %q, got %q", i, want[i], titles[i])
		}
	}
}

func TestAttach_GeneratesUniqueIDs(t *testing.T) {
	tree := NewTree("book")
	seen := map[string]bool{tree.Root.ID: true}

	for i := 0; i < 20; i++ {
		n, err := tree.Attach(tree.Root.ID, "Chapter: X", "", NodeChapter)
		if err != nil {
			t.Fatalf("attach: %v", err)
		}
		if seen[n.ID] {
			t.Fatalf("duplicate node id %s", n.ID)
		}
		seen[n.ID] = true
	}
}
