package graph

import (
	"errors"
	"io/fs"
	"testing"
)

func TestMemoryStore_AttachAndGetNode(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Attach("", &Node{ID: "plate=P1", Mode: fs.ModeDir}); err != nil {
		t.Fatalf("Attach root: %v", err)
	}
	if err := store.Attach("/plate=P1", &Node{ID: "plate=P1/a.czi.json", Data: []byte("{}\n")}); err != nil {
		t.Fatalf("Attach child: %v", err)
	}

	node, err := store.GetNode("plate=P1")
	if err != nil {
		t.Fatalf("GetNode(plate=P1) returned error: %v", err)
	}
	if !node.Mode.IsDir() {
		t.Error("plate=P1 should be a directory")
	}
	if len(node.Children) != 1 || node.Children[0] != "plate=P1/a.czi.json" {
		t.Errorf("children = %v, want [plate=P1/a.czi.json]", node.Children)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
}

func TestMemoryStore_AttachRejectsFileParent(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "a.json", Data: []byte("{}")})

	err := store.Attach("a.json", &Node{ID: "a.json/b"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.Attach("missing", &Node{ID: "missing/b"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_AttachDeduplicatesChildren(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "d", Mode: fs.ModeDir})
	_ = store.Attach("d", &Node{ID: "d/x.json"})
	_ = store.Attach("d", &Node{ID: "d/x.json"})

	children, err := store.ListChildren("d")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Errorf("children = %d, want 1", len(children))
	}
}

func TestMemoryStore_GetNodeReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "d", Mode: fs.ModeDir})
	before, _ := store.GetNode("d")
	_ = store.Attach("d", &Node{ID: "d/x.json"})

	if len(before.Children) != 0 {
		t.Errorf("earlier snapshot changed: %v", before.Children)
	}
}

func TestMemoryStore_GetNodeNormalizesLeadingSlash(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(&Node{ID: "foo", Mode: fs.ModeDir})

	node, err := store.GetNode("/foo")
	if err != nil {
		t.Fatalf("GetNode(/foo) should resolve to foo: %v", err)
	}
	if node.ID != "foo" {
		t.Errorf("ID = %q, want %q", node.ID, "foo")
	}
}

func TestMemoryStore_ListChildrenRoot(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "plate=P1", Mode: fs.ModeDir})
	store.AddRoot(&Node{ID: "plate=P2", Mode: fs.ModeDir})
	store.AddRoot(&Node{ID: "plate=P2", Mode: fs.ModeDir})

	roots, err := store.ListChildren("/")
	if err != nil {
		t.Fatalf("ListChildren(/) returned error: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
}

func TestMemoryStore_GetNodeNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetNode("nonexistent")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := store.ListChildren("nonexistent"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ReadContent(t *testing.T) {
	store := NewMemoryStore()
	store.AddNode(&Node{ID: "f", Data: []byte("hello world")})

	buf := make([]byte, 5)
	n, err := store.ReadContent("f", buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "world" {
		t.Errorf("read %q, want %q", buf[:n], "world")
	}
	n, _ = store.ReadContent("f", buf, 100)
	if n != 0 {
		t.Errorf("read past end = %d, want 0", n)
	}
}

func TestContentCache_EvictsOldest(t *testing.T) {
	c := newContentCache(2)
	c.put("a", []byte("1"))
	c.put("b", []byte("2"))
	c.put("a", []byte("3"))
	c.put("c", []byte("4"))

	if _, ok := c.get("a"); ok {
		t.Error("a should have been evicted")
	}
	if v, ok := c.get("b"); !ok || string(v) != "2" {
		t.Errorf("b = %q, %v", v, ok)
	}
	if v, ok := c.get("c"); !ok || string(v) != "4" {
		t.Errorf("c = %q, %v", v, ok)
	}
}
