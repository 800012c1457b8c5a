package core

import "testing"

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/abc/code", []string{"abc", "code"}},
		{"abc//users/u1/", []string{"abc", "users", "u1"}},
		{"/", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := SplitPath(tt.path)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("SplitPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	}
}

func TestTreePartialWriteKeepsSiblings(t *testing.T) {
	tree := NewTree()
	tree.Set(SplitPath("users/u1"), map[string]any{
		"name":     "alice",
		"position": map[string]any{"lineNumber": 1.0, "column": 1.0},
	})
	tree.Set(SplitPath("users/u2"), map[string]any{"name": "bob"})

	tree.Set(SplitPath("users/u1/position"), map[string]any{"lineNumber": 4.0, "column": 10.0})

	if got := tree.Get(SplitPath("users/u1/name")); got != "alice" {
		t.Fatalf("name clobbered: %v", got)
	}
	if got := tree.Get(SplitPath("users/u2/name")); got != "bob" {
		t.Fatalf("peer clobbered: %v", got)
	}
	pos := Children(tree.Get(SplitPath("users/u1/position")))
	if pos["lineNumber"] != 4.0 || pos["column"] != 10.0 {
		t.Fatalf("unexpected position: %v", pos)
	}
}

func TestTreeRemovePrunesEmptyAncestors(t *testing.T) {
	tree := NewTree()
	tree.Set(SplitPath("code"), "x")
	tree.Set(SplitPath("users/u1/name"), "alice")

	tree.Remove(SplitPath("users/u1/name"))

	if got := tree.Get(SplitPath("users")); got != nil {
		t.Fatalf("expected users pruned, got %v", got)
	}
	if got := tree.Get(SplitPath("code")); got != "x" {
		t.Fatalf("code lost: %v", got)
	}

	tree.Remove(SplitPath("code"))
	if got := tree.Get(nil); got != nil {
		t.Fatalf("expected empty tree, got %v", got)
	}
}

func TestTreeEmptyObjectRemoves(t *testing.T) {
	tree := NewTree()
	tree.Set(SplitPath("users/u1/name"), "alice")
	tree.Set(SplitPath("users/u1"), map[string]any{})

	if got := tree.Get(SplitPath("users/u1")); got != nil {
		t.Fatalf("expected removal, got %v", got)
	}
}

func TestTreeScalarReplacedByBranch(t *testing.T) {
	tree := NewTree()
	tree.Set(SplitPath("users"), "garbage")
	tree.Set(SplitPath("users/u1/name"), "alice")

	if got := tree.Get(SplitPath("users/u1/name")); got != "alice" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestNormalizeStruct(t *testing.T) {
	type pos struct {
		LineNumber int `json:"lineNumber"`
		Column     int `json:"column"`
	}
	v, err := Normalize(pos{LineNumber: 2, Column: 3})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	m := Children(v)
	if m["lineNumber"] != 2.0 || m["column"] != 3.0 {
		t.Fatalf("unexpected normalized value: %v", v)
	}
}

func TestDiffChildren(t *testing.T) {
	prev := map[string]any{
		"a": map[string]any{"color": "red"},
		"b": map[string]any{"color": "blue"},
		"c": "gone",
	}
	next := map[string]any{
		"a": map[string]any{"color": "red"},
		"b": map[string]any{"color": "green"},
		"d": "new",
	}

	got := DiffChildren(prev, next)
	want := []struct {
		kind ChildKind
		key  string
	}{
		{ChildRemoved, "c"},
		{ChildChanged, "b"},
		{ChildAdded, "d"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d changes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Kind != want[i].kind || got[i].Key != want[i].key {
			t.Errorf("change %d = %v %s, want %v %s", i, got[i].Kind, got[i].Key, want[i].kind, want[i].key)
		}
	}
}

func TestRelated(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"users", "users/u1/position", true},
		{"users/u1/position", "users", true},
		{"code", "users/u1", false},
		{"", "code", true},
	}
	for _, tt := range tests {
		if got := Related(SplitPath(tt.a), SplitPath(tt.b)); got != tt.want {
			t.Errorf("Related(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
