package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SplitPath breaks a slash separated path into segments, ignoring empty ones.
func SplitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// JoinPath renders segments back into the canonical "/a/b" form.
func JoinPath(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}

// Normalize converts an arbitrary Go value into the JSON shaped form the tree
// stores: nil, bool, float64, string, []any or map[string]any.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, float64, string:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return out, nil
}

type node struct {
	value    any
	children map[string]*node
}

func buildNode(v any) *node {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		n := &node{children: make(map[string]*node, len(val))}
		for k, child := range val {
			if k == "" || strings.Contains(k, "/") {
				continue
			}
			if cn := buildNode(child); cn != nil {
				n.children[k] = cn
			}
		}
		if len(n.children) == 0 {
			return nil
		}
		return n
	default:
		return &node{value: v}
	}
}

func (n *node) export() any {
	if n == nil {
		return nil
	}
	if n.children == nil {
		return n.value
	}
	out := make(map[string]any, len(n.children))
	for k, child := range n.children {
		out[k] = child.export()
	}
	return out
}

// Tree is a JSON document addressed by slash separated paths.
// Objects are stored as child nodes so partial writes never touch siblings.
// Tree is not safe for concurrent use.
type Tree struct {
	root *node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Get returns the value stored under path, or nil.
func (t *Tree) Get(path []string) any {
	n := t.root
	for _, seg := range path {
		if n == nil || n.children == nil {
			return nil
		}
		n = n.children[seg]
	}
	return n.export()
}

// Set replaces the subtree under path with v. A nil value or an empty object
// removes the node and prunes ancestors left without children.
func (t *Tree) Set(path []string, v any) {
	built := buildNode(v)
	if len(path) == 0 {
		t.root = built
		return
	}
	if built == nil {
		t.remove(path)
		return
	}

	if t.root == nil || t.root.children == nil {
		t.root = &node{children: make(map[string]*node)}
	}
	n := t.root
	for _, seg := range path[:len(path)-1] {
		next := n.children[seg]
		if next == nil || next.children == nil {
			// A scalar on the way down is replaced by a branch.
			next = &node{children: make(map[string]*node)}
			n.children[seg] = next
		}
		n = next
	}
	n.children[path[len(path)-1]] = built
}

// Remove deletes the subtree under path.
func (t *Tree) Remove(path []string) {
	t.Set(path, nil)
}

func (t *Tree) remove(path []string) {
	trail := make([]*node, 0, len(path))
	n := t.root
	for _, seg := range path[:len(path)-1] {
		if n == nil || n.children == nil {
			return
		}
		trail = append(trail, n)
		n = n.children[seg]
	}
	if n == nil || n.children == nil {
		return
	}
	delete(n.children, path[len(path)-1])
	trail = append(trail, n)

	for i := len(trail) - 1; i > 0; i-- {
		if len(trail[i].children) > 0 {
			return
		}
		delete(trail[i-1].children, path[i-1])
	}
	if len(t.root.children) == 0 {
		t.root = nil
	}
}

// Related reports whether a write at one path can change the value at the other.
func Related(a, b []string) bool {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
