package core

import (
	"reflect"
	"sort"
)

// ChildKind classifies a change to an immediate child of a watched node.
type ChildKind int

const (
	ChildAdded ChildKind = iota
	ChildChanged
	ChildRemoved
)

func (k ChildKind) String() string {
	switch k {
	case ChildAdded:
		return "child_added"
	case ChildChanged:
		return "child_changed"
	case ChildRemoved:
		return "child_removed"
	default:
		return "unknown"
	}
}

// ChildChange describes one child transition between two snapshots.
// Value holds the new value, or the last known value for removals.
type ChildChange struct {
	Kind  ChildKind
	Key   string
	Value any
}

// Equal compares two exported tree values.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Children returns the object entries of v, treating scalars as childless.
func Children(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// DiffChildren lists child transitions from prev to next. Removals come first,
// then additions and changes, each in key order.
func DiffChildren(prev, next any) []ChildChange {
	before := Children(prev)
	after := Children(next)

	var removed, rest []ChildChange
	for k, v := range before {
		if _, ok := after[k]; !ok {
			removed = append(removed, ChildChange{Kind: ChildRemoved, Key: k, Value: v})
		}
	}
	for k, v := range after {
		old, existed := before[k]
		switch {
		case !existed:
			rest = append(rest, ChildChange{Kind: ChildAdded, Key: k, Value: v})
		case !Equal(old, v):
			rest = append(rest, ChildChange{Kind: ChildChanged, Key: k, Value: v})
		}
	}
	sortChanges(removed)
	sortChanges(rest)
	return append(removed, rest...)
}

// AddedChildren lists every child of v as an addition, in key order.
func AddedChildren(v any) []ChildChange {
	return DiffChildren(nil, v)
}

func sortChanges(c []ChildChange) {
	sort.Slice(c, func(i, j int) bool { return c[i].Key < c[j].Key })
}
