package collab

import (
	"errors"
	"strings"
)

// Supported room languages.
var Languages = []string{"csharp", "html", "java", "javascript", "markdown", "python", "ruby"}

// DefaultLanguage is used when a room has no language yet.
const DefaultLanguage = "csharp"

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrBadKey          = errors.New("invalid room key")
	ErrClosed          = errors.New("session closed")
)

// ValidLanguage reports whether lang is one of Languages.
func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Position is a 1-based cursor location.
type Position struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

// Valid reports whether the position points into a document.
func (p Position) Valid() bool {
	return p.LineNumber >= 1 && p.Column >= 1
}

// Selection is a range between two positions.
type Selection struct {
	Begin Position `json:"begin"`
	End   Position `json:"end"`
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool {
	return s.Begin == s.End || !s.Begin.Valid() || !s.End.Valid()
}

// UserPresence is one connected user's entry under users/<code>.
type UserPresence struct {
	Code      string    `json:"-"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Position  Position  `json:"position"`
	Selection Selection `json:"selection"`
}

// DefaultPosition is where a freshly joined user's cursor sits.
var DefaultPosition = Position{LineNumber: 1, Column: 1}

func roomPath(key string, parts ...string) string {
	return "/" + key + "/" + strings.Join(parts, "/")
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func decodePosition(v any) Position {
	m, _ := v.(map[string]any)
	return Position{LineNumber: asInt(m["lineNumber"]), Column: asInt(m["column"])}
}

func decodeSelection(v any) Selection {
	m, _ := v.(map[string]any)
	return Selection{Begin: decodePosition(m["begin"]), End: decodePosition(m["end"])}
}

// decodePresence reads a peer entry. Malformed or absent fields default to
// zero values instead of failing.
func decodePresence(code string, v any) UserPresence {
	m, _ := v.(map[string]any)
	return UserPresence{
		Code:      code,
		Name:      asString(m["name"]),
		Color:     asString(m["color"]),
		Position:  decodePosition(m["position"]),
		Selection: decodeSelection(m["selection"]),
	}
}
