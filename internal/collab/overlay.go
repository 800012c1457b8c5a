package collab

import (
	"fmt"
	"sort"
)

// Range is an editor range with 1-based inclusive start and exclusive end.
type Range struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// DecorationKind tells cursor markers from selection highlights.
type DecorationKind int

const (
	DecorationCursor DecorationKind = iota
	DecorationSelection
)

// Decoration is one visual marker attributed to a peer.
type Decoration struct {
	Kind      DecorationKind
	UserCode  string
	Range     Range
	ClassName string
}

// Surface is the part of the host editor that displays decorations.
// DeltaDecorations removes the decorations behind old, adds next and
// returns the handles of the new set.
type Surface interface {
	DeltaDecorations(old []string, next []Decoration) []string
}

// Style is the per-peer styling the host turns into concrete rules.
// Revision changes every time the style is (re)created.
type Style struct {
	UserCode       string
	Name           string
	Color          string
	CursorClass    string
	HighlightClass string
	Revision       int
}

// CSS renders the style as stylesheet rules for web hosts.
func (s Style) CSS() string {
	return fmt.Sprintf(
		".%[1]s { border: 1px solid %[3]s; } "+
			".%[1]s::after { content: %[4]q; position: absolute; top: 20px; left: 0; background-color: %[3]s; color: white; padding: 1px; font-size: 10px; white-space: nowrap; z-index: 1000; } "+
			".%[2]s { border: 1px solid %[3]s; background-color: %[3]s; }",
		s.CursorClass, s.HighlightClass, s.Color, s.Name,
	)
}

// CursorClass is the class name of a peer's cursor marker.
func CursorClass(userCode string) string { return "cursor-" + userCode }

// HighlightClass is the class name of a peer's selection highlight.
func HighlightClass(userCode string) string { return "highlight-" + userCode }

// Overlay projects the peer map onto decorations and keeps the style table.
// Every Render replaces the whole decoration set.
type Overlay struct {
	surface  Surface
	styles   map[string]Style
	handles  []string
	revision int
}

// NewOverlay builds a renderer drawing on surface. With a nil surface only
// the style table is kept.
func NewOverlay(surface Surface) *Overlay {
	return &Overlay{surface: surface, styles: make(map[string]Style)}
}

// AddStyle creates the style of a peer if it does not exist yet.
func (o *Overlay) AddStyle(p UserPresence) {
	if _, ok := o.styles[p.Code]; ok {
		return
	}
	o.putStyle(p)
}

// RecreateStyle tears down and recreates a peer's style.
func (o *Overlay) RecreateStyle(p UserPresence) {
	o.RemoveStyle(p.Code)
	o.putStyle(p)
}

// RemoveStyle drops a peer's style.
func (o *Overlay) RemoveStyle(userCode string) {
	delete(o.styles, userCode)
}

func (o *Overlay) putStyle(p UserPresence) {
	o.revision++
	o.styles[p.Code] = Style{
		UserCode:       p.Code,
		Name:           p.Name,
		Color:          p.Color,
		CursorClass:    CursorClass(p.Code),
		HighlightClass: HighlightClass(p.Code),
		Revision:       o.revision,
	}
}

// Style returns the style of one peer.
func (o *Overlay) Style(userCode string) (Style, bool) {
	s, ok := o.styles[userCode]
	return s, ok
}

// Styles returns the style table ordered by user code.
func (o *Overlay) Styles() []Style {
	out := make([]Style, 0, len(o.styles))
	for _, s := range o.styles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserCode < out[j].UserCode })
	return out
}

// Render recomputes every decoration from peers and swaps the set on the
// surface.
func (o *Overlay) Render(peers map[string]UserPresence) {
	o.swap(BuildDecorations(peers))
}

// Clear removes all decorations from the surface.
func (o *Overlay) Clear() {
	o.swap(nil)
}

func (o *Overlay) swap(next []Decoration) {
	if o.surface == nil {
		return
	}
	o.handles = o.surface.DeltaDecorations(o.handles, next)
}

// BuildDecorations derives the decorations of a peer map: a cursor marker
// for every valid position and a highlight for every non-empty selection,
// ordered by user code.
func BuildDecorations(peers map[string]UserPresence) []Decoration {
	codes := make([]string, 0, len(peers))
	for code := range peers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []Decoration
	for _, code := range codes {
		p := peers[code]
		if p.Position.Valid() {
			out = append(out, Decoration{
				Kind:     DecorationCursor,
				UserCode: code,
				Range: Range{
					StartLine:   p.Position.LineNumber,
					StartColumn: p.Position.Column,
					EndLine:     p.Position.LineNumber,
					EndColumn:   p.Position.Column,
				},
				ClassName: CursorClass(code),
			})
		}
		if !p.Selection.Empty() {
			out = append(out, Decoration{
				Kind:     DecorationSelection,
				UserCode: code,
				Range: Range{
					StartLine:   p.Selection.Begin.LineNumber,
					StartColumn: p.Selection.Begin.Column,
					EndLine:     p.Selection.End.LineNumber,
					EndColumn:   p.Selection.End.Column,
				},
				ClassName: HighlightClass(code),
			})
		}
	}
	return out
}
