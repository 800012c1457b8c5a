package collab_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/store/memory"
)

func ident(code, name, color string) identity.LocalIdentity {
	return identity.LocalIdentity{UserCode: code, UserName: name, Color: color, Theme: identity.DefaultTheme}
}

func peerValue(name, color string, line, col int) map[string]any {
	return map[string]any{
		"name":  name,
		"color": color,
		"position": map[string]any{
			"lineNumber": float64(line),
			"column":     float64(col),
		},
	}
}

func TestJoinWritesFullEntry(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	p := collab.NewPresence(st, "abc123", ident("u1", "ann", "blue"), nil, nil)

	if err := p.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	got, _ := st.Get(ctx, "/abc123/users/u1")
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entry = %#v", got)
	}
	if m["name"] != "ann" || m["color"] != "blue" {
		t.Fatalf("entry = %#v", m)
	}
	pos, _ := m["position"].(map[string]any)
	if pos["lineNumber"] != float64(1) || pos["column"] != float64(1) {
		t.Fatalf("position = %#v, want 1:1", pos)
	}
	if _, ok := m["selection"].(map[string]any); !ok {
		t.Fatalf("selection missing: %#v", m)
	}
}

func TestJoinRequiresIdentity(t *testing.T) {
	p := collab.NewPresence(memory.New(), "abc123", identity.LocalIdentity{UserCode: "u1"}, nil, nil)
	if err := p.Join(context.Background()); !errors.Is(err, identity.ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}

func TestPresenceIsolation(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	self := collab.NewPresence(st, "abc123", ident("u1", "ann", "red"), nil, nil)
	other := collab.NewPresence(st, "abc123", ident("u2", "bob", "blue"), nil, nil)
	_ = self.Join(ctx)
	_ = other.Join(ctx)

	unsub, _ := st.OnChild(ctx, "/abc123/users", func(ev collab.ChildEvent) { self.HandleChild(ev) })
	defer unsub()

	before := len(st.Writes())
	if _, err := other.SetLocalCursor(ctx, collab.Position{LineNumber: 7, Column: 3}); err != nil {
		t.Fatalf("SetLocalCursor: %v", err)
	}
	if self.Local().Position != collab.DefaultPosition {
		t.Fatalf("peer move changed self: %+v", self.Local())
	}

	if _, err := self.SetLocalCursor(ctx, collab.Position{LineNumber: 2, Column: 5}); err != nil {
		t.Fatalf("SetLocalCursor: %v", err)
	}
	if _, err := self.SetLocalSelection(ctx, collab.Selection{
		Begin: collab.Position{LineNumber: 2, Column: 1},
		End:   collab.Position{LineNumber: 2, Column: 5},
	}); err != nil {
		t.Fatalf("SetLocalSelection: %v", err)
	}

	for _, w := range st.Writes()[before+1:] {
		if !strings.HasPrefix(w.Path, "/abc123/users/u1/") {
			t.Fatalf("self wrote outside its subtree: %s", w.Path)
		}
	}

	peers := self.Peers()
	if len(peers) != 1 || peers[0].Code != "u2" {
		t.Fatalf("peers = %+v, want only u2", peers)
	}
	if peers[0].Position != (collab.Position{LineNumber: 7, Column: 3}) {
		t.Fatalf("u2 position = %+v", peers[0].Position)
	}
}

func TestUnchangedCursorIsNotWritten(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	p := collab.NewPresence(st, "abc123", ident("u1", "ann", "red"), nil, nil)
	_ = p.Join(ctx)

	if wrote, _ := p.SetLocalCursor(ctx, collab.DefaultPosition); wrote {
		t.Fatal("unchanged position was written")
	}
	if wrote, _ := p.SetLocalSelection(ctx, collab.Selection{}); wrote {
		t.Fatal("unchanged selection was written")
	}
}

func TestPeerLifecycleLeavesNoTrace(t *testing.T) {
	surface := collab.NewBuffer()
	overlay := collab.NewOverlay(surface)
	p := collab.NewPresence(memory.New(), "abc123", ident("u1", "ann", "red"), overlay, nil)

	p.ChildAdded("x", peerValue("xena", "green", 3, 3))
	if len(p.Peers()) != 1 || len(overlay.Styles()) != 1 || len(surface.Decorations()) != 1 {
		t.Fatalf("peer not registered: peers=%d styles=%d decorations=%d",
			len(p.Peers()), len(overlay.Styles()), len(surface.Decorations()))
	}

	p.ChildRemoved("x")
	if len(p.Peers()) != 0 {
		t.Fatalf("peers = %+v", p.Peers())
	}
	if _, ok := overlay.Style("x"); ok || len(overlay.Styles()) != 0 {
		t.Fatalf("style leaked: %+v", overlay.Styles())
	}
	if len(surface.Decorations()) != 0 {
		t.Fatalf("decorations leaked: %+v", surface.Decorations())
	}
}

func TestColorChangeRecreatesOnlyThatStyle(t *testing.T) {
	overlay := collab.NewOverlay(nil)
	p := collab.NewPresence(memory.New(), "abc123", ident("u1", "ann", "red"), overlay, nil)

	p.ChildAdded("a", peerValue("amy", "green", 1, 1))
	p.ChildAdded("b", peerValue("ben", "blue", 2, 2))
	a0, _ := overlay.Style("a")
	b0, _ := overlay.Style("b")

	if !p.ChildChanged("a", peerValue("amy", "purple", 1, 1)) {
		t.Fatal("color change ignored")
	}
	a1, _ := overlay.Style("a")
	b1, _ := overlay.Style("b")

	if a1.Revision == a0.Revision || a1.Color != "purple" {
		t.Fatalf("style of a not recreated: %+v -> %+v", a0, a1)
	}
	if b1 != b0 {
		t.Fatalf("style of b changed: %+v -> %+v", b0, b1)
	}

	// A move keeps the style.
	p.ChildChanged("a", peerValue("amy", "purple", 9, 9))
	a2, _ := overlay.Style("a")
	if a2 != a1 {
		t.Fatalf("move recreated style: %+v -> %+v", a1, a2)
	}
}

func TestRenameAndRecolorPatchOneField(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	p := collab.NewPresence(st, "abc123", ident("u1", "ann", "red"), nil, nil)
	if err := p.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if changed, err := p.RenameLocal(ctx, "anna"); err != nil || !changed {
		t.Fatalf("RenameLocal = %v, %v", changed, err)
	}
	if changed, _ := p.RenameLocal(ctx, "anna"); changed {
		t.Fatal("same name written twice")
	}
	if _, err := p.RenameLocal(ctx, ""); !errors.Is(err, identity.ErrIncomplete) {
		t.Fatalf("empty name err = %v", err)
	}
	if changed, err := p.RecolorLocal(ctx, "teal"); err != nil || !changed {
		t.Fatalf("RecolorLocal = %v, %v", changed, err)
	}

	if n := len(st.WritesTo("/abc123/users/u1/name")); n != 1 {
		t.Fatalf("name writes = %d, want 1", n)
	}
	got, _ := st.Get(ctx, "/abc123/users/u1")
	m, _ := got.(map[string]any)
	if m["name"] != "anna" || m["color"] != "teal" || m["position"] == nil {
		t.Fatalf("entry = %#v", m)
	}
	if l := p.Local(); l.Name != "anna" || l.Color != "teal" {
		t.Fatalf("local = %+v", l)
	}
}

func TestSelfEventsAreIgnored(t *testing.T) {
	surface := collab.NewBuffer()
	overlay := collab.NewOverlay(surface)
	p := collab.NewPresence(memory.New(), "abc123", ident("u1", "ann", "red"), overlay, nil)

	if p.ChildAdded("u1", peerValue("ann", "red", 1, 1)) {
		t.Fatal("self added as peer")
	}
	if len(overlay.Styles()) != 0 || len(surface.Decorations()) != 0 {
		t.Fatal("self drawn")
	}
}

func TestMalformedPeerDefaults(t *testing.T) {
	surface := collab.NewBuffer()
	p := collab.NewPresence(memory.New(), "abc123", ident("u1", "ann", "red"), collab.NewOverlay(surface), nil)

	p.ChildAdded("z", "garbage")
	peers := p.Peers()
	if len(peers) != 1 || peers[0].Name != "" || peers[0].Position.Valid() {
		t.Fatalf("peers = %+v", peers)
	}
	if len(surface.Decorations()) != 0 {
		t.Fatalf("malformed peer drawn: %+v", surface.Decorations())
	}
}
