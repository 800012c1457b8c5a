package collab

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/identity"
)

// Presence owns the local user's entry under users/<code> and mirrors every
// other entry into a peer map that drives the overlay.
//
// Only the local entry is ever written. Events about the local entry are
// ignored, so the local user never draws a marker for itself.
//
// Presence is not safe for concurrent use.
type Presence struct {
	store   Store
	key     string
	overlay *Overlay
	log     *zerolog.Logger

	local UserPresence
	peers map[string]UserPresence
}

// NewPresence builds the tracker for room key. overlay may be nil.
func NewPresence(st Store, key string, self identity.LocalIdentity, overlay *Overlay, logger *zerolog.Logger) *Presence {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if overlay == nil {
		overlay = NewOverlay(nil)
	}
	return &Presence{
		store:   st,
		key:     key,
		overlay: overlay,
		log:     logger,
		local: UserPresence{
			Code:     self.UserCode,
			Name:     self.UserName,
			Color:    self.Color,
			Position: DefaultPosition,
		},
		peers: make(map[string]UserPresence),
	}
}

func (p *Presence) path(parts ...string) string {
	return roomPath(p.key, append([]string{"users", p.local.Code}, parts...)...)
}

// Join writes the whole local entry. It must run before subscribing to the
// users map.
func (p *Presence) Join(ctx context.Context) error {
	if p.local.Code == "" || p.local.Name == "" {
		return identity.ErrIncomplete
	}
	p.local.Position = DefaultPosition
	p.local.Selection = Selection{}
	if err := p.store.Set(ctx, p.path(), presenceValue(p.local)); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("join room")
		return fmt.Errorf("join room: %w", err)
	}
	p.log.Info().Str("room", p.key).Str("user", p.local.Code).Msg("joined room")
	return nil
}

// SetLocalCursor patches the local position. It reports whether a write
// happened; an unchanged position is not written.
func (p *Presence) SetLocalCursor(ctx context.Context, pos Position) (bool, error) {
	if pos == p.local.Position {
		return false, nil
	}
	if err := p.store.Set(ctx, p.path("position"), positionValue(pos)); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("write position")
		return false, fmt.Errorf("write position: %w", err)
	}
	p.local.Position = pos
	return true, nil
}

// SetLocalSelection patches the local selection.
func (p *Presence) SetLocalSelection(ctx context.Context, sel Selection) (bool, error) {
	if sel == p.local.Selection {
		return false, nil
	}
	if err := p.store.Set(ctx, p.path("selection"), selectionValue(sel)); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("write selection")
		return false, fmt.Errorf("write selection: %w", err)
	}
	p.local.Selection = sel
	return true, nil
}

// RenameLocal patches the local display name.
func (p *Presence) RenameLocal(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, identity.ErrIncomplete
	}
	if name == p.local.Name {
		return false, nil
	}
	if err := p.store.Set(ctx, p.path("name"), name); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("write name")
		return false, fmt.Errorf("write name: %w", err)
	}
	p.local.Name = name
	return true, nil
}

// RecolorLocal patches the local color.
func (p *Presence) RecolorLocal(ctx context.Context, color string) (bool, error) {
	if color == p.local.Color {
		return false, nil
	}
	if err := p.store.Set(ctx, p.path("color"), color); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("write color")
		return false, fmt.Errorf("write color: %w", err)
	}
	p.local.Color = color
	return true, nil
}

// Leave deletes the local entry. It is best effort: an abrupt disconnect
// leaves the entry behind.
func (p *Presence) Leave(ctx context.Context) error {
	if p.local.Code == "" {
		return nil
	}
	if err := p.store.Remove(ctx, p.path()); err != nil {
		p.log.Warn().Err(err).Str("room", p.key).Msg("leave room")
		return fmt.Errorf("leave room: %w", err)
	}
	return nil
}

// HandleChild dispatches an event from the users map subscription.
func (p *Presence) HandleChild(ev ChildEvent) bool {
	switch ev.Kind {
	case ChildAdded:
		return p.ChildAdded(ev.Key, ev.Value)
	case ChildChanged:
		return p.ChildChanged(ev.Key, ev.Value)
	case ChildRemoved:
		return p.ChildRemoved(ev.Key)
	default:
		return false
	}
}

// ChildAdded registers a peer, creates its style and redraws.
func (p *Presence) ChildAdded(code string, v any) bool {
	if code == p.local.Code {
		return false
	}
	peer := decodePresence(code, v)
	p.peers[code] = peer
	p.overlay.AddStyle(peer)
	p.overlay.Render(p.peers)
	p.log.Debug().Str("room", p.key).Str("peer", code).Msg("peer joined")
	return true
}

// ChildChanged updates a peer. A new name or color recreates that peer's
// style; any change redraws.
func (p *Presence) ChildChanged(code string, v any) bool {
	if code == p.local.Code {
		return false
	}
	next := decodePresence(code, v)
	prev, ok := p.peers[code]
	if !ok {
		return p.ChildAdded(code, v)
	}
	if prev == next {
		return false
	}
	p.peers[code] = next
	if prev.Color != next.Color || prev.Name != next.Name {
		p.overlay.RecreateStyle(next)
	}
	p.overlay.Render(p.peers)
	return true
}

// ChildRemoved forgets a peer and its style.
func (p *Presence) ChildRemoved(code string) bool {
	if code == p.local.Code {
		return false
	}
	if _, ok := p.peers[code]; !ok {
		return false
	}
	delete(p.peers, code)
	p.overlay.RemoveStyle(code)
	p.overlay.Render(p.peers)
	p.log.Debug().Str("room", p.key).Str("peer", code).Msg("peer left")
	return true
}

// Peers returns the remote peers ordered by user code.
func (p *Presence) Peers() []UserPresence {
	out := make([]UserPresence, 0, len(p.peers))
	for _, peer := range p.peers {
		out = append(out, peer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Local returns the local entry as last written.
func (p *Presence) Local() UserPresence {
	return p.local
}

func positionValue(pos Position) map[string]any {
	return map[string]any{"lineNumber": pos.LineNumber, "column": pos.Column}
}

func selectionValue(sel Selection) map[string]any {
	return map[string]any{"begin": positionValue(sel.Begin), "end": positionValue(sel.End)}
}

func presenceValue(u UserPresence) map[string]any {
	return map[string]any{
		"name":      u.Name,
		"color":     u.Color,
		"position":  positionValue(u.Position),
		"selection": selectionValue(u.Selection),
	}
}
