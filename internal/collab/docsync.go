package collab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Editor is the local editing surface.
//
// SetValue is a programmatic replacement of the buffer. The editor may report
// it back as a local change, synchronously or later; DocSync recognises that
// echo and does not write it to the store.
type Editor interface {
	Value() string
	SetValue(v string)
	SetLanguage(lang string)
}

// DocSync keeps the editor buffer and the room's code and language in step.
// The store holds whole buffers and the last write wins; there is no merge.
//
// DocSync is not safe for concurrent use. Session drives it from one goroutine.
type DocSync struct {
	store  Store
	key    string
	editor Editor
	log    *zerolog.Logger

	code     string // last buffer known to be in the store
	synced   bool   // code has been read from the store at least once
	language string // last language known to be in the store

	// echo holds the value of the last remote apply until the editor reports
	// the matching change. A single entry is enough: the store delivers one
	// key's updates in order and the editor reports them in order.
	echo    string
	echoSet bool

	// pending holds code values written by this client, oldest first, whose
	// value events have not come back yet. While it is non-empty the store is
	// about to hold this client's latest write, so inbound values never reach
	// the editor.
	pending []string
}

// NewDocSync builds the engine for room key.
func NewDocSync(st Store, key string, ed Editor, logger *zerolog.Logger) *DocSync {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DocSync{store: st, key: key, editor: ed, log: logger}
}

// Init reads the current language and code once and applies them, so the
// editor shows content before any subscription fires. Read failures are
// logged and the defaults are applied.
func (d *DocSync) Init(ctx context.Context) error {
	var firstErr error

	lang, err := d.store.Get(ctx, roomPath(d.key, "language"))
	if err != nil {
		d.log.Warn().Err(err).Str("room", d.key).Msg("read language")
		firstErr = fmt.Errorf("read language: %w", err)
	}
	d.ApplyRemoteLanguage(lang)

	code, err := d.store.Get(ctx, roomPath(d.key, "code"))
	if err != nil {
		d.log.Warn().Err(err).Str("room", d.key).Msg("read code")
		if firstErr == nil {
			firstErr = fmt.Errorf("read code: %w", err)
		}
	}
	d.ApplyRemoteCode(code)

	return firstErr
}

// ApplyRemoteCode handles an inbound code value. Absent values mean an empty
// buffer. It reports whether the editor was changed.
//
// The event of this client's own write only settles it. A foreign value
// arriving before that event was committed before the write and is
// overwritten by it, so it is skipped too.
func (d *DocSync) ApplyRemoteCode(v any) bool {
	code := asString(v)
	if len(d.pending) > 0 {
		for i, w := range d.pending {
			if w == code {
				d.pending = d.pending[i+1:]
				break
			}
		}
		if len(d.pending) == 0 {
			d.code, d.synced = code, true
		}
		return false
	}
	if d.synced && code == d.code {
		// Nothing new in the store; a differing editor holds a local edit
		// that is about to be pushed.
		return false
	}
	d.code, d.synced = code, true
	if d.editor.Value() == code {
		return false
	}

	d.echo, d.echoSet = code, true
	d.editor.SetValue(code)
	d.log.Debug().Str("room", d.key).Int("len", len(code)).Msg("applied remote code")
	return true
}

// PushCodeIfChanged is the outbound path, called on every local content
// change. The whole buffer is written unless the change is the echo of a
// remote apply or the store already holds it. It reports whether a write
// happened. Failures are logged and not retried.
func (d *DocSync) PushCodeIfChanged(ctx context.Context) (bool, error) {
	current := d.editor.Value()

	if d.echoSet {
		armed := d.echo
		d.echo, d.echoSet = "", false
		if armed == current {
			return false, nil
		}
	}
	if current == d.code {
		return false, nil
	}

	d.pending = append(d.pending, current)
	if err := d.store.Set(ctx, roomPath(d.key, "code"), current); err != nil {
		d.pending = d.pending[:len(d.pending)-1]
		d.log.Warn().Err(err).Str("room", d.key).Msg("write code")
		return false, fmt.Errorf("write code: %w", err)
	}
	d.code = current
	return true, nil
}

// ApplyRemoteLanguage handles an inbound language value.
func (d *DocSync) ApplyRemoteLanguage(v any) bool {
	lang := asString(v)
	if lang == "" {
		lang = DefaultLanguage
	}
	if lang == d.language {
		return false
	}
	d.language = lang
	d.editor.SetLanguage(lang)
	return true
}

// SetLanguage switches the room language from the local side. Selecting the
// value just received from the store does not write it back.
func (d *DocSync) SetLanguage(ctx context.Context, lang string) (bool, error) {
	if !ValidLanguage(lang) {
		return false, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	if lang == d.language {
		return false, nil
	}

	d.editor.SetLanguage(lang)
	if err := d.store.Set(ctx, roomPath(d.key, "language"), lang); err != nil {
		d.log.Warn().Err(err).Str("room", d.key).Msg("write language")
		return false, fmt.Errorf("write language: %w", err)
	}
	d.language = lang
	return true, nil
}

// Language returns the last language known to be in the store.
func (d *DocSync) Language() string {
	return d.language
}
