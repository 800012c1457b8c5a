package collab

import (
	"strconv"
	"sync"
)

// Buffer is a headless Editor and Surface. It backs the CLI client and tests.
type Buffer struct {
	mu          sync.Mutex
	value       string
	language    string
	decorations []Decoration
	nextHandle  int

	onChange func(value string)
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// OnChange installs a hook called after every SetValue, the way a real editor
// reports programmatic edits as content changes. It runs without the lock.
func (b *Buffer) OnChange(fn func(value string)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

func (b *Buffer) SetValue(v string) {
	b.mu.Lock()
	b.value = v
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// Type replaces the content as a local edit would, without the change hook.
func (b *Buffer) Type(v string) {
	b.mu.Lock()
	b.value = v
	b.mu.Unlock()
}

func (b *Buffer) Language() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.language
}

func (b *Buffer) SetLanguage(lang string) {
	b.mu.Lock()
	b.language = lang
	b.mu.Unlock()
}

func (b *Buffer) DeltaDecorations(old []string, next []Decoration) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decorations = append([]Decoration(nil), next...)
	handles := make([]string, len(next))
	for i := range next {
		b.nextHandle++
		handles[i] = strconv.Itoa(b.nextHandle)
	}
	return handles
}

// Decorations returns what is currently drawn.
func (b *Buffer) Decorations() []Decoration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Decoration(nil), b.decorations...)
}
