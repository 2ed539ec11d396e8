package events

import (
	"slices"
	"sync"
)

type visibilityListener struct {
	id int
	fn func(bool)
}

// VisibilityBus tracks whether the front end is in the foreground.
type VisibilityBus struct {
	mu        sync.Mutex
	visible   bool
	listeners []visibilityListener
	nextID    int
}

// NewVisibilityBus creates a bus that starts visible.
func NewVisibilityBus() *VisibilityBus {
	return &VisibilityBus{visible: true}
}

// OnVisibilityChange implements autoplay.VisibilitySource.
func (b *VisibilityBus) OnVisibilityChange(fn func(visible bool)) (remove func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, visibilityListener{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listeners = slices.DeleteFunc(b.listeners, func(l visibilityListener) bool { return l.id == id })
	}
}

// Set records a visibility change and notifies listeners. Repeating the
// current value is ignored.
func (b *VisibilityBus) Set(visible bool) {
	b.mu.Lock()
	if b.visible == visible {
		b.mu.Unlock()
		return
	}
	b.visible = visible
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l.fn(visible)
	}
}

// Visible reports the last known visibility.
func (b *VisibilityBus) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}
