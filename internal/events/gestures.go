package events

import (
	"slices"
	"sync"

	"github.com/dgnsrekt/autoplay/pkg/autoplay"
)

type registration struct {
	id    int
	kinds []autoplay.GestureKind
	fn    func(autoplay.GestureKind)
}

// GestureBus delivers gestures to one-shot listeners. Listeners run on the
// goroutine that calls Emit, in registration order.
type GestureBus struct {
	mu            sync.Mutex
	regs          []*registration
	nextID        int
	registrations int
}

// NewGestureBus creates an empty bus.
func NewGestureBus() *GestureBus {
	return &GestureBus{}
}

// Once implements autoplay.GestureSource.
func (b *GestureBus) Once(kinds []autoplay.GestureKind, fn func(autoplay.GestureKind)) (remove func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.regs = append(b.regs, &registration{id: id, kinds: slices.Clone(kinds), fn: fn})
	b.registrations++
	b.mu.Unlock()

	return func() { b.remove(id) }
}

func (b *GestureBus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs = slices.DeleteFunc(b.regs, func(r *registration) bool { return r.id == id })
}

// Emit publishes a gesture and returns how many listeners received it. Every
// listener that matched is removed before any of them runs.
func (b *GestureBus) Emit(kind autoplay.GestureKind) int {
	b.mu.Lock()
	var fired []*registration
	b.regs = slices.DeleteFunc(b.regs, func(r *registration) bool {
		if slices.Contains(r.kinds, kind) {
			fired = append(fired, r)
			return true
		}
		return false
	})
	b.mu.Unlock()

	for _, r := range fired {
		r.fn(kind)
	}
	return len(fired)
}

// Registrations returns how many times Once has been called.
func (b *GestureBus) Registrations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registrations
}

// Active returns the number of listeners still waiting for a gesture.
func (b *GestureBus) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.regs)
}
