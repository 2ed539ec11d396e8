package autoplay

import (
	"context"
	"sync"
)

// Unlock is the shared result of an unlock request. Every caller that asks
// while the same request is in flight receives the same *Unlock.
type Unlock struct {
	done chan struct{}
	once sync.Once
	ok   bool
}

func newUnlock() *Unlock {
	return &Unlock{done: make(chan struct{})}
}

func resolvedUnlock(ok bool) *Unlock {
	u := newUnlock()
	u.resolve(ok)
	return u
}

// resolve settles the request. It reports whether this call settled it.
func (u *Unlock) resolve(ok bool) bool {
	settled := false
	u.once.Do(func() {
		u.ok = ok
		close(u.done)
		settled = true
	})
	return settled
}

// Done is closed once the request has settled.
func (u *Unlock) Done() <-chan struct{} {
	return u.done
}

// Result returns the outcome, or false while the request is still pending.
func (u *Unlock) Result() bool {
	select {
	case <-u.done:
		return u.ok
	default:
		return false
	}
}

// Wait blocks until the request settles or ctx is done. A cancelled wait
// returns false without affecting other waiters.
func (u *Unlock) Wait(ctx context.Context) bool {
	select {
	case <-u.done:
		return u.ok
	case <-ctx.Done():
		return false
	}
}
