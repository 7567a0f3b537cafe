package controller

import "sync"

// Guard is a binary busy lock. At most one mutating operation runs at a
// time; competing callers are told the experiment is busy rather than
// queued.
type Guard struct {
	mu    sync.Mutex
	held  bool
	label string
}

// NewGuard returns an unlocked guard.
func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire takes the guard for the labeled operation. It returns
// false immediately when another operation holds it.
func (g *Guard) TryAcquire(label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return false
	}
	g.held = true
	g.label = label
	return true
}

// Release frees the guard. Releasing an unheld guard is a no-op.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	g.label = ""
}

// Holder reports whether the guard is held and by which operation.
func (g *Guard) Holder() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.label, g.held
}
