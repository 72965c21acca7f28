package vectorsync

import "sync"

// Gate enforces the at-most-one-writer rule for sync and hydrate. Requests
// arriving while the gate is held are rejected immediately, never queued.
type Gate struct {
	mu      sync.Mutex
	current string
}

func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire claims the gate for the named operation. Returns false without
// blocking if another operation holds it.
func (g *Gate) TryAcquire(operation string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != "" {
		return false
	}
	g.current = operation
	return true
}

// Release frees the gate. Callers must defer this immediately after a
// successful TryAcquire so error paths cannot leave the gate held.
func (g *Gate) Release() {
	g.mu.Lock()
	g.current = ""
	g.mu.Unlock()
}

// Current returns the operation holding the gate, or "none" when free.
func (g *Gate) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == "" {
		return "none"
	}
	return g.current
}
