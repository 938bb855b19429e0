package election

import "sync"

// weakRef stands in for the reference implementation's weak_ptr: Go has
// no native weak pointers, so a destruction callback instead closes over
// this mutex-guarded indirection. Close clears the target, after which
// get returns nil and any in-flight callback becomes a silent no-op
// rather than touching freed state.
type weakRef struct {
	mu     sync.Mutex
	target *Limiter
}

func (w *weakRef) get() *Limiter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

func (w *weakRef) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = nil
}
