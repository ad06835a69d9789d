package config

import "sync"

// Runtime holds the reloadable Confetti section. Readers always see a
// complete snapshot; Reload swaps it atomically.
type Runtime struct {
	mu       sync.RWMutex
	confetti Confetti
	onReload []func(Confetti)
}

// NewRuntime returns a Runtime initialised with c.
func NewRuntime(c Confetti) *Runtime {
	return &Runtime{confetti: c}
}

// Get returns the current snapshot.
func (r *Runtime) Get() Confetti {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.confetti
}

// Reload replaces the snapshot and runs the registered callbacks.
func (r *Runtime) Reload(c Confetti) {
	r.mu.Lock()
	r.confetti = c
	callbacks := append([]func(Confetti){}, r.onReload...)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(c)
	}
}

// OnReload registers fn to be called after every Reload.
func (r *Runtime) OnReload(fn func(Confetti)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onReload = append(r.onReload, fn)
}
