package connectivity

import "sync"

// Monitor tracks the two-state online/offline signal fed in by the platform's
// connectivity events. Sends are refused while offline; edits, deletes and
// reaction toggles are not gated by this monitor.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	observers []func(online bool)
}

// NewMonitor creates a monitor in the online state.
func NewMonitor() *Monitor {
	return &Monitor{online: true}
}

// Online reports the current state. Polled synchronously on every send.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a transition to online and notifies observers.
func (m *Monitor) SetOnline() { m.transition(true) }

// SetOffline records a transition to offline and notifies observers.
func (m *Monitor) SetOffline() { m.transition(false) }

// Observe registers a callback invoked on every state transition. Repeated
// events in the same state do not notify.
func (m *Monitor) Observe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Monitor) transition(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	observers := append(([]func(online bool))(nil), m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(online)
	}
}
