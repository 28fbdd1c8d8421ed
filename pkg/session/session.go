// Package session guards the recording and playback activities against
// re-entry.
package session

import "sync"

// State is the lifecycle state of a guarded activity.
type State int

const (
	// Idle means the activity is not running.
	Idle State = iota
	// Active means the activity is running.
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Machine is a two-state guard for a named activity such as "recording"
// or "playback". A second entry while active is refused.
type Machine struct {
	name  string
	mu    sync.Mutex
	state State
}

// New returns an idle machine.
func New(name string) *Machine {
	return &Machine{name: name}
}

// Name returns the activity name.
func (m *Machine) Name() string {
	return m.name
}

// TryEnter transitions Idle to Active. It returns false when already active.
func (m *Machine) TryEnter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active {
		return false
	}
	m.state = Active
	return true
}

// Leave returns the machine to Idle. Leaving an idle machine is a no-op.
func (m *Machine) Leave() {
	m.mu.Lock()
	m.state = Idle
	m.mu.Unlock()
}

// Active reports whether the activity is running.
func (m *Machine) Active() bool {
	return m.State() == Active
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
