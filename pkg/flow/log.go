package flow

import "sync"

// DefaultMergeWindow is the window, in milliseconds, within which a
// repeated action on the same selector replaces the previous one.
const DefaultMergeWindow int64 = 100

// Log is an append-only action sequence that collapses bursts of
// same-type, same-selector actions. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	window  int64
	actions Actions
}

// NewLog returns a log using the given merge window in milliseconds.
// A non-positive window selects DefaultMergeWindow.
func NewLog(window int64) *Log {
	if window <= 0 {
		window = DefaultMergeWindow
	}
	return &Log{window: window}
}

// Append adds a to the log. When a has the same type and selector as the
// last entry and its timestamp is within the merge window, a replaces that
// entry and Append returns true.
func (l *Log) Append(a Action) (merged bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.actions); n > 0 && l.mergeable(l.actions[n-1], a) {
		l.actions[n-1] = a
		return true
	}
	l.actions = append(l.actions, a)
	return false
}

func (l *Log) mergeable(last, next Action) bool {
	if last.Type() != next.Type() {
		return false
	}
	lh, nh := last.Header(), next.Header()
	if lh.Selector != nh.Selector {
		return false
	}
	delta := nh.Timestamp - lh.Timestamp
	if delta < 0 {
		delta = -delta
	}
	return delta < l.window
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// Last returns the most recent entry, or nil.
func (l *Log) Last() Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.actions) == 0 {
		return nil
	}
	return l.actions[len(l.actions)-1]
}

// Snapshot returns a copy of the entries.
func (l *Log) Snapshot() Actions {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(Actions, len(l.actions))
	copy(out, l.actions)
	return out
}

// Drain returns the entries and clears the log.
func (l *Log) Drain() Actions {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.actions
	l.actions = nil
	if out == nil {
		out = Actions{}
	}
	return out
}
