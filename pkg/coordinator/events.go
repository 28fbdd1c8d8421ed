package coordinator

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
)

// EventType names a coordinator notification.
type EventType string

const (
	EventRecordingStarted EventType = "recording_started"
	EventActionRecorded   EventType = "action_recorded"
	EventRecordingStopped EventType = "recording_stopped"
	EventPlaybackStarted  EventType = "playback_started"
	EventPlaybackProgress EventType = "playback_progress"
	EventPlaybackFinished EventType = "playback_finished"
	EventFlowsChanged     EventType = "flows_changed"
)

// Event is published to subscribers. Action holds the flat wire form of
// the action it concerns. Merged marks an action that replaced the last
// recorded one.
type Event struct {
	Type    EventType       `json:"type"`
	Time    time.Time       `json:"time"`
	TabID   string          `json:"tabId,omitempty"`
	FlowID  string          `json:"flowId,omitempty"`
	Action  json.RawMessage `json:"action,omitempty"`
	Index   int             `json:"index,omitempty"`
	Total   int             `json:"total,omitempty"`
	Count   int             `json:"count,omitempty"`
	Report  *player.Report  `json:"report,omitempty"`
	Skipped bool            `json:"skipped,omitempty"`
	Merged  bool            `json:"merged,omitempty"`
}

func withAction(ev Event, a flow.Action) Event {
	if b, err := flow.MarshalAction(a); err == nil {
		ev.Action = b
	}
	return ev
}

// eventBufferSize bounds each subscriber's queue. Slow subscribers lose
// events rather than stall recording or playback.
const eventBufferSize = 64

// bus fans events out to subscribers without blocking publishers.
type bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	logger *logging.Logger
}

func newBus(logger *logging.Logger) *bus {
	return &bus{subs: make(map[int]chan Event), logger: logger}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, eventBufferSize)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *bus) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warnf("subscriber %d is full, dropping %s event", id, ev.Type)
		}
	}
}
