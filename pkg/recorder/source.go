package recorder

import (
	"github.com/entrhq/formflow/pkg/dom"
	"github.com/entrhq/formflow/pkg/flow"
)

// EventKind is the DOM event class delivered by an EventSource.
type EventKind string

const (
	EventInput    EventKind = "input"
	EventChange   EventKind = "change"
	EventClick    EventKind = "click"
	EventFocus    EventKind = "focus"
	EventKeydown  EventKind = "keydown"
	EventMutation EventKind = "mutation"
)

// RawEvent is one captured page event. Value, Checked, SelectedText, Key
// and Href carry live state read at dispatch time, since the target
// snapshot only reflects attributes.
type RawEvent struct {
	Kind   EventKind
	Target dom.Element

	Value        string
	Checked      bool
	SelectedText string
	Key          string
	Href         string

	// Added holds the elements inserted by a mutation.
	Added []dom.Element
}

// EventSource delivers page events to a single handler until unsubscribed.
// Handlers may be invoked from any goroutine.
type EventSource interface {
	Subscribe(handler func(RawEvent)) (unsubscribe func(), err error)
}

// Sink receives recorded actions in sequence order. merged is true when a
// replaced the last entry instead of extending the sequence.
type Sink func(a flow.Action, merged bool) error
