// Package flow defines the recorded action log and the persisted flow record.
package flow

// Type identifies the kind of an Action.
type Type string

const (
	TypeNavigation Type = "navigation"
	TypeFocus      Type = "focus"
	TypeInput      Type = "input"
	TypeChange     Type = "change"
	TypeClick      Type = "click"
	TypeKeypress   Type = "keypress"
	TypeDOMChange  Type = "dom-change"
)

// ChangeElementAdded is the only DOMChange kind produced by the recorder.
const ChangeElementAdded = "element-added"

// Action is one recorded interaction step. The set of implementations is
// closed: Navigation, Focus, Input, Change, Click, Keypress, DOMChange and
// Unknown, which carries types this build does not understand.
type Action interface {
	// Type returns the action kind.
	Type() Type

	// Header returns the fields every action carries.
	Header() Base

	action()
}

// Base holds the fields common to every action.
type Base struct {
	// Selector locates the target element. Empty for navigation.
	Selector string

	// Timestamp is the capture time in epoch milliseconds. Sequence order,
	// not timestamp order, is authoritative.
	Timestamp int64
}

// Header implements Action.
func (b Base) Header() Base { return b }

func (Base) action() {}

// Navigation records that the page changed to URL.
type Navigation struct {
	Base
	URL string
}

// Focus records that a form field received focus.
type Focus struct {
	Base
}

// Input records text entered into a field.
type Input struct {
	Base
	Value     string
	FieldType string
}

// Change records a committed value change. Checked is set for checkboxes
// and radios; SelectedText for selects.
type Change struct {
	Base
	Value        string
	Checked      *bool
	SelectedText string
}

// Click records activation of a trigger or link.
type Click struct {
	Base
	Text string
	Href string
}

// Keypress records Tab or Enter on a field or trigger.
type Keypress struct {
	Base
	Key string
}

// DOMChange records that a form or dialog appeared asynchronously.
type DOMChange struct {
	Base
	Change string
}

// Unknown preserves an action whose type is not recognized. It is kept on
// load and skipped on playback.
type Unknown struct {
	Base
	Kind string
	Raw  []byte
}

func (Navigation) Type() Type { return TypeNavigation }
func (Focus) Type() Type      { return TypeFocus }
func (Input) Type() Type      { return TypeInput }
func (Change) Type() Type     { return TypeChange }
func (Click) Type() Type      { return TypeClick }
func (Keypress) Type() Type   { return TypeKeypress }
func (DOMChange) Type() Type  { return TypeDOMChange }
func (u Unknown) Type() Type  { return Type(u.Kind) }

// Bool returns a pointer to b, for Change.Checked literals.
func Bool(b bool) *bool { return &b }

// Known reports whether t is one of the recognized action types.
func Known(t Type) bool {
	switch t {
	case TypeNavigation, TypeFocus, TypeInput, TypeChange, TypeClick, TypeKeypress, TypeDOMChange:
		return true
	}
	return false
}
