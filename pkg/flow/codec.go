package flow

import (
	"encoding/json"
	"fmt"
)

// wireAction is the flat JSON shape shared with the browser and storage.
type wireAction struct {
	Type         Type    `json:"type"`
	Selector     string  `json:"selector,omitempty"`
	Timestamp    int64   `json:"timestamp"`
	URL          string  `json:"url,omitempty"`
	Value        *string `json:"value,omitempty"`
	FieldType    string  `json:"fieldType,omitempty"`
	Checked      *bool   `json:"checked,omitempty"`
	SelectedText string  `json:"selectedText,omitempty"`
	Text         string  `json:"text,omitempty"`
	Href         string  `json:"href,omitempty"`
	Key          string  `json:"key,omitempty"`
	Change       string  `json:"change,omitempty"`
}

// MarshalAction encodes a single action.
func MarshalAction(a Action) ([]byte, error) {
	if u, ok := a.(Unknown); ok && len(u.Raw) > 0 {
		return u.Raw, nil
	}

	h := a.Header()
	w := wireAction{Type: a.Type(), Selector: h.Selector, Timestamp: h.Timestamp}

	switch v := a.(type) {
	case Navigation:
		w.URL = v.URL
	case Focus:
	case Input:
		w.Value = &v.Value
		w.FieldType = v.FieldType
	case Change:
		w.Value = &v.Value
		w.Checked = v.Checked
		w.SelectedText = v.SelectedText
	case Click:
		w.Text = v.Text
		w.Href = v.Href
	case Keypress:
		w.Key = v.Key
	case DOMChange:
		w.Change = v.Change
	case Unknown:
	default:
		return nil, fmt.Errorf("unsupported action %T", a)
	}
	return json.Marshal(w)
}

// UnmarshalAction decodes a single action. Unrecognized types decode to Unknown.
func UnmarshalAction(data []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("action has no type")
	}

	base := Base{Selector: w.Selector, Timestamp: w.Timestamp}
	value := ""
	if w.Value != nil {
		value = *w.Value
	}

	switch w.Type {
	case TypeNavigation:
		return Navigation{Base: base, URL: w.URL}, nil
	case TypeFocus:
		return Focus{Base: base}, nil
	case TypeInput:
		return Input{Base: base, Value: value, FieldType: w.FieldType}, nil
	case TypeChange:
		return Change{Base: base, Value: value, Checked: w.Checked, SelectedText: w.SelectedText}, nil
	case TypeClick:
		return Click{Base: base, Text: w.Text, Href: w.Href}, nil
	case TypeKeypress:
		return Keypress{Base: base, Key: w.Key}, nil
	case TypeDOMChange:
		return DOMChange{Base: base, Change: w.Change}, nil
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return Unknown{Base: base, Kind: string(w.Type), Raw: raw}, nil
	}
}

// Actions is an ordered action sequence with a JSON array encoding.
type Actions []Action

// MarshalJSON implements json.Marshaler.
func (as Actions) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(as))
	for i, a := range as {
		b, err := MarshalAction(a)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		raws = append(raws, b)
	}
	return json.Marshal(raws)
}

// UnmarshalJSON implements json.Unmarshaler.
func (as *Actions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to decode actions: %w", err)
	}
	out := make(Actions, 0, len(raws))
	for i, raw := range raws {
		a, err := UnmarshalAction(raw)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	*as = out
	return nil
}
