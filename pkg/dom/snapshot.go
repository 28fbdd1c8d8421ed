package dom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot is a serialized description of a live element, taken by the
// capture script at event time. Ancestors and the previous sibling are
// included as nested snapshots so selectors and labels can be resolved
// without a round trip to the page.
type Snapshot struct {
	TagName     string            `json:"tag"`
	Attrs       map[string]string `json:"attrs,omitempty"`
	TextContent string            `json:"text,omitempty"`
	Computed    Style             `json:"style"`
	Index       int               `json:"index"`
	Siblings    int               `json:"siblings"`
	ParentNode  *Snapshot         `json:"parent,omitempty"`
	Previous    *Snapshot         `json:"prev,omitempty"`

	// Labels maps element ids to the text of their label[for] element.
	// Only the snapshotted element's own id is normally present.
	Labels map[string]string `json:"labels,omitempty"`
}

// DecodeSnapshot parses a snapshot from JSON.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode element snapshot: %w", err)
	}
	if s.TagName == "" {
		return nil, fmt.Errorf("element snapshot has no tag")
	}
	return &s, nil
}

// Tag implements Element.
func (s *Snapshot) Tag() string {
	return strings.ToLower(s.TagName)
}

// Attr implements Element.
func (s *Snapshot) Attr(name string) (string, bool) {
	v, ok := s.Attrs[strings.ToLower(name)]
	return v, ok
}

// Text implements Element.
func (s *Snapshot) Text() string {
	return strings.TrimSpace(s.TextContent)
}

// Parent implements Element.
func (s *Snapshot) Parent() Element {
	if s.ParentNode == nil {
		return nil
	}
	return s.ParentNode.inherit(s)
}

// PrevSibling implements Element.
func (s *Snapshot) PrevSibling() Element {
	if s.Previous == nil {
		return nil
	}
	return s.Previous.inherit(s)
}

// Position implements Element.
func (s *Snapshot) Position() (int, int) {
	if s.Siblings == 0 {
		return 0, 1
	}
	return s.Index, s.Siblings
}

// Style implements Element.
func (s *Snapshot) Style() Style {
	return s.Computed
}

// LabelFor implements Element.
func (s *Snapshot) LabelFor(id string) string {
	if id == "" {
		return ""
	}
	return strings.TrimSpace(s.Labels[id])
}

// inherit shares the label table with related snapshots so label lookups
// work from any node of the serialized neighbourhood.
func (s *Snapshot) inherit(from *Snapshot) *Snapshot {
	if s.Labels == nil && from.Labels != nil {
		s.Labels = from.Labels
	}
	return s
}
