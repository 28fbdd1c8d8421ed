// Package dom provides the element model shared by the field classifier,
// the recorder and the player.
//
// Two implementations of Element exist:
//
//   - Node, backed by a parsed HTML document (golang.org/x/net/html). Used for
//     page scans and as the in-memory DOM in tests.
//   - Snapshot, a JSON description of a live element produced by the capture
//     script injected into a browser page.
//
// Both are read-only views; nothing in this package mutates a live page.
package dom

import (
	"strings"
)

// Element is a read-only view over a DOM element.
//
// Implementations must return a nil interface (not a typed nil) from Parent
// and PrevSibling when there is no such element.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string

	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)

	// Text returns the trimmed text content of the element.
	Text() string

	// Parent returns the parent element, or nil at the root.
	Parent() Element

	// PrevSibling returns the previous element sibling, or nil.
	PrevSibling() Element

	// Position returns the 0-based index among the parent's element
	// children and the number of those children.
	Position() (index, count int)

	// Style returns the computed style relevant to visibility.
	Style() Style

	// LabelFor returns the text of the document's label[for=id], or "".
	LabelFor(id string) string
}

// Style holds the subset of computed style used for visibility decisions.
type Style struct {
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Opacity    float64 `json:"opacity"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Visible reports whether an element with this style would be seen by a user.
func (s Style) Visible() bool {
	return s.Width > 0 &&
		s.Height > 0 &&
		s.Display != "none" &&
		s.Visibility != "hidden" &&
		s.Opacity != 0
}

// AttrOr returns the attribute value or "" when absent.
func AttrOr(el Element, name string) string {
	v, _ := el.Attr(name)
	return v
}

// HasAttr reports whether the attribute is present, regardless of value.
func HasAttr(el Element, name string) bool {
	_, ok := el.Attr(name)
	return ok
}

// ID returns the element id attribute.
func ID(el Element) string {
	return strings.TrimSpace(AttrOr(el, "id"))
}

// Classes returns the class tokens of the element in document order.
func Classes(el Element) []string {
	return strings.Fields(AttrOr(el, "class"))
}

// Type returns the lower-case type attribute. Inputs without one default to "text".
func Type(el Element) string {
	t := strings.ToLower(strings.TrimSpace(AttrOr(el, "type")))
	if t == "" && el.Tag() == "input" {
		return "text"
	}
	return t
}

// Closest walks from el up through its ancestors and returns the first
// element matching pred, including el itself.
func Closest(el Element, pred func(Element) bool) Element {
	for cur := el; cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// IsTag returns a predicate matching any of the given tag names.
func IsTag(tags ...string) func(Element) bool {
	return func(el Element) bool {
		t := el.Tag()
		for _, want := range tags {
			if t == want {
				return true
			}
		}
		return false
	}
}

// Visible reports whether el is currently visible.
func Visible(el Element) bool {
	return el.Style().Visible()
}
