package classifier

import (
	"fmt"
	"strings"

	"github.com/entrhq/formflow/pkg/dom"
)

const (
	// maxSelectorDepth is the number of ancestors walked above the element.
	maxSelectorDepth = 3

	// maxClassTokens is the number of class tokens kept per segment.
	maxClassTokens = 2
)

// ResolveSelector returns a CSS selector for el. An id always wins;
// otherwise the selector is a child-combinator chain of the element and up
// to three ancestors, stopping at the first ancestor that carries an id.
//
// The result is deterministic for a given DOM state. It is not stable across
// page loads when the page generates ids or reorders siblings.
func ResolveSelector(el dom.Element) string {
	if id := dom.ID(el); id != "" {
		return "#" + cssEscape(id)
	}

	var path []string
	for cur, depth := el, 0; cur != nil && depth <= maxSelectorDepth; cur, depth = cur.Parent(), depth+1 {
		if depth > 0 {
			if id := dom.ID(cur); id != "" {
				path = append(path, "#"+cssEscape(id))
				break
			}
		}
		path = append(path, segment(cur))
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " > ")
}

func segment(el dom.Element) string {
	var sb strings.Builder
	sb.WriteString(el.Tag())

	kept := 0
	for _, c := range dom.Classes(el) {
		if kept == maxClassTokens {
			break
		}
		if strings.Contains(c, ":") {
			continue
		}
		sb.WriteString(".")
		sb.WriteString(cssEscape(c))
		kept++
	}

	if index, count := el.Position(); count > 1 {
		fmt.Fprintf(&sb, ":nth-child(%d)", index+1)
	}
	return sb.String()
}

// cssEscape escapes an identifier for use in a CSS selector, following the
// CSSOM serialize-an-identifier rules.
func cssEscape(ident string) string {
	var sb strings.Builder
	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == 0:
			sb.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&sb, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			sb.WriteString("\\-")
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		default:
			sb.WriteRune('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
