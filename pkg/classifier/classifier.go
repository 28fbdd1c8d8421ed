// Package classifier infers the semantic role, label and a best-effort
// selector for form elements.
//
// All functions are pure: they read the element model and never mutate it.
// Role inference is a debugging and display aid; replay correctness only
// depends on the selector.
package classifier

import (
	"regexp"
	"strings"

	"github.com/entrhq/formflow/pkg/dom"
)

// Role is the inferred semantic category of a form field.
type Role string

const (
	RoleUsername Role = "username"
	RolePassword Role = "password"
	RoleEmail    Role = "email"
	RolePhone    Role = "phone"
	RoleName     Role = "name"
	RoleAddress  Role = "address"
	RoleCard     Role = "card"
	RoleDate     Role = "date"
	RoleSubmit   Role = "submit"
	RoleCheckbox Role = "checkbox"
	RoleText     Role = "text"
)

// Kind is the broad element category.
type Kind string

const (
	KindInput    Kind = "input"
	KindSelect   Kind = "select"
	KindTextarea Kind = "textarea"
	KindButton   Kind = "button"
	KindLink     Kind = "link"
)

// FieldDescriptor describes a classified element.
type FieldDescriptor struct {
	Selector string `json:"selector"`
	Role     Role   `json:"role"`
	Label    string `json:"label"`
	Kind     Kind   `json:"elementKind"`
}

type rolePattern struct {
	role    Role
	pattern *regexp.Regexp
}

// rolePatterns is ordered; the first match wins.
var rolePatterns = []rolePattern{
	{RoleUsername, regexp.MustCompile(`(?i)user|email|login|account|id|handle`)},
	{RolePassword, regexp.MustCompile(`(?i)pass|pwd|secret`)},
	{RoleEmail, regexp.MustCompile(`(?i)email|e-mail|mail`)},
	{RolePhone, regexp.MustCompile(`(?i)phone|mobile|cell|tel`)},
	{RoleName, regexp.MustCompile(`(?i)name|firstname|lastname|fullname`)},
	{RoleAddress, regexp.MustCompile(`(?i)address|street|city|state|zip|postal`)},
	{RoleCard, regexp.MustCompile(`(?i)card|credit|debit|payment`)},
	{RoleDate, regexp.MustCompile(`(?i)date|birth|dob|expire`)},
	{RoleSubmit, regexp.MustCompile(`(?i)submit|login|signin|signup|register|continue|next`)},
	{RoleCheckbox, regexp.MustCompile(`(?i)remember|agree|terms|subscribe`)},
}

// typeRoles short-circuit pattern matching.
var typeRoles = map[string]Role{
	"email":    RoleEmail,
	"password": RolePassword,
	"tel":      RolePhone,
	"date":     RoleDate,
}

var submitIntent = regexp.MustCompile(`(?i)submit|login|signin|signup|register|continue|next`)

// Classify returns the descriptor for el. It never fails; ambiguous
// elements fall back to RoleText.
func Classify(el dom.Element) FieldDescriptor {
	return FieldDescriptor{
		Selector: ResolveSelector(el),
		Role:     InferRole(el),
		Label:    ResolveLabel(el),
		Kind:     KindOf(el),
	}
}

// InferRole returns the semantic role of el.
func InferRole(el dom.Element) Role {
	if role, ok := typeRoles[dom.Type(el)]; ok {
		return role
	}

	haystack := strings.ToLower(strings.Join([]string{
		dom.AttrOr(el, "name"),
		dom.AttrOr(el, "id"),
		dom.AttrOr(el, "placeholder"),
		dom.AttrOr(el, "class"),
		ResolveLabel(el),
	}, " "))

	for _, rp := range rolePatterns {
		if rp.pattern.MatchString(haystack) {
			return rp.role
		}
	}
	return RoleText
}

// KindOf returns the element kind. Unknown tags are reported as inputs.
func KindOf(el dom.Element) Kind {
	switch el.Tag() {
	case "select":
		return KindSelect
	case "textarea":
		return KindTextarea
	case "button":
		return KindButton
	case "a":
		return KindLink
	case "input":
		switch dom.Type(el) {
		case "submit", "button", "reset", "image":
			return KindButton
		}
	}
	return KindInput
}

// IsFormElement reports whether el is an input, select or textarea.
func IsFormElement(el dom.Element) bool {
	switch el.Tag() {
	case "input", "select", "textarea":
		return true
	}
	return false
}

// IsRelevantField reports whether el is a fillable form field. Hidden,
// disabled and read-only elements are excluded, as are submit and button
// inputs, which are classified as buttons.
func IsRelevantField(el dom.Element) bool {
	if !IsFormElement(el) {
		return false
	}
	t := dom.Type(el)
	if t == "hidden" || t == "submit" || t == "button" {
		return false
	}
	if el.Style().Display == "none" {
		return false
	}
	if dom.HasAttr(el, "disabled") || dom.HasAttr(el, "readonly") {
		return false
	}
	return true
}

// IsActionTrigger reports whether el submits or advances a form.
func IsActionTrigger(el dom.Element) bool {
	if dom.Type(el) == "submit" {
		return true
	}
	return submitIntent.MatchString(el.Text()) ||
		submitIntent.MatchString(dom.AttrOr(el, "value")) ||
		submitIntent.MatchString(dom.AttrOr(el, "class"))
}

// ResolveLabel returns the human-readable label of el: label[for=id], a
// wrapping label, a previous-sibling label, then aria-label. The first
// non-empty candidate wins.
func ResolveLabel(el dom.Element) string {
	if id := dom.ID(el); id != "" {
		if text := strings.TrimSpace(el.LabelFor(id)); text != "" {
			return text
		}
	}

	if wrap := dom.Closest(el, dom.IsTag("label")); wrap != nil {
		if text := wrap.Text(); text != "" {
			return text
		}
	}

	if prev := el.PrevSibling(); prev != nil && prev.Tag() == "label" {
		if text := prev.Text(); text != "" {
			return text
		}
	}

	return strings.TrimSpace(dom.AttrOr(el, "aria-label"))
}
