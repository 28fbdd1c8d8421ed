package player

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSuspended is returned by Page.Navigate when the page host cannot
// survive navigation. Playback stops and reports where to resume.
var ErrSuspended = errors.New("playback suspended by navigation")

// ElementNotFoundError reports that no visible element matched a selector
// before the wait deadline.
type ElementNotFoundError struct {
	Selector string
	Timeout  time.Duration
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Selector)
}

// Kind describes a target element.
type Kind struct {
	Tag  string
	Type string
}

// Toggle reports whether the element is a checkbox or radio input.
func (k Kind) Toggle() bool {
	return k.Tag == "input" && (k.Type == "checkbox" || k.Type == "radio")
}

// Page is the document the player drives.
type Page interface {
	// URL returns the current page URL.
	URL() string

	// Navigate loads url. Implementations that cannot continue across a
	// page load return ErrSuspended.
	Navigate(ctx context.Context, url string) error

	// Query returns the first element matching selector, or a nil Target
	// when there is none.
	Query(selector string) (Target, error)

	// Overlay returns the in-page indicator surface.
	Overlay() Overlay
}

// Target is a live element handle.
type Target interface {
	Visible() (bool, error)
	Kind() (Kind, error)
	Focus() error
	Dispatch(event string, init map[string]interface{}) error
	SetValue(value string) error
	Value() (string, error)
	Checked() (bool, error)
	ScrollIntoView() error
	// Highlight outlines the element for d, then restores it.
	Highlight(d time.Duration) error
	// Click performs a native click.
	Click() error
}

// ToastKind selects the styling of a completion toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Overlay is the player's on-page indicator. Failures are cosmetic and
// never abort playback.
type Overlay interface {
	ShowPlayback() error
	Progress(done, total int) error
	Toast(kind ToastKind, message string) error
	HidePlayback() error
}

type nopOverlay struct{}

func (nopOverlay) ShowPlayback() error           { return nil }
func (nopOverlay) Progress(int, int) error       { return nil }
func (nopOverlay) Toast(ToastKind, string) error { return nil }
func (nopOverlay) HidePlayback() error           { return nil }
