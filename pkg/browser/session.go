package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formflow/pkg/classifier"
	"github.com/entrhq/formflow/pkg/dom"
	"github.com/entrhq/formflow/pkg/logging"
)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.mu.Lock()
	s.LastUsedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastUsedAt
}

// Info returns a metadata snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		Name:       s.Name,
		CurrentURL: s.CurrentURL,
		Headless:   s.Headless,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
	}
}

// Navigate loads url in the session's page.
func (s *Session) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.UpdateLastUsed()

	gotoOpts := playwright.PageGotoOptions{}
	waitUntil := opts.WaitUntil
	if waitUntil == "" {
		waitUntil = DefaultWaitUntil
	}
	state := playwright.WaitUntilState(waitUntil)
	gotoOpts.WaitUntil = &state
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.mu.Lock()
	s.CurrentURL = s.Page.URL()
	s.mu.Unlock()
	return nil
}

// Content returns the serialized HTML of the page.
func (s *Session) Content() (string, error) {
	s.UpdateLastUsed()
	html, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// ScanForms classifies the forms and standalone fields on the current page.
func (s *Session) ScanForms() ([]classifier.FormGroup, error) {
	html, err := s.Content()
	if err != nil {
		return nil, err
	}
	return ScanHTML(html)
}

// ScanHTML classifies the forms and standalone fields in an HTML document.
func ScanHTML(html string) ([]classifier.FormGroup, error) {
	doc, err := dom.Parse(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return classifier.DetectForms(doc)
}

// Events returns the session's capture event source, installing the
// capture script on first use.
func (s *Session) Events(logger *logging.Logger) (*EventSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil || s.captureErr != nil {
		return s.capture, s.captureErr
	}
	s.capture, s.captureErr = installCapture(s.Context, s.Page, s.overlayLocked(), logger)
	return s.capture, s.captureErr
}

// PlayerPage returns the session's page adapted for playback. The same
// adapter is returned on every call.
func (s *Session) PlayerPage(logger *logging.Logger) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		s.player = newPage(s, s.overlayLocked(), logger)
	}
	return s.player
}

// Overlay returns the in-page indicator surface for the session.
func (s *Session) Overlay() *Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlayLocked()
}

func (s *Session) overlayLocked() *Overlay {
	if s.overlay == nil {
		s.overlay = &Overlay{page: s.Page}
	}
	return s.overlay
}

// close releases the page and its context. The browser process belongs to
// the manager.
func (s *Session) close() error {
	var errs []error
	if err := s.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session %q: %w", s.Name, err)
	}
	return nil
}
