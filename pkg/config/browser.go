package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/formflow/pkg/browser"
)

// SectionIDBrowser is the identifier for the browser section.
const SectionIDBrowser = "browser"

// BrowserSection holds launch options for recording and playback browsers.
type BrowserSection struct {
	Headless       bool    `json:"headless"`
	ViewportWidth  int     `json:"viewport_width"`
	ViewportHeight int     `json:"viewport_height"`
	TimeoutMillis  float64 `json:"timeout_ms"`
	SlowMoMillis   float64 `json:"slow_mo_ms"`
	mu             sync.RWMutex
}

func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

func (s *BrowserSection) ID() string          { return SectionIDBrowser }
func (s *BrowserSection) Title() string       { return "Browser" }
func (s *BrowserSection) Description() string { return "Chromium launch options." }

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"headless":        s.Headless,
		"viewport_width":  s.ViewportWidth,
		"viewport_height": s.ViewportHeight,
		"timeout_ms":      s.TimeoutMillis,
		"slow_mo_ms":      s.SlowMoMillis,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		switch key {
		case "headless":
			b, err := parseBool(key, value)
			if err != nil {
				return err
			}
			s.Headless = b
		case "viewport_width", "viewport_height", "timeout_ms", "slow_mo_ms":
			n, err := parseInt(key, value)
			if err != nil {
				return err
			}
			switch key {
			case "viewport_width":
				s.ViewportWidth = int(n)
			case "viewport_height":
				s.ViewportHeight = int(n)
			case "timeout_ms":
				s.TimeoutMillis = float64(n)
			default:
				s.SlowMoMillis = float64(n)
			}
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	if s.TimeoutMillis < 0 || s.SlowMoMillis < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = false
	s.ViewportWidth = browser.DefaultViewportWidth
	s.ViewportHeight = browser.DefaultViewportHeight
	s.TimeoutMillis = browser.DefaultTimeout
	s.SlowMoMillis = 0
}

// SessionOptions converts the section into browser launch options.
func (s *BrowserSection) SessionOptions() browser.SessionOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return browser.SessionOptions{
		Headless: s.Headless,
		Viewport: &browser.Viewport{Width: s.ViewportWidth, Height: s.ViewportHeight},
		Timeout:  s.TimeoutMillis,
		SlowMo:   s.SlowMoMillis,
	}
}
