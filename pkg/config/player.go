package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/player"
)

// SectionIDPlayer is the identifier for the player section.
const SectionIDPlayer = "player"

// PlayerSection tunes playback pacing and waits.
type PlayerSection struct {
	ElementTimeout   time.Duration `json:"element_timeout"`
	DOMChangeTimeout time.Duration `json:"dom_change_timeout"`
	MaxDelay         time.Duration `json:"max_delay"`
	TypingDelayMin   time.Duration `json:"typing_delay_min"`
	TypingDelayMax   time.Duration `json:"typing_delay_max"`
	Highlight        time.Duration `json:"highlight"`
	mu               sync.RWMutex
}

func NewPlayerSection() *PlayerSection {
	s := &PlayerSection{}
	s.Reset()
	return s
}

func (s *PlayerSection) ID() string    { return SectionIDPlayer }
func (s *PlayerSection) Title() string { return "Player" }
func (s *PlayerSection) Description() string {
	return "Element wait timeouts, the cap on replayed gaps between actions, and typing speed."
}

func (s *PlayerSection) fields() map[string]*time.Duration {
	return map[string]*time.Duration{
		"element_timeout":    &s.ElementTimeout,
		"dom_change_timeout": &s.DOMChangeTimeout,
		"max_delay":          &s.MaxDelay,
		"typing_delay_min":   &s.TypingDelayMin,
		"typing_delay_max":   &s.TypingDelayMax,
		"highlight":          &s.Highlight,
	}
}

// Data returns the current configuration data.
func (s *PlayerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := make(map[string]any)
	for key, d := range s.fields() {
		data[key] = d.String()
	}
	return data
}

// SetData updates the configuration from the provided data.
func (s *PlayerSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := s.fields()
	for key, value := range data {
		dst, ok := fields[key]
		if !ok {
			continue
		}
		d, err := parseDuration(key, value)
		if err != nil {
			return err
		}
		*dst = d
	}
	return nil
}

// Validate validates the current configuration.
func (s *PlayerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, d := range s.fields() {
		if *d < 0 {
			return fmt.Errorf("%s must not be negative, got %v", key, *d)
		}
	}
	if s.ElementTimeout == 0 || s.DOMChangeTimeout == 0 {
		return fmt.Errorf("element and dom-change timeouts must be positive")
	}
	if s.TypingDelayMax < s.TypingDelayMin {
		return fmt.Errorf("typing_delay_max (%v) is below typing_delay_min (%v)", s.TypingDelayMax, s.TypingDelayMin)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *PlayerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ElementTimeout = player.DefaultElementTimeout
	s.DOMChangeTimeout = player.DefaultDOMChangeTimeout
	s.MaxDelay = player.MaxDelay
	s.TypingDelayMin = player.DefaultTypingDelayMin
	s.TypingDelayMax = player.DefaultTypingDelayMax
	s.Highlight = player.DefaultHighlight
}

// Apply copies the section's settings into opts.
func (s *PlayerSection) Apply(opts player.Options) player.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts.ElementTimeout = s.ElementTimeout
	opts.DOMChangeTimeout = s.DOMChangeTimeout
	opts.MaxDelay = s.MaxDelay
	opts.TypingDelayMin = s.TypingDelayMin
	opts.TypingDelayMax = s.TypingDelayMax
	opts.Highlight = s.Highlight
	return opts
}
