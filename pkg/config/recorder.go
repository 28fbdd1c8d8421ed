package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/recorder"
)

// SectionIDRecorder is the identifier for the recorder section.
const SectionIDRecorder = "recorder"

// RecorderSection tunes event capture.
type RecorderSection struct {
	Debounce    time.Duration `json:"debounce"`
	MergeWindow time.Duration `json:"merge_window"`
	mu          sync.RWMutex
}

func NewRecorderSection() *RecorderSection {
	s := &RecorderSection{}
	s.Reset()
	return s
}

func (s *RecorderSection) ID() string    { return SectionIDRecorder }
func (s *RecorderSection) Title() string { return "Recorder" }
func (s *RecorderSection) Description() string {
	return "Input debounce and the window in which repeated events on one element collapse into a single action."
}

// Data returns the current configuration data.
func (s *RecorderSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"debounce":     s.Debounce.String(),
		"merge_window": s.MergeWindow.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *RecorderSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		var err error
		switch key {
		case "debounce":
			s.Debounce, err = parseDuration(key, value)
		case "merge_window":
			s.MergeWindow, err = parseDuration(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *RecorderSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Debounce < 0 || s.Debounce > 10*time.Second {
		return fmt.Errorf("debounce must be between 0 and 10s, got %v", s.Debounce)
	}
	if s.MergeWindow < 0 || s.MergeWindow > 5*time.Second {
		return fmt.Errorf("merge_window must be between 0 and 5s, got %v", s.MergeWindow)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *RecorderSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Debounce = recorder.DefaultDebounce
	s.MergeWindow = time.Duration(flow.DefaultMergeWindow) * time.Millisecond
}

// Apply copies the section's settings into opts.
func (s *RecorderSection) Apply(opts recorder.Options) recorder.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts.Debounce = s.Debounce
	opts.MergeWindow = s.MergeWindow.Milliseconds()
	return opts
}
