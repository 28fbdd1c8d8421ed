package flow

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

var timeNow = time.Now // injected for testability

// Record is a named, persisted recording. Fields the current version does
// not know are ignored on decode.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Actions   Actions   `json:"actions"`
	CreatedAt time.Time `json:"createdAt"`
	PlayCount int       `json:"playCount"`
}

// NewRecord creates a record for actions captured on pageURL.
func NewRecord(name, pageURL string, actions Actions) (*Record, error) {
	if name == "" {
		return nil, fmt.Errorf("flow name is required")
	}
	domain, err := Domain(pageURL)
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = Actions{}
	}
	return &Record{
		ID:        NewID(),
		Name:      name,
		URL:       pageURL,
		Domain:    domain,
		Actions:   actions,
		CreatedAt: timeNow().UTC(),
	}, nil
}

// NewID returns a new opaque record identifier.
func NewID() string {
	return uuid.New().String()
}

// Domain returns the hostname of rawURL.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid flow url %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("flow url %q has no host", rawURL)
	}
	return u.Hostname(), nil
}

// Validate ensures the required fields are populated.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("flow: missing ID")
	}
	if r.Name == "" {
		return fmt.Errorf("flow: missing Name")
	}
	if r.PlayCount < 0 {
		return fmt.Errorf("flow: negative PlayCount")
	}
	return nil
}

// Duplicate returns a copy of r with a new identity and a reset play count.
// The action list is shared; records never mutate their actions.
func Duplicate(r *Record) *Record {
	dup := *r
	dup.ID = NewID()
	dup.Name = r.Name + " (Copy)"
	dup.CreatedAt = timeNow().UTC()
	dup.PlayCount = 0
	return &dup
}

// Rename changes the user-facing name.
func (r *Record) Rename(name string) error {
	if name == "" {
		return fmt.Errorf("flow name is required")
	}
	r.Name = name
	return nil
}

// MarkPlayed increments the play counter.
func (r *Record) MarkPlayed() {
	r.PlayCount++
}
