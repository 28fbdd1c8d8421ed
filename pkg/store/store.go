// Package store persists flow records.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/entrhq/formflow/pkg/flow"
)

var ErrNotFound = errors.New("store: flow not found")
var ErrAlreadyExists = errors.New("store: flow already exists")

// FlowStore is the read/write interface for persisted flows.
type FlowStore interface {
	// Create persists a new record. It returns ErrAlreadyExists when the
	// ID is taken.
	Create(ctx context.Context, r *flow.Record) error
	// Save creates or replaces a record.
	Save(ctx context.Context, r *flow.Record) error
	Get(ctx context.Context, id string) (*flow.Record, error)
	List(ctx context.Context) ([]*flow.Record, error)
	Delete(ctx context.Context, id string) error
	// Update applies fn to the stored record and persists the result.
	// Concurrent updates of the same store are serialized.
	Update(ctx context.Context, id string, fn func(*flow.Record) error) (*flow.Record, error)
}

// DefaultDir returns ~/.formflow/flows.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".formflow", "flows"), nil
}
