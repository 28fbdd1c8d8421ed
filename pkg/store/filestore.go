package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/entrhq/formflow/pkg/flow"
)

// FileStore keeps one JSON file per flow in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ FlowStore = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("store: init directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) pathForID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("store: invalid flow id (empty)")
	}
	dir, err := filepath.Abs(fs.dir)
	if err != nil {
		return "", fmt.Errorf("store: abs dir: %w", err)
	}
	if strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("store: invalid flow id %q (contains path separator)", id)
	}
	resolved := filepath.Join(dir, id+".json")
	if !strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("store: path traversal detected for id %q", id)
	}
	return resolved, nil
}

// Create implements FlowStore.
func (fs *FileStore) Create(ctx context.Context, r *flow.Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathForID(r.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return ErrAlreadyExists
	}
	return fs.write(ctx, path, r)
}

// Save implements FlowStore.
func (fs *FileStore) Save(ctx context.Context, r *flow.Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathForID(r.ID)
	if err != nil {
		return err
	}
	return fs.write(ctx, path, r)
}

// write persists r atomically through a temporary file in the same
// directory. Callers hold fs.mu.
func (fs *FileStore) write(ctx context.Context, path string, r *flow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode flow %s: %w", r.ID, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".flow-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("store: atomic rename %s: %w", path, err)
	}
	return nil
}

// Get implements FlowStore.
func (fs *FileStore) Get(_ context.Context, id string) (*flow.Record, error) {
	path, err := fs.pathForID(id)
	if err != nil {
		return nil, err
	}
	return readRecord(path)
}

func readRecord(path string) (*flow.Record, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var r flow.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	if r.Actions == nil {
		r.Actions = flow.Actions{}
	}
	return &r, nil
}

// List implements FlowStore. Corrupt or unreadable files are skipped.
// Records come back in directory order; see Query for sorting.
func (fs *FileStore) List(ctx context.Context) ([]*flow.Record, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", fs.dir, err)
	}
	out := []*flow.Record{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		filePath := filepath.Join(fs.dir, e.Name())
		r, err := readRecord(filePath)
		if err != nil {
			slog.Debug("store: skipping corrupt flow file", "path", filePath, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Delete implements FlowStore.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathForID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("store: delete %s: %w", path, err)
	}
	return nil
}

// Update implements FlowStore.
func (fs *FileStore) Update(ctx context.Context, id string, fn func(*flow.Record) error) (*flow.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathForID(id)
	if err != nil {
		return nil, err
	}
	r, err := readRecord(path)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	r.ID = id
	if err := fs.write(ctx, path, r); err != nil {
		return nil, err
	}
	return r, nil
}
