package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.False(t, store.IsModified())

	require.NoError(t, store.SetSection("recorder", map[string]interface{}{"debounce": "250ms"}))
	assert.True(t, store.IsModified())
	require.NoError(t, store.Save())
	assert.False(t, store.IsModified())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk fileFormat
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, fileVersion, onDisk.Version)
	assert.Equal(t, "250ms", onDisk.Sections["recorder"]["debounce"])

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.GetSection("recorder")
	require.NoError(t, err)
	assert.Equal(t, "250ms", got["debounce"])
}

func TestFileStoreMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{invalid"), 0o600))
	_, err = NewFileStore(bad)
	assert.Error(t, err)
}

func TestFileStoreCopiesData(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	in := map[string]interface{}{"k": "v"}
	require.NoError(t, store.SetSection("s", in))
	in["k"] = "changed"

	out, _ := store.GetSection("s")
	assert.Equal(t, "v", out["k"])
	out["k"] = "changed"

	all, _ := store.GetAll()
	assert.Equal(t, "v", all["s"]["k"])
	all["s"]["k"] = "changed"

	again, _ := store.GetSection("s")
	assert.Equal(t, "v", again["k"])

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{"t": {"x": 1}}))
	gone, _ := store.GetSection("s")
	assert.Empty(t, gone)
}
