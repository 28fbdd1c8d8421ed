package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formflow/pkg/flow"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func record(id, name, domain string, created time.Time, plays, actions int) *flow.Record {
	as := flow.Actions{}
	for i := 0; i < actions; i++ {
		as = append(as, flow.Click{Base: flow.Base{Selector: "#b", Timestamp: int64(i)}})
	}
	return &flow.Record{
		ID:        id,
		Name:      name,
		URL:       "https://" + domain + "/",
		Domain:    domain,
		Actions:   as,
		CreatedAt: created,
		PlayCount: plays,
	}
}

func TestFileStoreCRUD(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	r := record("f1", "Login", "example.com", time.Unix(100, 0).UTC(), 0, 2)

	require.NoError(t, fs.Create(ctx, r))
	assert.ErrorIs(t, fs.Create(ctx, r), ErrAlreadyExists)
	assert.FileExists(t, filepath.Join(fs.Dir(), "f1.json"))

	got, err := fs.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Login", got.Name)
	assert.Len(t, got.Actions, 2)

	r.Name = "Login v2"
	require.NoError(t, fs.Save(ctx, r))
	got, err = fs.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Login v2", got.Name)

	updated, err := fs.Update(ctx, "f1", func(r *flow.Record) error {
		r.MarkPlayed()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PlayCount)

	require.NoError(t, fs.Delete(ctx, "f1"))
	_, err = fs.Get(ctx, "f1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fs.Delete(ctx, "f1"), ErrNotFound)
	_, err = fs.Update(ctx, "f1", func(*flow.Record) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	for _, id := range []string{"", "../escape", `a\b`} {
		_, err := fs.Get(ctx, id)
		assert.Error(t, err, id)
		assert.NotErrorIs(t, err, ErrNotFound, id)
	}
	assert.Error(t, fs.Save(ctx, &flow.Record{ID: "x"}), "invalid records are not written")
}

func TestFileStoreListSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	require.NoError(t, fs.Create(ctx, record("ok", "Ok", "example.com", time.Now(), 0, 1)))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "bad.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "notes.txt"), []byte("x"), 0o600))

	list, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].ID)
}

func seed(t *testing.T, fs *FileStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []*flow.Record{
		record("a", "beta signup", "app.example.com", base, 5, 4),
		record("b", "Alpha login", "example.com", base.Add(time.Hour), 1, 3),
		record("c", "checkout", "shop.other.org", base.Add(2*time.Hour), 9, 10),
	} {
		require.NoError(t, fs.Create(ctx, r))
	}
}

func ids(flows []*flow.Record) []string {
	out := make([]string, len(flows))
	for i, r := range flows {
		out[i] = r.ID
	}
	return out
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	seed(t, fs)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"recent by default", ListOptions{}, []string{"c", "b", "a"}},
		{"name ignores case", ListOptions{Sort: SortName}, []string{"b", "a", "c"}},
		{"usage", ListOptions{Sort: SortUsage}, []string{"c", "a", "b"}},
		{"search name", ListOptions{Search: "LOGIN"}, []string{"b"}},
		{"search domain", ListOptions{Search: "other"}, []string{"c"}},
		{"domain glob one level", ListOptions{Domain: "*.example.com"}, []string{"a"}},
		{"domain glob exact", ListOptions{Domain: "example.com"}, []string{"b"}},
		{"domain glob any depth", ListOptions{Domain: "**example.com"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(ctx, fs, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := Query(ctx, fs, ListOptions{Sort: "size"})
	assert.Error(t, err)
	_, err = Query(ctx, fs, ListOptions{Domain: "[a"})
	assert.Error(t, err)
}

func TestFindByName(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	seed(t, fs)

	r, err := FindByName(ctx, fs, "c")
	require.NoError(t, err)
	assert.Equal(t, "checkout", r.Name)

	r, err = FindByName(ctx, fs, "ALPHA LOGIN")
	require.NoError(t, err)
	assert.Equal(t, "b", r.ID)

	r, err = FindByName(ctx, fs, "chkout")
	require.NoError(t, err)
	assert.Equal(t, "c", r.ID)

	_, err = FindByName(ctx, fs, "zzzz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = FindByName(ctx, fs, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMatchURL(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	seed(t, fs)
	all, err := fs.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ids(MatchURL(all, "https://app.example.com/login")))
	assert.Empty(t, MatchURL(all, "https://unrelated.net"))
}

func TestSummarize(t *testing.T) {
	st := Summarize([]*flow.Record{
		record("a", "a", "x.com", time.Now(), 3, 10), // 60s
		record("b", "b", "x.com", time.Now(), 0, 50),
		record("c", "c", "x.com", time.Now(), 2, 15), // 60s
	})
	assert.Equal(t, Stats{TotalFlows: 3, TotalActions: 75, TotalPlays: 5, MinutesSaved: 2}, st)
	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seed(t, src)

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst := newTestStore(t)
	require.NoError(t, dst.Create(ctx, record("b", "kept", "example.com", time.Now(), 0, 1)))

	added, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, ids(added))

	kept, err := dst.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "kept", kept.Name, "existing ids are not overwritten")

	again, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = Import(ctx, dst, bytes.NewReader([]byte(`{"version":"1.0"}`)))
	assert.Error(t, err)
}
