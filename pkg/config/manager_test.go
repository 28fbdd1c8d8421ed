package config

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/recorder"
)

type mockSection struct {
	id          string
	data        map[string]interface{}
	validateErr error
}

func (m *mockSection) ID() string                                { return m.id }
func (m *mockSection) Title() string                             { return m.id }
func (m *mockSection) Description() string                       { return "" }
func (m *mockSection) Data() map[string]interface{}              { return m.data }
func (m *mockSection) SetData(data map[string]interface{}) error { m.data = data; return nil }
func (m *mockSection) Validate() error                           { return m.validateErr }
func (m *mockSection) Reset()                                    { m.data = map[string]interface{}{} }

type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
}

func newMockStore() *mockStore {
	return &mockStore{sections: map[string]map[string]interface{}{}}
}

func (m *mockStore) Load() error { return m.loadErr }
func (m *mockStore) Save() error { return m.saveErr }
func (m *mockStore) GetSection(id string) (map[string]interface{}, error) {
	return m.sections[id], nil
}
func (m *mockStore) SetSection(id string, data map[string]interface{}) error {
	m.sections[id] = data
	return nil
}
func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) { return m.sections, nil }
func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManagerRegistration(t *testing.T) {
	store := newMockStore()
	m := NewManager(store)
	assert.Same(t, store, m.Store())
	assert.Empty(t, m.GetSections())

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, m.RegisterSection(&mockSection{id: id}))
	}
	assert.Error(t, m.RegisterSection(&mockSection{id: "second"}))

	var order []string
	for _, s := range m.GetSections() {
		order = append(order, s.ID())
	}
	assert.Equal(t, []string{"first", "second", "third"}, order)

	s, ok := m.GetSection("second")
	require.True(t, ok)
	assert.Equal(t, "second", s.ID())
	_, ok = m.GetSection("missing")
	assert.False(t, ok)
}

func TestManagerLoadAndSave(t *testing.T) {
	store := newMockStore()
	store.sections["a"] = map[string]interface{}{"k": "v"}
	m := NewManager(store)
	a := &mockSection{id: "a", data: map[string]interface{}{}}
	b := &mockSection{id: "b", data: map[string]interface{}{"untouched": true}}
	require.NoError(t, m.RegisterSection(a))
	require.NoError(t, m.RegisterSection(b))

	require.NoError(t, m.LoadAll())
	assert.Equal(t, "v", a.data["k"])
	assert.Equal(t, true, b.data["untouched"], "sections absent from the store keep their data")

	a.data = map[string]interface{}{"k": "w"}
	require.NoError(t, m.SaveAll())
	assert.Equal(t, "w", store.sections["a"]["k"])

	m.ResetAll()
	assert.Empty(t, a.data)
	assert.Empty(t, b.data)
}

func TestManagerErrors(t *testing.T) {
	store := newMockStore()
	store.loadErr = errors.New("load")
	assert.Error(t, NewManager(store).LoadAll())

	store = newMockStore()
	m := NewManager(store)
	require.NoError(t, m.RegisterSection(&mockSection{id: "bad", validateErr: errors.New("invalid")}))
	assert.Error(t, m.SaveAll())
	assert.Empty(t, store.sections, "nothing is written when a section is invalid")

	store = newMockStore()
	store.saveErr = errors.New("save")
	m = NewManager(store)
	require.NoError(t, m.RegisterSection(&mockSection{id: "ok"}))
	assert.Error(t, m.SaveAll())
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager(newMockStore())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.RegisterSection(&mockSection{id: string(rune('a' + i))})
			m.GetSections()
			m.GetSection("a")
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.GetSections(), 10)
}

func TestDefaultSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewDefaultManager(path)
	require.NoError(t, err)
	require.Len(t, m.GetSections(), 3)

	rec, ok := m.GetSection(SectionIDRecorder)
	require.True(t, ok)
	require.NoError(t, rec.SetData(map[string]interface{}{"debounce": "250ms", "merge_window": float64(50 * time.Millisecond)}))

	pl, _ := m.GetSection(SectionIDPlayer)
	require.NoError(t, pl.SetData(map[string]interface{}{"max_delay": "1s", "unknown": 1}))

	br, _ := m.GetSection(SectionIDBrowser)
	require.NoError(t, br.SetData(map[string]interface{}{"headless": true, "viewport_width": float64(800)}))
	require.NoError(t, m.SaveAll())

	reloaded, err := NewDefaultManager(path)
	require.NoError(t, err)

	s, _ := reloaded.GetSection(SectionIDRecorder)
	ro := s.(*RecorderSection).Apply(recorder.Options{})
	assert.Equal(t, 250*time.Millisecond, ro.Debounce)
	assert.Equal(t, int64(50), ro.MergeWindow)

	s, _ = reloaded.GetSection(SectionIDPlayer)
	po := s.(*PlayerSection).Apply(player.Options{})
	assert.Equal(t, time.Second, po.MaxDelay)
	assert.Equal(t, player.DefaultElementTimeout, po.ElementTimeout)

	s, _ = reloaded.GetSection(SectionIDBrowser)
	so := s.(*BrowserSection).SessionOptions()
	assert.True(t, so.Headless)
	assert.Equal(t, 800, so.Viewport.Width)
}

func TestSectionValidation(t *testing.T) {
	rec := NewRecorderSection()
	assert.NoError(t, rec.Validate())
	assert.Error(t, rec.SetData(map[string]interface{}{"debounce": "soon"}))
	require.NoError(t, rec.SetData(map[string]interface{}{"debounce": "1m"}))
	assert.Error(t, rec.Validate())

	pl := NewPlayerSection()
	assert.NoError(t, pl.Validate())
	require.NoError(t, pl.SetData(map[string]interface{}{"typing_delay_min": "200ms"}))
	assert.Error(t, pl.Validate())
	pl.Reset()
	assert.Error(t, pl.SetData(map[string]interface{}{"highlight": true}))

	br := NewBrowserSection()
	assert.NoError(t, br.Validate())
	assert.Error(t, br.SetData(map[string]interface{}{"headless": "yes"}))
	require.NoError(t, br.SetData(map[string]interface{}{"viewport_height": float64(0)}))
	assert.Error(t, br.Validate())
}

func TestGlobalAccessors(t *testing.T) {
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()

	assert.False(t, IsInitialized())
	assert.Nil(t, GetRecorder())
	assert.Panics(t, func() { Global() })

	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	})
	assert.NotNil(t, GetRecorder())
	assert.NotNil(t, GetPlayer())
	assert.NotNil(t, GetBrowser())
}
