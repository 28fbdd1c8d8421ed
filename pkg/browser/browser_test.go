package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formflow/pkg/classifier"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/recorder"
)

const clickPayload = `{
  "kind": "click",
  "href": "https://example.com/next",
  "target": {
    "tag": "a",
    "attrs": {"class": "btn primary", "href": "/next"},
    "text": "Continue",
    "style": {"display": "inline", "visibility": "visible", "opacity": 1, "width": 80, "height": 20},
    "index": 1,
    "siblings": 2,
    "parent": {
      "tag": "div",
      "attrs": {"id": "actions"},
      "style": {"display": "block", "visibility": "visible", "opacity": 1, "width": 300, "height": 40},
      "index": 0,
      "siblings": 1
    }
  }
}`

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(clickPayload))
	require.NoError(t, err)

	assert.Equal(t, recorder.EventClick, ev.Kind)
	assert.Equal(t, "https://example.com/next", ev.Href)
	require.NotNil(t, ev.Target)
	assert.Equal(t, "a", ev.Target.Tag())
	assert.Equal(t, "Continue", ev.Target.Text())
	assert.Equal(t, "#actions > a.btn.primary:nth-child(2)", classifier.ResolveSelector(ev.Target))
}

func TestDecodeEventErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":       `{`,
		"missing kind":   `{"target":{"tag":"input"}}`,
		"missing target": `{"kind":"input","value":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(payload))
			assert.Error(t, err)
		})
	}

	ev, err := DecodeEvent([]byte(`{"kind":"mutation","added":[{"tag":"form","attrs":{"id":"f"},"style":{}},{"tag":""}]}`))
	require.NoError(t, err)
	require.Len(t, ev.Added, 1)
	assert.Equal(t, "form", ev.Added[0].Tag())
}

func TestEventSourceDelivery(t *testing.T) {
	es := &EventSource{logger: logging.Discard()}

	// Nothing is delivered without a subscriber.
	es.Deliver([]byte(clickPayload))

	var got []recorder.RawEvent
	unsubscribe, err := es.Subscribe(func(ev recorder.RawEvent) { got = append(got, ev) })
	require.NoError(t, err)
	assert.True(t, es.active())

	_, err = es.Subscribe(func(recorder.RawEvent) {})
	assert.Error(t, err, "only one recorder may subscribe")

	es.Deliver([]byte(clickPayload))
	es.Deliver([]byte(`garbage`))
	require.Len(t, got, 1)

	unsubscribe()
	unsubscribe()
	assert.False(t, es.active())
	es.Deliver([]byte(clickPayload))
	assert.Len(t, got, 1)
}

func TestCaptureScriptPostsToBinding(t *testing.T) {
	assert.Contains(t, CaptureScript, "window."+bindingName+"(")
	for _, event := range []string{"'input'", "'change'", "'click'", "'focusin'", "'keydown'", "MutationObserver"} {
		assert.Contains(t, CaptureScript, event)
	}
}

func TestScanHTML(t *testing.T) {
	groups, err := ScanHTML(`<html><body>
<form id="signup" action="/register" method="post">
  <label for="email">Email</label><input id="email" type="email">
  <input id="pw" type="password">
  <button type="submit">Register</button>
</form>
<input id="search" name="q">
</body></html>`)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "signup", groups[0].ID)
	require.Len(t, groups[0].Fields, 2)
	assert.Equal(t, classifier.RoleEmail, groups[0].Fields[0].Role)
	assert.Equal(t, "Email", groups[0].Fields[0].Label)
	assert.Len(t, groups[0].SubmitButtons, 1)

	assert.Equal(t, classifier.StandaloneGroupID, groups[1].ID)
}

func TestStyleFromMap(t *testing.T) {
	st := styleFromMap(map[string]interface{}{
		"display": "block", "visibility": "visible", "opacity": 1, "width": 10.5, "height": int64(3),
	})
	assert.True(t, st.Visible())

	st = styleFromMap(map[string]interface{}{"display": "block", "visibility": "visible", "opacity": 0.0, "width": 10.0, "height": 3.0})
	assert.False(t, st.Visible())
}

func TestSessionInfoAndIdle(t *testing.T) {
	s := &Session{Name: "rec", CurrentURL: "https://example.com", Headless: true}
	before := time.Now()
	s.UpdateLastUsed()

	info := s.Info()
	assert.Equal(t, "rec", info.Name)
	assert.True(t, info.Headless)
	assert.False(t, s.lastUsed().Before(before))
}

func TestManagerRequiresInitialize(t *testing.T) {
	m := NewSessionManager(nil)
	_, err := m.StartSession("x", SessionOptions{Headless: true})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not initialized"))
	assert.False(t, m.HasSessions())
	assert.Empty(t, m.ListSessions())

	_, err = m.GetSession("x")
	assert.Error(t, err)
	assert.Error(t, m.CloseSession("x"))
	assert.NoError(t, m.CloseAll())
	assert.NoError(t, m.Shutdown())
}

func TestTabsRequireInitializedManager(t *testing.T) {
	tabs := NewTabs(NewSessionManager(nil), SessionOptions{Headless: true}, nil)

	_, err := tabs.Source(context.Background(), "tab-1", "https://example.com")
	assert.Error(t, err)
	_, err = tabs.Page(context.Background(), "tab-1")
	assert.Error(t, err)
}

func TestPlayerPageIsStable(t *testing.T) {
	s := &Session{Name: "play"}
	assert.Same(t, s.PlayerPage(nil), s.PlayerPage(nil))
}
