package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<!DOCTYPE html>
<html><body>
  <form id="login">
    <label for="email">Email address</label>
    <input id="email" name="email" type="email">
    <div class="row">
      <span>one</span>
      <input class="pw field" name="pw" type="password">
    </div>
    <input type="hidden" name="csrf" value="x">
    <div style="display:none"><input name="ghost"></div>
    <input name="faded" style="opacity: 0">
    <button type="submit">Sign in</button>
  </form>
</body></html>`

func TestDocumentQueryAndIdentity(t *testing.T) {
	doc := MustParse(fixture)

	a, err := doc.Query("#email")
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := doc.Query("input[name=email]")
	require.NoError(t, err)
	assert.Same(t, a, b, "the same html node must wrap to the same Node")

	missing, err := doc.Query("#nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = doc.Query("[[")
	assert.Error(t, err)
}

func TestNodeRelations(t *testing.T) {
	doc := MustParse(fixture)
	pw := doc.MustQuery("input[name=pw]")

	parent := pw.Parent()
	require.NotNil(t, parent)
	assert.Equal(t, "div", parent.Tag())
	assert.Equal(t, []string{"row"}, Classes(parent))

	prev := pw.PrevSibling()
	require.NotNil(t, prev)
	assert.Equal(t, "span", prev.Tag())
	assert.Equal(t, "one", prev.Text())

	index, count := pw.Position()
	assert.Equal(t, 1, index)
	assert.Equal(t, 2, count)

	html := doc.MustQuery("html")
	assert.Nil(t, html.Parent())
}

func TestNodeStyleVisibility(t *testing.T) {
	doc := MustParse(fixture)

	assert.True(t, Visible(doc.MustQuery("#email")))
	assert.False(t, Visible(doc.MustQuery("input[name=csrf]")))
	assert.False(t, Visible(doc.MustQuery("input[name=ghost]")), "ancestor display:none collapses the box")
	assert.False(t, Visible(doc.MustQuery("input[name=faded]")))
}

func TestLabelFor(t *testing.T) {
	doc := MustParse(fixture)
	email := doc.MustQuery("#email")
	assert.Equal(t, "Email address", email.LabelFor("email"))
	assert.Equal(t, "", email.LabelFor(""))
	assert.Equal(t, "", email.LabelFor("other"))
}

func TestSetAttrAndAppend(t *testing.T) {
	doc := MustParse(fixture)
	email := doc.MustQuery("#email")
	email.SetAttr("style", "display:none")
	assert.False(t, Visible(email))
	email.RemoveAttr("style")
	assert.True(t, Visible(email))

	added, err := doc.Append(doc.Body(), `<dialog id="later"><input name="code"></dialog>`)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "dialog", added[0].Tag())
	found, err := doc.Query("#later input")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestStyleVisible(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		want  bool
	}{
		{"rendered", Style{Display: "block", Visibility: "visible", Opacity: 1, Width: 10, Height: 10}, true},
		{"zero width", Style{Display: "block", Visibility: "visible", Opacity: 1, Width: 0, Height: 10}, false},
		{"display none", Style{Display: "none", Visibility: "visible", Opacity: 1, Width: 10, Height: 10}, false},
		{"visibility hidden", Style{Display: "block", Visibility: "hidden", Opacity: 1, Width: 10, Height: 10}, false},
		{"transparent", Style{Display: "block", Visibility: "visible", Opacity: 0, Width: 10, Height: 10}, false},
		{"half opacity", Style{Display: "inline", Visibility: "visible", Opacity: 0.5, Width: 1, Height: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.Visible())
		})
	}
}

func TestDecodeSnapshot(t *testing.T) {
	raw := []byte(`{
		"tag": "INPUT",
		"attrs": {"id": "user", "name": "username", "class": "a b"},
		"style": {"display": "block", "visibility": "visible", "opacity": 1, "width": 120, "height": 24},
		"index": 2, "siblings": 4,
		"labels": {"user": " Username "},
		"parent": {"tag": "div", "attrs": {"class": "field"}, "style": {}, "index": 0, "siblings": 1},
		"prev": {"tag": "label", "text": "User", "style": {}}
	}`)
	s, err := DecodeSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, "input", s.Tag())
	assert.Equal(t, "user", ID(s))
	assert.Equal(t, []string{"a", "b"}, Classes(s))
	assert.True(t, Visible(s))
	i, n := s.Position()
	assert.Equal(t, 2, i)
	assert.Equal(t, 4, n)
	assert.Equal(t, "Username", s.LabelFor("user"))

	parent := s.Parent()
	require.NotNil(t, parent)
	assert.Equal(t, "div", parent.Tag())
	assert.Nil(t, parent.Parent())
	assert.Equal(t, "Username", parent.LabelFor("user"), "label table is shared with ancestors")

	prev := s.PrevSibling()
	require.NotNil(t, prev)
	assert.Equal(t, "User", prev.Text())

	_, err = DecodeSnapshot([]byte(`{"attrs":{}}`))
	assert.Error(t, err)
}
