package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formflow/pkg/dom"
)

func TestInferRole(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Role
	}{
		{"email type wins over name", `<input type="email" name="username">`, RoleEmail},
		{"password type", `<input type="password" name="whatever">`, RolePassword},
		{"tel type", `<input type="tel" name="x">`, RolePhone},
		{"date type", `<input type="date" name="x">`, RoleDate},
		{"username before email pattern", `<input name="user_email">`, RoleUsername},
		{"email pattern", `<input name="e-mail">`, RoleEmail},
		{"phone pattern", `<input name="mobile">`, RolePhone},
		{"name pattern", `<input name="fname">`, RoleName},
		{"address pattern", `<input name="street">`, RoleAddress},
		{"card pattern", `<input name="cardnumber">`, RoleCard},
		{"date pattern", `<input name="birth">`, RoleDate},
		{"checkbox pattern", `<input type="checkbox" name="agree">`, RoleCheckbox},
		{"placeholder", `<input name="q1" placeholder="Your street">`, RoleAddress},
		{"label text", `<label for="q2">Phone number</label><input id="q2">`, RolePhone},
		{"fallback", `<textarea name="comment"></textarea>`, RoleText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := dom.MustParse("<body>" + tt.html + "</body>")
			el := doc.MustQuery("input, textarea")
			assert.Equal(t, tt.want, InferRole(el))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	doc := dom.MustParse(`<body><form><label>Mail <input name="contact" class="x y"></label></form></body>`)
	el := doc.MustQuery("input")

	first := Classify(el)
	second := Classify(el)
	assert.Equal(t, first, second)
	assert.Equal(t, RoleEmail, first.Role)
	assert.Equal(t, KindInput, first.Kind)
	assert.Equal(t, "Mail", first.Label)
}

func TestKindOf(t *testing.T) {
	doc := dom.MustParse(`<body>
		<input id="a"><input id="b" type="submit"><select id="c"></select>
		<textarea id="d"></textarea><button id="e">Go</button><a id="f" href="/x">x</a>
	</body>`)
	want := map[string]Kind{
		"#a": KindInput, "#b": KindButton, "#c": KindSelect,
		"#d": KindTextarea, "#e": KindButton, "#f": KindLink,
	}
	for sel, kind := range want {
		assert.Equal(t, kind, KindOf(doc.MustQuery(sel)), sel)
	}
}

func TestIsRelevantField(t *testing.T) {
	doc := dom.MustParse(`<body>
		<input id="ok">
		<input id="hidden" type="hidden">
		<input id="none" style="display: none">
		<input id="disabled" disabled>
		<input id="readonly" readonly>
		<input id="submit" type="submit">
		<input id="button" type="button">
		<select id="select"></select>
		<button id="btn">Save</button>
	</body>`)
	want := map[string]bool{
		"#ok": true, "#hidden": false, "#none": false, "#disabled": false,
		"#readonly": false, "#submit": false, "#button": false, "#select": true, "#btn": false,
	}
	for sel, relevant := range want {
		assert.Equal(t, relevant, IsRelevantField(doc.MustQuery(sel)), sel)
	}
}

func TestIsActionTrigger(t *testing.T) {
	doc := dom.MustParse(`<body>
		<button id="t1" type="submit">Go</button>
		<button id="t2">Continue</button>
		<input id="t3" type="button" value="Register">
		<a id="t4" href="#" class="btn-login">Enter</a>
		<a id="t5" href="/next">Next page</a>
		<button id="n1">Cancel</button>
		<a id="n2" href="/about">About</a>
	</body>`)
	for _, sel := range []string{"#t1", "#t2", "#t3", "#t4", "#t5"} {
		assert.True(t, IsActionTrigger(doc.MustQuery(sel)), sel)
	}
	for _, sel := range []string{"#n1", "#n2"} {
		assert.False(t, IsActionTrigger(doc.MustQuery(sel)), sel)
	}
}

func TestResolveLabel(t *testing.T) {
	doc := dom.MustParse(`<body>
		<label for="a">For label</label>
		<label>Wrapping <input id="a" aria-label="aria"></label>
		<label>Wrapped <input id="b"></label>
		<div><label>Previous</label><input id="c"></div>
		<input id="d" aria-label=" Aria only ">
		<input id="e">
	</body>`)
	assert.Equal(t, "For label", ResolveLabel(doc.MustQuery("#a")))
	assert.Equal(t, "Wrapped", ResolveLabel(doc.MustQuery("#b")))
	assert.Equal(t, "Previous", ResolveLabel(doc.MustQuery("#c")))
	assert.Equal(t, "Aria only", ResolveLabel(doc.MustQuery("#d")))
	assert.Equal(t, "", ResolveLabel(doc.MustQuery("#e")))
}

func TestResolveSelector(t *testing.T) {
	doc := dom.MustParse(`<html><body>
		<main id="app">
			<section class="card md:flex wide extra">
				<div class="row">
					<span>label</span>
					<input class="pw field third" name="pw">
				</div>
			</section>
		</main>
		<div><div><div><div><p><input name="deep"></p></div></div></div></div>
		<input id="1st">
	</body></html>`)

	t.Run("id wins", func(t *testing.T) {
		assert.Equal(t, "#app", ResolveSelector(doc.MustQuery("main")))
	})

	t.Run("stops at ancestor with id", func(t *testing.T) {
		got := ResolveSelector(doc.MustQuery("input[name=pw]"))
		assert.Equal(t, "#app > section.card.wide > div.row > input.pw.field:nth-child(2)", got)

		found, err := doc.Query(got)
		require.NoError(t, err)
		assert.Equal(t, "pw", dom.AttrOr(found, "name"))
	})

	t.Run("caps at three ancestors", func(t *testing.T) {
		got := ResolveSelector(doc.MustQuery("input[name=deep]"))
		assert.Equal(t, "div > div > p > input", got)
	})

	t.Run("escapes leading digit", func(t *testing.T) {
		got := ResolveSelector(doc.MustQuery(`input[id="1st"]`))
		assert.Equal(t, `#\31 st`, got)
	})
}

func TestResolveSelectorStableAcrossSiblingReorder(t *testing.T) {
	doc := dom.MustParse(`<body><div id="box"><input id="keep"><input name="other"></div></body>`)
	keep := doc.MustQuery("#keep")
	before := ResolveSelector(keep)

	box := doc.MustQuery("#box").Raw()
	first := box.FirstChild
	box.RemoveChild(first)
	box.AppendChild(first)

	assert.Equal(t, before, ResolveSelector(keep))
	assert.Equal(t, "#keep", before)
}

func TestDetectForms(t *testing.T) {
	doc := dom.MustParse(`<body>
		<form id="login" action="/session" method="post">
			<input name="username">
			<input type="password" name="password">
			<input type="hidden" name="csrf">
			<button type="submit">Sign in</button>
			<button type="button">Cancel</button>
		</form>
		<form name="empty"><input type="hidden" name="x"></form>
		<input name="newsletter_email" type="email">
		<button class="subscribe-next">Next</button>
	</body>`)

	groups, err := DetectForms(doc)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	login := groups[0]
	assert.Equal(t, "login", login.ID)
	assert.Equal(t, "/session", login.Action)
	require.Len(t, login.Fields, 2)
	assert.Equal(t, RoleUsername, login.Fields[0].Role)
	assert.Equal(t, RolePassword, login.Fields[1].Role)
	require.Len(t, login.SubmitButtons, 1)
	assert.Equal(t, "Sign in", doc.MustQuery(login.SubmitButtons[0].Selector).Text())

	standalone := groups[1]
	assert.Equal(t, StandaloneGroupID, standalone.ID)
	require.Len(t, standalone.Fields, 1)
	assert.Equal(t, RoleEmail, standalone.Fields[0].Role)
	require.Len(t, standalone.SubmitButtons, 1)
}
