package flow

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFixedTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}

func TestLogAppendMergesWithinWindow(t *testing.T) {
	tests := []struct {
		name    string
		first   Action
		second  Action
		merged  bool
		wantLen int
	}{
		{
			name:    "same selector within window",
			first:   Input{Base: Base{Selector: "#u", Timestamp: 0}, Value: "a"},
			second:  Input{Base: Base{Selector: "#u", Timestamp: 50}, Value: "ab"},
			merged:  true,
			wantLen: 1,
		},
		{
			name:    "same selector outside window",
			first:   Input{Base: Base{Selector: "#u", Timestamp: 0}, Value: "a"},
			second:  Input{Base: Base{Selector: "#u", Timestamp: 150}, Value: "ab"},
			merged:  false,
			wantLen: 2,
		},
		{
			name:    "window bound is exclusive",
			first:   Click{Base: Base{Selector: "#b", Timestamp: 0}},
			second:  Click{Base: Base{Selector: "#b", Timestamp: 100}},
			merged:  false,
			wantLen: 2,
		},
		{
			name:    "different selector",
			first:   Input{Base: Base{Selector: "#u", Timestamp: 0}},
			second:  Input{Base: Base{Selector: "#p", Timestamp: 10}},
			merged:  false,
			wantLen: 2,
		},
		{
			name:    "different type",
			first:   Focus{Base: Base{Selector: "#u", Timestamp: 0}},
			second:  Input{Base: Base{Selector: "#u", Timestamp: 10}},
			merged:  false,
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLog(0)
			assert.False(t, l.Append(tt.first))
			assert.Equal(t, tt.merged, l.Append(tt.second))
			assert.Equal(t, tt.wantLen, l.Len())
			assert.Equal(t, tt.second, l.Last())
		})
	}
}

func TestLogDrain(t *testing.T) {
	l := NewLog(0)
	assert.Empty(t, l.Drain())
	assert.NotNil(t, l.Drain())

	l.Append(Focus{Base: Base{Selector: "#a", Timestamp: 1}})
	l.Append(Focus{Base: Base{Selector: "#b", Timestamp: 2}})

	snap := l.Snapshot()
	got := l.Drain()
	assert.Equal(t, snap, got)
	assert.Len(t, got, 2)
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Last())
}

// No two adjacent entries may share type and selector within the window.
func TestLogNoAdjacentDuplicatesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	step := gopter.CombineGens(
		gen.IntRange(0, 2),
		gen.IntRange(0, 2),
		gen.Int64Range(0, 250),
	)

	properties.Property("adjacent entries are distinguishable", prop.ForAll(
		func(steps [][]interface{}) bool {
			l := NewLog(0)
			ts := int64(0)
			for _, v := range steps {
				sel := []string{"#a", "#b", "#c"}[v[0].(int)]
				ts += v[2].(int64)
				base := Base{Selector: sel, Timestamp: ts}
				var a Action
				switch v[1].(int) {
				case 0:
					a = Input{Base: base}
				case 1:
					a = Click{Base: base}
				default:
					a = Focus{Base: base}
				}
				l.Append(a)
			}

			acts := l.Snapshot()
			for i := 1; i < len(acts); i++ {
				prev, cur := acts[i-1], acts[i]
				if prev.Type() == cur.Type() && prev.Header().Selector == cur.Header().Selector &&
					cur.Header().Timestamp-prev.Header().Timestamp < DefaultMergeWindow {
					return false
				}
			}
			return len(acts) <= len(steps)
		},
		gen.SliceOf(step),
	))

	properties.TestingRun(t)
}

func TestActionsJSONShape(t *testing.T) {
	acts := Actions{
		Navigation{Base: Base{Timestamp: 10}, URL: "https://example.com/next"},
		Input{Base: Base{Selector: "#u", Timestamp: 11}, Value: "", FieldType: "text"},
		Change{Base: Base{Selector: "#c", Timestamp: 12}, Value: "on", Checked: Bool(false)},
		Click{Base: Base{Selector: "a.go", Timestamp: 13}, Text: "Go", Href: "/next"},
	}

	data, err := json.Marshal(acts)
	require.NoError(t, err)

	var generic []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &generic))
	require.Len(t, generic, 4)

	assert.Equal(t, "navigation", generic[0]["type"])
	assert.Equal(t, "https://example.com/next", generic[0]["url"])
	assert.NotContains(t, generic[0], "selector")

	// An empty value is still a value.
	assert.Contains(t, generic[1], "value")
	assert.Equal(t, "text", generic[1]["fieldType"])

	assert.Equal(t, false, generic[2]["checked"])
	assert.Equal(t, "/next", generic[3]["href"])

	var back Actions
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, acts, back)
}

func TestUnknownActionIsPreserved(t *testing.T) {
	data := []byte(`[{"type":"hover","selector":"#x","timestamp":5,"extra":1}]`)

	var acts Actions
	require.NoError(t, json.Unmarshal(data, &acts))
	require.Len(t, acts, 1)

	u, ok := acts[0].(Unknown)
	require.True(t, ok)
	assert.Equal(t, Type("hover"), u.Type())
	assert.Equal(t, "#x", u.Selector)
	assert.False(t, Known(u.Type()))

	out, err := json.Marshal(acts)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(out))
}

func TestUnmarshalActionRequiresType(t *testing.T) {
	_, err := UnmarshalAction([]byte(`{"selector":"#x"}`))
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	withFixedTime(t, at)

	r, err := NewRecord("Login", "https://app.example.com:8443/login?x=1", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "app.example.com", r.Domain)
	assert.Equal(t, at, r.CreatedAt)
	assert.NotNil(t, r.Actions)
	assert.Zero(t, r.PlayCount)
	assert.NoError(t, r.Validate())

	_, err = NewRecord("", "https://example.com", nil)
	assert.Error(t, err)
	_, err = NewRecord("x", "not a url", nil)
	assert.Error(t, err)
}

func TestDuplicate(t *testing.T) {
	r, err := NewRecord("Signup", "https://example.com/signup", Actions{
		Click{Base: Base{Selector: "#go", Timestamp: 1}},
	})
	require.NoError(t, err)
	r.MarkPlayed()
	r.MarkPlayed()

	later := r.CreatedAt.Add(time.Hour)
	withFixedTime(t, later)

	dup := Duplicate(r)
	assert.NotEqual(t, r.ID, dup.ID)
	assert.Equal(t, "Signup (Copy)", dup.Name)
	assert.Equal(t, 0, dup.PlayCount)
	assert.Equal(t, later, dup.CreatedAt)
	assert.Equal(t, r.Actions, dup.Actions)
	assert.Equal(t, 2, r.PlayCount)
}

func TestRename(t *testing.T) {
	r := &Record{ID: "1", Name: "old"}
	require.NoError(t, r.Rename("new"))
	assert.Equal(t, "new", r.Name)
	assert.Error(t, r.Rename(""))
	assert.Equal(t, "new", r.Name)
}

func TestExportRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	withFixedTime(t, at)

	r, err := NewRecord("Checkout", "https://shop.example.com/cart", Actions{
		Input{Base: Base{Selector: "#email", Timestamp: 1}, Value: "a@b.c", FieldType: "email"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewExport([]*Record{r}).Encode(&buf))

	doc, err := DecodeExport(&buf)
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, doc.Version)
	assert.Equal(t, at, doc.ExportDate)
	require.Len(t, doc.Flows, 1)
	assert.Equal(t, r, doc.Flows[0])
}

func TestDecodeExportRejectsMissingFlows(t *testing.T) {
	for _, in := range []string{
		`{"version":"1.0"}`,
		`{"version":"1.0","flows":null}`,
		`{"version":"1.0","flows":{}}`,
		`not json`,
	} {
		_, err := DecodeExport(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestMergeImport(t *testing.T) {
	existing := []*Record{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	incoming := []*Record{
		{ID: "b", Name: "B2"},
		{ID: "c", Name: "C"},
		{ID: "c", Name: "C again"},
		{ID: "", Name: "no id"},
		nil,
		{ID: "d", Name: "D"},
	}

	added := MergeImport(existing, incoming)
	require.Len(t, added, 2)
	assert.Equal(t, "C", added[0].Name)
	assert.Equal(t, "d", added[1].ID)

	assert.Empty(t, MergeImport(append(existing, added...), incoming))
}
