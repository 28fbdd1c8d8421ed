package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/dom"
)

// fakePage drives a parsed document in memory.
type fakePage struct {
	mu      sync.Mutex
	doc     *dom.Document
	url     string
	suspend bool
	events  []string
	queries int

	clickErr error
	onQuery  func(n int)
	onNav    func()
	overlay  *fakeOverlay
}

func newFakePage(html, url string) *fakePage {
	return &fakePage{doc: dom.MustParse(html), url: url, overlay: &fakeOverlay{}}
}

func (f *fakePage) record(format string, args ...interface{}) {
	f.mu.Lock()
	f.events = append(f.events, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakePage) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakePage) count(event string) int {
	n := 0
	for _, e := range f.Events() {
		if e == event {
			n++
		}
	}
	return n
}

func (f *fakePage) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.record("navigate %s", url)
	if f.onNav != nil {
		f.onNav()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	if f.suspend {
		return ErrSuspended
	}
	return nil
}

func (f *fakePage) Query(selector string) (Target, error) {
	f.mu.Lock()
	f.queries++
	n := f.queries
	hook := f.onQuery
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	node, err := f.doc.Query(selector)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return &fakeTarget{page: f, node: node, sel: selector}, nil
}

func (f *fakePage) Overlay() Overlay {
	return f.overlay
}

func (f *fakePage) value(selector string) string {
	return dom.AttrOr(f.doc.MustQuery(selector), "value")
}

func (f *fakePage) checked(selector string) bool {
	return dom.HasAttr(f.doc.MustQuery(selector), "checked")
}

type fakeTarget struct {
	page *fakePage
	node *dom.Node
	sel  string
}

func (t *fakeTarget) Visible() (bool, error) { return dom.Visible(t.node), nil }

func (t *fakeTarget) Kind() (Kind, error) {
	return Kind{Tag: t.node.Tag(), Type: dom.Type(t.node)}, nil
}

func (t *fakeTarget) Focus() error {
	t.page.record("focus %s", t.sel)
	return nil
}

func (t *fakeTarget) Dispatch(event string, init map[string]interface{}) error {
	if key, ok := init["key"]; ok {
		t.page.record("dispatch %s %s key=%v code=%v", event, t.sel, key, init["code"])
		return nil
	}
	t.page.record("dispatch %s %s", event, t.sel)
	return nil
}

func (t *fakeTarget) SetValue(value string) error {
	t.node.SetAttr("value", value)
	return nil
}

func (t *fakeTarget) Value() (string, error) {
	return dom.AttrOr(t.node, "value"), nil
}

func (t *fakeTarget) Checked() (bool, error) {
	return dom.HasAttr(t.node, "checked"), nil
}

func (t *fakeTarget) ScrollIntoView() error {
	t.page.record("scroll %s", t.sel)
	return nil
}

func (t *fakeTarget) Highlight(d time.Duration) error {
	t.page.record("highlight %s %s", t.sel, d)
	return nil
}

func (t *fakeTarget) Click() error {
	if t.page.clickErr != nil {
		return t.page.clickErr
	}
	switch dom.Type(t.node) {
	case "checkbox":
		if dom.HasAttr(t.node, "checked") {
			t.node.RemoveAttr("checked")
		} else {
			t.node.SetAttr("checked", "")
		}
	case "radio":
		t.node.SetAttr("checked", "")
	}
	t.page.record("click %s", t.sel)
	return nil
}

type fakeOverlay struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (o *fakeOverlay) add(s string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, s)
	if o.fail {
		return errors.New("overlay detached")
	}
	return nil
}

func (o *fakeOverlay) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

func (o *fakeOverlay) ShowPlayback() error { return o.add("show") }
func (o *fakeOverlay) Progress(done, total int) error {
	return o.add(fmt.Sprintf("progress %d/%d", done, total))
}
func (o *fakeOverlay) Toast(kind ToastKind, message string) error {
	return o.add(fmt.Sprintf("toast %s %s", kind, message))
}
func (o *fakeOverlay) HidePlayback() error { return o.add("hide") }
