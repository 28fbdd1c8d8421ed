package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formflow/pkg/dom"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
)

// Page adapts a session's Playwright page to player.Page. Playwright drives
// the browser from outside the document, so playback continues across
// navigations in the same call.
type Page struct {
	session *Session
	overlay *Overlay
	logger  *logging.Logger
}

var _ player.Page = (*Page)(nil)

func newPage(s *Session, overlay *Overlay, logger *logging.Logger) *Page {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Page{session: s, overlay: overlay, logger: logger}
}

// URL implements player.Page.
func (p *Page) URL() string {
	return p.session.Page.URL()
}

// Navigate implements player.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.session.Navigate(ctx, url, NavigateOptions{})
}

// Query implements player.Page.
func (p *Page) Query(selector string) (player.Target, error) {
	h, err := p.session.Page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if h == nil {
		return nil, nil
	}
	return &element{handle: h}, nil
}

// Overlay implements player.Page.
func (p *Page) Overlay() player.Overlay {
	return p.overlay
}

// element adapts an ElementHandle to player.Target.
type element struct {
	handle playwright.ElementHandle
}

const styleProbe = `el => {
  const cs = window.getComputedStyle(el);
  const r = el.getBoundingClientRect();
  return { display: cs.display, visibility: cs.visibility, opacity: parseFloat(cs.opacity), width: r.width, height: r.height };
}`

func (e *element) Visible() (bool, error) {
	res, err := e.handle.Evaluate(styleProbe)
	if err != nil {
		return false, fmt.Errorf("read style: %w", err)
	}
	m, ok := res.(map[string]interface{})
	if !ok {
		return false, fmt.Errorf("unexpected style result %T", res)
	}
	return styleFromMap(m).Visible(), nil
}

func styleFromMap(m map[string]interface{}) dom.Style {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return dom.Style{
		Display:    str("display"),
		Visibility: str("visibility"),
		Opacity:    number(m["opacity"]),
		Width:      number(m["width"]),
		Height:     number(m["height"]),
	}
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func (e *element) Kind() (player.Kind, error) {
	res, err := e.handle.Evaluate(`el => ({ tag: el.tagName.toLowerCase(), type: (el.getAttribute('type') || '').toLowerCase() })`)
	if err != nil {
		return player.Kind{}, fmt.Errorf("read kind: %w", err)
	}
	m, _ := res.(map[string]interface{})
	tag, _ := m["tag"].(string)
	typ, _ := m["type"].(string)
	if tag == "input" && typ == "" {
		typ = "text"
	}
	return player.Kind{Tag: tag, Type: typ}, nil
}

func (e *element) Focus() error {
	return e.handle.Focus()
}

func (e *element) Dispatch(event string, init map[string]interface{}) error {
	return e.handle.DispatchEvent(event, init)
}

func (e *element) SetValue(value string) error {
	_, err := e.handle.Evaluate(`(el, v) => { el.value = v; }`, value)
	return err
}

func (e *element) Value() (string, error) {
	res, err := e.handle.Evaluate(`el => (typeof el.value === 'string' ? el.value : '')`)
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

func (e *element) Checked() (bool, error) {
	return e.handle.IsChecked()
}

func (e *element) ScrollIntoView() error {
	_, err := e.handle.Evaluate(`el => el.scrollIntoView({ behavior: 'smooth', block: 'center' })`)
	return err
}

func (e *element) Highlight(d time.Duration) error {
	_, err := e.handle.Evaluate(`(el, ms) => {
  const prev = el.style.outline;
  el.style.outline = '2px solid #5b4cdb';
  setTimeout(() => { el.style.outline = prev; }, ms);
}`, d.Milliseconds())
	return err
}

func (e *element) Click() error {
	return e.handle.Click()
}
