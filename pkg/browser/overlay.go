package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formflow/pkg/player"
)

// Overlay draws the recording and playback indicators and toasts into the
// page. Every element it creates carries data-formflow-overlay so the
// capture script ignores it.
type Overlay struct {
	page playwright.Page
}

var _ player.Overlay = (*Overlay)(nil)

const overlayStyle = `
#formflow-recording, #formflow-playback {
  position: fixed; top: 16px; right: 16px; z-index: 2147483647;
  display: flex; align-items: center; gap: 8px; padding: 8px 14px;
  border-radius: 8px; font: 13px/1.3 system-ui, sans-serif; color: #fff;
  box-shadow: 0 4px 12px rgba(0,0,0,.2);
}
#formflow-recording { background: #d93025; }
#formflow-recording .dot { width: 8px; height: 8px; border-radius: 50%; background: #fff; animation: formflow-pulse 1s infinite; }
#formflow-playback { background: #5b4cdb; flex-direction: column; align-items: stretch; }
#formflow-playback .bar { height: 3px; background: rgba(255,255,255,.3); border-radius: 2px; }
#formflow-playback .fill { height: 100%; width: 0%; background: #fff; border-radius: 2px; transition: width .2s; }
.formflow-toast {
  position: fixed; bottom: 24px; right: 24px; z-index: 2147483647; padding: 10px 16px;
  border-radius: 8px; font: 13px system-ui, sans-serif; color: #fff; opacity: 0; transition: opacity .3s;
}
.formflow-toast.show { opacity: 1; }
.formflow-toast-success { background: #188038; }
.formflow-toast-error { background: #d93025; }
.formflow-toast-info { background: #5b4cdb; }
@keyframes formflow-pulse { 50% { opacity: .3; } }
`

const ensureStyle = `(css) => {
  if (document.getElementById('formflow-style')) return;
  const s = document.createElement('style');
  s.id = 'formflow-style';
  s.setAttribute('data-formflow-overlay', '');
  s.textContent = css;
  (document.head || document.documentElement).appendChild(s);
}`

func (o *Overlay) eval(script string, arg ...interface{}) error {
	if o == nil || o.page == nil {
		return nil
	}
	if _, err := o.page.Evaluate(ensureStyle, overlayStyle); err != nil {
		return fmt.Errorf("overlay style: %w", err)
	}
	if _, err := o.page.Evaluate(script, arg...); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	return nil
}

// ShowRecording adds the recording indicator.
func (o *Overlay) ShowRecording() error {
	return o.eval(`() => {
  if (document.getElementById('formflow-recording') || !document.body) return;
  const el = document.createElement('div');
  el.id = 'formflow-recording';
  el.setAttribute('data-formflow-overlay', '');
  el.innerHTML = '<div class="dot"></div><span>Recording</span>';
  document.body.appendChild(el);
}`)
}

// HideRecording removes the recording indicator.
func (o *Overlay) HideRecording() error {
	return o.eval(`() => { const el = document.getElementById('formflow-recording'); if (el) el.remove(); }`)
}

// ShowPlayback implements player.Overlay.
func (o *Overlay) ShowPlayback() error {
	return o.eval(`() => {
  if (document.getElementById('formflow-playback') || !document.body) return;
  const el = document.createElement('div');
  el.id = 'formflow-playback';
  el.setAttribute('data-formflow-overlay', '');
  el.innerHTML = '<span>&#9654; Playing Flow</span><div class="bar"><div class="fill"></div></div>';
  document.body.appendChild(el);
}`)
}

// Progress implements player.Overlay.
func (o *Overlay) Progress(done, total int) error {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	return o.eval(`(pct) => {
  const fill = document.querySelector('#formflow-playback .fill');
  if (fill) fill.style.width = pct + '%';
}`, pct)
}

// Toast implements player.Overlay.
func (o *Overlay) Toast(kind player.ToastKind, message string) error {
	return o.eval(`([kind, message]) => {
  if (!document.body) return;
  const t = document.createElement('div');
  t.className = 'formflow-toast formflow-toast-' + kind;
  t.setAttribute('data-formflow-overlay', '');
  t.textContent = message;
  document.body.appendChild(t);
  setTimeout(() => t.classList.add('show'), 10);
  setTimeout(() => { t.classList.remove('show'); setTimeout(() => t.remove(), 300); }, 3000);
}`, []interface{}{string(kind), message})
}

// HidePlayback implements player.Overlay.
func (o *Overlay) HidePlayback() error {
	return o.eval(`() => { const el = document.getElementById('formflow-playback'); if (el) el.remove(); }`)
}
