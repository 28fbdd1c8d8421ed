package browser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formflow/pkg/dom"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/recorder"
)

// bindingName is the page-side function the capture script posts to.
const bindingName = "__formflowEmit"

// CaptureScript runs in every document of a recording context. It
// registers capture-phase listeners and a mutation observer and posts each
// event, with a snapshot of its target, to the exposed binding.
const CaptureScript = `(() => {
  if (window.__formflowCapture) return;
  window.__formflowCapture = true;
  const MAX_DEPTH = 8;
  const snap = (el, depth) => {
    if (!el || el.nodeType !== 1) return null;
    const attrs = {};
    for (const a of el.attributes) attrs[a.name] = a.value;
    const cs = window.getComputedStyle(el);
    const r = el.getBoundingClientRect();
    const parent = el.parentElement;
    const siblings = parent ? Array.from(parent.children) : [el];
    const s = {
      tag: el.tagName.toLowerCase(),
      attrs,
      text: (el.textContent || '').trim().slice(0, 200),
      style: {
        display: cs.display,
        visibility: cs.visibility,
        opacity: parseFloat(cs.opacity),
        width: r.width,
        height: r.height,
      },
      index: siblings.indexOf(el),
      siblings: siblings.length,
    };
    if (depth < MAX_DEPTH && parent) s.parent = snap(parent, depth + 1);
    if (depth === 0) {
      if (el.previousElementSibling) s.prev = snap(el.previousElementSibling, MAX_DEPTH);
      if (el.id) {
        const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
        if (l) s.labels = { [el.id]: (l.textContent || '').trim() };
      }
    }
    return s;
  };
  const post = (payload) => {
    try { window.` + bindingName + `(JSON.stringify(payload)); } catch (e) {}
  };
  const live = (t) => {
    const out = {};
    if (typeof t.value === 'string') out.value = t.value;
    if (t.type === 'checkbox' || t.type === 'radio') out.checked = !!t.checked;
    if (t.tagName === 'SELECT' && t.selectedIndex >= 0) out.selectedText = t.options[t.selectedIndex].text;
    return out;
  };
  const listen = (type, kind) => document.addEventListener(type, (e) => {
    const t = e.target;
    if (!t || t.nodeType !== 1) return;
    if (t.closest && t.closest('[data-formflow-overlay]')) return;
    const payload = Object.assign({ kind, target: snap(t, 0) }, live(t));
    if (kind === 'keydown') payload.key = e.key;
    if (kind === 'click') {
      const a = t.closest && t.closest('a');
      if (a && a.href) payload.href = a.href;
    }
    post(payload);
  }, true);
  listen('input', 'input');
  listen('change', 'change');
  listen('click', 'click');
  listen('focusin', 'focus');
  listen('keydown', 'keydown');
  const observe = () => {
    new MutationObserver((mutations) => {
      const added = [];
      for (const m of mutations) {
        if (m.type !== 'childList') continue;
        m.addedNodes.forEach((n) => {
          if (n.nodeType === 1 && !n.hasAttribute('data-formflow-overlay')) added.push(snap(n, 0));
        });
      }
      if (added.length) post({ kind: 'mutation', added });
    }).observe(document.body, {
      childList: true,
      subtree: true,
      attributes: true,
      attributeFilter: ['style', 'class', 'disabled', 'hidden'],
    });
  };
  if (document.body) observe();
  else document.addEventListener('DOMContentLoaded', observe);
})();`

// eventPayload is the JSON posted by CaptureScript.
type eventPayload struct {
	Kind         recorder.EventKind `json:"kind"`
	Target       *dom.Snapshot      `json:"target"`
	Value        string             `json:"value"`
	Checked      bool               `json:"checked"`
	SelectedText string             `json:"selectedText"`
	Key          string             `json:"key"`
	Href         string             `json:"href"`
	Added        []*dom.Snapshot    `json:"added"`
}

// DecodeEvent converts a capture payload into a recorder event.
func DecodeEvent(data []byte) (recorder.RawEvent, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return recorder.RawEvent{}, fmt.Errorf("failed to decode capture event: %w", err)
	}
	if p.Kind == "" {
		return recorder.RawEvent{}, fmt.Errorf("capture event has no kind")
	}

	ev := recorder.RawEvent{
		Kind:         p.Kind,
		Value:        p.Value,
		Checked:      p.Checked,
		SelectedText: p.SelectedText,
		Key:          p.Key,
		Href:         p.Href,
	}
	if p.Target != nil && p.Target.TagName != "" {
		ev.Target = p.Target
	}
	for _, s := range p.Added {
		if s != nil && s.TagName != "" {
			ev.Added = append(ev.Added, s)
		}
	}
	if p.Kind != recorder.EventMutation && ev.Target == nil {
		return recorder.RawEvent{}, fmt.Errorf("%s event has no target", p.Kind)
	}
	return ev, nil
}

// EventSource delivers capture events from a browser context to a single
// recorder. It implements recorder.EventSource.
type EventSource struct {
	mu      sync.Mutex
	handler func(recorder.RawEvent)
	overlay *Overlay
	logger  *logging.Logger
}

func installCapture(bc playwright.BrowserContext, page playwright.Page, overlay *Overlay, logger *logging.Logger) (*EventSource, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	es := &EventSource{overlay: overlay, logger: logger}

	err := bc.ExposeBinding(bindingName, func(source *playwright.BindingSource, args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		payload, ok := args[0].(string)
		if !ok {
			es.logger.Debugf("ignoring non-string capture payload %T", args[0])
			return nil
		}
		es.Deliver([]byte(payload))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expose capture binding: %w", err)
	}

	script := CaptureScript
	if err := bc.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return nil, fmt.Errorf("failed to add capture script: %w", err)
	}

	// Init scripts only apply to documents created after registration.
	if _, err := page.Evaluate(CaptureScript); err != nil {
		logger.Warnf("failed to inject capture script into current document: %v", err)
	}

	page.OnLoad(func(playwright.Page) {
		if es.active() {
			if err := es.overlay.ShowRecording(); err != nil {
				es.logger.Debugf("recording indicator: %v", err)
			}
		}
	})
	return es, nil
}

// Subscribe implements recorder.EventSource.
func (e *EventSource) Subscribe(handler func(recorder.RawEvent)) (func(), error) {
	e.mu.Lock()
	if e.handler != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("capture already has a subscriber")
	}
	e.handler = handler
	e.mu.Unlock()

	if e.overlay != nil {
		if err := e.overlay.ShowRecording(); err != nil {
			e.logger.Debugf("recording indicator: %v", err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			e.handler = nil
			e.mu.Unlock()
			if e.overlay != nil {
				if err := e.overlay.HideRecording(); err != nil {
					e.logger.Debugf("recording indicator: %v", err)
				}
			}
		})
	}, nil
}

// Deliver decodes a capture payload and hands it to the subscriber.
// Payloads arriving with no subscriber are dropped.
func (e *EventSource) Deliver(payload []byte) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h == nil {
		return
	}

	ev, err := DecodeEvent(payload)
	if err != nil {
		e.logger.Debugf("dropping capture event: %v", err)
		return
	}
	h(ev)
}

func (e *EventSource) active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler != nil
}
