// Package recorder turns a stream of page events into a flow.Action
// sequence.
package recorder

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/classifier"
	"github.com/entrhq/formflow/pkg/clock"
	"github.com/entrhq/formflow/pkg/dom"
	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/session"
)

const (
	// DefaultDebounce is the quiet period after the last keystroke before
	// an input action is recorded.
	DefaultDebounce = 500 * time.Millisecond

	// navigationOffset is added to a link click's timestamp for the
	// navigation that follows it.
	navigationOffset int64 = 100
)

// Options configures a Recorder. Zero values select defaults.
type Options struct {
	Debounce    time.Duration
	MergeWindow int64
	Clock       clock.Clock
	Logger      *logging.Logger
	Sink        Sink
}

// Status describes the recorder at a point in time.
type Status struct {
	Recording bool
	Actions   int
}

// Recorder captures user interactions from an EventSource. Start and Stop
// may be called from any goroutine. Recording never surfaces errors to the
// page; failures are logged.
type Recorder struct {
	source EventSource
	opts   Options
	guard  *session.Machine

	mu          sync.Mutex
	log         *flow.Log
	unsubscribe func()
	pending     *pendingInput

	// queue holds sink deliveries in sequence order. One goroutine drains
	// it at a time.
	queue    []delivery
	draining bool
	sinks    sync.WaitGroup
}

type delivery struct {
	action flow.Action
	merged bool
}

type pendingInput struct {
	el    dom.Element
	sel   string
	value string
	timer clock.Timer
}

// New returns an idle recorder reading from source.
func New(source EventSource, opts Options) *Recorder {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Recorder{
		source: source,
		opts:   opts,
		guard:  session.New("recording"),
		log:    flow.NewLog(opts.MergeWindow),
	}
}

// Start begins capturing. It is a no-op when already recording. If the
// event source cannot be attached the recorder stays idle.
func (r *Recorder) Start() error {
	if !r.guard.TryEnter() {
		r.opts.Logger.Debugf("start ignored: recording already active")
		return nil
	}

	r.mu.Lock()
	r.log.Drain()
	r.pending = nil
	r.mu.Unlock()

	unsubscribe, err := r.source.Subscribe(r.handle)
	if err != nil {
		r.guard.Leave()
		r.opts.Logger.Errorf("failed to attach event source: %v", err)
		return fmt.Errorf("failed to attach event source: %w", err)
	}

	r.mu.Lock()
	if !r.guard.Active() {
		// Stopped while attaching.
		r.mu.Unlock()
		unsubscribe()
		return nil
	}
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	r.opts.Logger.Infof("recording started")
	return nil
}

// Stop ends capturing and returns the recorded sequence, clearing it. A
// pending debounced input is recorded before stopping. Stop returns nil
// when not recording.
func (r *Recorder) Stop() flow.Actions {
	r.mu.Lock()
	if !r.guard.Active() {
		r.mu.Unlock()
		return nil
	}
	r.flushPendingLocked()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	actions := r.log.Drain()
	r.guard.Leave()
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.opts.Logger.Infof("recording stopped with %d actions", len(actions))
	return actions
}

// Append adds an action captured outside the event source to the
// sequence, applying the merge rule. It reports false when not recording.
func (r *Recorder) Append(a flow.Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.guard.Active() {
		return false
	}
	r.appendLocked(a)
	return true
}

// Snapshot returns a copy of the actions captured so far in the current
// session. A pending debounced input is not included.
func (r *Recorder) Snapshot() flow.Actions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Snapshot()
}

// Status reports whether recording is active and how many actions have
// been captured.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{Recording: r.guard.Active(), Actions: r.log.Len()}
}

// Wait blocks until every action handed to the sink has been delivered.
func (r *Recorder) Wait() {
	r.sinks.Wait()
}

func (r *Recorder) handle(ev RawEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.opts.Logger.Errorf("panic handling %s event: %v", ev.Kind, p)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.guard.Active() {
		return
	}

	switch ev.Kind {
	case EventInput:
		r.onInput(ev)
	case EventChange:
		r.onChange(ev)
	case EventClick:
		r.onClick(ev)
	case EventFocus:
		r.onFocus(ev)
	case EventKeydown:
		r.onKeydown(ev)
	case EventMutation:
		r.onMutation(ev)
	default:
		r.opts.Logger.Debugf("ignoring event kind %q", ev.Kind)
	}
}

func (r *Recorder) onInput(ev RawEvent) {
	if ev.Target == nil || !classifier.IsFormElement(ev.Target) {
		return
	}
	sel := classifier.ResolveSelector(ev.Target)

	if p := r.pending; p != nil {
		p.timer.Stop()
		if p.sel != sel {
			r.flushPendingLocked()
		}
	}

	p := &pendingInput{el: ev.Target, sel: sel, value: ev.Value}
	p.timer = r.opts.Clock.AfterFunc(r.opts.Debounce, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.pending == p && r.guard.Active() {
			r.flushPendingLocked()
		}
	})
	r.pending = p
}

func (r *Recorder) flushPendingLocked() {
	p := r.pending
	if p == nil {
		return
	}
	r.pending = nil
	p.timer.Stop()

	r.recordLocked(flow.Input{
		Base:      flow.Base{Selector: p.sel, Timestamp: r.nowMillis()},
		Value:     p.value,
		FieldType: string(classifier.InferRole(p.el)),
	})
}

func (r *Recorder) onChange(ev RawEvent) {
	el := ev.Target
	if el == nil || !classifier.IsFormElement(el) {
		return
	}

	a := flow.Change{
		Base:  flow.Base{Selector: classifier.ResolveSelector(el), Timestamp: r.nowMillis()},
		Value: ev.Value,
	}
	switch {
	case el.Tag() == "input" && (dom.Type(el) == "checkbox" || dom.Type(el) == "radio"):
		a.Checked = flow.Bool(ev.Checked)
	case el.Tag() == "select":
		a.SelectedText = ev.SelectedText
	}
	r.appendLocked(a)
}

func (r *Recorder) onClick(ev RawEvent) {
	if ev.Target == nil {
		return
	}
	el := dom.Closest(ev.Target, dom.IsTag("a", "button"))
	if el == nil {
		el = ev.Target
	}
	isLink := el.Tag() == "a"
	if !isLink && !classifier.IsActionTrigger(el) {
		return
	}

	text := el.Text()
	if text == "" {
		text = strings.TrimSpace(dom.AttrOr(el, "value"))
	}
	href := ev.Href
	if href == "" && isLink {
		href = dom.AttrOr(el, "href")
	}

	ts := r.nowMillis()
	r.appendLocked(flow.Click{
		Base: flow.Base{Selector: classifier.ResolveSelector(el), Timestamp: ts},
		Text: text,
		Href: href,
	})

	if isLink && href != "" {
		r.appendLocked(flow.Navigation{
			Base: flow.Base{Timestamp: ts + navigationOffset},
			URL:  href,
		})
	}
}

func (r *Recorder) onFocus(ev RawEvent) {
	if ev.Target == nil || !focusable(ev.Target) {
		return
	}
	r.appendLocked(flow.Focus{
		Base: flow.Base{Selector: classifier.ResolveSelector(ev.Target), Timestamp: r.nowMillis()},
	})
}

// focusable reports whether el is a form field a user can focus and fill.
// Button-like and hidden inputs are not.
func focusable(el dom.Element) bool {
	return classifier.IsFormElement(el) &&
		classifier.KindOf(el) != classifier.KindButton &&
		dom.Type(el) != "hidden"
}

func (r *Recorder) onKeydown(ev RawEvent) {
	if ev.Key != "Tab" && ev.Key != "Enter" {
		return
	}
	el := ev.Target
	if el == nil || !(classifier.IsFormElement(el) || classifier.IsActionTrigger(el)) {
		return
	}
	r.appendLocked(flow.Keypress{
		Base: flow.Base{Selector: classifier.ResolveSelector(el), Timestamp: r.nowMillis()},
		Key:  ev.Key,
	})
}

func (r *Recorder) onMutation(ev RawEvent) {
	for _, el := range ev.Added {
		if el == nil {
			continue
		}
		role, _ := el.Attr("role")
		if el.Tag() != "form" && el.Tag() != "dialog" && role != "dialog" {
			continue
		}
		r.appendLocked(flow.DOMChange{
			Base:   flow.Base{Selector: classifier.ResolveSelector(el), Timestamp: r.nowMillis()},
			Change: flow.ChangeElementAdded,
		})
	}
}

// appendLocked records a and keeps the sequence in the order the user
// acted: a pending input is recorded first.
func (r *Recorder) appendLocked(a flow.Action) {
	r.flushPendingLocked()
	r.recordLocked(a)
}

func (r *Recorder) recordLocked(a flow.Action) {
	merged := r.log.Append(a)
	if r.opts.Sink == nil {
		return
	}
	r.queue = append(r.queue, delivery{action: a, merged: merged})
	if !r.draining {
		r.draining = true
		r.sinks.Add(1)
		go r.drain()
	}
}

func (r *Recorder) drain() {
	defer r.sinks.Done()
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}
		d := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.deliver(d)
	}
}

func (r *Recorder) deliver(d delivery) {
	defer func() {
		if p := recover(); p != nil {
			r.opts.Logger.Errorf("action sink panicked: %v", p)
		}
	}()
	if err := r.opts.Sink(d.action, d.merged); err != nil {
		r.opts.Logger.Warnf("failed to forward %s action: %v", d.action.Type(), err)
	}
}

func (r *Recorder) nowMillis() int64 {
	return r.opts.Clock.Now().UnixMilli()
}
