// Package coordinator routes commands from a UI to the recorder and the
// player, tracks the single global recording session and persists flows.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/recorder"
	"github.com/entrhq/formflow/pkg/store"
)

var (
	// ErrNothingToSave is returned by SaveRecording when no stopped
	// recording with actions is waiting.
	ErrNothingToSave = errors.New("no recorded actions to save")
	// ErrNotRecording is returned by operations that need an active
	// recording.
	ErrNotRecording = errors.New("no recording in progress")
)

// Tabs gives the coordinator access to browser tabs by ID.
type Tabs interface {
	// Source prepares tabID for recording at pageURL and returns its
	// event source.
	Source(ctx context.Context, tabID, pageURL string) (recorder.EventSource, error)
	// Page returns tabID as a playback target.
	Page(ctx context.Context, tabID string) (player.Page, error)
}

// Options configures a Coordinator. Sink and OnStep in the embedded
// recorder and player options are owned by the coordinator.
type Options struct {
	Recorder recorder.Options
	Player   player.Options
	Logger   *logging.Logger
}

// Status describes the recording session.
type Status struct {
	Recording bool         `json:"recording"`
	TabID     string       `json:"tabId,omitempty"`
	URL       string       `json:"url,omitempty"`
	StartedAt time.Time    `json:"startedAt,omitempty"`
	Actions   flow.Actions `json:"actions"`
}

type recording struct {
	tabID     string
	url       string
	startedAt time.Time
	rec       *recorder.Recorder
	// log holds the sequence of an external session.
	log       *flow.Log
	// count tracks the length of the forwarded sequence.
	count     int
}

// stopped is a finished recording waiting to be saved.
type stopped struct {
	url     string
	actions flow.Actions
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	tabs   Tabs
	flows  store.FlowStore
	opts   Options
	logger *logging.Logger
	events *bus

	mu      sync.Mutex
	active  *recording
	last    *stopped
	players map[string]*player.Player
	// playing holds the tabs with a PlayFlow call in progress.
	playing map[string]struct{}
}

// New returns a coordinator over tabs and flows.
func New(tabs Tabs, flows store.FlowStore, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Coordinator{
		tabs:    tabs,
		flows:   flows,
		opts:    opts,
		logger:  opts.Logger,
		events:  newBus(opts.Logger.With("events")),
		players: make(map[string]*player.Player),
		playing: make(map[string]struct{}),
	}
}

// Subscribe returns a channel of coordinator events and a function that
// cancels the subscription and closes the channel.
func (c *Coordinator) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// StartRecording begins recording tabID, whose page is at pageURL. A
// second start while a recording is active is ignored and reports the
// active session.
func (c *Coordinator) StartRecording(ctx context.Context, tabID, pageURL string) (Status, error) {
	return c.start(ctx, tabID, pageURL, false)
}

// StartExternalRecording opens a recording session for a tab whose events
// are captured elsewhere and delivered through RecordAction. The merge
// rule applies to delivered actions.
func (c *Coordinator) StartExternalRecording(ctx context.Context, tabID, pageURL string) (Status, error) {
	return c.start(ctx, tabID, pageURL, true)
}

func (c *Coordinator) start(ctx context.Context, tabID, pageURL string, external bool) (Status, error) {
	c.mu.Lock()
	if c.active != nil {
		st := c.statusLocked()
		c.mu.Unlock()
		c.logger.Debugf("start ignored: already recording tab %s", st.TabID)
		return st, nil
	}
	// Reserve the session so a concurrent start is ignored while the
	// source attaches.
	session := &recording{tabID: tabID, url: pageURL, startedAt: time.Now().UTC()}
	if external {
		session.log = flow.NewLog(c.opts.Recorder.MergeWindow)
	}
	c.active = session
	c.last = nil
	c.mu.Unlock()

	if !external {
		if err := c.attach(ctx, session); err != nil {
			c.abandon(session)
			return Status{}, err
		}
		c.mu.Lock()
		stillActive := c.active == session
		c.mu.Unlock()
		if !stillActive {
			// Stopped while attaching.
			session.rec.Stop()
			return c.Status(), nil
		}
	}

	c.logger.Infof("recording tab %s at %s", tabID, pageURL)
	c.events.publish(Event{Type: EventRecordingStarted, TabID: tabID})
	return c.Status(), nil
}

func (c *Coordinator) attach(ctx context.Context, session *recording) error {
	src, err := c.tabs.Source(ctx, session.tabID, session.url)
	if err != nil {
		return fmt.Errorf("failed to prepare tab %s: %w", session.tabID, err)
	}

	ropts := c.opts.Recorder
	if ropts.Logger == nil {
		ropts.Logger = c.logger.With("recorder")
	}
	ropts.Sink = func(a flow.Action, merged bool) error {
		// Actions flushed by Stop arrive after the session ended; the
		// stopped sequence already holds them.
		c.publishAction(session, a, merged)
		return nil
	}
	rec := recorder.New(src, ropts)
	c.mu.Lock()
	session.rec = rec
	c.mu.Unlock()
	return rec.Start()
}

func (c *Coordinator) abandon(session *recording) {
	c.mu.Lock()
	if c.active == session {
		c.active = nil
	}
	c.mu.Unlock()
}

// StopRecording ends the active recording and returns its actions. The
// result is kept for SaveRecording. It returns nil when not recording.
func (c *Coordinator) StopRecording(_ context.Context) flow.Actions {
	c.mu.Lock()
	session := c.active
	c.active = nil
	var rec *recorder.Recorder
	if session != nil {
		rec = session.rec
	}
	c.mu.Unlock()

	var actions flow.Actions
	switch {
	case session == nil:
		return nil
	case session.log != nil:
		actions = session.log.Drain()
	case rec != nil:
		actions = rec.Stop()
	default:
		return nil
	}
	if actions == nil {
		actions = flow.Actions{}
	}

	c.mu.Lock()
	c.last = &stopped{url: session.url, actions: actions}
	c.mu.Unlock()

	c.logger.Infof("recording of tab %s stopped with %d actions", session.tabID, len(actions))
	c.events.publish(Event{Type: EventRecordingStopped, TabID: session.tabID, Count: len(actions)})
	return actions
}

// RecordAction adds an action captured in tabID to the recording under
// the merge rule and announces it. Actions for a tab that is not being
// recorded are rejected with ErrNotRecording.
func (c *Coordinator) RecordAction(tabID string, a flow.Action) error {
	c.mu.Lock()
	session := c.active
	var rec *recorder.Recorder
	if session != nil {
		rec = session.rec
	}
	c.mu.Unlock()
	if session == nil || session.tabID != tabID {
		return ErrNotRecording
	}
	if session.log == nil {
		// The local recorder announces the action through its sink.
		if rec == nil || !rec.Append(a) {
			return ErrNotRecording
		}
		return nil
	}

	c.mu.Lock()
	if c.active != session {
		c.mu.Unlock()
		return ErrNotRecording
	}
	merged := session.log.Append(a)
	session.count = session.log.Len()
	count := session.count
	c.mu.Unlock()

	c.events.publish(withAction(Event{Type: EventActionRecorded, TabID: session.tabID, Count: count, Merged: merged}, a))
	return nil
}

// publishAction announces an action forwarded by a local recorder.
// Deliveries arrive in sequence order.
func (c *Coordinator) publishAction(session *recording, a flow.Action, merged bool) {
	c.mu.Lock()
	if c.active != session {
		c.mu.Unlock()
		return
	}
	if !merged {
		session.count++
	}
	count := session.count
	c.mu.Unlock()

	c.events.publish(withAction(Event{Type: EventActionRecorded, TabID: session.tabID, Count: count, Merged: merged}, a))
}

// Status reports the recording session and the actions captured so far.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Coordinator) statusLocked() Status {
	if c.active == nil {
		return Status{Actions: flow.Actions{}}
	}
	var actions flow.Actions
	switch {
	case c.active.log != nil:
		actions = c.active.log.Snapshot()
	case c.active.rec != nil:
		actions = c.active.rec.Snapshot()
	}
	if actions == nil {
		actions = flow.Actions{}
	}
	return Status{
		Recording: true,
		TabID:     c.active.tabID,
		URL:       c.active.url,
		StartedAt: c.active.startedAt,
		Actions:   actions,
	}
}

// SaveRecording stores the last stopped recording under name.
func (c *Coordinator) SaveRecording(ctx context.Context, name string) (*flow.Record, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last == nil || len(last.actions) == 0 {
		return nil, ErrNothingToSave
	}

	rec, err := flow.NewRecord(name, last.url, last.actions)
	if err != nil {
		return nil, err
	}
	if err := c.flows.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	c.mu.Lock()
	if c.last == last {
		c.last = nil
	}
	c.mu.Unlock()

	c.logger.Infof("saved flow %s (%q, %d actions)", rec.ID, rec.Name, len(rec.Actions))
	c.events.publish(Event{Type: EventFlowsChanged, FlowID: rec.ID})
	return rec, nil
}

// DiscardRecording drops the last stopped recording without saving it.
func (c *Coordinator) DiscardRecording() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}
