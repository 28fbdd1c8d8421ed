// Package player replays a recorded flow.Action sequence against a Page.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/entrhq/formflow/pkg/clock"
	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/session"
)

// Defaults for Options.
const (
	DefaultElementTimeout   = 5 * time.Second
	DefaultDOMChangeTimeout = 10 * time.Second
	DefaultTypingDelayMin   = 30 * time.Millisecond
	DefaultTypingDelayMax   = 100 * time.Millisecond
	DefaultClickSettle      = 300 * time.Millisecond
	DefaultHighlight        = 500 * time.Millisecond
)

// Options tunes playback. Zero values select the defaults.
type Options struct {
	ElementTimeout   time.Duration
	DOMChangeTimeout time.Duration
	MaxDelay         time.Duration
	TypingDelayMin   time.Duration
	TypingDelayMax   time.Duration
	ClickSettle      time.Duration
	Highlight        time.Duration

	Clock  clock.Clock
	Logger *logging.Logger

	// Rand returns a value in [0, 1) used to jitter typing delays.
	Rand func() float64

	// OnStep is called after each action completes.
	OnStep func(Step)
}

// Step reports progress through a sequence.
type Step struct {
	Index  int
	Total  int
	Action flow.Action
	// Skipped is set for actions the player does not understand.
	Skipped bool
}

// Report is the outcome of a playback run.
type Report struct {
	Completed     bool   `json:"completed"`
	FailedAtIndex *int   `json:"failedAtIndex,omitempty"`
	Error         string `json:"error,omitempty"`
	Suspended     bool   `json:"suspended,omitempty"`
	ResumeAt      int    `json:"resumeAt,omitempty"`
	Executed      int    `json:"executed"`
	Skipped       int    `json:"skipped,omitempty"`
	Rejected      bool   `json:"rejected,omitempty"`
}

// ErrPlaybackActive is the error text reported for a rejected re-entrant run.
const ErrPlaybackActive = "playback already active"

// Player executes action sequences one at a time.
type Player struct {
	page  Page
	opts  Options
	guard *session.Machine
}

// New returns a player driving page.
func New(page Page, opts Options) *Player {
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = DefaultElementTimeout
	}
	if opts.DOMChangeTimeout <= 0 {
		opts.DOMChangeTimeout = DefaultDOMChangeTimeout
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = MaxDelay
	}
	if opts.TypingDelayMin <= 0 {
		opts.TypingDelayMin = DefaultTypingDelayMin
	}
	if opts.TypingDelayMax < opts.TypingDelayMin {
		opts.TypingDelayMax = DefaultTypingDelayMax
		if opts.TypingDelayMax < opts.TypingDelayMin {
			opts.TypingDelayMax = opts.TypingDelayMin
		}
	}
	if opts.ClickSettle <= 0 {
		opts.ClickSettle = DefaultClickSettle
	}
	if opts.Highlight <= 0 {
		opts.Highlight = DefaultHighlight
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Player{page: page, opts: opts, guard: session.New("playback")}
}

// Page returns the page the player drives.
func (p *Player) Page() Page {
	return p.page
}

// Playing reports whether a run is in progress.
func (p *Player) Playing() bool {
	return p.guard.Active()
}

// Play executes actions in order. A run already in progress causes the
// call to be rejected without touching the page.
func (p *Player) Play(ctx context.Context, actions flow.Actions) Report {
	return p.Resume(ctx, actions, 0)
}

// Resume executes actions starting at index from, typically the ResumeAt
// of a suspended report.
func (p *Player) Resume(ctx context.Context, actions flow.Actions, from int) Report {
	if !p.guard.TryEnter() {
		p.opts.Logger.Warnf("play rejected: %s", ErrPlaybackActive)
		return Report{Error: ErrPlaybackActive, Rejected: true}
	}
	defer p.guard.Leave()

	if from < 0 || from > len(actions) {
		return Report{Error: fmt.Sprintf("resume index %d out of range [0, %d]", from, len(actions))}
	}

	overlay := p.page.Overlay()
	if overlay == nil {
		overlay = nopOverlay{}
	}
	p.cosmetic("show indicator", overlay.ShowPlayback())

	report := p.run(ctx, actions, from, overlay)

	switch {
	case report.Suspended:
		p.opts.Logger.Infof("playback suspended, resume at %d", report.ResumeAt)
	case report.Completed:
		p.opts.Logger.Infof("playback completed: %d actions", report.Executed)
		p.cosmetic("toast", overlay.Toast(ToastSuccess, "Flow completed successfully!"))
	default:
		p.opts.Logger.Errorf("playback failed at %d: %s", *report.FailedAtIndex, report.Error)
		p.cosmetic("toast", overlay.Toast(ToastError, "Error: "+report.Error))
	}
	p.cosmetic("hide indicator", overlay.HidePlayback())
	return report
}

func (p *Player) run(ctx context.Context, actions flow.Actions, from int, overlay Overlay) Report {
	var report Report
	total := len(actions)

	for i := from; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return failed(report, i, err)
		}

		a := actions[i]
		p.opts.Logger.Debugf("executing %d/%d: %s %s", i+1, total, a.Type(), a.Header().Selector)

		skipped, err := p.execute(ctx, a)
		if errors.Is(err, ErrSuspended) {
			report.Executed++
			report.Suspended = true
			report.ResumeAt = i + 1
			return report
		}
		if err != nil {
			return failed(report, i, err)
		}

		if skipped {
			report.Skipped++
		} else {
			report.Executed++
		}
		p.cosmetic("progress", overlay.Progress(i+1, total))
		if p.opts.OnStep != nil {
			p.opts.OnStep(Step{Index: i, Total: total, Action: a, Skipped: skipped})
		}

		if i < total-1 {
			if err := p.opts.Clock.Sleep(ctx, delayWithin(a, actions[i+1], p.opts.MaxDelay)); err != nil {
				return failed(report, i+1, err)
			}
		}
	}

	report.Completed = true
	return report
}

func failed(r Report, index int, err error) Report {
	r.FailedAtIndex = &index
	r.Error = err.Error()
	return r
}

func (p *Player) cosmetic(what string, err error) {
	if err != nil {
		p.opts.Logger.Debugf("overlay %s failed: %v", what, err)
	}
}

func (p *Player) execute(ctx context.Context, a flow.Action) (skipped bool, err error) {
	switch v := a.(type) {
	case flow.Navigation:
		return false, p.navigate(ctx, v)
	case flow.Focus:
		return false, p.focus(ctx, v)
	case flow.Input:
		return false, p.input(ctx, v)
	case flow.Change:
		return false, p.change(ctx, v)
	case flow.Click:
		return false, p.click(ctx, v)
	case flow.Keypress:
		return false, p.keypress(ctx, v)
	case flow.DOMChange:
		return false, p.domChange(ctx, v)
	default:
		p.opts.Logger.Warnf("skipping unknown action type %q", a.Type())
		return true, nil
	}
}
