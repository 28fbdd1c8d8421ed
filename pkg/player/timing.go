package player

import (
	"context"
	"time"

	"github.com/entrhq/formflow/pkg/clock"
	"github.com/entrhq/formflow/pkg/flow"
)

const (
	// MaxDelay caps the pause between two actions.
	MaxDelay = 3 * time.Second

	// PollInterval approximates one animation frame.
	PollInterval = 16 * time.Millisecond
)

// Delay returns the pause between cur and next: the recorded gap clamped
// to [0, MaxDelay], or a per-type default when either timestamp is missing.
func Delay(cur, next flow.Action) time.Duration {
	return delayWithin(cur, next, MaxDelay)
}

func delayWithin(cur, next flow.Action, max time.Duration) time.Duration {
	ct, nt := cur.Header().Timestamp, next.Header().Timestamp
	if ct == 0 || nt == 0 {
		switch cur.Type() {
		case flow.TypeInput:
			return 500 * time.Millisecond
		case flow.TypeClick:
			return time.Second
		case flow.TypeNavigation:
			return 2 * time.Second
		default:
			return 300 * time.Millisecond
		}
	}

	d := time.Duration(nt-ct) * time.Millisecond
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// WaitFor polls page until selector matches a visible element or timeout
// elapses.
func WaitFor(ctx context.Context, clk clock.Clock, page Page, selector string, timeout time.Duration) (Target, error) {
	start := clk.Now()
	for {
		t, err := page.Query(selector)
		if err != nil {
			return nil, err
		}
		if t != nil {
			visible, err := t.Visible()
			if err != nil {
				return nil, err
			}
			if visible {
				return t, nil
			}
		}

		if clk.Now().Sub(start) > timeout {
			return nil, &ElementNotFoundError{Selector: selector, Timeout: timeout}
		}
		if err := clk.Sleep(ctx, PollInterval); err != nil {
			return nil, err
		}
	}
}
