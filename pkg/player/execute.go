package player

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/formflow/pkg/flow"
)

var keyCodes = map[string]string{
	"Tab":        "Tab",
	"Enter":      "Enter",
	"Escape":     "Escape",
	"Space":      "Space",
	"ArrowUp":    "ArrowUp",
	"ArrowDown":  "ArrowDown",
	"ArrowLeft":  "ArrowLeft",
	"ArrowRight": "ArrowRight",
}

// KeyCode maps a key name to its KeyboardEvent code, falling back to the
// key itself.
func KeyCode(key string) string {
	if code, ok := keyCodes[key]; ok {
		return code
	}
	return key
}

func bubbling() map[string]interface{} {
	return map[string]interface{}{"bubbles": true, "cancelable": true}
}

func (p *Player) wait(ctx context.Context, selector string) (Target, error) {
	return WaitFor(ctx, p.opts.Clock, p.page, selector, p.opts.ElementTimeout)
}

func (p *Player) navigate(ctx context.Context, a flow.Navigation) error {
	if p.page.URL() == a.URL {
		return nil
	}
	if err := p.page.Navigate(ctx, a.URL); err != nil {
		return fmt.Errorf("navigate to %s: %w", a.URL, err)
	}
	return nil
}

func (p *Player) focus(ctx context.Context, a flow.Focus) error {
	t, err := p.wait(ctx, a.Selector)
	if err != nil {
		return err
	}
	if err := t.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", a.Selector, err)
	}
	return t.Dispatch("focus", map[string]interface{}{"bubbles": true})
}

func (p *Player) input(ctx context.Context, a flow.Input) error {
	t, err := p.wait(ctx, a.Selector)
	if err != nil {
		return err
	}
	if err := t.SetValue(""); err != nil {
		return fmt.Errorf("clear %s: %w", a.Selector, err)
	}

	chars := []rune(a.Value)
	for i := range chars {
		if err := t.SetValue(string(chars[:i+1])); err != nil {
			return fmt.Errorf("type into %s: %w", a.Selector, err)
		}
		if err := t.Dispatch("input", bubbling()); err != nil {
			return fmt.Errorf("dispatch input on %s: %w", a.Selector, err)
		}
		if err := p.opts.Clock.Sleep(ctx, p.typingDelay()); err != nil {
			return err
		}
	}
	return t.Dispatch("change", bubbling())
}

func (p *Player) typingDelay() time.Duration {
	span := p.opts.TypingDelayMax - p.opts.TypingDelayMin
	return p.opts.TypingDelayMin + time.Duration(p.opts.Rand()*float64(span))
}

func (p *Player) change(ctx context.Context, a flow.Change) error {
	t, err := p.wait(ctx, a.Selector)
	if err != nil {
		return err
	}
	kind, err := t.Kind()
	if err != nil {
		return fmt.Errorf("inspect %s: %w", a.Selector, err)
	}

	if kind.Toggle() && a.Checked != nil {
		checked, err := t.Checked()
		if err != nil {
			return fmt.Errorf("read %s: %w", a.Selector, err)
		}
		if checked == *a.Checked {
			return nil
		}
		return t.Click()
	}

	if err := t.SetValue(a.Value); err != nil {
		return fmt.Errorf("set %s: %w", a.Selector, err)
	}
	return t.Dispatch("change", bubbling())
}

func (p *Player) click(ctx context.Context, a flow.Click) error {
	t, err := p.wait(ctx, a.Selector)
	if err != nil {
		return err
	}
	if err := t.ScrollIntoView(); err != nil {
		p.opts.Logger.Debugf("scroll %s: %v", a.Selector, err)
	}
	if err := p.opts.Clock.Sleep(ctx, p.opts.ClickSettle); err != nil {
		return err
	}
	if err := t.Highlight(p.opts.Highlight); err != nil {
		p.opts.Logger.Debugf("highlight %s: %v", a.Selector, err)
	}

	clickErr := t.Click()
	if clickErr == nil {
		return nil
	}
	p.opts.Logger.Debugf("native click on %s failed, dispatching event: %v", a.Selector, clickErr)

	if err := t.Dispatch("click", bubbling()); err != nil {
		return fmt.Errorf("click %s: %w", a.Selector, clickErr)
	}
	return nil
}

func (p *Player) keypress(ctx context.Context, a flow.Keypress) error {
	t, err := p.wait(ctx, a.Selector)
	if err != nil {
		return err
	}
	init := bubbling()
	init["key"] = a.Key
	init["code"] = KeyCode(a.Key)
	return t.Dispatch("keydown", init)
}

func (p *Player) domChange(ctx context.Context, a flow.DOMChange) error {
	if a.Change != flow.ChangeElementAdded {
		return nil
	}
	_, err := WaitFor(ctx, p.opts.Clock, p.page, a.Selector, p.opts.DOMChangeTimeout)
	return err
}
