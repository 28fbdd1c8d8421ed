package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/player"
)

// maxResumes bounds how many navigation suspensions one PlayFlow call
// follows.
const maxResumes = 32

func (c *Coordinator) playerFor(tabID string, page player.Page) *player.Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.players[tabID]; ok && p.Page() == page {
		return p
	}
	popts := c.opts.Player
	if popts.Logger == nil {
		popts.Logger = c.logger.With("player")
	}
	onStep := popts.OnStep
	popts.OnStep = func(s player.Step) {
		ev := withAction(Event{Type: EventPlaybackProgress, TabID: tabID, Index: s.Index, Total: s.Total, Skipped: s.Skipped}, s.Action)
		c.events.publish(ev)
		if onStep != nil {
			onStep(s)
		}
	}
	p := player.New(page, popts)
	c.players[tabID] = p
	return p
}

// reserveTab marks tabID as playing. It reports false when a run already
// holds the tab.
func (c *Coordinator) reserveTab(tabID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.playing[tabID]; busy {
		return false
	}
	c.playing[tabID] = struct{}{}
	return true
}

func (c *Coordinator) releaseTab(tabID string) {
	c.mu.Lock()
	delete(c.playing, tabID)
	c.mu.Unlock()
}

// PlayFlow replays the stored flow id in tabID. The play count is
// incremented and persisted when playback is initiated. When the tab is
// not on the flow's domain it is first navigated to the flow's URL. A
// tab that is already playing rejects the request.
func (c *Coordinator) PlayFlow(ctx context.Context, tabID, id string) (player.Report, error) {
	rec, err := c.flows.Get(ctx, id)
	if err != nil {
		return player.Report{}, err
	}
	page, err := c.tabs.Page(ctx, tabID)
	if err != nil {
		return player.Report{}, fmt.Errorf("failed to open tab %s: %w", tabID, err)
	}
	if !c.reserveTab(tabID) {
		c.logger.Debugf("play of %s ignored: tab %s is already playing", id, tabID)
		return player.Report{Error: player.ErrPlaybackActive, Rejected: true}, nil
	}
	defer c.releaseTab(tabID)
	p := c.playerFor(tabID, page)

	rec, err = c.flows.Update(ctx, id, func(r *flow.Record) error {
		r.MarkPlayed()
		return nil
	})
	if err != nil {
		return player.Report{}, fmt.Errorf("failed to update play count: %w", err)
	}
	c.events.publish(Event{Type: EventFlowsChanged, FlowID: id})

	if rec.Domain != "" && !strings.Contains(page.URL(), rec.Domain) {
		c.logger.Infof("navigating tab %s to %s before playback", tabID, rec.URL)
		if err := page.Navigate(ctx, rec.URL); err != nil {
			return player.Report{}, fmt.Errorf("failed to open %s: %w", rec.URL, err)
		}
	}

	c.logger.Infof("playing flow %s (%q) in tab %s", rec.ID, rec.Name, tabID)
	c.events.publish(Event{Type: EventPlaybackStarted, TabID: tabID, FlowID: id, Total: len(rec.Actions)})

	report := p.Play(ctx, rec.Actions)
	for resumes := 0; report.Suspended && resumes < maxResumes; resumes++ {
		// The page tore the player down on navigation; pick the sequence
		// up in the new document.
		page, err = c.tabs.Page(ctx, tabID)
		if err != nil {
			return report, fmt.Errorf("failed to reopen tab %s: %w", tabID, err)
		}
		p = c.playerFor(tabID, page)
		c.logger.Debugf("resuming flow %s at action %d", id, report.ResumeAt)
		executed, skipped := report.Executed, report.Skipped
		report = p.Resume(ctx, rec.Actions, report.ResumeAt)
		report.Executed += executed
		report.Skipped += skipped
	}
	if report.Suspended {
		report.Suspended = false
		report.Error = fmt.Sprintf("playback suspended more than %d times", maxResumes)
	}

	if report.Completed {
		c.logger.Infof("flow %s completed (%d actions)", id, report.Executed)
	} else {
		c.logger.Warnf("flow %s failed: %s", id, report.Error)
	}
	c.events.publish(Event{Type: EventPlaybackFinished, TabID: tabID, FlowID: id, Report: &report})
	return report, nil
}
