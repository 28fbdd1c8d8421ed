package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/entrhq/formflow/pkg/browser"
	"github.com/entrhq/formflow/pkg/coordinator"
	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/tui"
)

func runUI(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(newFlagSet("ui"), args, 0); err != nil {
		return err
	}
	return tui.NewExecutor(a.coord, a.opts.Tab, a.logger.With("tui")).Run(ctx)
}

// runRecord records in the TUI, or on the plain terminal when the flow
// name is given up front.
func runRecord(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("record")
	pageURL := fs.String("url", "", "Page to start recording on (required)")
	name := fs.String("name", "", "Save under this name without prompting")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if *pageURL == "" {
		fs.Usage()
		return errUsage
	}
	if *name == "" {
		return tui.NewExecutor(a.coord, a.opts.Tab, a.logger.With("tui")).Record(*pageURL).Run(ctx)
	}

	events, unsubscribe := a.coord.Subscribe()
	defer unsubscribe()

	if _, err := a.coord.StartRecording(ctx, a.opts.Tab, *pageURL); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recording %s. Press Enter to stop.\n", *pageURL)

	stop := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(stop)
	}()

wait:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break wait
			}
			if ev.Type == coordinator.EventActionRecorded {
				mark := " "
				if ev.Merged {
					mark = "~"
				}
				fmt.Fprintf(a.out, "  %3d%s %s\n", ev.Count, mark, eventSummary(ev))
			}
		case <-stop:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	actions := a.coord.StopRecording(context.Background())
	if len(actions) == 0 {
		return fmt.Errorf("nothing was recorded")
	}
	rec, err := a.coord.SaveRecording(context.Background(), *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %q (%s) with %d actions\n", rec.Name, rec.ID, len(rec.Actions))
	return nil
}

func eventSummary(ev coordinator.Event) string {
	a, err := flow.UnmarshalAction(ev.Action)
	if err != nil {
		return "?"
	}
	if sel := a.Header().Selector; sel != "" {
		return fmt.Sprintf("%-8s %s", a.Type(), sel)
	}
	return string(a.Type())
}

func runPlay(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("play")
	pageURL := fs.String("url", "", "Load this page before playing")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	rec, err := a.coord.FindFlow(ctx, rest[0])
	if err != nil {
		return err
	}
	if *pageURL != "" {
		if err := a.navigate(ctx, *pageURL); err != nil {
			return err
		}
	}
	return a.play(ctx, rec)
}

func (a *app) navigate(ctx context.Context, pageURL string) error {
	s, err := a.tabs.Session(a.opts.Tab)
	if err != nil {
		return err
	}
	return s.Navigate(ctx, pageURL, browser.NavigateOptions{})
}

// play runs rec in the configured tab, printing each step, and returns an
// error unless every action ran.
func (a *app) play(ctx context.Context, rec *flow.Record) error {
	events, unsubscribe := a.coord.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type == coordinator.EventPlaybackProgress && ev.TabID == a.opts.Tab {
				fmt.Fprintf(a.out, "  [%d/%d] %s\n", ev.Index+1, ev.Total, eventSummary(ev))
			}
		}
	}()

	fmt.Fprintf(a.out, "Playing %q (%d actions)\n", rec.Name, len(rec.Actions))
	report, err := a.coord.PlayFlow(ctx, a.opts.Tab, rec.ID)
	unsubscribe()
	<-done
	if err != nil {
		return err
	}
	return reportError(rec, report)
}

func reportError(rec *flow.Record, report player.Report) error {
	switch {
	case report.Rejected:
		return fmt.Errorf("a flow is already playing in this tab")
	case report.Completed:
		return nil
	case report.FailedAtIndex != nil:
		return fmt.Errorf("%q failed at action %d: %s", rec.Name, *report.FailedAtIndex+1, report.Error)
	default:
		return fmt.Errorf("%q failed: %s", rec.Name, report.Error)
	}
}

func runScan(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("scan")
	pageURL := fs.String("url", "", "Page to scan (required)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if *pageURL == "" {
		fs.Usage()
		return errUsage
	}

	s, err := a.tabs.Session(a.opts.Tab)
	if err != nil {
		return err
	}
	if err := s.Navigate(ctx, *pageURL, browser.NavigateOptions{}); err != nil {
		return err
	}
	groups, err := s.ScanForms()
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No form fields found.")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(a.out, "form %s", g.ID)
		if g.Action != "" {
			fmt.Fprintf(a.out, " (%s %s)", g.Method, g.Action)
		}
		fmt.Fprintln(a.out)
		for _, f := range g.Fields {
			fmt.Fprintf(a.out, "  %-10s %-40s %s\n", f.Role, f.Selector, f.Label)
		}
		for _, b := range g.SubmitButtons {
			fmt.Fprintf(a.out, "  %-10s %-40s %s\n", "submit", b.Selector, b.Label)
		}
	}
	return nil
}
