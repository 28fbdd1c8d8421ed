package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/atotto/clipboard"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/store"
)

var errUsage = errors.New("invalid arguments")

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	// Reading the command table here would be an initialization cycle.
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: formflow %s [flags] [args]\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses fs and requires exactly n positional arguments.
func parseArgs(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != n {
		fs.Usage()
		return nil, errUsage
	}
	return fs.Args(), nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	sortBy := fs.String("sort", "recent", "Sort order: recent, name or usage")
	domain := fs.String("domain", "", "Only flows whose domain matches this glob")
	query := fs.String("q", "", "Only flows whose name or domain contains this text")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	flows, err := a.coord.ListFlows(ctx, store.ListOptions{
		Sort:   store.SortOrder(*sortBy),
		Domain: *domain,
		Search: *query,
	})
	if err != nil {
		return err
	}
	printFlows(a.out, flows)
	return nil
}

func printFlows(w io.Writer, flows []*flow.Record) {
	if len(flows) == 0 {
		fmt.Fprintln(w, "No flows saved yet.")
		return
	}
	for _, r := range flows {
		fmt.Fprintf(w, "%s  %-32s  %-28s  %3d actions  %3d plays  %s\n",
			shortID(r.ID), truncate(r.Name, 32), truncate(r.Domain, 28),
			len(r.Actions), r.PlayCount, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("show")
	plain := fs.Bool("plain", false, "Print without syntax highlighting")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	rec, err := a.coord.FindFlow(ctx, rest[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeJSONSource(a.out, string(data), !*plain && isTerminal(a.out))
}

// writeJSONSource prints JSON, highlighted for a 256-color terminal when
// color is set.
func writeJSONSource(w io.Writer, src string, color bool) error {
	if !color {
		_, err := fmt.Fprintln(w, src)
		return err
	}
	if err := quick.Highlight(w, src+"\n", "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func runRename(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(newFlagSet("rename"), args, 2)
	if err != nil {
		return err
	}
	rec, err := a.coord.FindFlow(ctx, rest[0])
	if err != nil {
		return err
	}
	renamed, err := a.coord.RenameFlow(ctx, rec.ID, rest[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %q to %q\n", rec.Name, renamed.Name)
	return nil
}

func runDuplicate(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(newFlagSet("duplicate"), args, 1)
	if err != nil {
		return err
	}
	rec, err := a.coord.FindFlow(ctx, rest[0])
	if err != nil {
		return err
	}
	dup, err := a.coord.DuplicateFlow(ctx, rec.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %q (%s)\n", dup.Name, dup.ID)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(newFlagSet("delete"), args, 1)
	if err != nil {
		return err
	}
	rec, err := a.coord.FindFlow(ctx, rest[0])
	if err != nil {
		return err
	}
	if err := a.coord.DeleteFlow(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %q\n", rec.Name)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	output := fs.String("o", "", "Write to this file instead of stdout")
	toClipboard := fs.Bool("clipboard", false, "Copy the export to the clipboard")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	var buf bytes.Buffer
	n, err := a.coord.Export(ctx, &buf)
	if err != nil {
		return err
	}

	switch {
	case *toClipboard:
		if err := clipboard.WriteAll(buf.String()); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintf(a.out, "Copied %d flows to the clipboard\n", n)
	case *output != "":
		if err := os.WriteFile(*output, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Fprintf(a.out, "Exported %d flows to %s\n", n, *output)
	default:
		_, err = a.out.Write(buf.Bytes())
	}
	return err
}

func runImport(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(newFlagSet("import"), args, 1)
	if err != nil {
		return err
	}
	var r io.Reader = os.Stdin
	if rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	added, err := a.coord.Import(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d flows\n", len(added))
	for _, rec := range added {
		fmt.Fprintf(a.out, "  %s  %s\n", shortID(rec.ID), rec.Name)
	}
	return nil
}

func runStats(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(newFlagSet("stats"), args, 0); err != nil {
		return err
	}
	st, err := a.coord.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Flows:          %d\n", st.TotalFlows)
	fmt.Fprintf(a.out, "Actions:        %d\n", st.TotalActions)
	fmt.Fprintf(a.out, "Plays:          %d\n", st.TotalPlays)
	fmt.Fprintf(a.out, "Minutes saved:  %d\n", st.MinutesSaved)
	return nil
}
