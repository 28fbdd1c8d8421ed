// Package main provides the formflow command: record form interactions in
// a browser, replay them, and manage the saved flows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
)

const version = "0.1.0"

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	ConfigPath string
	StoreDir   string
	Headless   bool
	Tab        string
}

// command is one formflow subcommand.
type command struct {
	usage   string
	summary string
	// browser is set for commands that drive Chromium.
	browser bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"ui":        {usage: "ui", summary: "browse, play and manage flows interactively", browser: true, run: runUI},
	"record":    {usage: "record -url URL [-name NAME]", summary: "record a new flow", browser: true, run: runRecord},
	"play":      {usage: "play [-url URL] ID|NAME", summary: "replay a flow", browser: true, run: runPlay},
	"run":       {usage: "run FILE", summary: "play the flows listed in a YAML run file", browser: true, run: runFile},
	"list":      {usage: "list [-sort recent|name|usage] [-domain GLOB] [-q TEXT]", summary: "list saved flows", run: runList},
	"show":      {usage: "show [-plain] ID|NAME", summary: "print a flow as JSON", run: runShow},
	"rename":    {usage: "rename ID|NAME NEW_NAME", summary: "rename a flow", run: runRename},
	"duplicate": {usage: "duplicate ID|NAME", summary: "copy a flow", run: runDuplicate},
	"delete":    {usage: "delete ID|NAME", summary: "delete a flow", run: runDelete},
	"export":    {usage: "export [-o FILE] [-clipboard]", summary: "export all flows", run: runExport},
	"import":    {usage: "import FILE|-", summary: "import flows from an export file", run: runImport},
	"scan":      {usage: "scan -url URL", summary: "list the forms and fields on a page", browser: true, run: runScan},
	"serve":     {usage: "serve [-addr :8080]", summary: "serve the HTTP and WebSocket API", browser: true, run: runServe},
	"stats":     {usage: "stats", summary: "show usage statistics", run: runStats},
}

func main() {
	loadEnv()

	opts, args := parseFlags(os.Args[1:])
	if len(args) == 0 {
		args = []string{"ui"}
	}
	if args[0] == "version" {
		fmt.Printf("formflow v%s\n", version)
		return
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	if err := execute(ctx, opts, cmd, args[1:]); err != nil {
		cancel()
		log.Printf("formflow %s: %v", args[0], err)
		os.Exit(1)
	}
	cancel()
}

func execute(ctx context.Context, opts *globalOptions, cmd command, args []string) error {
	a, err := newApp(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.browser {
		if err := a.startBrowser(); err != nil {
			return err
		}
	}
	return cmd.run(ctx, a, args)
}

// parseFlags parses the global flags, with FORMFLOW_* environment
// variables as defaults, and returns the remaining arguments.
func parseFlags(argv []string) (*globalOptions, []string) {
	opts := &globalOptions{}
	fs := flag.NewFlagSet("formflow", flag.ExitOnError)
	fs.StringVar(&opts.ConfigPath, "config", os.Getenv(envConfig), "Settings file (default ~/.formflow/config.json)")
	fs.StringVar(&opts.StoreDir, "store", os.Getenv(envStore), "Flow directory (default ~/.formflow/flows)")
	fs.BoolVar(&opts.Headless, "headless", envBool(envHeadless), "Run the browser without a window")
	fs.StringVar(&opts.Tab, "tab", envOr(envTab, "main"), "Browser tab to record and play in")
	fs.Usage = func() { usage(os.Stderr) }
	_ = fs.Parse(argv)
	return opts, fs.Args()
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "formflow - record and replay web forms\n\n")
	fmt.Fprintf(w, "Usage: formflow [-config FILE] [-store DIR] [-headless] [-tab NAME] <command>\n\n")
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-58s %s\n", commands[name].usage, commands[name].summary)
	}
	fmt.Fprintf(w, "  %-58s %s\n", "version", "print the version")
	fmt.Fprintf(w, "\nEnvironment Variables (also read from .env):\n")
	fmt.Fprintf(w, "  %-20s settings file\n", envConfig)
	fmt.Fprintf(w, "  %-20s flow directory\n", envStore)
	fmt.Fprintf(w, "  %-20s true to hide the browser\n", envHeadless)
	fmt.Fprintf(w, "  %-20s default tab\n", envTab)
	fmt.Fprintf(w, "  %-20s listen address for serve\n", envAddr)
}
