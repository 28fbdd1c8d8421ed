package main

import (
	"context"
	"fmt"
	"io"

	"github.com/entrhq/formflow/pkg/browser"
	appconfig "github.com/entrhq/formflow/pkg/config"
	"github.com/entrhq/formflow/pkg/coordinator"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/recorder"
	"github.com/entrhq/formflow/pkg/store"
)

// app wires settings, storage, the browser and the coordinator for one
// command invocation.
type app struct {
	opts   *globalOptions
	out    io.Writer
	logger *logging.Logger

	flows    *store.FileStore
	browsers *browser.SessionManager
	tabs     *browser.Tabs
	coord    *coordinator.Coordinator
}

func newApp(opts *globalOptions, out io.Writer) (*app, error) {
	if err := appconfig.Initialize(opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger, err := logging.NewLogger("formflow")
	if err != nil {
		logger.Warnf("file logging unavailable: %v", err)
	}

	dir := opts.StoreDir
	if dir == "" {
		if dir, err = store.DefaultDir(); err != nil {
			return nil, err
		}
	}
	flows, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	sessionOpts := appconfig.GetBrowser().SessionOptions()
	if opts.Headless {
		sessionOpts.Headless = true
	}
	browsers := browser.NewSessionManager(logger.With("browser"))
	tabs := browser.NewTabs(browsers, sessionOpts, logger.With("tabs"))

	coord := coordinator.New(tabs, flows, coordinator.Options{
		Recorder: appconfig.GetRecorder().Apply(recorder.Options{Logger: logger.With("recorder")}),
		Player:   appconfig.GetPlayer().Apply(player.Options{Logger: logger.With("player")}),
		Logger:   logger.With("coordinator"),
	})

	return &app{
		opts:     opts,
		out:      out,
		logger:   logger,
		flows:    flows,
		browsers: browsers,
		tabs:     tabs,
		coord:    coord,
	}, nil
}

func (a *app) startBrowser() error {
	if err := a.browsers.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return nil
}

// Close stops any recording and shuts the browser down.
func (a *app) Close() {
	if a.coord.Status().Recording {
		a.coord.StopRecording(context.Background())
	}
	if err := a.browsers.Shutdown(); err != nil {
		a.logger.Warnf("browser shutdown: %v", err)
	}
	_ = a.logger.Close()
}
