package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/formflow/pkg/server"
)

const (
	shutdownTimeout = 5 * time.Second
	idleSweep       = time.Minute
)

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", envOr(envAddr, ":8080"), "Listen address")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.NewHandler(a.coord, a.logger.With("server")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infof("listening on %s", *addr)
		fmt.Fprintf(a.out, "formflow API listening on %s\n", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(idleSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if a.coord.Status().Recording {
					continue
				}
				if err := a.browsers.CleanupIdleSessions(); err != nil {
					a.logger.Warnf("idle session cleanup: %v", err)
				}
			}
		}
	})
	return g.Wait()
}
