package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunFile lists flows to play one after another:
//
//	continue_on_error: false
//	steps:
//	  - flow: Login
//	  - flow: 3f2c9a1e
//	    url: https://example.com/settings
type RunFile struct {
	ContinueOnError bool      `yaml:"continue_on_error"`
	Steps           []RunStep `yaml:"steps"`
}

// RunStep plays one flow, optionally after loading URL.
type RunStep struct {
	Flow string `yaml:"flow"`
	URL  string `yaml:"url,omitempty"`
}

// Validate checks that the file names at least one flow per step.
func (f *RunFile) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("run file has no steps")
	}
	for i, s := range f.Steps {
		if s.Flow == "" {
			return fmt.Errorf("step %d: flow is required", i+1)
		}
	}
	return nil
}

func loadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var f RunFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func runFile(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(newFlagSet("run"), args, 1)
	if err != nil {
		return err
	}
	f, err := loadRunFile(rest[0])
	if err != nil {
		return err
	}

	failed := 0
	for i, step := range f.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Step %d/%d: %s\n", i+1, len(f.Steps), step.Flow)
		err := a.runStep(ctx, step)
		if err == nil {
			continue
		}
		if !f.ContinueOnError {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		failed++
		fmt.Fprintf(a.out, "  step failed: %v\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(f.Steps))
	}
	return nil
}

func (a *app) runStep(ctx context.Context, step RunStep) error {
	rec, err := a.coord.FindFlow(ctx, step.Flow)
	if err != nil {
		return err
	}
	if step.URL != "" {
		if err := a.navigate(ctx, step.URL); err != nil {
			return err
		}
	}
	return a.play(ctx, rec)
}
