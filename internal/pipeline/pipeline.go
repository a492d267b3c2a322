// Package pipeline sequences the build steps: clean, render, validate,
// serve. Steps run strictly in order and the first failure aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/euforicio/blogmd/internal/config"
	"github.com/euforicio/blogmd/internal/server"
	"github.com/euforicio/blogmd/internal/site"
	"github.com/euforicio/blogmd/internal/validate"
)

// State identifies where a run currently is.
type State string

// Run states. Failed and Serving are the only terminal states.
const (
	StateIdle       State = "idle"
	StateCleaning   State = "cleaning"
	StateRendering  State = "rendering"
	StateValidating State = "validating"
	StateServing    State = "serving"
	StateFailed     State = "failed"
)

// Mode selects the step sequence of a run.
type Mode int

// Run modes.
const (
	// ModeNormal renders, validates, and serves the current store.
	ModeNormal Mode = iota
	// ModeClean removes the prior artifact tree before rendering.
	ModeClean
)

func (m Mode) String() string {
	if m == ModeClean {
		return "clean"
	}
	return "normal"
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Name     string
	State    State
	Duration time.Duration
	Err      error
}

// Run is the ephemeral record of one pipeline invocation.
type Run struct {
	Mode  Mode
	Steps []StepResult
	Final State
}

// Failed reports whether any recorded step failed.
func (r *Run) Failed() bool {
	return r.Final == StateFailed
}

// Runner drives one pipeline invocation at a time over a fixed
// configuration. It is not safe for concurrent runs against the same
// output directory.
type Runner struct {
	cfg     config.Config
	logger  *slog.Logger
	builder *site.Builder
	checker *validate.Checker
}

// New constructs a runner for the given configuration.
func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	builder, err := site.New(logger)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		logger:  logger.With("component", "pipeline"),
		builder: builder,
		checker: validate.New(logger),
	}, nil
}

// Execute runs the full step sequence for the requested mode and blocks
// through the serve step. The returned error is nil only when render and
// validation both succeeded and serving ended by operator interruption.
func (r *Runner) Execute(ctx context.Context, mode Mode) (*Run, error) {
	r.logger.Info("pipeline run starting", slog.String("mode", mode.String()))

	run, err := r.Build(ctx, mode)
	if err != nil {
		return run, err
	}

	// The serve step runs until interrupted; interruption is a normal
	// terminal state, not a failure.
	run.Final = StateServing
	start := time.Now()
	err = r.serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	run.Steps = append(run.Steps, StepResult{
		Name:     "serve",
		State:    StateServing,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		run.Final = StateFailed
		return run, fmt.Errorf("serve: %w", err)
	}
	return run, nil
}

// Build runs clean (when requested), render, and validate without serving.
// The watcher uses it for rebuilds; it is also the unit the tests exercise.
func (r *Runner) Build(ctx context.Context, mode Mode) (*Run, error) {
	run := &Run{Mode: mode, Final: StateIdle}

	if mode == ModeClean {
		if err := r.step(ctx, run, StateCleaning, "clean", r.clean); err != nil {
			return run, err
		}
	}
	if err := r.step(ctx, run, StateRendering, "render", r.render); err != nil {
		return run, err
	}
	if err := r.step(ctx, run, StateValidating, "validate", func(ctx context.Context) error {
		return r.Validate(ctx)
	}); err != nil {
		return run, err
	}
	return run, nil
}

func (r *Runner) step(ctx context.Context, run *Run, state State, name string, fn func(context.Context) error) error {
	run.Final = state
	start := time.Now()
	err := fn(ctx)
	result := StepResult{Name: name, State: state, Duration: time.Since(start), Err: err}
	run.Steps = append(run.Steps, result)

	if err != nil {
		run.Final = StateFailed
		r.logger.Error("step failed",
			slog.String("step", name),
			slog.Duration("elapsed", result.Duration),
			slog.Any("err", err))
		return fmt.Errorf("%s: %w", name, err)
	}

	r.logger.Info("step finished",
		slog.String("step", name),
		slog.Duration("elapsed", result.Duration))
	return nil
}

// clean removes the entire prior artifact tree. A missing tree is not an
// error; the step is idempotent.
func (r *Runner) clean(context.Context) error {
	if err := os.RemoveAll(r.cfg.OutputDir); err != nil {
		return fmt.Errorf("remove output tree: %w", err)
	}
	return nil
}

func (r *Runner) render(ctx context.Context) error {
	return r.builder.Build(ctx, site.Options{
		Root:          r.cfg.SiteDir,
		OutputDir:     r.cfg.OutputDir,
		SiteTitle:     r.cfg.SiteTitle,
		BaseURL:       r.cfg.BaseURL,
		IncludeDrafts: r.cfg.IncludeDrafts,
		SearchIndex:   r.cfg.SearchIndex,
	})
}

// Validate checks the current artifact tree and returns an error listing
// every structural defect found.
func (r *Runner) Validate(ctx context.Context) error {
	report, err := r.checker.Check(ctx, r.cfg.OutputDir)
	if err != nil {
		return err
	}
	return report.Err()
}

func (r *Runner) serve(ctx context.Context) error {
	srv := server.New(r.cfg, r.logger)

	if r.cfg.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go r.watch(watchCtx)
	}

	return srv.Start(ctx)
}
