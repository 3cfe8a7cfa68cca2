package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/saaga0h/jeeves-gamma/internal/backend"
	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// ErrInvalidInterval is returned when continuous mode is asked to run with
// a non-positive interval
var ErrInvalidInterval = errors.New("interval must be positive")

// Mode selects how the scheduler drives the sink
type Mode int

const (
	// ModeContinuous applies the current gamma every interval until cancelled
	ModeContinuous Mode = iota
	// ModeOnce applies the current gamma and returns
	ModeOnce
	// ModeSimulate sweeps one full day and then restores the current gamma
	ModeSimulate
)

func (m Mode) String() string {
	switch m {
	case ModeContinuous:
		return "continuous"
	case ModeOnce:
		return "once"
	case ModeSimulate:
		return "simulate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Sample is one applied value
type Sample struct {
	Mode    Mode
	Instant float64
	Gamma   gamma.Gamma
	At      time.Time
}

// Observer is notified after every successful apply
type Observer interface {
	Observe(ctx context.Context, s Sample)
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler samples the anchor table and forwards the result to a sink
type Scheduler struct {
	table    *gamma.Table
	sink     backend.Sink
	logger   *slog.Logger
	observer Observer

	interval time.Duration
	steps    int
	pause    time.Duration
	progress io.Writer

	now   func() time.Time
	sleep SleepFunc
}

// Option customises a Scheduler
type Option func(*Scheduler)

// WithInterval sets the continuous mode period
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithSimulation sets the number of simulated steps and the pause between them
func WithSimulation(steps int, pause time.Duration) Option {
	return func(s *Scheduler) {
		s.steps = steps
		s.pause = pause
	}
}

// WithProgress sets where the simulated clock is printed
func WithProgress(w io.Writer) Option {
	return func(s *Scheduler) { s.progress = w }
}

// WithObserver registers an observer for applied samples
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleeper replaces the interruptible sleep
func WithSleeper(sleep SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// New creates a scheduler with a 120 second interval and a 100 step,
// 20ms simulation
func New(table *gamma.Table, sink backend.Sink, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		table:    table,
		sink:     sink,
		logger:   logger,
		interval: 120 * time.Second,
		steps:    100,
		pause:    20 * time.Millisecond,
		progress: io.Discard,
		now:      time.Now,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the sink in the given mode. Cancelling ctx while the scheduler
// waits ends the run without error.
func (s *Scheduler) Run(ctx context.Context, mode Mode) error {
	s.logger.Info("Starting scheduler",
		"mode", mode.String(),
		"sink", s.sink.Name(),
		"anchors", s.table.Len())

	switch mode {
	case ModeOnce:
		return s.interrupted(ctx, mode, s.apply(ctx, mode, gamma.Instant(s.now())))
	case ModeSimulate:
		return s.simulate(ctx)
	case ModeContinuous:
		return s.continuous(ctx)
	default:
		return fmt.Errorf("unsupported scheduler mode: %v", mode)
	}
}

func (s *Scheduler) continuous(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, s.interval)
	}

	for {
		if err := s.apply(ctx, ModeContinuous, gamma.Instant(s.now())); err != nil {
			return s.interrupted(ctx, ModeContinuous, err)
		}
		if err := s.sleep(ctx, s.interval); err != nil {
			s.logger.Info("Scheduler interrupted", "mode", ModeContinuous.String())
			return nil
		}
	}
}

func (s *Scheduler) simulate(ctx context.Context) error {
	if s.steps <= 0 {
		return fmt.Errorf("simulation needs at least one step, got %d", s.steps)
	}

	start := gamma.Instant(s.now())
	stepMinutes := float64(gamma.MinutesPerDay) / float64(s.steps)

	for i := 0; i < s.steps; i++ {
		instant := math.Mod(start+float64(i)*stepMinutes, gamma.MinutesPerDay)
		fmt.Fprintf(s.progress, "\r%s", FormatClock(instant))

		if err := s.apply(ctx, ModeSimulate, instant); err != nil {
			fmt.Fprintln(s.progress)
			return s.interrupted(ctx, ModeSimulate, err)
		}
		if err := s.sleep(ctx, s.pause); err != nil {
			fmt.Fprintln(s.progress)
			s.logger.Info("Simulation interrupted", "step", i)
			return nil
		}
	}
	fmt.Fprintln(s.progress)

	return s.interrupted(ctx, ModeSimulate, s.apply(ctx, ModeSimulate, gamma.Instant(s.now())))
}

// interrupted swallows an apply error caused by ctx being cancelled while
// the sink was running. Sink failures with a live ctx are returned as is.
func (s *Scheduler) interrupted(ctx context.Context, mode Mode, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	s.logger.Info("Scheduler interrupted while applying", "mode", mode.String(), "error", err)
	return nil
}

func (s *Scheduler) apply(ctx context.Context, mode Mode, instant float64) error {
	g := s.table.At(instant)

	if err := s.sink.Apply(ctx, g); err != nil {
		return fmt.Errorf("failed to apply gamma %s via %s: %w", g, s.sink.Name(), err)
	}

	s.logger.Debug("Applied gamma",
		"mode", mode.String(),
		"time", FormatClock(instant),
		"red", g.Red,
		"green", g.Green,
		"blue", g.Blue)

	if s.observer != nil {
		s.observer.Observe(ctx, Sample{Mode: mode, Instant: instant, Gamma: g, At: s.now()})
	}
	return nil
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FormatClock renders a minute of day as HH:MM
func FormatClock(instant float64) string {
	minutes := int(instant)
	return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60)
}
