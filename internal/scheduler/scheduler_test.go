package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

type fakeSink struct {
	applied []gamma.Gamma
	err     error
	failAt  int
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Apply(ctx context.Context, g gamma.Gamma) error {
	f.applied = append(f.applied, g)
	if f.err != nil && len(f.applied) >= f.failAt {
		return f.err
	}
	return nil
}

type recordingObserver struct {
	samples []Sample
}

func (r *recordingObserver) Observe(ctx context.Context, s Sample) {
	r.samples = append(r.samples, s)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTable(t *testing.T) *gamma.Table {
	t.Helper()
	table, err := gamma.ParseAnchors("test", strings.NewReader("06 00 1.0 1.0 1.0\n20 00 0.8 0.6 0.4\n"))
	require.NoError(t, err)
	return table
}

func fixedClock(hour, minute int) func() time.Time {
	ts := time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestRun_Once(t *testing.T) {
	sink := &fakeSink{}
	observer := &recordingObserver{}
	s := New(testTable(t), sink, testLogger(),
		WithClock(fixedClock(13, 0)),
		WithObserver(observer))

	require.NoError(t, s.Run(context.Background(), ModeOnce))

	require.Len(t, sink.applied, 1)
	assert.InDelta(t, 0.9, sink.applied[0].Red, 1e-9)
	assert.InDelta(t, 0.8, sink.applied[0].Green, 1e-9)
	assert.InDelta(t, 0.7, sink.applied[0].Blue, 1e-9)

	require.Len(t, observer.samples, 1)
	assert.Equal(t, ModeOnce, observer.samples[0].Mode)
	assert.Equal(t, 780.0, observer.samples[0].Instant)
}

func TestRun_Simulate(t *testing.T) {
	sink := &fakeSink{}
	observer := &recordingObserver{}
	var pauses []time.Duration
	var progress bytes.Buffer

	s := New(testTable(t), sink, testLogger(),
		WithClock(fixedClock(23, 0)),
		WithSimulation(8, 5*time.Millisecond),
		WithProgress(&progress),
		WithObserver(observer),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}))

	require.NoError(t, s.Run(context.Background(), ModeSimulate))

	require.Len(t, sink.applied, 9)
	require.Len(t, pauses, 8)
	for _, d := range pauses {
		assert.Equal(t, 5*time.Millisecond, d)
	}

	// 23:00 start, 180 minute steps wrapping past midnight
	want := []float64{1380, 120, 300, 480, 660, 840, 1020, 1200, 1380}
	require.Len(t, observer.samples, len(want))
	for i, w := range want {
		assert.InDelta(t, w, observer.samples[i].Instant, 1e-9, "sample %d", i)
	}
	assert.Equal(t, sink.applied[0], sink.applied[8])

	out := progress.String()
	assert.True(t, strings.HasPrefix(out, "\r23:00\r02:00"))
	assert.True(t, strings.HasSuffix(out, "\r20:00\n"))
}

func TestRun_SimulateInterrupted(t *testing.T) {
	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	s := New(testTable(t), sink, testLogger(),
		WithClock(fixedClock(12, 0)),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			calls++
			if calls == 3 {
				cancel()
				return ctx.Err()
			}
			return nil
		}))

	require.NoError(t, s.Run(ctx, ModeSimulate))
	assert.Len(t, sink.applied, 3)
}

func TestRun_ContinuousUntilCancelled(t *testing.T) {
	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	var slept []time.Duration

	s := New(testTable(t), sink, testLogger(),
		WithClock(fixedClock(6, 0)),
		WithInterval(90*time.Second),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			if len(slept) == 4 {
				cancel()
			}
			return ctx.Err()
		}))

	require.NoError(t, s.Run(ctx, ModeContinuous))
	assert.Len(t, sink.applied, 4)
	assert.Equal(t, []time.Duration{90 * time.Second, 90 * time.Second, 90 * time.Second, 90 * time.Second}, slept)
	assert.Equal(t, gamma.Gamma{Red: 1, Green: 1, Blue: 1}, sink.applied[0])
}

func TestRun_ContinuousRealSleepCancelled(t *testing.T) {
	sink := &fakeSink{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := New(testTable(t), sink, testLogger(), WithInterval(time.Hour))

	start := time.Now()
	require.NoError(t, s.Run(ctx, ModeContinuous))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Len(t, sink.applied, 1)
}

func TestRun_ContinuousSinkErrorIsFatal(t *testing.T) {
	boom := errors.New("xgamma exited 1")
	sink := &fakeSink{err: boom, failAt: 2}

	s := New(testTable(t), sink, testLogger(),
		WithClock(fixedClock(6, 0)),
		WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }))

	err := s.Run(context.Background(), ModeContinuous)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, sink.applied, 2)
}

// cancellingSink cancels the run from inside Apply, the way a signal kills
// a helper started with exec.CommandContext
type cancellingSink struct {
	fakeSink
	cancel   context.CancelFunc
	cancelAt int
}

func (c *cancellingSink) Apply(ctx context.Context, g gamma.Gamma) error {
	c.applied = append(c.applied, g)
	if len(c.applied) == c.cancelAt {
		c.cancel()
		return ctx.Err()
	}
	return nil
}

func TestRun_CancelledDuringApply(t *testing.T) {
	for _, mode := range []Mode{ModeOnce, ModeSimulate, ModeContinuous} {
		t.Run(mode.String(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cancelAt := 2
			if mode == ModeOnce {
				cancelAt = 1
			}
			sink := &cancellingSink{cancel: cancel, cancelAt: cancelAt}
			observer := &recordingObserver{}

			s := New(testTable(t), sink, testLogger(),
				WithClock(fixedClock(6, 0)),
				WithObserver(observer),
				WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }))

			require.NoError(t, s.Run(ctx, mode))
			assert.Len(t, sink.applied, cancelAt)
			assert.Len(t, observer.samples, cancelAt-1)
		})
	}
}

func TestRun_InvalidInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		sink := &fakeSink{}
		s := New(testTable(t), sink, testLogger(), WithInterval(d))

		err := s.Run(context.Background(), ModeContinuous)
		assert.ErrorIs(t, err, ErrInvalidInterval)
		assert.Empty(t, sink.applied)
	}
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "13:05", FormatClock(785.9))
	assert.Equal(t, "23:59", FormatClock(1439.99))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "continuous", ModeContinuous.String())
	assert.Equal(t, "once", ModeOnce.String())
	assert.Equal(t, "simulate", ModeSimulate.String())
}
