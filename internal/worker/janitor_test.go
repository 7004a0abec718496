package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls   atomic.Int64
	maxIdle atomic.Int64
}

func (f *fakeSweeper) SweepIdle(maxIdle time.Duration) int {
	f.calls.Add(1)
	f.maxIdle.Store(int64(maxIdle))
	return 1
}

func TestJanitor_SweepsOnInterval(t *testing.T) {
	// ARRANGE
	sweeper := &fakeSweeper{}
	j := NewJanitor(sweeper, JanitorConfig{
		Interval: 10 * time.Millisecond,
		MaxIdle:  time.Hour,
	})

	// ACT
	j.Start(context.Background())
	defer j.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeps = %d after 2s, want at least 2", sweeper.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// ASSERT
	if got := time.Duration(sweeper.maxIdle.Load()); got != time.Hour {
		t.Errorf("maxIdle = %s, want 1h", got)
	}
}

func TestJanitor_StopHaltsLoop(t *testing.T) {
	sweeper := &fakeSweeper{}
	j := NewJanitor(sweeper, JanitorConfig{Interval: 5 * time.Millisecond, MaxIdle: time.Hour})

	j.Start(context.Background())
	j.Stop()

	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if sweeper.calls.Load() != after {
		t.Error("sweeps continued after Stop")
	}

	// Stop again is a no-op.
	j.Stop()
}

func TestNewJanitor_DefaultsZeroConfig(t *testing.T) {
	j := NewJanitor(&fakeSweeper{}, JanitorConfig{})

	want := DefaultJanitorConfig()
	if j.cfg.Interval != want.Interval || j.cfg.MaxIdle != want.MaxIdle {
		t.Errorf("cfg = %+v, want defaults %+v", j.cfg, want)
	}
}
