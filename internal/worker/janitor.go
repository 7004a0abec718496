// Package worker runs the background maintenance loops of the server.
package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// IdleSweeper abstracts the session hub so the janitor doesn't depend on
// the handler layer directly.
type IdleSweeper interface {
	// SweepIdle stops every session untouched for longer than maxIdle
	// and returns how many were stopped.
	SweepIdle(maxIdle time.Duration) int
}

// JanitorConfig holds janitor tuning.
type JanitorConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration

	// MaxIdle is how long a session may go untouched before it is
	// stopped. A stopped session's token keeps verifying but the caller
	// gets a fresh "session expired" and must create a new one.
	MaxIdle time.Duration
}

// DefaultJanitorConfig returns sensible defaults.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval: time.Minute,
		MaxIdle:  30 * time.Minute,
	}
}

// Janitor periodically reaps idle engine sessions so abandoned clients
// don't pin store subscriptions forever.
type Janitor struct {
	hub IdleSweeper
	cfg JanitorConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a janitor for the given hub.
func NewJanitor(hub IdleSweeper, cfg JanitorConfig) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultJanitorConfig().Interval
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = DefaultJanitorConfig().MaxIdle
	}
	return &Janitor{hub: hub, cfg: cfg}
}

// Start launches the sweep loop.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.run(ctx)

	log.Printf("[Janitor] Started (interval=%s maxIdle=%s)", j.cfg.Interval, j.cfg.MaxIdle)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	j.wg.Wait()
	log.Printf("[Janitor] Stopped")
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.hub.SweepIdle(j.cfg.MaxIdle); n > 0 {
				log.Printf("[Janitor] Reaped %d idle session(s)", n)
			}
		}
	}
}
