// Package simulation holds the process-wide simulation switch used to make
// timing-sensitive behavior deterministic under test. When enabled, all
// embedding calls route to the local deterministic backend and a resolved
// delay is applied before each call returns.
package simulation

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	enabled atomic.Bool
	delayMs atomic.Int64
)

// SetEnabled toggles simulation mode for the whole process.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether simulation mode is active.
func Enabled() bool {
	return enabled.Load()
}

// SetDelay configures the simulated embedding delay.
func SetDelay(d time.Duration) {
	delayMs.Store(d.Milliseconds())
}

// Delay resolves the configured simulated delay.
func Delay() time.Duration {
	return time.Duration(delayMs.Load()) * time.Millisecond
}

// SleepFunc suspends for the given duration, honoring context cancellation.
type SleepFunc func(ctx context.Context, d time.Duration)

// Sleep is the default suspend primitive.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Controls bundles the simulation hooks consumed by the embedding service
// so tests can substitute their own clock.
type Controls struct {
	EnabledFn func() bool
	DelayFn   func() time.Duration
	SleepFn   SleepFunc
}

// DefaultControls returns Controls wired to the process-wide switch.
func DefaultControls() Controls {
	return Controls{
		EnabledFn: Enabled,
		DelayFn:   Delay,
		SleepFn:   Sleep,
	}
}
