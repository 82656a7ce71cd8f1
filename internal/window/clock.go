// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package window

import (
	"context"
	"time"
)

// Clock is the time source for timed actuation and loop delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TimedAction is an open-loop action that runs for a fixed duration from
// its start time.
type TimedAction struct {
	Start    time.Time
	Duration time.Duration
}

// Done reports whether the action has run its full duration at now.
func (a TimedAction) Done(now time.Time) bool {
	return !now.Before(a.Start.Add(a.Duration))
}

// Remaining returns how long the action still has to run at now.
func (a TimedAction) Remaining(now time.Time) time.Duration {
	r := a.Start.Add(a.Duration).Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// Wait blocks on clock until the action is done.
func (a TimedAction) Wait(ctx context.Context, clock Clock) error {
	for now := clock.Now(); !a.Done(now); now = clock.Now() {
		if err := clock.Sleep(ctx, a.Remaining(now)); err != nil {
			return err
		}
	}
	return nil
}
