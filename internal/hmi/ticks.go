// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hmi

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the period of the console's hold timer.
const DefaultTickInterval = time.Second

// TickSource counts timer periods. One goroutine owns the timer and is the
// only writer of the count; it posts each new count on Ticks. The console
// is the only reader. The count is a single byte and wraps.
type TickSource struct {
	interval  time.Duration
	newTicker func(time.Duration) (<-chan time.Time, func())

	count  atomic.Uint32
	events chan uint8

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickSource creates a stopped tick source.
func NewTickSource(interval time.Duration) *TickSource {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TickSource{
		interval: interval,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		events: make(chan uint8, 1),
	}
}

// Start begins counting. Starting a running source does nothing.
func (t *TickSource) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	c, stopTicker := t.newTicker(t.interval)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(c, stopTicker, t.stop, t.done)
}

func (t *TickSource) run(c <-chan time.Time, stopTicker func(), stop, done chan struct{}) {
	defer close(done)
	defer stopTicker()
	for {
		select {
		case <-c:
			n := uint8(t.count.Add(1))
			select {
			case t.events <- n:
			default:
			}
		case <-stop:
			return
		}
	}
}

// Stop halts counting and waits for the timer goroutine to exit.
func (t *TickSource) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
}

// Ticks delivers the count after each tick. Ticks the reader has not
// consumed are coalesced; Count is always current.
func (t *TickSource) Ticks() <-chan uint8 { return t.events }

// Count returns the ticks since the last Reset.
func (t *TickSource) Count() uint8 { return uint8(t.count.Load()) }

// Reset zeroes the count and drops a pending event. Call it only while
// stopped.
func (t *TickSource) Reset() {
	t.count.Store(0)
	select {
	case <-t.events:
	default:
	}
}

// Wait runs the source from zero until n ticks have passed. A running
// source is stopped and restarted first.
func (t *TickSource) Wait(ctx context.Context, n uint8) error {
	t.Stop()
	t.Reset()
	t.Start()
	defer func() {
		t.Stop()
		t.Reset()
	}()
	for t.Count() < n {
		select {
		case <-t.events:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
