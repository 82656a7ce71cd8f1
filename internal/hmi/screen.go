// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hmi

import (
	"context"
	"sync"
)

// Character display geometry.
const (
	Rows    = 4
	Columns = 20
)

// Display is a character display. Rows are written from column 0.
type Display interface {
	Clear()
	Row(row int, text string)
}

// Keypad blocks until a key is pressed.
type Keypad interface {
	Key(ctx context.Context) (byte, error)
}

// Screen is an in-memory Display. Changed is signalled after every write
// so a renderer can redraw.
type Screen struct {
	mu      sync.Mutex
	rows    [Rows]string
	changed chan struct{}
}

// NewScreen creates a blank screen.
func NewScreen() *Screen {
	return &Screen{changed: make(chan struct{}, 1)}
}

// Clear implements Display.
func (s *Screen) Clear() {
	s.mu.Lock()
	s.rows = [Rows]string{}
	s.mu.Unlock()
	s.notify()
}

// Row implements Display. Out-of-range rows are ignored and long text is
// cut at the display width.
func (s *Screen) Row(row int, text string) {
	if row < 0 || row >= Rows {
		return
	}
	if len(text) > Columns {
		text = text[:Columns]
	}
	s.mu.Lock()
	s.rows[row] = text
	s.mu.Unlock()
	s.notify()
}

// Lines returns the current contents.
func (s *Screen) Lines() [Rows]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Changed is signalled after writes. Signals coalesce.
func (s *Screen) Changed() <-chan struct{} { return s.changed }

func (s *Screen) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// ChanKeypad is a Keypad fed from a channel.
type ChanKeypad chan byte

// Key implements Keypad.
func (k ChanKeypad) Key(ctx context.Context) (byte, error) {
	select {
	case b := <-k:
		return b, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
