// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package window

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/pkg/casement"
)

// DefaultActuation is how long a window motor runs per button press.
const DefaultActuation = 1000 * time.Millisecond

// Window is one motorised window with its open and close buttons. A
// button reads High while pressed.
type Window struct {
	Name  string
	Open  hw.Input
	Close hw.Input
	Gate  *Gate

	state casement.WindowState
}

// State returns the last state the window was driven to.
func (w *Window) State() casement.WindowState {
	return w.state
}

// Controller owns the window states. Nothing else writes them.
type Controller struct {
	clock     Clock
	actuation time.Duration
	windows   []*Window

	// OnChange, if set, is called after a window finishes moving.
	OnChange func(index int, state casement.WindowState)
}

// NewController creates a controller for windows. All windows start
// Closed.
func NewController(clock Clock, actuation time.Duration, windows ...*Window) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	if actuation <= 0 {
		actuation = DefaultActuation
	}
	return &Controller{clock: clock, actuation: actuation, windows: windows}
}

// Init initialises every window motor.
func (c *Controller) Init() {
	for _, w := range c.windows {
		w.Gate.Init()
	}
}

// Windows returns the managed windows.
func (c *Controller) Windows() []*Window {
	return c.windows
}

// States returns the state of the first two windows. A missing window
// reads Closed.
func (c *Controller) States() (win1, win2 casement.WindowState) {
	if len(c.windows) > 0 {
		win1 = c.windows[0].state
	}
	if len(c.windows) > 1 {
		win2 = c.windows[1].state
	}
	return win1, win2
}

type press struct {
	open, close bool
}

// Poll samples every button once and then moves each window whose
// buttons ask for it. Moving blocks for the actuation time. The returned
// error is only ever the context's; a cancelled move stops the motor and
// leaves the window state unchanged.
func (c *Controller) Poll(ctx context.Context) error {
	presses := make([]press, len(c.windows))
	for i, w := range c.windows {
		presses[i] = press{
			open:  w.Open.Read() == hw.High,
			close: w.Close.Read() == hw.High,
		}
	}

	for i, w := range c.windows {
		var (
			dir  Direction
			next casement.WindowState
		)
		switch p := presses[i]; {
		case p.open && !p.close:
			dir, next = Forward, casement.WindowOpen
		case p.close && !p.open:
			dir, next = Reverse, casement.WindowClosed
		default:
			continue
		}
		if err := c.actuate(ctx, w, dir); err != nil {
			return err
		}
		w.state = next
		if glog.V(1) {
			glog.Infof("window %s %s", w.Name, next)
		}
		if c.OnChange != nil {
			c.OnChange(i, next)
		}
	}
	return nil
}

func (c *Controller) actuate(ctx context.Context, w *Window, dir Direction) error {
	w.Gate.Drive(dir)
	action := TimedAction{Start: c.clock.Now(), Duration: c.actuation}
	err := action.Wait(ctx, c.clock)
	w.Gate.Drive(Stop)
	return err
}
