// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hmi is the operator console: it turns keypad presses into
// command bytes for the control node and shows the replies on a
// four-row character display.
package hmi

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/casement/pkg/casement"
)

// Link is the HMI side of the protocol. casement.Requester implements it.
type Link interface {
	SendKey(b byte) error
	ReadSnapshot() (casement.SensorSnapshot, error)
	ReadFaults(fn func(code casement.FaultCode)) error
}

// Sleeper blocks for a fixed time.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Timings are the console's fixed delays.
type Timings struct {
	Welcome   time.Duration // splash before the menu
	KeyDelay  time.Duration // after every handled key
	Reading   time.Duration // "Reading Faults.." banner
	FaultRow  time.Duration // after each fault row, applied twice
	Countdown time.Duration // per step of the stop countdown
	HoldTicks uint8         // ticks to hold after start and display
}

// DefaultTimings returns the reference console timings.
func DefaultTimings() Timings {
	return Timings{
		Welcome:   time.Second,
		KeyDelay:  300 * time.Millisecond,
		Reading:   time.Second,
		FaultRow:  500 * time.Millisecond,
		Countdown: time.Second,
		HoldTicks: 10,
	}
}

// Menu is the main menu, one entry per row.
var Menu = [Rows]string{
	"1.Start System",
	"2.Show Readings",
	"3.View Faults",
	"4.Stop System",
}

const (
	promptMenu = "Press * for menu"
	promptAny  = "Press any key..."
)

// Console runs the operator dialogue. It is driven from a single
// goroutine.
type Console struct {
	link    Link
	display Display
	keypad  Keypad
	ticks   *TickSource
	sleep   Sleeper
	timings Timings
}

// NewConsole creates a console.
func NewConsole(link Link, display Display, keypad Keypad, ticks *TickSource, sleep Sleeper, timings Timings) *Console {
	return &Console{
		link:    link,
		display: display,
		keypad:  keypad,
		ticks:   ticks,
		sleep:   sleep,
		timings: timings,
	}
}

// Run shows the welcome splash and the menu, then handles keys until ctx
// is done or the link fails.
func (c *Console) Run(ctx context.Context) error {
	c.display.Clear()
	c.display.Row(1, "     Welcome")
	if err := c.sleep.Sleep(ctx, c.timings.Welcome); err != nil {
		return err
	}
	c.ShowMenu()

	for {
		key, err := c.keypad.Key(ctx)
		if err != nil {
			return err
		}
		if err := c.Handle(ctx, key); err != nil {
			return err
		}
		if err := c.sleep.Sleep(ctx, c.timings.KeyDelay); err != nil {
			return err
		}
	}
}

// ShowMenu draws the main menu.
func (c *Console) ShowMenu() {
	c.display.Clear()
	for i, line := range Menu {
		c.display.Row(i, line)
	}
}

// Handle sends key to the control node, waits for the acknowledgment and
// runs the matching screen.
func (c *Console) Handle(ctx context.Context, key byte) error {
	if err := c.link.SendKey(key); err != nil {
		return fmt.Errorf("send key %s: %w", casement.FormatKey(key), err)
	}

	if key == casement.KeyMenu {
		c.ShowMenu()
		return nil
	}
	cmd, ok := casement.ParseCommand(key)
	if !ok {
		c.display.Clear()
		c.display.Row(0, "Invalid Key")
		c.display.Row(1, promptMenu)
		return nil
	}

	switch cmd {
	case casement.StartMonitoring:
		return c.started(ctx)
	case casement.DisplayValues:
		return c.readings(ctx)
	case casement.DetectFaults:
		return c.faults(ctx)
	case casement.StopMonitoring:
		return c.stopped(ctx)
	}
	return nil
}

func (c *Console) started(ctx context.Context) error {
	c.display.Clear()
	c.display.Row(0, "System Started")
	c.display.Row(1, "Start Setup...")
	if err := c.ticks.Wait(ctx, c.timings.HoldTicks); err != nil {
		return err
	}
	c.display.Clear()
	c.display.Row(0, promptMenu)
	return nil
}

func (c *Console) readings(ctx context.Context) error {
	c.display.Clear()
	c.display.Row(0, "Display Values")
	snap, err := c.link.ReadSnapshot()
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	for i, line := range ReadingLines(snap) {
		c.display.Row(i, line)
	}
	if err := c.ticks.Wait(ctx, c.timings.HoldTicks); err != nil {
		return err
	}
	c.display.Clear()
	c.display.Row(0, "Again? Press 2")
	c.display.Row(1, promptMenu)
	return nil
}

// ReadingLines formats a snapshot for the display.
func ReadingLines(s casement.SensorSnapshot) [Rows]string {
	return [Rows]string{
		fmt.Sprintf("Temperature: %dC", s.Temperature),
		fmt.Sprintf("Distance: %dcm", s.Distance),
		"Win1: " + s.Window1.String(),
		"Win2: " + s.Window2.String(),
	}
}

func (c *Console) faults(ctx context.Context) error {
	c.display.Clear()
	c.display.Row(0, "Reading Faults..")
	if err := c.sleep.Sleep(ctx, c.timings.Reading); err != nil {
		return err
	}
	c.display.Clear()

	var (
		row, total int
		stopErr    error
	)
	err := c.link.ReadFaults(func(code casement.FaultCode) {
		if stopErr != nil {
			return
		}
		c.display.Row(row, code.String())
		if stopErr = c.sleep.Sleep(ctx, c.timings.FaultRow); stopErr != nil {
			return
		}
		row++
		total++
		if stopErr = c.sleep.Sleep(ctx, c.timings.FaultRow); stopErr != nil {
			return
		}
		if row >= Rows {
			c.display.Row(Rows-1, promptAny)
			if _, stopErr = c.keypad.Key(ctx); stopErr != nil {
				return
			}
			c.display.Clear()
			row = 0
		}
	})
	if err != nil {
		return fmt.Errorf("read faults: %w", err)
	}
	if stopErr != nil {
		return stopErr
	}

	c.display.Clear()
	if total == 0 {
		c.display.Row(0, "No Faults")
	} else {
		c.display.Row(0, "--- End List ---")
	}
	c.display.Row(Rows-1, promptMenu)
	return nil
}

func (c *Console) stopped(ctx context.Context) error {
	c.display.Clear()
	c.display.Row(0, "System Stopped")
	c.display.Row(1, "Return to menu")
	for i := 0; i < 10; i++ {
		c.display.Row(2, fmt.Sprintf("Wait %ds...", 10-i))
		if err := c.sleep.Sleep(ctx, c.timings.Countdown); err != nil {
			return err
		}
	}
	c.ShowMenu()
	return nil
}
