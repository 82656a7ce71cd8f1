// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package window drives the two motorised windows from their push buttons.
package window

import (
	"github.com/Thermoquad/casement/internal/hw"
)

// Direction is the direction a gate is commanded to move.
type Direction uint8

// Gate directions
const (
	Stop Direction = iota
	Forward
	Reverse
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Reverse:
		return "REVERSE"
	default:
		return "STOP"
	}
}

// Speed is the fixed drive speed in percent.
const Speed = 100

// Gate drives a single window motor. Its only state is the direction it
// last commanded.
type Gate struct {
	motor hw.Motor
	dir   Direction
}

// NewGate creates a gate for motor.
func NewGate(motor hw.Motor) *Gate {
	return &Gate{motor: motor}
}

// Init initialises the motor, leaving it stopped.
func (g *Gate) Init() {
	g.motor.Init()
	g.dir = Stop
}

// Drive commands the motor. Forward opens the window, Reverse closes it.
func (g *Gate) Drive(dir Direction) {
	switch dir {
	case Forward:
		g.motor.Rotate(hw.MotorCW, Speed)
	case Reverse:
		g.motor.Rotate(hw.MotorCCW, Speed)
	default:
		dir = Stop
		g.motor.Rotate(hw.MotorStop, Speed)
	}
	g.dir = dir
}

// Direction returns the currently commanded direction.
func (g *Gate) Direction() Direction {
	return g.dir
}
