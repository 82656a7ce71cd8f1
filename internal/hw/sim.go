// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hw

import (
	"sync"
	"sync/atomic"
)

// Port layout of the control board: four 8-bit ports, A through D.
const (
	PortA = iota
	PortB
	PortC
	PortD

	NumPorts    = 4
	PinsPerPort = 8
)

// SimRegisters is an in-memory register file. Inputs are driven from
// outside with SetInput; outputs are visible through Output.
type SimRegisters struct {
	mu     sync.Mutex
	ddr    [NumPorts]uint8
	port   [NumPorts]uint8
	inputs [NumPorts]uint8
}

// NewSimBank returns a bank over a fresh register file.
func NewSimBank() (*Bank, *SimRegisters) {
	regs := &SimRegisters{}
	return NewBank(regs, NumPorts, PinsPerPort), regs
}

// SetDirection implements Registers.
func (r *SimRegisters) SetDirection(port, pin int, dir Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dir == DirOutput {
		r.ddr[port] |= 1 << pin
	} else {
		r.ddr[port] &^= 1 << pin
	}
}

// Write implements Registers.
func (r *SimRegisters) Write(port, pin int, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level == High {
		r.port[port] |= 1 << pin
	} else {
		r.port[port] &^= 1 << pin
	}
}

// Read implements Registers. Output pins read back their driven level.
func (r *SimRegisters) Read(port, pin int) Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.inputs[port]
	if r.ddr[port]&(1<<pin) != 0 {
		src = r.port[port]
	}
	return Level(src >> pin & 1)
}

// SetInput drives an input pin from outside the board.
func (r *SimRegisters) SetInput(port, pin int, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level == High {
		r.inputs[port] |= 1 << pin
	} else {
		r.inputs[port] &^= 1 << pin
	}
}

// Output returns the driven level of a pin.
func (r *SimRegisters) Output(port, pin int) Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Level(r.port[port] >> pin & 1)
}

// IsOutput reports whether the pin is configured as an output.
func (r *SimRegisters) IsOutput(port, pin int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ddr[port]&(1<<pin) != 0
}

// SimThermometer reports a settable temperature.
type SimThermometer struct {
	v atomic.Uint32
}

// NewSimThermometer creates a thermometer reading celsius.
func NewSimThermometer(celsius uint8) *SimThermometer {
	t := &SimThermometer{}
	t.Set(celsius)
	return t
}

// Set changes the reading.
func (t *SimThermometer) Set(celsius uint8) { t.v.Store(uint32(celsius)) }

// Temperature implements Thermometer.
func (t *SimThermometer) Temperature() uint8 { return uint8(t.v.Load()) }

// SimRangefinder reports a settable distance.
type SimRangefinder struct {
	v     atomic.Uint32
	inits atomic.Uint32
}

// NewSimRangefinder creates a rangefinder reading cm.
func NewSimRangefinder(cm uint16) *SimRangefinder {
	r := &SimRangefinder{}
	r.Set(cm)
	return r
}

// Set changes the reading.
func (r *SimRangefinder) Set(cm uint16) { r.v.Store(uint32(cm)) }

// Init implements Rangefinder.
func (r *SimRangefinder) Init() { r.inits.Add(1) }

// Inits returns how many times Init was called.
func (r *SimRangefinder) Inits() int { return int(r.inits.Load()) }

// Distance implements Rangefinder.
func (r *SimRangefinder) Distance() uint16 { return uint16(r.v.Load()) }

// SimPWM records the last duty cycle.
type SimPWM struct {
	duty atomic.Uint32
}

// SetDuty implements PWM.
func (p *SimPWM) SetDuty(duty uint8) { p.duty.Store(uint32(duty)) }

// Duty returns the last duty cycle.
func (p *SimPWM) Duty() uint8 { return uint8(p.duty.Load()) }
