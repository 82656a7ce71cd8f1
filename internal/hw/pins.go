// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hw defines the narrow contracts the control node uses to reach
// its peripherals: bounds-checked pins, sensors and motor drivers, plus
// simulated implementations for host runs and tests.
package hw

// Level is a digital pin level.
type Level uint8

// Pin levels
const (
	Low  Level = 0
	High Level = 1
)

// Direction configures a pin as input or output.
type Direction uint8

// Pin directions
const (
	DirInput Direction = iota
	DirOutput
)

// Registers is raw per-bit access to a bank of ports. Implementations may
// assume indices are in range; Bank checks them first.
type Registers interface {
	SetDirection(port, pin int, dir Direction)
	Write(port, pin int, level Level)
	Read(port, pin int) Level
}

// Bank hands out capability objects for a fixed number of ports.
type Bank struct {
	regs        Registers
	ports       int
	pinsPerPort int
}

// NewBank creates a bank over regs.
func NewBank(regs Registers, ports, pinsPerPort int) *Bank {
	return &Bank{regs: regs, ports: ports, pinsPerPort: pinsPerPort}
}

// Port returns the capability for port i. An out-of-range index yields a
// port whose pins do nothing.
func (b *Bank) Port(i int) Port {
	return Port{bank: b, id: i, valid: b != nil && i >= 0 && i < b.ports}
}

// Pin is shorthand for Port(port).Pin(pin).
func (b *Bank) Pin(port, pin int) Pin {
	return b.Port(port).Pin(pin)
}

// Port is a capability for one port.
type Port struct {
	bank  *Bank
	id    int
	valid bool
}

// Valid reports whether the port exists.
func (p Port) Valid() bool { return p.valid }

// Pin returns the capability for pin i of this port.
func (p Port) Pin(i int) Pin {
	ok := p.valid && i >= 0 && i < p.bank.pinsPerPort
	return Pin{port: p, id: i, valid: ok}
}

// Pin is a capability for a single pin exposing read, write and direction
// only. Operations on an invalid pin are no-ops; reads return Low.
type Pin struct {
	port  Port
	id    int
	valid bool
}

// Valid reports whether the pin exists.
func (p Pin) Valid() bool { return p.valid }

// Read returns the input level.
func (p Pin) Read() Level {
	if !p.valid {
		return Low
	}
	return p.port.bank.regs.Read(p.port.id, p.id)
}

// Write drives the output level.
func (p Pin) Write(level Level) {
	if !p.valid {
		return
	}
	p.port.bank.regs.Write(p.port.id, p.id, level)
}

// SetDirection configures the pin.
func (p Pin) SetDirection(dir Direction) {
	if !p.valid {
		return
	}
	p.port.bank.regs.SetDirection(p.port.id, p.id, dir)
}
