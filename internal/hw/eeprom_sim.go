// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hw

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNoDevice is returned for transactions to an address nobody answers.
var ErrNoDevice = errors.New("i2c: no device at address")

// SimEEPROM emulates a two-byte-addressed serial EEPROM on an I2C bus.
// A write transaction sets the address pointer from its first two bytes and
// stores any following bytes; a read continues from the pointer.
type SimEEPROM struct {
	mu      sync.Mutex
	addr    uint16
	mem     []byte
	pointer int

	// FailTx, when set, is returned by every transaction.
	FailTx error
}

var _ drivers.I2C = (*SimEEPROM)(nil)

// NewSimEEPROM creates an erased part of size bytes at bus address addr.
func NewSimEEPROM(addr uint16, size int) *SimEEPROM {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &SimEEPROM{addr: addr, mem: mem}
}

// Tx implements drivers.I2C.
func (e *SimEEPROM) Tx(addr uint16, w, r []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailTx != nil {
		return e.FailTx
	}
	if addr != e.addr {
		return ErrNoDevice
	}
	if len(w) >= 2 {
		e.pointer = (int(w[0])<<8 | int(w[1])) % len(e.mem)
		for _, b := range w[2:] {
			e.mem[e.pointer] = b
			e.pointer = (e.pointer + 1) % len(e.mem)
		}
	}
	for i := range r {
		r[i] = e.mem[e.pointer]
		e.pointer = (e.pointer + 1) % len(e.mem)
	}
	return nil
}

// Peek returns the stored byte at a memory address.
func (e *SimEEPROM) Peek(at int) byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem[at%len(e.mem)]
}
