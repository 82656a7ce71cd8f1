// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import (
	"fmt"
	"strings"
)

// Direction labels a byte seen on the link.
type Direction int

// Directions
const (
	FromHMI Direction = iota
	FromControl
)

// String returns a short arrow label.
func (d Direction) String() string {
	if d == FromHMI {
		return "HMI→CTL"
	}
	return "CTL→HMI"
}

// FormatKey returns the console name for a keypad byte.
func FormatKey(b byte) string {
	if c, ok := ParseCommand(b); ok {
		return c.String()
	}
	switch b {
	case KeyMenu:
		return "KEY_MENU"
	case KeyHash:
		return "KEY_HASH"
	}
	return fmt.Sprintf("KEY_0x%02X", b)
}

// FormatByte describes a single byte without protocol context. The same
// value means different things depending on who sent it and what was asked,
// so this is a best-effort label for raw logs.
func FormatByte(dir Direction, b byte) string {
	if b == AckByte {
		return "ACK"
	}
	if dir == FromHMI {
		return FormatKey(b)
	}
	switch {
	case b == EndOfFaultsByte:
		return "END_OF_FAULTS"
	case IsEmptySlot(b):
		return fmt.Sprintf("DATA 0x%02X (empty slot value)", b)
	default:
		return fmt.Sprintf("DATA 0x%02X (%d)", b, b)
	}
}

// FormatSnapshot formats a snapshot the way the console lays it out.
func FormatSnapshot(s SensorSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Temperature: %dC\n", s.Temperature)
	fmt.Fprintf(&b, "  Distance:    %dcm\n", s.Distance)
	fmt.Fprintf(&b, "  Win1:        %s\n", s.Window1)
	fmt.Fprintf(&b, "  Win2:        %s\n", s.Window2)
	return b.String()
}

// FormatFaults formats a fault read-out, one line per entry.
func FormatFaults(codes []FaultCode) string {
	if len(codes) == 0 {
		return "  No Faults\n"
	}
	var b strings.Builder
	for i, c := range codes {
		fmt.Fprintf(&b, "  %4d  0x%02X  %s\n", i, uint8(c), c)
	}
	return b.String()
}
