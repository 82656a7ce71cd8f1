// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import "fmt"

// WindowState is the last commanded position of a window.
type WindowState uint8

// Window states, as sent on the wire
const (
	WindowClosed WindowState = 0
	WindowOpen   WindowState = 1
)

// String returns "Open" or "Closed".
func (w WindowState) String() string {
	if w == WindowOpen {
		return "Open"
	}
	return "Closed"
}

// SensorSnapshot is one complete reading of the control node's inputs.
// All four fields are sampled together and never updated piecemeal.
type SensorSnapshot struct {
	Temperature uint8  // °C
	Distance    uint16 // cm
	Window1     WindowState
	Window2     WindowState
}

// EncodeSnapshot returns the snapshot reply bytes in wire order:
// distance high, distance low, temperature, window 1, window 2.
func EncodeSnapshot(s SensorSnapshot) [SnapshotSize]byte {
	return [SnapshotSize]byte{
		byte(s.Distance >> 8),
		byte(s.Distance & 0xFF),
		s.Temperature,
		byte(s.Window1),
		byte(s.Window2),
	}
}

// DecodeSnapshot rebuilds a snapshot from its reply bytes. Any window byte
// other than 1 reads as closed, as the console displays it.
func DecodeSnapshot(b []byte) (SensorSnapshot, error) {
	if len(b) != SnapshotSize {
		return SensorSnapshot{}, fmt.Errorf("snapshot must be %d bytes, got %d", SnapshotSize, len(b))
	}
	return SensorSnapshot{
		Distance:    uint16(b[0])<<8 | uint16(b[1]),
		Temperature: b[2],
		Window1:     windowFromByte(b[3]),
		Window2:     windowFromByte(b[4]),
	}, nil
}

func windowFromByte(b byte) WindowState {
	if b == byte(WindowOpen) {
		return WindowOpen
	}
	return WindowClosed
}
