// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package casement implements the byte-level link between the casement HMI
// console and the window control node.
//
// Every byte on the wire is answered with a single acknowledgment byte before
// the next byte is sent. There is no framing, length prefix or checksum: the
// link is a sequence of one-byte request/ack round trips.
package casement

// Command bytes (HMI → Control)
const (
	CmdStartMonitoring = 0x01
	CmdDisplayValues   = 0x02
	CmdDetectFaults    = 0x03
	CmdStopMonitoring  = 0x04
)

// Link control bytes
const (
	AckByte         = 0x05 // sent after every byte, in both directions
	EndOfFaultsByte = 'T'  // terminates a fault stream
)

// Persistent store slot sentinels. Neither value is ever a fault code.
const (
	SlotErased  = 0xFF
	SlotCleared = 0x00
)

// SnapshotSize is the number of bytes in a snapshot reply.
const SnapshotSize = 5

// Keypad bytes the HMI sends that are not control commands. The control node
// acknowledges and drops them like any other unrecognised byte.
const (
	KeyMenu = '*'
	KeyHash = '#'
)

// Sensor thresholds used by the control node.
const (
	CriticalDistance    = 10 // cm, faults below this
	CriticalTemperature = 90 // °C, faults above this
)
