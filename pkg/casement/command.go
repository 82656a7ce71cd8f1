// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import "fmt"

// Command is a control command sent by the HMI as a single byte.
type Command uint8

// Command values
const (
	StartMonitoring Command = CmdStartMonitoring
	DisplayValues   Command = CmdDisplayValues
	DetectFaults    Command = CmdDetectFaults
	StopMonitoring  Command = CmdStopMonitoring
)

// Commands lists every recognised command in wire order.
var Commands = []Command{StartMonitoring, DisplayValues, DetectFaults, StopMonitoring}

// ParseCommand interprets a received byte. Unrecognised bytes return false
// and must be dropped without a reply payload.
func ParseCommand(b byte) (Command, bool) {
	switch b {
	case CmdStartMonitoring, CmdDisplayValues, CmdDetectFaults, CmdStopMonitoring:
		return Command(b), true
	}
	return 0, false
}

// Byte returns the wire value of the command.
func (c Command) Byte() byte {
	return byte(c)
}

// String returns the protocol name of the command.
func (c Command) String() string {
	switch c {
	case StartMonitoring:
		return "START_MONITORING"
	case DisplayValues:
		return "DISPLAY_VALUES"
	case DetectFaults:
		return "DETECT_FAULTS"
	case StopMonitoring:
		return "STOP_MONITORING"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
	}
}

// FaultCode is a diagnostic trouble code persisted to the fault log.
type FaultCode uint8

// Fault codes
const (
	FaultDistanceTooClose FaultCode = 0x01 // P001
	FaultOverheat         FaultCode = 0x02 // P002
)

// IsEmptySlot reports whether b is one of the unwritten-slot sentinels.
func IsEmptySlot(b byte) bool {
	return b == SlotErased || b == SlotCleared
}

// Valid reports whether the code may be written to the fault log.
func (f FaultCode) Valid() bool {
	return !IsEmptySlot(byte(f))
}

// DTC returns the short trouble-code name (P001, P002, ...).
func (f FaultCode) DTC() string {
	return fmt.Sprintf("P%03d", uint8(f))
}

// String returns the console text for the fault.
func (f FaultCode) String() string {
	switch f {
	case FaultDistanceTooClose:
		return "P001: Too Close"
	case FaultOverheat:
		return "P002: Overheat"
	default:
		return fmt.Sprintf("Unknown Fault: %d", uint8(f))
	}
}
