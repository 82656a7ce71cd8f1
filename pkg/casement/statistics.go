// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import (
	"fmt"
	"sync"
	"time"
)

// Statistics tracks link traffic and command handling
type Statistics struct {
	mu sync.Mutex

	StartTime time.Time

	// Byte counters
	BytesSent     uint64
	BytesReceived uint64
	AcksSent      uint64
	AcksReceived  uint64
	Discarded     uint64 // non-ack bytes dropped while waiting for an ack
	Timeouts      uint64

	// Command counters (control side)
	Commands        map[Command]uint64
	UnknownCommands uint64
	SnapshotsSent   uint64
	FaultsSent      uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Commands:  make(map[Command]uint64),
	}
}

func (s *Statistics) update(fn func()) {
	if s == nil {
		return
	}
	s.mu.Lock()
	fn()
	s.mu.Unlock()
}

func (s *Statistics) sent(byte)     { s.update(func() { s.BytesSent++ }) }
func (s *Statistics) received(byte) { s.update(func() { s.BytesReceived++ }) }
func (s *Statistics) ackSent()      { s.update(func() { s.AcksSent++ }) }
func (s *Statistics) ackReceived()  { s.update(func() { s.AcksReceived++ }) }
func (s *Statistics) discarded()    { s.update(func() { s.Discarded++ }) }
func (s *Statistics) timeout()      { s.update(func() { s.Timeouts++ }) }

// RecordCommand counts a decoded command byte.
func (s *Statistics) RecordCommand(c Command) {
	s.update(func() {
		if s.Commands == nil {
			s.Commands = make(map[Command]uint64)
		}
		s.Commands[c]++
	})
}

// RecordUnknown counts an acknowledged but unrecognised byte.
func (s *Statistics) RecordUnknown() { s.update(func() { s.UnknownCommands++ }) }

// RecordSnapshot counts a completed snapshot reply.
func (s *Statistics) RecordSnapshot() { s.update(func() { s.SnapshotsSent++ }) }

// RecordFaults counts fault bytes streamed in one read-out.
func (s *Statistics) RecordFaults(n int) { s.update(func() { s.FaultsSent += uint64(n) }) }

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	result += fmt.Sprintf("Acks Sent:       %8d\n", s.AcksSent)
	result += fmt.Sprintf("Acks Received:   %8d\n", s.AcksReceived)
	if s.Discarded > 0 {
		result += fmt.Sprintf("Discarded:       %8d\n", s.Discarded)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	for _, c := range Commands {
		if n := s.Commands[c]; n > 0 {
			result += fmt.Sprintf("  %-17s %6d\n", c.String()+":", n)
		}
	}
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("Unknown Bytes:   %8d\n", s.UnknownCommands)
	}
	if s.SnapshotsSent > 0 {
		result += fmt.Sprintf("Snapshots Sent:  %8d\n", s.SnapshotsSent)
	}
	if s.FaultsSent > 0 {
		result += fmt.Sprintf("Faults Sent:     %8d\n", s.FaultsSent)
	}
	result += "=====================================\n"

	return result
}

// Counters is a copy of the byte counters.
type Counters struct {
	BytesSent     uint64
	BytesReceived uint64
	AcksSent      uint64
	AcksReceived  uint64
	Discarded     uint64
	Timeouts      uint64
}

// Counters returns the byte counters. It is safe to call while the link is
// in use, and on a nil Statistics.
func (s *Statistics) Counters() Counters {
	if s == nil {
		return Counters{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{
		BytesSent:     s.BytesSent,
		BytesReceived: s.BytesReceived,
		AcksSent:      s.AcksSent,
		AcksReceived:  s.AcksReceived,
		Discarded:     s.Discarded,
		Timeouts:      s.Timeouts,
	}
}
