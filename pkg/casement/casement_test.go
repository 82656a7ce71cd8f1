// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import (
	"strings"
	"testing"
)

func TestEncodeSnapshot(t *testing.T) {
	s := SensorSnapshot{Distance: 300, Temperature: 25, Window1: WindowOpen, Window2: WindowClosed}

	got := EncodeSnapshot(s)
	want := [SnapshotSize]byte{0x01, 0x2C, 25, 1, 0}
	if got != want {
		t.Fatalf("EncodeSnapshot() = % X, want % X", got, want)
	}

	decoded, err := DecodeSnapshot(got[:])
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	if decoded != s {
		t.Errorf("DecodeSnapshot() = %+v, want %+v", decoded, s)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    SensorSnapshot
		wantErr bool
	}{
		{
			name:  "max distance",
			input: []byte{0xFF, 0xFF, 255, 1, 1},
			want:  SensorSnapshot{Distance: 65535, Temperature: 255, Window1: WindowOpen, Window2: WindowOpen},
		},
		{
			name:  "zero values",
			input: []byte{0, 0, 0, 0, 0},
			want:  SensorSnapshot{},
		},
		{
			name:  "non-binary window byte reads closed",
			input: []byte{0x00, 0x0A, 40, 7, 1},
			want:  SensorSnapshot{Distance: 10, Temperature: 40, Window1: WindowClosed, Window2: WindowOpen},
		},
		{
			name:    "short",
			input:   []byte{0x00, 0x0A, 40},
			wantErr: true,
		},
		{
			name:    "long",
			input:   []byte{0, 0, 0, 0, 0, 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSnapshot(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("DecodeSnapshot() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input byte
		want  Command
		ok    bool
	}{
		{0x01, StartMonitoring, true},
		{0x02, DisplayValues, true},
		{0x03, DetectFaults, true},
		{0x04, StopMonitoring, true},
		{0x00, 0, false},
		{0x05, 0, false},
		{'*', 0, false},
		{'T', 0, false},
		{0xFF, 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseCommand(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCommand(0x%02X) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWireValuesAreDistinct(t *testing.T) {
	if AckByte == EndOfFaultsByte {
		t.Fatal("ack and end-of-faults bytes collide")
	}
	for _, c := range Commands {
		if c.Byte() == AckByte {
			t.Errorf("command %v collides with ack byte", c)
		}
	}
	for _, f := range []FaultCode{FaultDistanceTooClose, FaultOverheat} {
		if !f.Valid() {
			t.Errorf("fault %v reported invalid", f)
		}
		if byte(f) == EndOfFaultsByte || byte(f) == AckByte {
			t.Errorf("fault %v collides with a link control byte", f)
		}
	}
}

func TestFaultCodeString(t *testing.T) {
	tests := []struct {
		code FaultCode
		want string
	}{
		{FaultDistanceTooClose, "P001: Too Close"},
		{FaultOverheat, "P002: Overheat"},
		{FaultCode(9), "Unknown Fault: 9"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("FaultCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
	if FaultOverheat.DTC() != "P002" {
		t.Errorf("DTC() = %q, want P002", FaultOverheat.DTC())
	}
}

func TestIsEmptySlot(t *testing.T) {
	for b := 0; b < 256; b++ {
		want := b == 0x00 || b == 0xFF
		if got := IsEmptySlot(byte(b)); got != want {
			t.Errorf("IsEmptySlot(0x%02X) = %v, want %v", b, got, want)
		}
	}
}

func TestFormatByte(t *testing.T) {
	tests := []struct {
		dir  Direction
		b    byte
		want string
	}{
		{FromHMI, 0x01, "START_MONITORING"},
		{FromHMI, '*', "KEY_MENU"},
		{FromHMI, AckByte, "ACK"},
		{FromControl, AckByte, "ACK"},
		{FromControl, 'T', "END_OF_FAULTS"},
		{FromControl, 0x2C, "DATA 0x2C (44)"},
	}
	for _, tt := range tests {
		if got := FormatByte(tt.dir, tt.b); got != tt.want {
			t.Errorf("FormatByte(%v, 0x%02X) = %q, want %q", tt.dir, tt.b, got, tt.want)
		}
	}
}

func TestFormatFaults(t *testing.T) {
	if got := FormatFaults(nil); !strings.Contains(got, "No Faults") {
		t.Errorf("FormatFaults(nil) = %q, want No Faults", got)
	}
	got := FormatFaults([]FaultCode{FaultDistanceTooClose, FaultOverheat})
	if !strings.Contains(got, "P001: Too Close") || !strings.Contains(got, "P002: Overheat") {
		t.Errorf("FormatFaults() = %q", got)
	}
}

func TestStatisticsString(t *testing.T) {
	s := NewStatistics()
	s.RecordCommand(DetectFaults)
	s.RecordUnknown()
	s.RecordFaults(3)

	out := s.String()
	for _, want := range []string{"DETECT_FAULTS", "Unknown Bytes", "Faults Sent"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	var nilStats *Statistics
	nilStats.RecordUnknown() // must not panic
}

func TestStatisticsCounters(t *testing.T) {
	s := NewStatistics()
	s.sent(0x01)
	s.received(AckByte)
	s.ackReceived()
	s.timeout()

	got := s.Counters()
	want := Counters{BytesSent: 1, BytesReceived: 1, AcksReceived: 1, Timeouts: 1}
	if got != want {
		t.Errorf("Counters() = %+v, want %+v", got, want)
	}
}
