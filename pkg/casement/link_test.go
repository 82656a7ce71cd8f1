// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package casement

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinkPair(t *testing.T) (hmi *Link, ctl *Link) {
	a, b := net.Pipe()
	hmi, ctl = NewLink(a), NewLink(b)
	hmi.Stats, ctl.Stats = NewStatistics(), NewStatistics()
	t.Cleanup(func() {
		hmi.Close()
		ctl.Close()
		a.Close()
		b.Close()
	})
	return hmi, ctl
}

func TestLinkPollIsNonBlocking(t *testing.T) {
	hmi, ctl := newLinkPair(t)

	_, ok, err := ctl.Poll()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, hmi.Send(CmdDisplayValues))

	var got byte
	require.Eventually(t, func() bool {
		b, ok, err := ctl.Poll()
		require.NoError(t, err)
		got = b
		return ok
	}, time.Second, time.Millisecond)
	assert.Equal(t, byte(CmdDisplayValues), got)
}

func TestLinkSendAcked(t *testing.T) {
	hmi, ctl := newLinkPair(t)

	done := make(chan error, 1)
	go func() { done <- hmi.SendAcked(CmdStartMonitoring) }()

	b, err := ctl.Receive()
	require.NoError(t, err)
	require.Equal(t, byte(CmdStartMonitoring), b)
	require.NoError(t, ctl.Ack())

	require.NoError(t, <-done)
	assert.EqualValues(t, 1, hmi.Stats.AcksReceived)
	assert.EqualValues(t, 1, ctl.Stats.AcksSent)
}

func TestLinkAwaitAckDiscardsOtherBytes(t *testing.T) {
	hmi, ctl := newLinkPair(t)

	done := make(chan error, 1)
	go func() { done <- hmi.AwaitAck() }()

	require.NoError(t, ctl.Send(0x33))
	require.NoError(t, ctl.Send(EndOfFaultsByte))
	require.NoError(t, ctl.Send(AckByte))

	require.NoError(t, <-done)
	assert.EqualValues(t, 2, hmi.Stats.Discarded)
}

func TestLinkTimeout(t *testing.T) {
	hmi, _ := newLinkPair(t)
	hmi.Timeout = 20 * time.Millisecond

	err := hmi.SendAcked(CmdStopMonitoring)
	require.ErrorIs(t, err, ErrProtocolTimeout)
	assert.EqualValues(t, 1, hmi.Stats.Timeouts)

	_, err = hmi.Receive()
	require.ErrorIs(t, err, ErrProtocolTimeout)
}

func TestLinkZeroTimeoutWaitsUntilClosed(t *testing.T) {
	hmi, _ := newLinkPair(t)

	done := make(chan error, 1)
	go func() { done <- hmi.AwaitAck() }()

	select {
	case err := <-done:
		t.Fatalf("AwaitAck returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	hmi.Close()
	require.ErrorIs(t, <-done, ErrLinkClosed)
}

func TestLinkPeerClosed(t *testing.T) {
	a, b := net.Pipe()
	l := NewLink(a)
	defer l.Close()

	require.NoError(t, b.Close())
	_, err := l.Receive()
	require.ErrorIs(t, err, ErrLinkClosed)

	_, _, err = l.Poll()
	require.ErrorIs(t, err, ErrLinkClosed)
}

// idleStream behaves like a serial port with a read timeout and no
// traffic.
type idleStream struct{}

func (idleStream) Read(p []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (idleStream) Write(p []byte) (int, error) { return len(p), nil }

func TestLinkCloseStopsReaderOnTimedOutReads(t *testing.T) {
	l := NewLink(idleStream{})
	require.NoError(t, l.Close())

	stopped := make(chan struct{})
	go func() {
		for range l.rx {
		}
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("reader still running after Close")
	}
}

func TestRequesterSnapshot(t *testing.T) {
	hmiLink, ctl := newLinkPair(t)
	req := NewRequester(hmiLink)

	want := SensorSnapshot{Distance: 300, Temperature: 25, Window1: WindowOpen, Window2: WindowClosed}
	go func() {
		b, err := ctl.ReceiveAcked()
		if err != nil || b != CmdDisplayValues {
			return
		}
		for _, x := range EncodeSnapshot(want) {
			if ctl.SendAcked(x) != nil {
				return
			}
		}
	}()

	got, err := req.RequestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	// command ack + five data acks from each side
	assert.EqualValues(t, 5, hmiLink.Stats.AcksSent)
	assert.EqualValues(t, 1, hmiLink.Stats.AcksReceived)
}

func TestRequesterFaults(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
		want   []FaultCode
	}{
		{"empty log", []byte{EndOfFaultsByte}, nil},
		{"two faults", []byte{0x01, 0x02, EndOfFaultsByte}, []FaultCode{FaultDistanceTooClose, FaultOverheat}},
		{"unknown code passes through", []byte{0x09, EndOfFaultsByte}, []FaultCode{9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hmiLink, ctl := newLinkPair(t)
			req := NewRequester(hmiLink)

			go func() {
				if _, err := ctl.ReceiveAcked(); err != nil {
					return
				}
				for _, x := range tt.stream {
					if ctl.SendAcked(x) != nil {
						return
					}
				}
			}()

			got, err := req.RequestFaults()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
