// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/casement/internal/config"
	"github.com/Thermoquad/casement/pkg/casement"
)

func TestKeypadByte(t *testing.T) {
	tests := []struct {
		key  string
		want byte
		ok   bool
	}{
		{"1", casement.CmdStartMonitoring, true},
		{"4", casement.CmdStopMonitoring, true},
		{"0", 0x00, true},
		{"9", 0x09, true},
		{"*", casement.KeyMenu, true},
		{"#", casement.KeyHash, true},
		{"a", 0, false},
		{"enter", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := keypadByte(tt.key)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFaultsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFaults(&buf, "text", nil, time.Now()))
	require.Contains(t, buf.String(), "No Faults")
}

func TestWriteFaultsCBOR(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	codes := []casement.FaultCode{casement.FaultCode(0x01), casement.FaultCode(0x02)}

	var buf bytes.Buffer
	require.NoError(t, writeFaults(&buf, "cbor", codes, at))

	var got faultReport
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, at.UnixMilli(), got.ReadAt)
	require.Equal(t, []uint8{0x01, 0x02}, got.Codes)
	require.Equal(t, []string{"P001", "P002"}, got.DTC)
}

func TestWriteFaultsUnknownFormat(t *testing.T) {
	err := writeFaults(&bytes.Buffer{}, "json", nil, time.Now())
	require.Error(t, err)
}

type countingObserver struct {
	sessions, snapshots, faults, readouts int
}

func (c *countingObserver) Session(string, bool)               { c.sessions++ }
func (c *countingObserver) Snapshot(casement.SensorSnapshot)   { c.snapshots++ }
func (c *countingObserver) Fault(casement.FaultCode)           { c.faults++ }
func (c *countingObserver) Readout(codes []casement.FaultCode) { c.readouts++ }

func TestFanout(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	f := fanout{a, b}
	f.Session("id", true)
	f.Snapshot(casement.SensorSnapshot{})
	f.Fault(casement.FaultCode(0x01))
	f.Readout(nil)

	for _, o := range []*countingObserver{a, b} {
		require.Equal(t, countingObserver{1, 1, 1, 1}, *o)
	}
}

func TestEventLogKeepsNewest(t *testing.T) {
	l := newEventLog()
	l.maxEntries = 3
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.add(msg, false)
	}
	require.Len(t, l.entries, 3)
	require.Equal(t, "b", l.entries[0].message)

	out := newTUIStyles().renderEventLog(l, 60, 2)
	require.True(t, strings.Contains(out, " d"))
	require.False(t, strings.Contains(out, " b "))
}

func TestAckTimeoutMs(t *testing.T) {
	tests := []struct {
		name    string
		in      time.Duration
		want    int
		wantErr bool
	}{
		{"zero waits forever", 0, 0, false},
		{"sub-millisecond rounds up", 500 * time.Microsecond, 1, false},
		{"one nanosecond", time.Nanosecond, 1, false},
		{"whole milliseconds", 250 * time.Millisecond, 250, false},
		{"fraction rounds up", 1500 * time.Microsecond, 2, false},
		{"negative", -time.Millisecond, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ackTimeoutMs(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOpenConnectionNeedsTransport(t *testing.T) {
	_, _, err := OpenConnection(config.SerialConfig{Baud: 9600}, WebSocketOptions{})
	require.ErrorContains(t, err, "--port or --url")
}

func TestWebSocketConnectionClosed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c.WriteMessage(websocket.TextMessage, []byte("ignored"))
		c.WriteMessage(websocket.BinaryMessage, []byte{casement.AckByte})
		c.Close()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, desc, err := OpenConnection(config.SerialConfig{}, WebSocketOptions{URL: wsURL})
	require.NoError(t, err)
	defer conn.Close()
	require.Contains(t, desc, "WebSocket")

	buf := make([]byte, 8)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{casement.AckByte}, buf[:n])

	_, err = conn.Read(buf)
	require.ErrorIs(t, err, casement.ErrLinkClosed)
	_, err = conn.Read(buf)
	require.ErrorIs(t, err, casement.ErrLinkClosed)
}
