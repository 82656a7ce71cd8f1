// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package faultlog

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/pkg/casement"
)

var (
	tooClose = casement.FaultDistanceTooClose
	overheat = casement.FaultOverheat
)

// flakyStore wraps a MemoryStore with injectable failures.
type flakyStore struct {
	*MemoryStore
	writeErr error
	readErr  error
	failAt   int
	writes   int
}

func newFlakyStore(size int) *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore(size), failAt: -1}
}

func (s *flakyStore) WriteSlot(addr uint16, b byte) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.MemoryStore.WriteSlot(addr, b)
}

func (s *flakyStore) ReadSlot(addr uint16) (byte, error) {
	if s.readErr != nil && int(addr) == s.failAt {
		return 0, s.readErr
	}
	return s.MemoryStore.ReadSlot(addr)
}

type memJournal struct {
	cursor int
	saved  bool
	saves  int
	err    error
}

func (j *memJournal) Load() (int, bool, error) { return j.cursor, j.saved, nil }

func (j *memJournal) Save(cursor int) error {
	j.saves++
	if j.err != nil {
		return j.err
	}
	j.cursor, j.saved = cursor, true
	return nil
}

func openLog(t *testing.T, store Store) *Log {
	t.Helper()
	l, err := Open(store, nil)
	require.NoError(t, err)
	return l
}

func TestAppendAndReadAll(t *testing.T) {
	l := openLog(t, NewMemoryStore(Capacity))
	require.Equal(t, Capacity, l.Capacity())

	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Append(overheat))
	require.Equal(t, 2, l.WriteCursor())

	codes, err := l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{tooClose, overheat}, codes)
	require.Equal(t, 2, l.WriteCursor(), "read-out of a log with room must not clear it")
	require.Equal(t, 2, l.ReadCursor())
}

func TestReadAllEmpty(t *testing.T) {
	l := openLog(t, NewMemoryStore(Capacity))
	codes, err := l.Entries()
	require.NoError(t, err)
	require.Empty(t, codes)
}

func TestAppendRejectsSentinels(t *testing.T) {
	l := openLog(t, NewMemoryStore(8))
	for _, b := range []byte{casement.SlotCleared, casement.SlotErased} {
		err := l.Append(casement.FaultCode(b))
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	require.Zero(t, l.WriteCursor())
}

func TestAppendStoreFailureRetry(t *testing.T) {
	store := newFlakyStore(8)
	l := openLog(t, store)
	boom := errors.New("nack")
	store.writeErr = boom

	for i := 0; i < 5; i++ {
		err := l.Append(tooClose)
		var se *StoreError
		require.ErrorAs(t, err, &se)
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, ErrFull)
		require.Equal(t, "write", se.Op)
		require.Zero(t, se.Addr)
		require.Zero(t, l.WriteCursor(), "failed append moved the cursor")
	}

	store.writeErr = nil
	require.NoError(t, l.Append(tooClose))
	require.Equal(t, 1, l.WriteCursor())
	require.Equal(t, 6, store.writes)
}

func TestAppendFull(t *testing.T) {
	l := openLog(t, NewMemoryStore(3))
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Append(tooClose))
	}
	require.True(t, l.Full())
	require.ErrorIs(t, l.Append(overheat), ErrFull)
	require.Equal(t, 3, l.WriteCursor())
}

func TestReadOutClearsFullLog(t *testing.T) {
	store := NewMemoryStore(4)
	l := openLog(t, store)
	for _, c := range []casement.FaultCode{tooClose, overheat, tooClose, overheat} {
		require.NoError(t, l.Append(c))
	}

	codes, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, codes, 4)
	require.Zero(t, l.WriteCursor())
	require.False(t, l.Full())

	// Next append starts again at address 0; the stale slots behind it stay
	// out of the next read-out.
	require.NoError(t, l.Append(overheat))
	require.Equal(t, byte(overheat), store.Bytes()[0])
	codes, err = l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{overheat}, codes)
}

func TestReadAllStopsAtEmptySlot(t *testing.T) {
	store := NewMemoryStore(8)
	l := openLog(t, store)
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Append(overheat))
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, store.WriteSlot(1, casement.SlotCleared))

	codes, err := l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{tooClose}, codes)
}

func TestReadAllStopsAtReadError(t *testing.T) {
	store := newFlakyStore(4)
	l := openLog(t, store)
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Append(overheat))
	}
	store.readErr = errors.New("bus error")
	store.failAt = 2

	codes, err := l.Entries()
	require.Equal(t, []casement.FaultCode{overheat, overheat}, codes)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "read", se.Op)
	require.Equal(t, 2, se.Addr)
	require.Zero(t, l.WriteCursor(), "a terminated read-out still clears a full log")

	_, err = l.Entries()
	require.NoError(t, err)
}

func TestReadAllEarlyBreakKeepsCursor(t *testing.T) {
	l := openLog(t, NewMemoryStore(2))
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Append(overheat))

	for range l.ReadAll() {
		break
	}
	require.Equal(t, 2, l.WriteCursor())
	require.Equal(t, 0, l.ReadCursor())
}

func TestJournalRestoresCursor(t *testing.T) {
	store := NewMemoryStore(16)
	j := &memJournal{}
	l, err := Open(store, j)
	require.NoError(t, err)
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Append(overheat))
	require.Equal(t, 2, j.cursor)

	reopened, err := Open(store, j)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.WriteCursor())
	require.NoError(t, reopened.Append(tooClose))
	codes := slices.Collect(reopened.ReadAll())
	require.Equal(t, []casement.FaultCode{tooClose, overheat, tooClose}, codes)
}

func TestJournalOutOfRangeCursor(t *testing.T) {
	l, err := Open(NewMemoryStore(4), &memJournal{cursor: 99, saved: true})
	require.NoError(t, err)
	require.Zero(t, l.WriteCursor())
}

func TestJournalCursorCheckedAgainstStore(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		fill   []byte
		want   int
	}{
		{"store intact", 2, []byte{byte(tooClose), byte(overheat)}, 2},
		{"store erased", 2, nil, 0},
		{"gap below cursor", 3, []byte{byte(tooClose), casement.SlotErased, byte(overheat)}, 1},
		{"zeroed slot", 2, []byte{byte(overheat), casement.SlotCleared}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(8)
			for i, b := range tt.fill {
				require.NoError(t, store.WriteSlot(uint16(i), b))
			}
			j := &memJournal{cursor: tt.cursor, saved: true}
			l, err := Open(store, j)
			require.NoError(t, err)
			require.Equal(t, tt.want, l.WriteCursor())
			require.Equal(t, tt.want, j.cursor)
		})
	}
}

func TestJournalCursorUnreadableSlot(t *testing.T) {
	store := newFlakyStore(8)
	require.NoError(t, store.MemoryStore.WriteSlot(0, byte(tooClose)))
	require.NoError(t, store.MemoryStore.WriteSlot(1, byte(overheat)))
	store.readErr, store.failAt = errors.New("no ack"), 1

	l, err := Open(store, &memJournal{cursor: 2, saved: true})
	require.NoError(t, err)
	require.Equal(t, 1, l.WriteCursor())
}

func TestRestartWithErasedEEPROM(t *testing.T) {
	journal := FileJournal{Path: filepath.Join(t.TempDir(), "eeprom.cursor")}
	open := func() *Log {
		bus := hw.NewSimEEPROM(DefaultEEPROMAddress, Capacity)
		l, err := Open(NewEEPROMStore(bus, DefaultEEPROMAddress, Capacity), journal)
		require.NoError(t, err)
		return l
	}

	l := open()
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Append(overheat))
	require.NoError(t, l.Close())

	// The simulated part starts erased on every run.
	l = open()
	require.Zero(t, l.WriteCursor())
	require.NoError(t, l.Append(tooClose))
	codes, err := l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{tooClose}, codes)
}

func TestJournalSaveFailureKeepsAppend(t *testing.T) {
	j := &memJournal{err: errors.New("disk full")}
	l, err := Open(NewMemoryStore(4), j)
	require.NoError(t, err)
	require.NoError(t, l.Append(tooClose))
	require.Equal(t, 1, l.WriteCursor())
	require.Equal(t, 1, j.saves)
}

func TestClose(t *testing.T) {
	l := openLog(t, NewMemoryStore(4))
	require.NoError(t, l.Close())
	require.ErrorIs(t, l.Append(tooClose), ErrClosed)
	_, err := l.Entries()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, l.Close(), ErrClosed)
}

func TestFileStoreAndJournal(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "faults.img")
	journal := FileJournal{Path: filepath.Join(dir, "faults.cursor")}

	store, err := OpenFileStore(img, 32)
	require.NoError(t, err)
	b, err := store.ReadSlot(5)
	require.NoError(t, err)
	require.Equal(t, byte(casement.SlotErased), b)

	l, err := Open(store, journal)
	require.NoError(t, err)
	require.NoError(t, l.Append(overheat))
	require.NoError(t, l.Append(tooClose))
	require.NoError(t, l.Close())

	store, err = OpenFileStore(img, 32)
	require.NoError(t, err)
	l, err = Open(store, journal)
	require.NoError(t, err)
	defer l.Close()
	require.Equal(t, 2, l.WriteCursor())
	codes, err := l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{overheat, tooClose}, codes)

	_, err = store.ReadSlot(32)
	require.ErrorIs(t, err, ErrAddress)
}

func TestFileJournalMissing(t *testing.T) {
	j := FileJournal{Path: filepath.Join(t.TempDir(), "none")}
	_, ok, err := j.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEEPROMStore(t *testing.T) {
	bus := hw.NewSimEEPROM(DefaultEEPROMAddress, Capacity)
	store := NewEEPROMStore(bus, DefaultEEPROMAddress, Capacity)
	l := openLog(t, store)

	require.NoError(t, l.Append(tooClose))
	require.Equal(t, byte(tooClose), bus.Peek(0))
	require.Equal(t, byte(casement.SlotErased), bus.Peek(1))

	bus.FailTx = errors.New("no ack")
	var se *StoreError
	require.ErrorAs(t, l.Append(overheat), &se)
	require.Equal(t, 1, l.WriteCursor())

	bus.FailTx = nil
	codes, err := l.Entries()
	require.NoError(t, err)
	require.Equal(t, []casement.FaultCode{tooClose}, codes)
}
