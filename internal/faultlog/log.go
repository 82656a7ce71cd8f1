// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package faultlog is the bounded, append-only record of fault codes kept
// in persistent storage by the control node.
//
// Entries are written at increasing addresses from 0. Once the log is full
// further appends fail with ErrFull until the next complete read-out, which
// logically clears it by moving the write cursor back to 0. Slots are never
// erased; a read-out stops at the first empty slot or at the write cursor,
// whichever comes first.
package faultlog

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/golang/glog"

	"github.com/Thermoquad/casement/pkg/casement"
)

// Capacity is the number of slots in the control node's EEPROM region.
const Capacity = 2048

var (
	// ErrFull is returned by Append when every slot has been written since
	// the last read-out.
	ErrFull = errors.New("faultlog: full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("faultlog: closed")
	// ErrInvalidCode is returned for codes that collide with the empty
	// slot values.
	ErrInvalidCode = errors.New("faultlog: invalid fault code")
)

// StoreError reports a failed slot access. The cursor it refers to has not
// moved.
type StoreError struct {
	Op   string
	Addr int
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("faultlog: %s slot 0x%04X: %v", e.Op, e.Addr, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Log is a fault log over a Store. It is not safe for concurrent use; the
// control loop owns it.
type Log struct {
	store    Store
	journal  Journal
	capacity int
	w        int
	r        int
	readErr  error
	closed   bool
}

// Open creates a log over store and restores the write cursor from
// journal. A nil journal keeps the cursor in memory only.
func Open(store Store, journal Journal) (*Log, error) {
	if store == nil {
		return nil, errors.New("faultlog: nil store")
	}
	if journal == nil {
		journal = NopJournal{}
	}
	l := &Log{
		store:    store,
		journal:  journal,
		capacity: min(store.Size(), Capacity),
	}
	if l.capacity <= 0 {
		return nil, fmt.Errorf("faultlog: store has %d slots", store.Size())
	}

	cursor, ok, err := journal.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		if cursor < 0 || cursor > l.capacity {
			glog.Warningf("faultlog: journal cursor %d outside 0..%d, starting at 0", cursor, l.capacity)
			cursor = 0
		}
		l.w = cursor
	}
	if w := l.written(); w != l.w {
		glog.Warningf("faultlog: journal cursor %d but slot %d is empty or unreadable, resuming at %d", l.w, w, w)
		l.w = w
		l.saveCursor()
	}
	return l, nil
}

// written checks the restored cursor against the store. Every slot below
// the cursor must hold an entry; a store that lost its contents, or a
// journal that belongs to another image, would otherwise leave a gap that
// ends every read-out early. It returns the first empty or unreadable
// slot below the cursor, or the cursor itself.
func (l *Log) written() int {
	for addr := 0; addr < l.w; addr++ {
		b, err := l.store.ReadSlot(uint16(addr))
		if err != nil || casement.IsEmptySlot(b) {
			return addr
		}
	}
	return l.w
}

// Capacity returns the number of slots.
func (l *Log) Capacity() int { return l.capacity }

// WriteCursor returns the address the next append will write.
func (l *Log) WriteCursor() int { return l.w }

// ReadCursor returns the address of the next slot a read-out will visit.
func (l *Log) ReadCursor() int { return l.r }

// Full reports whether appends will fail until the next read-out.
func (l *Log) Full() bool { return l.w >= l.capacity }

// Append writes code at the write cursor and advances it. On a store
// failure it returns a *StoreError and the cursor stays put, so the same
// append can be retried.
func (l *Log) Append(code casement.FaultCode) error {
	if l.closed {
		return ErrClosed
	}
	if !code.Valid() {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidCode, byte(code))
	}
	if l.w >= l.capacity {
		return ErrFull
	}
	if err := l.store.WriteSlot(uint16(l.w), byte(code)); err != nil {
		return &StoreError{Op: "write", Addr: l.w, Err: err}
	}
	l.w++
	l.saveCursor()
	return nil
}

// ReadAll returns the entries from address 0 upward. Iteration resets the
// read cursor and stops at the write cursor, at the first empty slot, or at
// the first store error (reported by Err). If the log was full when the
// sequence runs to its end, the log is cleared.
func (l *Log) ReadAll() iter.Seq[casement.FaultCode] {
	return func(yield func(casement.FaultCode) bool) {
		l.r = 0
		l.readErr = nil
		if l.closed {
			l.readErr = ErrClosed
			return
		}
		for l.r < l.w {
			b, err := l.store.ReadSlot(uint16(l.r))
			if err != nil {
				l.readErr = &StoreError{Op: "read", Addr: l.r, Err: err}
				break
			}
			if casement.IsEmptySlot(b) {
				break
			}
			if !yield(casement.FaultCode(b)) {
				return
			}
			l.r++
		}
		if l.w >= l.capacity {
			l.w = 0
			l.saveCursor()
		}
	}
}

// Entries collects a full read-out.
func (l *Log) Entries() ([]casement.FaultCode, error) {
	codes := slices.Collect(l.ReadAll())
	return codes, l.readErr
}

// Err returns the store error that ended the last read-out, if any.
func (l *Log) Err() error { return l.readErr }

// Close closes the store if it holds resources.
func (l *Log) Close() error {
	if l.closed {
		return ErrClosed
	}
	l.closed = true
	if c, ok := l.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *Log) saveCursor() {
	if err := l.journal.Save(l.w); err != nil {
		glog.Warningf("faultlog: save cursor %d: %v", l.w, err)
	}
}
