// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package faultlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// Store is a persistent array of one-byte slots. Unwritten slots read as
// 0xFF on erased media.
type Store interface {
	ReadSlot(addr uint16) (byte, error)
	WriteSlot(addr uint16, b byte) error
	Size() int
}

// MemoryStore keeps slots in RAM. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.Mutex
	slots []byte
}

// NewMemoryStore creates an erased store of size slots.
func NewMemoryStore(size int) *MemoryStore {
	slots := make([]byte, size)
	for i := range slots {
		slots[i] = 0xFF
	}
	return &MemoryStore{slots: slots}
}

// ReadSlot implements Store.
func (m *MemoryStore) ReadSlot(addr uint16) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(addr) >= len(m.slots) {
		return 0, errAddress(addr)
	}
	return m.slots[addr], nil
}

// WriteSlot implements Store.
func (m *MemoryStore) WriteSlot(addr uint16, b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(addr) >= len(m.slots) {
		return errAddress(addr)
	}
	m.slots[addr] = b
	return nil
}

// Size implements Store.
func (m *MemoryStore) Size() int { return len(m.slots) }

// Bytes returns a copy of the slots.
func (m *MemoryStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.slots...)
}

// ErrAddress is returned for slot addresses outside the store.
var ErrAddress = errors.New("faultlog: address out of range")

func errAddress(addr uint16) error {
	return fmt.Errorf("%w: 0x%04X", ErrAddress, addr)
}

// FileStore keeps slots in an image file, one byte per slot. Each write is
// synced before it is reported as done.
type FileStore struct {
	f    *os.File
	size int
}

// OpenFileStore opens or creates the image at path. A new or short image
// is padded with erased slots.
func OpenFileStore(path string, size int) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat store: %w", err)
	}
	if have := int(info.Size()); have < size {
		pad := make([]byte, size-have)
		for i := range pad {
			pad[i] = 0xFF
		}
		if _, err := f.WriteAt(pad, int64(have)); err != nil {
			f.Close()
			return nil, fmt.Errorf("erase store: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync store: %w", err)
		}
	}
	return &FileStore{f: f, size: size}, nil
}

// ReadSlot implements Store.
func (s *FileStore) ReadSlot(addr uint16) (byte, error) {
	if int(addr) >= s.size {
		return 0, errAddress(addr)
	}
	var b [1]byte
	if _, err := s.f.ReadAt(b[:], int64(addr)); err != nil {
		if errors.Is(err, io.EOF) {
			return 0xFF, nil
		}
		return 0, err
	}
	return b[0], nil
}

// WriteSlot implements Store.
func (s *FileStore) WriteSlot(addr uint16, b byte) error {
	if int(addr) >= s.size {
		return errAddress(addr)
	}
	if _, err := s.f.WriteAt([]byte{b}, int64(addr)); err != nil {
		return err
	}
	return s.f.Sync()
}

// Size implements Store.
func (s *FileStore) Size() int { return s.size }

// Close closes the image file.
func (s *FileStore) Close() error { return s.f.Close() }

// DefaultEEPROMAddress is the bus address of the fault EEPROM.
const DefaultEEPROMAddress = 0x50

// EEPROMStore keeps slots in a serial EEPROM on an I2C bus.
type EEPROMStore struct {
	dev  at24cx.Device
	size int
}

// NewEEPROMStore configures the EEPROM at addr on bus.
func NewEEPROMStore(bus drivers.I2C, addr uint16, size int) *EEPROMStore {
	dev := at24cx.New(bus)
	dev.Address = addr
	dev.Configure(at24cx.Config{EndRAMAddress: uint16(size)})
	return &EEPROMStore{dev: dev, size: size}
}

// ReadSlot implements Store.
func (s *EEPROMStore) ReadSlot(addr uint16) (byte, error) {
	if int(addr) >= s.size {
		return 0, errAddress(addr)
	}
	return s.dev.ReadByte(addr)
}

// WriteSlot implements Store.
func (s *EEPROMStore) WriteSlot(addr uint16, b byte) error {
	if int(addr) >= s.size {
		return errAddress(addr)
	}
	return s.dev.WriteByte(addr, b)
}

// Size implements Store.
func (s *EEPROMStore) Size() int { return s.size }
