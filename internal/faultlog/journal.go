// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package faultlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Journal persists the write cursor next to the slots it indexes.
type Journal interface {
	// Load returns the saved cursor. ok is false when nothing was saved.
	Load() (cursor int, ok bool, err error)
	Save(cursor int) error
}

// NopJournal remembers nothing.
type NopJournal struct{}

// Load implements Journal.
func (NopJournal) Load() (int, bool, error) { return 0, false, nil }

// Save implements Journal.
func (NopJournal) Save(int) error { return nil }

const journalVersion = 1

// cursorRecord is the journal file body: a CBOR map with integer keys.
type cursorRecord struct {
	Version uint8  `cbor:"1,keyasint"`
	Write   uint16 `cbor:"2,keyasint"`
}

// FileJournal stores the cursor as a small CBOR file, replaced atomically
// on every save.
type FileJournal struct {
	Path string
}

// Load implements Journal.
func (j FileJournal) Load() (int, bool, error) {
	data, err := os.ReadFile(j.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read journal: %w", err)
	}
	var rec cursorRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("decode journal: %w", err)
	}
	if rec.Version != journalVersion {
		return 0, false, fmt.Errorf("journal version %d, want %d", rec.Version, journalVersion)
	}
	return int(rec.Write), true, nil
}

// Save implements Journal.
func (j FileJournal) Save(cursor int) error {
	data, err := cbor.Marshal(cursorRecord{Version: journalVersion, Write: uint16(cursor)})
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.Path), filepath.Base(j.Path)+".*")
	if err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return os.Rename(tmp.Name(), j.Path)
}
