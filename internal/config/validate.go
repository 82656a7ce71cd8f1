// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/hw"
)

// Validate checks the configuration. It does not mutate it. All problems
// are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if cfg.Serial.Baud <= 0 {
		add("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Link.AckTimeoutMs < 0 {
		add("link.ack_timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// STORE
	// ------------------------------------------------------------

	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Store.Path == "" {
			add("store.path is required for the file backend")
		}
	case BackendEEPROM:
		if cfg.Store.EEPROMAddress > 0x7F {
			add("store.eeprom_address 0x%X is not a 7-bit address", cfg.Store.EEPROMAddress)
		}
	default:
		add("store.backend %q is not one of memory, file, eeprom", cfg.Store.Backend)
	}
	if cfg.Store.Slots <= 0 || cfg.Store.Slots > faultlog.Capacity {
		add("store.slots must be 1..%d, got %d", faultlog.Capacity, cfg.Store.Slots)
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	t := cfg.Timing
	for _, f := range []struct {
		name string
		v    int
	}{
		{"actuation_ms", t.ActuationMs},
		{"monitoring_idle_ms", t.MonitoringIdleMs},
		{"idle_ms", t.IdleMs},
		{"settle_ms", t.SettleMs},
		{"readout_gap_ms", t.ReadoutGapMs},
	} {
		if f.v < 0 {
			add("timing.%s must not be negative", f.name)
		}
	}
	if t.ActuationMs == 0 {
		add("timing.actuation_ms must be positive")
	}

	// ------------------------------------------------------------
	// WINDOWS
	// ------------------------------------------------------------

	if len(cfg.Windows) == 0 || len(cfg.Windows) > 2 {
		add("windows: need 1 or 2 windows, got %d", len(cfg.Windows))
	}
	used := make(map[PinConfig]string)
	claim := func(w string, role string, p PinConfig) {
		if p.Port < 0 || p.Port >= hw.NumPorts || p.Pin < 0 || p.Pin >= hw.PinsPerPort {
			add("window %s: %s pin %d.%d out of range", w, role, p.Port, p.Pin)
			return
		}
		if prev, ok := used[p]; ok {
			add("window %s: %s pin %d.%d already used by %s", w, role, p.Port, p.Pin, prev)
			return
		}
		used[p] = w + " " + role
	}
	for _, w := range cfg.Windows {
		claim(w.Name, "open", w.Open)
		claim(w.Name, "close", w.Close)
		claim(w.Name, "in1", PinConfig{Port: w.Motor.Port, Pin: w.Motor.In1})
		claim(w.Name, "in2", PinConfig{Port: w.Motor.Port, Pin: w.Motor.In2})
		// Enable pins may be shared between motors.
		en := PinConfig{Port: w.Motor.Port, Pin: w.Motor.En}
		if en.Port < 0 || en.Port >= hw.NumPorts || en.Pin < 0 || en.Pin >= hw.PinsPerPort {
			add("window %s: en pin %d.%d out of range", w.Name, en.Port, en.Pin)
		}
	}

	if cfg.MQTT.URL != "" && cfg.MQTT.TopicPrefix == "" {
		add("mqtt.topic_prefix is required when mqtt.url is set")
	}

	return errors.Join(errs...)
}
