// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/pkg/casement"
)

// Default returns the configuration of the reference board: a 9600 baud
// link, 2 KiB of EEPROM, window buttons on port D and motors on port B.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{Baud: 9600},
		Store: StoreConfig{
			Backend:       BackendMemory,
			EEPROMAddress: faultlog.DefaultEEPROMAddress,
			Slots:         faultlog.Capacity,
		},
		Thresholds: ThresholdsConfig{
			DistanceCm:   casement.CriticalDistance,
			TemperatureC: casement.CriticalTemperature,
		},
		Timing: TimingConfig{
			ActuationMs:      1000,
			MonitoringIdleMs: 100,
			IdleMs:           50,
			SettleMs:         10,
			ReadoutGapMs:     10,
		},
		Windows: []WindowConfig{
			{
				Name:  "1",
				Open:  PinConfig{Port: hw.PortD, Pin: 2},
				Close: PinConfig{Port: hw.PortD, Pin: 3},
				Motor: MotorConfig{Port: hw.PortB, In1: 0, In2: 1, En: 3},
			},
			{
				Name:  "2",
				Open:  PinConfig{Port: hw.PortD, Pin: 4},
				Close: PinConfig{Port: hw.PortD, Pin: 5},
				Motor: MotorConfig{Port: hw.PortB, In1: 4, In2: 5, En: 3},
			},
		},
		Sim: SimConfig{TemperatureC: 25, DistanceCm: 100},
		MQTT: MQTTConfig{
			TopicPrefix: "casement",
		},
	}
}

// Load reads path over the defaults, then normalizes and validates the
// result. Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected. A
// windows list replaces the default one as a whole.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
