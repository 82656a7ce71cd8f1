// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config holds the control node configuration file.
package config

import (
	"time"
)

// Config is the control node configuration. Parse and Load fill unset
// keys from Default.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Link       LinkConfig       `yaml:"link"`
	Store      StoreConfig      `yaml:"store"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Timing     TimingConfig     `yaml:"timing"`
	Windows    []WindowConfig   `yaml:"windows"`
	Sim        SimConfig        `yaml:"sim"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

// ---- LINK ----

// SerialConfig selects the serial port the node talks to the console on.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// LinkConfig tunes the acknowledged byte link.
type LinkConfig struct {
	// 0 waits for acknowledgments forever.
	AckTimeoutMs int `yaml:"ack_timeout_ms"`
}

// AckTimeout returns the acknowledgment timeout. Zero waits forever.
func (l LinkConfig) AckTimeout() time.Duration { return ms(l.AckTimeoutMs) }

// ---- FAULT STORE ----

// Fault store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendEEPROM = "eeprom"
)

// StoreConfig selects where the fault log keeps its slots.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`    // image file (file backend)
	Journal       string `yaml:"journal"` // cursor journal (file backend only)
	EEPROMAddress uint16 `yaml:"eeprom_address"`
	Slots         int    `yaml:"slots"`
}

// ---- MONITORING ----

// ThresholdsConfig holds the fault limits.
type ThresholdsConfig struct {
	DistanceCm   uint16 `yaml:"distance_cm"`
	TemperatureC uint8  `yaml:"temperature_c"`
}

// TimingConfig holds the control loop delays in milliseconds.
type TimingConfig struct {
	ActuationMs      int `yaml:"actuation_ms"`
	MonitoringIdleMs int `yaml:"monitoring_idle_ms"`
	IdleMs           int `yaml:"idle_ms"`
	SettleMs         int `yaml:"settle_ms"`
	ReadoutGapMs     int `yaml:"readout_gap_ms"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Durations of the TimingConfig fields.
func (t TimingConfig) Actuation() time.Duration      { return ms(t.ActuationMs) }
func (t TimingConfig) MonitoringIdle() time.Duration { return ms(t.MonitoringIdleMs) }
func (t TimingConfig) Idle() time.Duration           { return ms(t.IdleMs) }
func (t TimingConfig) Settle() time.Duration         { return ms(t.SettleMs) }
func (t TimingConfig) ReadoutGap() time.Duration     { return ms(t.ReadoutGapMs) }

// ---- WINDOWS ----

// PinConfig addresses one GPIO pin.
type PinConfig struct {
	Port int `yaml:"port"`
	Pin  int `yaml:"pin"`
}

// MotorConfig addresses an H-bridge: two direction pins and a PWM
// enable pin on one port.
type MotorConfig struct {
	Port int `yaml:"port"`
	In1  int `yaml:"in1"`
	In2  int `yaml:"in2"`
	En   int `yaml:"en"`
}

// WindowConfig wires one window: its open and close buttons and its motor.
type WindowConfig struct {
	Name  string      `yaml:"name"`
	Open  PinConfig   `yaml:"open"`
	Close PinConfig   `yaml:"close"`
	Motor MotorConfig `yaml:"motor"`
}

// ---- SIMULATION ----

// SimConfig sets the simulated sensors' starting readings.
type SimConfig struct {
	TemperatureC uint8  `yaml:"temperature_c"`
	DistanceCm   uint16 `yaml:"distance_cm"`
}

// ---- TELEMETRY ----

// MQTTConfig configures optional telemetry publishing.
type MQTTConfig struct {
	URL         string `yaml:"url"` // empty disables telemetry
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"` // empty derives one from the machine id
}
