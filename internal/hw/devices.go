// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hw

// Input is anything a button level can be read from. Pin satisfies it.
type Input interface {
	Read() Level
}

// Thermometer returns the current temperature in whole degrees Celsius.
type Thermometer interface {
	Temperature() uint8
}

// Rangefinder measures distance in centimetres. Init is called every time
// monitoring starts.
type Rangefinder interface {
	Init()
	Distance() uint16
}

// MotorState is the commanded H-bridge state.
type MotorState uint8

// Motor states
const (
	MotorStop MotorState = iota
	MotorCW
	MotorCCW
)

// String returns the state name.
func (s MotorState) String() string {
	switch s {
	case MotorCW:
		return "CW"
	case MotorCCW:
		return "CCW"
	default:
		return "STOP"
	}
}

// Motor drives one DC motor.
type Motor interface {
	Init()
	Rotate(state MotorState, speed uint8)
}

// PWM sets a duty cycle from 0 to 255.
type PWM interface {
	SetDuty(duty uint8)
}

// HBridge drives a motor through two direction pins and a shared enable
// PWM.
type HBridge struct {
	In1 Pin
	In2 Pin
	En  Pin
	PWM PWM
}

const maxSpeed = 100

// Init configures the pins, stops the motor and sets 0% duty.
func (h *HBridge) Init() {
	h.In1.SetDirection(DirOutput)
	h.In2.SetDirection(DirOutput)
	h.En.SetDirection(DirOutput)
	h.In1.Write(Low)
	h.In2.Write(Low)
	if h.PWM != nil {
		h.PWM.SetDuty(0)
	}
}

// Rotate sets direction and speed (percent, clamped to 100).
func (h *HBridge) Rotate(state MotorState, speed uint8) {
	if speed > maxSpeed {
		speed = maxSpeed
	}
	switch state {
	case MotorStop:
		h.In1.Write(Low)
		h.In2.Write(Low)
	case MotorCW:
		h.In1.Write(Low)
		h.In2.Write(High)
	case MotorCCW:
		h.In1.Write(High)
		h.In2.Write(Low)
	}
	if h.PWM != nil {
		h.PWM.SetDuty(uint8(uint16(speed) * 255 / maxSpeed))
	}
}
