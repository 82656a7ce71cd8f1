// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package monitor implements the monitoring session: while active it
// samples the sensors every tick and records at most one fault of each
// kind until the log is read out.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/anggasct/fluo"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/internal/window"
	"github.com/Thermoquad/casement/pkg/casement"
)

// State is the session state.
type State uint8

// Session states
const (
	Idle State = iota
	Active
)

// Machine state and event names.
const (
	stateIdle   = "idle"
	stateActive = "active"
	eventStart  = "start"
	eventStop   = "stop"
)

// String returns the state name.
func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "IDLE"
}

// DefaultSettle is the pause after each attempted log write.
const DefaultSettle = 10 * time.Millisecond

// Thresholds are the fault limits. A distance below Distance or a
// temperature above Temperature is a fault.
type Thresholds struct {
	Distance    uint16
	Temperature uint8
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Distance:    casement.CriticalDistance,
		Temperature: casement.CriticalTemperature,
	}
}

// Windows is the part of the window controller a session drives.
type Windows interface {
	Init()
	Poll(ctx context.Context) error
	States() (win1, win2 casement.WindowState)
}

// Observer is told about session activity. Calls happen on the control
// loop and must not block for long.
type Observer interface {
	Session(id string, active bool)
	Snapshot(s casement.SensorSnapshot)
	Fault(code casement.FaultCode)
}

// Config collects a session's collaborators.
type Config struct {
	Log         *faultlog.Log
	Thermometer hw.Thermometer
	Rangefinder hw.Rangefinder
	Windows     Windows
	Clock       window.Clock
	Thresholds  Thresholds
	Settle      time.Duration
	Observer    Observer
}

// Session is the monitoring state machine. It holds every piece of state
// the control loop mutates while monitoring and is owned by that loop.
type Session struct {
	cfg     Config
	machine fluo.Machine

	id                string
	distanceLogged    bool
	temperatureLogged bool
	distance          uint16
}

// New creates an idle session.
func New(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = window.SystemClock{}
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	s := &Session{cfg: cfg}
	s.machine = fluo.NewMachine().
		State(stateIdle).Initial().
		To(stateActive).On(eventStart).Do(s.begin).
		State(stateActive).
		OnEntry(s.reinit).
		ToSelf().On(eventStart).Do(s.restart).
		To(stateIdle).On(eventStop).Do(s.end).
		Build().
		CreateInstance()
	if err := s.machine.Start(); err != nil {
		glog.Fatalf("monitor: session machine: %v", err)
	}
	return s
}

// begin opens a new session on the idle to active transition.
func (s *Session) begin(fluo.Context) error {
	s.id = uuid.NewString()
	glog.Infof("monitor: session %s started", s.id)
	if s.cfg.Observer != nil {
		s.cfg.Observer.Session(s.id, true)
	}
	return nil
}

// reinit is the entry action of the active state.
func (s *Session) reinit(fluo.Context) error {
	s.cfg.Rangefinder.Init()
	s.cfg.Windows.Init()
	return nil
}

// restart handles start while active. A self-transition does not re-run
// the entry action.
func (s *Session) restart(ctx fluo.Context) error {
	glog.Infof("monitor: session %s re-initialised", s.id)
	return s.reinit(ctx)
}

func (s *Session) end(fluo.Context) error {
	glog.Infof("monitor: session %s stopped", s.id)
	if s.cfg.Observer != nil {
		s.cfg.Observer.Session(s.id, false)
	}
	return nil
}

// State returns the session state.
func (s *Session) State() State {
	if s.machine.CurrentState() == stateActive {
		return Active
	}
	return Idle
}

// Active reports whether monitoring is running.
func (s *Session) Active() bool { return s.State() == Active }

// ID returns the identifier of the current or last session, or "" if no
// session has started.
func (s *Session) ID() string { return s.id }

// Flags returns the per-kind "already logged" flags.
func (s *Session) Flags() (distance, temperature bool) {
	return s.distanceLogged, s.temperatureLogged
}

// Start (re)initialises the rangefinder and window motors and enters
// Active. Starting an active session only re-initialises.
func (s *Session) Start() {
	s.fire(eventStart)
}

// Stop returns to Idle. The logged flags are left alone. Stopping an idle
// session does nothing.
func (s *Session) Stop() {
	if s.State() == Idle {
		return
	}
	s.fire(eventStop)
}

func (s *Session) fire(event string) {
	res := s.machine.HandleEvent(event, nil)
	if !res.Processed && bool(glog.V(1)) {
		glog.Infof("monitor: %s ignored in %s: %s", event, res.PreviousState, res.RejectionReason)
	}
}

// ClearFlags allows one new entry of each kind. Called after a read-out.
func (s *Session) ClearFlags() {
	s.distanceLogged = false
	s.temperatureLogged = false
}

// Tick samples the sensors and evaluates them. It does nothing when idle.
// The only error is the context's.
func (s *Session) Tick(ctx context.Context) error {
	if !s.Active() {
		return nil
	}
	snap, err := s.Sample(ctx)
	if err != nil {
		return err
	}
	return s.Evaluate(ctx, snap)
}

// Sample services the window buttons, so a press is not missed while
// monitoring, and then reads both sensors. A window move can take a
// second; the readings are taken after it so the evaluated values are
// current.
func (s *Session) Sample(ctx context.Context) (casement.SensorSnapshot, error) {
	if err := s.cfg.Windows.Poll(ctx); err != nil {
		return casement.SensorSnapshot{}, err
	}
	s.distance = s.cfg.Rangefinder.Distance()
	temp := s.cfg.Thermometer.Temperature()
	win1, win2 := s.cfg.Windows.States()
	snap := casement.SensorSnapshot{
		Temperature: temp,
		Distance:    s.distance,
		Window1:     win1,
		Window2:     win2,
	}
	if glog.V(2) {
		glog.Infof("monitor: sample %+v", snap)
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.Snapshot(snap)
	}
	return snap, nil
}

// Evaluate checks the distance and then the temperature limit. The checks
// are independent; each appends at most one entry per session.
func (s *Session) Evaluate(ctx context.Context, snap casement.SensorSnapshot) error {
	if snap.Distance < s.cfg.Thresholds.Distance && !s.distanceLogged {
		logged, err := s.record(ctx, casement.FaultDistanceTooClose)
		s.distanceLogged = logged
		if err != nil {
			return err
		}
	}
	if snap.Temperature > s.cfg.Thresholds.Temperature && !s.temperatureLogged {
		logged, err := s.record(ctx, casement.FaultOverheat)
		s.temperatureLogged = logged
		if err != nil {
			return err
		}
	}
	return nil
}

// record appends code and waits for the store to settle. A failed write
// leaves the flag clear so the next tick retries it. A full log is not
// written to at all and needs no settle time.
func (s *Session) record(ctx context.Context, code casement.FaultCode) (bool, error) {
	err := s.cfg.Log.Append(code)
	switch {
	case err == nil:
		glog.Infof("monitor: logged %s", code)
		if s.cfg.Observer != nil {
			s.cfg.Observer.Fault(code)
		}
	case errors.Is(err, faultlog.ErrFull):
		if glog.V(1) {
			glog.Infof("monitor: log full, %s not recorded", code)
		}
		return false, nil
	default:
		glog.Warningf("monitor: %s not recorded: %v", code, err)
	}
	return err == nil, s.cfg.Clock.Sleep(ctx, s.cfg.Settle)
}

// Snapshot builds the reply to a display request. The temperature is read
// fresh; the distance is the last sampled value, 0 before any sample.
func (s *Session) Snapshot() casement.SensorSnapshot {
	win1, win2 := s.cfg.Windows.States()
	return casement.SensorSnapshot{
		Temperature: s.cfg.Thermometer.Temperature(),
		Distance:    s.distance,
		Window1:     win1,
		Window2:     win2,
	}
}
