// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package control

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"

	"github.com/Thermoquad/casement/internal/config"
	"github.com/Thermoquad/casement/internal/faultlog"
	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/internal/monitor"
	"github.com/Thermoquad/casement/internal/window"
	"github.com/Thermoquad/casement/pkg/casement"
)

// Hardware is the set of peripherals a node is built on.
type Hardware struct {
	Bank        *hw.Bank
	Thermometer hw.Thermometer
	Rangefinder hw.Rangefinder
	PWM         hw.PWM
	EEPROM      drivers.I2C
}

// SimHardware is a host-side board with settable sensors.
type SimHardware struct {
	Bank        *hw.Bank
	Registers   *hw.SimRegisters
	Thermometer *hw.SimThermometer
	Rangefinder *hw.SimRangefinder
	PWM         *hw.SimPWM
	EEPROM      *hw.SimEEPROM
}

// NewSimHardware creates a simulated board with the sensors reading the
// configured values.
func NewSimHardware(cfg *config.Config) *SimHardware {
	bank, regs := hw.NewSimBank()
	return &SimHardware{
		Bank:        bank,
		Registers:   regs,
		Thermometer: hw.NewSimThermometer(cfg.Sim.TemperatureC),
		Rangefinder: hw.NewSimRangefinder(cfg.Sim.DistanceCm),
		PWM:         &hw.SimPWM{},
		EEPROM:      hw.NewSimEEPROM(cfg.Store.EEPROMAddress, faultlog.Capacity),
	}
}

// Board returns the simulated peripherals as Hardware.
func (s *SimHardware) Board() Hardware {
	return Hardware{
		Bank:        s.Bank,
		Thermometer: s.Thermometer,
		Rangefinder: s.Rangefinder,
		PWM:         s.PWM,
		EEPROM:      s.EEPROM,
	}
}

// Observer receives everything a node reports.
type Observer interface {
	monitor.Observer
	ReadoutObserver
}

// Node is an assembled control node.
type Node struct {
	Link      *casement.Link
	Log       *faultlog.Log
	Windows   *window.Controller
	Session   *monitor.Session
	Responder *Responder
	Loop      *Loop
}

// NewNode assembles a node talking over rw. obs may be nil.
func NewNode(cfg *config.Config, rw io.ReadWriter, board Hardware, obs Observer) (*Node, error) {
	log, err := openLog(cfg.Store, board.EEPROM)
	if err != nil {
		return nil, err
	}

	link := casement.NewLink(rw)
	link.Timeout = cfg.Link.AckTimeout()
	link.Stats = casement.NewStatistics()

	var windows []*window.Window
	for _, wc := range cfg.Windows {
		open := board.Bank.Pin(wc.Open.Port, wc.Open.Pin)
		closeBtn := board.Bank.Pin(wc.Close.Port, wc.Close.Pin)
		open.SetDirection(hw.DirInput)
		closeBtn.SetDirection(hw.DirInput)
		motor := &hw.HBridge{
			In1: board.Bank.Pin(wc.Motor.Port, wc.Motor.In1),
			In2: board.Bank.Pin(wc.Motor.Port, wc.Motor.In2),
			En:  board.Bank.Pin(wc.Motor.Port, wc.Motor.En),
			PWM: board.PWM,
		}
		windows = append(windows, &window.Window{
			Name:  wc.Name,
			Open:  open,
			Close: closeBtn,
			Gate:  window.NewGate(motor),
		})
	}
	clock := window.SystemClock{}
	ctl := window.NewController(clock, cfg.Timing.Actuation(), windows...)

	var monObs monitor.Observer
	if obs != nil {
		monObs = obs
	}
	session := monitor.New(monitor.Config{
		Log:         log,
		Thermometer: board.Thermometer,
		Rangefinder: board.Rangefinder,
		Windows:     ctl,
		Clock:       clock,
		Thresholds: monitor.Thresholds{
			Distance:    cfg.Thresholds.DistanceCm,
			Temperature: cfg.Thresholds.TemperatureC,
		},
		Settle:   cfg.Timing.Settle(),
		Observer: monObs,
	})

	responder := NewResponder(link, session, log, clock)
	responder.Gap = cfg.Timing.ReadoutGap()
	if obs != nil {
		responder.Observer = obs
	}

	return &Node{
		Link:      link,
		Log:       log,
		Windows:   ctl,
		Session:   session,
		Responder: responder,
		Loop: &Loop{
			Windows:        ctl,
			Responder:      responder,
			Session:        session,
			Clock:          clock,
			MonitoringIdle: cfg.Timing.MonitoringIdle(),
			Idle:           cfg.Timing.Idle(),
		},
	}, nil
}

// Close stops the link and releases the fault store.
func (n *Node) Close() error {
	return errors.Join(n.Link.Close(), n.Log.Close())
}

func openLog(sc config.StoreConfig, bus drivers.I2C) (*faultlog.Log, error) {
	var (
		store   faultlog.Store
		journal faultlog.Journal
	)
	if sc.Backend == config.BackendFile && sc.Journal != "" {
		journal = faultlog.FileJournal{Path: sc.Journal}
	}
	switch sc.Backend {
	case config.BackendMemory, "":
		store = faultlog.NewMemoryStore(sc.Slots)
	case config.BackendFile:
		fs, err := faultlog.OpenFileStore(sc.Path, sc.Slots)
		if err != nil {
			return nil, err
		}
		store = fs
	case config.BackendEEPROM:
		if bus == nil {
			return nil, errors.New("eeprom store: no I2C bus")
		}
		store = faultlog.NewEEPROMStore(bus, sc.EEPROMAddress, sc.Slots)
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
	log, err := faultlog.Open(store, journal)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return log, nil
}
