// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/internal/config"
	"github.com/Thermoquad/casement/internal/control"
	"github.com/Thermoquad/casement/internal/telemetry"
	"github.com/Thermoquad/casement/pkg/casement"
)

var (
	controlSimTemp     uint8
	controlSimDistance uint16
	controlStore       string
	controlStorePath   string
	controlMQTT        string
	controlTUI         bool
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Run the window control node",
	Long: `Run the control node on a simulated board.

The node answers command bytes from the HMI console over the connection,
drives both windows from their push buttons and records faults while a
monitoring session is active. Sensor values come from the simulated
board and can be set with --sim-temp and --sim-distance, or changed live
from the --tui panel.

Faults are kept in the configured store (memory, file or eeprom). When an
MQTT broker is configured (--mqtt or mqtt.url), sessions, snapshots,
faults and read-outs are published as CBOR.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	controlCmd.Flags().Uint8Var(&controlSimTemp, "sim-temp", 0, "Simulated temperature in °C (overrides config)")
	controlCmd.Flags().Uint16Var(&controlSimDistance, "sim-distance", 0, "Simulated distance in cm (overrides config)")
	controlCmd.Flags().StringVar(&controlStore, "store", "", "Fault store backend: memory, file or eeprom (overrides config)")
	controlCmd.Flags().StringVar(&controlStorePath, "store-path", "", "Fault store file for the file backend (overrides config)")
	controlCmd.Flags().StringVar(&controlMQTT, "mqtt", "", "MQTT broker URL for telemetry (overrides config)")
	controlCmd.Flags().BoolVar(&controlTUI, "tui", false, "Show the simulated board panel")
	rootCmd.AddCommand(controlCmd)
}

// fanout forwards node events to several observers.
type fanout []control.Observer

func (f fanout) Session(id string, active bool) {
	for _, o := range f {
		o.Session(id, active)
	}
}

func (f fanout) Snapshot(s casement.SensorSnapshot) {
	for _, o := range f {
		o.Snapshot(s)
	}
}

func (f fanout) Fault(code casement.FaultCode) {
	for _, o := range f {
		o.Fault(code)
	}
}

func (f fanout) Readout(codes []casement.FaultCode) {
	for _, o := range f {
		o.Readout(codes)
	}
}

func applyControlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("sim-temp") {
		cfg.Sim.TemperatureC = controlSimTemp
	}
	if flags.Changed("sim-distance") {
		cfg.Sim.DistanceCm = controlSimDistance
	}
	if flags.Changed("store") {
		cfg.Store.Backend = controlStore
		cfg.Store.Journal = ""
	}
	if flags.Changed("store-path") {
		cfg.Store.Path = controlStorePath
		cfg.Store.Journal = ""
	}
	if flags.Changed("mqtt") {
		cfg.MQTT.URL = controlMQTT
	}
	config.Normalize(cfg)
	return config.Validate(cfg)
}

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyControlFlags(cmd, cfg); err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Serial, wsOptions())
	if err != nil {
		return err
	}
	defer conn.Close()

	var observers fanout
	if cfg.MQTT.URL != "" {
		pub, disconnect, err := telemetry.Dial(cfg.MQTT.URL, cfg.MQTT.TopicPrefix, cfg.MQTT.ClientID)
		if err != nil {
			return err
		}
		defer disconnect()
		observers = append(observers, pub)
	}

	var sink *panelSink
	if controlTUI {
		sink = &panelSink{}
		observers = append(observers, sink)
	}

	board := control.NewSimHardware(cfg)
	var obs control.Observer
	if len(observers) > 0 {
		obs = observers
	}
	node, err := control.NewNode(cfg, conn, board.Board(), obs)
	if err != nil {
		return err
	}
	defer node.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sink != nil {
		return runControlPanel(ctx, sink, node, board, cfg, connInfo)
	}

	glog.Infof("control node on %s, store %s, %d faults pending", connInfo, cfg.Store.Backend, node.Log.WriteCursor()-node.Log.ReadCursor())
	fmt.Printf("Casement control node\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Fault store: %s\n", cfg.Store.Backend)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	err = node.Loop.Run(ctx)
	fmt.Print("\n" + node.Link.Stats.String())
	return err
}
