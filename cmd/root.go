// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/internal/config"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Node configuration
	configPath string
	ackTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "casement",
	Short: "Window control node and operator console",
	Long: `Casement - control node and HMI console for two motorised windows.

The control node watches a temperature sensor and a rangefinder, drives the
window motors from their push buttons and keeps a persistent fault log. The
HMI console talks to it over a single-byte acknowledged serial link.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the CASEMENT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Acknowledgment waits never time out unless --ack-timeout is given.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// glog reads its flags from the standard set.
		flag.CommandLine.Parse(nil)
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Node configuration
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Node configuration file (YAML)")
	rootCmd.PersistentFlags().DurationVar(&ackTimeout, "ack-timeout", 0, "Give up waiting for an acknowledgment after this long (0 waits forever)")

	// glog: -v, -logtostderr, -log_dir, ...
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// loadConfig reads --config (or the defaults) and applies connection flags
// given on the command line over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	} else {
		config.Normalize(cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("port") || portName != "" {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("ack-timeout") {
		ms, err := ackTimeoutMs(ackTimeout)
		if err != nil {
			return nil, err
		}
		cfg.Link.AckTimeoutMs = ms
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	glog.V(1).Infof("config: %+v", *cfg)
	return cfg, nil
}

// ackTimeoutMs converts --ack-timeout to whole milliseconds, rounding up so
// that a short timeout never becomes 0, which would wait forever.
func ackTimeoutMs(d time.Duration) (int, error) {
	if d < 0 {
		return 0, fmt.Errorf("--ack-timeout must not be negative, got %v", d)
	}
	return int((d + time.Millisecond - 1) / time.Millisecond), nil
}

// wsOptions collects the WebSocket connection flags.
func wsOptions() WebSocketOptions {
	return WebSocketOptions{
		URL:        wsURL,
		Username:   wsUsername,
		SkipVerify: wsNoSSLVerify,
	}
}

// Execute runs the root command
func Execute() error {
	defer glog.Flush()
	return rootCmd.Execute()
}
