// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/pkg/casement"
)

var rawLogFrom string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw link bytes in human-readable format",
	Long: `Continuously display link bytes as they arrive.

Each byte is printed with a timestamp, its value and a best-effort label.
The link carries no framing, so the label depends on which node sent the
byte: use --from hmi when tapping the console's transmit line and
--from control (the default) when tapping the control node's.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rawLogCmd.Flags().StringVar(&rawLogFrom, "from", "control", "Sender of the tapped bytes: hmi or control")
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	var dir casement.Direction
	switch rawLogFrom {
	case "hmi":
		dir = casement.FromHMI
	case "control":
		dir = casement.FromControl
	default:
		return fmt.Errorf("--from must be hmi or control, got %q", rawLogFrom)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg.Serial, wsOptions())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Casement - Raw Link Log\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, dir)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	buf := make([]byte, 128)
	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			fmt.Printf("[%s] %s 0x%02X %s\n",
				time.Now().Format("15:04:05.000"), dir, buf[i], casement.FormatByte(dir, buf[i]))
		}
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, casement.ErrLinkClosed) {
				glog.Info("connection closed")
				return nil
			}
			glog.Warningf("read error: %v", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}
