// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/pkg/casement"
)

var pingTimeout int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the link by waiting for an acknowledgment",
	Long: `Send one keypad byte the control node does not act on and wait for
its acknowledgment.

The control node acknowledges every byte, recognised or not, so a reply
proves the node is running and polling the link without changing its
state.

Exit codes:
  0 - Acknowledgment received before timeout
  1 - Timeout reached without an acknowledgment
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 10, "Timeout in seconds to wait for the acknowledgment")
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, connInfo, closeLink, err := openLink(cfg, casement.NewStatistics())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	link.Timeout = time.Duration(pingTimeout) * time.Second

	fmt.Printf("Casement - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", pingTimeout)
	fmt.Printf("Sending %s...\n\n", casement.FormatKey(casement.KeyHash))

	start := time.Now()
	err = link.SendAcked(casement.KeyHash)
	elapsed := time.Since(start)
	closeLink()

	switch {
	case err == nil:
		fmt.Printf("ACK received in %s\n", elapsed.Round(time.Millisecond))
		return nil
	case errors.Is(err, casement.ErrProtocolTimeout):
		fmt.Printf("No acknowledgment after %d seconds\n", pingTimeout)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	return nil
}
