// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/pkg/casement"
)

var readingsCmd = &cobra.Command{
	Use:   "readings",
	Short: "Request one sensor snapshot",
	Long: `Send DISPLAY_VALUES and print the snapshot the control node returns:
temperature, distance and the state of both windows.

Supports both serial and WebSocket connections.`,
	RunE: runReadings,
}

func init() {
	rootCmd.AddCommand(readingsCmd)
}

func runReadings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, connInfo, closeLink, err := openLink(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLink()

	snap, err := casement.NewRequester(link).RequestSnapshot()
	if err != nil {
		return fmt.Errorf("request snapshot: %w", err)
	}

	fmt.Printf("Snapshot from %s\n", connInfo)
	fmt.Print(casement.FormatSnapshot(snap))
	return nil
}
