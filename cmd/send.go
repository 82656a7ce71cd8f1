// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/pkg/casement"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a monitoring session",
	Long: `Send START_MONITORING. The control node re-initialises its sensors and
windows and records at most one fault of each kind until monitoring stops.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, casement.StartMonitoring)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the monitoring session",
	Long:  `Send STOP_MONITORING. Logged faults are kept until they are read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, casement.StopMonitoring)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
}

func sendCommand(cmd *cobra.Command, c casement.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, connInfo, closeLink, err := openLink(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLink()

	if err := casement.NewRequester(link).Send(c); err != nil {
		return fmt.Errorf("send %s: %w", c, err)
	}
	fmt.Printf("%s acknowledged by %s\n", c, connInfo)
	return nil
}
