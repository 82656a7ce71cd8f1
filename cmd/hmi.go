// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/internal/hmi"
	"github.com/Thermoquad/casement/internal/window"
	"github.com/Thermoquad/casement/pkg/casement"
)

var hmiCmd = &cobra.Command{
	Use:   "hmi",
	Short: "Interactive operator console",
	Long: `Run the operator console against a control node.

The console shows the four-row display and the menu of the keypad
terminal. Number keys send the matching keypad byte:

  1  start monitoring
  2  show readings
  3  view faults
  4  stop monitoring
  *  back to the menu

Every key is sent to the control node and waits for its acknowledgment
before the console reacts, exactly like the keypad terminal.

Supports both serial and WebSocket connections.`,
	RunE: runHMI,
}

func init() {
	rootCmd.AddCommand(hmiCmd)
}

// tuiLink reports every exchange with the control node to the TUI
type tuiLink struct {
	req  *casement.Requester
	send func(tea.Msg)
}

func (l tuiLink) SendKey(b byte) error {
	err := l.req.SendKey(b)
	if err != nil {
		l.send(linkEventMsg{message: fmt.Sprintf("%s not acknowledged: %v", casement.FormatKey(b), err), isError: true})
		return err
	}
	l.send(linkEventMsg{message: fmt.Sprintf("Sent %s (0x%02X), ACK", casement.FormatKey(b), b)})
	return nil
}

func (l tuiLink) ReadSnapshot() (casement.SensorSnapshot, error) {
	snap, err := l.req.ReadSnapshot()
	if err != nil {
		l.send(linkEventMsg{message: "Snapshot failed: " + err.Error(), isError: true})
		return snap, err
	}
	l.send(linkEventMsg{message: fmt.Sprintf("Snapshot: %dC %dcm %s/%s", snap.Temperature, snap.Distance, snap.Window1, snap.Window2)})
	return snap, nil
}

func (l tuiLink) ReadFaults(fn func(code casement.FaultCode)) error {
	n := 0
	err := l.req.ReadFaults(func(code casement.FaultCode) {
		n++
		l.send(linkEventMsg{message: "Fault: " + code.String(), isError: true})
		fn(code)
	})
	if err != nil {
		l.send(linkEventMsg{message: "Fault read-out failed: " + err.Error(), isError: true})
		return err
	}
	l.send(linkEventMsg{message: fmt.Sprintf("End of faults, %d received", n)})
	return nil
}

func runHMI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stats := casement.NewStatistics()
	link, connInfo, closeLink, err := openLink(cfg, stats)
	if err != nil {
		return err
	}
	defer closeLink()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screen := hmi.NewScreen()
	keypad := make(hmi.ChanKeypad, 1)
	// The console runs the tick source itself for each hold.
	ticks := hmi.NewTickSource(hmi.DefaultTickInterval)

	m := initialHMIModel(keypad, stats, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())

	console := hmi.NewConsole(
		tuiLink{req: casement.NewRequester(link), send: p.Send},
		screen, keypad, ticks, window.SystemClock{}, hmi.DefaultTimings())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-screen.Changed():
				p.Send(screenMsg(screen.Lines()))
			}
		}
	}()

	consoleErr := make(chan error, 1)
	go func() {
		err := console.Run(ctx)
		consoleErr <- err
		p.Send(consoleDoneMsg{err: err})
	}()

	_, err = p.Run()
	cancel()
	// A console blocked on an acknowledgment only returns once the link
	// closes.
	link.Close()
	runErr := <-consoleErr
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, casement.ErrLinkClosed) {
		glog.Warningf("console stopped: %v", runErr)
		return runErr
	}
	return nil
}
