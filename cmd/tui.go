// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/casement/pkg/casement"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for information
}

// eventLog keeps the most recent entries shown in a TUI
type eventLog struct {
	entries    []logEntry
	maxEntries int
}

func newEventLog() eventLog {
	return eventLog{maxEntries: 100}
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
}

// Shared TUI styles
type tuiStyles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	err        lipgloss.Style
	warning    lipgloss.Style
	box        lipgloss.Style
	focusedBox lipgloss.Style
}

func newTUIStyles() tuiStyles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	return tuiStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		value:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		err:        lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		box:        box,
		focusedBox: box.BorderForeground(lipgloss.Color("12")),
	}
}

func (st tuiStyles) renderEventLog(l eventLog, width, height int) string {
	var s strings.Builder
	s.WriteString(st.label.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := height
	if len(l.entries) < logHeight {
		logHeight = len(l.entries)
	}
	startIdx := len(l.entries) - logHeight

	if len(l.entries) == 0 {
		s.WriteString(st.header.Render("  (no events yet)"))
	} else {
		for _, entry := range l.entries[startIdx:] {
			icon := "i"
			style := st.warning
			if entry.isError {
				icon = "x"
				style = st.err
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				st.header.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return st.box.Width(width).Render(s.String())
}

func (st tuiStyles) renderStatisticsBar(stats *casement.Statistics, width int) string {
	c := stats.Counters()
	timeouts := st.value.Render("0")
	if c.Timeouts > 0 {
		timeouts = st.err.Render(fmt.Sprintf("%d", c.Timeouts))
	}
	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		st.label.Render("Sent:"), st.value.Render(fmt.Sprintf("%d", c.BytesSent)),
		st.label.Render("Received:"), st.value.Render(fmt.Sprintf("%d", c.BytesReceived)),
		st.label.Render("Acks:"), st.value.Render(fmt.Sprintf("%d/%d", c.AcksSent, c.AcksReceived)),
		st.label.Render("Timeouts:"), timeouts,
	)
	return st.box.Width(width).Render(content)
}
