// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/casement/internal/hmi"
	"github.com/Thermoquad/casement/pkg/casement"
)

const hmiLogHeight = 10

type hmiKeyMap struct {
	Command key.Binding
	Digit   key.Binding
	Menu    key.Binding
	Hash    key.Binding
	Quit    key.Binding
}

func (k hmiKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Command, k.Menu, k.Hash, k.Quit}
}

func (k hmiKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Command, k.Digit}, {k.Menu, k.Hash, k.Quit}}
}

var hmiKeys = hmiKeyMap{
	Command: key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "menu entry")),
	Digit:   key.NewBinding(key.WithKeys("0", "5", "6", "7", "8", "9"), key.WithHelp("0,5-9", "other keys")),
	Menu:    key.NewBinding(key.WithKeys("*"), key.WithHelp("*", "menu")),
	Hash:    key.NewBinding(key.WithKeys("#"), key.WithHelp("#", "hash")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// hmiModel is the Bubble Tea model for the operator console
type hmiModel struct {
	keypad   hmi.ChanKeypad
	stats    *casement.Statistics
	connInfo string

	lines  [hmi.Rows]string
	events eventLog
	help   help.Model

	stopped  bool
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type screenMsg [hmi.Rows]string

type linkEventMsg struct {
	message string
	isError bool
}

type consoleDoneMsg struct{ err error }

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

func initialHMIModel(keypad hmi.ChanKeypad, stats *casement.Statistics, connInfo string) hmiModel {
	return hmiModel{
		keypad:   keypad,
		stats:    stats,
		connInfo: connInfo,
		events:   newEventLog(),
		help:     help.New(),
		width:    80,
		height:   24,
	}
}

func (m hmiModel) Init() tea.Cmd {
	return nil
}

// keypadByte maps a terminal key to the byte the keypad sends.
func keypadByte(s string) (byte, bool) {
	if len(s) != 1 {
		return 0, false
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c == '*' || c == '#':
		return c, true
	}
	return 0, false
}

func (m hmiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, hmiKeys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.stopped {
			return m, nil
		}
		if b, ok := keypadByte(msg.String()); ok {
			select {
			case m.keypad <- b:
			default:
				m.events.add(fmt.Sprintf("Console busy, %s dropped", casement.FormatKey(b)), true)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case screenMsg:
		m.lines = msg

	case linkEventMsg:
		m.events.add(msg.message, msg.isError)

	case consoleDoneMsg:
		m.stopped = true
		if msg.err != nil {
			m.events.add("Console stopped: "+msg.err.Error(), true)
		}
	}
	return m, nil
}

func (m hmiModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	st := newTUIStyles()
	var s strings.Builder

	// Header
	s.WriteString(st.title.Render("CASEMENT HMI"))
	s.WriteString(" ")
	s.WriteString(st.header.Render(fmt.Sprintf("| %s", m.connInfo)))
	s.WriteString("\n\n")

	// Display
	lcd := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Background(lipgloss.Color("235"))
	var rows []string
	for _, line := range m.lines {
		rows = append(rows, lcd.Render(fmt.Sprintf("%-*s", hmi.Columns, line)))
	}
	display := st.focusedBox.Render(strings.Join(rows, "\n"))
	if m.stopped {
		display = st.box.Render(strings.Join(rows, "\n"))
	}
	s.WriteString(display)
	s.WriteString("\n")

	s.WriteString(st.renderStatisticsBar(m.stats, m.width-4))
	s.WriteString("\n")
	s.WriteString(st.renderEventLog(m.events, m.width-4, hmiLogHeight))
	s.WriteString("\n")
	s.WriteString(m.help.View(hmiKeys))

	return s.String()
}
