// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/casement/internal/config"
	"github.com/Thermoquad/casement/internal/control"
	"github.com/Thermoquad/casement/internal/hw"
	"github.com/Thermoquad/casement/pkg/casement"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	buttonHold     = 200 * time.Millisecond // simulated press length
	panelRefresh   = 250 * time.Millisecond
	panelLogHeight = 8
)

// Focus states
const (
	focusWindowList = iota
	focusTempInput
	focusDistanceInput
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// windowItem is one window in the panel list
type windowItem struct {
	index int
	name  string
	state casement.WindowState
	motor string
}

// Implement list.Item interface
func (w windowItem) Title() string       { return fmt.Sprintf("%d. %s", w.index+1, w.name) }
func (w windowItem) Description() string { return fmt.Sprintf("%s, motor %s", w.state, w.motor) }
func (w windowItem) FilterValue() string { return w.name }

type panelKeyMap struct {
	Open  key.Binding
	Close key.Binding
	Focus key.Binding
	Apply key.Binding
	Quit  key.Binding
}

func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Close, k.Focus, k.Apply, k.Quit}
}

func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var panelKeys = panelKeyMap{
	Open:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "press open")),
	Close: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "press close")),
	Focus: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch")),
	Apply: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "set sensor")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// controlModel is the Bubble Tea model for the simulated board panel
type controlModel struct {
	node     *control.Node
	board    *control.SimHardware
	windows  []config.WindowConfig
	connInfo string

	windowList    list.Model
	tempInput     textinput.Model
	distanceInput textinput.Model
	focusedField  int
	help          help.Model

	// Node state, from observer events
	sessionID    string
	active       bool
	lastSnapshot *casement.SensorSnapshot
	faults       int
	events       eventLog

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type panelTickMsg time.Time

type sessionMsg struct {
	id     string
	active bool
}

type snapshotMsg casement.SensorSnapshot

type faultMsg casement.FaultCode

type readoutMsg []casement.FaultCode

type windowChangedMsg struct {
	index int
	state casement.WindowState
}

type buttonReleaseMsg config.PinConfig

type loopDoneMsg struct{ err error }

// panelSink forwards node events into the running panel
type panelSink struct {
	p *tea.Program
}

func (s *panelSink) send(msg tea.Msg) {
	if s.p != nil {
		s.p.Send(msg)
	}
}

func (s *panelSink) Session(id string, active bool)        { s.send(sessionMsg{id: id, active: active}) }
func (s *panelSink) Snapshot(snap casement.SensorSnapshot) { s.send(snapshotMsg(snap)) }
func (s *panelSink) Fault(code casement.FaultCode)         { s.send(faultMsg(code)) }
func (s *panelSink) Readout(codes []casement.FaultCode)    { s.send(readoutMsg(codes)) }

//////////////////////////////////////////////////////////////
// Runner
//////////////////////////////////////////////////////////////

func runControlPanel(ctx context.Context, sink *panelSink, node *control.Node, board *control.SimHardware, cfg *config.Config, connInfo string) error {
	m := initialControlModel(node, board, cfg, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.p = p
	node.Windows.OnChange = func(i int, state casement.WindowState) {
		p.Send(windowChangedMsg{index: i, state: state})
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopErr := make(chan error, 1)
	go func() {
		err := node.Loop.Run(loopCtx)
		loopErr <- err
		p.Send(loopDoneMsg{err: err})
	}()
	stopQuit := context.AfterFunc(ctx, p.Quit)
	defer stopQuit()

	if _, err := p.Run(); err != nil {
		cancel()
		<-loopErr
		return fmt.Errorf("TUI error: %v", err)
	}

	cancel()
	err := <-loopErr
	fmt.Print(node.Link.Stats.String())
	return err
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(node *control.Node, board *control.SimHardware, cfg *config.Config, connInfo string) controlModel {
	tempInput := textinput.New()
	tempInput.Placeholder = strconv.Itoa(int(board.Thermometer.Temperature()))
	tempInput.CharLimit = 3
	tempInput.Width = 6

	distanceInput := textinput.New()
	distanceInput.Placeholder = strconv.Itoa(int(board.Rangefinder.Distance()))
	distanceInput.CharLimit = 5
	distanceInput.Width = 6

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	windowList := list.New([]list.Item{}, delegate, 30, 8)
	windowList.Title = "Windows"
	windowList.SetShowStatusBar(false)
	windowList.SetShowHelp(false)
	windowList.SetFilteringEnabled(false)

	m := controlModel{
		node:          node,
		board:         board,
		windows:       cfg.Windows,
		connInfo:      connInfo,
		windowList:    windowList,
		tempInput:     tempInput,
		distanceInput: distanceInput,
		focusedField:  focusWindowList,
		help:          help.New(),
		faults:        node.Log.WriteCursor() - node.Log.ReadCursor(),
		events:        newEventLog(),
		width:         80,
		height:        24,
	}
	items := make([]list.Item, len(cfg.Windows))
	for i, wc := range cfg.Windows {
		items[i] = windowItem{index: i, name: wc.Name, motor: m.motorLabel(wc.Motor)}
	}
	m.windowList.SetItems(items)
	m.events.add(fmt.Sprintf("Fault store: %s, %d pending", cfg.Store.Backend, m.faults), false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return panelTickCmd()
}

func panelTickCmd() tea.Cmd {
	return tea.Tick(panelRefresh, func(t time.Time) tea.Msg {
		return panelTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case panelTickMsg:
		m.refreshMotors()
		return m, panelTickCmd()

	case sessionMsg:
		m.active = msg.active
		if msg.active {
			m.sessionID = msg.id
			m.events.add("Monitoring started, session "+msg.id, false)
		} else {
			m.events.add("Monitoring stopped", false)
		}

	case snapshotMsg:
		snap := casement.SensorSnapshot(msg)
		m.lastSnapshot = &snap
		m.events.add(fmt.Sprintf("Snapshot sent: %dC %dcm", snap.Temperature, snap.Distance), false)

	case faultMsg:
		m.faults++
		m.events.add("Fault logged: "+casement.FaultCode(msg).String(), true)

	case readoutMsg:
		m.faults = 0
		m.events.add(fmt.Sprintf("Fault read-out: %d code(s) streamed", len(msg)), false)

	case windowChangedMsg:
		items := m.windowList.Items()
		if msg.index < len(items) {
			if item, ok := items[msg.index].(windowItem); ok {
				item.state = msg.state
				m.windowList.SetItem(msg.index, item)
			}
		}
		m.events.add(fmt.Sprintf("Window %d %s", msg.index+1, msg.state), false)

	case buttonReleaseMsg:
		m.board.Registers.SetInput(msg.Port, msg.Pin, hw.Low)

	case loopDoneMsg:
		if msg.err != nil {
			m.events.add("Control loop stopped: "+msg.err.Error(), true)
		} else {
			m.events.add("Control loop stopped", false)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || (m.focusedField == focusWindowList && key.Matches(msg, panelKeys.Quit)) {
		m.quitting = true
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, panelKeys.Focus):
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		m.cycleFocus(delta)
		return m, nil

	case key.Matches(msg, panelKeys.Apply) && m.focusedField != focusWindowList:
		m.applySensor()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case focusWindowList:
		switch {
		case key.Matches(msg, panelKeys.Open):
			return m, m.pressButton(true)
		case key.Matches(msg, panelKeys.Close):
			return m, m.pressButton(false)
		}
		m.windowList, cmd = m.windowList.Update(msg)
	case focusTempInput:
		m.tempInput, cmd = m.tempInput.Update(msg)
	case focusDistanceInput:
		m.distanceInput, cmd = m.distanceInput.Update(msg)
	}
	return m, cmd
}

func (m *controlModel) cycleFocus(delta int) {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount
	m.tempInput.Blur()
	m.distanceInput.Blur()
	switch m.focusedField {
	case focusTempInput:
		m.tempInput.Focus()
	case focusDistanceInput:
		m.distanceInput.Focus()
	}
}

func (m *controlModel) applySensor() {
	switch m.focusedField {
	case focusTempInput:
		v, err := strconv.ParseUint(strings.TrimSpace(m.tempInput.Value()), 10, 8)
		if err != nil {
			m.events.add(fmt.Sprintf("Invalid temperature %q (0-255)", m.tempInput.Value()), true)
			return
		}
		m.board.Thermometer.Set(uint8(v))
		m.tempInput.Placeholder = m.tempInput.Value()
		m.tempInput.SetValue("")
		m.events.add(fmt.Sprintf("Temperature set to %dC", v), false)
	case focusDistanceInput:
		v, err := strconv.ParseUint(strings.TrimSpace(m.distanceInput.Value()), 10, 16)
		if err != nil {
			m.events.add(fmt.Sprintf("Invalid distance %q (0-65535)", m.distanceInput.Value()), true)
			return
		}
		m.board.Rangefinder.Set(uint16(v))
		m.distanceInput.Placeholder = m.distanceInput.Value()
		m.distanceInput.SetValue("")
		m.events.add(fmt.Sprintf("Distance set to %dcm", v), false)
	}
}

// pressButton drives the selected window's button pin high and releases it
// after buttonHold.
func (m *controlModel) pressButton(open bool) tea.Cmd {
	idx := m.windowList.Index()
	if idx < 0 || idx >= len(m.windows) {
		return nil
	}
	pin := m.windows[idx].Close
	label := "close"
	if open {
		pin = m.windows[idx].Open
		label = "open"
	}
	m.board.Registers.SetInput(pin.Port, pin.Pin, hw.High)
	m.events.add(fmt.Sprintf("%s: %s button pressed", m.windows[idx].Name, label), false)
	return tea.Tick(buttonHold, func(time.Time) tea.Msg {
		return buttonReleaseMsg(pin)
	})
}

// refreshMotors reads the H-bridge outputs back from the simulated
// registers.
func (m *controlModel) refreshMotors() {
	for i, it := range m.windowList.Items() {
		item, ok := it.(windowItem)
		if !ok || i >= len(m.windows) {
			continue
		}
		motor := m.motorLabel(m.windows[i].Motor)
		if motor != item.motor {
			item.motor = motor
			m.windowList.SetItem(i, item)
		}
	}
}

func (m controlModel) motorLabel(mc config.MotorConfig) string {
	regs := m.board.Registers
	in1 := regs.Output(mc.Port, mc.In1) == hw.High
	in2 := regs.Output(mc.Port, mc.In2) == hw.High
	switch {
	case in1 && !in2:
		return "CW"
	case in2 && !in1:
		return "CCW"
	}
	return "stopped"
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	st := newTUIStyles()
	var s strings.Builder

	// Header
	s.WriteString(st.title.Render("CASEMENT CONTROL NODE"))
	s.WriteString(" ")
	s.WriteString(st.header.Render(fmt.Sprintf("| %s", m.connInfo)))
	s.WriteString("\n\n")

	// Layout: left panel (windows) | right panel (sensors and session)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}

	listStyle := st.box.Width(leftWidth)
	if m.focusedField == focusWindowList {
		listStyle = st.focusedBox.Width(leftWidth)
	}
	windowPanel := listStyle.Render(m.windowList.View())
	sensorPanel := st.box.Width(rightWidth).Render(m.renderSensorPanel(st))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, windowPanel, " ", sensorPanel))
	s.WriteString("\n")

	s.WriteString(st.renderStatisticsBar(m.node.Link.Stats, m.width-4))
	s.WriteString("\n")
	s.WriteString(st.renderEventLog(m.events, m.width-4, panelLogHeight))
	s.WriteString("\n")
	s.WriteString(m.help.View(panelKeys))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderSensorPanel(st tuiStyles) string {
	var s strings.Builder

	s.WriteString(st.label.Render("SENSORS"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s  %s\n",
		st.label.Render("Temperature:"),
		st.value.Render(fmt.Sprintf("%dC", m.board.Thermometer.Temperature())),
		m.tempInput.View()))
	s.WriteString(fmt.Sprintf("%s %s  %s\n",
		st.label.Render("Distance:   "),
		st.value.Render(fmt.Sprintf("%dcm", m.board.Rangefinder.Distance())),
		m.distanceInput.View()))
	s.WriteString(fmt.Sprintf("%s %s\n\n",
		st.label.Render("Motor duty: "),
		st.value.Render(fmt.Sprintf("%d", m.board.PWM.Duty()))))

	s.WriteString(st.label.Render("SESSION"))
	s.WriteString("\n")
	if m.active {
		s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render("Monitoring:"), st.value.Render("active")))
		s.WriteString(st.header.Render(m.sessionID))
		s.WriteString("\n")
	} else {
		s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render("Monitoring:"), st.warning.Render("idle")))
	}
	faults := st.value.Render(fmt.Sprintf("%d", m.faults))
	if m.faults > 0 {
		faults = st.err.Render(fmt.Sprintf("%d", m.faults))
	}
	s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render("Logged faults:"), faults))
	if m.lastSnapshot != nil {
		s.WriteString(fmt.Sprintf("%s %dC %dcm %s/%s\n",
			st.label.Render("Last snapshot:"),
			m.lastSnapshot.Temperature, m.lastSnapshot.Distance,
			m.lastSnapshot.Window1, m.lastSnapshot.Window2))
	}

	return s.String()
}
