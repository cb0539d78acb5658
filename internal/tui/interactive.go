// Package tui provides the interactive terminal session: render the
// structure, tweak actuated rest lengths, re-solve, and inspect member
// forces without leaving the terminal.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tenseg/internal/solver"
	"github.com/san-kum/tenseg/internal/structure"
	"github.com/san-kum/tenseg/internal/viz"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Model is the bubbletea state machine for one structure session.
type Model struct {
	ten *structure.Tensegrity
	sol *solver.Solver

	editBuf    string
	showForces bool
	status     string
	statusBad  bool
	lastTrace  []float64

	width, height int
}

func NewModel(ten *structure.Tensegrity, sol *solver.Solver) Model {
	return Model{
		ten:    ten,
		sol:    sol,
		status: "ready",
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		return m.applyDeltas(), nil
	case "escape":
		m.editBuf = ""
		return m, nil
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
		return m, nil
	case "r":
		return m.reset(), nil
	case "f":
		m.showForces = !m.showForces
		return m, nil
	}
	if len(msg.String()) == 1 {
		c := msg.String()[0]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == ',' {
			m.editBuf += string(c)
		}
	}
	return m, nil
}

// applyDeltas parses the edit buffer as comma-separated rest length
// changes, applies them and re-solves. A failed solve is rolled back
// so the session keeps its last good configuration.
func (m Model) applyDeltas() Model {
	if m.editBuf == "" {
		return m
	}
	fields := strings.Split(m.editBuf, ",")
	deltas := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			m.status = fmt.Sprintf("bad delta %q", strings.TrimSpace(f))
			m.statusBad = true
			return m
		}
		deltas = append(deltas, v)
	}

	if err := m.ten.ChangeControlLengths(deltas...); err != nil {
		m.status = err.Error()
		m.statusBad = true
		return m
	}
	m.editBuf = ""

	rep, err := m.sol.Solve()
	if err != nil {
		undo := make([]float64, len(deltas))
		for i, d := range deltas {
			undo[i] = -d
		}
		_ = m.ten.ChangeControlLengths(undo...)
		m.status = err.Error()
		m.statusBad = true
		return m
	}

	m.lastTrace = rep.Trace
	m.status = fmt.Sprintf("converged in %d iterations (residual %.2e)",
		rep.Iterations, rep.ResidualNorm)
	m.statusBad = false
	return m
}

func (m Model) reset() Model {
	m.ten.ResetControlLengths()
	rep, err := m.sol.Solve()
	if err != nil {
		m.status = err.Error()
		m.statusBad = true
		return m
	}
	m.lastTrace = rep.Trace
	m.status = "controls reset"
	m.statusBad = false
	m.editBuf = ""
	return m
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString("  " + cyan.Bold(true).Render("TENSEG") +
		dim.Render("  static equilibrium workbench") + "\n\n")

	vh := m.height - 9
	if m.showForces {
		vh -= len(m.ten.Connections) + 2
	}
	if vh < 6 {
		vh = 6
	}
	vw := m.width - 4
	if vw < 20 {
		vw = 20
	}
	b.WriteString(viz.Render(m.ten, viz.Options{Width: vw, Height: vh, ShowForces: m.showForces}))

	b.WriteByte('\n')
	if order := m.ten.ControlOrder(); order != "" {
		b.WriteString("  " + dim.Render("controls: ") + white.Render(order) + "\n")
	} else {
		b.WriteString("  " + dim.Render("no controls defined") + "\n")
	}
	b.WriteString("  " + dim.Render("deltas:   ") + yellow.Render(m.editBuf+"_") + "\n")

	style := green
	if m.statusBad {
		style = red
	}
	b.WriteString("  " + style.Render(m.status))
	if len(m.lastTrace) > 1 {
		b.WriteString("  " + viz.ResidualSparkline(m.lastTrace, 24))
	}
	b.WriteByte('\n')

	b.WriteString("  " + cyan.Render("enter") + dim.Render(" apply  ") +
		cyan.Render("r") + dim.Render(" reset  ") +
		cyan.Render("f") + dim.Render(" forces  ") +
		cyan.Render("q") + dim.Render(" quit") + "\n")
	return b.String()
}

// Run starts the interactive session in the alternate screen.
func Run(ten *structure.Tensegrity, sol *solver.Solver) error {
	_, err := tea.NewProgram(NewModel(ten, sol), tea.WithAltScreen()).Run()
	return err
}
