package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/wirecodec/schemafile"
	"github.com/wippyai/wirecodec/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Browse declared types and decode bytes interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdout) {
			return errors.New("inspect needs a terminal; use ops or decode instead")
		}
		p := tea.NewProgram(newInspectModel(args[0]), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

type modelState int

const (
	stateSelectType modelState = iota
	stateInputBytes
	stateShowResult
	stateShowOps
)

type inspectModel struct {
	err      error
	schema   *schemafile.Schema
	filename string
	result   string
	types    []*schemafile.TypeInfo
	input    textinput.Model
	selected int
	state    modelState
}

type loadedMsg struct {
	err    error
	schema *schemafile.Schema
}

type decodedMsg struct {
	err    error
	result string
}

func newInspectModel(filename string) *inspectModel {
	return &inspectModel{
		filename: filename,
		state:    stateSelectType,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.load
}

func (m *inspectModel) load() tea.Msg {
	s, err := loadSchema(m.filename)
	return loadedMsg{schema: s, err: err}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputBytes {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.types)-1 {
				m.selected++
			}

		case "o":
			if m.state == stateSelectType && len(m.types) > 0 {
				m.state = stateShowOps
			}

		case "r":
			if m.state == stateSelectType {
				return m, m.load
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				if len(m.types) == 0 {
					break
				}
				m.prepareInput()
				m.state = stateInputBytes
				return m, textinput.Blink

			case stateInputBytes:
				return m, m.decode(m.input.Value())

			case stateShowResult, stateShowOps:
				m.reset()
			}

		case "esc":
			switch m.state {
			case stateInputBytes, stateShowResult, stateShowOps:
				m.reset()
			}
		}

	case loadedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.schema = msg.schema
		m.types = msg.schema.Types()
		if m.selected >= len(m.types) {
			m.selected = 0
		}

	case decodedMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputBytes {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) reset() {
	m.state = stateSelectType
	m.result = ""
	m.err = nil
}

func (m *inspectModel) prepareInput() {
	t := m.types[m.selected]
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("hex bytes, at least %d", t.MinSize)
	ti.Prompt = t.Name + ": "
	ti.Width = 60
	ti.Focus()
	m.input = ti
}

func (m *inspectModel) decode(src string) tea.Cmd {
	s := m.schema
	name := m.types[m.selected].Name
	return func() tea.Msg {
		data, err := parseHex(src)
		if err != nil {
			return decodedMsg{err: err}
		}
		r := wire.NewReader(data)
		v, err := s.Decode(r, name)
		if err != nil {
			return decodedMsg{err: err}
		}
		out := v.Pretty()
		if n := r.Remaining(); n > 0 {
			out += fmt.Sprintf("\n\n(%d trailing bytes)", n)
		}
		return decodedMsg{result: out}
	}
}

func (m *inspectModel) View() string {
	if m.err != nil && m.state == stateSelectType {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress r to reload, q to quit.", m.err))
	}
	if m.schema == nil {
		return "Loading declarations..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wirecodec"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type:\n\n")
		for i, t := range m.types {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatType(t)))
			} else {
				b.WriteString("  " + formatType(t))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter decode • o ops • r reload • q quit"))

	case stateInputBytes:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter decode • esc back"))

	case stateShowResult:
		t := m.types[m.selected]
		b.WriteString(fmt.Sprintf("Decoded %s:\n\n", nameStyle.Render(t.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateShowOps:
		b.WriteString(m.types[m.selected].Listing())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func formatType(t *schemafile.TypeInfo) string {
	return nameStyle.Render(t.Name) + " " + kindStyle.Render(fmt.Sprintf("%s, min %d", t.Kind, t.MinSize))
}
