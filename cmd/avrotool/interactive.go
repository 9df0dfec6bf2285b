package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/avro-model/transcoder"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	tool     *tool
	fields   []*transcoder.Field
	inputs   []textinput.Model
	encoded  []byte
	decoded  string
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateInputFields modelState = iota
	stateShowResult
)

type encodeResultMsg struct {
	err     error
	encoded []byte
	decoded string
}

func newInteractiveModel(t *tool) *interactiveModel {
	m := &interactiveModel{
		tool:   t,
		fields: t.model.Attributes(),
		state:  stateInputFields,
	}
	m.prepareInputs()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == stateShowResult {
				return m, tea.Quit
			}

		case "enter":
			switch m.state {
			case stateInputFields:
				return m, m.encode
			case stateShowResult:
				m.state = stateInputFields
				m.encoded = nil
				m.decoded = ""
				m.err = nil
				return m, nil
			}

		case "tab", "down":
			if m.state == stateInputFields && len(m.inputs) > 1 {
				m.move(1)
				return m, nil
			}

		case "shift+tab", "up":
			if m.state == stateInputFields && len(m.inputs) > 1 {
				m.move(-1)
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputFields:
				m.prepareInputs()
				return m, nil
			case stateShowResult:
				m.state = stateInputFields
				m.err = nil
				return m, nil
			}
		}

	case encodeResultMsg:
		m.encoded = msg.encoded
		m.decoded = msg.decoded
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputFields {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) move(delta int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = (m.focusIdx + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focusIdx].Focus()
}

func (m *interactiveModel) prepareInputs() {
	m.inputs = make([]textinput.Model, len(m.fields))
	for i, f := range m.fields {
		ti := textinput.New()
		ti.Placeholder = f.Type.TypeName()
		ti.Prompt = f.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// attributes collects the non-empty inputs. Empty inputs are left out so
// the field default applies.
func (m *interactiveModel) attributes() map[string]any {
	attrs := make(map[string]any, len(m.inputs))
	for i, input := range m.inputs {
		if v := parseField(input.Value()); v != nil {
			attrs[m.fields[i].Name] = v
		}
	}
	return attrs
}

func (m *interactiveModel) encode() tea.Msg {
	ctx := context.Background()
	model := m.tool.model

	inst, err := model.New(m.attributes())
	if err != nil {
		return encodeResultMsg{err: err}
	}

	var encoded []byte
	if m.tool.msg != nil {
		encoded, err = m.tool.msg.EncodeValue(ctx, inst)
	} else {
		encoded, err = model.EncodeValue(inst)
	}
	if err != nil {
		return encodeResultMsg{err: err}
	}

	var back *transcoder.Instance
	if m.tool.msg != nil {
		back, err = m.tool.msg.DecodeValue(ctx, model, encoded)
	} else {
		back, err = model.DecodeValue(encoded, nil)
	}
	if err != nil {
		return encodeResultMsg{err: err, encoded: encoded}
	}
	doc, err := render(back)
	if err != nil {
		return encodeResultMsg{err: err, encoded: encoded}
	}
	return encodeResultMsg{encoded: encoded, decoded: prettyJSON(doc)}
}

func prettyJSON(doc []byte) string {
	var v map[string]any
	if err := json.Unmarshal(doc, &v); err != nil {
		return string(doc)
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range sortedKeys(v) {
		e, _ := json.Marshal(v[k])
		b.WriteString("  ")
		b.WriteString(fieldStyle.Render(k))
		b.WriteString(": ")
		b.Write(e)
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Avro Model"))
	b.WriteString(" ")
	b.WriteString(m.tool.model.Name())
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.tool.source))
	b.WriteString("\n\n")

	switch m.state {
	case stateInputFields:
		b.WriteString("Enter attribute values (JSON or plain text, empty for default):\n\n")
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(m.fields[i].Type.TypeName()))
			if m.fields[i].Key {
				b.WriteString(helpStyle.Render(" key"))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab/↓ next field • enter encode • esc clear • ctrl+c quit"))

	case stateShowResult:
		if len(m.encoded) > 0 {
			b.WriteString(fmt.Sprintf("Encoded (%d bytes):\n\n", len(m.encoded)))
			b.WriteString(resultStyle.Render(hexDump(m.encoded)))
			b.WriteString("\n\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString("Decoded:\n\n")
			b.WriteString(m.decoded)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit • q quit"))
	}

	return b.String()
}

func runInteractive(t *tool) error {
	p := tea.NewProgram(newInteractiveModel(t), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
