package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
	"github.com/plugvine/plugvine/internal/core/ports"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7D56F4")).
				MarginBottom(1)

	pickerCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	pickerSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	pickerDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pickerHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// UpdatePicker is the interactive update selection surface. With AssumeAll
// set it skips the prompt and selects every diverged package.
type UpdatePicker struct {
	AssumeAll bool

	// programOptions supplements the prompt's program, letting tests run
	// it headless.
	programOptions []tea.ProgramOption
}

// NewUpdatePicker creates a picker.
func NewUpdatePicker() *UpdatePicker { return &UpdatePicker{} }

// Select presents the divergence list in a multi-select prompt and returns
// the chosen identities. Cancelling or confirming with nothing selected
// returns an empty selection, which callers treat as a no-op.
func (p *UpdatePicker) Select(ctx context.Context, records []plugin.UpdateRecord) ([]string, error) {
	if p.AssumeAll {
		return []string{ports.SelectAll}, nil
	}

	model := newPickerModel(records)
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, p.programOptions...)
	program := tea.NewProgram(model, opts...)
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("update picker failed: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.cancelled {
		return nil, nil
	}
	return m.chosen(), nil
}

type pickerModel struct {
	records   []plugin.UpdateRecord
	cursor    int
	selected  map[int]struct{}
	cancelled bool
}

func newPickerModel(records []plugin.UpdateRecord) pickerModel {
	return pickerModel{
		records:  records,
		selected: make(map[int]struct{}),
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case " ":
		if _, ok := m.selected[m.cursor]; ok {
			delete(m.selected, m.cursor)
		} else {
			m.selected[m.cursor] = struct{}{}
		}
	case "a":
		if len(m.selected) == len(m.records) {
			m.selected = make(map[int]struct{})
		} else {
			for i := range m.records {
				m.selected[i] = struct{}{}
			}
		}
	case "enter":
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	view := pickerTitleStyle.Render(fmt.Sprintf("%d plugin(s) have updates", len(m.records))) + "\n"

	for i, record := range m.records {
		cursor := "  "
		if i == m.cursor {
			cursor = pickerCursorStyle.Render("> ")
		}
		check := "[ ]"
		if _, ok := m.selected[i]; ok {
			check = pickerSelectedStyle.Render("[x]")
		}
		view += fmt.Sprintf("%s%s %s %s\n",
			cursor, check, record.Identity,
			pickerDimStyle.Render(fmt.Sprintf("%s -> %s", record.LocalRevision, record.RemoteRevision)))
	}

	view += pickerHelpStyle.Render("space toggle / a all / enter apply / q cancel")
	return view
}

// chosen returns the selected identities in list order.
func (m pickerModel) chosen() []string {
	var ids []string
	for i, record := range m.records {
		if _, ok := m.selected[i]; ok {
			ids = append(ids, record.Identity)
		}
	}
	return ids
}
