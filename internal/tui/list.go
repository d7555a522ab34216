package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpeople/internal/erase"
	"github.com/zarlcorp/zpeople/internal/person"
)

// listModel displays the stored people in insertion order.
type listModel struct {
	persons []person.Person
	cursor  int
	flash   string
}

// viewPersonMsg requests the detail view for a person.
type viewPersonMsg struct {
	person person.Person
}

// newPersonMsg opens the create form.
type newPersonMsg struct{}

// editPersonMsg opens the edit form for a person.
type editPersonMsg struct {
	person person.Person
}

// eraseStartMsg asks for confirmation before deleting or anonymizing.
type eraseStartMsg struct {
	person person.Person
	action erase.Action
}

// newListModel starts a list at the first row.
func newListModel(ps []person.Person) listModel {
	return listModel{persons: ps}
}

// withPersons replaces the rows, keeping the cursor on the same position
// where possible.
func (m listModel) withPersons(ps []person.Person) listModel {
	m.persons = ps
	if m.cursor >= len(ps) {
		m.cursor = max(len(ps)-1, 0)
	}
	return m
}

func (m listModel) Init() tea.Cmd {
	return nil
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m listModel) handleKey(msg tea.KeyMsg) (listModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewMenu} }
	}

	if msg.String() == "n" {
		return m, func() tea.Msg { return newPersonMsg{} }
	}

	if len(m.persons) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.persons)-1 {
			m.cursor++
		}
		return m, nil
	}

	p := m.persons[m.cursor]

	if key.Matches(msg, zstyle.KeyEnter) {
		return m, func() tea.Msg { return viewPersonMsg{person: p} }
	}

	switch msg.String() {
	case "e":
		return m, func() tea.Msg { return editPersonMsg{person: p} }
	case "a":
		return m, func() tea.Msg { return eraseStartMsg{person: p, action: erase.Depersonalize} }
	case "d":
		return m, func() tea.Msg { return eraseStartMsg{person: p, action: erase.Delete} }
	}

	return m, nil
}

func (m listModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n"

	if len(m.persons) == 0 {
		s += "  " + zstyle.MutedText.Render("no people yet  n to add") + "\n"
		s += "\n"
		s += m.flashLine()
		return s
	}

	for i, p := range m.persons {
		name := truncate(p.Name(), 24)
		email := truncate(p.Email, 28)
		city := ""
		if a, ok := p.PrimaryAddress(); ok {
			city = truncate(a.City, 16)
		}
		line := fmt.Sprintf("%-24s %-28s %s", name, email, city)
		if p.Anonymized() {
			line = zstyle.MutedText.Render(line)
		}

		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	s += "\n"
	s += m.flashLine()
	return s
}

// flashLine always reserves a line to prevent layout shift.
func (m listModel) flashLine() string {
	if m.flash != "" {
		return "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	}
	return "\n"
}
