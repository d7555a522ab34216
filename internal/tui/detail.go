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

// detailModel displays all fields of a stored person.
type detailModel struct {
	person person.Person
	fields []personField
	cursor int
	flash  string
	clip   erase.Clipboard
}

func newDetailModel(p person.Person, clip erase.Clipboard) detailModel {
	return detailModel{
		person: p,
		fields: personFields(p),
		clip:   clip,
	}
}

// withPerson refreshes the displayed record after a store change.
func (m detailModel) withPerson(p person.Person) detailModel {
	m.person = p
	m.fields = personFields(p)
	if m.cursor >= len(m.fields) {
		m.cursor = len(m.fields) - 1
	}
	return m
}

func (m detailModel) Init() tea.Cmd {
	return nil
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m detailModel) handleKey(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewList} }
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.copy(m.fields[m.cursor].value, "copied!")
	}

	p := m.person
	switch msg.String() {
	case "c":
		return m.copy(fieldsText(m.fields), "copied all!")
	case "e":
		return m, func() tea.Msg { return editPersonMsg{person: p} }
	case "a":
		return m, func() tea.Msg { return eraseStartMsg{person: p, action: erase.Depersonalize} }
	case "d":
		return m, func() tea.Msg { return eraseStartMsg{person: p, action: erase.Delete} }
	}

	return m, nil
}

func (m detailModel) copy(text, done string) (detailModel, tea.Cmd) {
	if m.clip == nil {
		m.flash = "copy: clipboard not available"
		return m, clearFlashAfter()
	}
	if err := m.clip.WriteAll(text); err != nil {
		m.flash = "copy: " + err.Error()
		return m, clearFlashAfter()
	}
	m.flash = done
	return m, clearFlashAfter()
}

func (m detailModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	name := zstyle.Subtitle.Render(m.person.Name())
	s := "\n  " + name + "\n\n"

	for i, f := range m.fields {
		// blank line before the contact block and before the addresses
		if f.label == "taj" || f.label == "address 1" {
			s += "\n"
		}
		label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", f.label))
		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + label + " " + f.value + "\n"
		} else {
			s += "    " + label + " " + f.value + "\n"
		}
	}

	if len(m.person.Address) == 0 {
		s += "\n    " + zstyle.MutedText.Render("no addresses") + "\n"
	}

	s += "\n"

	// always reserve a line for flash to prevent layout shift
	if m.flash != "" {
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	} else {
		s += "\n"
	}

	return s
}
