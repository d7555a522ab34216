package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
)

type menuChoice int

const (
	menuAdd menuChoice = iota
	menuBrowse
	menuEndSession
	menuQuit
)

// menuModel is the main menu view.
type menuModel struct {
	cursor    int
	version   string
	count     int
	ephemeral bool
	flash     string
}

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

func newMenuModel(version string, count int, ephemeral bool) menuModel {
	return menuModel{version: version, count: count, ephemeral: ephemeral}
}

func (m menuModel) items() []string {
	end := "End session"
	if m.ephemeral {
		end = "Discard records and quit"
	}
	return []string{
		"Add person",
		fmt.Sprintf("Browse people (%d)", m.count),
		end,
		"Quit",
	}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (menuModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, zstyle.KeyQuit) {
			return m, tea.Quit
		}

		if key.Matches(msg, zstyle.KeyUp) {
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		}

		if key.Matches(msg, zstyle.KeyDown) {
			if m.cursor < len(m.items())-1 {
				m.cursor++
			}
			return m, nil
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			return m, m.selectItem()
		}

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m menuModel) selectItem() tea.Cmd {
	switch menuChoice(m.cursor) {
	case menuAdd:
		return func() tea.Msg { return newPersonMsg{} }
	case menuBrowse:
		return func() tea.Msg { return navigateMsg{view: viewList} }
	case menuEndSession:
		return func() tea.Msg { return endSessionMsg{} }
	case menuQuit:
		return tea.Quit
	}
	return nil
}

func (m menuModel) View() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(zstyle.StyledLogo(lipgloss.NewStyle().Foreground(accent)))
	title := zstyle.Title.Render("zpeople")
	ver := zstyle.MutedText.Render(m.version)

	s := fmt.Sprintf("\n%s\n  %s %s\n\n", logo, title, ver)

	for i, item := range m.items() {
		if m.cursor == i {
			s += zstyle.Highlight.Render(fmt.Sprintf("  > %s", item)) + "\n"
		} else {
			s += fmt.Sprintf("    %s\n", item)
		}
	}

	s += "\n"
	if m.flash != "" {
		s += "  " + zstyle.StatusWarn.Render(m.flash) + "\n"
	} else {
		s += "\n"
	}

	s += "  " + zstyle.MutedText.Render("j/k navigate  enter select  q quit") + "\n\n"
	return s
}
