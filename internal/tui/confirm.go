package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpeople/internal/erase"
	"github.com/zarlcorp/zpeople/internal/person"
)

type confirmPhase int

const (
	confirmAsk confirmPhase = iota
	confirmRunning
	confirmDone
)

// eraseConfirmMsg runs a confirmed erase.
type eraseConfirmMsg struct {
	person person.Person
	action erase.Action
}

// eraseResultMsg carries the outcome of an erase.
type eraseResultMsg struct {
	result erase.Result
}

// confirmModel asks before deleting or anonymizing and shows the result.
type confirmModel struct {
	person   person.Person
	action   erase.Action
	plan     []string
	phase    confirmPhase
	result   erase.Result
	from     viewID // shown again on cancel
	returnTo viewID // shown after the erase
}

func newConfirmModel(p person.Person, action erase.Action, plan []string, from, returnTo viewID) confirmModel {
	return confirmModel{
		person:   p,
		action:   action,
		plan:     plan,
		phase:    confirmAsk,
		from:     from,
		returnTo: returnTo,
	}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (confirmModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case eraseResultMsg:
		m.result = msg.result
		m.phase = confirmDone
		return m, nil
	}

	return m, nil
}

func (m confirmModel) handleKey(msg tea.KeyMsg) (confirmModel, tea.Cmd) {
	switch m.phase {
	case confirmAsk:
		return m.handleAskKey(msg)
	case confirmDone:
		view := m.returnTo
		return m, func() tea.Msg { return navigateMsg{view: view} }
	}
	return m, nil
}

func (m confirmModel) handleAskKey(msg tea.KeyMsg) (confirmModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if msg.String() == "y" {
		m.phase = confirmRunning
		p, action := m.person, m.action
		return m, func() tea.Msg { return eraseConfirmMsg{person: p, action: action} }
	}

	// any other key cancels
	view := m.from
	return m, func() tea.Msg { return navigateMsg{view: view} }
}

func (m confirmModel) View() string {
	switch m.phase {
	case confirmAsk:
		return m.viewAsk()
	case confirmRunning:
		return "\n  " + zstyle.MutedText.Render(m.verb()+"ing "+m.person.Name()+"...") + "\n"
	case confirmDone:
		return m.viewDone()
	}
	return ""
}

func (m confirmModel) verb() string {
	if m.action == erase.Depersonalize {
		return "anonymiz"
	}
	return "delet"
}

func (m confirmModel) viewAsk() string {
	s := "\n  " + zstyle.Subtitle.Render(m.action.String()+" "+m.person.Name()+"?") + "\n\n"

	s += "  " + zstyle.MutedText.Render("this will:") + "\n"
	for _, step := range m.plan {
		s += fmt.Sprintf("  %s %s\n", zstyle.StatusWarn.Render("-"), step)
	}

	s += "\n"
	s += "  " + zstyle.StatusWarn.Render("this cannot be undone.") + " (y/n)\n"
	return s
}

func (m confirmModel) viewDone() string {
	var b strings.Builder

	lines := strings.Split(m.result.Summary(), "\n")

	if m.result.HasErrors() {
		b.WriteString("\n  " + zstyle.StatusWarn.Render(lines[0]) + "\n\n")
	} else {
		b.WriteString("\n  " + zstyle.StatusOK.Render(lines[0]) + "\n\n")
	}

	for _, line := range lines[1:] {
		if strings.Contains(line, ": ") {
			b.WriteString("  " + zstyle.StatusWarn.Render(line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + zstyle.MutedText.Render("press any key to continue") + "\n")
	return b.String()
}
