package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// forgottenAfter is the number of failed unlocks before the prompt points
// at end-session.
const forgottenAfter = 3

type unlockStep int

const (
	stepPassword unlockStep = iota
	stepConfirm
)

// unlockModel asks for the session password. A new session asks twice.
type unlockModel struct {
	input    textinput.Model
	create   bool
	step     unlockStep
	pending  []byte
	failures int
	errMsg   string
}

// unlockSubmitMsg carries the entered password. The receiver erases it.
type unlockSubmitMsg struct {
	password []byte
}

// unlockFailedMsg reports that the session could not be opened.
type unlockFailedMsg struct {
	err error
}

func newUnlockModel(create bool) unlockModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	return unlockModel{input: ti, create: create}
}

func (m unlockModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m unlockModel) Update(msg tea.Msg) (unlockModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC:
			return m.reset(), tea.Quit
		case msg.Type == tea.KeyEsc && m.step == stepConfirm:
			m = m.reset()
			m.errMsg = ""
			return m, nil
		case key.Matches(msg, zstyle.KeyEnter):
			return m.submit()
		}

	case unlockFailedMsg:
		m = m.reset()
		m.failures++
		m.errMsg = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// reset clears the input and any half-entered new password.
func (m unlockModel) reset() unlockModel {
	zcrypto.Erase(m.pending)
	m.pending = nil
	m.step = stepPassword
	m.input.SetValue("")
	return m
}

func (m unlockModel) submit() (unlockModel, tea.Cmd) {
	entered := []byte(m.input.Value())
	m.input.SetValue("")
	if len(entered) == 0 {
		return m, nil
	}

	if m.create && m.step == stepPassword {
		m.pending = entered
		m.step = stepConfirm
		m.errMsg = ""
		return m, nil
	}

	if m.create && string(entered) != string(m.pending) {
		zcrypto.Erase(entered)
		m = m.reset()
		m.errMsg = "passwords do not match"
		return m, nil
	}

	m = m.reset()
	m.errMsg = ""
	return m, func() tea.Msg {
		return unlockSubmitMsg{password: entered}
	}
}

func (m unlockModel) prompt() string {
	switch {
	case !m.create:
		return "session password:"
	case m.step == stepConfirm:
		return "confirm password:"
	default:
		return "new session password:"
	}
}

func (m unlockModel) View() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(zstyle.StyledLogo(lipgloss.NewStyle().Foreground(accent)))
	name := indent.Render(zstyle.MutedText.Render("zpeople"))

	s := fmt.Sprintf("\n%s\n%s\n\n  %s\n  %s\n", logo, name, m.prompt(), m.input.View())

	switch {
	case m.create && m.step == stepPassword:
		s += "\n  " + zstyle.MutedText.Render("records are kept until you log out or end the session")
	case m.step == stepConfirm:
		s += "\n  " + zstyle.MutedText.Render("esc to start over")
	}

	if m.errMsg != "" {
		s += "\n  " + zstyle.StatusErr.Render(m.errMsg)
	}
	if m.failures >= forgottenAfter {
		s += "\n  " + zstyle.MutedText.Render("forgot it? `zpeople end-session` discards this session")
	}

	s += "\n"
	return s
}
