// Package tui implements the root Bubble Tea model for zpeople.
package tui

import (
	"errors"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpeople/internal/erase"
	"github.com/zarlcorp/zpeople/internal/person"
	"github.com/zarlcorp/zpeople/internal/session"
	"github.com/zarlcorp/zpeople/internal/store"
)

type viewID int

const (
	viewUnlock viewID = iota
	viewMenu
	viewList
	viewDetail
	viewForm
	viewConfirm
)

// changeBuffer bounds store events waiting for the update loop. Dropped
// events are harmless because views re-read the whole collection.
const changeBuffer = 16

var accent = zstyle.ZburnAccent

// Options configures the root model.
type Options struct {
	Version    string
	SessionDir string
	FirstRun   bool
	Ephemeral  bool // keep records in memory only, skip the password prompt
	Logger     *slog.Logger
}

// Model is the root TUI model.
type Model struct {
	version    string
	sessionDir string
	firstRun   bool
	ephemeral  bool
	log        *slog.Logger

	vault   *session.Vault
	records *store.Store
	changes chan store.Event
	unsub   func()
	clip    erase.Clipboard

	active   viewID
	unlock   unlockModel
	menu     menuModel
	list     listModel
	detail   detailModel
	form     formModel
	confirm  confirmModel

	// terminal dimensions
	width  int
	height int
}

// personsChangedMsg is delivered after every store change.
type personsChangedMsg struct {
	kind store.Kind
	id   string
}

// persistErrMsg carries a failed write-through.
type persistErrMsg struct {
	err error
}

// endSessionMsg asks the root to wipe the session and quit.
type endSessionMsg struct{}

// New creates the root TUI model.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := Model{
		version:    opts.Version,
		sessionDir: opts.SessionDir,
		firstRun:   opts.FirstRun,
		ephemeral:  opts.Ephemeral,
		log:        log,
		clip:       systemClipboard(),
		active:     viewUnlock,
		unlock:     newUnlockModel(opts.FirstRun),
	}

	if opts.Ephemeral {
		records := store.New(store.WithSlot(session.NewMemory()), store.WithLogger(log))
		// an empty memory slot cannot fail to load
		_ = records.Hydrate()
		m = m.attach(records)
		m.menu = newMenuModel(m.version, 0, true)
		m.active = viewMenu
	}

	return m
}

func (m Model) Init() tea.Cmd {
	if m.records != nil {
		return m.watch()
	}
	return m.unlock.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case unlockSubmitMsg:
		return m.openSession(msg.password)

	case navigateMsg:
		return m.navigate(msg.view)

	case personsChangedMsg:
		return m.handleChange(msg)

	case persistErrMsg:
		return m.handlePersistErr(msg.err)

	case newPersonMsg:
		m.form = newFormModel(nil)
		m.active = viewForm
		return m, tea.Batch(m.form.Init(), tea.ClearScreen)

	case editPersonMsg:
		if msg.person.Anonymized() {
			return m.flashActive("anonymized records cannot be edited")
		}
		p := msg.person
		m.form = newFormModel(&p)
		m.active = viewForm
		return m, tea.Batch(m.form.Init(), tea.ClearScreen)

	case viewPersonMsg:
		m.detail = newDetailModel(msg.person, m.clip)
		m.active = viewDetail
		return m, tea.ClearScreen

	case createPersonMsg:
		return m.handleCreate(msg.details)

	case updatePersonMsg:
		return m.handleUpdate(msg.person)

	case eraseStartMsg:
		return m.startErase(msg.person, msg.action)

	case eraseConfirmMsg:
		return m.executeErase(msg.person, msg.action)

	case eraseResultMsg:
		m.confirm, _ = m.confirm.Update(msg)
		if err := msg.result.Err(); err != nil {
			m.log.Warn("erase", "action", msg.result.Action, "err", err)
		}
		return m, closeConfirmAfter()

	case confirmTimeoutMsg:
		if m.active != viewConfirm || m.confirm.phase != confirmDone {
			return m, nil
		}
		return m.navigate(m.confirm.returnTo)

	case endSessionMsg:
		return m.endSession()
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	// unlock and menu include the logo, render directly
	switch m.active {
	case viewUnlock:
		return m.unlock.View()
	case viewMenu:
		return m.menu.View()
	}

	var content string
	switch m.active {
	case viewList:
		content = m.list.View()
	case viewDetail:
		content = m.detail.View()
	case viewForm:
		content = m.form.View()
	case viewConfirm:
		content = m.confirm.View()
	}

	header := zstyle.RenderHeader("zpeople", m.viewTitle(), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(helpFor(m.active, m.form.editing))

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

func (m Model) viewTitle() string {
	switch m.active {
	case viewList:
		return "People"
	case viewDetail:
		return "Person"
	case viewForm:
		if m.form.editing {
			return "Edit Person"
		}
		return "New Person"
	case viewConfirm:
		if m.confirm.action == erase.Depersonalize {
			return "Anonymize"
		}
		return "Delete"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func helpFor(id viewID, editing bool) []zstyle.HelpPair {
	switch id {
	case viewList:
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "enter", Desc: "view"},
			{Key: "n", Desc: "new"},
			{Key: "e", Desc: "edit"},
			{Key: "a", Desc: "anonymize"},
			{Key: "d", Desc: "delete"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewDetail:
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "copy field"},
			{Key: "c", Desc: "copy all"},
			{Key: "e", Desc: "edit"},
			{Key: "a", Desc: "anonymize"},
			{Key: "d", Desc: "delete"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewForm:
		pairs := []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "shift+tab", Desc: "prev"},
			{Key: "ctrl+n", Desc: "add address"},
			{Key: "ctrl+d", Desc: "remove address"},
			{Key: "enter", Desc: "save"},
		}
		if editing {
			return append(pairs, zstyle.HelpPair{Key: "esc", Desc: "discard"})
		}
		return append(pairs, zstyle.HelpPair{Key: "esc", Desc: "cancel"})
	case viewConfirm:
		return []zstyle.HelpPair{
			{Key: "y", Desc: "confirm"},
			{Key: "n", Desc: "cancel"},
			{Key: "q", Desc: "quit"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewUnlock:
		m.unlock, cmd = m.unlock.Update(msg)
	case viewMenu:
		m.menu, cmd = m.menu.Update(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case viewForm:
		m.form, cmd = m.form.Update(msg)
	case viewConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	}

	return m, cmd
}

func (m Model) openSession(password []byte) (tea.Model, tea.Cmd) {
	v, err := session.OpenDir(m.sessionDir, password)
	zcrypto.Erase(password)
	if err != nil {
		if errors.Is(err, zstore.ErrWrongPassword) {
			err = errors.New("wrong password")
		}
		m.unlock, _ = m.unlock.Update(unlockFailedMsg{err: err})
		return m, nil
	}

	m.vault = v
	m = m.attach(store.New(
		store.WithSlot(v.Slot(session.PersonKey)),
		store.WithLogger(m.log),
	))

	hydrateErr := m.records.Hydrate()
	m.list = newListModel(m.records.Persons())

	if hydrateErr != nil {
		m.log.Warn("hydrate session", "err", hydrateErr)
		m.menu = newMenuModel(m.version, 0, false)
		m.menu.flash = "saved session unreadable, starting empty"
		m.active = viewMenu
		return m, tea.Batch(m.watch(), clearFlashAfter())
	}

	m.menu = newMenuModel(m.version, m.records.Len(), false)
	m.active = viewMenu
	return m, m.watch()
}

// attach makes s the model's record store and subscribes to its changes.
func (m Model) attach(s *store.Store) Model {
	ch := make(chan store.Event, changeBuffer)
	m.records = s
	m.changes = ch
	m.unsub = s.Subscribe(func(ev store.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return m
}

// watch waits for the next store event and the next write-through failure.
func (m Model) watch() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		waitForPersistErr(m.records.Errors()),
	)
}

func waitForChange(ch <-chan store.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return personsChangedMsg{kind: ev.Kind, id: ev.ID}
	}
}

func waitForPersistErr(errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return persistErrMsg{err: err}
	}
}

func (m Model) handleChange(msg personsChangedMsg) (tea.Model, tea.Cmd) {
	next := waitForChange(m.changes)
	if m.records == nil {
		return m, nil
	}

	persons := m.records.Persons()
	m.menu.count = len(persons)
	m.list = m.list.withPersons(persons)

	if m.active == viewDetail && m.detail.person.ID == msg.id {
		p, err := m.records.Get(msg.id)
		if errors.Is(err, store.ErrNotFound) {
			m, cmd := m.navigate(viewList)
			return m, tea.Batch(next, cmd)
		}
		m.detail = m.detail.withPerson(p)
	}

	return m, next
}

func (m Model) handlePersistErr(err error) (tea.Model, tea.Cmd) {
	m.log.Error("session write", "err", err)
	if m.records == nil {
		return m, nil
	}
	next := waitForPersistErr(m.records.Errors())

	res, cmd := m.flashActive("not saved to session: " + err.Error())
	return res, tea.Batch(next, cmd)
}

// flashActive shows text in the active view's flash line.
func (m Model) flashActive(text string) (Model, tea.Cmd) {
	switch m.active {
	case viewMenu:
		m.menu.flash = text
	case viewList:
		m.list.flash = text
	case viewDetail:
		m.detail.flash = text
	case viewForm:
		m.form.flash = text
	default:
		return m, nil
	}
	return m, clearFlashAfter()
}

func (m Model) navigate(view viewID) (Model, tea.Cmd) {
	switch view {
	case viewMenu:
		count := 0
		if m.records != nil {
			count = m.records.Len()
		}
		m.menu = newMenuModel(m.version, count, m.ephemeral)
		m.active = viewMenu
		return m, tea.ClearScreen

	case viewList:
		m.list = m.list.withPersons(m.records.Persons())
		m.active = viewList
		return m, tea.ClearScreen

	case viewDetail:
		p, err := m.records.Get(m.detail.person.ID)
		if err != nil {
			m.list = m.list.withPersons(m.records.Persons())
			m.active = viewList
			return m, tea.ClearScreen
		}
		m.detail = m.detail.withPerson(p)
		m.active = viewDetail
		return m, tea.ClearScreen
	}

	return m, nil
}

func (m Model) handleCreate(d person.Details) (tea.Model, tea.Cmd) {
	p, err := m.records.Add(d)
	if err != nil {
		m.form.flash = "save: " + err.Error()
		return m, clearFlashAfter()
	}

	m.log.Info("person added", "id", p.ID)
	m.detail = newDetailModel(p, m.clip)
	m.detail.flash = "saved"
	m.active = viewDetail
	return m, tea.Batch(tea.ClearScreen, clearFlashAfter())
}

func (m Model) handleUpdate(p person.Person) (tea.Model, tea.Cmd) {
	if err := m.records.Edit(p); err != nil {
		m.form.flash = "save: " + err.Error()
		return m, clearFlashAfter()
	}

	m.log.Info("person edited", "id", p.ID)
	stored, err := m.records.Get(p.ID)
	if err != nil {
		stored = p
	}
	m.detail = newDetailModel(stored, m.clip)
	m.detail.flash = "updated"
	m.active = viewDetail
	return m, tea.Batch(tea.ClearScreen, clearFlashAfter())
}

func (m Model) startErase(p person.Person, action erase.Action) (tea.Model, tea.Cmd) {
	if action == erase.Depersonalize && p.Anonymized() {
		return m.flashActive("already anonymized")
	}

	returnTo := viewList
	if m.active == viewDetail && action == erase.Depersonalize {
		returnTo = viewDetail
	}

	req := m.eraseRequest(p, action)
	m.confirm = newConfirmModel(p, action, erase.Plan(req), m.active, returnTo)
	m.active = viewConfirm
	return m, tea.ClearScreen
}

func (m Model) executeErase(p person.Person, action erase.Action) (tea.Model, tea.Cmd) {
	req := m.eraseRequest(p, action)
	return m, func() tea.Msg {
		return eraseResultMsg{result: erase.Execute(req)}
	}
}

func (m Model) eraseRequest(p person.Person, action erase.Action) erase.Request {
	return erase.Request{
		Person:    p,
		Action:    action,
		Records:   m.records,
		Clipboard: m.clip,
	}
}

func (m Model) endSession() (tea.Model, tea.Cmd) {
	m = m.shutdown()
	if !m.ephemeral {
		if err := session.End(m.sessionDir); err != nil {
			m.log.Error("end session", "err", err)
			return m, tea.Quit
		}
		m.log.Info("session ended", "dir", m.sessionDir)
	}
	return m, tea.Quit
}

// shutdown releases the store and the vault and returns the model without
// them.
func (m Model) shutdown() Model {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	if m.records != nil {
		m.records.Close()
		m.records = nil
	}
	if m.vault != nil {
		m.vault.Close()
		m.vault = nil
	}
	return m
}

// Close cleans up resources. Call after the program exits.
func (m Model) Close() {
	m.shutdown()
}
