package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpeople/internal/person"
	"github.com/zarlcorp/zpeople/internal/schema"
)

const (
	addrPostalCode = iota
	addrCity
	addrStreet
	addrHouseNumber
	addrFieldCount
)

var addrKeys = [addrFieldCount]string{"postalCode", "city", "street", "houseNumber"}

var addrLabels = [addrFieldCount]string{"postal code", "city", "street", "house no."}

// inputDef describes one person-level input. Locked inputs are shown but
// not editable when editing an existing record.
type inputDef struct {
	path        string
	label       string
	placeholder string
	locked      bool
}

var personInputs = []inputDef{
	{path: "firstName", label: "first name", locked: true},
	{path: "lastName", label: "last name", locked: true},
	{path: "birth.date", label: "birth date", placeholder: "YYYY-MM-DD", locked: true},
	{path: "birth.place", label: "birthplace", locked: true},
	{path: "mothersMaidenName", label: "mother's name", locked: true},
	{path: "tajNumber", label: "TAJ number"},
	{path: "taxId", label: "tax ID"},
	{path: "email", label: "email"},
	{path: "phoneNumber", label: "phone", placeholder: "+36 30 1234567"},
}

type formInput struct {
	path  string
	label string
	input textinput.Model
}

// formModel creates a person, or edits the contact data and addresses of
// an existing one.
type formModel struct {
	editing   bool
	existing  person.Person
	locked    []personField
	inputs    []formInput
	addresses [][addrFieldCount]textinput.Model
	focus     int
	errors    map[string]string
	flash     string
}

// createPersonMsg submits validated details for a new person.
type createPersonMsg struct {
	details person.Details
}

// updatePersonMsg submits a validated edit.
type updatePersonMsg struct {
	person person.Person
}

func newTextInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 128
	ti.Width = 40
	ti.Prompt = ""
	ti.Placeholder = placeholder
	return ti
}

func newFormModel(existing *person.Person) formModel {
	var m formModel

	if existing != nil {
		m.editing = true
		m.existing = existing.Clone()
	}

	for _, def := range personInputs {
		if m.editing && def.locked {
			m.locked = append(m.locked, personField{
				label: def.label,
				value: fieldValue(m.existing.Details, def.path),
			})
			continue
		}
		ti := newTextInput(def.placeholder)
		if m.editing {
			ti.SetValue(fieldValue(m.existing.Details, def.path))
		}
		m.inputs = append(m.inputs, formInput{path: def.path, label: def.label, input: ti})
	}

	if m.editing {
		for _, a := range m.existing.Address {
			m = m.appendAddress(a)
		}
	} else {
		m = m.appendAddress(person.Address{})
	}

	if p := m.at(0); p != nil {
		p.Focus()
	}
	return m
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m.updateInput(msg)
}

func (m formModel) handleKey(msg tea.KeyMsg) (formModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		return m.cancel()
	case tea.KeyTab, tea.KeyDown:
		return m.moveFocus(1), textinput.Blink
	case tea.KeyShiftTab, tea.KeyUp:
		return m.moveFocus(-1), textinput.Blink
	case tea.KeyCtrlN:
		m = m.appendAddress(person.Address{})
		return m.setFocus(m.count() - addrFieldCount), textinput.Blink
	case tea.KeyCtrlD:
		return m.removeFocusedAddress()
	case tea.KeyEnter:
		return m.submit()
	}

	return m.updateInput(msg)
}

func (m formModel) cancel() (formModel, tea.Cmd) {
	if m.editing {
		p := m.existing
		return m, func() tea.Msg { return viewPersonMsg{person: p} }
	}
	return m, func() tea.Msg { return navigateMsg{view: viewList} }
}

// count returns the number of focusable inputs.
func (m formModel) count() int {
	return len(m.inputs) + len(m.addresses)*addrFieldCount
}

// at returns the input with focus index i.
func (m formModel) at(i int) *textinput.Model {
	if i < 0 || i >= m.count() {
		return nil
	}
	if i < len(m.inputs) {
		return &m.inputs[i].input
	}
	j := i - len(m.inputs)
	return &m.addresses[j/addrFieldCount][j%addrFieldCount]
}

// pathAt returns the schema path of the input with focus index i.
func (m formModel) pathAt(i int) string {
	if i < len(m.inputs) {
		return m.inputs[i].path
	}
	j := i - len(m.inputs)
	return addressPath(j/addrFieldCount, j%addrFieldCount)
}

func addressPath(n, field int) string {
	return "address." + strconv.Itoa(n) + "." + addrKeys[field]
}

func (m formModel) setFocus(i int) formModel {
	if p := m.at(m.focus); p != nil {
		p.Blur()
	}
	m.focus = i
	if p := m.at(m.focus); p != nil {
		p.Focus()
	}
	return m
}

func (m formModel) moveFocus(delta int) formModel {
	n := m.count()
	if n == 0 {
		return m
	}
	return m.setFocus((m.focus + delta + n) % n)
}

func (m formModel) appendAddress(a person.Address) formModel {
	var row [addrFieldCount]textinput.Model
	for i := range addrFieldCount {
		row[i] = newTextInput("")
	}
	row[addrPostalCode].SetValue(a.PostalCode)
	row[addrCity].SetValue(a.City)
	row[addrStreet].SetValue(a.Street)
	row[addrHouseNumber].SetValue(a.HouseNumber)
	m.addresses = append(m.addresses, row)
	return m
}

func (m formModel) removeFocusedAddress() (formModel, tea.Cmd) {
	j := m.focus - len(m.inputs)
	if j < 0 {
		m.flash = "move to an address to remove it"
		return m, clearFlashAfter()
	}

	if p := m.at(m.focus); p != nil {
		p.Blur()
	}

	n := j / addrFieldCount
	addrs := make([][addrFieldCount]textinput.Model, 0, len(m.addresses)-1)
	addrs = append(addrs, m.addresses[:n]...)
	addrs = append(addrs, m.addresses[n+1:]...)
	m.addresses = addrs

	// address indices shifted, old messages no longer line up
	m.errors = nil

	focus := min(m.focus, m.count()-1)
	m.focus = -1
	m = m.setFocus(max(focus, 0))
	m.flash = fmt.Sprintf("removed address %d", n+1)
	return m, clearFlashAfter()
}

func (m formModel) updateInput(msg tea.Msg) (formModel, tea.Cmd) {
	p := m.at(m.focus)
	if p == nil {
		return m, nil
	}

	before := p.Value()
	var cmd tea.Cmd
	*p, cmd = p.Update(msg)

	if p.Value() != before && m.errors != nil {
		delete(m.errors, m.pathAt(m.focus))
	}
	return m, cmd
}

// details collects the form into person details. In edit mode the locked
// fields come from the existing record.
func (m formModel) details() person.Details {
	var d person.Details
	if m.editing {
		d = m.existing.Details.Clone()
	}

	for _, in := range m.inputs {
		setFieldValue(&d, in.path, strings.TrimSpace(in.input.Value()))
	}

	d.Address = make([]person.Address, len(m.addresses))
	for i, row := range m.addresses {
		d.Address[i] = person.Address{
			PostalCode:  strings.TrimSpace(row[addrPostalCode].Value()),
			City:        strings.TrimSpace(row[addrCity].Value()),
			Street:      strings.TrimSpace(row[addrStreet].Value()),
			HouseNumber: strings.TrimSpace(row[addrHouseNumber].Value()),
		}
	}
	return d
}

func (m formModel) rules() schema.Schema {
	if m.editing {
		return schema.Edit
	}
	return schema.Create
}

func (m formModel) submit() (formModel, tea.Cmd) {
	d := m.details()

	err := m.rules().Validate(d)
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		m.errors = verr.ByPath()
		if first := m.firstInvalid(); first >= 0 {
			m = m.setFocus(first)
		}
		m.flash = fmt.Sprintf("%d %s to fix", len(m.errors), pluralize(len(m.errors), "field", "fields"))
		return m, clearFlashAfter()
	}

	m.errors = nil

	if m.editing {
		p := m.existing
		p.Details = d
		return m, func() tea.Msg { return updatePersonMsg{person: p} }
	}
	return m, func() tea.Msg { return createPersonMsg{details: d} }
}

func (m formModel) firstInvalid() int {
	for i := range m.count() {
		if _, ok := m.errors[m.pathAt(i)]; ok {
			return i
		}
	}
	return -1
}

func (m formModel) View() string {
	s := "\n"

	if m.editing {
		for _, f := range m.locked {
			label := zstyle.MutedText.Render(fmt.Sprintf("  %-14s", f.label))
			s += fmt.Sprintf("  %s %s\n", label, zstyle.MutedText.Render(f.value))
		}
		s += "\n"
	}

	for i, in := range m.inputs {
		s += m.row(i, in.label, in.path)
	}

	for n := range m.addresses {
		heading := fmt.Sprintf("address %d", n+1)
		if n == 0 {
			heading += " (primary)"
		}
		s += "\n  " + zstyle.Subtitle.Render(heading) + "\n"
		for f := range addrFieldCount {
			i := len(m.inputs) + n*addrFieldCount + f
			s += m.row(i, addrLabels[f], addressPath(n, f))
		}
	}

	if msg, ok := m.errors["address"]; ok {
		s += "\n  " + zstyle.StatusErr.Render(msg) + "  " + zstyle.MutedText.Render("ctrl+n to add one") + "\n"
	}

	s += "\n"

	if m.flash != "" {
		s += "  " + zstyle.StatusWarn.Render(m.flash) + "\n"
	} else {
		s += "\n"
	}

	return s
}

func (m formModel) row(i int, label, path string) string {
	cursor := "  "
	if i == m.focus {
		cursor = "> "
	}

	in := m.at(i)
	s := fmt.Sprintf("  %s%s %s\n", cursor, zstyle.MutedText.Render(fmt.Sprintf("%-14s", label)), in.View())
	if msg, ok := m.errors[path]; ok {
		s += fmt.Sprintf("  %18s%s\n", "", zstyle.StatusErr.Render(msg))
	}
	return s
}

func fieldValue(d person.Details, path string) string {
	switch path {
	case "firstName":
		return d.FirstName
	case "lastName":
		return d.LastName
	case "birth.date":
		return d.Birth.Date
	case "birth.place":
		return d.Birth.Place
	case "mothersMaidenName":
		return d.MothersMaidenName
	case "tajNumber":
		return d.TAJNumber
	case "taxId":
		return d.TaxID
	case "email":
		return d.Email
	case "phoneNumber":
		return d.PhoneNumber
	}
	return ""
}

func setFieldValue(d *person.Details, path, v string) {
	switch path {
	case "firstName":
		d.FirstName = v
	case "lastName":
		d.LastName = v
	case "birth.date":
		d.Birth.Date = v
	case "birth.place":
		d.Birth.Place = v
	case "mothersMaidenName":
		d.MothersMaidenName = v
	case "tajNumber":
		d.TAJNumber = v
	case "taxId":
		d.TaxID = v
	case "email":
		d.Email = v
	case "phoneNumber":
		d.PhoneNumber = v
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
