package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/zarlcorp/zpeople/internal/person"
)

// fill sets form inputs by schema path.
func fill(t *testing.T, m formModel, values map[string]string) formModel {
	t.Helper()
	for i := range m.count() {
		if v, ok := values[m.pathAt(i)]; ok {
			m.at(i).SetValue(v)
		}
	}
	return m
}

func fillDetails(t *testing.T, m formModel, d person.Details) formModel {
	t.Helper()
	values := map[string]string{
		"firstName":         d.FirstName,
		"lastName":          d.LastName,
		"birth.date":        d.Birth.Date,
		"birth.place":       d.Birth.Place,
		"mothersMaidenName": d.MothersMaidenName,
		"tajNumber":         d.TAJNumber,
		"taxId":             d.TaxID,
		"email":             d.Email,
		"phoneNumber":       d.PhoneNumber,
	}
	for i, a := range d.Address {
		values[addressPath(i, addrPostalCode)] = a.PostalCode
		values[addressPath(i, addrCity)] = a.City
		values[addressPath(i, addrStreet)] = a.Street
		values[addressPath(i, addrHouseNumber)] = a.HouseNumber
	}
	return fill(t, m, values)
}

func TestFormCreateStartsWithOneAddress(t *testing.T) {
	m := newFormModel(nil)

	if m.editing {
		t.Error("new form should not be editing")
	}
	if len(m.inputs) != len(personInputs) {
		t.Errorf("inputs = %d, want %d", len(m.inputs), len(personInputs))
	}
	if len(m.addresses) != 1 {
		t.Errorf("addresses = %d, want 1", len(m.addresses))
	}
	if !m.at(0).Focused() {
		t.Error("first input should be focused")
	}
}

func TestFormCreateSubmitsDetails(t *testing.T) {
	m := fillDetails(t, newFormModel(nil), testDetails())

	m, cmd := m.Update(enterKey())
	if cmd == nil {
		t.Fatalf("expected submit, flash %q errors %v", m.flash, m.errors)
	}
	msg, ok := cmd().(createPersonMsg)
	if !ok {
		t.Fatalf("got %T, want createPersonMsg", cmd())
	}
	if diff := cmp.Diff(testDetails(), msg.details); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestFormTrimsInput(t *testing.T) {
	d := testDetails()
	d.Email = "  john@example.com "
	m := fillDetails(t, newFormModel(nil), d)

	_, cmd := m.Update(enterKey())
	msg, ok := cmd().(createPersonMsg)
	if !ok {
		t.Fatalf("got %T, want createPersonMsg", cmd())
	}
	if msg.details.Email != "john@example.com" {
		t.Errorf("email = %q", msg.details.Email)
	}
}

func TestFormCreateShowsFieldErrors(t *testing.T) {
	m := newFormModel(nil)
	m = fill(t, m, map[string]string{"firstName": "John", "birth.date": "1990-02-30"})

	m, _ = m.Update(enterKey())

	tests := []struct {
		path string
		want string
	}{
		{"lastName", "Last name is required"},
		{"birth.date", "Not a valid date"},
		{"email", "Invalid email address"},
		{"address.0.city", "Required"},
	}
	for _, tt := range tests {
		if got := m.errors[tt.path]; got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.path, got, tt.want)
		}
	}
	if _, ok := m.errors["firstName"]; ok {
		t.Error("valid first name should not be flagged")
	}

	// focus jumps to the first failing input
	if m.pathAt(m.focus) != "lastName" {
		t.Errorf("focus on %q, want lastName", m.pathAt(m.focus))
	}

	view := m.View()
	if !strings.Contains(view, "Not a valid date") {
		t.Error("view should show inline errors")
	}
	if !strings.Contains(m.flash, "to fix") {
		t.Errorf("flash = %q", m.flash)
	}
}

func TestFormTypingClearsFieldError(t *testing.T) {
	m := newFormModel(nil)
	m, _ = m.Update(enterKey())

	if _, ok := m.errors["firstName"]; !ok {
		t.Fatal("expected first name error")
	}

	m, _ = m.Update(keyMsg('J'))
	if _, ok := m.errors["firstName"]; ok {
		t.Error("typing should clear the field's error")
	}
	if m.at(0).Value() != "J" {
		t.Errorf("value = %q", m.at(0).Value())
	}
}

func TestFormFocusWraps(t *testing.T) {
	m := newFormModel(nil)
	last := m.count() - 1

	m, _ = m.Update(specialKey(tea.KeyShiftTab))
	if m.focus != last {
		t.Errorf("shift+tab from first: focus %d, want %d", m.focus, last)
	}

	m, _ = m.Update(specialKey(tea.KeyTab))
	if m.focus != 0 {
		t.Errorf("tab from last: focus %d, want 0", m.focus)
	}
	if !m.at(0).Focused() || m.at(last).Focused() {
		t.Error("focus state not moved")
	}
}

func TestFormAddAndRemoveAddress(t *testing.T) {
	m := newFormModel(nil)

	m, _ = m.Update(specialKey(tea.KeyCtrlN))
	if len(m.addresses) != 2 {
		t.Fatalf("addresses = %d, want 2", len(m.addresses))
	}
	if m.pathAt(m.focus) != "address.1.postalCode" {
		t.Errorf("focus on %q, want new address", m.pathAt(m.focus))
	}

	m.at(m.focus).SetValue("4024")
	m, _ = m.Update(specialKey(tea.KeyCtrlD))
	if len(m.addresses) != 1 {
		t.Fatalf("addresses = %d, want 1", len(m.addresses))
	}
	if m.focus >= m.count() {
		t.Errorf("focus %d out of range %d", m.focus, m.count())
	}
}

func TestFormRemoveOutsideAddress(t *testing.T) {
	m := newFormModel(nil)

	m, _ = m.Update(specialKey(tea.KeyCtrlD))

	if len(m.addresses) != 1 {
		t.Errorf("addresses = %d, want 1", len(m.addresses))
	}
	if m.flash == "" {
		t.Error("expected hint flash")
	}
}

func TestFormRequiresAnAddress(t *testing.T) {
	d := testDetails()
	m := fillDetails(t, newFormModel(nil), d)

	// focus the only address and remove it
	m = m.setFocus(len(m.inputs))
	m, _ = m.Update(specialKey(tea.KeyCtrlD))
	m, _ = m.Update(enterKey())

	if m.errors["address"] != "At least one address is required" {
		t.Errorf("address error = %q", m.errors["address"])
	}
	if !strings.Contains(m.View(), "At least one address is required") {
		t.Error("view should show the address error")
	}
}

func TestFormEditLocksNameAndBirth(t *testing.T) {
	p := person.Person{ID: "p-1", Details: testDetails()}
	m := newFormModel(&p)

	if !m.editing {
		t.Fatal("expected edit mode")
	}
	if len(m.locked) != 5 {
		t.Errorf("locked = %d, want 5", len(m.locked))
	}

	var paths []string
	for _, in := range m.inputs {
		paths = append(paths, in.path)
	}
	want := []string{"tajNumber", "taxId", "email", "phoneNumber"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("editable inputs (-want +got):\n%s", diff)
	}

	if m.at(2).Value() != "john@example.com" {
		t.Errorf("email prefilled = %q", m.at(2).Value())
	}
	if len(m.addresses) != 1 {
		t.Errorf("addresses = %d, want 1", len(m.addresses))
	}
}

func TestFormEditSubmitsReplacement(t *testing.T) {
	p := person.Person{ID: "p-1", Details: testDetails()}
	m := newFormModel(&p)
	m = fill(t, m, map[string]string{
		"email":          "john.doe@example.com",
		"address.0.city": "Szeged",
	})

	_, cmd := m.Update(enterKey())
	msg, ok := cmd().(updatePersonMsg)
	if !ok {
		t.Fatalf("got %T, want updatePersonMsg", cmd())
	}

	want := p.Clone()
	want.Email = "john.doe@example.com"
	want.Address[0].City = "Szeged"
	if diff := cmp.Diff(want, msg.person); diff != "" {
		t.Errorf("edited person (-want +got):\n%s", diff)
	}

	// the original record is untouched
	if p.Address[0].City != "Budapest" {
		t.Errorf("form mutated caller record")
	}
}

func TestFormEditIgnoresInvalidLockedFields(t *testing.T) {
	// records created before a rule change may fail the create rules
	d := testDetails()
	d.FirstName = "J"
	d.Birth.Date = "1850-01-01"
	p := person.Person{ID: "p-1", Details: d}

	_, cmd := newFormModel(&p).Update(enterKey())
	if _, ok := cmd().(updatePersonMsg); !ok {
		t.Fatalf("got %T, want updatePersonMsg", cmd())
	}
}

func TestFormEditValidatesContact(t *testing.T) {
	p := person.Person{ID: "p-1", Details: testDetails()}
	m := fill(t, newFormModel(&p), map[string]string{"phoneNumber": "12"})

	m, _ = m.Update(enterKey())

	if m.errors["phoneNumber"] != "Phone number is required" {
		t.Errorf("phone error = %q", m.errors["phoneNumber"])
	}
}

func TestFormEsc(t *testing.T) {
	_, cmd := newFormModel(nil).Update(escKey())
	if nav, ok := cmd().(navigateMsg); !ok || nav.view != viewList {
		t.Errorf("create esc: got %#v", cmd())
	}

	p := person.Person{ID: "p-1", Details: testDetails()}
	_, cmd = newFormModel(&p).Update(escKey())
	if msg, ok := cmd().(viewPersonMsg); !ok || msg.person.ID != "p-1" {
		t.Errorf("edit esc: got %#v", cmd())
	}
}

func TestFormViewEditShowsLockedValues(t *testing.T) {
	p := person.Person{ID: "p-1", Details: testDetails()}
	view := newFormModel(&p).View()

	for _, want := range []string{"John", "1990-01-01", "address 1 (primary)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
