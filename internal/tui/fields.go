package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/zpeople/internal/person"
)

// personField is a labeled value for display and copying.
type personField struct {
	label string
	value string
}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

func personFields(p person.Person) []personField {
	fields := []personField{
		{"id", p.ID},
		{"name", p.Name()},
		{"born", p.Birth.Date},
		{"birthplace", p.Birth.Place},
		{"mother", p.MothersMaidenName},
		{"taj", p.TAJNumber},
		{"tax id", p.TaxID},
		{"email", p.Email},
		{"phone", p.PhoneNumber},
	}
	for i, a := range p.Address {
		fields = append(fields, personField{
			label: fmt.Sprintf("address %d", i+1),
			value: formatAddress(a),
		})
	}
	return fields
}

// formatAddress renders an address the Hungarian way: "1011 Budapest, Fő utca 1".
func formatAddress(a person.Address) string {
	place := strings.TrimSpace(a.PostalCode + " " + a.City)
	street := strings.TrimSpace(a.Street + " " + a.HouseNumber)
	switch {
	case place == "":
		return street
	case street == "":
		return place
	}
	return place + ", " + street
}

func fieldsText(fields []personField) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
	}
	return b.String()
}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}

// confirmTimeoutMsg closes a finished confirm dialog.
type confirmTimeoutMsg struct{}

func closeConfirmAfter() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return confirmTimeoutMsg{}
	})
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
