// Package erase plans and runs the two destructive record operations:
// deleting a person and depersonalizing one.
package erase

import (
	"fmt"
	"strings"

	"github.com/zarlcorp/zpeople/internal/person"
)

// Action selects what happens to the record.
type Action int

const (
	Delete Action = iota
	Depersonalize
)

func (a Action) String() string {
	if a == Depersonalize {
		return "anonymize"
	}
	return "delete"
}

// Records removes or depersonalizes stored persons.
type Records interface {
	Delete(id string) error
	Depersonalize(id string) error
}

// Clipboard reads and replaces the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Request describes what to erase.
type Request struct {
	Person    person.Person
	Action    Action
	Records   Records
	Clipboard Clipboard // nil when no clipboard is available
}

// StepStatus records the outcome of one step.
type StepStatus struct {
	Description string
	Err         error
}

// Result summarizes a completed erase.
type Result struct {
	Name   string
	Action Action
	Steps  []StepStatus
}

// HasErrors returns true if any step failed.
func (r Result) HasErrors() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Err returns the first step error.
func (r Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Summary returns a human-readable summary of the result.
func (r Result) Summary() string {
	var b strings.Builder

	verb := "deleted"
	if r.Action == Depersonalize {
		verb = "anonymized"
	}

	if r.HasErrors() {
		fmt.Fprintf(&b, "%s %s (with errors)", verb, r.Name)
	} else {
		fmt.Fprintf(&b, "%s %s", verb, r.Name)
	}

	for _, s := range r.Steps {
		if s.Err != nil {
			fmt.Fprintf(&b, "\n- %s: %v", s.Description, s.Err)
		} else {
			fmt.Fprintf(&b, "\n- %s", s.Description)
		}
	}

	return b.String()
}

// Plan returns human-readable descriptions of what Execute will do, for
// the confirmation dialog.
func Plan(req Request) []string {
	p := req.Person
	var steps []string

	switch req.Action {
	case Depersonalize:
		steps = append(steps,
			fmt.Sprintf("replace name with %q", person.AnonymizedLabel),
			"erase birth data, mother's maiden name, TAJ number, tax ID, email and phone",
			fmt.Sprintf("remove %s", plural(len(p.Address), "address", "addresses")),
			"keep the record in the list",
		)
	default:
		steps = append(steps, fmt.Sprintf("delete the record with %s",
			plural(len(p.Address), "address", "addresses")))
	}

	if req.Clipboard != nil {
		steps = append(steps, "clear the clipboard if it holds this person's data")
	}

	return steps
}

// Execute runs the erase. Clearing the clipboard is best-effort; the
// record step runs whether or not it succeeded.
func Execute(req Request) Result {
	result := Result{Name: req.Person.Name(), Action: req.Action}

	if req.Clipboard != nil {
		result.clearClipboard(req)
	}

	switch req.Action {
	case Depersonalize:
		result.depersonalize(req)
	default:
		result.delete(req)
	}

	return result
}

func (r *Result) clearClipboard(req Request) {
	current, err := req.Clipboard.ReadAll()
	if err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "read clipboard",
			Err:         err,
		})
		return
	}

	if !holdsPersonData(current, req.Person) {
		return
	}

	if err := req.Clipboard.WriteAll(""); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "clear clipboard",
			Err:         err,
		})
		return
	}
	r.Steps = append(r.Steps, StepStatus{Description: "cleared clipboard"})
}

func (r *Result) delete(req Request) {
	if err := req.Records.Delete(req.Person.ID); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "delete record",
			Err:         err,
		})
		return
	}
	r.Steps = append(r.Steps, StepStatus{Description: "deleted record"})
}

func (r *Result) depersonalize(req Request) {
	if err := req.Records.Depersonalize(req.Person.ID); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "anonymize record",
			Err:         err,
		})
		return
	}
	r.Steps = append(r.Steps, StepStatus{
		Description: fmt.Sprintf("erased personal data and %s",
			plural(len(req.Person.Address), "address", "addresses")),
	})
}

// holdsPersonData reports whether clip is one of p's values or contains
// any of them.
func holdsPersonData(clip string, p person.Person) bool {
	clip = strings.TrimSpace(clip)
	if clip == "" {
		return false
	}

	for _, v := range identifyingValues(p) {
		v = strings.TrimSpace(v)
		if v != "" && strings.Contains(clip, v) {
			return true
		}
	}
	return false
}

func identifyingValues(p person.Person) []string {
	vals := []string{
		p.Name(),
		p.Birth.Date,
		p.MothersMaidenName,
		p.TAJNumber,
		p.TaxID,
		p.Email,
		p.PhoneNumber,
	}
	for _, a := range p.Address {
		vals = append(vals, a.Street+" "+a.HouseNumber)
	}
	return vals
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
