// Package schema validates person details before they reach the store.
// Each schema is a flat list of rules; every rule is evaluated and all
// failures are reported together.
package schema

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zarlcorp/zpeople/internal/person"
)

// FieldError is one failed rule.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every failed rule of one validation pass.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Path + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByPath returns the first message for each failing path.
func (e *ValidationError) ByPath() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Path]; !ok {
			out[f.Path] = f.Message
		}
	}
	return out
}

// Rule checks one string field of a person against a validator tag.
type Rule struct {
	Path    string
	Value   func(person.Details) string
	Tag     string
	Message string
}

// Schema is a named set of rules with optional address rules.
type Schema struct {
	Name      string
	Rules     []Rule
	Addresses bool
}

// Validate evaluates every rule against d. It returns nil or a
// *ValidationError and never modifies d.
func (s Schema) Validate(d person.Details) error {
	var errs []FieldError

	for _, r := range s.Rules {
		if err := validate.Var(r.Value(d), r.Tag); err != nil {
			errs = append(errs, FieldError{Path: r.Path, Message: r.Message})
		}
	}

	if s.Addresses {
		errs = append(errs, validateAddresses(d.Address)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// Create accepts a complete new person.
var Create = Schema{
	Name: "create",
	Rules: concat(
		nameRules("firstName", "First name", func(d person.Details) string { return d.FirstName }),
		nameRules("lastName", "Last name", func(d person.Details) string { return d.LastName }),
		birthDateRules(),
		nameRules("birth.place", "Birthplace", func(d person.Details) string { return d.Birth.Place }),
		nameRules("mothersMaidenName", "Mother's maiden name", func(d person.Details) string { return d.MothersMaidenName }),
		contactRules(),
	),
	Addresses: true,
}

// Edit accepts the fields that can change after creation. Names and birth
// data are not editable.
var Edit = Schema{
	Name:      "edit",
	Rules:     contactRules(),
	Addresses: true,
}

func nameRules(path, label string, value func(person.Details) string) []Rule {
	return []Rule{
		{
			Path:    path,
			Value:   value,
			Tag:     "trimmedmin=2",
			Message: label + " is required",
		},
		{
			Path:    path,
			Value:   value,
			Tag:     "personname",
			Message: label + " can only contain letters, spaces, and hyphens",
		},
	}
}

func birthDateRules() []Rule {
	date := func(d person.Details) string { return d.Birth.Date }
	return []Rule{
		{
			Path:    "birth.date",
			Value:   date,
			Tag:     "birthformat",
			Message: "Date must be in the format YYYY-MM-DD or YYYY.MM.DD.",
		},
		{
			Path:    "birth.date",
			Value:   date,
			Tag:     "birthdate",
			Message: "Not a valid date",
		},
	}
}

func contactRules() []Rule {
	phone := func(d person.Details) string { return d.PhoneNumber }
	return []Rule{
		{
			Path:    "tajNumber",
			Value:   func(d person.Details) string { return d.TAJNumber },
			Tag:     "required",
			Message: "TAJ number is required",
		},
		{
			Path:    "taxId",
			Value:   func(d person.Details) string { return d.TaxID },
			Tag:     "required",
			Message: "Tax ID is required",
		},
		{
			Path:    "email",
			Value:   func(d person.Details) string { return d.Email },
			Tag:     "required,email",
			Message: "Invalid email address",
		},
		{
			Path:    "phoneNumber",
			Value:   phone,
			Tag:     "min=6",
			Message: "Phone number is required",
		},
		{
			Path:    "phoneNumber",
			Value:   phone,
			Tag:     "phonechars",
			Message: "Phone number can only contain numbers, +, -, and spaces",
		},
	}
}

func validateAddresses(addrs []person.Address) []FieldError {
	err := validate.Struct(newAddressSet(addrs))
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	errs := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		msg := "Required"
		if path == "address" {
			msg = "At least one address is required"
		}
		errs = append(errs, FieldError{Path: path, Message: msg})
	}
	return errs
}

func concat(groups ...[]Rule) []Rule {
	var out []Rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
