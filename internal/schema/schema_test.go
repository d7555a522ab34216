package schema

import (
	"errors"
	"testing"

	"github.com/zarlcorp/zpeople/internal/person"
)

func validDetails() person.Details {
	return person.Details{
		FirstName:         "John",
		LastName:          "Doe",
		Birth:             person.Birth{Date: "1990-01-01", Place: "City"},
		MothersMaidenName: "Jane Doe",
		TAJNumber:         "123456789",
		TaxID:             "987654321",
		Email:             "john.doe@example.com",
		PhoneNumber:       "1234567890",
		Address: []person.Address{
			{PostalCode: "1234", City: "City", Street: "Main St", HouseNumber: "1"},
		},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a *ValidationError", err)
	}
	return verr.ByPath()
}

func TestCreateAcceptsValid(t *testing.T) {
	if err := Create.Validate(validDetails()); err != nil {
		t.Fatalf("valid details rejected: %v", err)
	}
}

func TestCreateAcceptsDottedDate(t *testing.T) {
	d := validDetails()
	d.Birth.Date = "1990.01.01."
	if err := Create.Validate(d); err != nil {
		t.Fatalf("dotted date rejected: %v", err)
	}
}

func TestCreateAcceptsUnicodeNames(t *testing.T) {
	d := validDetails()
	d.FirstName = "Árpád"
	d.LastName = "Kovács-Szabó"
	d.Birth.Place = "Hódmezővásárhely"
	d.MothersMaidenName = "Tóth Éva"
	if err := Create.Validate(d); err != nil {
		t.Fatalf("unicode names rejected: %v", err)
	}
}

func TestBirthDate(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantMsg string
	}{
		{"valid dashed", "1990-01-01", ""},
		{"valid dotted", "1985.12.31.", ""},
		{"leap day", "2000-02-29", ""},
		{"year 1900 rejected", "1900-06-01", "Not a valid date"},
		{"before 1900 rejected", "1899-12-31", "Not a valid date"},
		{"year 2024 rejected", "2024-01-01", "Not a valid date"},
		{"last accepted year", "2023-12-31", ""},
		{"invalid day for month", "1990-02-30", "Not a valid date"},
		{"non leap year", "1999-02-29", "Not a valid date"},
		{"month zero", "1990-00-10", "Not a valid date"},
		{"month thirteen", "1990-13-10", "Not a valid date"},
		{"day zero", "1990-01-00", "Not a valid date"},
		{"dotted without trailing dot", "1990.01.01", "Date must be in the format YYYY-MM-DD or YYYY.MM.DD."},
		{"slashes", "1990/01/01", "Date must be in the format YYYY-MM-DD or YYYY.MM.DD."},
		{"empty", "", "Date must be in the format YYYY-MM-DD or YYYY.MM.DD."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			d.Birth.Date = tt.date
			got := fieldErrors(t, Create.Validate(d))["birth.date"]
			if got != tt.wantMsg {
				t.Errorf("birth.date %q: message = %q, want %q", tt.date, got, tt.wantMsg)
			}
		})
	}
}

func TestMalformedDateReportsFormatOnly(t *testing.T) {
	d := validDetails()
	d.Birth.Date = "yesterday"

	var verr *ValidationError
	if !errors.As(Create.Validate(d), &verr) {
		t.Fatal("expected validation error")
	}

	count := 0
	for _, f := range verr.Fields {
		if f.Path == "birth.date" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("birth.date errors = %d, want 1", count)
	}
}

func TestNameRules(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"valid", "Anna", ""},
		{"with space and hyphen", "Anna-Maria Kiss", ""},
		{"too short", "A", "First name is required"},
		{"blank", "   ", "First name is required"},
		{"padded single letter", " A ", "First name is required"},
		{"digits", "Anna2", "First name can only contain letters, spaces, and hyphens"},
		{"punctuation", "O'Neil", "First name can only contain letters, spaces, and hyphens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			d.FirstName = tt.value
			got := fieldErrors(t, Create.Validate(d))["firstName"]
			if got != tt.wantMsg {
				t.Errorf("firstName %q: message = %q, want %q", tt.value, got, tt.wantMsg)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"john.doe@example.com", true},
		{"j+tag@mail.example.hu", true},
		{"john@example", false},
		{"@example.com", false},
		{"john@", false},
		{".john@example.com", false},
		{"john..doe@example.com", false},
		{"john doe@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			d := validDetails()
			d.Email = tt.email
			_, failed := fieldErrors(t, Create.Validate(d))["email"]
			if failed == tt.valid {
				t.Errorf("email %q: valid = %v, want %v", tt.email, !failed, tt.valid)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		phone   string
		wantMsg string
	}{
		{"+36 30 123-4567", ""},
		{"123456", ""},
		{"+36\u00a030\u00a01234567", ""},
		{"+36\u300030\t1234567", ""},
		{"12345", "Phone number is required"},
		{"+36 (30) 1234567", "Phone number can only contain numbers, +, -, and spaces"},
		{"phone!", "Phone number can only contain numbers, +, -, and spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			d := validDetails()
			d.PhoneNumber = tt.phone
			got := fieldErrors(t, Create.Validate(d))["phoneNumber"]
			if got != tt.wantMsg {
				t.Errorf("phone %q: message = %q, want %q", tt.phone, got, tt.wantMsg)
			}
		})
	}
}

func TestAddressRules(t *testing.T) {
	d := validDetails()
	d.Address = nil

	errs := fieldErrors(t, Create.Validate(d))
	if errs["address"] != "At least one address is required" {
		t.Errorf("address message = %q", errs["address"])
	}

	d.Address = []person.Address{
		{PostalCode: "1234", City: "City", Street: "Main St", HouseNumber: "1"},
		{PostalCode: "", City: "Town", Street: "", HouseNumber: "2"},
	}
	errs = fieldErrors(t, Create.Validate(d))
	for _, path := range []string{"address.1.postalCode", "address.1.street"} {
		if errs[path] != "Required" {
			t.Errorf("%s message = %q, want Required", path, errs[path])
		}
	}
	for _, path := range []string{"address.0.postalCode", "address.1.city", "address.1.houseNumber"} {
		if _, ok := errs[path]; ok {
			t.Errorf("%s should be valid", path)
		}
	}
}

func TestCreateAggregatesAllFailures(t *testing.T) {
	var verr *ValidationError
	if !errors.As(Create.Validate(person.Details{}), &verr) {
		t.Fatal("expected validation error for empty details")
	}

	want := []string{
		"firstName", "lastName", "birth.date", "birth.place", "mothersMaidenName",
		"tajNumber", "taxId", "email", "phoneNumber", "address",
	}
	got := verr.ByPath()
	for _, path := range want {
		if _, ok := got[path]; !ok {
			t.Errorf("missing failure for %s", path)
		}
	}
}

func TestEditIgnoresNameAndBirth(t *testing.T) {
	d := validDetails()
	d.FirstName = ""
	d.LastName = "1"
	d.Birth = person.Birth{}
	d.MothersMaidenName = ""

	if err := Edit.Validate(d); err != nil {
		t.Fatalf("edit schema should not check names or birth: %v", err)
	}
}

func TestEditChecksContactFields(t *testing.T) {
	d := validDetails()
	d.TAJNumber = ""
	d.TaxID = ""
	d.Email = "nope"
	d.PhoneNumber = "12"
	d.Address = nil

	got := fieldErrors(t, Edit.Validate(d))
	for _, path := range []string{"tajNumber", "taxId", "email", "phoneNumber", "address"} {
		if _, ok := got[path]; !ok {
			t.Errorf("missing failure for %s", path)
		}
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	d := validDetails()
	d.FirstName = "  John  "
	before := d.Clone()

	_ = Create.Validate(d)

	if d.FirstName != before.FirstName || len(d.Address) != len(before.Address) {
		t.Error("validate modified input")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Path: "email", Message: "Invalid email address"},
		{Path: "taxId", Message: "Tax ID is required"},
	}}
	want := "validation failed: email: Invalid email address; taxId: Tax ID is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseBirthDate(t *testing.T) {
	got, ok := ParseBirthDate("1990.03.15.")
	if !ok {
		t.Fatal("expected dotted date to parse")
	}
	if got.Format("2006-01-02") != "1990-03-15" {
		t.Errorf("parsed = %s, want 1990-03-15", got.Format("2006-01-02"))
	}

	if _, ok := ParseBirthDate("1990-04-31"); ok {
		t.Error("april 31 should not parse")
	}
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"addressSet.address", "address"},
		{"addressSet.address[0].postalCode", "address.0.postalCode"},
		{"addressSet.address[12].houseNumber", "address.12.houseNumber"},
		{"email", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			if got := fieldPath(tt.namespace); got != tt.want {
				t.Errorf("fieldPath(%q) = %q, want %q", tt.namespace, got, tt.want)
			}
		})
	}
}

func TestAddressRulesEmptyList(t *testing.T) {
	d := validDetails()
	d.Address = []person.Address{}

	errs := fieldErrors(t, Create.Validate(d))
	if errs["address"] != "At least one address is required" {
		t.Errorf("address message = %q", errs["address"])
	}
	if len(errs) != 1 {
		t.Errorf("errors = %v, want only address", errs)
	}
}
