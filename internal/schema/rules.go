package schema

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/zarlcorp/zpeople/internal/person"
)

const (
	minBirthYear = 1900 // exclusive
	maxBirthYear = 2024 // exclusive
)

var (
	dashedDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dottedDate = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}\.$`)
	// the whitespace set of JavaScript's \s, not only ASCII
	phoneChars = regexp.MustCompile(`^[0-9+\-\s\p{Zs}\x{2028}\x{2029}\x{FEFF}]+$`)
)

// validate is shared; validator.Validate is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	custom := map[string]validator.Func{
		"trimmedmin":  trimmedMin,
		"personname":  func(fl validator.FieldLevel) bool { return isName(fl.Field().String()) },
		"phonechars":  func(fl validator.FieldLevel) bool { return phoneChars.MatchString(fl.Field().String()) },
		"birthformat": func(fl validator.FieldLevel) bool { return isDateFormat(fl.Field().String()) },
		// malformed input is reported by birthformat alone
		"birthdate": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return !isDateFormat(s) || isBirthDate(s)
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("schema: register " + tag + ": " + err.Error())
		}
	}
	return v
}

// jsonName reports struct fields by their JSON name so error namespaces
// read like field paths.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// addressSet mirrors the address list of person.Details with validation
// tags.
type addressSet struct {
	Address []addressRow `json:"address" validate:"required,min=1,dive"`
}

type addressRow struct {
	PostalCode  string `json:"postalCode" validate:"required"`
	City        string `json:"city" validate:"required"`
	Street      string `json:"street" validate:"required"`
	HouseNumber string `json:"houseNumber" validate:"required"`
}

func newAddressSet(addrs []person.Address) addressSet {
	var set addressSet
	if addrs != nil {
		set.Address = make([]addressRow, len(addrs))
	}
	for i, a := range addrs {
		set.Address[i] = addressRow(a)
	}
	return set
}

// fieldPath turns a validator namespace such as
// "addressSet.address[1].city" into "address.1.city".
func fieldPath(namespace string) string {
	_, path, ok := strings.Cut(namespace, ".")
	if !ok {
		path = namespace
	}
	path = strings.ReplaceAll(path, "[", ".")
	return strings.ReplaceAll(path, "]", "")
}

func trimmedMin(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

// isName accepts Unicode letters, whitespace and hyphens.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '-' {
			return false
		}
	}
	return true
}

func isDateFormat(s string) bool {
	return dashedDate.MatchString(s) || dottedDate.MatchString(s)
}

// ParseBirthDate decomposes YYYY-MM-DD or YYYY.MM.DD. into a calendar date.
// The day must exist in the given month.
func ParseBirthDate(s string) (time.Time, bool) {
	var parts []string
	switch {
	case dashedDate.MatchString(s):
		parts = strings.Split(s, "-")
	case dottedDate.MatchString(s):
		parts = strings.Split(strings.TrimSuffix(s, "."), ".")
	default:
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so a rolled over day is not a real date
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func isBirthDate(s string) bool {
	t, ok := ParseBirthDate(s)
	if !ok {
		return false
	}
	return t.Year() > minBirthYear && t.Year() < maxBirthYear
}
