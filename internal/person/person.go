// Package person defines customer records and their nested addresses.
package person

import "github.com/google/uuid"

// AnonymizedLabel replaces the first and last name of a depersonalized record.
const AnonymizedLabel = "Anonymized"

// Address is one postal address of a person. The first address of a
// person is the primary one.
type Address struct {
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
}

// Birth holds the birth date and place as entered.
type Birth struct {
	Date  string `json:"date"`
	Place string `json:"place"`
}

// Details holds every field of a person except the identifier.
type Details struct {
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Birth             Birth     `json:"birth"`
	MothersMaidenName string    `json:"mothersMaidenName"`
	TAJNumber         string    `json:"tajNumber"`
	TaxID             string    `json:"taxId"`
	Email             string    `json:"email"`
	PhoneNumber       string    `json:"phoneNumber"`
	Address           []Address `json:"address"`
}

// Person is a stored customer record.
type Person struct {
	ID string `json:"id"`
	Details
}

// NewID returns a random 128-bit identifier.
func NewID() string {
	return uuid.NewString()
}

// New builds a person from details with a freshly generated identifier.
func New(d Details) Person {
	return Person{ID: NewID(), Details: d.Clone()}
}

// Name returns "first last".
func (p Person) Name() string {
	return p.FirstName + " " + p.LastName
}

// PrimaryAddress returns the first address, or false when there is none.
func (p Person) PrimaryAddress() (Address, bool) {
	if len(p.Address) == 0 {
		return Address{}, false
	}
	return p.Address[0], true
}

// Anonymized reports whether the record has been depersonalized.
func (p Person) Anonymized() bool {
	return p.Details.isTombstone()
}

// Depersonalized returns a copy with every identifying field blanked and
// the address list emptied. The identifier is kept.
func (p Person) Depersonalized() Person {
	return Person{
		ID: p.ID,
		Details: Details{
			FirstName: AnonymizedLabel,
			LastName:  AnonymizedLabel,
			Address:   []Address{},
		},
	}
}

// Clone returns a copy that shares no address slice with p.
func (p Person) Clone() Person {
	p.Details = p.Details.Clone()
	return p
}

// Clone returns a copy that shares no address slice with d.
func (d Details) Clone() Details {
	if d.Address != nil {
		addrs := make([]Address, len(d.Address))
		copy(addrs, d.Address)
		d.Address = addrs
	}
	return d
}

func (d Details) isTombstone() bool {
	return d.FirstName == AnonymizedLabel &&
		d.LastName == AnonymizedLabel &&
		d.Birth == (Birth{}) &&
		d.MothersMaidenName == "" &&
		d.TAJNumber == "" &&
		d.TaxID == "" &&
		d.Email == "" &&
		d.PhoneNumber == "" &&
		len(d.Address) == 0
}
