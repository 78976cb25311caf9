package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a physical shipping address.
// It has no identity: two addresses with the same fields are the same address.
type Address struct {
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithCompany sets the company line
func WithCompany(company string) AddressOption {
	return func(a *Address) {
		a.Company = strings.TrimSpace(company)
	}
}

// WithStreet2 sets the second street line
func WithStreet2(street2 string) AddressOption {
	return func(a *Address) {
		a.Street2 = strings.TrimSpace(street2)
	}
}

// WithPhone sets the contact phone number
func WithPhone(phone string) AddressOption {
	return func(a *Address) {
		a.Phone = strings.TrimSpace(phone)
	}
}

// NewAddress creates a new Address with the required fields.
// Country is an ISO 3166-1 alpha-2 code and defaults to "US" when blank.
func NewAddress(name, street1, city, state, postalCode, country string, opts ...AddressOption) (Address, error) {
	addr := Address{
		Name:       strings.TrimSpace(name),
		Street1:    strings.TrimSpace(street1),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	if addr.Country == "" {
		addr.Country = "US"
	}

	for _, opt := range opts {
		opt(&addr)
	}

	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(name, street1, city, state, postalCode, country string, opts ...AddressOption) Address {
	addr, err := NewAddress(name, street1, city, state, postalCode, country, opts...)
	if err != nil {
		panic(err)
	}
	return addr
}

// EmptyAddress returns an empty address (for optional address fields)
func EmptyAddress() Address {
	return Address{}
}

// Validate checks the address fields
func (a Address) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("address name cannot be empty")
	}
	if a.Street1 == "" {
		return fmt.Errorf("address street cannot be empty")
	}
	if a.City == "" {
		return fmt.Errorf("address city cannot be empty")
	}
	if len(a.Country) != 2 {
		return fmt.Errorf("address country must be a 2-letter ISO code, got %q", a.Country)
	}
	if a.PostalCode == "" {
		return fmt.Errorf("address postal code cannot be empty")
	}
	return nil
}

// IsEmpty returns true if the address has no content
func (a Address) IsEmpty() bool {
	return a.Name == "" && a.Street1 == "" && a.City == "" && a.PostalCode == ""
}

// IsDomestic reports whether the address is in the given home country
func (a Address) IsDomestic(homeCountry string) bool {
	return strings.EqualFold(a.Country, homeCountry)
}

// ZipPrefix returns the first n characters of the postal code.
// Used by distance heuristics; returns the whole code when shorter than n.
func (a Address) ZipPrefix(n int) string {
	if len(a.PostalCode) < n {
		return a.PostalCode
	}
	return a.PostalCode[:n]
}

// OneLine returns the address formatted on a single line
func (a Address) OneLine() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Name, a.Street1, a.Street2, a.City, a.State, a.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ") + " " + a.Country
}

// Equals compares two addresses field by field
func (a Address) Equals(other Address) bool {
	return a == other
}

// Value implements driver.Valuer so Address can be stored as a JSON column
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner so Address can be read from a JSON column
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
}
