package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Address is a street address as entered by the user.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`

	// Line is the literal text the address was parsed from, if any.
	Line string `json:"line,omitempty"`
}

// Key returns the cache key. A parsed address is keyed by its literal line;
// otherwise the key is "{street}, {city}, {state} {zip}". Nothing is
// normalized, so different spellings of the same property produce
// different keys.
func (a Address) Key() string {
	if a.Line != "" {
		return a.Line
	}
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Key() }

// Missing returns the names of empty required fields, in form order.
func (a Address) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ParseAddress splits a "street, city, STATE zip" line into an Address.
// The street and city must not contain commas. The parts are trimmed for
// geocoding and page URLs, but the key stays the line as given.
func ParseAddress(line string) (Address, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return Address{}, eris.Errorf("model: address %q: want \"street, city, STATE zip\"", line)
	}
	stateZip := strings.SplitN(strings.TrimSpace(parts[2]), " ", 2)
	if len(stateZip) != 2 {
		return Address{}, eris.Errorf("model: address %q: missing zip", line)
	}
	addr := Address{
		Street: strings.TrimSpace(parts[0]),
		City:   strings.TrimSpace(parts[1]),
		State:  strings.TrimSpace(stateZip[0]),
		Zip:    strings.TrimSpace(stateZip[1]),
		Line:   line,
	}
	if missing := addr.Missing(); len(missing) > 0 {
		return Address{}, eris.Errorf("model: address %q: empty %s", line, strings.Join(missing, ", "))
	}
	return addr, nil
}
