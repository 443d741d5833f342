// Package atom defines the atomic operation record of the Knish.IO molecular
// protocol: the Atom itself, its isotope tag, its ordered metadata, and the
// hashable projection consumed by molecular hashing.
package atom

import "fmt"

// Isotope names the operation kind of an Atom. Immutable once the atom exists.
type Isotope string

// The closed isotope tag set.
const (
	IsotopeValue         Isotope = "V" // value transfer
	IsotopeCreation      Isotope = "C" // wallet creation
	IsotopeMeta          Isotope = "M" // metadata assertion
	IsotopeIdentity      Isotope = "I" // identity / continuity
	IsotopeTokenRequest  Isotope = "T" // token request
	IsotopeAuthorization Isotope = "U" // authorization
	IsotopeRule          Isotope = "R" // rule / policy
	IsotopeBuffer        Isotope = "B" // buffer deposit/withdraw
	IsotopeFusion        Isotope = "F" // token fusion
	IsotopePeering       Isotope = "P" // peering
	IsotopeAppend        Isotope = "A" // append
)

var isotopes = map[Isotope]bool{
	IsotopeValue:         true,
	IsotopeCreation:      true,
	IsotopeMeta:          true,
	IsotopeIdentity:      true,
	IsotopeTokenRequest:  true,
	IsotopeAuthorization: true,
	IsotopeRule:          true,
	IsotopeBuffer:        true,
	IsotopeFusion:        true,
	IsotopePeering:       true,
	IsotopeAppend:        true,
}

// Valid reports whether i is a member of the closed isotope set.
func (i Isotope) Valid() bool {
	return isotopes[i]
}

func (i Isotope) String() string {
	return string(i)
}

// ParseIsotope validates a serialized isotope tag.
func ParseIsotope(s string) (Isotope, error) {
	i := Isotope(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown isotope %q", s)
	}
	return i, nil
}
