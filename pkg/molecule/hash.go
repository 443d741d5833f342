package molecule

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/crypto"
)

// Output formats for HashAtoms. Anything else selects base-17, the de facto
// default used for molecular hashes.
const (
	FormatHex    = "hex"
	FormatArray  = "array"
	FormatBase17 = "base17"
)

// HashAtoms computes the canonical hash over a set of atoms.
//
// Atoms are sorted by index on a copy; the comparator never reports equality,
// so atoms sharing an index land in an unspecified order — callers must keep
// indices unique. In the legacy path the original pre-sort atom count is fed
// into the sponge before every atom's hashable values. The repetition looks
// redundant but is load-bearing: other implementations hash exactly this
// sequence, and a single global count token would diverge from them.
func HashAtoms(atoms []atom.Atom, format string) (string, error) {
	if len(atoms) == 0 {
		return "", ErrAtomsMissing
	}

	sorted := make([]atom.Atom, len(atoms))
	copy(sorted, atoms)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].IndexValue() < sorted[j].IndexValue()
	})

	var digest string
	var err error
	if allVersioned(sorted) {
		digest, err = hashVersioned(sorted)
	} else {
		digest, err = hashLegacy(sorted, len(atoms))
	}
	if err != nil {
		return "", err
	}

	switch format {
	case FormatHex:
		return digest, nil
	case FormatArray:
		raw, err := hex.DecodeString(digest)
		if err != nil {
			return "", fmt.Errorf("decode digest: %w", err)
		}
		return string(raw), nil
	default:
		return crypto.HexToBase17(digest)
	}
}

func allVersioned(atoms []atom.Atom) bool {
	for i := range atoms {
		if atoms[i].Version == nil || *atoms[i].Version == "" {
			return false
		}
	}
	return true
}

// hashLegacy feeds the pre-sort atom count before every atom, then that
// atom's hashable values, into one sponge.
func hashLegacy(sorted []atom.Atom, originalCount int) (string, error) {
	count := strconv.Itoa(originalCount)
	sponge := crypto.NewSponge()
	for i := range sorted {
		sponge.AbsorbString(count)
		for _, value := range sorted[i].HashableValues() {
			sponge.AbsorbString(value)
		}
	}
	return sponge.Squeeze(256)
}

// hashVersioned hashes a canonical serialization of the sorted atoms in a
// single XOF call. The serialization is the JSON of each atom's hashable
// projection; cross-version hashing is not yet standardized, so this path
// must not be relied on for interchange.
func hashVersioned(sorted []atom.Atom) (string, error) {
	projections := make([][]string, len(sorted))
	for i := range sorted {
		projections[i] = sorted[i].HashableValues()
	}
	canonical, err := json.Marshal(projections)
	if err != nil {
		return "", fmt.Errorf("serialize atoms: %w", err)
	}
	return crypto.Hash(canonical, 256)
}
