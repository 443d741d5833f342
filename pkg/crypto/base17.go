package crypto

import (
	"fmt"
	"math/big"
	"strings"
)

// Base17Length is the fixed width of a base-17 molecular hash.
const Base17Length = 64

// base17Digits is the alphabet used for base-17 rendering. It matches the
// digit set of math/big's Text(17), so no translation table is needed there,
// but enumeration below depends on this exact ordering.
const base17Digits = "0123456789abcdefg"

// HexToBase17 reinterprets hexString as a non-negative base-16 integer and
// renders it in base 17, left-padded with '0' to exactly 64 characters.
// A zero input renders as 64 '0' characters.
func HexToBase17(hexString string) (string, error) {
	n, ok := new(big.Int).SetString(hexString, 16)
	if !ok {
		return "", fmt.Errorf("invalid hex string %q", hexString)
	}
	if n.Sign() < 0 {
		return "", fmt.Errorf("negative value not representable")
	}
	encoded := n.Text(17)
	if len(encoded) > Base17Length {
		return "", fmt.Errorf("value overflows %d base-17 digits", Base17Length)
	}
	return strings.Repeat("0", Base17Length-len(encoded)) + encoded, nil
}
