// Package crypto provides the SHAKE256-based hash primitives used by the
// Knish.IO molecular protocol: one-shot and incremental XOF hashing, the
// base-17 re-encoding applied to molecular hashes, and the signed-digit
// enumeration/normalization used by the one-time-signature scheme.
package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Hash computes a one-shot SHAKE256 digest of the input and returns it as a
// lowercase hex string. outputBits must be a positive multiple of 8.
func Hash(input []byte, outputBits int) (string, error) {
	if outputBits <= 0 || outputBits%8 != 0 {
		return "", fmt.Errorf("output bits must be a positive multiple of 8, got %d", outputBits)
	}
	out := make([]byte, outputBits/8)
	sha3.ShakeSum256(out, input)
	return hex.EncodeToString(out), nil
}

// HashString is Hash over the UTF-8 bytes of s.
func HashString(s string, outputBits int) (string, error) {
	return Hash([]byte(s), outputBits)
}

// Sponge is an incremental SHAKE256 hasher. Parts absorbed in sequence feed a
// single sponge; because SHAKE absorption is plain concatenation, absorbing
// parts one by one is equivalent to absorbing their concatenation.
type Sponge struct {
	shake sha3.ShakeHash
}

// NewSponge creates an empty SHAKE256 sponge.
func NewSponge() *Sponge {
	return &Sponge{shake: sha3.NewShake256()}
}

// Absorb feeds data into the sponge. Must not be called after Squeeze.
func (s *Sponge) Absorb(data []byte) *Sponge {
	// ShakeHash.Write never returns an error.
	s.shake.Write(data)
	return s
}

// AbsorbString feeds the UTF-8 bytes of str into the sponge.
func (s *Sponge) AbsorbString(str string) *Sponge {
	return s.Absorb([]byte(str))
}

// Squeeze extracts outputBits of digest as a lowercase hex string.
// outputBits must be a positive multiple of 8.
func (s *Sponge) Squeeze(outputBits int) (string, error) {
	if outputBits <= 0 || outputBits%8 != 0 {
		return "", fmt.Errorf("output bits must be a positive multiple of 8, got %d", outputBits)
	}
	out := make([]byte, outputBits/8)
	if _, err := s.shake.Read(out); err != nil {
		return "", fmt.Errorf("squeeze sponge: %w", err)
	}
	return hex.EncodeToString(out), nil
}

// HashParts absorbs each part in order into one sponge and squeezes outputBits.
func HashParts(parts []string, outputBits int) (string, error) {
	sponge := NewSponge()
	for _, part := range parts {
		sponge.AbsorbString(part)
	}
	return sponge.Squeeze(outputBits)
}
