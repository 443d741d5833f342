// Package wallet implements deterministic key and address derivation for the
// Knish.IO molecular protocol and the wallet model carried alongside a
// molecule during construction and validation.
package wallet

import (
	"fmt"
	"math/big"

	"github.com/wishknish/knishio-client-go/pkg/crypto"
)

const (
	// KeyLength is the hex length of a derived one-time private key.
	KeyLength = 2048

	// KeyChunks is the number of OTS chunks a key splits into.
	KeyChunks = 16

	// ChunkLength is the hex length of one OTS key chunk.
	ChunkLength = KeyLength / KeyChunks

	// AddressLength is the hex length of a derived wallet address.
	AddressLength = 64
)

// DeriveKey produces the 2048-hex-character one-time private key for a
// secret, token and position salt. The secret and position are added as
// unsigned big integers, rendered as unpadded hex with the token appended,
// then passed through SHAKE256 twice at 8192 bits: the first pass mixes in
// the token, the second is the actual key material.
func DeriveKey(secret, token, position string) (string, error) {
	bigSecret, ok := new(big.Int).SetString(secret, 16)
	if !ok {
		return "", fmt.Errorf("secret is not valid hex")
	}
	bigPosition, ok := new(big.Int).SetString(position, 16)
	if !ok {
		return "", fmt.Errorf("position is not valid hex")
	}

	indexed := new(big.Int).Add(bigSecret, bigPosition).Text(16)

	intermediate, err := crypto.HashString(indexed+token, 8192)
	if err != nil {
		return "", fmt.Errorf("derive intermediate key: %w", err)
	}
	key, err := crypto.HashString(intermediate, 8192)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// DeriveAddress computes the 64-hex wallet address for a one-time key.
// Each of the 16 key chunks is hardened through 16 chained SHAKE256 rounds,
// the hardened chunks feed one fresh sponge squeezed to 8192 bits, and the
// address is the 256-bit hash of that digest.
func DeriveAddress(key string) (string, error) {
	if len(key) != KeyLength {
		return "", fmt.Errorf("key must be %d hex characters, got %d", KeyLength, len(key))
	}

	sponge := crypto.NewSponge()
	for i := 0; i < KeyChunks; i++ {
		chunk := key[i*ChunkLength : (i+1)*ChunkLength]
		for round := 0; round < 16; round++ {
			var err error
			chunk, err = crypto.HashString(chunk, 512)
			if err != nil {
				return "", fmt.Errorf("harden chunk %d round %d: %w", i, round, err)
			}
		}
		sponge.AbsorbString(chunk)
	}

	digest, err := sponge.Squeeze(8192)
	if err != nil {
		return "", fmt.Errorf("squeeze address digest: %w", err)
	}
	return crypto.HashString(digest, 256)
}

// BundleHash derives the user-level bundle identifier from a secret.
func BundleHash(secret string) (string, error) {
	return crypto.HashString(secret, 256)
}
