package molecule

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/wishknish/knishio-client-go/pkg/crypto"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// SignOptions tune Sign. The zero value signs with a derived bundle and an
// uncompressed hex signature.
type SignOptions struct {
	// Bundle overrides the derived bundle hash when the molecule has none.
	Bundle string
	// Anonymous leaves the bundle unset.
	Anonymous bool
	// Compressed re-encodes the hex signature as base64 before distribution.
	Compressed bool
}

// Sign computes the molecular hash and distributes a one-time signature over
// the atoms. The first atom is the signing atom: its token and position
// select the key. Returns the position of the last atom that received a
// signature fragment.
//
// All fallible work happens before the molecule is touched, so a failed Sign
// leaves it unsigned rather than half-signed. A molecule still must not be
// signed concurrently from two goroutines; clone first if that is needed.
func (m *Molecule) Sign(opts SignOptions) (string, error) {
	if len(m.Atoms) == 0 {
		return "", ErrAtomsMissing
	}
	if m.secret == "" {
		return "", fmt.Errorf("%w: no secret to sign with", ErrSignatureMalformed)
	}

	bundle := m.Bundle
	if !opts.Anonymous && bundle == "" {
		if opts.Bundle != "" {
			bundle = opts.Bundle
		} else {
			derived, err := wallet.BundleHash(m.secret)
			if err != nil {
				return "", fmt.Errorf("derive bundle: %w", err)
			}
			bundle = derived
		}
	}

	hash, err := HashAtoms(m.Atoms, FormatBase17)
	if err != nil {
		return "", err
	}

	signingAtom := &m.Atoms[0]
	if signingAtom.Position == "" {
		return "", fmt.Errorf("%w: signing atom has no position", ErrSignatureMalformed)
	}

	key, err := wallet.DeriveKey(m.secret, signingAtom.Token, signingAtom.Position)
	if err != nil {
		return "", fmt.Errorf("derive signing key: %w", err)
	}

	signature, err := otsSign(key, hash)
	if err != nil {
		return "", err
	}

	if opts.Compressed {
		raw, err := hex.DecodeString(signature)
		if err != nil {
			return "", fmt.Errorf("compress signature: %w", err)
		}
		signature = base64.StdEncoding.EncodeToString(raw)
	}

	m.Bundle = bundle
	m.MolecularHash = hash
	return m.distributeFragments(signature), nil
}

// otsSign chains each 128-hex key chunk through 8-n SHAKE256 rounds, where n
// is the chunk's normalized hash digit. Only the first 16 of the 64
// enumerated digits are consumed, one per chunk; the remainder are unused by
// design and other implementations preserve the same asymmetry.
func otsSign(key, molecularHash string) (string, error) {
	normalized := crypto.NormalizedHash(molecularHash)
	if len(normalized) < wallet.KeyChunks {
		return "", fmt.Errorf("%w: hash enumerates to %d digits", ErrSignatureMalformed, len(normalized))
	}

	signature := make([]byte, 0, wallet.KeyLength)
	for i := 0; i < wallet.KeyChunks; i++ {
		chunk := key[i*wallet.ChunkLength : (i+1)*wallet.ChunkLength]
		rounds := 8 - int(normalized[i])
		for r := 0; r < rounds; r++ {
			var err error
			chunk, err = crypto.HashString(chunk, 512)
			if err != nil {
				return "", fmt.Errorf("sign chunk %d: %w", i, err)
			}
		}
		signature = append(signature, chunk...)
	}
	return string(signature), nil
}

// distributeFragments splits the signature into ceil(len/atoms)-sized pieces
// and assigns one to each atom in order until pieces run out. Returns the
// position of the last atom touched.
func (m *Molecule) distributeFragments(signature string) string {
	atomCount := len(m.Atoms)
	chunkSize := (len(signature) + atomCount - 1) / atomCount

	lastPosition := ""
	for i := range m.Atoms {
		start := i * chunkSize
		if start >= len(signature) {
			break
		}
		end := start + chunkSize
		if end > len(signature) {
			end = len(signature)
		}
		fragment := signature[start:end]
		m.Atoms[i].OTSFragment = &fragment
		lastPosition = m.Atoms[i].Position
	}
	return lastPosition
}
