package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/zeebo/blake3"
)

// Wallet holds the per-token signing material and balance bookkeeping for one
// position. A wallet whose position and address are empty is a shadow wallet:
// it can receive value but cannot sign until claimed.
type Wallet struct {
	Token    string `json:"token"`
	Position string `json:"position,omitempty"`
	Address  string `json:"address,omitempty"`
	Bundle   string `json:"bundle,omitempty"`
	Balance  string `json:"balance"`
	BatchID  string `json:"batchId,omitempty"`
}

// New derives a full wallet from a secret: position salt, one-time key,
// address and bundle hash. The key itself is not retained; signing re-derives
// it from the secret and position.
func New(secret, token, position string) (*Wallet, error) {
	if position == "" {
		var err error
		position, err = NewPosition()
		if err != nil {
			return nil, err
		}
	}
	key, err := DeriveKey(secret, token, position)
	if err != nil {
		return nil, fmt.Errorf("derive wallet key: %w", err)
	}
	address, err := DeriveAddress(key)
	if err != nil {
		return nil, fmt.Errorf("derive wallet address: %w", err)
	}
	bundle, err := BundleHash(secret)
	if err != nil {
		return nil, fmt.Errorf("derive bundle: %w", err)
	}
	return &Wallet{
		Token:    token,
		Position: position,
		Address:  address,
		Bundle:   bundle,
		Balance:  "0",
	}, nil
}

// NewShadow creates a positionless wallet for a recipient identified only by
// bundle hash.
func NewShadow(bundle, token string) *Wallet {
	return &Wallet{Token: token, Bundle: bundle, Balance: "0"}
}

// NewRemainder derives a fresh wallet for the change-back of a value
// transfer: same secret and token as the source, new random position.
func NewRemainder(secret, token string) (*Wallet, error) {
	return New(secret, token, "")
}

// IsShadow reports whether the wallet lacks signing material.
func (w *Wallet) IsShadow() bool {
	return w.Position == "" && w.Address == ""
}

// Key re-derives the wallet's one-time private key from the owning secret.
func (w *Wallet) Key(secret string) (string, error) {
	if w.IsShadow() {
		return "", fmt.Errorf("shadow wallet has no position to derive from")
	}
	return DeriveKey(secret, w.Token, w.Position)
}

// BalanceRat parses the decimal balance. An empty balance counts as zero.
func (w *Wallet) BalanceRat() (*big.Rat, error) {
	if w.Balance == "" {
		return new(big.Rat), nil
	}
	r, ok := new(big.Rat).SetString(w.Balance)
	if !ok {
		return nil, fmt.Errorf("balance %q is not a decimal", w.Balance)
	}
	return r, nil
}

// NewPosition generates a random 64-hex position salt.
func NewPosition() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate position: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewBatchID generates a batch identifier for stackable-unit transfers:
// a BLAKE3 digest of random bytes and the current time, rendered as 64 hex
// characters. Batch ids are client-local labels, not protocol hashes, so
// BLAKE3 is fine here.
func NewBatchID() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf[:32]); err != nil {
		return "", fmt.Errorf("generate batch id: %w", err)
	}
	binary.LittleEndian.PutUint64(buf[32:], uint64(time.Now().UnixNano()))
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
