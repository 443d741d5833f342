package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SecretFromMnemonic deterministically derives a hex secret from a BIP-39
// mnemonic, optional passphrase and account index. The mnemonic seeds a
// BIP-32 master key; the hardened child at the account index supplies the
// secret scalar. Distinct accounts yield independent secrets from one backup
// phrase.
func SecretFromMnemonic(mnemonic, passphrase string, account uint32) (string, error) {
	if !ValidateMnemonic(mnemonic) {
		return "", fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return "", fmt.Errorf("derive seed: %w", err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return "", fmt.Errorf("derive master key: %w", err)
	}
	child, err := master.NewChildKey(bip32.FirstHardenedChild + account)
	if err != nil {
		return "", fmt.Errorf("derive account %d: %w", account, err)
	}

	// bip32 private keys carry a leading 0x00 pad byte.
	raw := child.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	secret := make([]byte, 0, len(raw)+len(child.ChainCode))
	secret = append(secret, raw...)
	secret = append(secret, child.ChainCode...)
	return hex.EncodeToString(secret), nil
}
