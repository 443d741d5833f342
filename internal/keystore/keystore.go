// Package keystore stores Knish.IO secrets encrypted at rest.
//
// Each identity is a JSON file holding the Argon2id + XChaCha20-Poly1305
// encrypted secret plus public metadata: the bundle hash and the wallet
// positions most recently used per token slug. The secret itself never
// touches disk unencrypted.
package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// identityFile is the on-disk JSON format for an encrypted identity.
type identityFile struct {
	Version         int               `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	EncryptedSecret []byte            `json:"encrypted_secret"`
	Bundle          string            `json:"bundle"`
	Positions       map[string]string `json:"positions"` // token slug -> last wallet position
}

// Keystore manages encrypted identity storage on disk.
type Keystore struct {
	path string
}

// New creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func New(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// identityPath returns the file path for an identity by name.
func (ks *Keystore) identityPath(name string) string {
	return filepath.Join(ks.path, name+".identity")
}

// Create encrypts the secret under password and writes a new identity file.
// The bundle hash is derived from the secret and stored in the clear so
// callers can look up balances without decrypting.
func (ks *Keystore) Create(name, secret string, password []byte, params EncryptionParams) error {
	path := ks.identityPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("identity %q already exists", name)
	}

	encrypted, err := Encrypt([]byte(secret), password, params)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	bundle, err := wallet.BundleHash(secret)
	if err != nil {
		return fmt.Errorf("derive bundle: %w", err)
	}

	idf := identityFile{
		Version:         1,
		CreatedAt:       time.Now().UTC(),
		EncryptedSecret: encrypted,
		Bundle:          bundle,
		Positions:       map[string]string{},
	}

	return ks.writeFile(path, &idf)
}

// Load decrypts an identity and returns the secret.
func (ks *Keystore) Load(name string, password []byte) (string, error) {
	idf, err := ks.readFile(ks.identityPath(name))
	if err != nil {
		return "", err
	}

	secret, err := Decrypt(idf.EncryptedSecret, password)
	if err != nil {
		return "", fmt.Errorf("decrypt identity: %w", err)
	}

	return string(secret), nil
}

// Bundle returns the stored bundle hash without decrypting the secret.
func (ks *Keystore) Bundle(name string) (string, error) {
	idf, err := ks.readFile(ks.identityPath(name))
	if err != nil {
		return "", err
	}
	return idf.Bundle, nil
}

// SetPosition records the wallet position last used for a token slug.
func (ks *Keystore) SetPosition(name, token, position string) error {
	path := ks.identityPath(name)
	idf, err := ks.readFile(path)
	if err != nil {
		return err
	}
	if idf.Positions == nil {
		idf.Positions = map[string]string{}
	}
	idf.Positions[token] = position
	return ks.writeFile(path, idf)
}

// Position returns the wallet position last used for a token slug, or ""
// when none has been recorded.
func (ks *Keystore) Position(name, token string) (string, error) {
	idf, err := ks.readFile(ks.identityPath(name))
	if err != nil {
		return "", err
	}
	return idf.Positions[token], nil
}

// List returns the names of all identity files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".identity" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

func (ks *Keystore) writeFile(path string, idf *identityFile) error {
	data, err := json.MarshalIndent(idf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*identityFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var idf identityFile
	if err := json.Unmarshal(data, &idf); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	if idf.Version != 1 {
		return nil, fmt.Errorf("unsupported identity version: %d", idf.Version)
	}
	return &idf, nil
}
