package storage

import (
	"encoding/json"
	"fmt"

	"github.com/wishknish/knishio-client-go/pkg/molecule"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// Key prefixes partition the shared keyspace.
var (
	prefixMolecule = []byte("m:")
	prefixWallet   = []byte("w:")
)

// Cache persists signed molecules and wallet snapshots so the CLI can show
// what it signed and resume offline. It is a cache, not a ledger: the node
// remains the source of truth.
type Cache struct {
	db DB
}

// NewCache wraps a key-value store.
func NewCache(db DB) *Cache {
	return &Cache{db: db}
}

// PutMolecule stores a signed molecule keyed by its molecular hash.
func (c *Cache) PutMolecule(m *molecule.Molecule) error {
	if m.MolecularHash == "" {
		return fmt.Errorf("refusing to cache an unsigned molecule")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode molecule: %w", err)
	}
	return c.db.Put(moleculeKey(m.MolecularHash), data)
}

// GetMolecule loads a cached molecule by molecular hash.
func (c *Cache) GetMolecule(molecularHash string) (*molecule.Molecule, error) {
	data, err := c.db.Get(moleculeKey(molecularHash))
	if err != nil {
		return nil, fmt.Errorf("load molecule %s: %w", molecularHash, err)
	}
	var m molecule.Molecule
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode molecule %s: %w", molecularHash, err)
	}
	return &m, nil
}

// ForEachMolecule visits every cached molecule.
func (c *Cache) ForEachMolecule(fn func(*molecule.Molecule) error) error {
	return c.db.ForEach(prefixMolecule, func(_, value []byte) error {
		var m molecule.Molecule
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("decode cached molecule: %w", err)
		}
		return fn(&m)
	})
}

// PutWallet stores a wallet snapshot keyed by bundle and token.
func (c *Cache) PutWallet(w *wallet.Wallet) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	return c.db.Put(walletKey(w.Bundle, w.Token), data)
}

// GetWallet loads the snapshot for a bundle/token pair.
func (c *Cache) GetWallet(bundle, token string) (*wallet.Wallet, error) {
	data, err := c.db.Get(walletKey(bundle, token))
	if err != nil {
		return nil, fmt.Errorf("load wallet %s/%s: %w", bundle, token, err)
	}
	var w wallet.Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode wallet %s/%s: %w", bundle, token, err)
	}
	return &w, nil
}

// DeleteWallet drops the snapshot for a bundle/token pair.
func (c *Cache) DeleteWallet(bundle, token string) error {
	return c.db.Delete(walletKey(bundle, token))
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

func moleculeKey(hash string) []byte {
	return append(append([]byte{}, prefixMolecule...), hash...)
}

func walletKey(bundle, token string) []byte {
	key := append(append([]byte{}, prefixWallet...), bundle...)
	key = append(key, ':')
	return append(key, token...)
}
