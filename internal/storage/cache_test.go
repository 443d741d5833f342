package storage

import (
	"strings"
	"testing"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/clock"
	"github.com/wishknish/knishio-client-go/pkg/molecule"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func signedMolecule(t *testing.T) *molecule.Molecule {
	t.Helper()
	source, err := wallet.New(testSecret, "KNISH", "ab12")
	if err != nil {
		t.Fatalf("derive wallet: %v", err)
	}
	m := molecule.New(testSecret, molecule.WithClock(clock.Fixed("1700000000000")))
	m.AddAtom(atom.New(source.Position, source.Address, atom.IsotopeValue, "KNISH", "1700000000000").
		WithValue("-50"))
	m.AddAtom(atom.New("", "recipient-address", atom.IsotopeValue, "KNISH", "1700000000000").
		WithValue("50"))
	if _, err := m.Sign(molecule.SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return m
}

func TestCache_MoleculeRoundTrip(t *testing.T) {
	cache := NewCache(NewMemory())
	m := signedMolecule(t)

	if err := cache.PutMolecule(m); err != nil {
		t.Fatalf("PutMolecule() error: %v", err)
	}
	back, err := cache.GetMolecule(m.MolecularHash)
	if err != nil {
		t.Fatalf("GetMolecule() error: %v", err)
	}
	if back.MolecularHash != m.MolecularHash {
		t.Errorf("hash = %s, want %s", back.MolecularHash, m.MolecularHash)
	}
	if len(back.Atoms) != len(m.Atoms) {
		t.Errorf("atom count = %d, want %d", len(back.Atoms), len(m.Atoms))
	}

	// A cached molecule must still validate.
	check, err := molecule.NewCheck(back)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(nil); err != nil {
		t.Errorf("Verify() of cached molecule = %v, want pass", err)
	}
}

func TestCache_RejectsUnsignedMolecule(t *testing.T) {
	cache := NewCache(NewMemory())
	m := molecule.New(testSecret)
	if err := cache.PutMolecule(m); err == nil {
		t.Error("caching an unsigned molecule should fail")
	}
}

func TestCache_GetMolecule_Missing(t *testing.T) {
	cache := NewCache(NewMemory())
	if _, err := cache.GetMolecule(strings.Repeat("0", 64)); err == nil {
		t.Error("missing molecule should fail")
	}
}

func TestCache_ForEachMolecule(t *testing.T) {
	cache := NewCache(NewMemory())
	m := signedMolecule(t)
	if err := cache.PutMolecule(m); err != nil {
		t.Fatalf("PutMolecule() error: %v", err)
	}

	// A wallet entry must not leak into the molecule iteration.
	if err := cache.PutWallet(&wallet.Wallet{Token: "KNISH", Bundle: "b", Balance: "0"}); err != nil {
		t.Fatalf("PutWallet() error: %v", err)
	}

	var seen int
	err := cache.ForEachMolecule(func(got *molecule.Molecule) error {
		seen++
		if got.MolecularHash != m.MolecularHash {
			t.Errorf("unexpected molecule %s", got.MolecularHash)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachMolecule() error: %v", err)
	}
	if seen != 1 {
		t.Errorf("visited %d molecules, want 1", seen)
	}
}

func TestCache_WalletRoundTrip(t *testing.T) {
	cache := NewCache(NewMemory())
	w := &wallet.Wallet{
		Token:   "KNISH",
		Bundle:  strings.Repeat("a", 64),
		Address: strings.Repeat("b", 64),
		Balance: "42.5",
	}
	if err := cache.PutWallet(w); err != nil {
		t.Fatalf("PutWallet() error: %v", err)
	}

	back, err := cache.GetWallet(w.Bundle, "KNISH")
	if err != nil {
		t.Fatalf("GetWallet() error: %v", err)
	}
	if back.Balance != "42.5" || back.Address != w.Address {
		t.Errorf("wallet round trip mismatch: %+v", back)
	}

	// Same bundle, different token: separate snapshot.
	if _, err := cache.GetWallet(w.Bundle, "OTHER"); err == nil {
		t.Error("wallet for a different token should be missing")
	}

	if err := cache.DeleteWallet(w.Bundle, "KNISH"); err != nil {
		t.Fatalf("DeleteWallet() error: %v", err)
	}
	if _, err := cache.GetWallet(w.Bundle, "KNISH"); err == nil {
		t.Error("deleted wallet should be missing")
	}
}

func TestMemoryDB_Basics(t *testing.T) {
	db := NewMemory()
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v", got, err)
	}
	has, _ := db.Has([]byte("k"))
	if !has {
		t.Error("Has() should report the key")
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := db.Get([]byte("k")); err == nil {
		t.Error("Get() after delete should fail")
	}
}

func TestBadgerDB_CacheRoundTrip(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	cache := NewCache(db)
	defer cache.Close()

	m := signedMolecule(t)
	if err := cache.PutMolecule(m); err != nil {
		t.Fatalf("PutMolecule() error: %v", err)
	}
	back, err := cache.GetMolecule(m.MolecularHash)
	if err != nil {
		t.Fatalf("GetMolecule() error: %v", err)
	}
	if back.MolecularHash != m.MolecularHash {
		t.Errorf("hash = %s, want %s", back.MolecularHash, m.MolecularHash)
	}
}
