package molecule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/clock"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

const (
	testSecret    = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testTimestamp = "1700000000000"
)

// twoAtomTransfer builds an unsigned -50/+50 exchange signed by a real
// derived wallet, so OTS verification has a matching address to land on.
func twoAtomTransfer(t *testing.T) (*Molecule, *wallet.Wallet) {
	t.Helper()
	source, err := wallet.New(testSecret, "KNISH", "ab12")
	if err != nil {
		t.Fatalf("derive source wallet: %v", err)
	}

	m := New(testSecret, WithClock(clock.Fixed(testTimestamp)))
	m.AddAtom(atom.New(source.Position, source.Address, atom.IsotopeValue, "KNISH", testTimestamp).
		WithValue("-50"))
	m.AddAtom(atom.New("", "recipient-address", atom.IsotopeValue, "KNISH", testTimestamp).
		WithValue("50"))
	return m, source
}

func TestSign_NoAtoms(t *testing.T) {
	m := New(testSecret)
	if _, err := m.Sign(SignOptions{}); !errors.Is(err, ErrAtomsMissing) {
		t.Errorf("Sign() = %v, want ErrAtomsMissing", err)
	}
}

func TestSign_NoSecret(t *testing.T) {
	m := New("")
	m.AddAtom(atom.New("ab", "cd", atom.IsotopeValue, "KNISH", testTimestamp))
	if _, err := m.Sign(SignOptions{}); !errors.Is(err, ErrSignatureMalformed) {
		t.Errorf("Sign() = %v, want ErrSignatureMalformed", err)
	}
}

func TestSign_NoPosition(t *testing.T) {
	m := New(testSecret)
	m.AddAtom(atom.New("", "cd", atom.IsotopeValue, "KNISH", testTimestamp))
	if _, err := m.Sign(SignOptions{}); !errors.Is(err, ErrSignatureMalformed) {
		t.Errorf("Sign() = %v, want ErrSignatureMalformed", err)
	}
}

func TestSign_SetsHashAndFragments(t *testing.T) {
	m, source := twoAtomTransfer(t)

	lastPosition, err := m.Sign(SignOptions{})
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if len(m.MolecularHash) != 64 {
		t.Errorf("molecular hash length = %d, want 64", len(m.MolecularHash))
	}
	for _, c := range m.MolecularHash {
		if !strings.ContainsRune("0123456789abcdefg", c) {
			t.Errorf("molecular hash has non-base17 digit %q", c)
		}
	}

	var joined strings.Builder
	for i := range m.Atoms {
		frag := m.Atoms[i].FragmentString()
		if frag == "" {
			t.Fatalf("atom %d got no signature fragment", i)
		}
		joined.WriteString(frag)
	}
	if joined.Len() != wallet.KeyLength {
		t.Errorf("joined signature length = %d, want %d", joined.Len(), wallet.KeyLength)
	}

	// The last fragment lands on the recipient atom, whose position is empty.
	if lastPosition != m.Atoms[len(m.Atoms)-1].Position {
		t.Errorf("Sign() returned %q, want last touched position", lastPosition)
	}
	_ = source
}

func TestSign_DerivesBundle(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	want, _ := wallet.BundleHash(testSecret)
	if m.Bundle != want {
		t.Errorf("bundle = %s, want hash of secret", m.Bundle)
	}
}

func TestSign_BundleOverrideAndAnonymous(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	override := strings.Repeat("e", 64)
	if _, err := m.Sign(SignOptions{Bundle: override}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if m.Bundle != override {
		t.Errorf("bundle = %s, want override", m.Bundle)
	}

	anon, _ := twoAtomTransfer(t)
	if _, err := anon.Sign(SignOptions{Anonymous: true}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if anon.Bundle != "" {
		t.Errorf("anonymous molecule got bundle %s", anon.Bundle)
	}
}

func TestSign_VerifyRoundTrip(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	check, err := NewCheck(m)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(nil); err != nil {
		t.Errorf("Verify() = %v, want pass", err)
	}
}

func TestSign_CompressedVerifyRoundTrip(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{Compressed: true}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	var joined strings.Builder
	for i := range m.Atoms {
		joined.WriteString(m.Atoms[i].FragmentString())
	}
	if joined.Len() == wallet.KeyLength {
		t.Error("compressed signature should not be 2048 characters")
	}

	check, err := NewCheck(m)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(nil); err != nil {
		t.Errorf("Verify() of compressed signature = %v, want pass", err)
	}
}

func TestSign_MutationBreaksVerification(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	m.Atoms[1].WithValue("49")

	check, err := NewCheck(m)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(nil); !errors.Is(err, ErrMolecularHashMismatch) {
		t.Errorf("Verify() after mutation = %v, want ErrMolecularHashMismatch", err)
	}
}

func TestSign_TamperedFragmentBreaksSignature(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	frag := m.Atoms[0].FragmentString()
	flipped := "0"
	if frag[0] == '0' {
		flipped = "1"
	}
	tampered := flipped + frag[1:]
	m.Atoms[0].OTSFragment = &tampered

	check, err := NewCheck(m)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(nil); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Verify() with tampered fragment = %v, want ErrSignatureMismatch", err)
	}
}

func TestSign_SignedMoleculeSerializes(t *testing.T) {
	m, _ := twoAtomTransfer(t)
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), testSecret) {
		t.Error("secret must never serialize")
	}
	for _, field := range []string{`"molecularHash"`, `"bundle"`, `"atoms"`, `"otsFragment"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("serialized molecule missing %s", field)
		}
	}

	var back Molecule
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	check, err := NewCheck(&back)
	if err != nil {
		t.Fatalf("NewCheck() on deserialized molecule: %v", err)
	}
	if err := check.Verify(nil); err != nil {
		t.Errorf("Verify() on deserialized molecule = %v, want pass", err)
	}
}

// Full three-atom spend with a pinned clock: the signed hash must be stable
// base17 and reconcile against the sender wallet's balance.
func TestSign_FullSpendWithRemainder(t *testing.T) {
	source, err := wallet.New(testSecret, "KNISH", "ab12")
	if err != nil {
		t.Fatalf("derive source wallet: %v", err)
	}
	source.Balance = "100"
	remainder, err := wallet.NewRemainder(testSecret, "KNISH")
	if err != nil {
		t.Fatalf("derive remainder wallet: %v", err)
	}

	m := New(testSecret,
		WithSourceWallet(source),
		WithRemainderWallet(remainder),
		WithClock(clock.Fixed(testTimestamp)))
	if err := m.InitValue(wallet.NewShadow(strings.Repeat("d", 64), "KNISH"), "40"); err != nil {
		t.Fatalf("InitValue() error: %v", err)
	}
	if _, err := m.Sign(SignOptions{}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if len(m.MolecularHash) != 64 {
		t.Errorf("molecular hash length = %d, want 64", len(m.MolecularHash))
	}
	for _, c := range m.MolecularHash {
		if !strings.ContainsRune("0123456789abcdefg", c) {
			t.Errorf("molecular hash has non-base17 digit %q", c)
		}
	}

	check, err := NewCheck(m)
	if err != nil {
		t.Fatalf("NewCheck() error: %v", err)
	}
	if err := check.Verify(source); err != nil {
		t.Errorf("Verify() = %v, want pass", err)
	}
}
