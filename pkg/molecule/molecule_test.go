package molecule

import (
	"testing"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/clock"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

func TestNew_PinnedClock(t *testing.T) {
	m := New(testSecret, WithClock(clock.Fixed(testTimestamp)))
	if m.CreatedAt != testTimestamp {
		t.Errorf("CreatedAt = %s, want pinned timestamp", m.CreatedAt)
	}
	if m.MolecularHash != "" {
		t.Error("fresh molecule should have no molecular hash")
	}
}

func TestAddAtom_AssignsIndicesAndResetsHash(t *testing.T) {
	m := New(testSecret, WithClock(clock.Fixed(testTimestamp)))
	m.AddAtom(atom.New("p0", "w0", atom.IsotopeValue, "KNISH", testTimestamp))
	m.AddAtom(atom.New("p1", "w1", atom.IsotopeValue, "KNISH", testTimestamp))

	for i := range m.Atoms {
		if m.Atoms[i].IndexValue() != i {
			t.Errorf("atom %d has index %d", i, m.Atoms[i].IndexValue())
		}
	}

	m.MolecularHash = "stale"
	m.AddAtom(atom.New("p2", "w2", atom.IsotopeValue, "KNISH", testTimestamp))
	if m.MolecularHash != "" {
		t.Error("adding an atom must invalidate the molecular hash")
	}
	if m.Atoms[2].IndexValue() != 2 {
		t.Errorf("third atom index = %d, want 2", m.Atoms[2].IndexValue())
	}
}

func TestAddAtom_StampsMoleculeVersion(t *testing.T) {
	m := New(testSecret, WithVersion("4"), WithClock(clock.Fixed(testTimestamp)))
	m.AddAtom(atom.New("p0", "w0", atom.IsotopeValue, "KNISH", testTimestamp))
	if m.Atoms[0].Version == nil || *m.Atoms[0].Version != "4" {
		t.Error("molecule version should be stamped onto added atoms")
	}

	plain := New(testSecret, WithClock(clock.Fixed(testTimestamp)))
	plain.AddAtom(atom.New("p0", "w0", atom.IsotopeValue, "KNISH", testTimestamp))
	if plain.Atoms[0].Version != nil {
		t.Error("unversioned molecule should leave atom versions unset")
	}
}

// Each builder must produce a molecule the validator accepts once signed.
func TestBuilders_SignAndVerify(t *testing.T) {
	userWallet := func() *wallet.Wallet {
		w, err := wallet.New(testSecret, "USER", "ab12")
		if err != nil {
			t.Fatalf("derive wallet: %v", err)
		}
		return w
	}

	t.Run("wallet creation", func(t *testing.T) {
		newWallet, err := wallet.New(testSecret, "STK", "")
		if err != nil {
			t.Fatalf("derive new wallet: %v", err)
		}
		m := New(testSecret,
			WithSourceWallet(userWallet()),
			WithClock(clock.Fixed(testTimestamp)))
		if err := m.InitWalletCreation(newWallet); err != nil {
			t.Fatalf("InitWalletCreation() error: %v", err)
		}
		verifyMolecule(t, m)
	})

	t.Run("meta assertion", func(t *testing.T) {
		m := New(testSecret,
			WithSourceWallet(userWallet()),
			WithClock(clock.Fixed(testTimestamp)))
		err := m.InitMeta([]atom.MetaEntry{{Key: "name", Value: "alice"}}, "profile", "alice-1")
		if err != nil {
			t.Fatalf("InitMeta() error: %v", err)
		}
		verifyMolecule(t, m)
	})

	t.Run("meta assertion requires metadata", func(t *testing.T) {
		m := New(testSecret,
			WithSourceWallet(userWallet()),
			WithClock(clock.Fixed(testTimestamp)))
		if err := m.InitMeta(nil, "profile", "alice-1"); err == nil {
			t.Error("InitMeta(nil) should fail")
		}
	})

	t.Run("token request", func(t *testing.T) {
		m := New(testSecret,
			WithSourceWallet(userWallet()),
			WithClock(clock.Fixed(testTimestamp)))
		if err := m.InitTokenRequest("STK", "100", nil); err != nil {
			t.Fatalf("InitTokenRequest() error: %v", err)
		}
		verifyMolecule(t, m)
	})

	t.Run("authorization", func(t *testing.T) {
		auth, err := wallet.New(testSecret, "AUTH", "ab12")
		if err != nil {
			t.Fatalf("derive auth wallet: %v", err)
		}
		m := New(testSecret,
			WithSourceWallet(auth),
			WithClock(clock.Fixed(testTimestamp)))
		if err := m.InitAuthorization(); err != nil {
			t.Fatalf("InitAuthorization() error: %v", err)
		}
		verifyMolecule(t, m)
	})

	t.Run("rule publication", func(t *testing.T) {
		m := New(testSecret,
			WithSourceWallet(userWallet()),
			WithClock(clock.Fixed(testTimestamp)))
		rules, err := atom.ParseRules(`[{"condition": [{"key": "score", "value": 10}], "callback": "reject"}]`)
		if err != nil {
			t.Fatalf("ParseRules() error: %v", err)
		}
		if err := m.InitRule(rules, "profile", "alice-1"); err != nil {
			t.Fatalf("InitRule() error: %v", err)
		}
		verifyMolecule(t, m)
	})
}

func verifyMolecule(t *testing.T, m *Molecule) {
	t.Helper()
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

func TestAddContinuID_Idempotent(t *testing.T) {
	w, err := wallet.New(testSecret, "USER", "ab12")
	if err != nil {
		t.Fatalf("derive wallet: %v", err)
	}
	m := New(testSecret, WithSourceWallet(w), WithClock(clock.Fixed(testTimestamp)))
	if err := m.InitMeta([]atom.MetaEntry{{Key: "k", Value: "v"}}, "profile", "p1"); err != nil {
		t.Fatalf("InitMeta() error: %v", err)
	}
	count := len(m.Atoms)
	if err := m.AddContinuID(); err != nil {
		t.Fatalf("AddContinuID() error: %v", err)
	}
	if len(m.Atoms) != count {
		t.Error("AddContinuID() should be a no-op when an identity atom exists")
	}
}
