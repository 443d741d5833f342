// Package molecule implements the transaction unit of the Knish.IO protocol:
// an ordered group of atoms with a canonical base-17 molecular hash, a
// chained-hash one-time signature spread across the atoms, and the validator
// that accepts or rejects a received molecule.
package molecule

import (
	"math/big"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/clock"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// Molecule is an ordered, jointly-signed group of atoms. The secret and the
// source/remainder wallets are construction-time state and never serialize.
type Molecule struct {
	MolecularHash string      `json:"molecularHash,omitempty"`
	Cell          string      `json:"cellSlug,omitempty"`
	CellOrigin    string      `json:"cellSlugOrigin,omitempty"`
	Bundle        string      `json:"bundle,omitempty"`
	Status        string      `json:"status,omitempty"`
	CreatedAt     string      `json:"createdAt"`
	Atoms         []atom.Atom `json:"atoms"`
	Version       string      `json:"version,omitempty"`

	secret          string
	sourceWallet    *wallet.Wallet
	remainderWallet *wallet.Wallet
	clk             clock.Clock
}

// Option configures a molecule at construction time.
type Option func(*Molecule)

// WithSourceWallet attaches the wallet value is drawn from.
func WithSourceWallet(w *wallet.Wallet) Option {
	return func(m *Molecule) { m.sourceWallet = w }
}

// WithRemainderWallet attaches the wallet receiving change-back.
func WithRemainderWallet(w *wallet.Wallet) Option {
	return func(m *Molecule) { m.remainderWallet = w }
}

// WithCell scopes the molecule to an application cell.
func WithCell(slug string) Option {
	return func(m *Molecule) { m.Cell = slug; m.CellOrigin = slug }
}

// WithClock overrides the timestamp source (tests mostly).
func WithClock(c clock.Clock) Option {
	return func(m *Molecule) { m.clk = c }
}

// WithVersion tags the molecule with a format version. Versioned molecules
// hash through the version-aware path, which is not yet standardized across
// implementations; leave unset for interoperable legacy hashing.
func WithVersion(v string) Option {
	return func(m *Molecule) { m.Version = v }
}

// New creates an empty molecule owned by secret. Until signed it carries no
// molecular hash.
func New(secret string, opts ...Option) *Molecule {
	m := &Molecule{
		secret: secret,
		clk:    clock.FromEnv(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.CreatedAt = m.clk.Now()
	return m
}

// Secret returns the signing secret. Local use only.
func (m *Molecule) Secret() string {
	return m.secret
}

// SourceWallet returns the attached source wallet, if any.
func (m *Molecule) SourceWallet() *wallet.Wallet {
	return m.sourceWallet
}

// RemainderWallet returns the attached remainder wallet, if any.
func (m *Molecule) RemainderWallet() *wallet.Wallet {
	return m.remainderWallet
}

// AddAtom appends an atom, assigns it the next index, stamps the molecule
// version onto it and invalidates any previously computed hash.
func (m *Molecule) AddAtom(a *atom.Atom) *Molecule {
	next := len(m.Atoms)
	a.Index = &next
	if m.Version != "" {
		v := m.Version
		a.Version = &v
	}
	m.MolecularHash = ""
	m.Atoms = append(m.Atoms, *a)
	return m
}

// newAtom stamps position/address/token from w and the molecule clock.
func (m *Molecule) newAtom(w *wallet.Wallet, isotope atom.Isotope, token string) *atom.Atom {
	return atom.New(w.Position, w.Address, isotope, token, m.clk.Now())
}

func parseAmount(amount string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, ErrTransferMalformed
	}
	return r, nil
}

// neg renders the negation of a decimal string amount.
func neg(r *big.Rat) string {
	return ratString(new(big.Rat).Neg(r))
}

// ratString renders a rational in plain decimal notation. Protocol amounts
// are decimal strings, so denominators are always powers of ten.
func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	// 64 digits is far beyond any amount precision in practice; trailing
	// zeros are trimmed so renders stay canonical.
	s := r.FloatString(64)
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
