package molecule

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// InitValue builds a full-spend value transfer: the source wallet signs away
// its entire balance, the recipient is credited with amount, and the
// remainder wallet collects the change-back. Requires source and remainder
// wallets attached at construction.
func (m *Molecule) InitValue(recipient *wallet.Wallet, amount string) error {
	if m.sourceWallet == nil || m.remainderWallet == nil {
		return fmt.Errorf("%w: value transfer needs source and remainder wallets", ErrTransferMalformed)
	}
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	if value.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	balance, err := m.sourceWallet.BalanceRat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferMalformed, err)
	}
	if balance.Cmp(value) < 0 {
		return fmt.Errorf("%w: balance %s, sending %s",
			ErrBalanceInsufficient, m.sourceWallet.Balance, amount)
	}

	change := new(big.Rat).Sub(balance, value)

	source := m.newAtom(m.sourceWallet, atom.IsotopeValue, m.sourceWallet.Token).
		WithValue(neg(balance))
	credit := m.newAtom(recipient, atom.IsotopeValue, m.sourceWallet.Token).
		WithValue(ratString(value))
	remainder := m.newAtom(m.remainderWallet, atom.IsotopeValue, m.sourceWallet.Token).
		WithValue(ratString(change))

	if m.sourceWallet.BatchID != "" {
		source.WithBatchID(m.sourceWallet.BatchID)
		credit.WithBatchID(m.sourceWallet.BatchID)
		remainder.WithBatchID(m.sourceWallet.BatchID)
	}

	m.AddAtom(source).AddAtom(credit).AddAtom(remainder)
	return nil
}

// InitWalletCreation declares a freshly derived wallet on the ledger: a C
// atom signed by the source wallet, carrying the new wallet's coordinates,
// followed by a continuity atom.
func (m *Molecule) InitWalletCreation(newWallet *wallet.Wallet) error {
	if m.sourceWallet == nil {
		return fmt.Errorf("%w: wallet creation needs a source wallet", ErrAtomsMissing)
	}
	meta := []atom.MetaEntry{
		{Key: "address", Value: newWallet.Address},
		{Key: "token", Value: newWallet.Token},
		{Key: "bundle", Value: newWallet.Bundle},
		{Key: "position", Value: newWallet.Position},
	}
	a := m.newAtom(m.sourceWallet, atom.IsotopeCreation, "USER").
		WithMetaType("wallet", newWallet.Address).
		WithMeta(meta)
	m.AddAtom(a)
	return m.AddContinuID()
}

// InitMeta asserts metadata against an external entity: one M atom per call,
// classified by metaType/metaId.
func (m *Molecule) InitMeta(meta []atom.MetaEntry, metaType, metaID string) error {
	if m.sourceWallet == nil {
		return fmt.Errorf("%w: metadata assertion needs a source wallet", ErrAtomsMissing)
	}
	if len(meta) == 0 {
		return ErrMetaMissing
	}
	a := m.newAtom(m.sourceWallet, atom.IsotopeMeta, "USER").
		WithMetaType(metaType, metaID).
		WithMeta(meta)
	m.AddAtom(a)
	return m.AddContinuID()
}

// InitTokenRequest asks the ledger to issue amount units of a token to the
// given recipient metadata. The T atom must sit at index zero.
func (m *Molecule) InitTokenRequest(token, amount string, meta []atom.MetaEntry) error {
	if m.sourceWallet == nil {
		return fmt.Errorf("%w: token request needs a source wallet", ErrAtomsMissing)
	}
	if len(m.Atoms) != 0 {
		return fmt.Errorf("%w: token request must be the first atom", ErrAtomIndex)
	}
	withToken := make([]atom.MetaEntry, 0, len(meta)+1)
	withToken = append(withToken, atom.MetaEntry{Key: "token", Value: token})
	withToken = append(withToken, meta...)

	a := m.newAtom(m.sourceWallet, atom.IsotopeTokenRequest, "USER").
		WithValue(amount).
		WithMetaType("token", token).
		WithMeta(withToken)
	m.AddAtom(a)
	return m.AddContinuID()
}

// InitAuthorization requests an access token for this client instance.
func (m *Molecule) InitAuthorization() error {
	if m.sourceWallet == nil {
		return fmt.Errorf("%w: authorization needs a source wallet", ErrAtomsMissing)
	}
	if len(m.Atoms) != 0 {
		return fmt.Errorf("%w: authorization must be the first atom", ErrAtomIndex)
	}
	a := m.newAtom(m.sourceWallet, atom.IsotopeAuthorization, "AUTH")
	m.AddAtom(a)
	return nil
}

// InitRule publishes a policy rule set against a metadata subject.
func (m *Molecule) InitRule(rules []atom.Rule, metaType, metaID string) error {
	if m.sourceWallet == nil {
		return fmt.Errorf("%w: rule publication needs a source wallet", ErrAtomsMissing)
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: empty rule set", ErrMetaMissing)
	}
	encoded, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetaMissing, err)
	}
	a := m.newAtom(m.sourceWallet, atom.IsotopeRule, "USER").
		WithMetaType(metaType, metaID).
		WithMeta([]atom.MetaEntry{{Key: "rule", Value: string(encoded)}})
	m.AddAtom(a)
	return m.AddContinuID()
}

// AddContinuID appends the identity atom that chains USER molecules to the
// bundle's next signing position. No-op when one is already present.
func (m *Molecule) AddContinuID() error {
	for i := range m.Atoms {
		if m.Atoms[i].Isotope == atom.IsotopeIdentity {
			return nil
		}
	}
	contWallet, err := wallet.NewRemainder(m.secret, "USER")
	if err != nil {
		return fmt.Errorf("derive continuity wallet: %w", err)
	}
	a := m.newAtom(contWallet, atom.IsotopeIdentity, "USER").
		WithMetaType("walletBundle", contWallet.Bundle).
		WithMeta([]atom.MetaEntry{{Key: "walletBundle", Value: contWallet.Bundle}})
	m.AddAtom(a)
	return nil
}
