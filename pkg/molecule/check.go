package molecule

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/crypto"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

// CheckMolecule validates a received molecule. It holds no mutable state,
// never mutates the molecule, and is safe to share across goroutines.
type CheckMolecule struct {
	molecule *Molecule
	sorted   []atom.Atom
}

// NewCheck prepares a validator for m. It fails if the molecular hash is
// unset, the molecule has no atoms, or any atom lacks an index.
func NewCheck(m *Molecule) (*CheckMolecule, error) {
	if m.MolecularHash == "" {
		return nil, ErrMolecularHashMissing
	}
	if len(m.Atoms) == 0 {
		return nil, ErrAtomsMissing
	}
	for i := range m.Atoms {
		if !m.Atoms[i].HasIndex() {
			return nil, fmt.Errorf("%w: atom %d has no index", ErrAtomIndex, i)
		}
	}

	sorted := make([]atom.Atom, len(m.Atoms))
	copy(sorted, m.Atoms)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].IndexValue() < sorted[j].IndexValue()
	})
	return &CheckMolecule{molecule: m, sorted: sorted}, nil
}

// Verify runs every structural and isotope check in fixed order, stopping at
// the first failure. senderWallet, when supplied, enables the balance and
// remainder arithmetic of the value-transfer check.
func (c *CheckMolecule) Verify(senderWallet *wallet.Wallet) error {
	checks := []func(*wallet.Wallet) error{
		func(*wallet.Wallet) error { return c.checkHash() },
		func(*wallet.Wallet) error { return c.checkOTS() },
		func(*wallet.Wallet) error { return c.checkBatchID() },
		func(*wallet.Wallet) error { return c.checkContinuity() },
		func(*wallet.Wallet) error { return c.checkMetaIsotope() },
		func(*wallet.Wallet) error { return c.checkTokenRequest() },
		func(*wallet.Wallet) error { return c.checkCreation() },
		func(*wallet.Wallet) error { return c.checkAuthorization() },
		func(*wallet.Wallet) error { return c.checkIdentity() },
		func(*wallet.Wallet) error { return c.checkRules() },
		c.checkValueTransfer,
	}
	for _, check := range checks {
		if err := check(senderWallet); err != nil {
			return err
		}
	}
	return nil
}

// checkHash recomputes the molecular hash and compares it to the stored one.
func (c *CheckMolecule) checkHash() error {
	computed, err := HashAtoms(c.molecule.Atoms, FormatBase17)
	if err != nil {
		return err
	}
	if computed != c.molecule.MolecularHash {
		return fmt.Errorf("%w: stored %s, computed %s",
			ErrMolecularHashMismatch, c.molecule.MolecularHash, computed)
	}
	return nil
}

// checkOTS reconstructs the signing address from the distributed signature
// fragments. Verification chains each chunk 8+n rounds, the complement of
// signing's 8-n, so a valid signature walks every chunk to the same point of
// its 16-round chain.
//
// The address recomputation here (digest of the reconstructed key, then a
// 256-bit hash) is deliberately not DeriveAddress: wallet addresses harden
// each chunk through 16 extra rounds at creation time; signature
// verification never does. Both algorithms exist in every implementation of
// the protocol and must not be unified.
func (c *CheckMolecule) checkOTS() error {
	var sb strings.Builder
	for i := range c.sorted {
		sb.WriteString(c.sorted[i].FragmentString())
	}
	signature := sb.String()

	if !isHexOfLength(signature, wallet.KeyLength) {
		raw, err := base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("%w: fragments are neither %d-char hex nor base64",
				ErrSignatureMalformed, wallet.KeyLength)
		}
		signature = hex.EncodeToString(raw)
		if !isHexOfLength(signature, wallet.KeyLength) {
			return fmt.Errorf("%w: decoded signature is %d hex characters, want %d",
				ErrSignatureMalformed, len(signature), wallet.KeyLength)
		}
	}

	normalized := crypto.NormalizedHash(c.molecule.MolecularHash)
	if len(normalized) < wallet.KeyChunks {
		return fmt.Errorf("%w: molecular hash enumerates to %d digits",
			ErrSignatureMalformed, len(normalized))
	}

	reconstructed := make([]byte, 0, wallet.KeyLength)
	for i := 0; i < wallet.KeyChunks; i++ {
		chunk := signature[i*wallet.ChunkLength : (i+1)*wallet.ChunkLength]
		rounds := 8 + int(normalized[i])
		for r := 0; r < rounds; r++ {
			var err error
			chunk, err = crypto.HashString(chunk, 512)
			if err != nil {
				return fmt.Errorf("verify chunk %d: %w", i, err)
			}
		}
		reconstructed = append(reconstructed, chunk...)
	}

	digest, err := crypto.Hash(reconstructed, 8192)
	if err != nil {
		return fmt.Errorf("digest reconstructed key: %w", err)
	}
	address, err := crypto.HashString(digest, 256)
	if err != nil {
		return fmt.Errorf("recompute address: %w", err)
	}

	if address != c.signingAddress() {
		return fmt.Errorf("%w: recomputed %s", ErrSignatureMismatch, address)
	}
	return nil
}

// signingAddress is the explicit signingWallet address from the first atom's
// metadata when present, otherwise the first atom's wallet address.
func (c *CheckMolecule) signingAddress() string {
	first := &c.sorted[0]
	if raw, ok := first.MetaValue("signingWallet"); ok {
		if ref, err := atom.ParseSigningWallet(raw); err == nil && ref.Address != "" {
			return ref.Address
		}
	}
	return first.WalletAddress
}

// checkBatchID: when the first atom is a batched value transfer, every V atom
// must carry a batch id and the first must match the last V atom's.
func (c *CheckMolecule) checkBatchID() error {
	first := &c.sorted[0]
	if first.Isotope != atom.IsotopeValue || first.BatchID == nil {
		return nil
	}

	var lastV *atom.Atom
	for i := range c.sorted {
		a := &c.sorted[i]
		if a.Isotope != atom.IsotopeValue {
			continue
		}
		if a.BatchID == nil {
			return fmt.Errorf("%w: value atom %d has no batch id", ErrBatchID, a.IndexValue())
		}
		lastV = a
	}
	if lastV != nil && *first.BatchID != *lastV.BatchID {
		return fmt.Errorf("%w: first %s, last %s", ErrBatchID, *first.BatchID, *lastV.BatchID)
	}
	return nil
}

// checkContinuity: USER-token molecules must carry an identity atom.
func (c *CheckMolecule) checkContinuity() error {
	if c.sorted[0].Token != "USER" {
		return nil
	}
	for i := range c.sorted {
		if c.sorted[i].Isotope == atom.IsotopeIdentity {
			return nil
		}
	}
	return fmt.Errorf("%w: USER molecule has no identity atom", ErrAtomsMissing)
}

// checkMetaIsotope validates M atoms: non-empty metadata, USER token, and
// well-formed read/write policies.
func (c *CheckMolecule) checkMetaIsotope() error {
	for i := range c.sorted {
		a := &c.sorted[i]
		if a.Isotope != atom.IsotopeMeta {
			continue
		}
		if len(a.Meta) == 0 {
			return fmt.Errorf("%w: meta atom %d has no metadata", ErrMetaMissing, a.IndexValue())
		}
		if a.Token != "USER" {
			return fmt.Errorf("%w: meta atom %d has token %q", ErrWrongTokenType, a.IndexValue(), a.Token)
		}
		if err := checkPolicies(a); err != nil {
			return err
		}
	}
	return nil
}

// checkPolicies validates the readPolicy/writePolicy blobs of one atom:
// every governed key must exist in the atom's own metadata and every
// permission must be a bundle hash or one of the "all"/"self" literals.
func checkPolicies(a *atom.Atom) error {
	agg := a.AggregatedMeta()
	for _, policyKey := range []string{"readPolicy", "writePolicy"} {
		raw, ok := agg[policyKey]
		if !ok {
			continue
		}
		policy, err := atom.ParsePolicy(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPolicyInvalid, policyKey, err)
		}
		for key, perms := range policy {
			if key == "readPolicy" || key == "writePolicy" {
				continue
			}
			if _, present := agg[key]; !present {
				return fmt.Errorf("%w: %s governs unknown key %q", ErrPolicyInvalid, policyKey, key)
			}
			for _, perm := range perms {
				if perm == "all" || perm == "self" || isHexOfLength(perm, 64) {
					continue
				}
				return fmt.Errorf("%w: %s has invalid permission %q", ErrPolicyInvalid, policyKey, perm)
			}
		}
	}
	return nil
}

// checkTokenRequest validates T atoms.
func (c *CheckMolecule) checkTokenRequest() error {
	for i := range c.sorted {
		a := &c.sorted[i]
		if a.Isotope != atom.IsotopeTokenRequest {
			continue
		}
		agg := a.AggregatedMeta()
		if agg["token"] == "" {
			return fmt.Errorf("%w: token request has no token metadata", ErrMetaMissing)
		}
		if a.MetaType != nil && strings.EqualFold(*a.MetaType, "wallet") {
			if agg["position"] == "" {
				return fmt.Errorf("%w: wallet token request has no position", ErrMetaMissing)
			}
			if agg["bundle"] == "" {
				return fmt.Errorf("%w: wallet token request has no bundle", ErrMetaMissing)
			}
		}
		if a.Token != "USER" {
			return fmt.Errorf("%w: token request has token %q", ErrWrongTokenType, a.Token)
		}
		if a.IndexValue() != 0 {
			return fmt.Errorf("%w: token request at index %d, want 0", ErrAtomIndex, a.IndexValue())
		}
	}
	return nil
}

// checkCreation validates C atoms: USER token at index zero.
func (c *CheckMolecule) checkCreation() error {
	return c.checkIsotopePlacement(atom.IsotopeCreation, "USER", true)
}

// checkAuthorization validates U atoms: AUTH token at index zero.
func (c *CheckMolecule) checkAuthorization() error {
	return c.checkIsotopePlacement(atom.IsotopeAuthorization, "AUTH", true)
}

// checkIdentity validates I atoms: USER token away from index zero.
func (c *CheckMolecule) checkIdentity() error {
	return c.checkIsotopePlacement(atom.IsotopeIdentity, "USER", false)
}

func (c *CheckMolecule) checkIsotopePlacement(iso atom.Isotope, token string, atZero bool) error {
	for i := range c.sorted {
		a := &c.sorted[i]
		if a.Isotope != iso {
			continue
		}
		if a.Token != token {
			return fmt.Errorf("%w: %s atom has token %q, want %q", ErrWrongTokenType, iso, a.Token, token)
		}
		if atZero && a.IndexValue() != 0 {
			return fmt.Errorf("%w: %s atom at index %d, want 0", ErrAtomIndex, iso, a.IndexValue())
		}
		if !atZero && a.IndexValue() == 0 {
			return fmt.Errorf("%w: %s atom cannot sit at index 0", ErrAtomIndex, iso)
		}
	}
	return nil
}

// checkRules validates R atoms: policy keys limited to read/write and rule
// sets that parse into the condition/callback schema.
func (c *CheckMolecule) checkRules() error {
	for i := range c.sorted {
		a := &c.sorted[i]
		if a.Isotope != atom.IsotopeRule {
			continue
		}
		agg := a.AggregatedMeta()

		if raw, ok := agg["policy"]; ok {
			var policy map[string]json.RawMessage
			if err := json.Unmarshal([]byte(raw), &policy); err != nil {
				return fmt.Errorf("%w: policy: %v", ErrMetaMissing, err)
			}
			for key := range policy {
				if key != "read" && key != "write" {
					return fmt.Errorf("%w: policy key %q not in {read, write}", ErrMetaMissing, key)
				}
			}
		}

		if raw, ok := agg["rule"]; ok {
			if _, err := atom.ParseRules(raw); err != nil {
				return fmt.Errorf("%w: %v", ErrMetaMissing, err)
			}
		}
	}
	return nil
}

// checkValueTransfer enforces the V-isotope balance rules.
func (c *CheckMolecule) checkValueTransfer(senderWallet *wallet.Wallet) error {
	var values []*atom.Atom
	for i := range c.sorted {
		if c.sorted[i].Isotope == atom.IsotopeValue {
			values = append(values, &c.sorted[i])
		}
	}
	if len(values) == 0 {
		return nil
	}

	first := &c.sorted[0]

	// Two-atom exchange: a bare debit/credit pair with no remainder.
	if len(values) == 2 && first.Isotope == atom.IsotopeValue {
		second := values[1]
		if second.Token != first.Token {
			return fmt.Errorf("%w: %q vs %q", ErrTransferMismatched, first.Token, second.Token)
		}
		firstValue, err := parseAmount(first.ValueString())
		if err != nil {
			return err
		}
		secondValue, err := parseAmount(second.ValueString())
		if err != nil {
			return err
		}
		if secondValue.Sign() < 0 {
			return fmt.Errorf("%w: credit atom carries %s", ErrTransferMalformed, second.ValueString())
		}
		if new(big.Rat).Add(firstValue, secondValue).Sign() != 0 {
			return fmt.Errorf("%w: %s + %s != 0", ErrTransferUnbalanced,
				first.ValueString(), second.ValueString())
		}
		return nil
	}

	// General case: primary debit plus credits, optionally reconciled
	// against the sender wallet.
	sum := new(big.Rat)
	primaryValue := new(big.Rat)
	if first.Isotope == atom.IsotopeValue {
		var err error
		primaryValue, err = parseAmount(first.ValueString())
		if err != nil {
			return err
		}
	}

	for _, a := range values {
		value, err := parseAmount(a.ValueString())
		if err != nil {
			return err
		}
		if a.Token != first.Token {
			return fmt.Errorf("%w: %q vs %q", ErrTransferMismatched, first.Token, a.Token)
		}
		if a.IndexValue() > 0 {
			if value.Sign() < 0 {
				return fmt.Errorf("%w: credit atom %d carries %s",
					ErrTransferMalformed, a.IndexValue(), a.ValueString())
			}
			if a.WalletAddress == first.WalletAddress {
				return fmt.Errorf("%w: atom %d credits the source wallet",
					ErrTransferToSelf, a.IndexValue())
			}
		}
		sum.Add(sum, value)
	}
	if sum.Sign() != 0 {
		return fmt.Errorf("%w: values sum to %s", ErrTransferUnbalanced, ratString(sum))
	}

	if senderWallet != nil {
		balance, err := senderWallet.BalanceRat()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferMalformed, err)
		}
		remainder := new(big.Rat).Add(balance, primaryValue)
		if remainder.Sign() < 0 {
			return fmt.Errorf("%w: balance %s cannot cover %s",
				ErrTransferBalance, senderWallet.Balance, ratString(primaryValue))
		}
		if remainder.Cmp(sum) != 0 {
			return fmt.Errorf("%w: remainder %s does not equal value sum %s",
				ErrTransferRemainder, ratString(remainder), ratString(sum))
		}
	} else if primaryValue.Sign() != 0 {
		return fmt.Errorf("%w: no sender wallet for a non-zero transfer", ErrTransferRemainder)
	}
	return nil
}

func isHexOfLength(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
