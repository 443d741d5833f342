package client

import (
	"context"
	"fmt"

	klog "github.com/wishknish/knishio-client-go/internal/log"
	"github.com/wishknish/knishio-client-go/pkg/molecule"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

const proposeMoleculeMutation = `mutation ProposeMolecule($molecule: MoleculeInput!) {
  ProposeMolecule(molecule: $molecule) {
    molecularHash
    status
    reason
  }
}`

const balanceQuery = `query Balance($bundleHash: String!, $token: String!) {
  Balance(bundleHash: $bundleHash, token: $token) {
    address
    bundleHash
    tokenSlug
    batchId
    position
    amount
  }
}`

// ProposalResult is the node's verdict on a proposed molecule.
type ProposalResult struct {
	MolecularHash string `json:"molecularHash"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// Accepted reports whether the node accepted the molecule.
func (r *ProposalResult) Accepted() bool {
	return r.Status == "accepted"
}

// ProposeMolecule submits a signed molecule to the node for validation and
// commitment. The molecule must be signed; the node re-runs the full check
// suite and reports its verdict in the result.
func (c *Client) ProposeMolecule(ctx context.Context, m *molecule.Molecule) (*ProposalResult, error) {
	if m.MolecularHash == "" {
		return nil, fmt.Errorf("molecule is not signed")
	}

	var data struct {
		ProposeMolecule ProposalResult `json:"ProposeMolecule"`
	}
	vars := map[string]interface{}{"molecule": m}
	if err := c.Query(ctx, proposeMoleculeMutation, vars, &data); err != nil {
		return nil, fmt.Errorf("propose molecule: %w", err)
	}

	klog.Client.Debug().
		Str("hash", data.ProposeMolecule.MolecularHash).
		Str("status", data.ProposeMolecule.Status).
		Msg("molecule proposed")

	return &data.ProposeMolecule, nil
}

// balanceRecord is the node's wire shape for a wallet balance.
type balanceRecord struct {
	Address  string `json:"address"`
	Bundle   string `json:"bundleHash"`
	Token    string `json:"tokenSlug"`
	BatchID  string `json:"batchId"`
	Position string `json:"position"`
	Amount   string `json:"amount"`
}

// Balance queries the node for the wallet holding the given token under the
// given bundle hash. Returns nil when the node knows no such wallet.
func (c *Client) Balance(ctx context.Context, bundle, token string) (*wallet.Wallet, error) {
	var data struct {
		Balance *balanceRecord `json:"Balance"`
	}
	vars := map[string]interface{}{
		"bundleHash": bundle,
		"token":      token,
	}
	if err := c.Query(ctx, balanceQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("query balance: %w", err)
	}
	if data.Balance == nil {
		return nil, nil
	}

	rec := data.Balance
	return &wallet.Wallet{
		Token:    rec.Token,
		Position: rec.Position,
		Address:  rec.Address,
		Bundle:   rec.Bundle,
		Balance:  rec.Amount,
		BatchID:  rec.BatchID,
	}, nil
}
