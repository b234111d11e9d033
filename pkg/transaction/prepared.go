// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
)

// PreparedTransaction is an unsigned transaction with the signers it needs.
type PreparedTransaction struct {
	Transaction *solana.Transaction
	Signers     []dynsigner.Signer
}

func NewPreparedTransaction(tx *solana.Transaction, sb *SignatureBuilder) (*PreparedTransaction, error) {
	signers, err := sb.SignersForTransaction(tx)
	if err != nil {
		return nil, err
	}
	return &PreparedTransaction{Transaction: tx, Signers: signers}, nil
}

// NewPreparedTransactionNoSigners keeps whatever signers sb has for tx.
func NewPreparedTransactionNoSigners(tx *solana.Transaction, sb *SignatureBuilder) *PreparedTransaction {
	p := &PreparedTransaction{Transaction: tx}
	for _, key := range requiredSigners(tx) {
		if s, ok := sb.Signer(key); ok {
			p.Signers = append(p.Signers, s)
		}
	}
	return p
}

func (p *PreparedTransaction) signatureBuilder(check bool) *SignatureBuilder {
	sb := NewSignatureBuilder()
	sb.checkSigner = check
	for _, s := range p.Signers {
		sb.AddSigner(s)
	}
	return sb
}

// Sign sets the blockhash and signs with all signers; every one must be present.
func (p *PreparedTransaction) Sign(blockhash solana.Hash) (*solana.Transaction, error) {
	p.Transaction.Message.RecentBlockhash = blockhash
	if err := p.signatureBuilder(true).SignTransaction(p.Transaction); err != nil {
		return nil, errors.Wrapf(err, "failed to sign transaction with blockhash %s", blockhash)
	}
	return p.Transaction, nil
}

// PartialSign signs with the available signers and leaves the rest zeroed.
func (p *PreparedTransaction) PartialSign(blockhash solana.Hash) (*solana.Transaction, error) {
	p.Transaction.Message.RecentBlockhash = blockhash
	if err := p.signatureBuilder(false).SignTransaction(p.Transaction); err != nil {
		return nil, err
	}
	return p.Transaction, nil
}

func (p *PreparedTransaction) SignerKeys() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(p.Signers))
	for _, s := range p.Signers {
		keys = append(keys, s.PublicKey())
	}
	return keys
}
