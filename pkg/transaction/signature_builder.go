// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSigner     = errors.New("unknown signer")
	ErrNotEnoughSigners  = errors.New("not enough signers")
	ErrTooBigTransaction = errors.New("too big transaction")
)

// SignatureBuilder keeps signers by public key.
type SignatureBuilder struct {
	signers     map[solana.PublicKey]dynsigner.Signer
	checkSigner bool
}

func NewSignatureBuilder() *SignatureBuilder {
	return &SignatureBuilder{
		signers:     map[solana.PublicKey]dynsigner.Signer{},
		checkSigner: true,
	}
}

// NewSignatureBuilderWithoutCheck tolerates missing signers when signing.
func NewSignatureBuilderWithoutCheck() *SignatureBuilder {
	b := NewSignatureBuilder()
	b.checkSigner = false
	return b
}

func (b *SignatureBuilder) AddSigner(s dynsigner.Signer) solana.PublicKey {
	key := s.PublicKey()
	b.signers[key] = s
	return key
}

// NewSigner generates and registers a fresh keypair.
func (b *SignatureBuilder) NewSigner() (solana.PublicKey, error) {
	s, err := dynsigner.NewRandomKeypairSigner()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return b.AddSigner(s), nil
}

func (b *SignatureBuilder) Contains(key solana.PublicKey) bool {
	_, ok := b.signers[key]
	return ok
}

func (b *SignatureBuilder) Signer(key solana.PublicKey) (dynsigner.Signer, bool) {
	s, ok := b.signers[key]
	return s, ok
}

// Keys returns the registered keys in a stable order.
func (b *SignatureBuilder) Keys() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(b.signers))
	for k := range b.signers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (b *SignatureBuilder) Len() int {
	return len(b.signers)
}

func requiredSigners(tx *solana.Transaction) []solana.PublicKey {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	return tx.Message.AccountKeys[:n]
}

// SignTransaction signs every required signature it has a signer for. A missing
// signer is an error only when checking is on.
func (b *SignatureBuilder) SignTransaction(tx *solana.Transaction) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to serialize message")
	}
	keys := requiredSigners(tx)
	if len(tx.Signatures) != len(keys) {
		tx.Signatures = make([]solana.Signature, len(keys))
	}
	for pos, key := range keys {
		s, ok := b.signers[key]
		if !ok {
			if b.checkSigner {
				log.Error().Str("expected", key.String()).Interface("available", b.Keys()).Msg("sign_transaction: not enough signers")
				return errors.Wrapf(ErrNotEnoughSigners, "missing %s", key)
			}
			log.Debug().Str("expected", key.String()).Msg("sign_transaction: signer not available")
			continue
		}
		sig, err := s.Sign(message)
		if err != nil {
			return errors.Wrapf(err, "signer %s failed", key)
		}
		tx.Signatures[pos] = sig
	}
	return nil
}

// SignersForTransaction returns the signers required by tx in signature order, or
// the first key without a signer.
func (b *SignatureBuilder) SignersForTransaction(tx *solana.Transaction) ([]dynsigner.Signer, error) {
	keys := requiredSigners(tx)
	out := make([]dynsigner.Signer, 0, len(keys))
	for _, key := range keys {
		s, ok := b.signers[key]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownSigner, "%s", key)
		}
		out = append(out, s)
	}
	return out, nil
}
