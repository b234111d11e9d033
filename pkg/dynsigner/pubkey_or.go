// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package dynsigner

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PubkeyOrSigner is either a bare public key or a signer, depending on the CLI
// parameters. With --print-only or --simulate a pubkey may stand in for a keypair.
type PubkeyOrSigner struct {
	pubkey *solana.PublicKey
	signer Signer
}

func NewPubkey(pubkey solana.PublicKey) PubkeyOrSigner {
	return PubkeyOrSigner{pubkey: &pubkey}
}

func NewSigner(signer Signer) PubkeyOrSigner {
	return PubkeyOrSigner{signer: signer}
}

// PublicKey returns the signer's key when present, otherwise the bare pubkey.
func (p PubkeyOrSigner) PublicKey() solana.PublicKey {
	if p.signer != nil {
		return p.signer.PublicKey()
	}
	if p.pubkey != nil {
		return *p.pubkey
	}
	panic("PubkeyOrSigner is not initialized")
}

func (p PubkeyOrSigner) IsSigner() bool {
	return p.signer != nil
}

func (p PubkeyOrSigner) TryAsSigner() (Signer, bool) {
	return p.signer, p.signer != nil
}

// MustSigner panics when only a pubkey is held.
func (p PubkeyOrSigner) MustSigner() Signer {
	if p.signer == nil {
		panic("cannot convert PubkeyOrSigner pubkey to signer")
	}
	return p.signer
}

func (p PubkeyOrSigner) String() string {
	if p.signer == nil && p.pubkey == nil {
		return "<uninitialized>"
	}
	kind := "pubkey"
	if p.signer != nil {
		kind = "signer"
	}
	return fmt.Sprintf("%s(%s)", kind, p.PublicKey())
}

// PubkeyOrKeypair is the keypair-only flavour of PubkeyOrSigner.
type PubkeyOrKeypair struct {
	pubkey  *solana.PublicKey
	keypair solana.PrivateKey
}

func NewPubkeyOnly(pubkey solana.PublicKey) PubkeyOrKeypair {
	return PubkeyOrKeypair{pubkey: &pubkey}
}

func NewKeypair(keypair solana.PrivateKey) PubkeyOrKeypair {
	return PubkeyOrKeypair{keypair: keypair}
}

func (p PubkeyOrKeypair) PublicKey() solana.PublicKey {
	if len(p.keypair) > 0 {
		return p.keypair.PublicKey()
	}
	if p.pubkey != nil {
		return *p.pubkey
	}
	panic("PubkeyOrKeypair is not initialized")
}

func (p PubkeyOrKeypair) TryAsKeypair() (solana.PrivateKey, bool) {
	return p.keypair, len(p.keypair) > 0
}

func (p PubkeyOrKeypair) MustKeypair() solana.PrivateKey {
	if len(p.keypair) == 0 {
		panic("cannot convert PubkeyOrKeypair pubkey to keypair")
	}
	return p.keypair
}

// AsPubkeyOrSigner widens the keypair variant to a signer.
func (p PubkeyOrKeypair) AsPubkeyOrSigner() PubkeyOrSigner {
	if len(p.keypair) > 0 {
		return NewSigner(NewKeypairSigner(p.keypair))
	}
	return NewPubkey(p.PublicKey())
}
