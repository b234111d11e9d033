// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

// Package dynsigner aligns the signers produced by the CLI argument helpers with the
// signers expected by the transaction builders and executors.
package dynsigner

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ErrNoPrivateKey is returned when a keypair signer holds no key material.
var ErrNoPrivateKey = errors.New("keypair signer has no private key")

// Signer is a capability able to report its public key and sign messages.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
	// IsInteractive reports whether signing may require user interaction.
	IsInteractive() bool
}

// KeypairSigner signs with an in-memory ed25519 keypair.
type KeypairSigner struct {
	key solana.PrivateKey
}

// NewKeypairSigner wraps a private key.
func NewKeypairSigner(key solana.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

// NewRandomKeypairSigner generates a fresh keypair.
func NewRandomKeypairSigner() (*KeypairSigner, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate keypair")
	}
	return NewKeypairSigner(key), nil
}

func (k *KeypairSigner) PublicKey() solana.PublicKey {
	return k.key.PublicKey()
}

func (k *KeypairSigner) Sign(message []byte) (solana.Signature, error) {
	if len(k.key) == 0 {
		return solana.Signature{}, ErrNoPrivateKey
	}
	return k.key.Sign(message)
}

func (k *KeypairSigner) IsInteractive() bool {
	return false
}

// PrivateKey exposes the underlying key material.
func (k *KeypairSigner) PrivateKey() solana.PrivateKey {
	return k.key
}

// DynSigner holds a shared signer and forwards every operation to it unchanged.
// It lets a signer loaded from a CLI argument be used wherever a concrete Signer
// value is required.
type DynSigner struct {
	Signer
}

// NewDynSigner wraps s.
func NewDynSigner(s Signer) DynSigner {
	return DynSigner{Signer: s}
}

func (d DynSigner) PublicKey() solana.PublicKey {
	return d.Signer.PublicKey()
}

// TryPublicKey returns the public key, failing only when no signer is held.
func (d DynSigner) TryPublicKey() (solana.PublicKey, error) {
	if d.Signer == nil {
		return solana.PublicKey{}, errors.New("dyn signer is empty")
	}
	return d.Signer.PublicKey(), nil
}

func (d DynSigner) Sign(message []byte) (solana.Signature, error) {
	return d.Signer.Sign(message)
}

func (d DynSigner) IsInteractive() bool {
	return d.Signer.IsInteractive()
}
