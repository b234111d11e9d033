// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

// Package transaction groups instructions into signed Solana transactions and
// executes them.
package transaction

import (
	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
)

// Request is a set of instructions executed together with the signers they need.
type Request struct {
	Instructions []solana.Instruction
	Signers      []dynsigner.Signer
}

func NewRequest(instructions ...solana.Instruction) *Request {
	return &Request{Instructions: instructions}
}

func (r *Request) Instruction(ix solana.Instruction) *Request {
	r.Instructions = append(r.Instructions, ix)
	return r
}

func (r *Request) Signer(s dynsigner.Signer) *Request {
	r.Signers = append(r.Signers, s)
	return r
}

// SignerOf attaches the signer of p when p carries one.
func (r *Request) SignerOf(p dynsigner.PubkeyOrSigner) *Request {
	if s, ok := p.TryAsSigner(); ok {
		r.Signers = append(r.Signers, s)
	}
	return r
}
