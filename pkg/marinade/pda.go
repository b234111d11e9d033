// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"github.com/gagliardetto/solana-go"
)

const (
	reserveSeed           = "reserve"
	msolMintAuthoritySeed = "st_mint"
	solLegSeed            = "liq_sol"
	msolLegAuthoritySeed  = "liq_st_sol_authority"
	lpMintAuthoritySeed   = "liq_mint"
	stakeDepositSeed      = "deposit"
	stakeWithdrawSeed     = "withdraw"
	uniqueValidatorSeed   = "unique_validator"
)

// Addresses derives the program addresses of one Marinade instance.
type Addresses struct {
	ProgramID    solana.PublicKey
	StateAddress solana.PublicKey
}

func (a Addresses) find(seeds ...[]byte) solana.PublicKey {
	all := append([][]byte{a.StateAddress.Bytes()}, seeds...)
	// A valid bump always exists for 32 byte seeds.
	address, _, err := solana.FindProgramAddress(all, a.ProgramID)
	if err != nil {
		panic(err)
	}
	return address
}

func (a Addresses) Reserve() solana.PublicKey {
	return a.find([]byte(reserveSeed))
}

func (a Addresses) MsolMintAuthority() solana.PublicKey {
	return a.find([]byte(msolMintAuthoritySeed))
}

func (a Addresses) LiqPoolSolLeg() solana.PublicKey {
	return a.find([]byte(solLegSeed))
}

func (a Addresses) LiqPoolMsolLegAuthority() solana.PublicKey {
	return a.find([]byte(msolLegAuthoritySeed))
}

func (a Addresses) LpMintAuthority() solana.PublicKey {
	return a.find([]byte(lpMintAuthoritySeed))
}

func (a Addresses) StakeDepositAuthority() solana.PublicKey {
	return a.find([]byte(stakeDepositSeed))
}

func (a Addresses) StakeWithdrawAuthority() solana.PublicKey {
	return a.find([]byte(stakeWithdrawSeed))
}

// DuplicationFlag marks a validator vote account as already present in the list.
func (a Addresses) DuplicationFlag(validatorVote solana.PublicKey) solana.PublicKey {
	return a.find([]byte(uniqueValidatorSeed), validatorVote.Bytes())
}
