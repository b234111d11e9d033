// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"github.com/gagliardetto/solana-go"
)

var (
	// ProgramID is the mainnet Marinade liquid staking program.
	ProgramID  = solana.MustPublicKeyFromBase58("MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD")
	// InstanceID is the mainnet Marinade state account.
	InstanceID = solana.MustPublicKeyFromBase58("8szGkuLTAux9XMgZ2vtY39jVSowEcpBfFfD8hXSEqdGC")

	StakeProgramID      = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
	StakeConfigID       = solana.MustPublicKeyFromBase58("StakeConfig11111111111111111111111111111111")
	SysvarEpochSchedule = solana.MustPublicKeyFromBase58("SysvarEpochSchedu1e111111111111111111111111")
	SysvarStakeHistory  = solana.MustPublicKeyFromBase58("SysvarStakeHistory1111111111111111111111111")
)
