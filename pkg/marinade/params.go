// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"github.com/gagliardetto/solana-go"
)

// ChangeAuthorityData replaces every authority that is set; nil fields are kept.
type ChangeAuthorityData struct {
	Admin                 *solana.PublicKey `bin:"optional"`
	ValidatorManager      *solana.PublicKey `bin:"optional"`
	OperationalSolAccount *solana.PublicKey `bin:"optional"`
	TreasuryMsolAccount   *solana.PublicKey `bin:"optional"`
	PauseAuthority        *solana.PublicKey `bin:"optional"`
}

type ConfigMarinadeParams struct {
	RewardsFee                  *Fee      `bin:"optional"`
	SlotsForStakeDelta          *uint64   `bin:"optional"`
	MinStake                    *uint64   `bin:"optional"`
	MinDeposit                  *uint64   `bin:"optional"`
	MinWithdraw                 *uint64   `bin:"optional"`
	StakingSolCap               *uint64   `bin:"optional"`
	LiquiditySolCap             *uint64   `bin:"optional"`
	WithdrawStakeAccountEnabled *bool     `bin:"optional"`
	DelayedUnstakeFee           *FeeCents `bin:"optional"`
	WithdrawStakeAccountFee     *FeeCents `bin:"optional"`
	MaxStakeMovedPerEpoch       *Fee      `bin:"optional"`
}

type ConfigLpParams struct {
	MinFee          *Fee    `bin:"optional"`
	MaxFee          *Fee    `bin:"optional"`
	LiquidityTarget *uint64 `bin:"optional"`
	TreasuryCut     *Fee    `bin:"optional"`
}

type LiqPoolInitializeData struct {
	LpLiquidityTarget uint64
	LpMaxFee          Fee
	LpMinFee          Fee
	LpTreasuryCut     Fee
}

type InitializeData struct {
	AdminAuthority                 solana.PublicKey
	ValidatorManagerAuthority      solana.PublicKey
	MinStake                       uint64
	RewardsFee                     Fee
	LiqPool                        LiqPoolInitializeData
	AdditionalStakeRecordSpace     uint32
	AdditionalValidatorRecordSpace uint32
	SlotsForStakeDelta             uint64
	PauseAuthority                 solana.PublicKey
}
