// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/marinade-finance/marinade-cli-utils/pkg/transaction"
)

// The methods below build requests against the cached state. Authority checks run
// before anything is built and every PubkeyOrSigner carrying a signer is attached.

func request(ix *solana.GenericInstruction, err error, signers ...dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	if err != nil {
		return nil, err
	}
	r := transaction.NewRequest(ix)
	for _, s := range signers {
		r.SignerOf(s)
	}
	return r, nil
}

func (m *RPCMarinade) AddValidator(managerAuthority dynsigner.PubkeyOrSigner, validatorVote solana.PublicKey, score uint32, rentPayer dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := AddValidator(m.Instance, validatorVote, score, rentPayer.PublicKey())
	return request(ix, err, managerAuthority, rentPayer)
}

func (m *RPCMarinade) SetValidatorScore(managerAuthority dynsigner.PubkeyOrSigner, validatorVote solana.PublicKey, validatorIndex, score uint32) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := SetValidatorScore(m.Instance, validatorVote, validatorIndex, score)
	return request(ix, err, managerAuthority)
}

func (m *RPCMarinade) ConfigValidatorSystem(managerAuthority dynsigner.PubkeyOrSigner, extraRuns uint32) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := ConfigValidatorSystem(m.Instance, extraRuns)
	return request(ix, err, managerAuthority)
}

func (m *RPCMarinade) EmergencyUnstake(managerAuthority dynsigner.PubkeyOrSigner, stakeAccount solana.PublicKey, stakeIndex, validatorIndex uint32) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := EmergencyUnstake(m.Instance, stakeAccount, stakeIndex, validatorIndex)
	return request(ix, err, managerAuthority)
}

func (m *RPCMarinade) RemoveValidator(managerAuthority dynsigner.PubkeyOrSigner, validatorVote solana.PublicKey, validatorIndex uint32) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := RemoveValidator(m.Instance, validatorVote, validatorIndex)
	return request(ix, err, managerAuthority)
}

func (m *RPCMarinade) AddLiquidity(transferFrom dynsigner.PubkeyOrSigner, mintTo solana.PublicKey, lamports uint64) (*transaction.Request, error) {
	ix, err := AddLiquidity(m.Instance, transferFrom.PublicKey(), mintTo, lamports)
	return request(ix, err, transferFrom)
}

func (m *RPCMarinade) ChangeAuthority(adminAuthority dynsigner.PubkeyOrSigner, data ChangeAuthorityData) (*transaction.Request, error) {
	if err := VerifyAdminAuthority(m.State, adminAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := ChangeAuthority(m.Instance, data)
	return request(ix, err, adminAuthority)
}

func (m *RPCMarinade) DeactivateStake(stakeAccount solana.PublicKey, splitStakeAccount, splitStakeRentPayer dynsigner.PubkeyOrSigner, stakeIndex, validatorIndex uint32) (*transaction.Request, error) {
	ix, err := DeactivateStake(m.Instance, DeactivateStakeAccounts{
		StakeAccount:        stakeAccount,
		SplitStakeAccount:   splitStakeAccount.PublicKey(),
		SplitStakeRentPayer: splitStakeRentPayer.PublicKey(),
		StakeIndex:          stakeIndex,
		ValidatorIndex:      validatorIndex,
	})
	return request(ix, err, splitStakeAccount, splitStakeRentPayer)
}

func (m *RPCMarinade) Deposit(transferFrom dynsigner.PubkeyOrSigner, mintTo solana.PublicKey, lamports uint64) (*transaction.Request, error) {
	ix, err := Deposit(m.Instance, transferFrom.PublicKey(), mintTo, lamports)
	return request(ix, err, transferFrom)
}

func (m *RPCMarinade) DepositStakeAccount(stakeAccount solana.PublicKey, stakeAuthority dynsigner.PubkeyOrSigner, mintTo solana.PublicKey, validatorIndex uint32, validatorVote solana.PublicKey, rentPayer dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	ix, err := DepositStakeAccount(m.Instance, DepositStakeAccountAccounts{
		StakeAccount:   stakeAccount,
		StakeAuthority: stakeAuthority.PublicKey(),
		MintTo:         mintTo,
		ValidatorIndex: validatorIndex,
		ValidatorVote:  validatorVote,
		RentPayer:      rentPayer.PublicKey(),
	})
	return request(ix, err, stakeAuthority, rentPayer)
}

func (m *RPCMarinade) PartialUnstake(managerAuthority dynsigner.PubkeyOrSigner, stakeAccount solana.PublicKey, stakeIndex, validatorIndex uint32, splitStakeAccount, splitStakeRentPayer dynsigner.PubkeyOrSigner, desiredAmount uint64) (*transaction.Request, error) {
	if err := VerifyManagerAuthority(m.State, managerAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := PartialUnstake(m.Instance, PartialUnstakeAccounts{
		StakeAccount:         stakeAccount,
		StakeIndex:           stakeIndex,
		ValidatorIndex:       validatorIndex,
		SplitStakeAccount:    splitStakeAccount.PublicKey(),
		SplitStakeRentPayer:  splitStakeRentPayer.PublicKey(),
		DesiredUnstakeAmount: desiredAmount,
	})
	return request(ix, err, managerAuthority, splitStakeAccount, splitStakeRentPayer)
}

// Initialize targets a new state account so it only uses the program id of m.
func (m *RPCMarinade) Initialize(state dynsigner.Signer, accounts InitializeAccounts, data InitializeData) (*transaction.Request, error) {
	addr := Addresses{ProgramID: m.ProgramID, StateAddress: state.PublicKey()}
	ix, err := Initialize(addr, accounts, data)
	if err != nil {
		return nil, err
	}
	return transaction.NewRequest(ix).Signer(state), nil
}

func (m *RPCMarinade) LiquidUnstake(getMsolFrom solana.PublicKey, getMsolFromAuthority dynsigner.PubkeyOrSigner, transferSolTo solana.PublicKey, msolAmount uint64) (*transaction.Request, error) {
	ix, err := LiquidUnstake(m.Instance, getMsolFrom, getMsolFromAuthority.PublicKey(), transferSolTo, msolAmount)
	return request(ix, err, getMsolFromAuthority)
}

func (m *RPCMarinade) MergeStakes(destinationStake solana.PublicKey, destinationStakeIndex uint32, sourceStake solana.PublicKey, sourceStakeIndex, validatorIndex uint32) (*transaction.Request, error) {
	ix, err := MergeStakes(m.Instance, MergeStakesAccounts{
		DestinationStake:      destinationStake,
		DestinationStakeIndex: destinationStakeIndex,
		SourceStake:           sourceStake,
		SourceStakeIndex:      sourceStakeIndex,
		ValidatorIndex:        validatorIndex,
	})
	return request(ix, err)
}

func (m *RPCMarinade) RemoveLiquidity(burnFrom solana.PublicKey, burnFromAuthority dynsigner.PubkeyOrSigner, transferSolTo, transferMsolTo solana.PublicKey, tokens uint64) (*transaction.Request, error) {
	ix, err := RemoveLiquidity(m.Instance, burnFrom, burnFromAuthority.PublicKey(), transferSolTo, transferMsolTo, tokens)
	return request(ix, err, burnFromAuthority)
}

func (m *RPCMarinade) ConfigLp(adminAuthority dynsigner.PubkeyOrSigner, params ConfigLpParams) (*transaction.Request, error) {
	if err := VerifyAdminAuthority(m.State, adminAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := ConfigLp(m.Instance, params)
	return request(ix, err, adminAuthority)
}

func (m *RPCMarinade) ConfigMarinade(adminAuthority dynsigner.PubkeyOrSigner, params ConfigMarinadeParams) (*transaction.Request, error) {
	if err := VerifyAdminAuthority(m.State, adminAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := ConfigMarinade(m.Instance, params)
	return request(ix, err, adminAuthority)
}

func (m *RPCMarinade) StakeReserve(validatorIndex uint32, validatorVote solana.PublicKey, stakeAccount, rentPayer dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	ix, err := StakeReserve(m.Instance, validatorIndex, validatorVote, stakeAccount.PublicKey(), rentPayer.PublicKey())
	return request(ix, err, stakeAccount, rentPayer)
}

func (m *RPCMarinade) UpdateActive(stakeAccount solana.PublicKey, stakeIndex, validatorIndex uint32) (*transaction.Request, error) {
	ix, err := UpdateActive(m.Instance, stakeAccount, stakeIndex, validatorIndex)
	return request(ix, err)
}

func (m *RPCMarinade) UpdateDeactivated(stakeAccount solana.PublicKey, stakeIndex uint32) (*transaction.Request, error) {
	ix, err := UpdateDeactivated(m.Instance, stakeAccount, stakeIndex)
	return request(ix, err)
}

func (m *RPCMarinade) OrderUnstake(burnMsolFrom solana.PublicKey, burnMsolFromAuthority dynsigner.PubkeyOrSigner, msolAmount uint64, ticketAccount solana.PublicKey) (*transaction.Request, error) {
	ix, err := OrderUnstake(m.Instance, burnMsolFrom, burnMsolFromAuthority.PublicKey(), msolAmount, ticketAccount)
	return request(ix, err, burnMsolFromAuthority)
}

func (m *RPCMarinade) Claim(ticketAccount, beneficiary solana.PublicKey) (*transaction.Request, error) {
	ix, err := Claim(m.Addresses, ticketAccount, beneficiary)
	return request(ix, err)
}

func (m *RPCMarinade) EmergencyPause(pauseAuthority dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	if err := VerifyPauseAuthority(m.State, pauseAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := EmergencyPause(m.Instance)
	return request(ix, err, pauseAuthority)
}

func (m *RPCMarinade) EmergencyResume(pauseAuthority dynsigner.PubkeyOrSigner) (*transaction.Request, error) {
	if err := VerifyPauseAuthority(m.State, pauseAuthority.PublicKey()); err != nil {
		return nil, err
	}
	ix, err := EmergencyResume(m.Instance)
	return request(ix, err, pauseAuthority)
}

func (m *RPCMarinade) Redelegate(stakeAccount solana.PublicKey, splitStakeAccount, splitStakeRentPayer dynsigner.PubkeyOrSigner, destValidatorVote solana.PublicKey, redelegateStakeAccount dynsigner.PubkeyOrSigner, stakeIndex, sourceValidatorIndex, destValidatorIndex uint32) (*transaction.Request, error) {
	ix, err := Redelegate(m.Instance, RedelegateAccounts{
		StakeAccount:           stakeAccount,
		SplitStakeAccount:      splitStakeAccount.PublicKey(),
		SplitStakeRentPayer:    splitStakeRentPayer.PublicKey(),
		DestValidatorAccount:   destValidatorVote,
		RedelegateStakeAccount: redelegateStakeAccount.PublicKey(),
		StakeIndex:             stakeIndex,
		SourceValidatorIndex:   sourceValidatorIndex,
		DestValidatorIndex:     destValidatorIndex,
	})
	return request(ix, err, splitStakeAccount, splitStakeRentPayer, redelegateStakeAccount)
}

func (m *RPCMarinade) WithdrawStakeAccount(stakeAccount, burnMsolFrom solana.PublicKey, burnMsolAuthority, splitStakeAccount, splitStakeRentPayer dynsigner.PubkeyOrSigner, validatorIndex, stakeIndex uint32, msolAmount uint64, beneficiary solana.PublicKey) (*transaction.Request, error) {
	ix, err := WithdrawStakeAccount(m.Instance, WithdrawStakeAccountAccounts{
		StakeAccount:        stakeAccount,
		BurnMsolFrom:        burnMsolFrom,
		BurnMsolAuthority:   burnMsolAuthority.PublicKey(),
		SplitStakeAccount:   splitStakeAccount.PublicKey(),
		SplitStakeRentPayer: splitStakeRentPayer.PublicKey(),
		ValidatorIndex:      validatorIndex,
		StakeIndex:          stakeIndex,
		MsolAmount:          msolAmount,
		Beneficiary:         beneficiary,
	})
	return request(ix, err, burnMsolAuthority, splitStakeAccount, splitStakeRentPayer)
}
