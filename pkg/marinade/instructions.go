// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Instance is a Marinade state account together with its decoded content.
type Instance struct {
	Addresses
	State *State
}

func (in Instance) validatorList() solana.PublicKey {
	return in.State.ValidatorSystem.ValidatorList.Account
}

func (in Instance) stakeList() solana.PublicKey {
	return in.State.StakeSystem.StakeList.Account
}

func newInstruction(programID solana.PublicKey, name string, args interface{}, accounts ...*solana.AccountMeta) (*solana.GenericInstruction, error) {
	buf := new(bytes.Buffer)
	buf.Write(instructionDiscriminator(name))
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s arguments", name)
		}
	}
	return solana.NewInstruction(programID, accounts, buf.Bytes()), nil
}

func readonly(key solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(key)
}

func writable(key solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(key).WRITE()
}

func signer(key solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(key).SIGNER()
}

func writableSigner(key solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(key).WRITE().SIGNER()
}

func AddValidator(in Instance, validatorVote solana.PublicKey, score uint32, rentPayer solana.PublicKey) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "add_validator",
		struct{ Score uint32 }{score},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
		writable(in.validatorList()),
		readonly(validatorVote),
		writable(in.DuplicationFlag(validatorVote)),
		writableSigner(rentPayer),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
		readonly(solana.SystemProgramID),
	)
}

func ConfigValidatorSystem(in Instance, extraRuns uint32) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "config_validator_system",
		struct{ ExtraRuns uint32 }{extraRuns},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
	)
}

func SetValidatorScore(in Instance, validatorVote solana.PublicKey, validatorIndex, score uint32) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "set_validator_score",
		struct {
			Index         uint32
			ValidatorVote solana.PublicKey
			Score         uint32
		}{validatorIndex, validatorVote, score},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
		writable(in.validatorList()),
	)
}

func RemoveValidator(in Instance, validatorVote solana.PublicKey, index uint32) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "remove_validator",
		struct {
			Index         uint32
			ValidatorVote solana.PublicKey
		}{index, validatorVote},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
		writable(in.validatorList()),
		writable(in.DuplicationFlag(validatorVote)),
		writable(in.State.OperationalSolAccount),
	)
}

func EmergencyUnstake(in Instance, stakeAccount solana.PublicKey, stakeIndex, validatorIndex uint32) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "emergency_unstake",
		struct{ StakeIndex, ValidatorIndex uint32 }{stakeIndex, validatorIndex},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(stakeAccount),
		readonly(in.StakeDepositAuthority()),
		readonly(solana.SysVarClockPubkey),
		readonly(StakeProgramID),
	)
}

func AddLiquidity(in Instance, transferFrom, mintTo solana.PublicKey, lamports uint64) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "add_liquidity",
		struct{ Lamports uint64 }{lamports},
		writable(in.StateAddress),
		writable(in.State.LiqPool.LpMint),
		readonly(in.LpMintAuthority()),
		readonly(in.State.LiqPool.MsolLeg),
		writable(in.LiqPoolSolLeg()),
		writableSigner(transferFrom),
		writable(mintTo),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
	)
}

func ChangeAuthority(in Instance, data ChangeAuthorityData) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "change_authority",
		data,
		writable(in.StateAddress),
		signer(in.State.AdminAuthority),
	)
}

type DeactivateStakeAccounts struct {
	StakeAccount        solana.PublicKey
	SplitStakeAccount   solana.PublicKey
	SplitStakeRentPayer solana.PublicKey
	StakeIndex          uint32
	ValidatorIndex      uint32
}

func DeactivateStake(in Instance, a DeactivateStakeAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "deactivate_stake",
		struct{ StakeIndex, ValidatorIndex uint32 }{a.StakeIndex, a.ValidatorIndex},
		writable(in.StateAddress),
		readonly(in.Reserve()),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(a.StakeAccount),
		readonly(in.StakeDepositAuthority()),
		writableSigner(a.SplitStakeAccount),
		writableSigner(a.SplitStakeRentPayer),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
		readonly(SysvarEpochSchedule),
		readonly(SysvarStakeHistory),
		readonly(solana.SystemProgramID),
		readonly(StakeProgramID),
	)
}

func Deposit(in Instance, transferFrom, mintTo solana.PublicKey, lamports uint64) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "deposit",
		struct{ Lamports uint64 }{lamports},
		writable(in.StateAddress),
		writable(in.State.MsolMint),
		writable(in.LiqPoolSolLeg()),
		writable(in.State.LiqPool.MsolLeg),
		readonly(in.LiqPoolMsolLegAuthority()),
		writable(in.Reserve()),
		writableSigner(transferFrom),
		writable(mintTo),
		readonly(in.MsolMintAuthority()),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
	)
}

type DepositStakeAccountAccounts struct {
	StakeAccount   solana.PublicKey
	StakeAuthority solana.PublicKey
	MintTo         solana.PublicKey
	ValidatorIndex uint32
	ValidatorVote  solana.PublicKey
	RentPayer      solana.PublicKey
}

func DepositStakeAccount(in Instance, a DepositStakeAccountAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "deposit_stake_account",
		struct{ ValidatorIndex uint32 }{a.ValidatorIndex},
		writable(in.StateAddress),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(a.StakeAccount),
		signer(a.StakeAuthority),
		writable(in.DuplicationFlag(a.ValidatorVote)),
		writableSigner(a.RentPayer),
		writable(in.State.MsolMint),
		writable(a.MintTo),
		readonly(in.MsolMintAuthority()),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
		readonly(StakeProgramID),
	)
}

type WithdrawStakeAccountAccounts struct {
	StakeAccount        solana.PublicKey
	BurnMsolFrom        solana.PublicKey
	BurnMsolAuthority   solana.PublicKey
	SplitStakeAccount   solana.PublicKey
	SplitStakeRentPayer solana.PublicKey
	ValidatorIndex      uint32
	StakeIndex          uint32
	MsolAmount          uint64
	Beneficiary         solana.PublicKey
}

func WithdrawStakeAccount(in Instance, a WithdrawStakeAccountAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "withdraw_stake_account",
		struct {
			StakeIndex     uint32
			ValidatorIndex uint32
			MsolAmount     uint64
			Beneficiary    solana.PublicKey
		}{a.StakeIndex, a.ValidatorIndex, a.MsolAmount, a.Beneficiary},
		writable(in.StateAddress),
		writable(in.State.MsolMint),
		writable(a.BurnMsolFrom),
		signer(a.BurnMsolAuthority),
		writable(in.State.TreasuryMsolAccount),
		writable(in.validatorList()),
		writable(in.stakeList()),
		readonly(in.StakeWithdrawAuthority()),
		readonly(in.StakeDepositAuthority()),
		writable(a.StakeAccount),
		writableSigner(a.SplitStakeAccount),
		writableSigner(a.SplitStakeRentPayer),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
		readonly(StakeProgramID),
	)
}

type PartialUnstakeAccounts struct {
	StakeAccount         solana.PublicKey
	StakeIndex           uint32
	ValidatorIndex       uint32
	SplitStakeAccount    solana.PublicKey
	SplitStakeRentPayer  solana.PublicKey
	DesiredUnstakeAmount uint64
}

func PartialUnstake(in Instance, a PartialUnstakeAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "partial_unstake",
		struct {
			StakeIndex           uint32
			ValidatorIndex       uint32
			DesiredUnstakeAmount uint64
		}{a.StakeIndex, a.ValidatorIndex, a.DesiredUnstakeAmount},
		writable(in.StateAddress),
		signer(in.State.ValidatorSystem.ManagerAuthority),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(a.StakeAccount),
		readonly(in.StakeDepositAuthority()),
		readonly(in.Reserve()),
		writableSigner(a.SplitStakeAccount),
		writableSigner(a.SplitStakeRentPayer),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
		readonly(SysvarStakeHistory),
		readonly(solana.SystemProgramID),
		readonly(StakeProgramID),
	)
}

// InitializeAccounts are the pre-created accounts a new instance takes over.
type InitializeAccounts struct {
	MsolMint              solana.PublicKey
	OperationalSolAccount solana.PublicKey
	StakeList             solana.PublicKey
	ValidatorList         solana.PublicKey
	TreasuryMsolAccount   solana.PublicKey
	LpMint                solana.PublicKey
	LiqPoolMsolLeg        solana.PublicKey
}

// Initialize has no decoded state yet so it takes only the addresses.
func Initialize(addr Addresses, a InitializeAccounts, data InitializeData) (*solana.GenericInstruction, error) {
	return newInstruction(addr.ProgramID, "initialize",
		data,
		writable(addr.StateAddress),
		readonly(addr.Reserve()),
		writable(a.StakeList),
		writable(a.ValidatorList),
		readonly(a.MsolMint),
		readonly(a.OperationalSolAccount),
		readonly(a.LpMint),
		readonly(addr.LiqPoolSolLeg()),
		readonly(a.LiqPoolMsolLeg),
		readonly(a.TreasuryMsolAccount),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
	)
}

func LiquidUnstake(in Instance, getMsolFrom, getMsolFromAuthority, transferSolTo solana.PublicKey, msolAmount uint64) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "liquid_unstake",
		struct{ MsolAmount uint64 }{msolAmount},
		writable(in.StateAddress),
		writable(in.State.MsolMint),
		writable(in.LiqPoolSolLeg()),
		writable(in.State.LiqPool.MsolLeg),
		writable(in.State.TreasuryMsolAccount),
		writable(getMsolFrom),
		signer(getMsolFromAuthority),
		writable(transferSolTo),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
	)
}

type MergeStakesAccounts struct {
	DestinationStake      solana.PublicKey
	DestinationStakeIndex uint32
	SourceStake           solana.PublicKey
	SourceStakeIndex      uint32
	ValidatorIndex        uint32
}

func MergeStakes(in Instance, a MergeStakesAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "merge_stakes",
		struct {
			DestinationStakeIndex uint32
			SourceStakeIndex      uint32
			ValidatorIndex        uint32
		}{a.DestinationStakeIndex, a.SourceStakeIndex, a.ValidatorIndex},
		writable(in.StateAddress),
		writable(in.stakeList()),
		writable(in.validatorList()),
		writable(a.DestinationStake),
		writable(a.SourceStake),
		readonly(in.StakeDepositAuthority()),
		readonly(in.StakeWithdrawAuthority()),
		writable(in.State.OperationalSolAccount),
		readonly(solana.SysVarClockPubkey),
		readonly(SysvarStakeHistory),
		readonly(StakeProgramID),
	)
}

type RedelegateAccounts struct {
	StakeAccount           solana.PublicKey
	SplitStakeAccount      solana.PublicKey
	SplitStakeRentPayer    solana.PublicKey
	DestValidatorAccount   solana.PublicKey
	RedelegateStakeAccount solana.PublicKey
	StakeIndex             uint32
	SourceValidatorIndex   uint32
	DestValidatorIndex     uint32
}

func Redelegate(in Instance, a RedelegateAccounts) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "redelegate",
		struct {
			StakeIndex           uint32
			SourceValidatorIndex uint32
			DestValidatorIndex   uint32
		}{a.StakeIndex, a.SourceValidatorIndex, a.DestValidatorIndex},
		writable(in.StateAddress),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(a.StakeAccount),
		readonly(in.StakeDepositAuthority()),
		readonly(in.Reserve()),
		writableSigner(a.SplitStakeAccount),
		writableSigner(a.SplitStakeRentPayer),
		readonly(a.DestValidatorAccount),
		writableSigner(a.RedelegateStakeAccount),
		readonly(solana.SysVarClockPubkey),
		readonly(SysvarStakeHistory),
		readonly(StakeConfigID),
		readonly(solana.SystemProgramID),
		readonly(StakeProgramID),
	)
}

func RemoveLiquidity(in Instance, burnFrom, burnFromAuthority, transferSolTo, transferMsolTo solana.PublicKey, tokens uint64) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "remove_liquidity",
		struct{ Tokens uint64 }{tokens},
		writable(in.StateAddress),
		writable(in.State.LiqPool.LpMint),
		writable(burnFrom),
		signer(burnFromAuthority),
		writable(transferSolTo),
		writable(transferMsolTo),
		writable(in.LiqPoolSolLeg()),
		writable(in.State.LiqPool.MsolLeg),
		readonly(in.LiqPoolMsolLegAuthority()),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
	)
}

func ConfigLp(in Instance, params ConfigLpParams) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "config_lp",
		params,
		writable(in.StateAddress),
		signer(in.State.AdminAuthority),
	)
}

func ConfigMarinade(in Instance, params ConfigMarinadeParams) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "config_marinade",
		params,
		writable(in.StateAddress),
		signer(in.State.AdminAuthority),
	)
}

func StakeReserve(in Instance, validatorIndex uint32, validatorVote, stakeAccount, rentPayer solana.PublicKey) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "stake_reserve",
		struct{ ValidatorIndex uint32 }{validatorIndex},
		writable(in.StateAddress),
		writable(in.validatorList()),
		writable(in.stakeList()),
		writable(validatorVote),
		writable(in.Reserve()),
		writableSigner(stakeAccount),
		readonly(in.StakeDepositAuthority()),
		writableSigner(rentPayer),
		readonly(solana.SysVarClockPubkey),
		readonly(SysvarEpochSchedule),
		readonly(solana.SysVarRentPubkey),
		readonly(SysvarStakeHistory),
		readonly(StakeConfigID),
		readonly(solana.SystemProgramID),
		readonly(StakeProgramID),
	)
}

func (in Instance) updateCommon(stakeAccount solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		writable(in.StateAddress),
		writable(in.stakeList()),
		writable(stakeAccount),
		readonly(in.StakeWithdrawAuthority()),
		writable(in.Reserve()),
		writable(in.State.MsolMint),
		readonly(in.MsolMintAuthority()),
		writable(in.State.TreasuryMsolAccount),
		readonly(solana.SysVarClockPubkey),
		readonly(SysvarStakeHistory),
		readonly(StakeProgramID),
		readonly(solana.TokenProgramID),
	}
}

func UpdateActive(in Instance, stakeAccount solana.PublicKey, stakeIndex, validatorIndex uint32) (*solana.GenericInstruction, error) {
	accounts := append(in.updateCommon(stakeAccount), writable(in.validatorList()))
	return newInstruction(in.ProgramID, "update_active",
		struct{ StakeIndex, ValidatorIndex uint32 }{stakeIndex, validatorIndex},
		accounts...,
	)
}

func UpdateDeactivated(in Instance, stakeAccount solana.PublicKey, stakeIndex uint32) (*solana.GenericInstruction, error) {
	accounts := append(in.updateCommon(stakeAccount),
		writable(in.State.OperationalSolAccount),
		readonly(solana.SystemProgramID),
	)
	return newInstruction(in.ProgramID, "update_deactivated",
		struct{ StakeIndex uint32 }{stakeIndex},
		accounts...,
	)
}

// Claim does not read the state, only its address.
func Claim(addr Addresses, ticketAccount, transferSolTo solana.PublicKey) (*solana.GenericInstruction, error) {
	return newInstruction(addr.ProgramID, "claim", nil,
		writable(addr.StateAddress),
		writable(addr.Reserve()),
		writable(ticketAccount),
		writable(transferSolTo),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SystemProgramID),
	)
}

func OrderUnstake(in Instance, burnMsolFrom, burnMsolFromAuthority solana.PublicKey, msolAmount uint64, newTicketAccount solana.PublicKey) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "order_unstake",
		struct{ MsolAmount uint64 }{msolAmount},
		writable(in.StateAddress),
		writable(in.State.MsolMint),
		writable(burnMsolFrom),
		signer(burnMsolFromAuthority),
		writable(newTicketAccount),
		readonly(solana.SysVarClockPubkey),
		readonly(solana.SysVarRentPubkey),
		readonly(solana.TokenProgramID),
	)
}

func EmergencyPause(in Instance) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "pause", nil,
		writable(in.StateAddress),
		signer(in.State.PauseAuthority),
	)
}

func EmergencyResume(in Instance) (*solana.GenericInstruction, error) {
	return newInstruction(in.ProgramID, "resume", nil,
		writable(in.StateAddress),
		signer(in.State.PauseAuthority),
	)
}
