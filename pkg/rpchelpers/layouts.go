// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package rpchelpers

import (
	"context"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

const (
	MintSize         = 82
	TokenAccountSize = 165
)

// COptionPubkey is the fixed size C-style option used by the token program.
type COptionPubkey struct {
	Set bool
	Key solana.PublicKey
}

func (o *COptionPubkey) UnmarshalWithDecoder(dec *bin.Decoder) error {
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	o.Set = tag == 1
	o.Key = solana.PublicKeyFromBytes(raw)
	return nil
}

type COptionU64 struct {
	Set   bool
	Value uint64
}

func (o *COptionU64) UnmarshalWithDecoder(dec *bin.Decoder) error {
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	v, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return err
	}
	o.Set = tag == 1
	o.Value = v
	return nil
}

type Mint struct {
	MintAuthority   COptionPubkey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority COptionPubkey
}

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        COptionPubkey
	State           uint8
	IsNative        COptionU64
	DelegatedAmount uint64
	CloseAuthority  COptionPubkey
}

func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, errors.Errorf("mint data is %d bytes, expected %d", len(data), MintSize)
	}
	var mint Mint
	if err := bin.NewBinDecoder(data[:MintSize]).Decode(&mint); err != nil {
		return nil, errors.WithStack(err)
	}
	return &mint, nil
}

func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, errors.Errorf("token account data is %d bytes, expected %d", len(data), TokenAccountSize)
	}
	var token TokenAccount
	if err := bin.NewBinDecoder(data[:TokenAccountSize]).Decode(&token); err != nil {
		return nil, errors.WithStack(err)
	}
	return &token, nil
}

// Clock is the content of the clock sysvar.
type Clock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func GetClock(ctx context.Context, client AccountReader) (*Clock, error) {
	data, err := AccountDataRetrying(ctx, client, solana.SysVarClockPubkey)
	if err != nil {
		return nil, err
	}
	var clock Clock
	if err := bin.NewBinDecoder(data).Decode(&clock); err != nil {
		return nil, errors.Wrap(err, "failed to decode clock sysvar")
	}
	return &clock, nil
}

type StakeStateKind uint32

const (
	StakeStateUninitialized StakeStateKind = iota
	StakeStateInitialized
	StakeStateStake
	StakeStateRewardsPool
)

func (k StakeStateKind) String() string {
	switch k {
	case StakeStateUninitialized:
		return "uninitialized"
	case StakeStateInitialized:
		return "initialized"
	case StakeStateStake:
		return "stake"
	case StakeStateRewardsPool:
		return "rewards-pool"
	}
	return "unknown"
}

type Lockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     solana.PublicKey
}

type StakeMeta struct {
	RentExemptReserve uint64
	Staker            solana.PublicKey
	Withdrawer        solana.PublicKey
	Lockup            Lockup
}

type Delegation struct {
	VoterPubkey        solana.PublicKey
	Stake              uint64
	ActivationEpoch    uint64
	DeactivationEpoch  uint64
	WarmupCooldownRate float64
}

type Stake struct {
	Delegation      Delegation
	CreditsObserved uint64
}

// StakeState is a decoded stake program account. Meta is set for the initialized
// and stake kinds, Stake only for the stake kind.
type StakeState struct {
	Kind  StakeStateKind
	Meta  *StakeMeta
	Stake *Stake
}

// DelegatedLamports is the delegated stake, 0 when not delegated.
func (s *StakeState) DelegatedLamports() uint64 {
	if s.Stake == nil {
		return 0
	}
	return s.Stake.Delegation.Stake
}

func DecodeStakeState(data []byte) (*StakeState, error) {
	dec := bin.NewBinDecoder(data)
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stake state tag")
	}
	state := &StakeState{Kind: StakeStateKind(tag)}
	switch state.Kind {
	case StakeStateUninitialized, StakeStateRewardsPool:
		return state, nil
	case StakeStateInitialized, StakeStateStake:
	default:
		return nil, errors.Errorf("unknown stake state tag %d", tag)
	}
	state.Meta = new(StakeMeta)
	if err := dec.Decode(state.Meta); err != nil {
		return nil, errors.Wrap(err, "failed to decode stake meta")
	}
	if state.Kind == StakeStateStake {
		state.Stake = new(Stake)
		if err := dec.Decode(state.Stake); err != nil {
			return nil, errors.Wrap(err, "failed to decode stake delegation")
		}
	}
	return state, nil
}
