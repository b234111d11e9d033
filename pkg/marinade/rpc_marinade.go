// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"context"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/rpchelpers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StakeInfo is a stake list record joined with its on-chain stake account.
type StakeInfo struct {
	Index   uint32
	Record  StakeRecord
	Stake   *rpchelpers.StakeState
	Balance uint64
}

// RPCMarinade reads one Marinade instance over RPC and caches its state.
type RPCMarinade struct {
	Client rpchelpers.AccountReader
	Instance
}

// New loads the state of the instance.
func New(ctx context.Context, client rpchelpers.AccountReader, programID, instanceID solana.PublicKey) (*RPCMarinade, error) {
	m := &RPCMarinade{
		Client: client,
		Instance: Instance{
			Addresses: Addresses{ProgramID: programID, StateAddress: instanceID},
		},
	}
	if err := m.Update(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Update reloads the cached state.
func (m *RPCMarinade) Update(ctx context.Context) error {
	data, err := rpchelpers.AccountDataRetrying(ctx, m.Client, m.StateAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to load marinade state %s", m.StateAddress)
	}
	state, err := DecodeState(data)
	if err != nil {
		return errors.Wrapf(err, "account %s", m.StateAddress)
	}
	m.State = state
	log.Debug().
		Str("state", m.StateAddress.String()).
		Uint32("validators", state.ValidatorSystem.ValidatorList.Count).
		Uint32("stakes", state.StakeSystem.StakeList.Count).
		Msg("marinade state loaded")
	return nil
}

// ValidatorList returns the validator records and the list capacity.
func (m *RPCMarinade) ValidatorList(ctx context.Context) ([]ValidatorRecord, uint32, error) {
	data, err := rpchelpers.AccountDataRetrying(ctx, m.Client, m.validatorList())
	if err != nil {
		return nil, 0, err
	}
	count := m.State.ValidatorSystem.ValidatorList.Count
	records := make([]ValidatorRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		r, err := m.State.DecodeValidatorRecord(data, i)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	capacity, err := m.State.ValidatorListCapacity(len(data))
	if err != nil {
		return nil, 0, err
	}
	return records, capacity, nil
}

// StakeList returns the stake records and the list capacity.
func (m *RPCMarinade) StakeList(ctx context.Context) ([]StakeRecord, uint32, error) {
	data, err := rpchelpers.AccountDataRetrying(ctx, m.Client, m.stakeList())
	if err != nil {
		return nil, 0, err
	}
	count := m.State.StakeSystem.StakeList.Count
	records := make([]StakeRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		r, err := m.State.DecodeStakeRecord(data, i)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	capacity, err := m.State.StakeListCapacity(len(data))
	if err != nil {
		return nil, 0, err
	}
	return records, capacity, nil
}

// StakesInfo joins every stake record with its stake account. Accounts are fetched
// in batches of rpchelpers.MaxMultipleAccounts.
func (m *RPCMarinade) StakesInfo(ctx context.Context) ([]StakeInfo, uint32, error) {
	records, capacity, err := m.StakeList(ctx)
	if err != nil {
		return nil, 0, err
	}
	keys := make([]solana.PublicKey, len(records))
	for i, r := range records {
		keys[i] = r.StakeAccount
	}
	accounts, err := rpchelpers.DefaultRetry.MultipleAccounts(ctx, m.Client, keys)
	if err != nil {
		return nil, 0, err
	}
	infos := make([]StakeInfo, 0, len(records))
	for i, account := range accounts {
		if account == nil {
			return nil, 0, errors.Errorf("Can not find account %s from stake list", records[i].StakeAccount)
		}
		stake, err := rpchelpers.DecodeStakeState(account.Data)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "stake account %s", records[i].StakeAccount)
		}
		infos = append(infos, StakeInfo{
			Index:   uint32(i),
			Record:  records[i],
			Stake:   stake,
			Balance: account.Lamports,
		})
	}
	return infos, capacity, nil
}

// StakesInfoReversed is StakesInfo with the last index first. Removing a list item
// moves the last item into its slot, so processing from the end keeps pending
// indexes valid.
func (m *RPCMarinade) StakesInfoReversed(ctx context.Context) ([]StakeInfo, uint32, error) {
	infos, capacity, err := m.StakesInfo(ctx)
	if err != nil {
		return nil, 0, err
	}
	slices.Reverse(infos)
	return infos, capacity, nil
}
