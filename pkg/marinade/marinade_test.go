// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"bytes"
	"context"
	"crypto/sha256"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/marinade-finance/marinade-cli-utils/pkg/rpchelpers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validatorRecordSize = 53
	stakeRecordSize     = 49
)

type fakeReader struct {
	accounts map[solana.PublicKey]*rpc.Account
}

func newFakeReader() *fakeReader {
	return &fakeReader{accounts: map[solana.PublicKey]*rpc.Account{}}
}

func (f *fakeReader) put(key, owner solana.PublicKey, lamports uint64, data []byte) {
	f.accounts[key] = &rpc.Account{
		Lamports: lamports,
		Owner:    owner,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

func (f *fakeReader) GetAccountInfoWithOpts(_ context.Context, key solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	acc, ok := f.accounts[key]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *fakeReader) GetMultipleAccountsWithOpts(_ context.Context, keys []solana.PublicKey, _ *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	res := &rpc.GetMultipleAccountsResult{}
	for _, k := range keys {
		res.Value = append(res.Value, f.accounts[k])
	}
	return res, nil
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func newSigner(t *testing.T) dynsigner.Signer {
	t.Helper()
	s, err := dynsigner.NewRandomKeypairSigner()
	require.NoError(t, err)
	return s
}

func testState() *State {
	return &State{
		MsolMint:              newKey(),
		AdminAuthority:        newKey(),
		OperationalSolAccount: newKey(),
		TreasuryMsolAccount:   newKey(),
		RewardFee:             Fee{BasisPoints: 600},
		StakeSystem: StakeSystem{
			StakeList:                 List{Account: newKey(), ItemSize: stakeRecordSize},
			DelayedUnstakeCoolingDown: 10,
		},
		ValidatorSystem: ValidatorSystem{
			ValidatorList:      List{Account: newKey(), ItemSize: validatorRecordSize},
			ManagerAuthority:   newKey(),
			TotalActiveBalance: 1_000,
		},
		LiqPool: LiqPool{
			LpMint:  newKey(),
			MsolLeg: newKey(),
		},
		AvailableReserveBalance: 100,
		MsolPrice:               MsolPriceDenominator + MsolPriceDenominator/2,
		EmergencyCoolingDown:    5,
		PauseAuthority:          newKey(),
		DelayedUnstakeFee:       FeeCents{BpCents: 2500},
	}
}

func testInstance() Instance {
	return Instance{
		Addresses: Addresses{ProgramID: ProgramID, StateAddress: InstanceID},
		State:     testState(),
	}
}

func encodeList(t *testing.T, discriminator string, items ...interface{}) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(accountDiscriminator(discriminator))
	for _, item := range items {
		require.NoError(t, bin.NewBorshEncoder(buf).Encode(item))
	}
	return buf.Bytes()
}

func TestDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("global:deposit"))
	assert.Equal(t, sum[:8], instructionDiscriminator("deposit"))
	sum = sha256.Sum256([]byte("account:State"))
	assert.Equal(t, sum[:8], stateDiscriminator)
	assert.NotEqual(t, instructionDiscriminator("pause"), instructionDiscriminator("resume"))
}

func TestAddressesDeterministic(t *testing.T) {
	a := Addresses{ProgramID: ProgramID, StateAddress: InstanceID}
	b := Addresses{ProgramID: ProgramID, StateAddress: InstanceID}
	assert.Equal(t, a.Reserve(), b.Reserve())

	expected, _, err := solana.FindProgramAddress([][]byte{InstanceID.Bytes(), []byte("reserve")}, ProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, a.Reserve())

	vote := newKey()
	expected, _, err = solana.FindProgramAddress([][]byte{InstanceID.Bytes(), []byte("unique_validator"), vote.Bytes()}, ProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, a.DuplicationFlag(vote))

	all := []solana.PublicKey{
		a.Reserve(), a.MsolMintAuthority(), a.LiqPoolSolLeg(), a.LiqPoolMsolLegAuthority(),
		a.LpMintAuthority(), a.StakeDepositAuthority(), a.StakeWithdrawAuthority(),
	}
	seen := map[solana.PublicKey]bool{}
	for _, k := range all {
		assert.False(t, seen[k], "duplicate address %s", k)
		seen[k] = true
	}

	other := Addresses{ProgramID: ProgramID, StateAddress: newKey()}
	assert.NotEqual(t, a.Reserve(), other.Reserve())
}

func TestStateRoundTrip(t *testing.T) {
	state := testState()
	data, err := EncodeState(state)
	require.NoError(t, err)
	assert.Equal(t, stateDiscriminator, data[:8])

	decoded, err := DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	assert.Equal(t, uint64(15), decoded.TotalCoolingDown())
	assert.Equal(t, uint64(1_115), decoded.TotalLamportsUnderControl())
	assert.InDelta(t, 1.5, decoded.MsolPriceFloat(), 1e-9)
}

func TestDecodeStateRejectsOtherAccounts(t *testing.T) {
	data, err := encodeAccount(ticketDiscriminator, &TicketAccountData{})
	require.NoError(t, err)
	_, err = DecodeState(data)
	assert.True(t, errors.Is(err, ErrDiscriminatorMismatch))

	_, err = DecodeState([]byte{1, 2})
	assert.Error(t, err)
}

func TestDecodeTicket(t *testing.T) {
	ticket := &TicketAccountData{StateAddress: InstanceID, Beneficiary: newKey(), LamportsAmount: 7, CreatedEpoch: 400}
	data, err := encodeAccount(ticketDiscriminator, ticket)
	require.NoError(t, err)
	decoded, err := DecodeTicket(data)
	require.NoError(t, err)
	assert.Equal(t, ticket, decoded)
}

func TestFeeString(t *testing.T) {
	assert.Equal(t, "6%", Fee{BasisPoints: 600}.String())
	assert.Equal(t, "0.5%", Fee{BasisPoints: 50}.String())
	assert.Equal(t, "0.25%", FeeCents{BpCents: 2500}.String())
	assert.Equal(t, "0%", Fee{}.String())
}

func TestListItems(t *testing.T) {
	state := testState()
	records := []ValidatorRecord{
		{ValidatorAccount: newKey(), ActiveBalance: 1, Score: 10},
		{ValidatorAccount: newKey(), ActiveBalance: 2, Score: 20},
	}
	data := encodeList(t, "ValidatorList", records[0], records[1])
	data = append(data, make([]byte, validatorRecordSize*3)...)
	state.ValidatorSystem.ValidatorList.Count = 2

	for i, want := range records {
		got, err := state.DecodeValidatorRecord(data, uint32(i))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := state.DecodeValidatorRecord(data, 2)
	assert.Error(t, err)

	capacity, err := state.ValidatorListCapacity(len(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), capacity)

	_, err = List{}.Capacity(100)
	assert.Error(t, err)
}

func TestInstructionLayouts(t *testing.T) {
	in := testInstance()
	vote := newKey()
	rentPayer := newKey()

	t.Run("add validator", func(t *testing.T) {
		ix, err := AddValidator(in, vote, 42, rentPayer)
		require.NoError(t, err)
		assert.Equal(t, ProgramID, ix.ProgramID())
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Equal(t, instructionDiscriminator("add_validator"), data[:8])
		assert.Equal(t, []byte{42, 0, 0, 0}, data[8:])

		accounts := ix.Accounts()
		require.Len(t, accounts, 9)
		assert.Equal(t, InstanceID, accounts[0].PublicKey)
		assert.True(t, accounts[0].IsWritable)
		assert.False(t, accounts[0].IsSigner)
		assert.Equal(t, in.State.ValidatorSystem.ManagerAuthority, accounts[1].PublicKey)
		assert.True(t, accounts[1].IsSigner)
		assert.False(t, accounts[1].IsWritable)
		assert.Equal(t, in.DuplicationFlag(vote), accounts[4].PublicKey)
		assert.Equal(t, rentPayer, accounts[5].PublicKey)
		assert.True(t, accounts[5].IsSigner)
		assert.True(t, accounts[5].IsWritable)
	})

	t.Run("deposit", func(t *testing.T) {
		from, mintTo := newKey(), newKey()
		ix, err := Deposit(in, from, mintTo, 1_000_000)
		require.NoError(t, err)
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Equal(t, instructionDiscriminator("deposit"), data[:8])
		var lamports uint64
		require.NoError(t, bin.NewBorshDecoder(data[8:]).Decode(&lamports))
		assert.Equal(t, uint64(1_000_000), lamports)

		var signers []solana.PublicKey
		for _, a := range ix.Accounts() {
			if a.IsSigner {
				signers = append(signers, a.PublicKey)
			}
		}
		assert.Equal(t, []solana.PublicKey{from}, signers)
	})

	t.Run("claim needs no state", func(t *testing.T) {
		ticket, to := newKey(), newKey()
		ix, err := Claim(in.Addresses, ticket, to)
		require.NoError(t, err)
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Len(t, data, 8)
		assert.Equal(t, in.Reserve(), ix.Accounts()[1].PublicKey)
		assert.Equal(t, ticket, ix.Accounts()[2].PublicKey)
	})

	t.Run("pause and resume", func(t *testing.T) {
		pause, err := EmergencyPause(in)
		require.NoError(t, err)
		resume, err := EmergencyResume(in)
		require.NoError(t, err)
		pauseData, _ := pause.Data()
		resumeData, _ := resume.Data()
		assert.Equal(t, instructionDiscriminator("pause"), pauseData)
		assert.Equal(t, instructionDiscriminator("resume"), resumeData)
		assert.Equal(t, in.State.PauseAuthority, pause.Accounts()[1].PublicKey)
		assert.True(t, pause.Accounts()[1].IsSigner)
	})

	t.Run("optional params", func(t *testing.T) {
		fee := Fee{BasisPoints: 100}
		ix, err := ConfigMarinade(in, ConfigMarinadeParams{RewardsFee: &fee})
		require.NoError(t, err)
		data, _ := ix.Data()
		// reward fee set, ten absent options follow
		assert.Equal(t, append([]byte{1, 100, 0, 0, 0}, make([]byte, 10)...), data[8:])
	})
}

func TestVerifiers(t *testing.T) {
	state := testState()
	require.NoError(t, VerifyManagerAuthority(state, state.ValidatorSystem.ManagerAuthority))
	require.NoError(t, VerifyAdminAuthority(state, state.AdminAuthority))
	require.NoError(t, VerifyPauseAuthority(state, state.PauseAuthority))

	other := newKey()
	err := VerifyManagerAuthority(state, other)
	assert.True(t, errors.Is(err, ErrAuthorityMismatch))
	assert.Contains(t, err.Error(), other.String())
	assert.True(t, errors.Is(VerifyAdminAuthority(state, other), ErrAuthorityMismatch))
	assert.True(t, errors.Is(VerifyPauseAuthority(state, other), ErrAuthorityMismatch))
}

func TestVerifyRentPayer(t *testing.T) {
	ctx := context.Background()
	f := newFakeReader()
	system, program := newKey(), newKey()
	f.put(system, solana.SystemProgramID, 1, nil)
	f.put(program, solana.TokenProgramID, 1, nil)

	require.NoError(t, VerifyRentPayer(ctx, f, system))
	assert.ErrorContains(t, VerifyRentPayer(ctx, f, program), "must be a system account")
	assert.True(t, errors.Is(VerifyRentPayer(ctx, f, newKey()), rpchelpers.ErrAccountNotFound))
}

func setupRPC(t *testing.T) (*fakeReader, *State) {
	t.Helper()
	f := newFakeReader()
	state := testState()
	state.StakeSystem.StakeList.Count = 2
	state.ValidatorSystem.ValidatorList.Count = 1
	data, err := EncodeState(state)
	require.NoError(t, err)
	f.put(InstanceID, ProgramID, 1, data)

	stakes := []StakeRecord{
		{StakeAccount: newKey(), LastUpdateDelegatedLamports: 10},
		{StakeAccount: newKey(), LastUpdateDelegatedLamports: 20},
	}
	f.put(state.StakeSystem.StakeList.Account, ProgramID, 1, encodeList(t, "StakeList", stakes[0], stakes[1]))
	f.put(state.ValidatorSystem.ValidatorList.Account, ProgramID, 1,
		encodeList(t, "ValidatorList", ValidatorRecord{ValidatorAccount: newKey(), Score: 3}))

	for i, s := range stakes {
		raw := make([]byte, 200)
		raw[0] = 2 // stake
		f.put(s.StakeAccount, StakeProgramID, uint64(100*(i+1)), raw)
	}
	return f, state
}

func TestRPCMarinade(t *testing.T) {
	ctx := context.Background()
	f, state := setupRPC(t)

	m, err := New(ctx, f, ProgramID, InstanceID)
	require.NoError(t, err)
	assert.Equal(t, state, m.State)

	validators, capacity, err := m.ValidatorList(ctx)
	require.NoError(t, err)
	require.Len(t, validators, 1)
	assert.Equal(t, uint32(1), capacity)
	assert.Equal(t, uint32(3), validators[0].Score)

	infos, capacity, err := m.StakesInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), capacity)
	require.Len(t, infos, 2)
	assert.Equal(t, uint32(0), infos[0].Index)
	assert.Equal(t, uint64(100), infos[0].Balance)
	assert.Equal(t, rpchelpers.StakeStateStake, infos[0].Stake.Kind)

	reversed, _, err := m.StakesInfoReversed(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), reversed[0].Index)
	assert.Equal(t, uint64(20), reversed[0].Record.LastUpdateDelegatedLamports)
}

func TestRPCMarinadeMissingStake(t *testing.T) {
	ctx := context.Background()
	f, _ := setupRPC(t)
	m, err := New(ctx, f, ProgramID, InstanceID)
	require.NoError(t, err)

	stakes, _, err := m.StakeList(ctx)
	require.NoError(t, err)
	delete(f.accounts, stakes[1].StakeAccount)
	_, _, err = m.StakesInfo(ctx)
	assert.ErrorContains(t, err, "from stake list")
}

func TestRequestBuilders(t *testing.T) {
	in := testInstance()
	m := &RPCMarinade{Client: newFakeReader(), Instance: in}

	manager := newSigner(t)
	m.State.ValidatorSystem.ManagerAuthority = manager.PublicKey()
	rentPayer := newSigner(t)

	t.Run("attaches signers", func(t *testing.T) {
		r, err := m.AddValidator(dynsigner.NewSigner(manager), newKey(), 1, dynsigner.NewSigner(rentPayer))
		require.NoError(t, err)
		require.Len(t, r.Instructions, 1)
		require.Len(t, r.Signers, 2)
		assert.Equal(t, manager.PublicKey(), r.Signers[0].PublicKey())
		assert.Equal(t, rentPayer.PublicKey(), r.Signers[1].PublicKey())
	})

	t.Run("pubkey only attaches nothing", func(t *testing.T) {
		r, err := m.AddValidator(dynsigner.NewPubkey(manager.PublicKey()), newKey(), 1, dynsigner.NewPubkey(rentPayer.PublicKey()))
		require.NoError(t, err)
		assert.Empty(t, r.Signers)
	})

	t.Run("rejects wrong authority", func(t *testing.T) {
		_, err := m.SetValidatorScore(dynsigner.NewSigner(rentPayer), newKey(), 0, 5)
		assert.True(t, errors.Is(err, ErrAuthorityMismatch))
		_, err = m.EmergencyPause(dynsigner.NewSigner(rentPayer))
		assert.True(t, errors.Is(err, ErrAuthorityMismatch))
		_, err = m.ConfigLp(dynsigner.NewSigner(rentPayer), ConfigLpParams{})
		assert.True(t, errors.Is(err, ErrAuthorityMismatch))
	})

	t.Run("claim", func(t *testing.T) {
		r, err := m.Claim(newKey(), newKey())
		require.NoError(t, err)
		assert.Empty(t, r.Signers)
	})

	t.Run("initialize signs with the new state", func(t *testing.T) {
		state := newSigner(t)
		r, err := m.Initialize(state, InitializeAccounts{}, InitializeData{})
		require.NoError(t, err)
		require.Len(t, r.Signers, 1)
		ix := r.Instructions[0]
		assert.Equal(t, state.PublicKey(), ix.Accounts()[0].PublicKey)
	})
}
