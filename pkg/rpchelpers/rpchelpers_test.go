// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package rpchelpers

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	accounts   map[solana.PublicKey]*rpc.Account
	failures   int
	calls      int
	batchSizes []int
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
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	acc, ok := f.accounts[key]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *fakeReader) GetMultipleAccountsWithOpts(_ context.Context, keys []solana.PublicKey, _ *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	f.batchSizes = append(f.batchSizes, len(keys))
	res := &rpc.GetMultipleAccountsResult{}
	for _, k := range keys {
		res.Value = append(res.Value, f.accounts[k])
	}
	return res, nil
}

func fastRetry(maxRetries uint64) Retry {
	return Retry{
		Commitment: rpc.CommitmentConfirmed,
		MaxRetries: maxRetries,
		NewBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func TestAccountRetrying(t *testing.T) {
	ctx := context.Background()
	key := solana.NewWallet().PublicKey()

	t.Run("retries transient errors", func(t *testing.T) {
		f := newFakeReader()
		f.put(key, solana.SystemProgramID, 42, nil)
		f.failures = 2
		acc, err := fastRetry(5).AccountRetrying(ctx, f, key)
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.Equal(t, uint64(42), acc.Lamports)
		assert.Equal(t, 3, f.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		f := newFakeReader()
		f.failures = 10
		_, err := fastRetry(2).AccountRetrying(ctx, f, key)
		require.Error(t, err)
		assert.Equal(t, 3, f.calls)
	})

	t.Run("missing account is nil", func(t *testing.T) {
		acc, err := fastRetry(0).AccountRetrying(ctx, newFakeReader(), key)
		require.NoError(t, err)
		assert.Nil(t, acc)
	})
}

func TestAccountDataRetryingMissing(t *testing.T) {
	_, err := fastRetry(0).AccountDataRetrying(context.Background(), newFakeReader(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestSystemBalanceRetrying(t *testing.T) {
	ctx := context.Background()
	f := newFakeReader()
	system := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()
	f.put(system, solana.SystemProgramID, 1_000, nil)
	f.put(token, solana.TokenProgramID, 2_000, nil)
	r := fastRetry(0)

	balance, err := r.SystemBalanceRetrying(ctx, f, system)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance)

	balance, err = r.SystemBalanceRetrying(ctx, f, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = r.SystemBalanceRetrying(ctx, f, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must belongs to system")
}

func coption(buf *bytes.Buffer, key *solana.PublicKey) {
	if key == nil {
		_ = binary.Write(buf, binary.LittleEndian, uint32(0))
		buf.Write(make([]byte, 32))
		return
	}
	_ = binary.Write(buf, binary.LittleEndian, uint32(1))
	buf.Write(key.Bytes())
}

func mintData(authority, freeze *solana.PublicKey, supply uint64) []byte {
	buf := new(bytes.Buffer)
	coption(buf, authority)
	_ = binary.Write(buf, binary.LittleEndian, supply)
	buf.WriteByte(9)
	buf.WriteByte(1)
	coption(buf, freeze)
	return buf.Bytes()
}

func tokenData(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := new(bytes.Buffer)
	buf.Write(mint.Bytes())
	buf.Write(owner.Bytes())
	_ = binary.Write(buf, binary.LittleEndian, amount)
	coption(buf, nil)
	buf.WriteByte(1)
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(buf, binary.LittleEndian, uint64(0))
	_ = binary.Write(buf, binary.LittleEndian, uint64(0))
	coption(buf, nil)
	return buf.Bytes()
}

func TestDecodeSPLLayouts(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	data := mintData(&authority, nil, 77)
	require.Len(t, data, MintSize)
	mint, err := DecodeMint(data)
	require.NoError(t, err)
	assert.True(t, mint.MintAuthority.Set)
	assert.Equal(t, authority, mint.MintAuthority.Key)
	assert.Equal(t, uint64(77), mint.Supply)
	assert.Equal(t, uint8(9), mint.Decimals)
	assert.False(t, mint.FreezeAuthority.Set)

	owner := solana.NewWallet().PublicKey()
	mintKey := solana.NewWallet().PublicKey()
	data = tokenData(mintKey, owner, 5)
	require.Len(t, data, TokenAccountSize)
	token, err := DecodeTokenAccount(data)
	require.NoError(t, err)
	assert.Equal(t, mintKey, token.Mint)
	assert.Equal(t, owner, token.Owner)
	assert.Equal(t, uint64(5), token.Amount)

	_, err = DecodeMint(data[:10])
	require.Error(t, err)
}

func TestCheckMintAccount(t *testing.T) {
	ctx := context.Background()
	r := fastRetry(0)
	authority := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	f := newFakeReader()

	good := solana.NewWallet().PublicKey()
	f.put(good, solana.TokenProgramID, 1, mintData(&authority, nil, 0))
	ok, err := r.CheckMintAccount(ctx, f, good, authority, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CheckMintAccount(ctx, f, solana.NewWallet().PublicKey(), authority, true)
	require.NoError(t, err)
	assert.False(t, ok)

	cases := map[string]struct {
		owner solana.PublicKey
		data  []byte
		want  string
	}{
		"wrong owner":     {solana.SystemProgramID, mintData(&authority, nil, 0), "Wrong SPL mint account"},
		"wrong authority": {solana.TokenProgramID, mintData(&other, nil, 0), "Wrong mint authority"},
		"freeze set":      {solana.TokenProgramID, mintData(&authority, &other, 0), "Freeze authority"},
		"non zero supply": {solana.TokenProgramID, mintData(&authority, nil, 1), "must have 0 supply"},
		"garbage":         {solana.TokenProgramID, []byte{1, 2, 3}, "Can not parse"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			key := solana.NewWallet().PublicKey()
			f.put(key, tc.owner, 1, tc.data)
			_, err := r.CheckMintAccount(ctx, f, key, authority, true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCheckTokenAccount(t *testing.T) {
	ctx := context.Background()
	r := fastRetry(0)
	f := newFakeReader()
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	key := solana.NewWallet().PublicKey()
	f.put(key, solana.TokenProgramID, 1, tokenData(mint, owner, 10))

	ok, err := r.CheckTokenAccount(ctx, f, key, mint, &owner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CheckTokenAccount(ctx, f, key, mint, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.CheckTokenAccount(ctx, f, key, solana.NewWallet().PublicKey(), nil)
	require.ErrorContains(t, err, "mint")

	stranger := solana.NewWallet().PublicKey()
	_, err = r.CheckTokenAccount(ctx, f, key, mint, &stranger)
	require.ErrorContains(t, err, "authority")
}

func TestMultipleAccountsBatches(t *testing.T) {
	f := newFakeReader()
	keys := make([]solana.PublicKey, 0, 250)
	for i := 0; i < 250; i++ {
		k := solana.NewWallet().PublicKey()
		keys = append(keys, k)
		if i != 120 {
			f.put(k, solana.SystemProgramID, uint64(i), nil)
		}
	}
	accounts, err := fastRetry(0).MultipleAccounts(context.Background(), f, keys)
	require.NoError(t, err)
	require.Len(t, accounts, 250)
	assert.Equal(t, []int{100, 100, 50}, f.batchSizes)
	assert.Nil(t, accounts[120])
	assert.Equal(t, uint64(249), accounts[249].Lamports)
}

func TestDecodeStakeState(t *testing.T) {
	staker := solana.NewWallet().PublicKey()
	voter := solana.NewWallet().PublicKey()
	buf := new(bytes.Buffer)
	w := func(v interface{}) { _ = binary.Write(buf, binary.LittleEndian, v) }
	w(uint32(2))
	w(uint64(2_282_880))
	buf.Write(staker.Bytes())
	buf.Write(staker.Bytes())
	w(int64(0))
	w(uint64(0))
	buf.Write(make([]byte, 32))
	buf.Write(voter.Bytes())
	w(uint64(5_000_000_000))
	w(uint64(400))
	w(uint64(math.MaxUint64))
	w(float64(0.25))
	w(uint64(99))

	state, err := DecodeStakeState(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StakeStateStake, state.Kind)
	require.NotNil(t, state.Meta)
	assert.Equal(t, staker, state.Meta.Withdrawer)
	require.NotNil(t, state.Stake)
	assert.Equal(t, voter, state.Stake.Delegation.VoterPubkey)
	assert.Equal(t, uint64(5_000_000_000), state.DelegatedLamports())
	assert.Equal(t, uint64(math.MaxUint64), state.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, 0.25, state.Stake.Delegation.WarmupCooldownRate)

	state, err = DecodeStakeState([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, StakeStateUninitialized, state.Kind)
	assert.Zero(t, state.DelegatedLamports())

	_, err = DecodeStakeState([]byte{7, 0, 0, 0})
	require.Error(t, err)
}

func TestGetClock(t *testing.T) {
	f := newFakeReader()
	buf := new(bytes.Buffer)
	for _, v := range []interface{}{uint64(1000), int64(1_700_000_000), uint64(500), uint64(501), int64(1_700_000_400)} {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
	f.put(solana.SysVarClockPubkey, solana.SystemProgramID, 1, buf.Bytes())
	clock, err := GetClock(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), clock.Epoch)
	assert.Equal(t, int64(1_700_000_400), clock.UnixTimestamp)
}
