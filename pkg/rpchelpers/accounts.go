// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package rpchelpers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrAccountNotFound = errors.New("account not found")

// Retry bounds the retries of transient RPC failures.
type Retry struct {
	Commitment rpc.CommitmentType
	MaxRetries uint64
	// NewBackOff overrides the exponential policy, mainly for tests.
	NewBackOff func() backoff.BackOff
}

// DefaultRetry retries for roughly a minute before giving up.
var DefaultRetry = Retry{
	Commitment: rpc.CommitmentConfirmed,
	MaxRetries: 10,
}

func (r Retry) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if r.NewBackOff != nil {
		b = r.NewBackOff()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 500 * time.Millisecond
		exp.MaxInterval = 10 * time.Second
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx)
}

// AccountRetrying fetches an account, retrying RPC errors. A missing account is
// returned as nil without error.
func (r Retry) AccountRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) (*Account, error) {
	var account *Account
	op := func() error {
		res, err := client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: r.Commitment,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			account = nil
			return nil
		}
		if err != nil {
			return err
		}
		if res == nil {
			account = nil
			return nil
		}
		account = fromRPC(res.Value)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("account", pubkey.String()).Dur("wait", wait).Msg("RPC error. Retrying")
	}
	if err := backoff.RetryNotify(op, r.backOff(ctx), notify); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch account %s", pubkey)
	}
	return account, nil
}

// AccountDataRetrying returns the data of an account that must exist.
func (r Retry) AccountDataRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) ([]byte, error) {
	account, err := r.AccountRetrying(ctx, client, pubkey)
	if err != nil {
		return nil, err
	}
	if account == nil {
		log.Error().Str("account", pubkey.String()).Msg("Can not find account")
		return nil, errors.Wrapf(ErrAccountNotFound, "Can not find account %s", pubkey)
	}
	return account.Data, nil
}

// SystemBalanceRetrying returns the lamports of a system owned account, 0 when it
// does not exist.
func (r Retry) SystemBalanceRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) (uint64, error) {
	account, err := r.AccountRetrying(ctx, client, pubkey)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	if !account.Owner.Equals(solana.SystemProgramID) {
		log.Error().Str("account", pubkey.String()).Str("owner", account.Owner.String()).Msg("account must belong to system")
		return 0, errors.Errorf("Account %s must belongs to system. But owner is %s", pubkey, account.Owner)
	}
	return account.Lamports, nil
}

// CheckMintAccount reports whether the mint exists. An existing mint must be owned by
// the token program, have the given mint authority, no freeze authority and, when
// mustHaveZeroSupply is set, no supply.
func (r Retry) CheckMintAccount(ctx context.Context, client AccountReader, pubkey, authority solana.PublicKey, mustHaveZeroSupply bool) (bool, error) {
	account, err := r.AccountRetrying(ctx, client, pubkey)
	if err != nil || account == nil {
		return false, err
	}
	if !account.Owner.Equals(solana.TokenProgramID) {
		return false, errors.Errorf("Wrong SPL mint account %s owner %s", pubkey, account.Owner)
	}
	mint, err := DecodeMint(account.Data)
	if err != nil {
		return false, errors.Errorf("Can not parse account %s as SPL token mint", pubkey)
	}
	if !mint.MintAuthority.Set || !mint.MintAuthority.Key.Equals(authority) {
		return false, errors.Errorf("Wrong mint authority %s. Must be %s. Mint:%s", mint.MintAuthority.Key, authority, pubkey)
	}
	if mint.FreezeAuthority.Set {
		return false, errors.Errorf("Freeze authority of mint %s must not be set", pubkey)
	}
	if mustHaveZeroSupply && mint.Supply > 0 {
		return false, errors.Errorf("Mint %s must have 0 supply", pubkey)
	}
	return true, nil
}

// CheckTokenAccount reports whether the token account exists. An existing account
// must hold mint and, when authority is not nil, be owned by it.
func (r Retry) CheckTokenAccount(ctx context.Context, client AccountReader, pubkey, mint solana.PublicKey, authority *solana.PublicKey) (bool, error) {
	account, err := r.AccountRetrying(ctx, client, pubkey)
	if err != nil || account == nil {
		return false, err
	}
	if !account.Owner.Equals(solana.TokenProgramID) {
		return false, errors.Errorf("Wrong SPL token account %s owner %s", pubkey, account.Owner)
	}
	token, err := DecodeTokenAccount(account.Data)
	if err != nil {
		return false, errors.Errorf("Can not parse account %s as SPL token", pubkey)
	}
	if !token.Mint.Equals(mint) {
		return false, errors.Errorf("Wrong token account %s mint %s. Expected %s", pubkey, token.Mint, mint)
	}
	if authority != nil && !token.Owner.Equals(*authority) {
		return false, errors.Errorf("Wrong token account %s authority %s. Expected %s", pubkey, token.Owner, *authority)
	}
	return true, nil
}

// MultipleAccounts fetches accounts in batches of MaxMultipleAccounts, keeping the
// order of pubkeys. Missing accounts are nil.
func (r Retry) MultipleAccounts(ctx context.Context, client AccountReader, pubkeys []solana.PublicKey) ([]*Account, error) {
	out := make([]*Account, 0, len(pubkeys))
	for start := 0; start < len(pubkeys); start += MaxMultipleAccounts {
		end := min(start+MaxMultipleAccounts, len(pubkeys))
		batch := pubkeys[start:end]
		var res *rpc.GetMultipleAccountsResult
		op := func() error {
			var err error
			res, err = client.GetMultipleAccountsWithOpts(ctx, batch, &rpc.GetMultipleAccountsOpts{
				Encoding:   solana.EncodingBase64,
				Commitment: r.Commitment,
			})
			return err
		}
		if err := backoff.Retry(op, r.backOff(ctx)); err != nil {
			return nil, errors.Wrapf(err, "failed to fetch %d accounts", len(batch))
		}
		if len(res.Value) != len(batch) {
			return nil, errors.Errorf("requested %d accounts, node returned %d", len(batch), len(res.Value))
		}
		for _, a := range res.Value {
			out = append(out, fromRPC(a))
		}
	}
	return out, nil
}

func AccountRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) (*Account, error) {
	return DefaultRetry.AccountRetrying(ctx, client, pubkey)
}

func AccountDataRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) ([]byte, error) {
	return DefaultRetry.AccountDataRetrying(ctx, client, pubkey)
}

func SystemBalanceRetrying(ctx context.Context, client AccountReader, pubkey solana.PublicKey) (uint64, error) {
	return DefaultRetry.SystemBalanceRetrying(ctx, client, pubkey)
}
