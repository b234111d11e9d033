// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

// Package rpchelpers wraps account reads against a Solana JSON RPC node.
package rpchelpers

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountReader is the subset of *rpc.Client used to read accounts.
type AccountReader interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
}

var _ AccountReader = (*rpc.Client)(nil)

// MaxMultipleAccounts is the node limit of keys in one getMultipleAccounts call.
const MaxMultipleAccounts = 100

// Account is the decoded part of an account the helpers care about.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

func fromRPC(a *rpc.Account) *Account {
	if a == nil {
		return nil
	}
	acc := &Account{Lamports: a.Lamports, Owner: a.Owner}
	if a.Data != nil {
		acc.Data = a.Data.GetBinary()
	}
	return acc
}
