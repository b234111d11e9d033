// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/rpchelpers"
	"github.com/pkg/errors"
)

var ErrAuthorityMismatch = errors.New("authority mismatch")

func VerifyManagerAuthority(state *State, validatorManagerAuthority solana.PublicKey) error {
	if !state.ValidatorSystem.ManagerAuthority.Equals(validatorManagerAuthority) {
		return errors.Wrapf(ErrAuthorityMismatch,
			"validator-manager-authority %s to sign the transaction mismatches Marinade state system manager authority %s",
			validatorManagerAuthority, state.ValidatorSystem.ManagerAuthority)
	}
	return nil
}

func VerifyAdminAuthority(state *State, adminAuthority solana.PublicKey) error {
	if !state.AdminAuthority.Equals(adminAuthority) {
		return errors.Wrapf(ErrAuthorityMismatch,
			"admin-authority %s signing the transaction mismatches Marinade state admin authority: %s",
			adminAuthority, state.AdminAuthority)
	}
	return nil
}

func VerifyPauseAuthority(state *State, pauseAuthority solana.PublicKey) error {
	if !state.PauseAuthority.Equals(pauseAuthority) {
		return errors.Wrapf(ErrAuthorityMismatch,
			"pause-authority %s to sign the transaction mismatches Marinade state pause authority %s",
			pauseAuthority, state.PauseAuthority)
	}
	return nil
}

// VerifyRentPayer requires rentPayer to be an existing system account.
func VerifyRentPayer(ctx context.Context, client rpchelpers.AccountReader, rentPayer solana.PublicKey) error {
	account, err := rpchelpers.AccountRetrying(ctx, client, rentPayer)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.Wrapf(rpchelpers.ErrAccountNotFound, "rent payer %s", rentPayer)
	}
	if !account.Owner.Equals(solana.SystemProgramID) {
		return errors.Errorf("provided rent payer %s address must be a system account", rentPayer)
	}
	return nil
}
