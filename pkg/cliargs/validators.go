// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Validator checks a raw flag value; a nil error accepts it.
type Validator func(value string) error

var monikers = map[string]string{
	"m":            "https://api.mainnet-beta.solana.com",
	"mainnet-beta": "https://api.mainnet-beta.solana.com",
	"t":            "https://api.testnet.solana.com",
	"testnet":      "https://api.testnet.solana.com",
	"d":            "https://api.devnet.solana.com",
	"devnet":       "https://api.devnet.solana.com",
	"l":            "http://localhost:8899",
	"localhost":    "http://localhost:8899",
}

// NormalizeToURLIfMoniker expands a cluster moniker into its RPC URL.
func NormalizeToURLIfMoniker(urlOrMoniker string) string {
	if u, ok := monikers[urlOrMoniker]; ok {
		return u
	}
	return urlOrMoniker
}

func IsURLOrMoniker(value string) error {
	u, err := url.Parse(NormalizeToURLIfMoniker(value))
	if err != nil {
		return errors.WithStack(err)
	}
	if u.Host == "" {
		return errors.New("no host provided")
	}
	return nil
}

func IsValidPubkey(value string) error {
	if _, err := solana.PublicKeyFromBase58(value); err != nil {
		return errors.Wrapf(err, "unable to parse pubkey %q", value)
	}
	return nil
}

// IsValidSigner accepts pubkeys, the special signer sources and readable keypair files.
func IsValidSigner(value string) error {
	source, err := ParseSignerSource(value)
	if err != nil {
		return err
	}
	switch source.Kind {
	case SignerSourceFilepath:
		if _, err := os.Stat(source.Path); err != nil {
			return errors.Wrapf(err, "keypair file %s is not readable", source.Path)
		}
		if _, err := solana.PrivateKeyFromSolanaKeygenFile(source.Path); err != nil {
			return errors.Wrapf(err, "file %s is not a keypair", source.Path)
		}
	}
	return nil
}

func IsCommitment(value string) error {
	switch strings.ToLower(value) {
	case "processed", "confirmed", "finalized":
		return nil
	}
	return errors.Errorf("unknown commitment level %q", value)
}

func IsU16(value string) error {
	if _, err := strconv.ParseUint(value, 10, 16); err != nil {
		return errors.Wrapf(err, "%q is not a valid u16", value)
	}
	return nil
}
