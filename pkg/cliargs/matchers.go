// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SignerFromPathOrDefault loads the signer named by the argument, or returns the
// default signer when the argument is absent.
func SignerFromPathOrDefault(m Matches, name string, defaultSigner dynsigner.Signer) (dynsigner.Signer, error) {
	signer, err := SignerFromPathOrNone(m, name)
	if err != nil {
		return nil, err
	}
	if signer == nil {
		log.Debug().Msgf("failed to load signer %s using default signer %s", name, defaultSigner.PublicKey())
		return defaultSigner, nil
	}
	return signer, nil
}

// SignerFromPathOrNone loads the signer named by the argument; nil when absent.
func SignerFromPathOrNone(m Matches, name string) (dynsigner.Signer, error) {
	value, ok := m.ValueOf(name)
	if !ok {
		return nil, nil
	}
	signer, err := SignerFromPath(value, name)
	if err != nil {
		return nil, errors.Errorf("Failed to load signer from path of parameter %s/%s: %v", name, value, err)
	}
	return signer, nil
}

// SignerOrDefault is SignerFromPathOrDefault with the shorter error form used by the
// older tools.
func SignerOrDefault(m Matches, name string, defaultSigner dynsigner.Signer) (dynsigner.Signer, error) {
	location, ok := m.ValueOf(name)
	if !ok {
		return defaultSigner, nil
	}
	signer, err := SignerFromPath(location, name)
	if err != nil {
		return nil, errors.Errorf("%v: %s", err, location)
	}
	return signer, nil
}

// PubkeyOrOfSigner reads a pubkey or loads it from the referenced signer; the
// argument is required.
func PubkeyOrOfSigner(m Matches, name string) (solana.PublicKey, error) {
	pubkey, err := PubkeyOrOfSignerOptional(m, name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if pubkey == nil {
		return solana.PublicKey{}, errors.Errorf("Value for argument '%s' was not provided", name)
	}
	return *pubkey, nil
}

// PubkeyOf is the older name of PubkeyOrOfSigner.
func PubkeyOf(m Matches, name string) (solana.PublicKey, error) {
	return PubkeyOrOfSigner(m, name)
}

// PubkeyOrOfSignerOptional is PubkeyOrOfSigner returning nil when the argument is absent.
func PubkeyOrOfSignerOptional(m Matches, name string) (*solana.PublicKey, error) {
	value, ok := m.ValueOf(name)
	if !ok {
		return nil, nil
	}
	if pubkey, err := solana.PublicKeyFromBase58(value); err == nil {
		return &pubkey, nil
	}
	pubkey, err := pubkeyOfSigner(value, name)
	if err != nil {
		return nil, errors.Errorf("%v: %s", err, value)
	}
	return &pubkey, nil
}

func pubkeyOfSigner(value, name string) (solana.PublicKey, error) {
	source, err := ParseSignerSource(value)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if source.Kind == SignerSourcePubkey {
		return source.Pubkey, nil
	}
	signer, err := SignerFromPath(value, name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return signer.PublicKey(), nil
}

// ProcessMultiplePubkeys resolves every value of a repeatable argument into a pubkey.
// Signers are loaded under the names `<name>-1`, `<name>-2`, ...
func ProcessMultiplePubkeys(m Matches, name string) ([]solana.PublicKey, error) {
	values := m.ValuesOf(name)
	pubkeys := make([]solana.PublicKey, 0, len(values))
	for i, value := range values {
		pubkey, err := pubkeyOrFromPath(fmt.Sprintf("%s-%d", name, i+1), value)
		if err != nil {
			return nil, err
		}
		pubkeys = append(pubkeys, pubkey)
	}
	return pubkeys, nil
}

func pubkeyOrFromPath(name, valueOrPath string) (solana.PublicKey, error) {
	if pubkey, err := solana.PublicKeyFromBase58(valueOrPath); err == nil {
		return pubkey, nil
	}
	signer, err := SignerFromPath(valueOrPath, name)
	if err != nil {
		return solana.PublicKey{}, errors.Errorf("Invalid argument name: %s, value_or_path: %s, err: %v", name, valueOrPath, err)
	}
	return signer.PublicKey(), nil
}

// PubkeyOrSigner returns a signer when the argument can be loaded as one, otherwise
// the pubkey it names.
func PubkeyOrSigner(m Matches, name string) (dynsigner.PubkeyOrSigner, error) {
	if signer, err := SignerFromPathOrNone(m, name); err == nil && signer != nil {
		return dynsigner.NewSigner(signer), nil
	}
	pubkey, err := PubkeyOrOfSigner(m, name)
	if err != nil {
		return dynsigner.PubkeyOrSigner{}, err
	}
	return dynsigner.NewPubkey(pubkey), nil
}

// PubkeyOrSignerOrDefault is PubkeyOrSigner falling back to def when the argument
// is absent.
func PubkeyOrSignerOrDefault(m Matches, name string, def dynsigner.PubkeyOrSigner) (dynsigner.PubkeyOrSigner, error) {
	if _, ok := m.ValueOf(name); !ok {
		return def, nil
	}
	return PubkeyOrSigner(m, name)
}

func MatchU32(m Matches, name string) (uint32, error) {
	v, ok, err := MatchU32Option(m, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Errorf("argument '%s' missing", name)
	}
	return v, nil
}

func MatchU32Option(m Matches, name string) (uint32, bool, error) {
	value, ok := m.ValueOf(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false, errors.Errorf("Failed to convert argument %s of value %s to u32: %v", name, value, err)
	}
	return uint32(v), true, nil
}

func MatchU64(m Matches, name string) (uint64, error) {
	v, ok, err := MatchU64Option(m, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Errorf("argument '%s' missing", name)
	}
	return v, nil
}

func MatchU64Option(m Matches, name string) (uint64, bool, error) {
	value, ok := m.ValueOf(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, errors.Errorf("Failed to convert argument %s of value %s to u64: %v", name, value, err)
	}
	return v, true, nil
}

func MatchF64(m Matches, name string) (float64, error) {
	v, ok, err := MatchF64Option(m, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Errorf("argument '%s' missing", name)
	}
	return v, nil
}

func MatchF64Option(m Matches, name string) (float64, bool, error) {
	value, ok := m.ValueOf(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, errors.Errorf("Failed to convert argument %s of value %s to f64: %v", name, value, err)
	}
	return v, true, nil
}
