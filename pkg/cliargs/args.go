// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

// Package cliargs holds the flag definitions, validators and matchers shared by the
// Marinade command-line tools. Flag names and short forms follow the Solana CLI.
package cliargs

import (
	"github.com/spf13/pflag"
)

const (
	DefaultProgramID  = "MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"
	DefaultInstanceID = "8szGkuLTAux9XMgZ2vtY39jVSowEcpBfFfD8hXSEqdGC"

	envAnnotation = "cliargs_env"
)

// ArgConstant describes a flag shared between tools.
type ArgConstant struct {
	Name      string
	Short     string
	Help      string
	ValueName string
	Env       string
	Default   string
}

var (
	ConfigFileArg = ArgConstant{
		Name:      "config-file",
		Short:     "c",
		ValueName: "PATH",
		Help:      "Configuration file to use [default: ~/.config/solana/cli/config.yml]",
	}
	VerboseArg = ArgConstant{
		Name:  "verbose",
		Short: "v",
		Help:  "Show additional information",
	}
	SimulateArg = ArgConstant{
		Name:  "simulate",
		Short: "s",
		Help:  "Transactions are not executed against the cluster, only simulation is executed.",
	}
	PrintOnlyArg = ArgConstant{
		Name: "print-only",
		Help: "Print the instructions in base64 format together with executing or simulating them.",
	}
	SkipPreflightArg = ArgConstant{
		Name: "skip-preflight",
		Help: "Skip the preflight check when sending transactions.",
	}
	RPCURLArg = ArgConstant{
		Name:      "url",
		Short:     "u",
		ValueName: "URL_OR_MONIKER",
		Help: "URL for Solana's JSON RPC or moniker (or their first letter): " +
			"[mainnet-beta, testnet, devnet, localhost] Default from the --config-file.",
	}
	CommitmentArg = ArgConstant{
		Name:      "commitment",
		ValueName: "COMMITMENT_LEVEL",
		Help:      "Commitment level used for preflight and confirmation [processed, confirmed, finalized]. Default from the --config-file.",
	}
	FeePayerArg = ArgConstant{
		Name:      "fee-payer",
		ValueName: "KEYPAIR",
		Help:      "Specify the fee-payer signer. When not provided, the keypair from the --config-file is used.",
	}
	RentPayerArg = ArgConstant{
		Name:      "rent-payer",
		Short:     "r",
		ValueName: "KEYPAIR",
		Env:       "RENT_PAYER",
		Help:      "Specify the rent-payer signer. When not provided, the fee-payer is used.",
	}
	ValidatorManagerArg = ArgConstant{
		Name:      "validator-manager-authority",
		Short:     "m",
		ValueName: "KEYPAIR",
		Help:      "Specify the validator manager authority signer. When not provided, the fee-payer is used.",
	}
	ProgramArg = ArgConstant{
		Name:      "program",
		Short:     "p",
		ValueName: "MARINADE_PROGRAM",
		Env:       "MARINADE_PROGRAM",
		Default:   DefaultProgramID,
		Help:      "Marinade Liquid Staking Program id.",
	}
	InstanceArg = ArgConstant{
		Name:      "instance",
		Short:     "i",
		ValueName: "MARINADE_INSTANCE",
		Env:       "MARINADE_INSTANCE",
		Default:   DefaultInstanceID,
		Help:      "Marinade instance pubkey.",
	}
	BlockhashRetriesArg = ArgConstant{
		Name:      "blockhash-retries",
		ValueName: "COUNT",
		Default:   "0",
		Help:      "How many times a transaction is re-sent when its blockhash expires.",
	}
)

// register adds a flag whose value is checked by validate at parse time.
func (a ArgConstant) register(fs *pflag.FlagSet, validate Validator) {
	typ := a.ValueName
	if typ == "" {
		typ = "string"
	}
	fs.VarP(newValidatedValue(a.Default, typ, validate), a.Name, a.Short, a.Help)
	a.annotate(fs)
}

func (a ArgConstant) annotate(fs *pflag.FlagSet) {
	if a.Env != "" {
		_ = fs.SetAnnotation(a.Name, envAnnotation, []string{a.Env})
	}
}

func (a ArgConstant) registerBool(fs *pflag.FlagSet) {
	fs.BoolP(a.Name, a.Short, false, a.Help)
	a.annotate(fs)
}

func (a ArgConstant) registerString(fs *pflag.FlagSet) {
	fs.StringP(a.Name, a.Short, a.Default, a.Help)
	a.annotate(fs)
}

func AddConfigFileArg(fs *pflag.FlagSet)    { ConfigFileArg.registerString(fs) }
func AddVerboseArg(fs *pflag.FlagSet)       { VerboseArg.registerBool(fs) }
func AddSimulateArg(fs *pflag.FlagSet)      { SimulateArg.registerBool(fs) }
func AddPrintOnlyArg(fs *pflag.FlagSet)     { PrintOnlyArg.registerBool(fs) }
func AddSkipPreflightArg(fs *pflag.FlagSet) { SkipPreflightArg.registerBool(fs) }

func AddRPCURLArg(fs *pflag.FlagSet) {
	RPCURLArg.register(fs, IsURLOrMoniker)
}

func AddCommitmentArg(fs *pflag.FlagSet) {
	CommitmentArg.register(fs, IsCommitment)
}

func AddFeePayerArg(fs *pflag.FlagSet) {
	FeePayerArg.register(fs, IsValidSigner)
}

func AddRentPayerArg(fs *pflag.FlagSet) {
	RentPayerArg.register(fs, IsValidSigner)
}

func AddValidatorManagerArg(fs *pflag.FlagSet) {
	ValidatorManagerArg.register(fs, IsValidSigner)
}

func AddProgramArg(fs *pflag.FlagSet) {
	ProgramArg.register(fs, IsValidPubkey)
}

func AddInstanceArg(fs *pflag.FlagSet) {
	InstanceArg.register(fs, IsValidPubkey)
}

func AddBlockhashRetriesArg(fs *pflag.FlagSet) {
	BlockhashRetriesArg.register(fs, IsU16)
}

// AddCommonArgs registers the flag set every Marinade tool carries.
func AddCommonArgs(fs *pflag.FlagSet) {
	AddConfigFileArg(fs)
	AddVerboseArg(fs)
	AddSimulateArg(fs)
	AddPrintOnlyArg(fs)
	AddSkipPreflightArg(fs)
	AddRPCURLArg(fs)
	AddCommitmentArg(fs)
	AddFeePayerArg(fs)
	AddRentPayerArg(fs)
	AddProgramArg(fs)
	AddInstanceArg(fs)
	AddBlockhashRetriesArg(fs)
}
