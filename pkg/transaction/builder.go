// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"iter"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PacketDataSize is the largest serialized transaction a node accepts.
const PacketDataSize = 1232

const signatureLength = 64

// Builder collects instruction packs and splits them into transactions. A pack is
// never split across transactions.
type Builder struct {
	feePayer           solana.PublicKey
	signatures         *SignatureBuilder
	packs              [][]solana.Instruction
	current            []solana.Instruction
	maxTransactionSize int
	checkSigners       bool
}

// NewBuilder creates a builder; maxTransactionSize 0 means unlimited.
func NewBuilder(feePayer dynsigner.Signer, maxTransactionSize int) *Builder {
	sb := NewSignatureBuilder()
	return &Builder{
		feePayer:           sb.AddSigner(feePayer),
		signatures:         sb,
		maxTransactionSize: maxTransactionSize,
		checkSigners:       true,
	}
}

// NewLimitedBuilder keeps every transaction within PacketDataSize.
func NewLimitedBuilder(feePayer dynsigner.Signer) *Builder {
	return NewBuilder(feePayer, PacketDataSize)
}

// NewUnlimitedBuilder combines everything into as few transactions as possible
// without size checks.
func NewUnlimitedBuilder(feePayer dynsigner.Signer) *Builder {
	return NewBuilder(feePayer, 0)
}

// WithoutSignersCheck accepts instructions whose signers are unknown, for print and
// simulate modes.
func (b *Builder) WithoutSignersCheck() *Builder {
	b.checkSigners = false
	b.signatures.checkSigner = false
	return b
}

func (b *Builder) FeePayer() solana.PublicKey {
	return b.feePayer
}

func (b *Builder) FeePayerSigner() dynsigner.Signer {
	s, _ := b.signatures.Signer(b.feePayer)
	return s
}

func (b *Builder) Signer(key solana.PublicKey) (dynsigner.Signer, bool) {
	return b.signatures.Signer(key)
}

func (b *Builder) IsCheckSigners() bool {
	return b.checkSigners
}

func (b *Builder) AddSigner(s dynsigner.Signer) solana.PublicKey {
	return b.signatures.AddSigner(s)
}

// AddSignerChecked registers s unless its key is already known.
func (b *Builder) AddSignerChecked(s dynsigner.Signer) {
	if !b.signatures.Contains(s.PublicKey()) {
		b.signatures.AddSigner(s)
	}
}

func (b *Builder) GenerateSigner() (solana.PublicKey, error) {
	return b.signatures.NewSigner()
}

func (b *Builder) checkInstructionSigners(ix solana.Instruction) error {
	if !b.checkSigners {
		return nil
	}
	for _, account := range ix.Accounts() {
		if account.IsSigner && !b.signatures.Contains(account.PublicKey) {
			log.Error().
				Str("signer", account.PublicKey.String()).
				Interface("known", b.signatures.Keys()).
				Msg("Unknown signer in signature builder")
			return errors.Wrapf(ErrUnknownSigner, "%s", account.PublicKey)
		}
	}
	return nil
}

// FinishInstructionPack closes the current pack.
func (b *Builder) FinishInstructionPack() {
	if len(b.current) == 0 {
		return
	}
	b.packs = append(b.packs, b.current)
	b.current = nil
}

// AbortInstructionPack drops the instructions added since the last finish.
func (b *Builder) AbortInstructionPack() {
	b.current = nil
}

func (b *Builder) IsEmpty() bool {
	return len(b.current) == 0 && len(b.packs) == 0
}

// AddInstruction appends ix to the current pack.
func (b *Builder) AddInstruction(ix solana.Instruction) error {
	if err := b.checkInstructionSigners(ix); err != nil {
		return err
	}
	candidate := append(append([]solana.Instruction{}, b.current...), ix)
	if b.maxTransactionSize > 0 {
		size, err := b.transactionSize(candidate)
		if err != nil {
			return err
		}
		if size > b.maxTransactionSize {
			log.Error().
				Int("size", size).
				Int("max_size", b.maxTransactionSize).
				Msg("add_instruction: too big transaction")
			return errors.Wrapf(ErrTooBigTransaction, "%d bytes exceeds %d", size, b.maxTransactionSize)
		}
	}
	b.current = candidate
	return nil
}

func (b *Builder) AddInstructions(ixs ...solana.Instruction) error {
	for _, ix := range ixs {
		if err := b.AddInstruction(ix); err != nil {
			return err
		}
	}
	return nil
}

// AddRequest registers the request signers and adds its instructions as one pack.
func (b *Builder) AddRequest(r *Request) error {
	for _, s := range r.Signers {
		b.AddSignerChecked(s)
	}
	if err := b.AddInstructions(r.Instructions...); err != nil {
		b.AbortInstructionPack()
		return errors.Wrap(err, "add_request: error adding instructions")
	}
	b.FinishInstructionPack()
	return nil
}

func (b *Builder) newTransaction(instructions []solana.Instruction) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(b.feePayer))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transaction")
	}
	return tx, nil
}

func (b *Builder) transactionSize(instructions []solana.Instruction) (int, error) {
	tx, err := b.newTransaction(instructions)
	if err != nil {
		return 0, err
	}
	return SerializedSize(tx)
}

// SerializedSize is the wire size of tx once signed.
func SerializedSize(tx *solana.Transaction) (int, error) {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, errors.Wrap(err, "failed to serialize message")
	}
	n := int(tx.Message.Header.NumRequiredSignatures)
	return compactU16Len(n) + n*signatureLength + len(message), nil
}

func compactU16Len(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	}
	return 3
}

func (b *Builder) prepare(tx *solana.Transaction) (*PreparedTransaction, error) {
	if b.checkSigners {
		p, err := NewPreparedTransaction(tx, b.signatures)
		if err != nil {
			return nil, errors.Wrap(err, "signature keys must be checked when instruction added")
		}
		return p, nil
	}
	return NewPreparedTransactionNoSigners(tx, b.signatures), nil
}

// BuildNext returns a transaction for the next pack, nil when nothing is left.
func (b *Builder) BuildNext() (*PreparedTransaction, error) {
	b.FinishInstructionPack()
	if len(b.packs) == 0 {
		return nil, nil
	}
	pack := b.packs[0]
	b.packs = b.packs[1:]
	tx, err := b.newTransaction(pack)
	if err != nil {
		return nil, err
	}
	return b.prepare(tx)
}

// BuildOne expects exactly one pack.
func (b *Builder) BuildOne() (*PreparedTransaction, error) {
	p, err := b.BuildNext()
	if err != nil {
		return nil, err
	}
	if p == nil || !b.IsEmpty() {
		return nil, errors.New("builder does not hold a single transaction")
	}
	return p, nil
}

// BuildNextCombined merges as many consecutive packs as fit into one transaction.
func (b *Builder) BuildNextCombined() (*PreparedTransaction, error) {
	b.FinishInstructionPack()
	if len(b.packs) == 0 {
		return nil, nil
	}
	var instructions []solana.Instruction
	if b.maxTransactionSize == 0 {
		for _, pack := range b.packs {
			instructions = append(instructions, pack...)
		}
		b.packs = nil
	} else {
		instructions = append(instructions, b.packs[0]...)
		b.packs = b.packs[1:]
		for len(b.packs) > 0 {
			candidate := append(append([]solana.Instruction{}, instructions...), b.packs[0]...)
			size, err := b.transactionSize(candidate)
			if err != nil {
				return nil, err
			}
			if size > b.maxTransactionSize {
				break
			}
			instructions = candidate
			b.packs = b.packs[1:]
		}
	}
	tx, err := b.newTransaction(instructions)
	if err != nil {
		return nil, err
	}
	return b.prepare(tx)
}

// BuildSingleCombined combines everything and fails when it does not fit one
// transaction.
func (b *Builder) BuildSingleCombined() (*PreparedTransaction, error) {
	p, err := b.BuildNextCombined()
	if err != nil || p == nil {
		return p, err
	}
	if !b.IsEmpty() {
		return nil, errors.Wrap(ErrTooBigTransaction, "instructions do not fit a single transaction")
	}
	return p, nil
}

// Sequence yields one transaction per pack.
func (b *Builder) Sequence() iter.Seq2[*PreparedTransaction, error] {
	return b.sequence(b.BuildNext)
}

// SequenceCombined yields transactions built by BuildNextCombined.
func (b *Builder) SequenceCombined() iter.Seq2[*PreparedTransaction, error] {
	return b.sequence(b.BuildNextCombined)
}

func (b *Builder) sequence(next func() (*PreparedTransaction, error)) iter.Seq2[*PreparedTransaction, error] {
	return func(yield func(*PreparedTransaction, error) bool) {
		for {
			p, err := next()
			if err != nil {
				yield(nil, err)
				return
			}
			if p == nil || !yield(p, nil) {
				return
			}
		}
	}
}

// FitsSingleTransaction reports whether all pending instructions fit one
// transaction of the configured size.
func (b *Builder) FitsSingleTransaction() bool {
	instructions := b.Instructions()
	if len(instructions) == 0 {
		return true
	}
	size, err := b.transactionSize(instructions)
	if err != nil {
		return false
	}
	return b.maxTransactionSize == 0 || size <= b.maxTransactionSize
}

// Instructions returns all pending instructions in order.
func (b *Builder) Instructions() []solana.Instruction {
	var out []solana.Instruction
	for _, pack := range b.packs {
		out = append(out, pack...)
	}
	return append(out, b.current...)
}
