// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testProgram = solana.MustPublicKeyFromBase58("MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD")

func newSigner(t *testing.T) dynsigner.Signer {
	t.Helper()
	s, err := dynsigner.NewRandomKeypairSigner()
	require.NoError(t, err)
	return s
}

func instruction(dataLen int, signers ...solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{solana.Meta(solana.SystemProgramID)}
	for _, s := range signers {
		accounts = append(accounts, solana.Meta(s).SIGNER().WRITE())
	}
	return solana.NewInstruction(testProgram, accounts, make([]byte, dataLen))
}

func collect(t *testing.T, b *Builder, combined bool) []*PreparedTransaction {
	t.Helper()
	seq := b.Sequence()
	if combined {
		seq = b.SequenceCombined()
	}
	var out []*PreparedTransaction
	for p, err := range seq {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestBuilderPacks(t *testing.T) {
	payer := newSigner(t)
	b := NewLimitedBuilder(payer)
	require.True(t, b.IsEmpty())

	require.NoError(t, b.AddInstruction(instruction(10)))
	require.NoError(t, b.AddInstruction(instruction(10)))
	b.FinishInstructionPack()
	require.NoError(t, b.AddInstruction(instruction(10)))
	assert.Len(t, b.Instructions(), 3)
	assert.True(t, b.FitsSingleTransaction())

	txs := collect(t, b, false)
	require.Len(t, txs, 2)
	assert.Len(t, txs[0].Transaction.Message.Instructions, 2)
	assert.Len(t, txs[1].Transaction.Message.Instructions, 1)
	assert.Equal(t, payer.PublicKey(), txs[0].Transaction.Message.AccountKeys[0])
	assert.True(t, b.IsEmpty())
}

func TestBuilderAbort(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	require.NoError(t, b.AddInstruction(instruction(10)))
	b.FinishInstructionPack()
	require.NoError(t, b.AddInstruction(instruction(10)))
	b.AbortInstructionPack()
	assert.Len(t, b.Instructions(), 1)
}

func TestBuilderUnknownSigner(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	stranger := newSigner(t)
	err := b.AddInstruction(instruction(1, stranger.PublicKey()))
	assert.True(t, errors.Is(err, ErrUnknownSigner))

	b.AddSigner(stranger)
	require.NoError(t, b.AddInstruction(instruction(1, stranger.PublicKey())))

	unchecked := NewLimitedBuilder(newSigner(t)).WithoutSignersCheck()
	require.NoError(t, unchecked.AddInstruction(instruction(1, newSigner(t).PublicKey())))
	assert.False(t, unchecked.IsCheckSigners())
}

func TestBuilderSizeLimit(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	err := b.AddInstruction(instruction(PacketDataSize))
	assert.True(t, errors.Is(err, ErrTooBigTransaction))
	assert.True(t, b.IsEmpty())

	unlimited := NewUnlimitedBuilder(newSigner(t))
	require.NoError(t, unlimited.AddInstruction(instruction(PacketDataSize)))
	assert.True(t, unlimited.FitsSingleTransaction())
}

func TestBuilderCombined(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	for i := 0; i < 5; i++ {
		require.NoError(t, b.AddRequest(NewRequest(instruction(400))))
	}
	assert.False(t, b.FitsSingleTransaction())

	txs := collect(t, b, true)
	require.Len(t, txs, 3)
	assert.Len(t, txs[0].Transaction.Message.Instructions, 2)
	assert.Len(t, txs[1].Transaction.Message.Instructions, 2)
	assert.Len(t, txs[2].Transaction.Message.Instructions, 1)
	for _, p := range txs {
		size, err := SerializedSize(p.Transaction)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, PacketDataSize)
	}
}

func TestBuildSingleCombined(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	require.NoError(t, b.AddRequest(NewRequest(instruction(700))))
	require.NoError(t, b.AddRequest(NewRequest(instruction(700))))
	_, err := b.BuildSingleCombined()
	assert.True(t, errors.Is(err, ErrTooBigTransaction))

	one := NewUnlimitedBuilder(newSigner(t))
	require.NoError(t, one.AddRequest(NewRequest(instruction(700))))
	require.NoError(t, one.AddRequest(NewRequest(instruction(700))))
	p, err := one.BuildSingleCombined()
	require.NoError(t, err)
	assert.Len(t, p.Transaction.Message.Instructions, 2)
}

func TestBuildOne(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	_, err := b.BuildOne()
	assert.Error(t, err)

	require.NoError(t, b.AddRequest(NewRequest(instruction(1))))
	require.NoError(t, b.AddRequest(NewRequest(instruction(1))))
	_, err = b.BuildOne()
	assert.Error(t, err)
}

func TestAddRequestAbortsOnFailure(t *testing.T) {
	b := NewLimitedBuilder(newSigner(t))
	stranger := newSigner(t)
	err := b.AddRequest(NewRequest(instruction(1), instruction(1, stranger.PublicKey())))
	assert.True(t, errors.Is(err, ErrUnknownSigner))
	assert.True(t, b.IsEmpty())

	require.NoError(t, b.AddRequest(NewRequest(instruction(1, stranger.PublicKey())).Signer(stranger)))
	assert.False(t, b.IsEmpty())
}

func TestSerializedSizeMatchesWire(t *testing.T) {
	payer := newSigner(t)
	other := newSigner(t)
	b := NewLimitedBuilder(payer)
	b.AddSigner(other)
	require.NoError(t, b.AddInstruction(instruction(33, other.PublicKey())))
	p, err := b.BuildOne()
	require.NoError(t, err)

	tx, err := p.Sign(solana.Hash{1})
	require.NoError(t, err)
	wire, err := tx.MarshalBinary()
	require.NoError(t, err)
	size, err := SerializedSize(tx)
	require.NoError(t, err)
	assert.Equal(t, len(wire), size)
}

func TestSignAndPartialSign(t *testing.T) {
	payer := newSigner(t)
	other := newSigner(t)
	b := NewLimitedBuilder(payer).WithoutSignersCheck()
	require.NoError(t, b.AddInstruction(instruction(1, other.PublicKey())))
	p, err := b.BuildOne()
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{payer.PublicKey()}, p.SignerKeys())

	_, err = p.Sign(solana.Hash{2})
	assert.True(t, errors.Is(err, ErrNotEnoughSigners))

	tx, err := p.PartialSign(solana.Hash{2})
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)
	assert.False(t, tx.Signatures[0].IsZero())
	assert.True(t, tx.Signatures[1].IsZero())

	message, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].Verify(payer.PublicKey(), message))
}

func TestSignatureBuilder(t *testing.T) {
	sb := NewSignatureBuilder()
	key, err := sb.NewSigner()
	require.NoError(t, err)
	assert.True(t, sb.Contains(key))
	assert.Equal(t, 1, sb.Len())

	other := newSigner(t)
	sb.AddSigner(other)
	keys := sb.Keys()
	require.Len(t, keys, 2)
	assert.Less(t, keys[0].String(), keys[1].String())
}

func TestPrintInstructions(t *testing.T) {
	signer := newSigner(t).PublicKey()
	ix := solana.NewInstruction(testProgram, []*solana.AccountMeta{solana.Meta(signer).SIGNER()}, []byte{7, 8})

	var out bytes.Buffer
	require.NoError(t, PrintBase64(&out, []solana.Instruction{ix}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], testProgram.String())

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lines[1]))
	require.NoError(t, err)
	var record instructionRecord
	require.NoError(t, bin.NewBorshDecoder(raw).Decode(&record))
	assert.Equal(t, testProgram, record.ProgramID)
	require.Len(t, record.Accounts, 1)
	assert.True(t, record.Accounts[0].IsSigner)
	assert.False(t, record.Accounts[0].IsWritable)
	assert.Equal(t, []byte{7, 8}, record.Data)

	enc, err := ParseEncoding("BASE58")
	require.NoError(t, err)
	assert.Equal(t, EncodingBase58, enc)
	_, err = ParseEncoding("hex")
	assert.Error(t, err)
}

func TestBlockhashErrors(t *testing.T) {
	notFound := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Blockhash not found",
		Data:    map[string]interface{}{"err": "BlockhashNotFound", "logs": []interface{}{}},
	}
	assert.True(t, IsBlockhashNotFound(errors.Wrap(notFound, "send")))
	assert.True(t, IsBlockhashNotFound(errors.Wrap(ErrUnableToConfirm, "sig")))
	assert.False(t, IsBlockhashNotFound(errors.New("insufficient funds")))
	assert.False(t, IsBlockhashNotFound(nil))

	custom := &jsonrpc.RPCError{
		Code: -32002,
		Data: map[string]interface{}{
			"err":  map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
			"logs": []interface{}{"Program log: boom"},
		},
	}
	failure, ok := AsPreflightFailure(custom)
	require.True(t, ok)
	assert.Equal(t, []string{"Program log: boom"}, failure.Logs)
	assert.False(t, IsBlockhashNotFound(custom))
}

type fakeClient struct {
	sendErrs  []error
	sent      int
	simulated int
	simErr    interface{}
	pending   int
	lastSim   *rpc.SimulateTransactionOpts
}

func (c *fakeClient) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{9}}}, nil
}

func (c *fakeClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	c.sent++
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			return solana.Signature{}, err
		}
	}
	return tx.Signatures[0], nil
}

func (c *fakeClient) SimulateTransactionWithOpts(_ context.Context, _ *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	c.simulated++
	c.lastSim = opts
	return &rpc.SimulateTransactionResponse{Value: &rpc.SimulateTransactionResult{
		Err:  c.simErr,
		Logs: []string{"Program log: ok"},
	}}, nil
}

func (c *fakeClient) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if c.pending > 0 {
		c.pending--
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{
		{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	}}, nil
}

type memoryRecorder struct {
	records []Record
}

func (m *memoryRecorder) Record(_ context.Context, r Record) error {
	m.records = append(m.records, r)
	return nil
}

func newTestExecutor(t *testing.T, client *fakeClient, payer dynsigner.Signer) (*Executor, *bytes.Buffer, *memoryRecorder) {
	t.Helper()
	out := new(bytes.Buffer)
	e := NewExecutor(client, payer, out)
	e.PollInterval = time.Millisecond
	e.ConfirmTimeout = time.Second
	rec := &memoryRecorder{}
	e.Recorder = rec
	return e, out, rec
}

func TestExecuteRequest(t *testing.T) {
	payer := newSigner(t)
	client := &fakeClient{pending: 2}
	e, _, rec := newTestExecutor(t, client, payer)

	require.NoError(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(5))))
	assert.Equal(t, 1, client.sent)
	require.Len(t, rec.records, 1)
	assert.False(t, rec.records[0].Simulated)
	assert.False(t, rec.records[0].Signature.IsZero())
}

func TestExecuteBlockhashRetry(t *testing.T) {
	notFound := &jsonrpc.RPCError{Code: -32002, Data: map[string]interface{}{"err": "BlockhashNotFound"}}
	payer := newSigner(t)

	t.Run("retries expired blockhash", func(t *testing.T) {
		client := &fakeClient{sendErrs: []error{notFound, notFound}}
		e, _, _ := newTestExecutor(t, client, payer)
		e.BlockhashRetries = 3
		require.NoError(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(5))))
		assert.Equal(t, 3, client.sent)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		client := &fakeClient{sendErrs: []error{notFound, notFound, notFound}}
		e, _, _ := newTestExecutor(t, client, payer)
		e.BlockhashRetries = 1
		assert.Error(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(5))))
		assert.Equal(t, 2, client.sent)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		client := &fakeClient{sendErrs: []error{errors.New("insufficient funds")}}
		e, _, _ := newTestExecutor(t, client, payer)
		e.BlockhashRetries = 5
		assert.Error(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(5))))
		assert.Equal(t, 1, client.sent)
	})
}

func TestExecuteConfirmTimeout(t *testing.T) {
	client := &fakeClient{pending: 1 << 20}
	e, _, _ := newTestExecutor(t, client, newSigner(t))
	e.ConfirmTimeout = 5 * time.Millisecond
	p, err := singlePrepared(t, e.FeePayer)
	require.NoError(t, err)
	_, err = e.ExecutePrepared(context.Background(), p)
	assert.True(t, errors.Is(err, ErrUnableToConfirm))
	assert.True(t, IsBlockhashNotFound(err))
}

func TestExecutorLiteralUsesDefaultTiming(t *testing.T) {
	client := &fakeClient{}
	e := &Executor{Client: client, FeePayer: newSigner(t), Commitment: rpc.CommitmentConfirmed}
	poll, timeout := e.confirmTiming()
	assert.Equal(t, DefaultPollInterval, poll)
	assert.Equal(t, DefaultConfirmTimeout, timeout)

	e.PollInterval = -time.Second
	poll, _ = e.confirmTiming()
	assert.Equal(t, DefaultPollInterval, poll)

	require.NotPanics(t, func() {
		require.NoError(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(5))))
	})
	assert.Equal(t, 1, client.sent)
}

func singlePrepared(t *testing.T, payer dynsigner.Signer) (*PreparedTransaction, error) {
	t.Helper()
	b := NewLimitedBuilder(payer)
	require.NoError(t, b.AddInstruction(instruction(1)))
	return b.BuildOne()
}

func TestExecuteBuilderSimulatesFirstOnly(t *testing.T) {
	client := &fakeClient{}
	payer := newSigner(t)
	e, _, rec := newTestExecutor(t, client, payer)
	e.Simulate = true

	b := NewLimitedBuilder(payer)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.AddRequest(NewRequest(instruction(500))))
	}
	require.NoError(t, e.ExecuteBuilder(context.Background(), b))
	assert.Equal(t, 1, client.simulated)
	assert.Equal(t, 0, client.sent)
	require.NotNil(t, client.lastSim)
	assert.True(t, client.lastSim.SigVerify)
	require.Len(t, rec.records, 1)
	assert.True(t, rec.records[0].Simulated)
}

func TestExecuteSimulationFailure(t *testing.T) {
	client := &fakeClient{simErr: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}
	e, _, _ := newTestExecutor(t, client, newSigner(t))
	e.Simulate = true
	err := e.ExecuteRequest(context.Background(), NewRequest(instruction(1)))
	assert.ErrorContains(t, err, "InstructionError")
}

func TestExecutePrintWithoutSigners(t *testing.T) {
	client := &fakeClient{}
	e, out, _ := newTestExecutor(t, client, newSigner(t))
	e.Print = true
	e.Simulate = true

	stranger := newSigner(t).PublicKey()
	require.NoError(t, e.ExecuteRequest(context.Background(), NewRequest(instruction(1, stranger))))
	assert.Contains(t, out.String(), "base64 instruction of program")
	require.NotNil(t, client.lastSim)
	assert.False(t, client.lastSim.SigVerify)
}
