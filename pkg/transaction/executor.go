// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"context"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/marinade-finance/marinade-cli-utils/pkg/transaction"

// Client is the subset of *rpc.Client needed to send and simulate transactions.
type Client interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ Client = (*rpc.Client)(nil)

// Record describes one executed or simulated transaction.
type Record struct {
	Signature    solana.Signature
	Signers      []solana.PublicKey
	Instructions int
	Simulated    bool
	Err          error
}

// Recorder persists execution records.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// Executor sends, simulates or prints transactions.
type Executor struct {
	Client   Client
	FeePayer dynsigner.Signer

	Commitment          rpc.CommitmentType
	BlockhashCommitment rpc.CommitmentType
	SkipPreflight       bool
	BlockhashRetries    uint16

	Simulate      bool
	Print         bool
	PrintEncoding Encoding
	// Out receives printed instructions.
	Out io.Writer
	// Progress receives the confirmation spinner; nil disables it.
	Progress io.Writer

	PollInterval   time.Duration
	ConfirmTimeout time.Duration

	Recorder Recorder

	tracer trace.Tracer
}

func NewExecutor(client Client, feePayer dynsigner.Signer, out io.Writer) *Executor {
	return &Executor{
		Client:              client,
		FeePayer:            feePayer,
		Commitment:          rpc.CommitmentConfirmed,
		BlockhashCommitment: rpc.CommitmentFinalized,
		PrintEncoding:       EncodingBase64,
		Out:                 out,
		PollInterval:        DefaultPollInterval,
		ConfirmTimeout:      DefaultConfirmTimeout,
	}
}

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 90 * time.Second
)

func (e *Executor) confirmTiming() (poll, timeout time.Duration) {
	poll, timeout = e.PollInterval, e.ConfirmTimeout
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return poll, timeout
}

func (e *Executor) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (e *Executor) warnModes() {
	if e.Simulate {
		log.Warn().Msg("Simulation mode: transactions will not be executed, only simulated.")
	}
	if e.Print {
		log.Warn().Msgf("Print mode: transactions will also be printed in %s format.", e.PrintEncoding)
	}
}

func (e *Executor) record(ctx context.Context, p *PreparedTransaction, sig solana.Signature, simulated bool, err error) {
	if e.Recorder == nil {
		return
	}
	r := Record{
		Signature:    sig,
		Signers:      p.SignerKeys(),
		Instructions: len(p.Transaction.Message.Instructions),
		Simulated:    simulated,
		Err:          err,
	}
	if rErr := e.Recorder.Record(ctx, r); rErr != nil {
		log.Warn().Err(rErr).Msg("failed to record transaction")
	}
}

// ExecuteRequest runs a single request.
func (e *Executor) ExecuteRequest(ctx context.Context, r *Request) error {
	return e.ExecuteRequests(ctx, []*Request{r})
}

// ExecuteRequests runs each request as its own transaction. In simulate mode every
// request is simulated; signatures are verified unless printing.
func (e *Executor) ExecuteRequests(ctx context.Context, requests []*Request) error {
	e.warnModes()
	for _, r := range requests {
		if e.Print {
			if err := PrintInstructions(e.Out, r.Instructions, e.PrintEncoding); err != nil {
				return err
			}
		}
		b := NewUnlimitedBuilder(e.FeePayer)
		if e.Print || e.Simulate {
			b.WithoutSignersCheck()
		}
		if err := b.AddRequest(r); err != nil {
			return err
		}
		p, err := b.BuildOne()
		if err != nil {
			return err
		}
		if e.Simulate {
			res, err := e.SimulatePrepared(ctx, p, !e.Print)
			e.record(ctx, p, solana.Signature{}, true, err)
			if err := LogSimulation(res, err); err != nil {
				return err
			}
			continue
		}
		sig, err := e.ExecutePreparedBlockhashRetry(ctx, p)
		e.record(ctx, p, sig, false, err)
		if err := LogExecution(sig, err); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteBuilder drains the builder into combined transactions. When simulating
// only the first one is simulated since later ones may depend on its effects.
func (e *Executor) ExecuteBuilder(ctx context.Context, b *Builder) error {
	e.warnModes()
	if e.Print {
		if err := PrintInstructions(e.Out, b.Instructions(), e.PrintEncoding); err != nil {
			return err
		}
	}
	if e.Simulate {
		count := 0
		for p, err := range b.SequenceCombined() {
			if err != nil {
				return err
			}
			count++
			if count > 1 {
				continue
			}
			res, err := e.SimulatePrepared(ctx, p, !e.Print && b.IsCheckSigners())
			e.record(ctx, p, solana.Signature{}, true, err)
			if err := LogSimulation(res, err); err != nil {
				return err
			}
		}
		if count > 1 {
			log.Warn().Msg("Simulation mode: only the first bunch of transactions was simulated, the rest was not simulated.")
		}
		return nil
	}
	for p, err := range b.SequenceCombined() {
		if err != nil {
			return err
		}
		sig, err := e.ExecutePreparedBlockhashRetry(ctx, p)
		e.record(ctx, p, sig, false, err)
		if err := LogExecution(sig, err); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := e.Client.GetLatestBlockhash(ctx, e.BlockhashCommitment)
	if err != nil {
		return solana.Hash{}, errors.Wrap(err, "failed to get latest blockhash")
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, errors.New("empty latest blockhash response")
	}
	return res.Value.Blockhash, nil
}

// ExecutePrepared signs p with a fresh blockhash, sends it and waits for the
// executor commitment.
func (e *Executor) ExecutePrepared(ctx context.Context, p *PreparedTransaction) (sig solana.Signature, err error) {
	ctx, span := e.startSpan(ctx, "transaction.execute")
	defer func() {
		span.SetAttributes(attribute.String("solana.signature", sig.String()))
		endSpan(span, err)
	}()

	blockhash, err := e.latestBlockhash(ctx)
	if err != nil {
		return sig, err
	}
	tx, err := p.Sign(blockhash)
	if err != nil {
		log.Error().Err(err).Str("blockhash", blockhash.String()).Msg("execute_prepared_transaction: error signing transaction")
		return sig, err
	}
	sig, err = e.Client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       e.SkipPreflight,
		PreflightCommitment: e.Commitment,
	})
	if err != nil {
		log.Error().Err(err).Interface("signers", p.SignerKeys()).Msg("execute_prepared_transaction: error sending transaction")
		return sig, err
	}
	return sig, e.confirm(ctx, sig)
}

// ExecutePreparedBlockhashRetry is ExecutePrepared retried up to BlockhashRetries
// times while the failure is an expired blockhash.
func (e *Executor) ExecutePreparedBlockhashRetry(ctx context.Context, p *PreparedTransaction) (solana.Signature, error) {
	lastErr := errors.New("send_transaction: unknown retry failure")
	for attempt := 0; attempt <= int(e.BlockhashRetries); attempt++ {
		sig, err := e.ExecutePrepared(ctx, p)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		if !IsBlockhashNotFound(err) || ctx.Err() != nil {
			break
		}
		log.Debug().Err(err).Msgf("Retried attempt #%d/%d to send transaction", attempt, e.BlockhashRetries)
	}
	log.Error().Err(lastErr).Msg("Transaction ERR send_transaction")
	return solana.Signature{}, lastErr
}

// SimulatePrepared simulates p. Without sigVerify the transaction is only partially
// signed.
func (e *Executor) SimulatePrepared(ctx context.Context, p *PreparedTransaction, sigVerify bool) (res *rpc.SimulateTransactionResponse, err error) {
	ctx, span := e.startSpan(ctx, "transaction.simulate")
	span.SetAttributes(attribute.Bool("solana.sig_verify", sigVerify))
	defer func() { endSpan(span, err) }()

	blockhash, err := e.latestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	var tx *solana.Transaction
	if sigVerify {
		tx, err = p.Sign(blockhash)
	} else {
		tx, err = p.PartialSign(blockhash)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Signing transaction error")
	}
	return e.Client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  sigVerify,
		Commitment: e.Commitment,
	})
}

var commitmentRank = map[string]int{
	string(rpc.CommitmentProcessed): 0,
	string(rpc.CommitmentConfirmed): 1,
	string(rpc.CommitmentFinalized): 2,
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	got, ok := commitmentRank[string(status)]
	if !ok {
		return false
	}
	return got >= commitmentRank[string(want)]
}

func (e *Executor) confirm(ctx context.Context, sig solana.Signature) error {
	var bar *progressbar.ProgressBar
	if e.Progress != nil {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetDescription("Confirming transaction "+sig.String()),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	poll, timeout := e.confirmTiming()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		res, err := e.Client.GetSignatureStatuses(ctx, false, sig)
		switch {
		case err != nil:
			log.Debug().Err(err).Msg("failed to get signature status")
		case res != nil && len(res.Value) > 0 && res.Value[0] != nil:
			status := res.Value[0]
			if status.Err != nil {
				return &TransactionError{Signature: sig, Err: status.Err}
			}
			if reached(status.ConfirmationStatus, e.Commitment) {
				return nil
			}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		if time.Now().After(deadline) {
			return errors.Wrapf(ErrUnableToConfirm, "signature %s", sig)
		}
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-ticker.C:
		}
	}
}
