// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const blockhashNotFound = "BlockhashNotFound"

// ErrUnableToConfirm is returned when a sent transaction never reached the
// requested commitment, usually because its blockhash expired.
var ErrUnableToConfirm = errors.New("unable to confirm transaction")

// TransactionError is a transaction that landed but failed.
type TransactionError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, errorJSON(e.Err))
}

func errorJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// PreflightFailure is the simulation result a node attaches to a rejected send.
type PreflightFailure struct {
	Err  string
	Logs []string
}

// AsPreflightFailure extracts the preflight simulation result carried in the data of
// a JSON RPC error.
func AsPreflightFailure(err error) (*PreflightFailure, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		return nil, false
	}
	raw, mErr := json.Marshal(rpcErr.Data)
	if mErr != nil {
		return nil, false
	}
	data := gjson.ParseBytes(raw)
	if !data.IsObject() || !data.Get("err").Exists() {
		return nil, false
	}
	failure := &PreflightFailure{Err: data.Get("err").Raw}
	if e := data.Get("err"); e.Type == gjson.String {
		failure.Err = e.String()
	}
	for _, l := range data.Get("logs").Array() {
		failure.Logs = append(failure.Logs, l.String())
	}
	return failure, true
}

// IsBlockhashNotFound reports whether err means the transaction can be re-signed
// with a newer blockhash and sent again.
func IsBlockhashNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnableToConfirm) {
		return true
	}
	if failure, ok := AsPreflightFailure(err); ok {
		return failure.Err == blockhashNotFound
	}
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return gjson.Parse(errorJSON(txErr.Err)).String() == blockhashNotFound
	}
	return strings.Contains(strings.ToLower(err.Error()), "unable to confirm transaction")
}

// LogExecution logs the outcome of a send and turns a failure into an error.
func LogExecution(signature solana.Signature, err error) error {
	if err == nil {
		log.Info().Msgf("Transaction %s", signature)
		return nil
	}
	if failure, ok := AsPreflightFailure(err); ok {
		log.Error().Err(err).Msg("Solana client error")
		for _, l := range failure.Logs {
			log.Error().Msgf("Log: %s", l)
		}
	}
	return errors.Errorf("Transaction error: %v", err)
}

// LogSimulation logs the simulation logs and fails when the simulation failed.
func LogSimulation(res *rpc.SimulateTransactionResponse, err error) error {
	if err != nil {
		log.Error().Err(err).Msg("Transaction error")
		if failure, ok := AsPreflightFailure(err); ok {
			for _, l := range failure.Logs {
				log.Error().Msgf("Log: %s", l)
			}
		}
		return errors.Errorf("Transaction error: %v", err)
	}
	if res == nil || res.Value == nil {
		return errors.New("Transaction error: empty simulation result")
	}
	for _, l := range res.Value.Logs {
		log.Debug().Msgf("Log: %s", l)
	}
	if res.Value.Err != nil {
		log.Error().Str("err", errorJSON(res.Value.Err)).Strs("logs", res.Value.Logs).Msg("Transaction ERR")
		return errors.Errorf("Transaction error: %s", errorJSON(res.Value.Err))
	}
	log.Info().Msg("Transaction simulation Ok")
	return nil
}
