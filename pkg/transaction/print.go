// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Encoding selects how printed instructions are rendered.
type Encoding string

const (
	EncodingBase64 Encoding = "base64"
	EncodingBase58 Encoding = "base58"
)

func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(s)) {
	case "", EncodingBase64:
		return EncodingBase64, nil
	case EncodingBase58:
		return EncodingBase58, nil
	}
	return "", errors.Errorf("unknown print encoding %q", s)
}

func (e Encoding) encode(b []byte) string {
	if e == EncodingBase58 {
		return base58.Encode(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// accountRecord and instructionRecord follow the instruction layout the SPL
// governance program stores in proposals.
type accountRecord struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type instructionRecord struct {
	ProgramID solana.PublicKey
	Accounts  []accountRecord
	Data      []byte
}

// SerializeInstruction encodes ix in the governance instruction layout.
func SerializeInstruction(ix solana.Instruction) ([]byte, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read instruction data")
	}
	record := instructionRecord{ProgramID: ix.ProgramID(), Data: data}
	for _, a := range ix.Accounts() {
		record.Accounts = append(record.Accounts, accountRecord{
			Pubkey:     a.PublicKey,
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(record); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// PrintBase64 writes every instruction in the governance layout to w.
func PrintBase64(w io.Writer, instructions []solana.Instruction) error {
	return PrintInstructions(w, instructions, EncodingBase64)
}

func PrintInstructions(w io.Writer, instructions []solana.Instruction, encoding Encoding) error {
	for _, ix := range instructions {
		raw, err := SerializeInstruction(ix)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s instruction of program %s:\n", encoding, ix.ProgramID())
		fmt.Fprintf(w, " %s\n", encoding.encode(raw))
	}
	return nil
}
