// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package cliargs

import (
	"bufio"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/term"
)

const askKeyword = "ASK"

var (
	ErrRemoteWalletUnsupported = errors.New("remote wallets are not supported")
	ErrPubkeyIsNotSigner       = errors.New("a pubkey was provided where a signer is required")
)

type SignerSourceKind int

const (
	SignerSourceFilepath SignerSourceKind = iota
	SignerSourcePubkey
	SignerSourcePrompt
	SignerSourceStdin
	SignerSourceUsb
)

func (k SignerSourceKind) String() string {
	switch k {
	case SignerSourceFilepath:
		return "file"
	case SignerSourcePubkey:
		return "pubkey"
	case SignerSourcePrompt:
		return "prompt"
	case SignerSourceStdin:
		return "stdin"
	case SignerSourceUsb:
		return "usb"
	}
	return "unknown"
}

type SignerSource struct {
	Kind   SignerSourceKind
	Path   string
	Pubkey solana.PublicKey
}

// ParseSignerSource classifies a keypair argument the way the Solana CLI does:
// `stdin` / `-`, `prompt:` / `ASK`, `usb://...`, `file:<path>`, a base58 pubkey or
// otherwise a path to a keypair file.
func ParseSignerSource(value string) (SignerSource, error) {
	switch value {
	case "-", "stdin":
		return SignerSource{Kind: SignerSourceStdin}, nil
	case askKeyword:
		return SignerSource{Kind: SignerSourcePrompt}, nil
	}
	if u, err := url.Parse(value); err == nil && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "file":
			path := u.Opaque
			if path == "" {
				path = u.Host + u.Path
			}
			return SignerSource{Kind: SignerSourceFilepath, Path: path}, nil
		case "prompt":
			return SignerSource{Kind: SignerSourcePrompt}, nil
		case "stdin":
			return SignerSource{Kind: SignerSourceStdin}, nil
		case "usb":
			return SignerSource{Kind: SignerSourceUsb, Path: value}, nil
		default:
			return SignerSource{}, errors.Errorf("unrecognized signer source %q", value)
		}
	}
	if pubkey, err := solana.PublicKeyFromBase58(value); err == nil {
		return SignerSource{Kind: SignerSourcePubkey, Pubkey: pubkey}, nil
	}
	return SignerSource{Kind: SignerSourceFilepath, Path: value}, nil
}

// SignerLoader turns keypair arguments into signers.
type SignerLoader struct {
	Stdin  io.Reader
	Stderr io.Writer
	// ReadSecret reads a line without echo; defaults to the terminal on stdin.
	ReadSecret func() (string, error)

	lines *bufio.Reader
}

var DefaultSignerLoader = &SignerLoader{
	Stdin:  os.Stdin,
	Stderr: os.Stderr,
}

// SignerFromPath loads the signer referenced by path for the argument name.
func SignerFromPath(path, name string) (dynsigner.Signer, error) {
	return DefaultSignerLoader.Load(path, name)
}

func (l *SignerLoader) Load(path, name string) (dynsigner.Signer, error) {
	source, err := ParseSignerSource(path)
	if err != nil {
		return nil, err
	}
	switch source.Kind {
	case SignerSourceFilepath:
		key, err := solana.PrivateKeyFromSolanaKeygenFile(source.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read keypair file %q for argument '%s'", source.Path, name)
		}
		return dynsigner.NewKeypairSigner(key), nil
	case SignerSourceStdin:
		key, err := l.readKeypairJSON()
		if err != nil {
			return nil, errors.Wrapf(err, "could not read keypair from stdin for argument '%s'", name)
		}
		return dynsigner.NewKeypairSigner(key), nil
	case SignerSourcePrompt:
		key, err := l.keypairFromSeedPhrase(name)
		if err != nil {
			return nil, err
		}
		return dynsigner.NewKeypairSigner(key), nil
	case SignerSourceUsb:
		return nil, errors.Wrapf(ErrRemoteWalletUnsupported, "argument '%s' (%s)", name, source.Path)
	case SignerSourcePubkey:
		return nil, errors.Wrapf(ErrPubkeyIsNotSigner, "argument '%s' (%s)", name, source.Pubkey)
	}
	return nil, errors.Errorf("unsupported signer source for argument '%s'", name)
}

func (l *SignerLoader) readKeypairJSON() (solana.PrivateKey, error) {
	var nums []int
	if err := json.NewDecoder(l.Stdin).Decode(&nums); err != nil {
		return nil, errors.WithStack(err)
	}
	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, errors.Errorf("keypair byte %d out of range: %d", i, n)
		}
		raw[i] = byte(n)
	}
	return keyFromBytes(raw)
}

func keyFromBytes(raw []byte) (solana.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func (l *SignerLoader) keypairFromSeedPhrase(name string) (solana.PrivateKey, error) {
	fmt.Fprintf(l.Stderr, "[%s] seed phrase: ", name)
	phrase, err := l.readSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read seed phrase")
	}
	phrase = strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return nil, errors.Errorf("invalid seed phrase for argument '%s'", name)
	}
	fmt.Fprint(l.Stderr, "If this seed phrase has an associated passphrase, enter it now. Otherwise, press ENTER to continue: ")
	passphrase, err := l.readSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read passphrase")
	}
	return KeypairFromSeedPhrase(phrase, passphrase)
}

// KeypairFromSeedPhrase derives the keypair solana-keygen derives for a BIP39
// mnemonic without a derivation path.
func KeypairFromSeedPhrase(phrase, passphrase string) (solana.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])), nil
}

func (l *SignerLoader) readSecret() (string, error) {
	if l.ReadSecret != nil {
		return l.ReadSecret()
	}
	if f, ok := l.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(l.Stderr)
		return string(b), err
	}
	if l.lines == nil {
		l.lines = bufio.NewReader(l.Stdin)
	}
	line, err := l.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	log.Debug().Msg("reading secret from non-terminal input")
	return strings.TrimSpace(line), nil
}
