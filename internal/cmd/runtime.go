package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/marinade-finance/marinade-cli-utils/internal/journal"
	"github.com/marinade-finance/marinade-cli-utils/internal/rpc"
	"github.com/marinade-finance/marinade-cli-utils/pkg/cliargs"
	"github.com/marinade-finance/marinade-cli-utils/pkg/dynsigner"
	"github.com/marinade-finance/marinade-cli-utils/pkg/marinade"
	"github.com/marinade-finance/marinade-cli-utils/pkg/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runtime is everything a command needs, resolved from flags, environment and the
// Solana CLI config.
type runtime struct {
	ctx     context.Context
	cmd     *cobra.Command
	matches cliargs.FlagMatches
	config  cliargs.SolanaConfig
	client  *rpc.Client

	feePayer dynsigner.Signer
	journal  *journal.Journal
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	matches := cliargs.NewFlagMatches(cmd.Flags())
	configPath, _ := matches.ValueOf(cliargs.ConfigFileArg.Name)
	config, err := cliargs.LoadSolanaConfig(configPath)
	if err != nil {
		return nil, err
	}
	url := config.JSONRPCURL
	if v, ok := matches.ValueOf(cliargs.RPCURLArg.Name); ok {
		url = v
	}
	client, err := rpc.NewClient(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize RPC client")
	}
	log.Debug().Str("url", client.URL).Str("config", configPath).Msg("runtime ready")
	return &runtime{
		ctx:     cmd.Context(),
		cmd:     cmd,
		matches: matches,
		config:  config,
		client:  client,
	}, nil
}

func (r *runtime) close() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close journal")
		}
	}
}

func (r *runtime) commitment() solanarpc.CommitmentType {
	c := r.config.Commitment
	if v, ok := r.matches.ValueOf(cliargs.CommitmentArg.Name); ok {
		c = v
	}
	return solanarpc.CommitmentType(strings.ToLower(c))
}

// FeePayer is the --fee-payer signer or the keypair of the Solana CLI config.
func (r *runtime) FeePayer() (dynsigner.Signer, error) {
	if r.feePayer != nil {
		return r.feePayer, nil
	}
	signer, err := cliargs.SignerFromPathOrNone(r.matches, cliargs.FeePayerArg.Name)
	if err != nil {
		return nil, err
	}
	if signer == nil {
		if r.config.KeypairPath == "" {
			return nil, errors.New("no fee payer: use --fee-payer or set keypair_path in the config file")
		}
		signer, err = cliargs.SignerFromPath(r.config.KeypairPath, "keypair")
		if err != nil {
			return nil, err
		}
	}
	r.feePayer = dynsigner.NewDynSigner(signer)
	return r.feePayer, nil
}

// signerOrFeePayer resolves a signer argument that defaults to the fee payer.
func (r *runtime) signerOrFeePayer(name string) (dynsigner.PubkeyOrSigner, error) {
	feePayer, err := r.FeePayer()
	if err != nil {
		return dynsigner.PubkeyOrSigner{}, err
	}
	return cliargs.PubkeyOrSignerOrDefault(r.matches, name, dynsigner.NewSigner(feePayer))
}

func (r *runtime) Marinade() (*marinade.RPCMarinade, error) {
	program, err := cliargs.PubkeyOf(r.matches, cliargs.ProgramArg.Name)
	if err != nil {
		return nil, err
	}
	instance, err := cliargs.PubkeyOf(r.matches, cliargs.InstanceArg.Name)
	if err != nil {
		return nil, err
	}
	return marinade.New(r.ctx, r.client, program, instance)
}

func (r *runtime) openJournal() *journal.Journal {
	if r.journal != nil {
		return r.journal
	}
	if disabled, _ := r.cmd.Flags().GetBool(flagNoJournal); disabled {
		return nil
	}
	path, _ := r.cmd.Flags().GetString(flagJournal)
	if path == "" {
		var err error
		if path, err = journal.DefaultPath(); err != nil {
			log.Warn().Err(err).Msg("journal disabled")
			return nil
		}
	}
	j, err := journal.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("journal disabled")
		return nil
	}
	r.journal = j.WithCommand(r.cmd.Name())
	return r.journal
}

func (r *runtime) Executor() (*transaction.Executor, error) {
	feePayer, err := r.FeePayer()
	if err != nil {
		return nil, err
	}
	retries, err := cliargs.MatchU64(r.matches, cliargs.BlockhashRetriesArg.Name)
	if err != nil {
		return nil, err
	}
	e := transaction.NewExecutor(r.client, feePayer, r.cmd.OutOrStdout())
	e.Commitment = r.commitment()
	e.BlockhashRetries = uint16(retries)
	e.SkipPreflight, _ = r.cmd.Flags().GetBool(cliargs.SkipPreflightArg.Name)
	e.Simulate, _ = r.cmd.Flags().GetBool(cliargs.SimulateArg.Name)
	e.Print, _ = r.cmd.Flags().GetBool(cliargs.PrintOnlyArg.Name)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		e.Progress = r.cmd.ErrOrStderr()
	}
	if j := r.openJournal(); j != nil {
		e.Recorder = j
	}
	return e, nil
}

// execute runs one request per transaction.
func (r *runtime) execute(requests ...*transaction.Request) error {
	e, err := r.Executor()
	if err != nil {
		return err
	}
	return e.ExecuteRequests(r.ctx, requests)
}

func (r *runtime) jsonOutput() bool {
	output, _ := r.cmd.Flags().GetString(flagOutput)
	return output == outputJSON
}

func (r *runtime) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(v))
}

// rentExemptAccount creates a program owned account of space bytes funded by the
// fee payer.
func (r *runtime) rentExemptAccount(owner solana.PublicKey, space uint64) (dynsigner.Signer, solana.Instruction, error) {
	feePayer, err := r.FeePayer()
	if err != nil {
		return nil, nil, err
	}
	account, err := dynsigner.NewRandomKeypairSigner()
	if err != nil {
		return nil, nil, err
	}
	lamports, err := r.client.GetMinimumBalanceForRentExemption(r.ctx, space, solanarpc.CommitmentConfirmed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get rent exemption")
	}
	ix, err := createAccountInstruction(feePayer.PublicKey(), account.PublicKey(), owner, lamports, space)
	if err != nil {
		return nil, nil, err
	}
	return account, ix, nil
}
