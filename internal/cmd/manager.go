package cmd

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/cliargs"
	"github.com/marinade-finance/marinade-cli-utils/pkg/marinade"
	"github.com/marinade-finance/marinade-cli-utils/pkg/rpchelpers"
	"github.com/marinade-finance/marinade-cli-utils/pkg/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	flagScore          = "score"
	flagPauseAuthority = "pause-authority"
)

func init() {
	for _, c := range []*cobra.Command{addValidatorCmd, removeValidatorCmd, setValidatorScoreCmd} {
		cliargs.AddValidatorManagerArg(c.Flags())
	}
	addValidatorCmd.Flags().Uint32(flagScore, 0, "Initial score of the validator")
	for _, c := range []*cobra.Command{pauseCmd, resumeCmd} {
		c.Flags().String(flagPauseAuthority, "", "Pause authority signer [default: fee payer]")
	}
}

func parseVote(value string) (solana.PublicKey, error) {
	if err := cliargs.IsValidPubkey(value); err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "invalid validator vote account")
	}
	return solana.MustPublicKeyFromBase58(value), nil
}

var addValidatorCmd = &cobra.Command{
	Use:   "add-validator <vote-account>",
	Short: "Add a validator to the validator list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := parseVote(args[0])
		if err != nil {
			return err
		}
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		m, err := r.Marinade()
		if err != nil {
			return err
		}
		manager, err := r.signerOrFeePayer(cliargs.ValidatorManagerArg.Name)
		if err != nil {
			return err
		}
		rentPayer, err := r.signerOrFeePayer(cliargs.RentPayerArg.Name)
		if err != nil {
			return err
		}
		if err := marinade.VerifyRentPayer(r.ctx, r.client, rentPayer.PublicKey()); err != nil {
			return err
		}
		score, _ := cmd.Flags().GetUint32(flagScore)
		req, err := m.AddValidator(manager, vote, score, rentPayer)
		if err != nil {
			return err
		}
		return r.execute(req)
	},
}

var removeValidatorCmd = &cobra.Command{
	Use:   "remove-validator <vote-account>",
	Short: "Remove a validator from the validator list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := parseVote(args[0])
		if err != nil {
			return err
		}
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		m, err := r.Marinade()
		if err != nil {
			return err
		}
		manager, err := r.signerOrFeePayer(cliargs.ValidatorManagerArg.Name)
		if err != nil {
			return err
		}
		validators, _, err := m.ValidatorList(r.ctx)
		if err != nil {
			return err
		}
		index, err := validatorIndex(validators, vote)
		if err != nil {
			return err
		}
		req, err := m.RemoveValidator(manager, vote, index)
		if err != nil {
			return err
		}
		return r.execute(req)
	},
}

var setValidatorScoreCmd = &cobra.Command{
	Use:   "set-validator-score <vote-account> <score>",
	Short: "Set the score of a listed validator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := parseVote(args[0])
		if err != nil {
			return err
		}
		score, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid score %q", args[1])
		}
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		m, err := r.Marinade()
		if err != nil {
			return err
		}
		manager, err := r.signerOrFeePayer(cliargs.ValidatorManagerArg.Name)
		if err != nil {
			return err
		}
		validators, _, err := m.ValidatorList(r.ctx)
		if err != nil {
			return err
		}
		index, err := validatorIndex(validators, vote)
		if err != nil {
			return err
		}
		req, err := m.SetValidatorScore(manager, vote, index, uint32(score))
		if err != nil {
			return err
		}
		return r.execute(req)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the balances of stake accounts not updated in the current epoch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		m, err := r.Marinade()
		if err != nil {
			return err
		}
		clock, err := rpchelpers.GetClock(r.ctx, r.client)
		if err != nil {
			return err
		}
		validators, _, err := m.ValidatorList(r.ctx)
		if err != nil {
			return err
		}
		// Updating a deactivated stake removes it and moves the last record into its
		// slot, so walk from the end.
		stakes, _, err := m.StakesInfoReversed(r.ctx)
		if err != nil {
			return err
		}
		feePayer, err := r.FeePayer()
		if err != nil {
			return err
		}
		builder := transaction.NewLimitedBuilder(feePayer)
		for _, s := range stakes {
			if s.Record.LastUpdateEpoch >= clock.Epoch {
				continue
			}
			req, err := updateRequest(m, s, validators)
			if err != nil {
				return err
			}
			if req == nil {
				continue
			}
			if err := builder.AddRequest(req); err != nil {
				return err
			}
		}
		if builder.IsEmpty() {
			log.Info().Uint64("epoch", clock.Epoch).Msg("all stake accounts are up to date")
			return nil
		}
		e, err := r.Executor()
		if err != nil {
			return err
		}
		return e.ExecuteBuilder(r.ctx, builder)
	},
}

func updateRequest(m *marinade.RPCMarinade, s marinade.StakeInfo, validators []marinade.ValidatorRecord) (*transaction.Request, error) {
	if s.Stake.Stake == nil {
		log.Warn().Str("stake", s.Record.StakeAccount.String()).Stringer("kind", s.Stake.Kind).Msg("skipping stake account without delegation")
		return nil, nil
	}
	delegation := s.Stake.Stake.Delegation
	if delegation.DeactivationEpoch == notDeactivated {
		index, err := validatorIndex(validators, delegation.VoterPubkey)
		if err != nil {
			return nil, err
		}
		return m.UpdateActive(s.Record.StakeAccount, s.Index, index)
	}
	return m.UpdateDeactivated(s.Record.StakeAccount, s.Index)
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPause(cmd, true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPause(cmd, false)
	},
}

func runPause(cmd *cobra.Command, pause bool) error {
	r, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer r.close()
	m, err := r.Marinade()
	if err != nil {
		return err
	}
	if m.State.Paused == pause {
		log.Warn().Bool("paused", pause).Msg("program is already in the requested state")
		return nil
	}
	authority, err := r.signerOrFeePayer(flagPauseAuthority)
	if err != nil {
		return err
	}
	var req *transaction.Request
	if pause {
		req, err = m.EmergencyPause(authority)
	} else {
		req, err = m.EmergencyResume(authority)
	}
	if err != nil {
		return err
	}
	return r.execute(req)
}
