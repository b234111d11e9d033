package cmd

import (
	"math"
	"math/big"
	"strconv"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/marinade-finance/marinade-cli-utils/pkg/marinade"
	"github.com/pkg/errors"
)

// parseSol converts a decimal SOL (or mSOL) amount into its 9 decimal base units.
func parseSol(value string) (uint64, error) {
	amount, ok := new(big.Float).SetPrec(128).SetString(value)
	if !ok {
		return 0, errors.Errorf("invalid amount %q", value)
	}
	if amount.IsInf() {
		return 0, errors.Errorf("amount out of range: %s", value)
	}
	if amount.Sign() <= 0 {
		return 0, errors.Errorf("amount must be positive: %s", value)
	}
	scaled := new(big.Float).Mul(amount, big.NewFloat(float64(solana.LAMPORTS_PER_SOL)))
	units, _ := scaled.Add(scaled, big.NewFloat(0.5)).Int(nil)
	if units == nil || !units.IsUint64() || units.Sign() == 0 {
		return 0, errors.Errorf("amount out of range: %s", value)
	}
	return units.Uint64(), nil
}

func formatSol(lamports uint64) string {
	return strconv.FormatFloat(float64(lamports)/float64(solana.LAMPORTS_PER_SOL), 'f', -1, 64)
}

func createAccountInstruction(funder, account, owner solana.PublicKey, lamports, space uint64) (solana.Instruction, error) {
	ix, err := system.NewCreateAccountInstruction(lamports, space, owner, funder, account).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build create account instruction")
	}
	return ix, nil
}

func createAssociatedTokenAccountInstruction(payer, wallet, mint solana.PublicKey) (solana.Instruction, error) {
	ix, err := associatedtokenaccount.NewCreateInstruction(payer, wallet, mint).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build create associated token account instruction")
	}
	return ix, nil
}

func validatorIndex(records []marinade.ValidatorRecord, vote solana.PublicKey) (uint32, error) {
	for i, r := range records {
		if r.ValidatorAccount.Equals(vote) {
			return uint32(i), nil
		}
	}
	return 0, errors.Errorf("validator %s is not in the validator list", vote)
}

// ticketAccountSpace is the discriminator plus TicketAccountData.
const ticketAccountSpace = 8 + 32 + 32 + 8 + 8

// notDeactivated is the deactivation epoch of an active delegation.
const notDeactivated = math.MaxUint64
