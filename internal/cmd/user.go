package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/cliargs"
	"github.com/marinade-finance/marinade-cli-utils/pkg/marinade"
	"github.com/marinade-finance/marinade-cli-utils/pkg/rpchelpers"
	"github.com/marinade-finance/marinade-cli-utils/pkg/transaction"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	flagAuthority   = "authority"
	flagMsolAccount = "msol-account"
	flagBeneficiary = "beneficiary"
)

func init() {
	for _, c := range []*cobra.Command{depositCmd, liquidUnstakeCmd, orderUnstakeCmd} {
		c.Flags().String(flagAuthority, "", "Signer owning the SOL or mSOL [default: fee payer]")
		c.Flags().String(flagMsolAccount, "", "mSOL token account [default: associated token account of the authority]")
	}
	claimCmd.Flags().String(flagBeneficiary, "", "Account receiving the SOL [default: beneficiary of the ticket]")
}

// msolAccount returns the mSOL token account of owner and, when it is the missing
// associated token account, the instruction creating it.
func (r *runtime) msolAccount(m *marinade.RPCMarinade, owner solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	mint := m.State.MsolMint
	if value, ok := r.matches.ValueOf(flagMsolAccount); ok {
		account, err := solana.PublicKeyFromBase58(value)
		if err != nil {
			return solana.PublicKey{}, nil, errors.Wrapf(err, "invalid --%s", flagMsolAccount)
		}
		exists, err := rpchelpers.DefaultRetry.CheckTokenAccount(r.ctx, r.client, account, mint, &owner)
		if err != nil {
			return solana.PublicKey{}, nil, err
		}
		if !exists {
			return solana.PublicKey{}, nil, errors.Errorf("mSOL account %s does not exist", account)
		}
		return account, nil, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, errors.WithStack(err)
	}
	exists, err := rpchelpers.DefaultRetry.CheckTokenAccount(r.ctx, r.client, ata, mint, &owner)
	if err != nil || exists {
		return ata, nil, err
	}
	feePayer, err := r.FeePayer()
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	ix, err := createAssociatedTokenAccountInstruction(feePayer.PublicKey(), owner, mint)
	return ata, ix, err
}

func prepend(req *transaction.Request, ix solana.Instruction) *transaction.Request {
	if ix != nil {
		req.Instructions = append([]solana.Instruction{ix}, req.Instructions...)
	}
	return req
}

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Stake SOL and receive mSOL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lamports, err := parseSol(args[0])
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
		authority, err := r.signerOrFeePayer(flagAuthority)
		if err != nil {
			return err
		}
		mintTo, createIx, err := r.msolAccount(m, authority.PublicKey())
		if err != nil {
			return err
		}
		req, err := m.Deposit(authority, mintTo, lamports)
		if err != nil {
			return err
		}
		return r.execute(prepend(req, createIx))
	},
}

var liquidUnstakeCmd = &cobra.Command{
	Use:   "liquid-unstake <amount>",
	Short: "Swap mSOL for SOL through the liquidity pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseSol(args[0])
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
		authority, err := r.signerOrFeePayer(flagAuthority)
		if err != nil {
			return err
		}
		from, createIx, err := r.msolAccount(m, authority.PublicKey())
		if err != nil {
			return err
		}
		if createIx != nil {
			return errors.Errorf("%s holds no mSOL account", authority.PublicKey())
		}
		req, err := m.LiquidUnstake(from, authority, authority.PublicKey(), amount)
		if err != nil {
			return err
		}
		return r.execute(req)
	},
}

var orderUnstakeCmd = &cobra.Command{
	Use:   "order-unstake <amount>",
	Short: "Burn mSOL for a ticket claimable once the stake is deactivated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseSol(args[0])
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
		authority, err := r.signerOrFeePayer(flagAuthority)
		if err != nil {
			return err
		}
		from, createIx, err := r.msolAccount(m, authority.PublicKey())
		if err != nil {
			return err
		}
		if createIx != nil {
			return errors.Errorf("%s holds no mSOL account", authority.PublicKey())
		}
		ticket, createTicket, err := r.rentExemptAccount(m.ProgramID, ticketAccountSpace)
		if err != nil {
			return err
		}
		req, err := m.OrderUnstake(from, authority, amount, ticket.PublicKey())
		if err != nil {
			return err
		}
		if err := r.execute(prepend(req, createTicket).Signer(ticket)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ticket account: %s\n", ticket.PublicKey())
		return nil
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <ticket>",
	Short: "Claim the SOL of a delayed unstake ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliargs.IsValidPubkey(args[0]); err != nil {
			return err
		}
		ticketAddress := solana.MustPublicKeyFromBase58(args[0])
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		m, err := r.Marinade()
		if err != nil {
			return err
		}
		data, err := rpchelpers.AccountDataRetrying(r.ctx, r.client, ticketAddress)
		if err != nil {
			return err
		}
		ticket, err := marinade.DecodeTicket(data)
		if err != nil {
			return err
		}
		if !ticket.StateAddress.Equals(m.StateAddress) {
			return errors.Errorf("ticket %s belongs to instance %s", ticketAddress, ticket.StateAddress)
		}
		beneficiary := ticket.Beneficiary
		if value, ok := r.matches.ValueOf(flagBeneficiary); ok {
			if beneficiary, err = solana.PublicKeyFromBase58(value); err != nil {
				return errors.Wrapf(err, "invalid --%s", flagBeneficiary)
			}
		}
		req, err := m.Claim(ticketAddress, beneficiary)
		if err != nil {
			return err
		}
		return r.execute(req)
	},
}
