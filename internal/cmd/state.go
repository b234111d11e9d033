package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/marinade-finance/marinade-cli-utils/pkg/marinade"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the state of the Marinade instance",
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
		if r.jsonOutput() {
			return r.writeJSON(m.State)
		}
		printState(cmd.OutOrStdout(), m)
		return nil
	},
}

func printState(w io.Writer, m *marinade.RPCMarinade) {
	s := m.State
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "Marinade instance %s (program %s)\n", m.StateAddress, m.ProgramID)
	fmt.Fprintf(w, "  admin authority:        %s\n", s.AdminAuthority)
	fmt.Fprintf(w, "  validator manager:      %s\n", s.ValidatorSystem.ManagerAuthority)
	fmt.Fprintf(w, "  pause authority:        %s\n", s.PauseAuthority)
	if s.Paused {
		color.New(color.FgRed).Fprintln(w, "  PAUSED")
	}
	fmt.Fprintf(w, "  mSOL mint:              %s\n", s.MsolMint)
	fmt.Fprintf(w, "  mSOL supply:            %s\n", formatSol(s.MsolSupply))
	fmt.Fprintf(w, "  mSOL price:             %.9f SOL\n", s.MsolPriceFloat())
	fmt.Fprintf(w, "  reserve:                %s (%s SOL available)\n", m.Reserve(), formatSol(s.AvailableReserveBalance))
	fmt.Fprintf(w, "  total active balance:   %s SOL\n", formatSol(s.ValidatorSystem.TotalActiveBalance))
	fmt.Fprintf(w, "  total cooling down:     %s SOL\n", formatSol(s.TotalCoolingDown()))
	fmt.Fprintf(w, "  under control:          %s SOL\n", formatSol(s.TotalLamportsUnderControl()))
	fmt.Fprintf(w, "  reward fee:             %s\n", s.RewardFee)
	fmt.Fprintf(w, "  delayed unstake fee:    %s\n", s.DelayedUnstakeFee)
	fmt.Fprintf(w, "  withdraw stake fee:     %s (enabled: %t)\n", s.WithdrawStakeAccountFee, s.WithdrawStakeAccountEnabled)
	fmt.Fprintf(w, "  min stake:              %s SOL\n", formatSol(s.StakeSystem.MinStake))
	fmt.Fprintf(w, "  validators:             %d\n", s.ValidatorSystem.ValidatorList.Count)
	fmt.Fprintf(w, "  stake accounts:         %d\n", s.StakeSystem.StakeList.Count)
	header.Fprintln(w, "Liquidity pool")
	fmt.Fprintf(w, "  lp mint:                %s\n", s.LiqPool.LpMint)
	fmt.Fprintf(w, "  sol leg:                %s\n", m.LiqPoolSolLeg())
	fmt.Fprintf(w, "  mSOL leg:               %s\n", s.LiqPool.MsolLeg)
	fmt.Fprintf(w, "  liquidity target:       %s SOL\n", formatSol(s.LiqPool.LpLiquidityTarget))
	fmt.Fprintf(w, "  fee range:              %s - %s (treasury cut %s)\n", s.LiqPool.LpMinFee, s.LiqPool.LpMaxFee, s.LiqPool.TreasuryCut)
}

var validatorsCmd = &cobra.Command{
	Use:   "validators",
	Short: "List the validators of the instance",
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
		validators, capacity, err := m.ValidatorList(r.ctx)
		if err != nil {
			return err
		}
		if r.jsonOutput() {
			return r.writeJSON(map[string]interface{}{"capacity": capacity, "validators": validators})
		}
		w := cmd.OutOrStdout()
		color.New(color.FgCyan).Fprintf(w, "%d validators (capacity %d)\n", len(validators), capacity)
		for i, v := range validators {
			fmt.Fprintf(w, "%4d %s score %d active %s SOL\n", i, v.ValidatorAccount, v.Score, formatSol(v.ActiveBalance))
		}
		return nil
	},
}

var stakesCmd = &cobra.Command{
	Use:   "stakes",
	Short: "List the stake accounts of the instance",
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
		stakes, capacity, err := m.StakesInfo(r.ctx)
		if err != nil {
			return err
		}
		if r.jsonOutput() {
			return r.writeJSON(map[string]interface{}{"capacity": capacity, "stakes": stakes})
		}
		w := cmd.OutOrStdout()
		color.New(color.FgCyan).Fprintf(w, "%d stake accounts (capacity %d)\n", len(stakes), capacity)
		for _, s := range stakes {
			line := fmt.Sprintf("%4d %s %s balance %s SOL", s.Index, s.Record.StakeAccount, s.Stake.Kind, formatSol(s.Balance))
			if s.Stake.Stake != nil {
				line += fmt.Sprintf(" delegated %s SOL to %s", formatSol(s.Stake.DelegatedLamports()), s.Stake.Stake.Delegation.VoterPubkey)
			}
			if s.Record.IsEmergencyUnstaking != 0 {
				color.New(color.FgRed).Fprintln(w, line+" (emergency unstaking)")
				continue
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}
