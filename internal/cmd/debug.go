package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/marinade-finance/marinade-cli-utils/internal/journal"
	"github.com/marinade-finance/marinade-cli-utils/internal/simulator"
	"github.com/spf13/cobra"
)

var debugVerbose bool

var debugCmd = &cobra.Command{
	Use:   "debug <transaction-signature>",
	Short: "Explain a landed transaction",
	Long: `Fetch a landed transaction and group its logs by program invocation.

Example:
  marinade-cli debug 5h6x...Qe --url mainnet-beta
  marinade-cli debug 5h6x...Qe --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().BoolVar(&debugVerbose, "raw-logs", false, "Print the raw log lines as well")
}

func runDebug(cmd *cobra.Command, args []string) error {
	r, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer r.close()

	w := cmd.OutOrStdout()
	if !r.jsonOutput() {
		color.New(color.FgCyan).Fprintf(w, "Fetching transaction %s from %s\n", args[0], r.client.URL)
	}
	tx, err := r.client.GetTransaction(r.ctx, args[0])
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ Failed to fetch transaction: %v\n", err)
		return err
	}

	resp := simulator.NewResponse(simulator.SimulationRequest{Signature: tx.Signature}, tx.Err, tx.Logs)
	resp.Slot = tx.Slot
	resp.Fee = tx.Fee
	if r.jsonOutput() {
		return resp.WriteJSON(w)
	}
	resp.WriteText(w)
	if debugVerbose {
		color.New(color.FgCyan).Fprintln(w, "Logs:")
		for _, l := range tx.Logs {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
	return nil
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List transactions recorded in the local journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString(flagJournal)
		if path == "" {
			var err error
			if path, err = journal.DefaultPath(); err != nil {
				return err
			}
		}
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()
		entries, err := j.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString(flagOutput)
		if output == outputJSON {
			return (&runtime{cmd: cmd}).writeJSON(entries)
		}
		w := cmd.OutOrStdout()
		for _, e := range entries {
			mode := "sent"
			if e.Simulated {
				mode = "simulated"
			}
			line := fmt.Sprintf("%s %-20s %-9s %d ix %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Command, mode, e.Instructions, e.Signature)
			if e.Error != "" {
				color.New(color.FgRed).Fprintf(w, "%s error: %s\n", line, e.Error)
				continue
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
}
