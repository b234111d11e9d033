package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marinade-finance/marinade-cli-utils/internal/logger"
	"github.com/marinade-finance/marinade-cli-utils/internal/telemetry"
	"github.com/marinade-finance/marinade-cli-utils/pkg/cliargs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// InterruptExitCode is the conventional exit code after SIGINT.
const InterruptExitCode = 130

const (
	flagOutput    = "output"
	flagJournal   = "journal"
	flagNoJournal = "no-journal"

	outputText = "text"
	outputJSON = "json"
)

var (
	initTelemetry     = telemetry.Init
	shutdownTelemetry telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "marinade-cli",
	Short: "marinade-cli operates the Marinade liquid staking program on Solana",
	Long: `marinade-cli reads and operates a Marinade liquid staking instance.

It can:
  - Show the instance state, its validators and stake accounts
  - Stake and unstake SOL for mSOL as a user
  - Manage validators and pause the program as an authority
  - Explain the logs of a landed transaction`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cliargs.ApplyEnv(cmd.Flags()); err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool(cliargs.VerboseArg.Name)
		logger.Setup(cmd.ErrOrStderr(), verbose)

		output, _ := cmd.Flags().GetString(flagOutput)
		if output != outputText && output != outputJSON {
			return errors.Errorf("unknown output format %q (use %s or %s)", output, outputText, outputJSON)
		}

		shutdown, err := initTelemetry(cmd.Context(), rootCmd.Name(), version)
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
			shutdown = func(context.Context) error { return nil }
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

// Execute runs the command line until completion or interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx)
}

// execute flushes traces whether or not the command failed.
func execute(ctx context.Context) error {
	defer flushTelemetry()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), err.Error())
	}
	return err
}

func flushTelemetry() {
	if shutdownTelemetry == nil {
		return
	}
	shutdown := shutdownTelemetry
	shutdownTelemetry = nil
	if err := shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to flush traces")
	}
}

// IsInterrupted reports whether err stems from a cancelled command context.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func init() {
	fs := rootCmd.PersistentFlags()
	cliargs.AddCommonArgs(fs)
	fs.StringP(flagOutput, "o", outputText, "Output format [text, json]")
	fs.String(flagJournal, "", "Path of the local transaction journal [default: <user config dir>/marinade-cli/journal.db]")
	fs.Bool(flagNoJournal, false, "Do not record executed transactions in the local journal")

	rootCmd.AddCommand(
		showCmd,
		validatorsCmd,
		stakesCmd,
		depositCmd,
		liquidUnstakeCmd,
		orderUnstakeCmd,
		claimCmd,
		addValidatorCmd,
		removeValidatorCmd,
		setValidatorScoreCmd,
		updateCmd,
		pauseCmd,
		resumeCmd,
		debugCmd,
		historyCmd,
		versionCmd,
	)
}
