package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/bootstrap"
)

type rootOptions struct {
	logPath  string
	logLevel string
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Tools for the circuit classification pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := bootstrap.NewLogger(opts.logLevel, "development", opts.logPath)
			if err != nil {
				return err
			}
			opts.log = log.With(zap.String("action", cmd.Name()))
			opts.log.Info("will perform action")
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.logPath, "log", "stdout", "path to the log file (stdout, stderr or a file)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "logging verbosity level")

	root.AddCommand(
		newUsageCmd(opts),
		newTrainCmd(opts),
		newComposeCmd(opts),
		newClassifyCmd(opts),
		newFeaturesCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
