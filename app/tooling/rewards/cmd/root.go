// Package cmd contains the rewards app.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ardanlabs/rewards/foundation/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string
	log     *zap.SugaredLogger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "Path to an env file with settings such as REWARDS_RPC_URL.")
}

var rootCmd = &cobra.Command{
	Use:               "rewards",
	Short:             "Snapshot delegation rewards and build their distribution",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()

	if log != nil {
		if err != nil {
			log.Errorw("rewards", "ERROR", err)
		}
		log.Sync()
	}

	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	l, err := logger.New("REWARDS")
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	log = l.With("run", uuid.NewString(), "command", cmd.Name())

	return nil
}
