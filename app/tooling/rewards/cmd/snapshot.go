package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/rewards/business/core/snapshot"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
)

// rpcURLEnv names the variable that provides the node url when the flag
// isn't set.
const rpcURLEnv = "REWARDS_RPC_URL"

var (
	rpcURL   string
	snapCfg  snapshot.Config
	snapPath string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Allocate the reward pool between the delegators of an ambassador.",
	RunE:  snapshotRun,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&rpcURL, "rpc-url", "u", "", "Url of the Ethereum node, defaults to $"+rpcURLEnv+".")
	snapshotCmd.Flags().StringVarP(&snapCfg.Token, "token", "t", "", "Address of the governance token.")
	snapshotCmd.Flags().StringVarP(&snapCfg.Ambassador, "ambassador", "a", "", "Address of the ambassador delegated to.")
	snapshotCmd.Flags().Uint64Var(&snapCfg.StartBlock, "start-block", 0, "First block of the reward program.")
	snapshotCmd.Flags().Uint64Var(&snapCfg.EndBlock, "end-block", 0, "Last block of the reward program.")
	snapshotCmd.Flags().StringVar(&snapCfg.TotalRewards, "total-rewards", "", "Tokens paid out over the program.")
	snapshotCmd.Flags().StringVarP(&snapPath, "out", "o", "delegates.csv", "Path of the CSV to write.")
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	if rpcURL == "" {
		rpcURL = os.Getenv(rpcURLEnv)
	}
	if rpcURL == "" {
		return errors.New("node url required, set --rpc-url or " + rpcURLEnv)
	}

	client, err := ethclient.DialContext(cmd.Context(), rpcURL)
	if err != nil {
		return fmt.Errorf("dialing node: %w", err)
	}
	defer client.Close()

	allocs, err := snapshot.Take(cmd.Context(), log, client, snapCfg)
	if err != nil {
		return err
	}

	if err := snapshot.WriteFile(snapPath, allocs); err != nil {
		return err
	}

	log.Infow("snapshot written", "delegators", len(allocs), "output", snapPath)

	return nil
}
