package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/rewards/business/core/distributor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var proofCmd = &cobra.Command{
	Use:   "proof <distribution-json-path> <address>",
	Short: "Print and verify the claim of an address.",
	Args:  cobra.ExactArgs(2),
	RunE:  proofRun,
}

func init() {
	rootCmd.AddCommand(proofCmd)
}

func proofRun(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[1]) {
		return fmt.Errorf("%w: %q", distributor.ErrInvalidAddress, args[1])
	}
	account := common.HexToAddress(args[1])

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening distribution: %w", err)
	}
	defer f.Close()

	d, err := distributor.Read(f)
	if err != nil {
		return err
	}

	c, err := d.Claim(account)
	if err != nil {
		return err
	}

	ok, err := distributor.Verify(d.MerkleRoot, account, c)
	if err != nil {
		return fmt.Errorf("verifying proof: %w", err)
	}
	if !ok {
		return fmt.Errorf("proof for %s does not match root %s", account.Hex(), d.MerkleRoot.Hex())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(c)
}
