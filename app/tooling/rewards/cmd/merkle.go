package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ardanlabs/rewards/business/core/claims"
	"github.com/ardanlabs/rewards/business/core/distributor"
	"github.com/spf13/cobra"
)

var distPath string

var merkleCmd = &cobra.Command{
	Use:   "merkle <claims-json-path>",
	Short: "Build the merkle distribution of a claims file.",
	Args:  cobra.ExactArgs(1),
	RunE:  merkleRun,
}

func init() {
	rootCmd.AddCommand(merkleCmd)
	merkleCmd.Flags().StringVarP(&distPath, "out", "o", "distribution.json", "Path of the distribution to write.")
}

func merkleRun(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening claims: %w", err)
	}
	defer f.Close()

	records, err := claims.ReadRecords(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	d, err := distributor.Build(records)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := distributor.Write(&buf, d); err != nil {
		return fmt.Errorf("encoding distribution: %w", err)
	}

	if err := os.WriteFile(distPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", distPath, err)
	}

	log.Infow("distribution written", "root", d.MerkleRoot.Hex(), "claims", len(d.Claims), "skipped", d.Skipped, "total", d.TokenTotal.ToInt().String(), "output", distPath)

	return nil
}
