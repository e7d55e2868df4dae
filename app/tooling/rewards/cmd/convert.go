package cmd

import (
	"github.com/ardanlabs/rewards/business/core/claims"
	"github.com/spf13/cobra"
)

var (
	reason   string
	decimals int32
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-csv-path> <output-basename>",
	Short: "Convert an allocation CSV into <output-basename>.json.",
	Args:  cobra.ExactArgs(2),
	RunE:  convertRun,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&reason, "reason", "r", claims.DefaultReason, "Reason recorded on every claim.")
	convertCmd.Flags().Int32VarP(&decimals, "decimals", "d", claims.DefaultDecimals, "Decimals of the reward token.")
}

func convertRun(cmd *cobra.Command, args []string) error {
	cfg := claims.Config{
		Reason:   reason,
		Decimals: decimals,
	}

	sum, err := claims.ConvertFile(args[0], args[1], cfg)
	if err != nil {
		return err
	}

	log.Infow("converted", "rows", sum.Rows, "emitted", sum.Emitted, "skipped", sum.Skipped, "output", sum.Output)

	return nil
}
