// Package snapshot takes the reward allocation of an ambassador's delegators
// from chain history and writes it as the CSV the claims converter reads.
package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/ardanlabs/rewards/business/core/claims"
	"github.com/ardanlabs/rewards/foundation/delegation"
	"github.com/ardanlabs/rewards/foundation/units"
	"github.com/ardanlabs/rewards/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ColumnContribution is the extra column written next to the ones the
// claims converter requires.
const ColumnContribution = "totalContribution"

// Config describes the reward program to take a snapshot of.
type Config struct {
	Token        string `json:"token" validate:"required,eth_addr"`
	Ambassador   string `json:"ambassador" validate:"required,eth_addr"`
	StartBlock   uint64 `json:"startBlock" validate:"gt=0"`
	EndBlock     uint64 `json:"endBlock" validate:"gtfield=StartBlock"`
	TotalRewards string `json:"totalRewards" validate:"required"`
}

// Take reads the delegation events of the program from the backend and
// allocates the reward pool between the delegators.
func Take(ctx context.Context, log *zap.SugaredLogger, backend delegation.Backend, cfg Config) ([]delegation.Allocation, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	total, err := units.Parse(cfg.TotalRewards)
	if err != nil {
		return nil, fmt.Errorf("total rewards: %w", err)
	}

	w := delegation.Window{
		Delegate:     common.HexToAddress(cfg.Ambassador),
		StartBlock:   cfg.StartBlock,
		EndBlock:     cfg.EndBlock,
		TotalRewards: total,
	}

	src := delegation.NewSource(log, backend, common.HexToAddress(cfg.Token))

	events, err := src.Events(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	allocs, err := delegation.Allocate(events, w)
	if err != nil {
		return nil, fmt.Errorf("allocating: %w", err)
	}

	log.Infow("snapshot", "delegators", len(allocs), "allocated", delegation.Total(allocs).String(), "pool", total.String())

	return allocs, nil
}

// WriteCSV writes one row per allocation under the header
// address,allocatedRewards,totalContribution.
func WriteCSV(w io.Writer, allocs []delegation.Allocation) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{claims.ColumnAddress, claims.ColumnRewards, ColumnContribution}); err != nil {
		return err
	}

	for _, a := range allocs {
		row := []string{
			a.Address.Hex(),
			units.Format(a.AllocatedRewards, units.Decimals),
			units.Format(a.TotalContribution, units.Decimals),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the allocations as CSV to the specified path.
func WriteFile(path string, allocs []delegation.Allocation) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, allocs); err != nil {
		return fmt.Errorf("encoding csv: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
