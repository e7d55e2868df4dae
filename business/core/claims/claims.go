// Package claims converts a CSV of reward allocations into the JSON claim
// list consumed by the merkle distribution step.
package claims

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ardanlabs/rewards/foundation/units"
	"github.com/ardanlabs/rewards/foundation/validate"
)

// Required column names of the allocation CSV.
const (
	ColumnAddress = "address"
	ColumnRewards = "allocatedRewards"
)

// Defaults applied when a Config is not provided.
const (
	DefaultReason   = "Ambassador Delegation"
	DefaultDecimals = units.Decimals
)

// Config controls how allocations are turned into records.
type Config struct {
	Reason   string `json:"reason" validate:"required"`
	Decimals int32  `json:"decimals" validate:"gte=0,lte=77"`
}

// DefaultConfig returns the configuration for 18-decimal tokens labelled
// as ambassador delegation rewards.
func DefaultConfig() Config {
	return Config{
		Reason:   DefaultReason,
		Decimals: DefaultDecimals,
	}
}

// Row is one CSV record keyed by column name.
type Row map[string]string

// Record is a single claim as written to the output JSON.
type Record struct {
	Address  string `json:"address" validate:"required"`
	Earnings string `json:"earnings" validate:"required,numeric"`
	Reasons  string `json:"reasons"`
}

// Summary describes the outcome of converting a file.
type Summary struct {
	Rows    int
	Emitted int
	Skipped int
	Output  string
}

// =============================================================================

// ReadRows parses CSV data with a header row. Every required column must
// be present in the header.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header row", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	// Spreadsheet exports often start with a byte order mark.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	for _, col := range []string{ColumnAddress, ColumnRewards} {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	rows := []Row{}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Convert turns rows into records. Rows whose allocated rewards are zero or
// negative are skipped. Input order is preserved.
func Convert(rows []Row, cfg Config) ([]Record, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	records := []Record{}
	for i, row := range rows {
		amount, err := units.Parse(row[ColumnRewards])
		if err != nil {
			return nil, &RowError{Line: i + 2, Column: ColumnRewards, Err: err}
		}

		if !amount.IsPositive() {
			continue
		}

		records = append(records, Record{
			Address:  row[ColumnAddress],
			Earnings: units.ToBase(amount, cfg.Decimals).String(),
			Reasons:  cfg.Reason,
		})
	}

	return records, nil
}

// WriteJSON writes the records as a single JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return enc.Encode(records)
}

// ReadRecords decodes a JSON array of records and validates each one.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	for i, rec := range records {
		if err := validate.Check(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return records, nil
}

// ConvertFile reads the allocation CSV at inputPath and writes the claim
// records to outputBase with a .json extension. The output file is only
// created once every row has been converted.
func ConvertFile(inputPath string, outputBase string, cfg Config) (Summary, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	records, err := Convert(rows, cfg)
	if err != nil {
		return Summary{}, fmt.Errorf("converting %s: %w", inputPath, err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, records); err != nil {
		return Summary{}, fmt.Errorf("encoding records: %w", err)
	}

	output := OutputPath(outputBase)
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return Summary{}, fmt.Errorf("writing output: %w", err)
	}

	sum := Summary{
		Rows:    len(rows),
		Emitted: len(records),
		Skipped: len(rows) - len(records),
		Output:  output,
	}

	return sum, nil
}

// OutputPath appends the .json extension to the output base name.
func OutputPath(outputBase string) string {
	return outputBase + ".json"
}
