package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"PairSentinel/internal/model"
)

// Write marshals a slice of row pointers with a header line.
func Write(w io.Writer, rows interface{}) error {
	return gocsv.Marshal(rows, w)
}

// Read unmarshals CSV with a header line into a pointer to a slice of row
// pointers. An empty input yields no rows.
func Read(r io.Reader, out interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return gocsv.Unmarshal(bytes.NewReader(data), out)
}

// WriteFile writes rows to path, creating parent directories.
func WriteFile(path string, rows interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads rows from path.
func ReadFile(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Read(f, out); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Simulation couples a result with the pair it was run on.
type Simulation struct {
	Pair   *model.CointegratedPair
	Result *model.SimulationResult
}

// Export file names inside the export directory.
const (
	PairsFile  = "pairs.csv"
	PricesFile = "pair_prices.csv"
	TradesFile = "trades.csv"
	ProfitFile = "profits.csv"
)

// Export writes the full-precision pair records and the long-format aligned
// prices of every pair to dir, plus trades and profits when sims is non-empty.
func Export(dir string, pairs []*model.CointegratedPair, sims []Simulation) error {
	if err := WriteFile(filepath.Join(dir, PairsFile), PairRecords(pairs)); err != nil {
		return err
	}
	var prices []*PriceRow
	for _, p := range pairs {
		prices = append(prices, PriceRows(p)...)
	}
	if err := WriteFile(filepath.Join(dir, PricesFile), prices); err != nil {
		return err
	}
	if len(sims) == 0 {
		return nil
	}

	var (
		trades  []*TradeRow
		profits []*ProfitRow
	)
	for _, s := range sims {
		trades = append(trades, TradeRows(s.Result)...)
		profits = append(profits, ProfitRows(s.Pair, s.Result)...)
	}
	if err := WriteFile(filepath.Join(dir, TradesFile), trades); err != nil {
		return err
	}
	return WriteFile(filepath.Join(dir, ProfitFile), profits)
}

// Import reads the tables written by Export. Simulations are rebuilt for
// every pair that has profit rows; a missing trades file means no
// simulations were exported.
func Import(dir string) ([]*model.CointegratedPair, []Simulation, error) {
	var (
		records []*PairRecord
		prices  []*PriceRow
	)
	if err := ReadFile(filepath.Join(dir, PairsFile), &records); err != nil {
		return nil, nil, err
	}
	if err := ReadFile(filepath.Join(dir, PricesFile), &prices); err != nil {
		return nil, nil, err
	}
	pairs, err := Pairs(records, prices)
	if err != nil {
		return nil, nil, err
	}

	var (
		trades  []*TradeRow
		profits []*ProfitRow
	)
	if err := ReadFile(filepath.Join(dir, TradesFile), &trades); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pairs, nil, nil
		}
		return nil, nil, err
	}
	if err := ReadFile(filepath.Join(dir, ProfitFile), &profits); err != nil {
		return nil, nil, err
	}
	simulated := make(map[string]bool)
	for _, r := range profits {
		simulated[r.PairID] = true
	}

	var sims []Simulation
	for _, p := range pairs {
		if !simulated[p.ID.String()] {
			continue
		}
		res, err := SimulationResultFrom(p, trades, profits)
		if err != nil {
			return nil, nil, fmt.Errorf("pair %s: %w", p.ID, err)
		}
		sims = append(sims, Simulation{Pair: p, Result: res})
	}
	return pairs, sims, nil
}
