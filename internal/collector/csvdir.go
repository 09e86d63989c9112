package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"PairSentinel/internal/model"
	"PairSentinel/internal/tabular"
)

// CSVDirFetcher reads <Dir>/<SYMBOL>.csv files with a Date,Open,High,Low,Close,Volume
// header. A missing file yields no bars.
type CSVDirFetcher struct {
	Dir string
}

func (f *CSVDirFetcher) Name() string { return "csv" }

func (f *CSVDirFetcher) path(symbol string) string {
	return filepath.Join(f.Dir, symbol+".csv")
}

func (f *CSVDirFetcher) FetchDailyHistory(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []*tabular.BarRow
	if err := tabular.ReadFile(f.path(symbol), &rows); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	bars, err := tabular.Bars(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return bars, nil
}

// Store writes bars to the symbol's file, replacing it.
func (f *CSVDirFetcher) Store(symbol string, bars []model.OHLCV) error {
	return tabular.WriteFile(f.path(symbol), tabular.BarRows(bars))
}
