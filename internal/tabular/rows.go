// Package tabular maps bars, pairs and simulation results to CSV rows.
package tabular

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PairSentinel/internal/model"
)

// DateLayout is the calendar-day format used in every table.
const DateLayout = "2006-01-02"

// BarRow is one daily bar.
type BarRow struct {
	Date   string  `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume float64 `csv:"Volume"`
}

// TickerRow is one line of a ticker list file.
type TickerRow struct {
	Ticker string `csv:"Ticker"`
}

// PairRow is one accepted pair, rounded for display.
type PairRow struct {
	PairID     string  `csv:"pair_id"`
	TickerA    string  `csv:"ticker_a"`
	TickerB    string  `csv:"ticker_b"`
	HedgeRatio float64 `csv:"hedge_ratio"`
	Intercept  float64 `csv:"intercept"`
	PValue     float64 `csv:"p_value"`
}

// PairRecord is one accepted pair at full precision. Unlike PairRow it
// rebuilds the same PairID.
type PairRecord struct {
	PairID     string  `csv:"pair_id"`
	TickerA    string  `csv:"ticker_a"`
	TickerB    string  `csv:"ticker_b"`
	HedgeRatio float64 `csv:"hedge_ratio"`
	Intercept  float64 `csv:"intercept"`
	PValue     float64 `csv:"p_value"`
}

// PriceRow is one aligned price of one leg in long format. LogPrice carries
// the exact input; Price is its exponential.
type PriceRow struct {
	PairID   string  `csv:"pair_id"`
	Date     string  `csv:"date"`
	Ticker   string  `csv:"ticker"`
	Price    float64 `csv:"price"`
	LogPrice float64 `csv:"log_price"`
}

// TradeRow is one simulated entry or exit.
type TradeRow struct {
	PairID string  `csv:"pair_id"`
	Kind   string  `csv:"kind"`
	Date   string  `csv:"date"`
	PriceA float64 `csv:"price_a"`
	PriceB float64 `csv:"price_b"`
	Spread float64 `csv:"spread"`
}

// ProfitRow is the realized cumulative profit on one date.
type ProfitRow struct {
	PairID string  `csv:"pair_id"`
	Date   string  `csv:"date"`
	Profit float64 `csv:"cumulative_profit"`
}

// Round5 rounds half away from zero to five decimal places.
func Round5(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(5).Float64()
	return f
}

// BarRows converts bars to rows.
func BarRows(bars []model.OHLCV) []*BarRow {
	rows := make([]*BarRow, len(bars))
	for i, b := range bars {
		rows[i] = &BarRow{
			Date: b.Time.UTC().Format(DateLayout), Open: b.Open, High: b.High,
			Low: b.Low, Close: b.Close, Volume: b.Volume,
		}
	}
	return rows
}

// Bars converts rows back to bars.
func Bars(rows []*BarRow) ([]model.OHLCV, error) {
	bars := make([]model.OHLCV, 0, len(rows))
	for i, r := range rows {
		t, err := time.Parse(DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bars = append(bars, model.OHLCV{Time: t, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume})
	}
	return bars, nil
}

// PairRows renders the pair table with coefficients rounded to five places.
func PairRows(pairs []*model.CointegratedPair) []*PairRow {
	rows := make([]*PairRow, len(pairs))
	for i, p := range pairs {
		rows[i] = &PairRow{
			PairID:     p.ID.String(),
			TickerA:    p.TickerA,
			TickerB:    p.TickerB,
			HedgeRatio: Round5(p.HedgeRatio),
			Intercept:  Round5(p.Intercept),
			PValue:     Round5(p.PValue),
		}
	}
	return rows
}

// PairRecords converts pairs without rounding.
func PairRecords(pairs []*model.CointegratedPair) []*PairRecord {
	rows := make([]*PairRecord, len(pairs))
	for i, p := range pairs {
		rows[i] = &PairRecord{
			PairID: p.ID.String(), TickerA: p.TickerA, TickerB: p.TickerB,
			HedgeRatio: p.HedgeRatio, Intercept: p.Intercept, PValue: p.PValue,
		}
	}
	return rows
}

// PriceRows emits both legs of pair for every aligned date.
func PriceRows(pair *model.CointegratedPair) []*PriceRow {
	id := pair.ID.String()
	rows := make([]*PriceRow, 0, 2*pair.Len())
	for i := 0; i < pair.Len(); i++ {
		d := pair.Dates.At(i).Format(DateLayout)
		rows = append(rows,
			&PriceRow{PairID: id, Date: d, Ticker: pair.TickerA, Price: pair.PriceA(i), LogPrice: pair.LogPriceA[i]},
			&PriceRow{PairID: id, Date: d, Ticker: pair.TickerB, Price: pair.PriceB(i), LogPrice: pair.LogPriceB[i]},
		)
	}
	return rows
}

// Pairs rebuilds pairs from records and their long-format prices. The ID
// derived from tickers and hedge ratio must match the recorded one.
func Pairs(records []*PairRecord, prices []*PriceRow) ([]*model.CointegratedPair, error) {
	byPair := make(map[string][]*PriceRow, len(records))
	for _, r := range prices {
		byPair[r.PairID] = append(byPair[r.PairID], r)
	}

	pairs := make([]*model.CointegratedPair, 0, len(records))
	for i, rec := range records {
		id, err := model.ParsePairID(rec.PairID)
		if err != nil {
			return nil, fmt.Errorf("pair row %d: %w", i+1, err)
		}
		var (
			dates      []time.Time
			logA, logB []float64
		)
		for _, r := range byPair[rec.PairID] {
			d, err := time.Parse(DateLayout, r.Date)
			if err != nil {
				return nil, fmt.Errorf("pair %s: %w", rec.PairID, err)
			}
			switch r.Ticker {
			case rec.TickerA:
				dates = append(dates, d)
				logA = append(logA, r.LogPrice)
			case rec.TickerB:
				if len(dates) == 0 || !dates[len(dates)-1].Equal(d) {
					return nil, fmt.Errorf("pair %s: %s price on %s without a %s price", rec.PairID, rec.TickerB, r.Date, rec.TickerA)
				}
				logB = append(logB, r.LogPrice)
			default:
				return nil, fmt.Errorf("pair %s: unexpected ticker %q", rec.PairID, r.Ticker)
			}
		}
		if len(logA) != len(logB) {
			return nil, fmt.Errorf("pair %s: %d %s prices vs %d %s prices", rec.PairID, len(logA), rec.TickerA, len(logB), rec.TickerB)
		}

		p := model.NewCointegratedPair(rec.TickerA, rec.TickerB, rec.HedgeRatio, rec.Intercept, rec.PValue, dates, logA, logB)
		if p.ID != id {
			return nil, fmt.Errorf("pair %s: recorded id does not match %s/%s hedge ratio %v", rec.PairID, rec.TickerA, rec.TickerB, rec.HedgeRatio)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// TradeRows converts the trades of res.
func TradeRows(res *model.SimulationResult) []*TradeRow {
	id := res.PairID.String()
	rows := make([]*TradeRow, len(res.Trades))
	for i, t := range res.Trades {
		rows[i] = &TradeRow{
			PairID: id, Kind: string(t.Kind), Date: t.Date.Format(DateLayout),
			PriceA: t.PriceA, PriceB: t.PriceB, Spread: t.SpreadLevel,
		}
	}
	return rows
}

// SimulationResultFrom rebuilds the result of a simulation on pair from its
// trade and profit rows. Rows of other pairs are ignored, and every date must
// be one of the pair's aligned dates. Bounds are not part of the tables.
func SimulationResultFrom(pair *model.CointegratedPair, trades []*TradeRow, profits []*ProfitRow) (*model.SimulationResult, error) {
	id := pair.ID.String()
	res := &model.SimulationResult{PairID: pair.ID}
	for _, r := range trades {
		if r.PairID != id {
			continue
		}
		idx, err := lookupDate(pair, r.Date)
		if err != nil {
			return nil, fmt.Errorf("trade: %w", err)
		}
		kind := model.TradeKind(r.Kind)
		if kind != model.TradeEntry && kind != model.TradeExit {
			return nil, fmt.Errorf("trade on %s: unknown kind %q", r.Date, r.Kind)
		}
		res.Trades = append(res.Trades, model.Trade{
			Kind: kind, Index: idx, Date: pair.Dates.At(idx),
			PriceA: r.PriceA, PriceB: r.PriceB, SpreadLevel: r.Spread,
		})
	}

	res.CumulativeProfit = make([]float64, 0, pair.Len())
	for _, r := range profits {
		if r.PairID != id {
			continue
		}
		idx, err := lookupDate(pair, r.Date)
		if err != nil {
			return nil, fmt.Errorf("profit: %w", err)
		}
		if idx != len(res.CumulativeProfit) {
			return nil, fmt.Errorf("profit on %s out of order", r.Date)
		}
		res.CumulativeProfit = append(res.CumulativeProfit, r.Profit)
	}
	return res, nil
}

func lookupDate(pair *model.CointegratedPair, s string) (int, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, err
	}
	idx, ok := pair.Dates.Lookup(d)
	if !ok {
		return 0, fmt.Errorf("date %s is not an aligned date of pair %s", s, pair.ID)
	}
	return idx, nil
}

// ProfitRows pairs the cumulative profit series with the pair's dates.
func ProfitRows(pair *model.CointegratedPair, res *model.SimulationResult) []*ProfitRow {
	id := res.PairID.String()
	n := len(res.CumulativeProfit)
	if pair.Dates.Len() < n {
		n = pair.Dates.Len()
	}
	rows := make([]*ProfitRow, n)
	for i := 0; i < n; i++ {
		rows[i] = &ProfitRow{PairID: id, Date: pair.Dates.At(i).Format(DateLayout), Profit: res.CumulativeProfit[i]}
	}
	return rows
}
