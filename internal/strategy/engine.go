// Package strategy replays a threshold mean-reversion rule over a pair's spread.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"PairSentinel/internal/metrics"
	"PairSentinel/internal/model"
	"PairSentinel/internal/trace"
)

// SpreadMode selects the spread measure compared against the bounds.
type SpreadMode string

const (
	// SpreadDollar triggers on exp(a) - β·exp(b).
	SpreadDollar SpreadMode = "dollar"
	// SpreadLog triggers on a - β·b. Trades and profits stay in dollars.
	SpreadLog SpreadMode = "log"
)

// ErrNilPair is returned when Simulate is called without a pair.
var ErrNilPair = errors.New("nil pair")

// BoundsWarning flags a lower bound that is not below the upper bound. The
// simulation still runs but will typically enter once and never exit.
type BoundsWarning struct {
	Lower float64
	Upper float64
}

func (w *BoundsWarning) Error() string {
	return fmt.Sprintf("lower bound %.5f is not below upper bound %.5f", w.Lower, w.Upper)
}

// Simulate runs the rule over pair with the dollar spread trigger.
func Simulate(pair *model.CointegratedPair, upper, lower float64) (*model.SimulationResult, error) {
	return SimulateWithMode(context.Background(), pair, upper, lower, SpreadDollar)
}

// SimulateWithMode walks the pair's dates once. While flat, a spread below
// lower opens a position; while open, a spread above upper closes it and
// realizes exit spread minus entry spread. Positions still open at the end
// stay open and their unrealized P&L is excluded.
func SimulateWithMode(ctx context.Context, pair *model.CointegratedPair, upper, lower float64, mode SpreadMode) (*model.SimulationResult, error) {
	if pair == nil {
		return nil, ErrNilPair
	}
	if len(pair.LogPriceA) != len(pair.LogPriceB) || pair.Dates.Len() != len(pair.LogPriceA) {
		return nil, fmt.Errorf("pair %s: misaligned data (dates=%d a=%d b=%d)",
			pair.ID, pair.Dates.Len(), len(pair.LogPriceA), len(pair.LogPriceB))
	}
	_, span := trace.StartSpan(ctx, "strategy.simulate",
		attribute.String("pair.id", pair.ID.String()),
		attribute.String("simulation.mode", string(mode)),
	)
	defer span.End()

	res := &model.SimulationResult{
		PairID:           pair.ID,
		UpperBound:       upper,
		LowerBound:       lower,
		CumulativeProfit: make([]float64, 0, pair.Len()),
	}
	if !(lower < upper) {
		res.Warnings = append(res.Warnings, &BoundsWarning{Lower: lower, Upper: upper})
		metrics.SimulationsTotal.WithLabelValues("invalid_bounds").Inc()
	}

	dollars := pair.DollarSpread()
	signals := dollars
	if mode == SpreadLog {
		signals = pair.LogSpread()
	}
	open := false
	entrySpread := 0.0
	profit := 0.0
	for t, signal := range signals {
		priceA, priceB := pair.PriceA(t), pair.PriceB(t)
		dollar := dollars[t]

		switch {
		case !open && signal < lower:
			open = true
			entrySpread = dollar
			res.Trades = append(res.Trades, model.Trade{
				Kind: model.TradeEntry, Index: t, Date: pair.Dates.At(t),
				PriceA: priceA, PriceB: priceB, SpreadLevel: dollar,
			})
		case open && signal > upper:
			open = false
			profit += dollar - entrySpread
			res.Trades = append(res.Trades, model.Trade{
				Kind: model.TradeExit, Index: t, Date: pair.Dates.At(t),
				PriceA: priceA, PriceB: priceB, SpreadLevel: dollar,
			})
		}
		res.CumulativeProfit = append(res.CumulativeProfit, profit)
	}

	metrics.SimulationsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int("simulation.trades", len(res.Trades)),
		attribute.Float64("simulation.profit", res.TotalProfit()),
	)
	return res, nil
}

// ParseSpreadMode validates a configured spread mode; empty selects dollars.
func ParseSpreadMode(s string) (SpreadMode, error) {
	switch SpreadMode(s) {
	case "", SpreadDollar:
		return SpreadDollar, nil
	case SpreadLog:
		return SpreadLog, nil
	}
	return "", fmt.Errorf("unknown spread mode %q", s)
}

// Stats summarizes the realized round trips of a result.
type Stats struct {
	RoundTrips  int
	Wins        int
	TotalProfit float64
	MeanProfit  float64
	BestTrade   float64
	WorstTrade  float64
	OpenAtEnd   bool
}

// Summarize computes per-round-trip statistics.
func Summarize(res *model.SimulationResult) Stats {
	s := Stats{OpenAtEnd: res.Open(), TotalProfit: res.TotalProfit()}
	s.BestTrade = math.Inf(-1)
	s.WorstTrade = math.Inf(1)
	for i := 0; i+1 < len(res.Trades); i += 2 {
		gain := res.Trades[i+1].SpreadLevel - res.Trades[i].SpreadLevel
		s.RoundTrips++
		if gain > 0 {
			s.Wins++
		}
		s.BestTrade = math.Max(s.BestTrade, gain)
		s.WorstTrade = math.Min(s.WorstTrade, gain)
	}
	if s.RoundTrips == 0 {
		s.BestTrade, s.WorstTrade = 0, 0
		return s
	}
	s.MeanProfit = s.TotalProfit / float64(s.RoundTrips)
	return s
}
