package model

import "time"

// TradeKind indicates whether a trade opens or closes the spread position.
type TradeKind string

const (
	TradeEntry TradeKind = "ENTRY"
	TradeExit  TradeKind = "EXIT"
)

// Trade is one event of the simulated strategy.
type Trade struct {
	Kind        TradeKind
	Index       int // position in the pair's aligned dates
	Date        time.Time
	PriceA      float64
	PriceB      float64
	SpreadLevel float64
}

// Regime labels a stretch of the series between trades.
type Regime string

const (
	RegimeFlat      Regime = "NO_POSITION"
	RegimeGoingIn   Regime = "GOING_IN"
	RegimeUnwinding Regime = "UNWINDING"
)

// Segment is the half-open index range [Start, End) spent in one regime.
type Segment struct {
	Regime Regime
	Start  int
	End    int
}

// SimulationResult is the output of one backtest of a pair.
type SimulationResult struct {
	PairID           PairID
	UpperBound       float64
	LowerBound       float64
	CumulativeProfit []float64 // one value per aligned date
	Trades           []Trade
	Warnings         []error
}

// TotalProfit returns the realized profit at the end of the series.
func (r *SimulationResult) TotalProfit() float64 {
	if len(r.CumulativeProfit) == 0 {
		return 0
	}
	return r.CumulativeProfit[len(r.CumulativeProfit)-1]
}

// Open reports whether the last trade is an unmatched entry.
func (r *SimulationResult) Open() bool {
	return len(r.Trades) > 0 && r.Trades[len(r.Trades)-1].Kind == TradeEntry
}

// RoundTrips returns the number of completed entry/exit cycles.
func (r *SimulationResult) RoundTrips() int {
	return len(r.Trades) / 2
}

// Segments splits the series into regimes: no position until the first
// trade, then from each trade to the next labelled by the earlier trade's
// kind, and the tail after the last trade labelled by its kind.
func (r *SimulationResult) Segments() []Segment {
	n := len(r.CumulativeProfit)
	if n == 0 {
		return nil
	}
	if len(r.Trades) == 0 {
		return []Segment{{Regime: RegimeFlat, Start: 0, End: n}}
	}
	var segs []Segment
	if first := r.Trades[0].Index; first > 0 {
		segs = append(segs, Segment{Regime: RegimeFlat, Start: 0, End: first})
	}
	for i, t := range r.Trades {
		end := n
		if i+1 < len(r.Trades) {
			end = r.Trades[i+1].Index
		}
		regime := RegimeGoingIn
		if t.Kind == TradeExit {
			regime = RegimeUnwinding
		}
		segs = append(segs, Segment{Regime: regime, Start: t.Index, End: end})
	}
	return segs
}
