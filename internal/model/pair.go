package model

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// pairNamespace seeds the name-based UUIDs used as pair identifiers.
var pairNamespace = uuid.MustParse("6f1c2a52-3f0e-4b8e-9d8a-7f3c0b5e21d4")

// PairID identifies a cointegrated pair independently of its position in a
// result set.
type PairID = uuid.UUID

// NewPairID derives a stable identifier from the dependent ticker, the
// regressor ticker and the hedge ratio.
func NewPairID(tickerA, tickerB string, hedgeRatio float64) PairID {
	name := tickerA + "|" + tickerB + "|" + strconv.FormatFloat(hedgeRatio, 'g', 12, 64)
	return uuid.NewSHA1(pairNamespace, []byte(name))
}

// ParsePairID parses the textual form of a PairID.
func ParsePairID(s string) (PairID, error) {
	return uuid.Parse(s)
}

// CointegratedPair is an accepted discovery candidate. TickerA is the
// dependent series of the regression LogPriceA ≈ Intercept + HedgeRatio·LogPriceB.
type CointegratedPair struct {
	ID         PairID
	TickerA    string
	TickerB    string
	HedgeRatio float64
	Intercept  float64
	PValue     float64
	Dates      DateIndex
	LogPriceA  []float64
	LogPriceB  []float64
}

// NewCointegratedPair assembles a pair and assigns its ID.
func NewCointegratedPair(tickerA, tickerB string, hedgeRatio, intercept, pValue float64, dates []time.Time, logA, logB []float64) *CointegratedPair {
	return &CointegratedPair{
		ID:         NewPairID(tickerA, tickerB, hedgeRatio),
		TickerA:    tickerA,
		TickerB:    tickerB,
		HedgeRatio: hedgeRatio,
		Intercept:  intercept,
		PValue:     pValue,
		Dates:      NewDateIndex(dates),
		LogPriceA:  logA,
		LogPriceB:  logB,
	}
}

// Len returns the number of aligned observations.
func (p *CointegratedPair) Len() int { return len(p.LogPriceA) }

// Residuals returns LogPriceA - (Intercept + HedgeRatio·LogPriceB).
func (p *CointegratedPair) Residuals() []float64 {
	out := make([]float64, len(p.LogPriceA))
	for i := range p.LogPriceA {
		out[i] = p.LogPriceA[i] - (p.Intercept + p.HedgeRatio*p.LogPriceB[i])
	}
	return out
}

// LogSpread returns LogPriceA - HedgeRatio·LogPriceB for every date.
func (p *CointegratedPair) LogSpread() []float64 {
	out := make([]float64, len(p.LogPriceA))
	for i := range p.LogPriceA {
		out[i] = p.LogPriceA[i] - p.HedgeRatio*p.LogPriceB[i]
	}
	return out
}

// DollarSpread returns exp(LogPriceA) - HedgeRatio·exp(LogPriceB) for every date.
func (p *CointegratedPair) DollarSpread() []float64 {
	out := make([]float64, len(p.LogPriceA))
	for i := range p.LogPriceA {
		out[i] = p.PriceA(i) - p.HedgeRatio*p.PriceB(i)
	}
	return out
}

// PriceA returns the price of TickerA at position i.
func (p *CointegratedPair) PriceA(i int) float64 { return math.Exp(p.LogPriceA[i]) }

// PriceB returns the price of TickerB at position i.
func (p *CointegratedPair) PriceB(i int) float64 { return math.Exp(p.LogPriceB[i]) }
