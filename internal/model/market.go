package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Sample is one dated log-price observation.
type Sample struct {
	Date     time.Time
	LogPrice float64
}

// PriceSeries holds the chronologically ordered log-price history of one symbol.
type PriceSeries struct {
	Symbol  string
	Samples []Sample
	index   DateIndex
}

// NewPriceSeries builds a series from samples that must already be in strictly
// increasing date order with finite log prices.
func NewPriceSeries(symbol string, samples []Sample) (*PriceSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}
	dates := make([]time.Time, len(samples))
	for i, s := range samples {
		if math.IsNaN(s.LogPrice) || math.IsInf(s.LogPrice, 0) {
			return nil, fmt.Errorf("%s: non-finite log price at %s", symbol, s.Date.Format("2006-01-02"))
		}
		if i > 0 && !s.Date.After(samples[i-1].Date) {
			return nil, fmt.Errorf("%s: dates not strictly increasing at %s", symbol, s.Date.Format("2006-01-02"))
		}
		dates[i] = s.Date
	}
	return &PriceSeries{Symbol: symbol, Samples: samples, index: DateIndex{dates: dates}}, nil
}

// SeriesFromBars converts close prices to natural-log samples. Bars with a
// non-positive close are dropped, and bars sharing a date keep the last one.
func SeriesFromBars(symbol string, bars []OHLCV) (*PriceSeries, error) {
	sorted := make([]OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	samples := make([]Sample, 0, len(sorted))
	for _, b := range sorted {
		if b.Close <= 0 || math.IsNaN(b.Close) {
			continue
		}
		d := TruncateDay(b.Time)
		if n := len(samples); n > 0 && samples[n-1].Date.Equal(d) {
			samples[n-1].LogPrice = math.Log(b.Close)
			continue
		}
		samples = append(samples, Sample{Date: d, LogPrice: math.Log(b.Close)})
	}
	return NewPriceSeries(symbol, samples)
}

// Len returns the number of samples.
func (p *PriceSeries) Len() int { return len(p.Samples) }

// First returns the earliest date. The series must be non-empty.
func (p *PriceSeries) First() time.Time { return p.Samples[0].Date }

// Last returns the latest date. The series must be non-empty.
func (p *PriceSeries) Last() time.Time { return p.Samples[len(p.Samples)-1].Date }

// Index returns the sorted date index of the series. Series built without
// NewPriceSeries get a fresh index on every call.
func (p *PriceSeries) Index() DateIndex {
	if len(p.index.dates) == len(p.Samples) {
		return p.index
	}
	dates := make([]time.Time, len(p.Samples))
	for i, s := range p.Samples {
		dates[i] = s.Date
	}
	return DateIndex{dates: dates}
}

// TruncateDay drops the clock part of t in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateIndex is an ordered date sequence searched by bisection.
type DateIndex struct {
	dates []time.Time
}

// NewDateIndex wraps dates, which must be strictly increasing.
func NewDateIndex(dates []time.Time) DateIndex {
	return DateIndex{dates: dates}
}

// Len returns the number of dates.
func (d DateIndex) Len() int { return len(d.dates) }

// At returns the i-th date.
func (d DateIndex) At(i int) time.Time { return d.dates[i] }

// Dates returns the underlying slice. Callers must not modify it.
func (d DateIndex) Dates() []time.Time { return d.dates }

// Lookup returns the position of date, or false if it is absent.
func (d DateIndex) Lookup(date time.Time) (int, bool) {
	i := d.LowerBound(date)
	if i < len(d.dates) && d.dates[i].Equal(date) {
		return i, true
	}
	return -1, false
}

// LowerBound returns the first position whose date is not before date.
func (d DateIndex) LowerBound(date time.Time) int {
	return sort.Search(len(d.dates), func(i int) bool { return !d.dates[i].Before(date) })
}

// UpperBound returns the first position whose date is after date.
func (d DateIndex) UpperBound(date time.Time) int {
	return sort.Search(len(d.dates), func(i int) bool { return d.dates[i].After(date) })
}

// Window returns the half-open position range [lo, hi) of dates within
// [start, end]. An empty range has lo == hi.
func (d DateIndex) Window(start, end time.Time) (lo, hi int) {
	if end.Before(start) {
		return 0, 0
	}
	lo = d.LowerBound(start)
	hi = d.UpperBound(end)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
