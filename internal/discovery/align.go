package discovery

import (
	"time"

	"PairSentinel/internal/model"
)

// aligned holds two series restricted to their common dates.
type aligned struct {
	dates []time.Time
	a     []float64
	b     []float64
}

// alignOverlap restricts a and b to the window [max(first), min(last)] and
// keeps only the dates present in both.
func alignOverlap(a, b *model.PriceSeries) aligned {
	if a.Len() == 0 || b.Len() == 0 {
		return aligned{}
	}
	start := a.First()
	if b.First().After(start) {
		start = b.First()
	}
	end := a.Last()
	if b.Last().Before(end) {
		end = b.Last()
	}
	if end.Before(start) {
		return aligned{}
	}

	ai, aEnd := a.Index().Window(start, end)
	bi, bEnd := b.Index().Window(start, end)
	capacity := aEnd - ai
	if n := bEnd - bi; n < capacity {
		capacity = n
	}
	out := aligned{
		dates: make([]time.Time, 0, capacity),
		a:     make([]float64, 0, capacity),
		b:     make([]float64, 0, capacity),
	}
	for ai < aEnd && bi < bEnd {
		da, db := a.Samples[ai].Date, b.Samples[bi].Date
		switch {
		case da.Before(db):
			ai++
		case db.Before(da):
			bi++
		default:
			out.dates = append(out.dates, da)
			out.a = append(out.a, a.Samples[ai].LogPrice)
			out.b = append(out.b, b.Samples[bi].LogPrice)
			ai++
			bi++
		}
	}
	return out
}
