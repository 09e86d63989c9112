package discovery

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"PairSentinel/internal/model"
)

// Report is the result of one discovery run.
type Report struct {
	Pairs        []*model.CointegratedPair // encounter order
	Significance float64

	Evaluated            int
	Accepted             int
	Rejected             int
	SkippedInsufficient  int
	SkippedFitDivergence int
	SkippedStationarity  int
	Failures             []error

	Cancelled bool
	StartedAt time.Time
	Duration  time.Duration
}

func (r *Report) add(o outcome) {
	r.Evaluated++
	if o.err != nil {
		var (
			di *DataInsufficientError
			fe *FitDivergenceError
		)
		switch {
		case errors.As(o.err, &di):
			r.SkippedInsufficient++
		case errors.As(o.err, &fe):
			r.SkippedFitDivergence++
			r.Failures = append(r.Failures, o.err)
		default:
			r.SkippedStationarity++
			r.Failures = append(r.Failures, o.err)
		}
		return
	}
	if o.pair == nil {
		r.Rejected++
		return
	}
	r.Accepted++
	r.Pairs = append(r.Pairs, o.pair)
}

// Skipped returns the number of candidates that could not be evaluated.
func (r *Report) Skipped() int {
	return r.SkippedInsufficient + r.SkippedFitDivergence + r.SkippedStationarity
}

// Summary renders the run counters on one line.
func (r *Report) Summary() string {
	s := fmt.Sprintf("evaluated=%d accepted=%d rejected=%d insufficient=%d fit_divergence=%d stationarity=%d",
		r.Evaluated, r.Accepted, r.Rejected, r.SkippedInsufficient, r.SkippedFitDivergence, r.SkippedStationarity)
	if r.Cancelled {
		s += " (cancelled)"
	}
	return s
}

// Pair looks up an accepted pair by ID.
func (r *Report) Pair(id model.PairID) (*model.CointegratedPair, bool) {
	for _, p := range r.Pairs {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// RankedByPValue returns the accepted pairs ordered from strongest to
// weakest evidence, leaving Pairs untouched.
func (r *Report) RankedByPValue() []*model.CointegratedPair {
	out := make([]*model.CointegratedPair, len(r.Pairs))
	copy(out, r.Pairs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PValue < out[j].PValue })
	return out
}
