// Package session owns the inputs and results of discovery runs so callers
// pass explicit state to the simulator instead of sharing globals.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/model"
	"PairSentinel/internal/strategy"
)

// ErrUnknownPair is returned for pair references absent from the current run.
var ErrUnknownPair = errors.New("unknown pair")

// Session holds the input series and the latest discovery report. It is
// safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	engine *discovery.Engine
	series map[string]*model.PriceSeries
	report *discovery.Report
}

// New creates an empty session around engine.
func New(log zerolog.Logger, engine *discovery.Engine) *Session {
	return &Session{
		log:    log,
		engine: engine,
		series: map[string]*model.PriceSeries{},
		report: &discovery.Report{Significance: engine.Options().Significance},
	}
}

// Refresh replaces the input series and reruns discovery. The previous pair
// set is replaced wholesale, except on cancellation where it is kept.
func (s *Session) Refresh(ctx context.Context, series map[string]*model.PriceSeries) (*discovery.Report, error) {
	report, err := s.engine.Discover(ctx, series)
	if err != nil {
		return report, fmt.Errorf("discover: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = series
	s.report = report
	return report, nil
}

// Report returns the latest discovery report.
func (s *Session) Report() *discovery.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Series returns the input series of the latest run.
func (s *Session) Series() map[string]*model.PriceSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series
}

// Pairs returns the accepted pairs of the latest run in encounter order.
func (s *Session) Pairs() []*model.CointegratedPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.CointegratedPair, len(s.report.Pairs))
	copy(out, s.report.Pairs)
	return out
}

// Pair resolves a pair by ID.
func (s *Session) Pair(id model.PairID) (*model.CointegratedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.report.Pair(id); ok {
		return p, nil
	}
	return nil, fmt.Errorf("pair %s: %w", id, ErrUnknownPair)
}

// PairByRef resolves either a textual pair ID or a "TICKER_A/TICKER_B" reference.
func (s *Session) PairByRef(ref string) (*model.CointegratedPair, error) {
	if id, err := model.ParsePairID(ref); err == nil {
		return s.Pair(id)
	}
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return s.PairByTickers(ref[:i], ref[i+1:])
		}
	}
	return nil, fmt.Errorf("pair %q: %w", ref, ErrUnknownPair)
}

// PairByTickers resolves the pair with the given dependent and regressor tickers.
func (s *Session) PairByTickers(tickerA, tickerB string) (*model.CointegratedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.report.Pairs {
		if p.TickerA == tickerA && p.TickerB == tickerB {
			return p, nil
		}
	}
	return nil, fmt.Errorf("pair %s/%s: %w", tickerA, tickerB, ErrUnknownPair)
}

// Simulate backtests the referenced pair. Unknown references fail with
// ErrUnknownPair; bound problems are reported as result warnings.
func (s *Session) Simulate(ctx context.Context, ref string, upper, lower float64, mode strategy.SpreadMode) (*model.CointegratedPair, *model.SimulationResult, error) {
	pair, err := s.PairByRef(ref)
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("unknown_pair").Inc()
		return nil, nil, err
	}
	res, err := strategy.SimulateWithMode(ctx, pair, upper, lower, mode)
	if err != nil {
		return pair, nil, fmt.Errorf("simulate %s/%s: %w", pair.TickerA, pair.TickerB, err)
	}
	for _, w := range res.Warnings {
		s.log.Warn().Str("pair", pair.ID.String()).Err(w).Msg("simulation warning")
	}
	return pair, res, nil
}
