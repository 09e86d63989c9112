package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/model"
	"PairSentinel/internal/strategy"
)

var day0 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func series(t *testing.T, symbol string, values []float64) *model.PriceSeries {
	t.Helper()
	samples := make([]model.Sample, len(values))
	for i, v := range values {
		samples[i] = model.Sample{Date: day0.AddDate(0, 0, i), LogPrice: v}
	}
	s, err := model.NewPriceSeries(symbol, samples)
	if err != nil {
		t.Fatalf("series %s: %v", symbol, err)
	}
	return s
}

func cointegrated(t *testing.T) map[string]*model.PriceSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(31))
	b := make([]float64, 400)
	a := make([]float64, 400)
	b[0] = 3
	for i := 1; i < len(b); i++ {
		b[i] = b[i-1] + rng.NormFloat64()*0.02
	}
	for i := range b {
		a[i] = 1 + 0.8*b[i] + rng.NormFloat64()*0.004
	}
	return map[string]*model.PriceSeries{
		"KO":  series(t, "KO", a),
		"PEP": series(t, "PEP", b),
	}
}

func newSession() *Session {
	return New(zerolog.Nop(), discovery.NewEngine(zerolog.Nop(), discovery.DefaultOptions()))
}

func TestSession_EmptyBeforeRefresh(t *testing.T) {
	s := newSession()
	if len(s.Pairs()) != 0 {
		t.Fatal("expected no pairs before the first run")
	}
	if _, err := s.Pair(uuid.New()); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("expected ErrUnknownPair, got %v", err)
	}
}

func TestSession_RefreshAndLookup(t *testing.T) {
	s := newSession()
	report, err := s.Refresh(context.Background(), cointegrated(t))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if report.Accepted == 0 {
		t.Fatalf("expected KO/PEP to be accepted: %s", report.Summary())
	}

	pair, err := s.PairByTickers("KO", "PEP")
	if err != nil {
		t.Fatalf("by tickers: %v", err)
	}
	byID, err := s.Pair(pair.ID)
	if err != nil || byID != pair {
		t.Fatalf("by id: %v", err)
	}
	byRef, err := s.PairByRef(pair.ID.String())
	if err != nil || byRef != pair {
		t.Fatalf("by ref id: %v", err)
	}
	byRef, err = s.PairByRef("KO/PEP")
	if err != nil || byRef != pair {
		t.Fatalf("by ref tickers: %v", err)
	}
	if _, err := s.PairByRef("KO/MSFT"); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("expected ErrUnknownPair, got %v", err)
	}
	if _, err := s.PairByRef("nonsense"); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("expected ErrUnknownPair, got %v", err)
	}
}

func TestSession_RefreshReplacesPairs(t *testing.T) {
	s := newSession()
	if _, err := s.Refresh(context.Background(), cointegrated(t)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	old := s.Pairs()
	if len(old) == 0 {
		t.Fatal("expected pairs after the first run")
	}

	if _, err := s.Refresh(context.Background(), map[string]*model.PriceSeries{}); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if len(s.Pairs()) != 0 {
		t.Fatal("stale pairs survived a refresh")
	}
	if len(s.Series()) != 0 {
		t.Fatalf("series = %d symbols, want the empty input", len(s.Series()))
	}
	if _, err := s.Pair(old[0].ID); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("expected ErrUnknownPair for a pair from the previous run, got %v", err)
	}
}

func TestSession_CancelledRefreshKeepsPrevious(t *testing.T) {
	s := newSession()
	if _, err := s.Refresh(context.Background(), cointegrated(t)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := len(s.Pairs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Refresh(ctx, cointegrated(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(s.Pairs()) != before {
		t.Fatalf("pairs changed after a cancelled run: %d vs %d", len(s.Pairs()), before)
	}
	if got := s.Series()["KO"]; got == nil || got.Len() != 400 {
		t.Fatal("series of the previous run not kept after a cancelled run")
	}
}

func TestSession_Simulate(t *testing.T) {
	s := newSession()
	if _, err := s.Refresh(context.Background(), cointegrated(t)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	pair, res, err := s.Simulate(context.Background(), "KO/PEP", 0.05, -0.05, strategy.SpreadDollar)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.CumulativeProfit) != pair.Len() {
		t.Fatalf("profit length = %d, want %d", len(res.CumulativeProfit), pair.Len())
	}
	if res.PairID != pair.ID {
		t.Errorf("result pair id = %s, want %s", res.PairID, pair.ID)
	}

	if _, _, err := s.Simulate(context.Background(), uuid.NewString(), 1, -1, strategy.SpreadDollar); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("expected ErrUnknownPair, got %v", err)
	}
}
