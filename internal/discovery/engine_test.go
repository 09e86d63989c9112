package discovery

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/model"
)

var day0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(t *testing.T, symbol string, start time.Time, values []float64) *model.PriceSeries {
	t.Helper()
	samples := make([]model.Sample, len(values))
	for i, v := range values {
		samples[i] = model.Sample{Date: start.AddDate(0, 0, i), LogPrice: v}
	}
	s, err := model.NewPriceSeries(symbol, samples)
	if err != nil {
		t.Fatalf("build series %s: %v", symbol, err)
	}
	return s
}

func walk(rng *rand.Rand, n int, start, step float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + rng.NormFloat64()*step
	}
	return out
}

func cointegratedSet(t *testing.T) map[string]*model.PriceSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(2024))
	b := walk(rng, 500, 3, 0.02)
	a := make([]float64, len(b))
	for i := range b {
		a[i] = 2 + 0.5*b[i] + rng.NormFloat64()*0.005
	}
	return map[string]*model.PriceSeries{
		"AAA": makeSeries(t, "AAA", day0, a),
		"BBB": makeSeries(t, "BBB", day0, b),
	}
}

func newTestEngine(opts Options) *Engine {
	return NewEngine(zerolog.Nop(), opts)
}

func TestDiscover_AcceptsCointegratedPair(t *testing.T) {
	eng := newTestEngine(DefaultOptions())
	report, err := eng.Discover(context.Background(), cointegratedSet(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Evaluated != 2 {
		t.Fatalf("evaluated = %d, want 2", report.Evaluated)
	}

	var found *model.CointegratedPair
	for _, p := range report.Pairs {
		if p.TickerA == "AAA" && p.TickerB == "BBB" {
			found = p
		}
	}
	if found == nil {
		t.Fatalf("AAA/BBB not accepted: %s", report.Summary())
	}
	if math.Abs(found.HedgeRatio-0.5) > 0.02 {
		t.Errorf("hedge ratio = %.5f, want ~0.5", found.HedgeRatio)
	}
	if math.Abs(found.Intercept-2) > 0.1 {
		t.Errorf("intercept = %.5f, want ~2", found.Intercept)
	}
	if found.PValue >= report.Significance {
		t.Errorf("p-value %.5f not below significance", found.PValue)
	}
	if found.Len() != 500 || found.Dates.Len() != 500 || len(found.LogPriceB) != 500 {
		t.Errorf("aligned lengths: dates=%d a=%d b=%d", found.Dates.Len(), len(found.LogPriceA), len(found.LogPriceB))
	}
}

func TestDiscover_AcceptedPairsReproduce(t *testing.T) {
	eng := newTestEngine(DefaultOptions())
	report, err := eng.Discover(context.Background(), cointegratedSet(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Pairs) == 0 {
		t.Fatal("expected at least one pair")
	}
	for _, p := range report.Pairs {
		again, pv, err := eng.TestPair(p.TickerA, p.TickerB, p.Dates.Dates(), p.LogPriceA, p.LogPriceB)
		if err != nil {
			t.Fatalf("retest %s/%s: %v", p.TickerA, p.TickerB, err)
		}
		if again == nil || pv >= report.Significance {
			t.Fatalf("retest %s/%s: p-value %.5f not below %.3f", p.TickerA, p.TickerB, pv, report.Significance)
		}
		if again.ID != p.ID {
			t.Errorf("retest changed pair id: %s vs %s", again.ID, p.ID)
		}
		adf, err := calculator.ADF(p.Residuals(), eng.Options().ADF)
		if err != nil {
			t.Fatalf("adf on stored residuals: %v", err)
		}
		if math.Abs(adf.PValue-p.PValue) > 1e-9 {
			t.Errorf("stored residuals p-value %.8f, pair p-value %.8f", adf.PValue, p.PValue)
		}
	}
}

func TestDiscover_NoSelfPairs(t *testing.T) {
	set := cointegratedSet(t)
	rng := rand.New(rand.NewSource(9))
	set["CCC"] = makeSeries(t, "CCC", day0, walk(rng, 500, 4, 0.02))

	report, err := newTestEngine(DefaultOptions()).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Evaluated != 6 {
		t.Fatalf("evaluated = %d, want 6 ordered candidates", report.Evaluated)
	}
	for _, p := range report.Pairs {
		if p.TickerA == p.TickerB {
			t.Fatalf("self pair produced for %s", p.TickerA)
		}
	}
}

func TestDiscover_NonOverlappingRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	set := map[string]*model.PriceSeries{
		"OLD": makeSeries(t, "OLD", day0, walk(rng, 200, 3, 0.02)),
		"NEW": makeSeries(t, "NEW", day0.AddDate(2, 0, 0), walk(rng, 200, 3, 0.02)),
	}
	report, err := newTestEngine(DefaultOptions()).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(report.Pairs))
	}
	if report.SkippedInsufficient != 2 {
		t.Fatalf("insufficient = %d, want 2", report.SkippedInsufficient)
	}
}

func TestDiscover_ShortOverlapSkipped(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	set := map[string]*model.PriceSeries{
		"X": makeSeries(t, "X", day0, walk(rng, 100, 3, 0.02)),
		"Y": makeSeries(t, "Y", day0.AddDate(0, 0, 90), walk(rng, 100, 3, 0.02)),
	}
	report, err := newTestEngine(DefaultOptions()).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SkippedInsufficient != 2 {
		t.Fatalf("insufficient = %d, want 2", report.SkippedInsufficient)
	}
}

func TestDiscover_EmptyHistoryExcluded(t *testing.T) {
	set := cointegratedSet(t)
	set["EMPTY"] = &model.PriceSeries{Symbol: "EMPTY"}
	report, err := newTestEngine(DefaultOptions()).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Evaluated != 2 {
		t.Fatalf("evaluated = %d, want 2", report.Evaluated)
	}
}

func TestDiscover_DegenerateCandidatesCounted(t *testing.T) {
	flat := make([]float64, 100)
	flat2 := make([]float64, 100)
	for i := range flat {
		flat[i] = 2.5
		flat2[i] = 1.5
	}
	set := map[string]*model.PriceSeries{
		"F1": makeSeries(t, "F1", day0, flat),
		"F2": makeSeries(t, "F2", day0, flat2),
	}
	report, err := newTestEngine(DefaultOptions()).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Accepted != 0 {
		t.Fatalf("accepted = %d, want 0", report.Accepted)
	}
	if got := report.SkippedFitDivergence + report.SkippedStationarity; got != 2 {
		t.Fatalf("skipped = %d, want 2 (%s)", got, report.Summary())
	}
	if len(report.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(report.Failures))
	}
	for _, f := range report.Failures {
		var se *StationarityTestError
		var fe *FitDivergenceError
		if !errors.As(f, &se) && !errors.As(f, &fe) {
			t.Errorf("unexpected failure type %T", f)
		}
	}
}

func TestDiscover_RandomWalksRejected(t *testing.T) {
	const trials = 30
	eng := newTestEngine(DefaultOptions())
	accepted := 0
	for trial := 0; trial < trials; trial++ {
		rng := rand.New(rand.NewSource(int64(1000 + trial)))
		set := map[string]*model.PriceSeries{
			"R1": makeSeries(t, "R1", day0, walk(rng, 500, 3, 0.02)),
			"R2": makeSeries(t, "R2", day0, walk(rng, 500, 4, 0.02)),
		}
		report, err := eng.Discover(context.Background(), set)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if report.Accepted > 0 {
			accepted++
		}
	}
	if accepted > trials/3 {
		t.Fatalf("%d of %d independent random-walk trials accepted", accepted, trials)
	}
}

func TestDiscover_Idempotent(t *testing.T) {
	set := cointegratedSet(t)
	rng := rand.New(rand.NewSource(77))
	set["CCC"] = makeSeries(t, "CCC", day0.AddDate(0, 0, 10), walk(rng, 480, 2, 0.03))

	eng := newTestEngine(Options{Workers: 4})
	first, err := eng.Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := newTestEngine(Options{Workers: 1}).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first.Pairs) != len(second.Pairs) {
		t.Fatalf("pair counts differ: %d vs %d", len(first.Pairs), len(second.Pairs))
	}
	for i := range first.Pairs {
		a, b := first.Pairs[i], second.Pairs[i]
		if a.ID != b.ID || a.HedgeRatio != b.HedgeRatio || a.Intercept != b.Intercept || a.PValue != b.PValue {
			t.Fatalf("pair %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestEngine(DefaultOptions()).Discover(ctx, cointegratedSet(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil || !report.Cancelled {
		t.Fatal("expected a partial report marked cancelled")
	}
}

func TestAlignOverlap_InnerJoin(t *testing.T) {
	a := makeSeries(t, "A", day0, []float64{1, 2, 3, 4, 5, 6})
	samples := []model.Sample{
		{Date: day0.AddDate(0, 0, 1), LogPrice: 10},
		{Date: day0.AddDate(0, 0, 3), LogPrice: 30},
		{Date: day0.AddDate(0, 0, 4), LogPrice: 40},
		{Date: day0.AddDate(0, 0, 8), LogPrice: 80},
	}
	b, err := model.NewPriceSeries("B", samples)
	if err != nil {
		t.Fatalf("build B: %v", err)
	}

	al := alignOverlap(a, b)
	if len(al.dates) != 3 {
		t.Fatalf("aligned %d dates, want 3", len(al.dates))
	}
	wantA := []float64{2, 4, 5}
	wantB := []float64{10, 30, 40}
	for i := range wantA {
		if al.a[i] != wantA[i] || al.b[i] != wantB[i] {
			t.Errorf("row %d = (%v, %v), want (%v, %v)", i, al.a[i], al.b[i], wantA[i], wantB[i])
		}
	}
}

func TestReport_RankedByPValue(t *testing.T) {
	r := &Report{Pairs: []*model.CointegratedPair{
		{TickerA: "A", PValue: 0.005},
		{TickerA: "B", PValue: 0.0001},
		{TickerA: "C", PValue: 0.002},
	}}
	ranked := r.RankedByPValue()
	if ranked[0].TickerA != "B" || ranked[1].TickerA != "C" || ranked[2].TickerA != "A" {
		t.Fatalf("unexpected order: %s %s %s", ranked[0].TickerA, ranked[1].TickerA, ranked[2].TickerA)
	}
	if r.Pairs[0].TickerA != "A" {
		t.Fatal("ranking must not reorder the report")
	}
}

func TestNewEngine_MinOverlapFloor(t *testing.T) {
	if got := newTestEngine(Options{MinOverlap: 1}).Options().MinOverlap; got != minFitSamples {
		t.Fatalf("min overlap = %d, want %d", got, minFitSamples)
	}
	if got := newTestEngine(Options{}).Options().MinOverlap; got != DefaultOptions().MinOverlap {
		t.Fatalf("zero min overlap = %d, want default", got)
	}
}

func TestDiscover_TinyOverlapCountedInsufficient(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	set := map[string]*model.PriceSeries{
		"X": makeSeries(t, "X", day0, walk(rng, 10, 3, 0.02)),
		"Y": makeSeries(t, "Y", day0.AddDate(0, 0, 8), walk(rng, 10, 3, 0.02)),
	}
	report, err := newTestEngine(Options{MinOverlap: 1}).Discover(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SkippedInsufficient != 2 || report.SkippedFitDivergence != 0 || len(report.Failures) != 0 {
		t.Fatalf("two-sample overlap: %s", report.Summary())
	}
}

func TestTestPair_ShortSampleIsInsufficient(t *testing.T) {
	dates := []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}
	_, _, err := newTestEngine(Options{MinOverlap: 3}).TestPair("A", "B", dates, []float64{1, 3, 5.5}, []float64{0, 1, 2})
	var di *DataInsufficientError
	if !errors.As(err, &di) {
		t.Fatalf("expected *DataInsufficientError, got %T %v", err, err)
	}
	if di.Overlap != 3 {
		t.Fatalf("overlap = %d, want 3", di.Overlap)
	}
}
