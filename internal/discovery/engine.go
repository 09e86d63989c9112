// Package discovery searches a set of log-price series for cointegrated pairs.
package discovery

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/model"
	"PairSentinel/internal/trace"
)

// DefaultSignificance is the p-value below which residuals count as stationary.
const DefaultSignificance = 0.01

// minFitSamples is the smallest overlap the hedge-ratio fit accepts.
const minFitSamples = 3

// Options tunes a discovery run.
type Options struct {
	Significance float64
	MinOverlap   int
	Workers      int // 0 uses one worker per CPU
	ADF          calculator.ADFOptions
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Significance: DefaultSignificance,
		MinOverlap:   30,
		ADF:          calculator.DefaultADFOptions(),
	}
}

// Engine evaluates every ordered pair of symbols.
type Engine struct {
	log  zerolog.Logger
	opts Options
}

// NewEngine creates an Engine. Zero-valued options fall back to defaults.
func NewEngine(log zerolog.Logger, opts Options) *Engine {
	def := DefaultOptions()
	if opts.Significance <= 0 || opts.Significance >= 1 {
		opts.Significance = def.Significance
	}
	switch {
	case opts.MinOverlap <= 0:
		opts.MinOverlap = def.MinOverlap
	case opts.MinOverlap < minFitSamples:
		opts.MinOverlap = minFitSamples
	}
	if opts.ADF.AutoLag == "" {
		opts.ADF.AutoLag = def.ADF.AutoLag
	}
	return &Engine{log: log, opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

type candidate struct {
	a, b *model.PriceSeries
}

type outcome struct {
	done   bool
	pair   *model.CointegratedPair
	pValue float64
	err    error
}

// Discover evaluates both orderings of every pair of distinct symbols and
// returns the accepted pairs in encounter order, symbols taken
// lexicographically. Per-candidate failures are counted in the report and
// never returned. The only error is the context's, returned with the
// partial report when the run is cancelled between candidates.
func (e *Engine) Discover(ctx context.Context, series map[string]*model.PriceSeries) (*Report, error) {
	ctx, span := trace.StartSpan(ctx, "discovery.run",
		attribute.Float64("discovery.significance", e.opts.Significance),
		attribute.Int("discovery.min_overlap", e.opts.MinOverlap),
	)
	defer span.End()

	started := time.Now()
	report := &Report{Significance: e.opts.Significance, StartedAt: started}

	symbols := make([]string, 0, len(series))
	for sym, s := range series {
		if s == nil || s.Len() == 0 {
			e.log.Debug().Str("symbol", sym).Msg("empty history, excluded from discovery")
			continue
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var cands []candidate
	for _, si := range symbols {
		for _, sj := range symbols {
			if si == sj {
				continue
			}
			cands = append(cands, candidate{a: series[si], b: series[sj]})
		}
	}
	span.SetAttributes(
		attribute.Int("discovery.symbols", len(symbols)),
		attribute.Int("discovery.candidates", len(cands)),
	)

	workers := e.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	slots := make([]outcome, len(cands))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, c := range cands {
		i, c := i, c
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = e.evaluate(c)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range slots {
		if !o.done {
			report.Cancelled = true
			continue
		}
		report.add(o)
	}
	report.Duration = time.Since(started)

	metrics.DiscoveryDuration.Observe(report.Duration.Seconds())
	metrics.PairsAccepted.Set(float64(report.Accepted))
	span.SetAttributes(
		attribute.Int("discovery.accepted", report.Accepted),
		attribute.Int("discovery.skipped", report.Skipped()),
	)
	e.log.Info().
		Int("symbols", len(symbols)).
		Int("evaluated", report.Evaluated).
		Int("accepted", report.Accepted).
		Int("fit_divergence", report.SkippedFitDivergence).
		Dur("took", report.Duration).
		Msg("discovery finished")

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func (e *Engine) evaluate(c candidate) outcome {
	al := alignOverlap(c.a, c.b)
	if len(al.dates) < e.opts.MinOverlap {
		err := &DataInsufficientError{TickerA: c.a.Symbol, TickerB: c.b.Symbol, Overlap: len(al.dates), Need: e.opts.MinOverlap}
		e.log.Debug().Str("ticker_a", c.a.Symbol).Str("ticker_b", c.b.Symbol).Int("overlap", len(al.dates)).Msg("candidate skipped: insufficient overlap")
		metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeInsufficient).Inc()
		return outcome{done: true, err: err}
	}

	pair, p, err := e.TestPair(c.a.Symbol, c.b.Symbol, al.dates, al.a, al.b)
	switch {
	case err != nil:
		e.log.Warn().Str("ticker_a", c.a.Symbol).Str("ticker_b", c.b.Symbol).Err(err).Msg("candidate skipped")
		var (
			di *DataInsufficientError
			fe *FitDivergenceError
		)
		switch {
		case errors.As(err, &di):
			metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeInsufficient).Inc()
		case errors.As(err, &fe):
			metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeFitDivergence).Inc()
		default:
			metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeStationarity).Inc()
		}
	case pair != nil:
		e.log.Info().Str("ticker_a", c.a.Symbol).Str("ticker_b", c.b.Symbol).Float64("hedge_ratio", pair.HedgeRatio).Float64("p_value", p).Msg("pair accepted")
		metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	default:
		metrics.CandidatesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	return outcome{done: true, pair: pair, pValue: p, err: err}
}

// TestPair fits logA ≈ α + β·logB on already aligned data and tests the
// residuals. It returns the pair when the ADF p-value is below the
// significance, nil when the unit-root null is not rejected, a
// *DataInsufficientError when the sample is too short for either step, and a
// *FitDivergenceError or *StationarityTestError when either step fails.
func (e *Engine) TestPair(tickerA, tickerB string, dates []time.Time, logA, logB []float64) (*model.CointegratedPair, float64, error) {
	fit, err := calculator.FitLinear(logA, logB)
	if errors.Is(err, calculator.ErrInsufficientData) {
		return nil, 0, &DataInsufficientError{TickerA: tickerA, TickerB: tickerB, Overlap: len(logA), Need: e.opts.MinOverlap}
	}
	if err != nil {
		return nil, 0, &FitDivergenceError{TickerA: tickerA, TickerB: tickerB, Err: err}
	}
	adf, err := calculator.ADF(fit.Residuals(logA, logB), e.opts.ADF)
	if errors.Is(err, calculator.ErrInsufficientData) {
		return nil, 0, &DataInsufficientError{TickerA: tickerA, TickerB: tickerB, Overlap: len(logA), Need: e.opts.MinOverlap}
	}
	if err != nil {
		return nil, 0, &StationarityTestError{TickerA: tickerA, TickerB: tickerB, Err: err}
	}
	if adf.PValue >= e.opts.Significance {
		return nil, adf.PValue, nil
	}
	pair := model.NewCointegratedPair(tickerA, tickerB, fit.Slope, fit.Intercept, adf.PValue, dates, logA, logB)
	return pair, adf.PValue, nil
}
