package collector

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"PairSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Days  int
	Data  map[string][]model.OHLCV
	Err   map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyHistory(_ context.Context, symbol string) ([]model.OHLCV, error) {
	if err, ok := m.Err[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Data[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, m.Days), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	end := model.TruncateDay(time.Now())
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/9))
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches the daily history of a symbol list and converts it to
// log-price series.
type Collector struct {
	log     zerolog.Logger
	Fetcher Fetcher
	Cache   *CSVDirFetcher // optional; written on success, read on fetch failure
	Workers int
}

// NewCollector creates a new Collector.
func NewCollector(log zerolog.Logger, fetcher Fetcher) *Collector {
	return &Collector{log: log, Fetcher: fetcher, Workers: 4}
}

// Collect fetches every symbol. Symbols whose history is unavailable or
// empty are dropped with a warning; only context cancellation is an error.
func (c *Collector) Collect(ctx context.Context, symbols []string) (map[string]*model.PriceSeries, error) {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make([]*model.PriceSeries, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.collectOne(gctx, sym)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.PriceSeries, len(symbols))
	var dropped []string
	for i, sym := range symbols {
		if results[i] == nil {
			dropped = append(dropped, sym)
			continue
		}
		out[sym] = results[i]
	}
	sort.Strings(dropped)
	c.log.Info().
		Str("source", c.Fetcher.Name()).
		Int("requested", len(symbols)).
		Int("collected", len(out)).
		Strs("dropped", dropped).
		Msg("price history collected")
	return out, nil
}

func (c *Collector) collectOne(ctx context.Context, symbol string) *model.PriceSeries {
	bars, err := c.Fetcher.FetchDailyHistory(ctx, symbol)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil
	case err != nil && c.Cache != nil:
		c.log.Warn().Str("symbol", symbol).Err(err).Msg("fetch failed, falling back to cache")
		bars, err = c.Cache.FetchDailyHistory(ctx, symbol)
		if err != nil {
			c.log.Warn().Str("symbol", symbol).Err(err).Msg("cache read failed")
			return nil
		}
	case err != nil:
		c.log.Warn().Str("symbol", symbol).Err(err).Msg("fetch failed, symbol dropped")
		return nil
	case c.Cache != nil && len(bars) > 0:
		if err := c.Cache.Store(symbol, bars); err != nil {
			c.log.Warn().Str("symbol", symbol).Err(err).Msg("cache write failed")
		}
	}

	series, err := model.SeriesFromBars(symbol, bars)
	if err != nil {
		c.log.Warn().Str("symbol", symbol).Err(err).Msg("invalid history, symbol dropped")
		return nil
	}
	if series.Len() == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("no price history, symbol dropped")
		return nil
	}
	return series
}
