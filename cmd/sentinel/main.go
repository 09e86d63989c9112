package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/discovery"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/scheduler"
	"PairSentinel/internal/session"
	"PairSentinel/internal/strategy"
	"PairSentinel/internal/tabular"
	"PairSentinel/internal/tickers"
	"PairSentinel/internal/trace"
	"PairSentinel/internal/util"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	boot := util.NewLogger("info")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}

	logger := util.NewLogger(cfg.Log.Level)
	logger.Info().Str("version", version).Str("config", cfgPath).Msg("PairSentinel starting")

	if err := trace.Init(cfg.Tracing.Enabled, version); err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}
	logger.Debug().Bool("tracing", trace.Enabled()).Msg("tracing configured")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
	}()
	if cfg.MetricsAddr != "" {
		srv := metrics.Serve(cfg.MetricsAddr)
		defer srv.Close()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint started")
	}

	list := loadTickers(logger, cfg)
	if list.Len() < 2 {
		logger.Warn().Int("tickers", list.Len()).Msg("fewer than two tickers, no pair can be formed")
	}

	fetcher := newFetcher(cfg)
	col := collector.NewCollector(logger, fetcher)
	if cfg.DataSource.CSVDir != "" && cfg.DataSource.Provider != config.ProviderCSV {
		col.Cache = &collector.CSVDirFetcher{Dir: cfg.DataSource.CSVDir}
	}
	logger.Info().Str("source", fetcher.Name()).Msg("data source ready")

	engine := discovery.NewEngine(logger, discovery.Options{
		Significance: cfg.Discovery.Significance,
		MinOverlap:   cfg.Discovery.MinOverlap,
		Workers:      cfg.Discovery.Workers,
		ADF: calculator.ADFOptions{
			MaxLag:  *cfg.Discovery.MaxLag,
			AutoLag: calculator.AutoLag(cfg.Discovery.AutoLag),
		},
	})
	sess := session.New(logger, engine)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			logger.Warn().Err(err).Msg("create database dir")
		}
		sr, err := recorder.NewSQLiteRecorder(logger, cfg.Database.SQLitePath)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(logger, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	mode, _ := strategy.ParseSpreadMode(cfg.Simulation.SpreadMode)
	sched := scheduler.NewScheduler(ctx, logger, col, sess, list, sender, rec)
	sched.SpreadMode = mode
	sched.TickersPath = cfg.DataSource.TickersFile

	report, err := sched.RunDiscoveryNow(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("discovery interrupted")
			return
		}
		logger.Fatal().Err(err).Msg("discovery")
	}
	logger.Info().Str("summary", report.Summary()).Msg("discovery report")
	if err := tabular.Write(os.Stdout, tabular.PairRows(report.RankedByPValue())); err != nil {
		logger.Error().Err(err).Msg("print pair table")
	}

	var sims []tabular.Simulation
	if ref := cfg.Simulation.PairID; ref != "" {
		pair, res, err := sess.Simulate(ctx, ref, cfg.Simulation.UpperBound, cfg.Simulation.LowerBound, mode)
		if err != nil {
			logger.Error().Err(err).Str("pair", ref).Msg("simulation")
		} else {
			stats := strategy.Summarize(res)
			logger.Info().
				Str("pair", pair.TickerA+"/"+pair.TickerB).
				Int("trades", len(res.Trades)).
				Int("round_trips", stats.RoundTrips).
				Float64("profit", stats.TotalProfit).
				Bool("open_at_end", stats.OpenAtEnd).
				Msg("simulation finished")
			if err := rec.RecordSimulation(pair, res); err != nil {
				logger.Error().Err(err).Msg("record simulation")
			}
			sims = append(sims, tabular.Simulation{Pair: pair, Result: res})
		}
	}

	if cfg.Export.Dir != "" {
		if err := tabular.Export(cfg.Export.Dir, report.Pairs, sims); err != nil {
			logger.Error().Err(err).Msg("export tables")
		} else {
			logger.Info().Str("dir", cfg.Export.Dir).Msg("tables exported")
		}
	}

	if os.Getenv("SERVE") != "true" {
		return
	}

	if err := sched.RegisterDiscovery(cfg.Schedule.DiscoveryCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	logger.Info().Msg("PairSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, stopping")
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case config.ProviderVsTrader:
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.ProviderCSV:
		return &collector.CSVDirFetcher{Dir: cfg.DataSource.CSVDir}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

// loadTickers reads the tickers file when it exists and falls back to the
// configured list (tickers section or TICKERS env).
func loadTickers(log zerolog.Logger, cfg *config.Config) *tickers.List {
	if path := cfg.DataSource.TickersFile; path != "" {
		list, err := tickers.LoadFile(path)
		switch {
		case err == nil && list.Len() > 0:
			return list
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			log.Warn().Err(err).Str("path", path).Msg("load tickers file")
		}
	}
	return tickers.New(cfg.Tickers...)
}
