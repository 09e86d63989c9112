package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/discovery"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/session"
	"PairSentinel/internal/strategy"
	"PairSentinel/internal/tickers"
)

// ErrBusy is returned when a discovery run is requested while one is active.
var ErrBusy = errors.New("discovery already running")

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the periodic discovery task and chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Collector  *collector.Collector
	Session    *session.Session
	Notifier   Sender // nil disables notifications
	Recorder   recorder.Recorder
	SpreadMode strategy.SpreadMode
	Ctx        context.Context

	// TickersPath, when set, receives the ticker list after each edit.
	TickersPath string

	log     zerolog.Logger
	mu      sync.Mutex
	tickers *tickers.List
	running sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, log zerolog.Logger, col *collector.Collector, sess *session.Session, list *tickers.List, sender Sender, rec recorder.Recorder) *Scheduler {
	if list == nil {
		list = tickers.New()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Collector:  col,
		Session:    sess,
		Notifier:   sender,
		Recorder:   rec,
		SpreadMode: strategy.SpreadDollar,
		Ctx:        ctx,
		log:        log,
		tickers:    list,
	}
}

// RegisterDiscovery schedules the refetch-and-discover task.
func (s *Scheduler) RegisterDiscovery(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.discoveryTask); err != nil {
		return fmt.Errorf("register discovery task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// Tickers returns the current symbol list.
func (s *Scheduler) Tickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickers.Symbols()
}

// RunDiscoveryNow fetches every ticker, reruns discovery and records the
// report. Overlapping runs fail with ErrBusy.
func (s *Scheduler) RunDiscoveryNow(ctx context.Context) (*discovery.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()
	return s.runDiscovery(ctx)
}

// runDiscovery must be called with s.running held.
func (s *Scheduler) runDiscovery(ctx context.Context) (*discovery.Report, error) {
	symbols := s.Tickers()
	series, err := s.Collector.Collect(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	report, err := s.Session.Refresh(ctx, series)
	if err != nil {
		return report, err
	}
	if _, err := s.Recorder.RecordDiscovery(report); err != nil {
		s.log.Error().Err(err).Msg("record discovery")
	}
	return report, nil
}

func (s *Scheduler) discoveryTask() {
	s.log.Info().Msg("running discovery task")
	report, err := s.RunDiscoveryNow(s.Ctx)
	s.announce(report, err)
}

func (s *Scheduler) announce(report *discovery.Report, err error) {
	if err != nil {
		s.log.Error().Err(err).Msg("discovery task")
		if !errors.Is(err, ErrBusy) {
			s.trySend(fmt.Sprintf("❌ discovery failed: %v", err))
		}
		return
	}
	s.trySend(notifier.FormatDiscoveryReport(report))
}

// startDiscovery runs discovery in the background so chat polling keeps
// going. The report is sent when the run finishes.
func (s *Scheduler) startDiscovery() string {
	if !s.running.TryLock() {
		return "⏳ discovery is already running"
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.log.Info().Msg("running discovery on request")
		report, err := s.runDiscovery(s.Ctx)
		s.announce(report, err)
	}()
	return "🔄 discovery started, the report follows when it finishes"
}

// Wait blocks until discovery runs started from chat commands finish.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

const help = `Commands:
• /pairs: accepted pairs of the last run
• /summary: last run and history
• /simulate &lt;pair-id|A/B&gt; &lt;upper&gt; &lt;lower&gt; [dollar|log]
• /discover: refetch and rerun discovery
• /tickers, /add &lt;SYM&gt;, /rename &lt;n&gt; &lt;SYM&gt;, /remove &lt;n&gt;, /clear`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	args := fields[1:]
	switch fields[0] {
	case "/pairs":
		return notifier.FormatPairTable(s.Session.Report())
	case "/summary":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			s.log.Error().Err(err).Msg("load recent runs")
		}
		return notifier.FormatSummary(s.Session.Report(), runs)
	case "/simulate":
		return s.simulate(ctx, args)
	case "/discover":
		return s.startDiscovery()
	case "/tickers", "/add", "/rename", "/remove", "/clear":
		return s.editTickers(fields[0], args)
	default:
		return help
	}
}

func (s *Scheduler) simulate(ctx context.Context, args []string) string {
	if len(args) < 3 || len(args) > 4 {
		return "usage: /simulate &lt;pair-id|A/B&gt; &lt;upper&gt; &lt;lower&gt; [dollar|log]"
	}
	upper, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("invalid upper bound %q", args[1])
	}
	lower, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Sprintf("invalid lower bound %q", args[2])
	}
	mode := s.SpreadMode
	if len(args) == 4 {
		if mode, err = strategy.ParseSpreadMode(args[3]); err != nil {
			return err.Error()
		}
	}

	pair, res, err := s.Session.Simulate(ctx, args[0], upper, lower, mode)
	if errors.Is(err, session.ErrUnknownPair) {
		return fmt.Sprintf("unknown pair %q, see /pairs", args[0])
	}
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	if err := s.Recorder.RecordSimulation(pair, res); err != nil {
		s.log.Error().Err(err).Msg("record simulation")
	}
	return notifier.FormatSimulation(pair, res)
}

func (s *Scheduler) editTickers(cmd string, args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch cmd {
	case "/tickers":
		return s.listTickers()
	case "/add":
		if len(args) == 0 {
			return "usage: /add &lt;SYM&gt; [SYM...]"
		}
		for _, a := range args {
			s.tickers.Add(a)
		}
	case "/rename":
		if len(args) != 2 {
			return "usage: /rename &lt;n&gt; &lt;SYM&gt;"
		}
		idx, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return fmt.Sprintf("invalid index %q", args[0])
		}
		err = s.tickers.Rename(idx-1, args[1])
	case "/remove":
		if len(args) != 1 {
			return "usage: /remove &lt;n&gt;"
		}
		idx, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return fmt.Sprintf("invalid index %q", args[0])
		}
		err = s.tickers.Remove(idx - 1)
	case "/clear":
		s.tickers.Clear()
	}
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	if s.TickersPath != "" {
		if err := s.tickers.SaveFile(s.TickersPath); err != nil {
			s.log.Error().Err(err).Str("path", s.TickersPath).Msg("save tickers")
		}
	}
	return s.listTickers()
}

func (s *Scheduler) listTickers() string {
	syms := s.tickers.Symbols()
	if len(syms) == 0 {
		return "Ticker list is empty."
	}
	series := s.Session.Series()
	var b strings.Builder
	for i, sym := range syms {
		if ps, ok := series[sym]; ok && ps != nil {
			fmt.Fprintf(&b, "%d. %s (%d days)\n", i+1, sym, ps.Len())
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, sym)
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		s.log.Info().Msg("notifier disabled, message dropped")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
