package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists discovery runs and simulations to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(log zerolog.Logger, dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS discovery_runs (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp             INTEGER NOT NULL,
			significance          REAL,
			evaluated             INTEGER,
			accepted              INTEGER,
			rejected              INTEGER,
			skipped_insufficient  INTEGER,
			skipped_fit           INTEGER,
			skipped_stationarity  INTEGER,
			cancelled             INTEGER,
			duration_ms           INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON discovery_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS pairs (
			run_id      INTEGER NOT NULL,
			pair_id     TEXT NOT NULL,
			ticker_a    TEXT,
			ticker_b    TEXT,
			hedge_ratio REAL,
			intercept   REAL,
			p_value     REAL,
			PRIMARY KEY (run_id, pair_id)
		)`,

		`CREATE TABLE IF NOT EXISTS pair_prices (
			run_id  INTEGER NOT NULL,
			pair_id TEXT NOT NULL,
			date    TEXT NOT NULL,
			price_a REAL,
			price_b REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_pair ON pair_prices(run_id, pair_id)`,

		`CREATE TABLE IF NOT EXISTS simulations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			pair_id      TEXT NOT NULL,
			upper_bound  REAL,
			lower_bound  REAL,
			total_profit REAL,
			trades       INTEGER,
			open_at_end  INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS trades (
			simulation_id INTEGER NOT NULL,
			kind          TEXT,
			date          TEXT,
			price_a       REAL,
			price_b       REAL,
			spread        REAL
		)`,

		`CREATE TABLE IF NOT EXISTS profits (
			simulation_id     INTEGER NOT NULL,
			date              TEXT,
			cumulative_profit REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordDiscovery stores the run counters, the accepted pairs and their
// aligned prices in one transaction.
func (r *SQLiteRecorder) RecordDiscovery(report *discovery.Report) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	at := report.StartedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := tx.Exec(`INSERT INTO discovery_runs
		(timestamp, significance, evaluated, accepted, rejected,
		 skipped_insufficient, skipped_fit, skipped_stationarity, cancelled, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), report.Significance, report.Evaluated, report.Accepted, report.Rejected,
		report.SkippedInsufficient, report.SkippedFitDivergence, report.SkippedStationarity,
		boolInt(report.Cancelled), report.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	pairStmt, err := tx.Prepare(`INSERT INTO pairs
		(run_id, pair_id, ticker_a, ticker_b, hedge_ratio, intercept, p_value)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer pairStmt.Close()
	priceStmt, err := tx.Prepare(`INSERT INTO pair_prices (run_id, pair_id, date, price_a, price_b) VALUES (?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer priceStmt.Close()

	for _, p := range report.Pairs {
		id := p.ID.String()
		if _, err := pairStmt.Exec(runID, id, p.TickerA, p.TickerB, p.HedgeRatio, p.Intercept, p.PValue); err != nil {
			return 0, fmt.Errorf("insert pair %s/%s: %w", p.TickerA, p.TickerB, err)
		}
		for i := 0; i < p.Len(); i++ {
			if _, err := priceStmt.Exec(runID, id, p.Dates.At(i).Format(dateLayout), p.PriceA(i), p.PriceB(i)); err != nil {
				return 0, fmt.Errorf("insert prices %s: %w", id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.log.Debug().Int64("run_id", runID).Int("pairs", len(report.Pairs)).Msg("discovery run recorded")
	return runID, nil
}

// RecordSimulation stores a simulation with its trades and profit curve.
func (r *SQLiteRecorder) RecordSimulation(pair *model.CointegratedPair, res *model.SimulationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	out, err := tx.Exec(`INSERT INTO simulations
		(timestamp, pair_id, upper_bound, lower_bound, total_profit, trades, open_at_end)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), res.PairID.String(), res.UpperBound, res.LowerBound,
		res.TotalProfit(), len(res.Trades), boolInt(res.Open()),
	)
	if err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}
	simID, err := out.LastInsertId()
	if err != nil {
		return err
	}

	for _, t := range res.Trades {
		if _, err := tx.Exec(`INSERT INTO trades (simulation_id, kind, date, price_a, price_b, spread) VALUES (?,?,?,?,?,?)`,
			simID, string(t.Kind), t.Date.Format(dateLayout), t.PriceA, t.PriceB, t.SpreadLevel); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	profitStmt, err := tx.Prepare(`INSERT INTO profits (simulation_id, date, cumulative_profit) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer profitStmt.Close()
	for i, v := range res.CumulativeProfit {
		if i >= pair.Dates.Len() {
			break
		}
		if _, err := profitStmt.Exec(simID, pair.Dates.At(i).Format(dateLayout), v); err != nil {
			return fmt.Errorf("insert profit: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, significance, evaluated, accepted,
		skipped_insufficient + skipped_fit + skipped_stationarity, cancelled, duration_ms
		FROM discovery_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s         RunSummary
			ts, durMs int64
			cancelled int
		)
		if err := rows.Scan(&s.ID, &ts, &s.Significance, &s.Evaluated, &s.Accepted, &s.Skipped, &cancelled, &durMs); err != nil {
			return nil, err
		}
		s.At = time.Unix(ts, 0)
		s.Cancelled = cancelled != 0
		s.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
