package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/strategy"
)

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPairTable renders the accepted pairs, strongest first, with
// coefficients rounded to five places.
func FormatPairTable(report *discovery.Report) string {
	var b strings.Builder
	ranked := report.RankedByPValue()
	if len(ranked) == 0 {
		b.WriteString("No cointegrated pairs.\n")
		return b.String()
	}
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%-8s %-8s %10s %10s %9s  %s\n", "A", "B", "beta", "alpha", "p", "id"))
	for _, p := range ranked {
		b.WriteString(fmt.Sprintf("%-8s %-8s %10s %10s %9s  %s\n",
			html.EscapeString(p.TickerA), html.EscapeString(p.TickerB),
			fixed(p.HedgeRatio, 5), fixed(p.Intercept, 5), fixed(p.PValue, 5), p.ID))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatDiscoveryReport formats a discovery run for Telegram.
func FormatDiscoveryReport(report *discovery.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>PairSentinel discovery</b> | %s\n\n", report.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Candidates: %d | accepted: %d | rejected: %d | skipped: %d\n",
		report.Evaluated, report.Accepted, report.Rejected, report.Skipped()))
	b.WriteString(fmt.Sprintf("Significance: %s | took %s\n\n", fixed(report.Significance, 3), report.Duration.Round(time.Millisecond)))
	if report.Cancelled {
		b.WriteString("⚠️ run cancelled, results are partial\n\n")
	}
	b.WriteString(FormatPairTable(report))
	return b.String()
}

// FormatSimulation formats a backtest with its trade list and totals.
func FormatSimulation(pair *model.CointegratedPair, res *model.SimulationResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s / %s</b> β=%s\n", html.EscapeString(pair.TickerA), html.EscapeString(pair.TickerB), fixed(pair.HedgeRatio, 5)))
	b.WriteString(fmt.Sprintf("Bounds: lower %s, upper %s\n", fixed(res.LowerBound, 4), fixed(res.UpperBound, 4)))
	for _, w := range res.Warnings {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(w.Error())))
	}

	if len(res.Trades) > 0 {
		b.WriteString("<pre>")
		for _, t := range res.Trades {
			b.WriteString(fmt.Sprintf("%-5s %s %10s %10s %10s\n",
				t.Kind, t.Date.Format("2006-01-02"), fixed(t.PriceA, 2), fixed(t.PriceB, 2), fixed(t.SpreadLevel, 4)))
		}
		b.WriteString("</pre>")
	} else {
		b.WriteString("No trades.\n")
	}

	s := strategy.Summarize(res)
	b.WriteString(fmt.Sprintf("Round trips: %d (wins %d) | total profit: %s\n", s.RoundTrips, s.Wins, fixed(s.TotalProfit, 4)))
	if s.OpenAtEnd {
		b.WriteString("Position still open at the last date.\n")
	}
	return b.String()
}

// FormatSummary formats the latest run and recent history.
func FormatSummary(report *discovery.Report, runs []recorder.RunSummary) string {
	var b strings.Builder
	b.WriteString("📦 <b>PairSentinel status</b>\n\n")
	if report == nil || report.StartedAt.IsZero() {
		b.WriteString("No discovery run yet.\n")
	} else {
		b.WriteString(fmt.Sprintf("Last run: %s\n%s\n", report.StartedAt.Format("2006-01-02 15:04"), html.EscapeString(report.Summary())))
	}
	if len(runs) > 0 {
		b.WriteString("\nRecent runs:\n")
		for _, r := range runs {
			b.WriteString(fmt.Sprintf("  #%d %s accepted %d of %d\n", r.ID, r.At.Format("01-02 15:04"), r.Accepted, r.Evaluated))
		}
	}
	return b.String()
}
