package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Candidate outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeRejected      = "rejected"
	OutcomeInsufficient  = "insufficient"
	OutcomeFitDivergence = "fit_divergence"
	OutcomeStationarity  = "stationarity"
)

var (
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairsentinel_candidates_total", Help: "Pair candidates evaluated by outcome"},
		[]string{"outcome"},
	)
	PairsAccepted = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pairsentinel_pairs_accepted", Help: "Pairs accepted by the last discovery run"},
	)
	DiscoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pairsentinel_discovery_duration_seconds",
			Help:    "Wall time of discovery runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
	SimulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairsentinel_simulations_total", Help: "Backtests run by result"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(CandidatesTotal, PairsAccepted, DiscoveryDuration, SimulationsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
