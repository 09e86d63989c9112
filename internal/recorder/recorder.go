package recorder

import (
	"time"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/model"
)

// RunSummary is one stored discovery run.
type RunSummary struct {
	ID           int64
	At           time.Time
	Significance float64
	Evaluated    int
	Accepted     int
	Skipped      int
	Cancelled    bool
	Duration     time.Duration
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordDiscovery(report *discovery.Report) (runID int64, err error)
	RecordSimulation(pair *model.CointegratedPair, res *model.SimulationResult) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
