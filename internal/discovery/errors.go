package discovery

import "fmt"

// DataInsufficientError reports a candidate whose overlap window is empty or
// shorter than the configured minimum.
type DataInsufficientError struct {
	TickerA string
	TickerB string
	Overlap int
	Need    int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("%s/%s: overlap of %d samples, need %d", e.TickerA, e.TickerB, e.Overlap, e.Need)
}

// FitDivergenceError reports a candidate whose hedge-ratio fit failed.
type FitDivergenceError struct {
	TickerA string
	TickerB string
	Err     error
}

func (e *FitDivergenceError) Error() string {
	return fmt.Sprintf("%s/%s: fit diverged: %v", e.TickerA, e.TickerB, e.Err)
}

func (e *FitDivergenceError) Unwrap() error { return e.Err }

// StationarityTestError reports a candidate whose residuals could not be tested.
type StationarityTestError struct {
	TickerA string
	TickerB string
	Err     error
}

func (e *StationarityTestError) Error() string {
	return fmt.Sprintf("%s/%s: stationarity test failed: %v", e.TickerA, e.TickerB, e.Err)
}

func (e *StationarityTestError) Unwrap() error { return e.Err }
