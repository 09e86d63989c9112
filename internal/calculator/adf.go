package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AutoLag selects how the number of lagged differences is chosen.
type AutoLag string

const (
	AutoLagAIC  AutoLag = "aic"
	AutoLagBIC  AutoLag = "bic"
	AutoLagNone AutoLag = "none"
)

// ADFOptions configures the augmented Dickey-Fuller test. A negative MaxLag
// selects 12·(nobs/100)^(1/4).
type ADFOptions struct {
	MaxLag  int
	AutoLag AutoLag
}

// DefaultADFOptions uses the automatic maximum lag and AIC lag selection.
func DefaultADFOptions() ADFOptions {
	return ADFOptions{MaxLag: -1, AutoLag: AutoLagAIC}
}

// ADFResult holds the outcome of an augmented Dickey-Fuller test with a constant.
type ADFResult struct {
	Statistic float64
	PValue    float64
	UsedLag   int
	Nobs      int
}

// ADF tests the null hypothesis that x has a unit root, regressing
// Δx_t on a constant, x_{t-1} and the chosen number of lagged differences.
func ADF(x []float64, opts ADFOptions) (*ADFResult, error) {
	nobs := len(x)
	if nobs < 4 {
		return nil, fmt.Errorf("adf: %d observations: %w", nobs, ErrInsufficientData)
	}
	if stat.Variance(x, nil) <= 1e-24 {
		return nil, fmt.Errorf("adf: constant series: %w", ErrDegenerate)
	}

	const ntrend = 1
	maxLag := opts.MaxLag
	if maxLag < 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(nobs)/100, 0.25)))
		if limit := nobs/2 - ntrend - 1; limit < maxLag {
			maxLag = limit
		}
		if maxLag < 0 {
			return nil, fmt.Errorf("adf: sample of %d too short: %w", nobs, ErrInsufficientData)
		}
	} else if maxLag > nobs/2-ntrend-1 {
		return nil, fmt.Errorf("adf: max lag %d too large for %d observations: %w", maxLag, nobs, ErrInsufficientData)
	}

	diff := make([]float64, nobs-1)
	for i := 1; i < nobs; i++ {
		diff[i-1] = x[i] - x[i-1]
	}

	usedLag := maxLag
	if opts.AutoLag != AutoLagNone && maxLag > 0 {
		// Every candidate is fitted on the common sample fixed by maxLag.
		y, design := adfDesign(x, diff, maxLag, maxLag)
		best := math.Inf(1)
		for lag := 0; lag <= maxLag; lag++ {
			res, err := OLS(y, columns(design, lag+2))
			if err != nil {
				continue
			}
			ic := res.AIC()
			if opts.AutoLag == AutoLagBIC {
				ic = res.BIC()
			}
			if ic < best {
				best, usedLag = ic, lag
			}
		}
		if math.IsInf(best, 1) {
			return nil, fmt.Errorf("adf: no lag order could be fitted: %w", ErrDegenerate)
		}
	}

	y, design := adfDesign(x, diff, usedLag, usedLag)
	res, err := OLS(y, design)
	if err != nil {
		return nil, fmt.Errorf("adf: %w", err)
	}
	tstat := res.TValue(1)
	if math.IsNaN(tstat) || math.IsInf(tstat, 0) {
		return nil, fmt.Errorf("adf: non-finite statistic: %w", ErrDegenerate)
	}
	return &ADFResult{
		Statistic: tstat,
		PValue:    MacKinnonPValue(tstat),
		UsedLag:   usedLag,
		Nobs:      len(y),
	}, nil
}

// adfDesign builds the regression of Δx_t on [1, x_{t-1}, Δx_{t-1} … Δx_{t-lags}]
// over the observations that have trim lagged differences available.
func adfDesign(x, diff []float64, lags, trim int) ([]float64, *mat.Dense) {
	rows := len(diff) - trim
	cols := lags + 2
	y := make([]float64, rows)
	design := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		t := r + trim // index into diff
		y[r] = diff[t]
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for l := 1; l <= lags; l++ {
			design.Set(r, l+1, diff[t-l])
		}
	}
	return y, design
}

func columns(m *mat.Dense, k int) *mat.Dense {
	r, c := m.Dims()
	if k >= c {
		return m
	}
	return m.Slice(0, r, 0, k).(*mat.Dense)
}
