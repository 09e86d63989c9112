package calculator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when a series is too short for the calculation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerate is returned when the design is singular or residuals carry no variance.
	ErrDegenerate = errors.New("degenerate series")
)

// OLSResult holds an ordinary least squares fit.
type OLSResult struct {
	Params []float64
	StdErr []float64
	SSR    float64
	Nobs   int
}

// TValue returns the t statistic of parameter i.
func (r *OLSResult) TValue(i int) float64 {
	return r.Params[i] / r.StdErr[i]
}

// LogLikelihood returns the Gaussian log-likelihood of the fit.
func (r *OLSResult) LogLikelihood() float64 {
	n := float64(r.Nobs)
	return -n / 2 * (math.Log(2*math.Pi) + math.Log(r.SSR/n) + 1)
}

// AIC returns the Akaike information criterion.
func (r *OLSResult) AIC() float64 {
	return -2*r.LogLikelihood() + 2*float64(len(r.Params))
}

// BIC returns the Bayesian information criterion.
func (r *OLSResult) BIC() float64 {
	return -2*r.LogLikelihood() + math.Log(float64(r.Nobs))*float64(len(r.Params))
}

// OLS regresses y on the columns of x through the normal equations.
func OLS(y []float64, x *mat.Dense) (*OLSResult, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("ols: %d rows vs %d observations", n, len(y))
	}
	if n <= k {
		return nil, fmt.Errorf("ols: %d observations for %d regressors: %w", n, k, ErrInsufficientData)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, fmt.Errorf("ols: singular design: %w", ErrDegenerate)
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, fmt.Errorf("ols: solve: %w", ErrDegenerate)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	ssr := 0.0
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		ssr += e * e
	}
	if ssr == 0 || math.IsNaN(ssr) {
		return nil, fmt.Errorf("ols: zero residual variance: %w", ErrDegenerate)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("ols: invert: %w", ErrDegenerate)
	}
	sigma2 := ssr / float64(n-k)
	params := make([]float64, k)
	stderr := make([]float64, k)
	for i := 0; i < k; i++ {
		params[i] = beta.AtVec(i)
		stderr[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}
	return &OLSResult{Params: params, StdErr: stderr, SSR: ssr, Nobs: n}, nil
}
