package calculator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// ErrNotConverged is returned when the least-squares minimization stops
// without reaching a convergence criterion.
var ErrNotConverged = errors.New("optimizer did not converge")

// LinearFit is the calibrated relation y ≈ Intercept + Slope·x.
type LinearFit struct {
	Intercept  float64
	Slope      float64
	SSR        float64
	Iterations int
	Status     optimize.Status
}

// Predict evaluates the fitted line at x.
func (f LinearFit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// Residuals returns y - (Intercept + Slope·x).
func (f LinearFit) Residuals(y, x []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - f.Predict(x[i])
	}
	return out
}

// FitLinear calibrates y ≈ a + b·x by numerically minimizing the sum of
// squared residuals with BFGS, starting from (a, b) = (0, 0). The objective is
// scaled by 1/n so the gradient threshold does not depend on series length.
func FitLinear(y, x []float64) (LinearFit, error) {
	n := len(y)
	if n != len(x) {
		return LinearFit{}, fmt.Errorf("fit: length mismatch %d vs %d", n, len(x))
	}
	if n < 3 {
		return LinearFit{}, fmt.Errorf("fit: %d observations: %w", n, ErrInsufficientData)
	}
	scale := 1 / float64(n)

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			sum := 0.0
			for i := range y {
				e := y[i] - (p[0] + p[1]*x[i])
				sum += e * e
			}
			return sum * scale
		},
		Grad: func(grad, p []float64) {
			var ga, gb float64
			for i := range y {
				e := y[i] - (p[0] + p[1]*x[i])
				ga += e
				gb += e * x[i]
			}
			grad[0] = -2 * ga * scale
			grad[1] = -2 * gb * scale
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-9,
		MajorIterations:   2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-16,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, []float64{0, 0}, settings, &optimize.BFGS{})
	if res == nil {
		return LinearFit{}, fmt.Errorf("fit: %w: %v", ErrNotConverged, err)
	}
	// A line search that stalls at the optimum is still a usable fit.
	if err != nil && !nearStationary(problem, res.X) {
		return LinearFit{}, fmt.Errorf("fit: %w: %v", ErrNotConverged, err)
	}
	if err == nil {
		switch res.Status {
		case optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence, optimize.Success:
		default:
			return LinearFit{}, fmt.Errorf("fit: %w: status %v", ErrNotConverged, res.Status)
		}
	}
	a, b := res.X[0], res.X[1]
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return LinearFit{}, fmt.Errorf("fit: %w: non-finite parameters", ErrNotConverged)
	}
	return LinearFit{
		Intercept:  a,
		Slope:      b,
		SSR:        res.F / scale,
		Iterations: res.Stats.MajorIterations,
		Status:     res.Status,
	}, nil
}

func nearStationary(problem optimize.Problem, p []float64) bool {
	if len(p) != 2 {
		return false
	}
	grad := make([]float64, 2)
	problem.Grad(grad, p)
	return math.Hypot(grad[0], grad[1]) < 1e-6
}
