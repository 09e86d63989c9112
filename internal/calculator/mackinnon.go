package calculator

import "gonum.org/v1/gonum/stat/distuv"

// MacKinnon (1994) response-surface coefficients for the Dickey-Fuller
// tau statistic with a constant and a single series.
const (
	tauMaxC  = 2.74
	tauMinC  = -18.83
	tauStarC = -1.61
)

var (
	tauSmallPC = [3]float64{2.1659, 1.4412, 0.038269}
	tauLargePC = [4]float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// MacKinnonPValue returns the approximate p-value of an ADF tau statistic
// for a regression with a constant.
func MacKinnonPValue(tau float64) float64 {
	switch {
	case tau > tauMaxC:
		return 1
	case tau < tauMinC:
		return 0
	}
	var z float64
	if tau <= tauStarC {
		z = polyval(tauSmallPC[:], tau)
	} else {
		z = polyval(tauLargePC[:], tau)
	}
	return distuv.UnitNormal.CDF(z)
}

// polyval evaluates c[0] + c[1]·x + c[2]·x² + … by Horner's rule.
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
