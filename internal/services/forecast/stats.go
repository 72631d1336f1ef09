package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func difference(x []float64) []float64 {
	if len(x) < 2 {
		return []float64{}
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// autocorrelation returns the ACF for lags 0..maxLag, or nil for a constant series.
func autocorrelation(x []float64, maxLag int) []float64 {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mu := stat.Mean(x, nil)
	denom := 0.0
	for _, v := range x {
		denom += (v - mu) * (v - mu)
	}
	if denom == 0 {
		return nil
	}

	out := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (x[i] - mu) * (x[i-k] - mu)
		}
		out[k] = sum / denom
	}
	return out
}

type unitRootResult struct {
	Statistic  float64
	PValue     float64
	Lags       int
	Stationary bool
}

// kpss is the level-stationarity KPSS test. Null hypothesis: the series is stationary.
func kpss(x []float64, nlags int) *unitRootResult {
	n := len(x)
	if n < 10 {
		return nil
	}
	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	mu := stat.Mean(x, nil)
	resid := make([]float64, n)
	for i, v := range x {
		resid[i] = v - mu
	}

	// Newey-West long-run variance with Bartlett weights.
	s2 := 0.0
	for _, r := range resid {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += resid[i] * resid[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	eta, cum := 0.0, 0.0
	for _, r := range resid {
		cum += r
		eta += cum * cum
	}
	statistic := eta / (float64(n) * float64(n) * s2)
	p := kpssPValue(statistic)

	return &unitRootResult{
		Statistic:  statistic,
		PValue:     p,
		Lags:       nlags,
		Stationary: p >= 0.05,
	}
}

// adf is the augmented Dickey-Fuller test with a constant. Null hypothesis: unit root.
func adf(x []float64, maxLag int) *unitRootResult {
	n := len(x)
	if n < 10 {
		return nil
	}
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	dx := difference(x)
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	k := 2 + maxLag
	design := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, dx[t])
		design.Set(i, 0, 1)
		design.Set(i, 1, x[t])
		for j := 1; j <= maxLag; j++ {
			design.Set(i, 1+j, dx[t-j])
		}
	}

	coeffs, se, ok := olsRegression(design, y)
	if !ok || se[1] == 0 {
		return nil
	}
	tStat := coeffs[1] / se[1]
	p := mackinnonPValue(tStat)

	return &unitRootResult{
		Statistic:  tStat,
		PValue:     p,
		Lags:       maxLag,
		Stationary: p < 0.05,
	}
}

// olsRegression returns coefficients and their standard errors.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64, ok bool) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, false
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, nil, false
	}

	var xty, beta, fitted, resid mat.VecDense
	xty.MulVec(x.T(), y)
	beta.MulVec(&inv, &xty)
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	s2 := mat.Dot(&resid, &resid) / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * inv.At(i, i))
	}
	return coeffs, stdErrors, true
}

// mackinnonPValue interpolates the asymptotic ADF distribution (constant, no trend).
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue maps the level KPSS statistic onto the tabulated critical values.
func kpssPValue(stat float64) float64 {
	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return 0.10 + (0.347-stat)*0.5
	}
}

type ljungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// ljungBox tests residuals for autocorrelation up to lags. fitdf is p+q of the model.
func ljungBox(resid []float64, lags, fitdf int) *ljungBoxResult {
	n := len(resid)
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	r := autocorrelation(resid, lags)
	if r == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += r[k] * r[k] / float64(n-k)
	}
	q *= float64(n) * float64(n+2)

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	return &ljungBoxResult{
		Statistic: q,
		PValue:    distuv.ChiSquared{K: float64(dof)}.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}
