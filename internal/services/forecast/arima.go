package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	errTooShort   = errors.New("series too short for model order")
	errNotFitted  = errors.New("model not fitted")
	errBadHorizon = errors.New("horizon must be positive")
	errUnstable   = errors.New("fitted model is not stationary or not invertible")
)

type order struct {
	P, D, Q int
}

func (o order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// arimaModel is an ARIMA(p,d,q) fitted by conditional sum of squares.
//
// The differenced series is standardised before optimisation so that the
// step size does not depend on the price scale; coefficients are scale free
// and the intercept, residuals and sigma2 are reported on the original scale.
type arimaModel struct {
	order        order
	withMean     bool
	ar           []float64
	ma           []float64
	mean         float64
	scale        float64
	sigma2       float64
	logLik       float64
	aic          float64
	aicc         float64
	bic          float64
	nobs         int
	effective    int
	standardized []float64 // differenced, centred and scaled series
	residuals    []float64 // standardised residuals, zero before the conditioning start
	tails        []float64 // last value of each differencing level, outermost first
	fitted       bool
}

func newARIMA(o order) *arimaModel {
	return &arimaModel{
		order:    o,
		withMean: o.D < 2,
		ar:       make([]float64, o.P),
		ma:       make([]float64, o.Q),
	}
}

const (
	maxIterations = 200
	minStep       = 1e-7
	relTolerance  = 1e-9
	coefBound     = 0.99
)

func (m *arimaModel) fit(y []float64) error {
	p, d, q := m.order.P, m.order.D, m.order.Q
	if len(y) < p+q+d+10 {
		return errTooShort
	}
	m.nobs = len(y)

	z := y
	m.tails = make([]float64, d)
	for i := 0; i < d; i++ {
		m.tails[i] = z[len(z)-1]
		z = difference(z)
	}

	m.mean = 0
	if m.withMean {
		m.mean = stat.Mean(z, nil)
	}
	m.scale = stat.StdDev(z, nil)
	if m.scale == 0 || math.IsNaN(m.scale) {
		m.scale = 1
	}
	m.standardized = make([]float64, len(z))
	for i, v := range z {
		m.standardized[i] = (v - m.mean) / m.scale
	}

	m.initialGuess()
	m.optimize()
	if !stationary(m.ar) || !stationary(negate(m.ma)) {
		return errUnstable
	}

	resid, sse := m.css(m.ar, m.ma)
	m.residuals = resid
	start := m.conditioningStart()
	m.effective = len(z) - start
	if m.effective <= 0 {
		return errTooShort
	}

	k := p + q + 1
	if m.withMean {
		k++
	}
	dof := m.effective - p - q
	if m.withMean {
		dof--
	}
	if dof < 1 {
		dof = 1
	}
	m.sigma2 = sse / float64(dof) * m.scale * m.scale

	sigmaMLE := sse / float64(m.effective) * m.scale * m.scale
	n := float64(m.effective)
	if sigmaMLE > 0 {
		m.logLik = -n / 2 * (math.Log(2*math.Pi*sigmaMLE) + 1)
	} else {
		m.logLik = math.Inf(1)
	}
	m.aic = -2*m.logLik + 2*float64(k)
	if n-float64(k)-1 > 0 {
		m.aicc = m.aic + 2*float64(k)*float64(k+1)/(n-float64(k)-1)
	} else {
		m.aicc = math.Inf(1)
	}
	m.bic = -2*m.logLik + float64(k)*math.Log(n)

	m.fitted = true
	return nil
}

func (m *arimaModel) conditioningStart() int {
	if m.order.P > m.order.Q {
		return m.order.P
	}
	return m.order.Q
}

// initialGuess seeds the AR terms with Yule-Walker estimates.
func (m *arimaModel) initialGuess() {
	p := m.order.P
	for i := range m.ma {
		m.ma[i] = 0
	}
	if p == 0 {
		return
	}
	r := autocorrelation(m.standardized, p)
	if r == nil {
		return
	}
	for i := range m.ar {
		m.ar[i] = 0
	}
	if p == 1 {
		m.ar[0] = clamp(r[1])
		return
	}

	// Durbin-Levinson recursion.
	phi := make([]float64, p+1)
	prev := make([]float64, p+1)
	v := 1.0
	for k := 1; k <= p; k++ {
		num := r[k]
		for j := 1; j < k; j++ {
			num -= prev[j] * r[k-j]
		}
		if v == 0 {
			break
		}
		phi[k] = num / v
		for j := 1; j < k; j++ {
			phi[j] = prev[j] - phi[k]*prev[k-j]
		}
		v *= 1 - phi[k]*phi[k]
		copy(prev, phi)
	}
	for i := 0; i < p; i++ {
		m.ar[i] = clamp(phi[i+1])
	}
}

// css returns the conditional residuals and their sum of squares.
func (m *arimaModel) css(ar, ma []float64) ([]float64, float64) {
	w := m.standardized
	start := m.conditioningStart()
	resid := make([]float64, len(w))
	sse := 0.0
	for t := start; t < len(w); t++ {
		pred := 0.0
		for i, phi := range ar {
			pred += phi * w[t-i-1]
		}
		for j, theta := range ma {
			pred += theta * resid[t-j-1]
		}
		resid[t] = w[t] - pred
		sse += resid[t] * resid[t]
	}
	return resid, sse
}

// gradient returns d(SSE)/d(params) with the MA recursion carried through.
func (m *arimaModel) gradient(ar, ma, resid []float64) []float64 {
	w := m.standardized
	p, q := len(ar), len(ma)
	start := m.conditioningStart()
	k := p + q
	grad := make([]float64, k)
	deriv := make([][]float64, k)
	for i := range deriv {
		deriv[i] = make([]float64, len(w))
	}

	for t := start; t < len(w); t++ {
		for i := 0; i < p; i++ {
			de := -w[t-i-1]
			for j, theta := range ma {
				de -= theta * deriv[i][t-j-1]
			}
			deriv[i][t] = de
		}
		for jj := 0; jj < q; jj++ {
			de := -resid[t-jj-1]
			for j, theta := range ma {
				de -= theta * deriv[p+jj][t-j-1]
			}
			deriv[p+jj][t] = de
		}
		for i := 0; i < k; i++ {
			grad[i] += 2 * resid[t] * deriv[i][t]
		}
	}

	n := float64(len(w) - start)
	if n > 0 {
		for i := range grad {
			grad[i] /= n
		}
	}
	return grad
}

// optimize runs gradient descent with a backtracking step.
func (m *arimaModel) optimize() {
	p, q := m.order.P, m.order.Q
	if p+q == 0 {
		return
	}

	resid, sse := m.css(m.ar, m.ma)
	step := 0.1
	for iter := 0; iter < maxIterations && step > minStep; iter++ {
		grad := m.gradient(m.ar, m.ma, resid)

		ar := make([]float64, p)
		ma := make([]float64, q)
		for i := range ar {
			ar[i] = clamp(m.ar[i] - step*grad[i])
		}
		for j := range ma {
			ma[j] = clamp(m.ma[j] - step*grad[p+j])
		}

		nextResid, nextSSE := m.css(ar, ma)
		if math.IsNaN(nextSSE) || math.IsInf(nextSSE, 0) || nextSSE >= sse {
			step /= 2
			continue
		}

		improvement := (sse - nextSSE) / math.Max(sse, 1e-12)
		m.ar, m.ma, resid, sse = ar, ma, nextResid, nextSSE
		step *= 1.2
		if improvement < relTolerance {
			break
		}
	}
}

// predict forecasts n steps ahead on the original scale.
func (m *arimaModel) predict(n int) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted
	}
	if n <= 0 {
		return nil, errBadHorizon
	}

	w := m.standardized
	size := len(w)
	ext := make([]float64, size+n)
	copy(ext, w)
	resid := make([]float64, size+n)
	copy(resid, m.residuals)

	for h := 0; h < n; h++ {
		t := size + h
		pred := 0.0
		for i, phi := range m.ar {
			if t-i-1 >= 0 {
				pred += phi * ext[t-i-1]
			}
		}
		for j, theta := range m.ma {
			if t-j-1 >= 0 {
				pred += theta * resid[t-j-1]
			}
		}
		ext[t] = pred
	}

	out := make([]float64, n)
	for h := 0; h < n; h++ {
		out[h] = m.mean + m.scale*ext[size+h]
	}

	for level := len(m.tails) - 1; level >= 0; level-- {
		last := m.tails[level]
		for h := range out {
			last += out[h]
			out[h] = last
		}
	}
	return out, nil
}

// originalResiduals returns residuals after the conditioning start, on the original scale.
func (m *arimaModel) originalResiduals() []float64 {
	start := m.conditioningStart()
	if start >= len(m.residuals) {
		return nil
	}
	out := make([]float64, 0, len(m.residuals)-start)
	for _, r := range m.residuals[start:] {
		out = append(out, r*m.scale)
	}
	return out
}

func (m *arimaModel) criterion(name string) float64 {
	switch name {
	case "aicc":
		return m.aicc
	case "bic":
		return m.bic
	default:
		return m.aic
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-coefBound, math.Min(coefBound, v))
}

// stationary reports whether all roots of 1 - phi_1 z - ... - phi_p z^p lie
// outside the unit circle, using the Durbin-Levinson step-down recursion.
func stationary(phi []float64) bool {
	a := append([]float64(nil), phi...)
	for k := len(a); k > 0; k-- {
		r := a[k-1]
		if math.Abs(r) >= 1 {
			return false
		}
		den := 1 - r*r
		next := make([]float64, k-1)
		for j := range next {
			next[j] = (a[j] + r*a[k-2-j]) / den
		}
		a = next
	}
	return true
}

func negate(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = -v
	}
	return out
}
