package forecast

import (
	"math"
	"math/rand"
	"testing"
)

func TestARIMARecoversAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	y := make([]float64, 2000)
	for i := 1; i < len(y); i++ {
		y[i] = 0.6*y[i-1] + rng.NormFloat64()
	}

	m := newARIMA(order{P: 1})
	if err := m.fit(y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(m.ar[0]-0.6) > 0.1 {
		t.Fatalf("expected ar.L1 near 0.6, got %v", m.ar[0])
	}
	if m.sigma2 <= 0 || math.IsInf(m.aic, 0) {
		t.Fatalf("unexpected fit statistics: sigma2=%v aic=%v", m.sigma2, m.aic)
	}
}

func TestARIMAIntegratesSecondDifference(t *testing.T) {
	n := 40
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(i * i)
	}

	m := newARIMA(order{D: 2})
	if err := m.fit(y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	pred, err := m.predict(2)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	// Without a mean term the second difference forecasts to zero, so the
	// last first difference is carried forward.
	step := y[n-1] - y[n-2]
	want := []float64{y[n-1] + step, y[n-1] + 2*step}
	for i := range want {
		if math.Abs(pred[i]-want[i]) > 1e-9 {
			t.Fatalf("step %d: expected %v, got %v", i+1, want[i], pred[i])
		}
	}
}

func TestARIMARejectsShortSeries(t *testing.T) {
	m := newARIMA(order{P: 2, D: 1, Q: 2})
	if err := m.fit(make([]float64, 12)); err == nil {
		t.Fatalf("expected error for short series")
	}
	if _, err := newARIMA(order{}).predict(3); err == nil {
		t.Fatalf("expected error predicting from unfitted model")
	}
}

func TestStationaryCheck(t *testing.T) {
	cases := []struct {
		phi  []float64
		want bool
	}{
		{nil, true},
		{[]float64{0.5}, true},
		{[]float64{1.0}, false},
		{[]float64{0.5, 0.3}, true},
		{[]float64{0.9, 0.9}, false},
		{[]float64{0.99, 0.99, 0.99, 0.99, 0.99}, false},
	}
	for _, tc := range cases {
		if got := stationary(tc.phi); got != tc.want {
			t.Fatalf("stationary(%v) = %v, want %v", tc.phi, got, tc.want)
		}
	}
}
