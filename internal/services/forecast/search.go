package forecast

import (
	"context"
	"math"
)

// searchResult is the outcome of an order search.
type searchResult struct {
	model     *arimaModel
	criterion float64
	evaluated int
	stepwise  bool
}

// selectDifferencing returns the smallest d <= maxD for which the series looks stationary.
func selectDifferencing(y []float64, maxD int, test string) int {
	current := y
	for d := 0; d < maxD; d++ {
		if looksStationary(current, test) {
			return d
		}
		current = difference(current)
		if len(current) < 10 {
			return d
		}
	}
	return maxD
}

func looksStationary(x []float64, test string) bool {
	if test == "adf" {
		res := adf(x, 0)
		return res != nil && res.Stationary
	}

	k := kpss(x, 0)
	a := adf(x, 0)
	kpssOK := k != nil && k.Stationary
	adfOK := a != nil && a.Stationary
	if kpssOK && adfOK {
		return true
	}
	return kpssOK && k.PValue > 0.1
}

type searcher struct {
	cfg       Config
	y         []float64
	d         int
	visited   map[order]bool
	best      *arimaModel
	bestCrit  float64
	evaluated int
}

func newSearcher(cfg Config, y []float64, d int) *searcher {
	return &searcher{
		cfg:      cfg,
		y:        y,
		d:        d,
		visited:  make(map[order]bool),
		bestCrit: math.Inf(1),
	}
}

// try fits one candidate and reports whether it became the new best.
func (s *searcher) try(p, q int) bool {
	if p < 0 || q < 0 || p > s.cfg.MaxP || q > s.cfg.MaxQ {
		return false
	}
	o := order{P: p, D: s.d, Q: q}
	if s.visited[o] {
		return false
	}
	s.visited[o] = true

	m := newARIMA(o)
	if err := m.fit(s.y); err != nil {
		return false
	}
	s.evaluated++

	crit := m.criterion(s.cfg.Criterion)
	if math.IsNaN(crit) {
		return false
	}
	if s.best == nil || crit < s.bestCrit {
		s.best = m
		s.bestCrit = crit
		return true
	}
	return false
}

// search picks p and q for a fixed d, either stepwise or over the full grid.
func search(ctx context.Context, cfg Config, y []float64, d int) (*searchResult, error) {
	s := newSearcher(cfg, y, d)

	if !cfg.Stepwise {
		for p := 0; p <= cfg.MaxP; p++ {
			for q := 0; q <= cfg.MaxQ; q++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				s.try(p, q)
			}
		}
		return s.result(false), nil
	}

	for _, start := range [][2]int{{2, 2}, {0, 0}, {1, 0}, {0, 1}} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.try(start[0], start[1])
	}
	if s.best == nil {
		return s.result(true), nil
	}

	for improved := true; improved; {
		improved = false
		bp, bq := s.best.order.P, s.best.order.Q
		neighbours := [][2]int{
			{bp + 1, bq}, {bp - 1, bq},
			{bp, bq + 1}, {bp, bq - 1},
			{bp + 1, bq + 1}, {bp - 1, bq - 1},
		}
		for _, nb := range neighbours {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if s.try(nb[0], nb[1]) {
				improved = true
				break
			}
		}
	}
	return s.result(true), nil
}

func (s *searcher) result(stepwise bool) *searchResult {
	return &searchResult{
		model:     s.best,
		criterion: s.bestCrit,
		evaluated: s.evaluated,
		stepwise:  stepwise,
	}
}
