package selection

import (
	"math"
	"sort"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/tuning"
)

// Priority orders lexicographically by the selected metrics, treating
// immaterial differences as near-ties that defer to the next metric.
// ⭐ SSOT: 우선순위 비교 규칙은 여기서만
type Priority struct {
	cfg    tuning.Priority
	funnel tuning.Funnel
}

// NewPriority creates the priority strategy
func NewPriority(cfg tuning.Priority, funnel tuning.Funnel) *Priority {
	return &Priority{cfg: cfg, funnel: funnel}
}

// Mode implements Strategy
func (p *Priority) Mode() contracts.Mode {
	return contracts.ModePriority
}

// Select implements Strategy.
// Pools above the funnel threshold are narrowed in stages before the full comparator runs.
func (p *Priority) Select(in Input) []Scored {
	cmp := p.newComparator(in)
	candidates := append([]int(nil), in.Pool...)

	if len(candidates) > p.funnel.Threshold {
		// Stage 1: top-priority metric only
		candidates = cmp.cut(candidates, 1, stageWidth(p.funnel.Stage1Width, in.TopN))

		// Stage 2: first two metrics
		if len(cmp.cols) > 1 {
			candidates = cmp.cut(candidates, 2, stageWidth(p.funnel.Stage2Width, in.TopN))
		}
	}

	candidates = cmp.sortBy(candidates, len(cmp.cols))

	scored := make([]Scored, len(candidates))
	for i, idx := range candidates {
		scored[i] = Scored{Index: idx, Score: cmp.weighted(idx, cmp.cols)}
	}
	return topN(scored, in.TopN)
}

// NearTie reports whether records a and b are a near-tie on criterion c
// with tolerances scaled to the pool of in.
func (p *Priority) NearTie(in Input, c Criterion, a, b int) bool {
	m, ok := in.Cache.Metric(c.Metric)
	if !ok {
		return true
	}
	cmp := p.newComparator(in)
	return cmp.nearTie(column{Criterion: c, cache: m}, a, b)
}

// Compare returns >0 if a ranks before b, <0 if after, using every criterion
func (p *Priority) Compare(in Input, a, b int) int {
	cmp := p.newComparator(in)
	return cmp.compare(a, b, cmp.cols)
}

// comparator holds the per-recomputation tolerance state.
// Pool size n is fixed for every funnel stage.
type comparator struct {
	cols    []column
	ids     []string
	pctTol  float64
	window  int
	gapMult float64
	decay   float64
}

func (p *Priority) newComparator(in Input) *comparator {
	n := len(in.Pool)

	ids := make([]string, in.Table.Len())
	for i, r := range in.Table.Records {
		ids[i] = r.ID
	}

	return &comparator{
		cols:    columns(in),
		ids:     ids,
		pctTol:  PercentileTolerance(n, p.cfg.ToleranceC, p.cfg.MinPercentileTolerance),
		window:  WindowSize(n, p.cfg.WindowMin, p.cfg.WindowMax),
		gapMult: p.cfg.GapMultiplier,
		decay:   p.cfg.WeightDecay,
	}
}

// PercentileTolerance shrinks with pool size: max(c/sqrt(max(2,n)), floor)
func PercentileTolerance(n int, c, floor float64) float64 {
	return math.Max(c/math.Sqrt(math.Max(2, float64(n))), floor)
}

// WindowSize returns clamp(round(sqrt(n)), lo, hi)
func WindowSize(n, lo, hi int) int {
	w := int(math.Round(math.Sqrt(float64(n))))
	if w < lo {
		w = lo
	}
	if w > hi {
		w = hi
	}
	return w
}

// prefix returns the first k criteria
func (c *comparator) prefix(k int) []column {
	if k > len(c.cols) {
		k = len(c.cols)
	}
	return c.cols[:k]
}

// sortBy sorts candidates using the first k criteria
func (c *comparator) sortBy(candidates []int, k int) []int {
	cols := c.prefix(k)
	sort.SliceStable(candidates, func(i, j int) bool {
		return c.compare(candidates[i], candidates[j], cols) > 0
	})
	return candidates
}

// cut sorts by the first k criteria and keeps width candidates plus every later
// candidate that is a near-tie with the boundary record on those criteria.
// 경계와 near-tie인 레코드는 다음 지표에서 역전될 수 있으므로 폭과 무관하게 유지
func (c *comparator) cut(candidates []int, k, width int) []int {
	candidates = c.sortBy(candidates, k)
	if width < 1 {
		width = 1
	}
	if len(candidates) <= width {
		return candidates
	}

	cols := c.prefix(k)
	boundary := candidates[width-1]
	kept := candidates[:width:width]
	for _, idx := range candidates[width:] {
		if c.tiedOn(cols, idx, boundary) {
			kept = append(kept, idx)
		}
	}
	return kept
}

// tiedOn reports whether a and b are undecided on every column of cols.
// Missing on both sides is undecided; missing on one side is decisive.
func (c *comparator) tiedOn(cols []column, a, b int) bool {
	for _, col := range cols {
		_, okA := col.cache.Adjusted(a, col.HigherIsBetter)
		_, okB := col.cache.Adjusted(b, col.HigherIsBetter)
		switch {
		case !okA && !okB:
			continue
		case okA != okB:
			return false
		}
		if !c.nearTie(col, a, b) {
			return false
		}
	}
	return true
}

// compare returns >0 if a ranks before b
func (c *comparator) compare(a, b int, cols []column) int {
	for _, col := range cols {
		pa, okA := col.cache.Adjusted(a, col.HigherIsBetter)
		pb, okB := col.cache.Adjusted(b, col.HigherIsBetter)

		switch {
		case okA && !okB:
			return 1
		case !okA && okB:
			return -1
		case !okA && !okB:
			continue
		}

		if c.nearTie(col, a, b) {
			continue
		}
		if pa > pb {
			return 1
		}
		return -1
	}

	// 모든 지표가 near-tie: 가중합 fallback
	wa, wb := c.weighted(a, cols), c.weighted(b, cols)
	if wa > wb {
		return 1
	}
	if wa < wb {
		return -1
	}

	if c.ids[a] != c.ids[b] {
		if c.ids[a] < c.ids[b] {
			return 1
		}
		return -1
	}
	if a < b {
		return 1
	}
	if a > b {
		return -1
	}
	return 0
}

// nearTie is symmetric in (a, b). Both records must have a value.
func (c *comparator) nearTie(col column, a, b int) bool {
	m := col.cache
	pa, okA := m.Adjusted(a, col.HigherIsBetter)
	pb, okB := m.Adjusted(b, col.HigherIsBetter)
	if !okA || !okB {
		return false
	}

	// 1) percentile tolerance
	if math.Abs(pa-pb) <= c.pctTol {
		return true
	}

	// 2) IQR-normalized local density tolerance
	ra, rb := m.Winsorized[a], m.Winsorized[b]
	localGap := m.LocalGap((ra+rb)/2, c.window)
	tol := math.Max(localGap*c.gapMult, col.FloorGap) / m.IQR
	return math.Abs(ra-rb)/m.IQR <= tol
}

// weighted is the geometric-weight fallback score (1, decay, decay^2, ...)
func (c *comparator) weighted(idx int, cols []column) float64 {
	sum, w := 0.0, 1.0
	for _, col := range cols {
		if p, ok := col.cache.Adjusted(idx, col.HigherIsBetter); ok {
			sum += w * p
		}
		w *= c.decay
	}
	return sum
}

func stageWidth(width, n int) int {
	if width < n {
		return n
	}
	return width
}
