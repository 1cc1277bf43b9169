// Package screening decides which records are eligible for ranking.
package screening

import (
	"math"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/normalize"
	"github.com/wonny/cryptorank/internal/tuning"
)

// Evaluator applies relational filters and the exclusion denylist to single records
// ⭐ SSOT: 필터 비교 규칙은 여기서만
type Evaluator struct {
	cache      *normalize.Cache
	exclusions catalog.ExclusionSet
	decimals   int
	epsilon    float64
}

// NewEvaluator creates an evaluator over a built normalization cache
func NewEvaluator(cache *normalize.Cache, exclusions catalog.ExclusionSet, cfg tuning.Eligibility) *Evaluator {
	return &Evaluator{
		cache:      cache,
		exclusions: exclusions,
		decimals:   cfg.FilterDecimals,
		epsilon:    cfg.EqualityEpsilon,
	}
}

// Excluded reports whether id is on the denylist
func (e *Evaluator) Excluded(id string) bool {
	return e.exclusions.Contains(id)
}

// Match reports whether record i satisfies f.
// Unknown metrics and missing values never match.
func (e *Evaluator) Match(i int, f contracts.Filter) bool {
	m, ok := e.cache.Metric(f.Metric)
	if !ok || m.Missing(i) {
		return false
	}
	return Compare(m.Raw[i], f.Operator, f.Threshold, e.decimals, e.epsilon)
}

// FirstFailure returns the first filter record i does not satisfy
func (e *Evaluator) FirstFailure(i int, filters []contracts.Filter) (contracts.Filter, bool) {
	for _, f := range filters {
		if !e.Match(i, f) {
			return f, true
		}
	}
	return contracts.Filter{}, false
}

// ValidCount counts how many of metrics have a value for record i
func (e *Evaluator) ValidCount(i int, metrics []string) int {
	n := 0
	for _, id := range metrics {
		if m, ok := e.cache.Metric(id); ok && !m.Missing(i) {
			n++
		}
	}
	return n
}

// Compare rounds value to decimals and applies op.
// = and != use an absolute epsilon on the difference rounded to decimals,
// so one unit of the last decimal is never equal at any magnitude.
// Ordering operators compare exactly.
func Compare(value float64, op contracts.Operator, threshold float64, decimals int, epsilon float64) bool {
	v := Round(value, decimals)

	switch op {
	case contracts.OpGE:
		return v >= threshold
	case contracts.OpGT:
		return v > threshold
	case contracts.OpLE:
		return v <= threshold
	case contracts.OpLT:
		return v < threshold
	case contracts.OpEQ:
		return Round(math.Abs(v-threshold), decimals) < epsilon
	case contracts.OpNE:
		return Round(math.Abs(v-threshold), decimals) >= epsilon
	}
	return false
}

// Round rounds half away from zero to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
