// Package selection reduces a candidate pool to an ordered top-N.
package selection

import (
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/normalize"
	"github.com/wonny/cryptorank/internal/tuning"
)

// Criterion is one selected metric with its effective direction
type Criterion struct {
	Metric         string
	HigherIsBetter bool
	FloorGap       float64 // raw units
}

// Input is everything a strategy reads for one recomputation
type Input struct {
	Table    *contracts.Table
	Cache    *normalize.Cache
	Pool     []int       // eligible record indices, table order
	Criteria []Criterion // priority order
	TopN     int
}

// Scored is a selected record with its strategy score
type Scored struct {
	Index int
	Score float64
}

// Strategy is a scoring discipline
type Strategy interface {
	Mode() contracts.Mode
	Select(in Input) []Scored
}

// NewStrategy returns the strategy for mode
func NewStrategy(mode contracts.Mode, cfg *tuning.Config) Strategy {
	if mode == contracts.ModePriority {
		return NewPriority(cfg.Priority, cfg.Funnel)
	}
	return NewBalanced()
}

// column binds a criterion to its metric cache
type column struct {
	Criterion
	cache *normalize.MetricCache
}

// columns resolves criteria against the cache, skipping unknown metrics
func columns(in Input) []column {
	cols := make([]column, 0, len(in.Criteria))
	for _, c := range in.Criteria {
		m, ok := in.Cache.Metric(c.Metric)
		if !ok {
			continue
		}
		cols = append(cols, column{Criterion: c, cache: m})
	}
	return cols
}

func topN(scored []Scored, n int) []Scored {
	if n >= 0 && len(scored) > n {
		return scored[:n]
	}
	return scored
}
