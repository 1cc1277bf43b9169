// Package guard injects transient risk filters in priority mode.
package guard

import (
	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/tuning"
)

// AutoGuard caps a designated risk metric when a priority ranking would
// otherwise chase returns with no risk ceiling at all.
// Guard filters are derived from state on every call and never stored.
type AutoGuard struct {
	cfg tuning.AutoGuard
	op  contracts.Operator
	cat *catalog.Catalog
}

// New creates an AutoGuard
func New(cfg tuning.AutoGuard, cat *catalog.Catalog) *AutoGuard {
	op, err := contracts.ParseOperator(cfg.Operator)
	if err != nil || !op.IsCeiling() {
		op = contracts.OpLE
	}
	return &AutoGuard{cfg: cfg, op: op, cat: cat}
}

// Filters returns the auto filters for one recomputation (zero or one)
func (g *AutoGuard) Filters(state contracts.RankingState) []contracts.Filter {
	if !g.Applies(state) {
		return nil
	}
	return []contracts.Filter{{
		Metric:    g.cfg.Metric,
		Operator:  g.op,
		Threshold: g.cfg.Threshold,
		IsAuto:    true,
	}}
}

// Applies reports whether state needs the guard:
// priority mode, only return-type metrics selected, no risk ceiling filter present.
func (g *AutoGuard) Applies(state contracts.RankingState) bool {
	if !g.cfg.Enable || state.Mode != contracts.ModePriority {
		return false
	}
	if !g.cat.Has(g.cfg.Metric) || len(state.SelectedMetrics) == 0 {
		return false
	}

	for _, id := range state.SelectedMetrics {
		def, ok := g.cat.Get(id)
		if !ok || def.Kind != contracts.KindReturn {
			return false
		}
	}

	return !g.hasRiskCeiling(state.Filters)
}

func (g *AutoGuard) hasRiskCeiling(filters []contracts.Filter) bool {
	for _, f := range filters {
		if f.IsAuto || !f.Operator.IsCeiling() {
			continue
		}
		if def, ok := g.cat.Get(f.Metric); ok && def.Kind == contracts.KindRisk {
			return true
		}
	}
	return false
}
