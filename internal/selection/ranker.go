package selection

import (
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/logger"
)

// Ranker runs the strategy of the requested mode and assembles ranked items
// ⭐ SSOT: 랭킹 결과 조립은 여기서만
type Ranker struct {
	cfg    *tuning.Config
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(cfg *tuning.Config, logger *logger.Logger) *Ranker {
	return &Ranker{
		cfg:    cfg,
		logger: logger,
	}
}

// Rank selects the top-N of in.Pool and returns 1-based ranked items
func (r *Ranker) Rank(mode contracts.Mode, in Input) []contracts.RankedItem {
	strategy := NewStrategy(mode, r.cfg)
	scored := strategy.Select(in)

	items := make([]contracts.RankedItem, len(scored))
	for i, s := range scored {
		rec := in.Table.Records[s.Index]
		items[i] = contracts.RankedItem{
			Rank:   i + 1,
			Index:  s.Index,
			ID:     rec.ID,
			Symbol: rec.Symbol,
			Score:  s.Score,
			Values: r.values(in, s.Index),
		}
	}

	fields := map[string]interface{}{
		"mode":       string(strategy.Mode()),
		"candidates": len(in.Pool),
		"selected":   len(items),
	}
	if len(items) > 0 {
		fields["top_id"] = items[0].ID
		fields["top_score"] = items[0].Score
	}
	r.logger.WithFields(fields).Debug("Ranking completed")

	return items
}

// values returns the unclipped value of every selected metric for one record
func (r *Ranker) values(in Input, idx int) []contracts.MetricValue {
	out := make([]contracts.MetricValue, 0, len(in.Criteria))
	for _, c := range in.Criteria {
		mv := contracts.MetricValue{Metric: c.Metric, Missing: true}
		if m, ok := in.Cache.Metric(c.Metric); ok && !m.Missing(idx) {
			mv.Value = m.Raw[idx]
			mv.Missing = false
		}
		out = append(out, mv)
	}
	return out
}
