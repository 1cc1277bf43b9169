package selection

import (
	"sort"

	"github.com/wonny/cryptorank/internal/contracts"
)

// Balanced averages direction-adjusted percentiles across selected metrics.
// Missing metrics are skipped, not scored as zero.
type Balanced struct{}

// NewBalanced creates the balanced strategy
func NewBalanced() *Balanced {
	return &Balanced{}
}

// Mode implements Strategy
func (b *Balanced) Mode() contracts.Mode {
	return contracts.ModeBalanced
}

// Select implements Strategy
func (b *Balanced) Select(in Input) []Scored {
	cols := columns(in)
	scored := make([]Scored, 0, len(in.Pool))

	for _, idx := range in.Pool {
		scored = append(scored, Scored{Index: idx, Score: balancedScore(cols, idx)})
	}

	// Stable: ties keep pool order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return topN(scored, in.TopN)
}

func balancedScore(cols []column, idx int) float64 {
	sum, count := 0.0, 0
	for _, c := range cols {
		p, ok := c.cache.Adjusted(idx, c.HigherIsBetter)
		if !ok {
			continue
		}
		sum += p
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
