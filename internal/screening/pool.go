package screening

import (
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/pkg/logger"
)

// Exclusion reasons reported in Pool.Excluded
const (
	ReasonExcluded    = "excluded"
	ReasonMissingData = "missing_data"
	ReasonDuplicate   = "duplicate"
	reasonFilter      = "filter:"
	reasonGuard       = "guard:"
)

// Request describes one pool build
type Request struct {
	Metrics []string           // selected metrics, priority order
	Filters []contracts.Filter // user filters
	Guards  []contracts.Filter // transient auto filters
}

// Pool is the filtered, de-duplicated set of eligible record indices
type Pool struct {
	Indices  []int          // table order
	Total    int            // records in the table
	Excluded map[string]int // reason -> count
}

// Size returns the number of eligible records
func (p Pool) Size() int {
	return len(p.Indices)
}

// Summary converts the pool into UI counters
func (p Pool) Summary() contracts.PoolSummary {
	return contracts.PoolSummary{
		TotalRecords:    p.Total,
		EligibleRecords: len(p.Indices),
		Excluded:        p.Excluded,
	}
}

// Builder builds candidate pools for one loaded table
// ⭐ SSOT: 후보군(적격성) 판정은 여기서만
type Builder struct {
	table          *contracts.Table
	eval           *Evaluator
	allowedMissing int
	logger         *logger.Logger
}

// NewBuilder creates a pool builder
func NewBuilder(table *contracts.Table, eval *Evaluator, allowedMissing int, log *logger.Logger) *Builder {
	return &Builder{
		table:          table,
		eval:           eval,
		allowedMissing: allowedMissing,
		logger:         log,
	}
}

// RequiredValid returns how many selected metrics a record must have.
// Never below one so that a record with no data at all is never ranked.
func RequiredValid(selected, allowedMissing int) int {
	req := selected - allowedMissing
	if req < 1 {
		req = 1
	}
	return req
}

// Build runs exclusion, filters, guards, missing-data tolerance and de-dup in that order
func (b *Builder) Build(req Request) Pool {
	total := b.table.Len()
	pool := Pool{
		Indices:  make([]int, 0, total),
		Total:    total,
		Excluded: make(map[string]int),
	}
	required := RequiredValid(len(req.Metrics), b.allowedMissing)
	seen := make(map[string]bool, total)

	for i := 0; i < total; i++ {
		reason := b.checkRecord(i, req, required)
		if reason == "" {
			id := b.table.Records[i].ID
			if seen[id] {
				reason = ReasonDuplicate
			} else {
				seen[id] = true
			}
		}

		if reason != "" {
			pool.Excluded[reason]++
			continue
		}
		pool.Indices = append(pool.Indices, i)
	}

	b.logger.WithFields(map[string]interface{}{
		"total_input":  total,
		"passed":       len(pool.Indices),
		"filtered_out": total - len(pool.Indices),
		"filters":      pool.Excluded,
	}).Debug("Candidate pool built")

	return pool
}

// checkRecord returns empty string if record i is eligible, otherwise the reason
func (b *Builder) checkRecord(i int, req Request, required int) string {
	if b.eval.Excluded(b.table.Records[i].ID) {
		return ReasonExcluded
	}

	if f, failed := b.eval.FirstFailure(i, req.Filters); failed {
		return reasonFilter + f.Metric
	}

	if f, failed := b.eval.FirstFailure(i, req.Guards); failed {
		return reasonGuard + f.Metric
	}

	if b.eval.ValidCount(i, req.Metrics) < required {
		return ReasonMissingData
	}

	return ""
}
