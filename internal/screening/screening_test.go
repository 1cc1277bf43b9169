package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/normalize"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/logger"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]contracts.MetricDefinition{
		{ID: "a", SourceField: "a"},
		{ID: "b", SourceField: "b"},
		{ID: "c", SourceField: "c"},
	})
	require.NoError(t, err)
	return cat
}

func rec(id string, fields map[string]string) contracts.Record {
	return contracts.Record{Symbol: "TEST:" + id + "/USD", ID: id, Fields: fields}
}

func newBuilder(t *testing.T, table *contracts.Table, exclusions ...string) *Builder {
	t.Helper()
	cfg := tuning.Default()
	cache := normalize.Build(testCatalog(t), table, cfg.Normalization)
	eval := NewEvaluator(cache, catalog.NewExclusionSet(exclusions...), cfg.Eligibility)
	return NewBuilder(table, eval, cfg.Eligibility.AllowedMissing, logger.Nop())
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		op        contracts.Operator
		threshold float64
		want      bool
	}{
		{"ge equal included", 10, contracts.OpGE, 10, true},
		{"gt equal excluded", 10, contracts.OpGT, 10, false},
		{"le equal included", 10, contracts.OpLE, 10, true},
		{"lt equal excluded", 10, contracts.OpLT, 10, false},
		{"rounded up to threshold", 9.996, contracts.OpGE, 10, true},
		{"rounded down below threshold", 9.994, contracts.OpGE, 10, false},
		{"eq within epsilon", 10.004, contracts.OpEQ, 10, true},
		{"eq outside epsilon", 10.02, contracts.OpEQ, 10, false},
		{"ne outside epsilon", 10.02, contracts.OpNE, 10, true},
		{"ne within epsilon", 10.001, contracts.OpNE, 10, false},
		{"eq one cent above", 10.01, contracts.OpEQ, 10, false},
		{"eq one cent below", 9.99, contracts.OpEQ, 10, false},
		{"eq one cent small", 1.01, contracts.OpEQ, 1, false},
		{"eq one cent tiny", 0.02, contracts.OpEQ, 0.01, false},
		{"eq one cent large", 1234567.01, contracts.OpEQ, 1234567, false},
		{"eq negative", -3.3, contracts.OpEQ, -3.3, true},
		{"eq same cent small", 0.07, contracts.OpEQ, 0.07, true},
		{"eq same cent large", 98765.43, contracts.OpEQ, 98765.43, true},
		{"ne one cent small", 1.01, contracts.OpNE, 1, true},
		{"ne one cent above", 10.01, contracts.OpNE, 10, true},
		{"ne same cent", 0.1 + 0.2, contracts.OpNE, 0.3, false},
		{"unknown operator", 10, contracts.Operator("~"), 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.value, tt.op, tt.threshold, 2, 0.01))
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.24, Round(1.235, 2))
	assert.Equal(t, -2.5, Round(-2.499, 2))
	assert.Equal(t, 3.0, Round(2.6, 0))
}

func TestBuild_FilterBoundary(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("X", map[string]string{"a": "10"}),
		rec("Y", map[string]string{"a": "11"}),
	}}
	b := newBuilder(t, table)

	ge := b.Build(Request{
		Metrics: []string{"a"},
		Filters: []contracts.Filter{{Metric: "a", Operator: contracts.OpGE, Threshold: 10}},
	})
	assert.Equal(t, []int{0, 1}, ge.Indices)

	gt := b.Build(Request{
		Metrics: []string{"a"},
		Filters: []contracts.Filter{{Metric: "a", Operator: contracts.OpGT, Threshold: 10}},
	})
	assert.Equal(t, []int{1}, gt.Indices)
	assert.Equal(t, 1, gt.Excluded["filter:a"])
}

func TestBuild_MissingTolerance(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("FULL", map[string]string{"a": "1", "b": "2", "c": "3"}),
		rec("ONE", map[string]string{"a": "1", "b": "2", "c": "N/A"}),
		rec("TWO", map[string]string{"a": "1"}),
	}}
	b := newBuilder(t, table)

	pool := b.Build(Request{Metrics: []string{"a", "b", "c"}})
	assert.Equal(t, []int{0, 1}, pool.Indices)
	assert.Equal(t, 1, pool.Excluded[ReasonMissingData])
	assert.Equal(t, 3, pool.Total)
}

func TestBuild_SingleMetricNeedsValue(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("A", map[string]string{"a": "1"}),
		rec("B", map[string]string{"a": "-"}),
	}}
	b := newBuilder(t, table)

	pool := b.Build(Request{Metrics: []string{"a"}})
	assert.Equal(t, []int{0}, pool.Indices)
}

func TestBuild_ExclusionAndDuplicates(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("BTC", map[string]string{"a": "1"}),
		rec("USDT", map[string]string{"a": "2"}),
		rec("BTC", map[string]string{"a": "3"}),
		rec("ETH", map[string]string{"a": "4"}),
	}}
	b := newBuilder(t, table, "usdt")

	pool := b.Build(Request{Metrics: []string{"a"}})
	assert.Equal(t, []int{0, 3}, pool.Indices)
	assert.Equal(t, 1, pool.Excluded[ReasonExcluded])
	assert.Equal(t, 1, pool.Excluded[ReasonDuplicate])

	s := pool.Summary()
	assert.Equal(t, 4, s.TotalRecords)
	assert.Equal(t, 2, s.EligibleRecords)
}

func TestBuild_DuplicateKeepsFirstEligible(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("BTC", map[string]string{"a": "1"}),
		rec("BTC", map[string]string{"a": "5"}),
	}}
	b := newBuilder(t, table)

	pool := b.Build(Request{
		Metrics: []string{"a"},
		Filters: []contracts.Filter{{Metric: "a", Operator: contracts.OpGE, Threshold: 2}},
	})
	assert.Equal(t, []int{1}, pool.Indices)
}

func TestBuild_Guards(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{
		rec("A", map[string]string{"a": "1", "b": "50"}),
		rec("B", map[string]string{"a": "2", "b": "250"}),
		rec("C", map[string]string{"a": "3"}),
	}}
	b := newBuilder(t, table)

	pool := b.Build(Request{
		Metrics: []string{"a"},
		Guards:  []contracts.Filter{{Metric: "b", Operator: contracts.OpLE, Threshold: 100, IsAuto: true}},
	})
	assert.Equal(t, []int{0}, pool.Indices)
	assert.Equal(t, 2, pool.Excluded["guard:b"])
}

func TestEvaluator_UnknownMetricNeverMatches(t *testing.T) {
	table := &contracts.Table{Records: []contracts.Record{rec("A", map[string]string{"a": "1"})}}
	b := newBuilder(t, table)

	assert.False(t, b.eval.Match(0, contracts.Filter{Metric: "zzz", Operator: contracts.OpGE, Threshold: 0}))
	assert.Equal(t, 1, b.eval.ValidCount(0, []string{"a", "b", "zzz"}))
}
