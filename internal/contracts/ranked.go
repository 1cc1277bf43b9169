package contracts

import "fmt"

// Mode selects the scoring discipline
type Mode string

const (
	ModeBalanced Mode = "balanced" // 평균 백분위
	ModePriority Mode = "priority" // 우선순위 (lexicographic with tolerance)
)

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBalanced, ModePriority:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q (want balanced|priority)", s)
}

// RankingState is the user-controlled state of one session.
// SelectedMetrics order is the priority order.
type RankingState struct {
	SelectedMetrics    []string        `json:"selected_metrics"`
	Mode               Mode            `json:"mode"`
	Filters            []Filter        `json:"filters"`
	DirectionOverrides map[string]bool `json:"direction_overrides"` // metric -> higher is better
}

// Clone returns a deep copy
func (s RankingState) Clone() RankingState {
	out := RankingState{
		SelectedMetrics:    append([]string(nil), s.SelectedMetrics...),
		Mode:               s.Mode,
		Filters:            append([]Filter(nil), s.Filters...),
		DirectionOverrides: make(map[string]bool, len(s.DirectionOverrides)),
	}
	for k, v := range s.DirectionOverrides {
		out.DirectionOverrides[k] = v
	}
	return out
}

// MetricValue is the raw (non-winsorized) value of a selected metric
type MetricValue struct {
	Metric  string  `json:"metric"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing"`
}

// RankedItem is one row of the ranked output
type RankedItem struct {
	Rank   int           `json:"rank"` // 1-based
	Index  int           `json:"index"`
	ID     string        `json:"id"`
	Symbol string        `json:"symbol"`
	Score  float64       `json:"score"`
	Values []MetricValue `json:"values"`
}

// RankedResult is the only artifact handed to the presentation layer.
// It is replaced wholesale on every recomputation.
type RankedResult struct {
	Mode         Mode         `json:"mode"`
	Metrics      []string     `json:"metrics"`
	Items        []RankedItem `json:"items"`
	PoolSize     int          `json:"pool_size"`
	TotalRecords int          `json:"total_records"`
	AutoFilters  []Filter     `json:"auto_filters,omitempty"`
}

// Indices returns the record indices in rank order
func (r RankedResult) Indices() []int {
	out := make([]int, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Index
	}
	return out
}

// IDs returns the identifiers in rank order
func (r RankedResult) IDs() []string {
	out := make([]string, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.ID
	}
	return out
}

// PoolSummary feeds UI counters
type PoolSummary struct {
	TotalRecords    int            `json:"total_records"`
	EligibleRecords int            `json:"eligible_records"`
	Excluded        map[string]int `json:"excluded,omitempty"` // reason -> count
}
