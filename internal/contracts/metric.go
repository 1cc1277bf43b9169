package contracts

import "fmt"

// Direction tells whether a larger metric value is better
type Direction string

const (
	DirectionMax Direction = "max" // higher is better
	DirectionMin Direction = "min" // lower is better
)

// ParseDirection accepts "max"/"min" (and "higher"/"lower" aliases)
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "max", "higher", "desc":
		return DirectionMax, nil
	case "min", "lower", "asc":
		return DirectionMin, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// HigherIsBetter reports whether the direction prefers larger values
func (d Direction) HigherIsBetter() bool {
	return d != DirectionMin
}

// DirectionFromBool maps a higher-is-better flag to a Direction
func DirectionFromBool(higherIsBetter bool) Direction {
	if higherIsBetter {
		return DirectionMax
	}
	return DirectionMin
}

// MetricKind groups metrics for guard decisions
type MetricKind string

const (
	KindReturn    MetricKind = "return"    // 수익률 (performance)
	KindRisk      MetricKind = "risk"      // 변동성/낙폭
	KindLiquidity MetricKind = "liquidity" // 거래대금
	KindSize      MetricKind = "size"      // 시가총액
)

// MetricDefinition is one entry of the static metric catalog.
// Immutable after process start.
type MetricDefinition struct {
	ID          string     `json:"id" yaml:"id"`
	Label       string     `json:"label" yaml:"label"`
	SourceField string     `json:"source_field" yaml:"source_field"`
	Unit        string     `json:"unit" yaml:"unit"`
	Direction   Direction  `json:"direction" yaml:"direction"`
	Kind        MetricKind `json:"kind" yaml:"kind"`

	// FloorGap is the smallest raw difference that is ever considered material
	// for this metric (same unit as the raw value).
	FloorGap float64 `json:"floor_gap" yaml:"floor_gap"`
}
