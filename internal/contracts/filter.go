package contracts

import (
	"fmt"
	"strconv"
)

// Operator is a relational filter operator
type Operator string

const (
	OpGE Operator = ">="
	OpGT Operator = ">"
	OpEQ Operator = "="
	OpLT Operator = "<"
	OpLE Operator = "<="
	OpNE Operator = "!="
)

// ParseOperator normalizes user input into an Operator
func ParseOperator(s string) (Operator, error) {
	switch s {
	case ">=", "≥", "=>":
		return OpGE, nil
	case ">":
		return OpGT, nil
	case "=", "==":
		return OpEQ, nil
	case "<":
		return OpLT, nil
	case "<=", "≤", "=<":
		return OpLE, nil
	case "!=", "<>", "≠":
		return OpNE, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// IsCeiling reports whether the operator caps a value from above
func (o Operator) IsCeiling() bool {
	return o == OpLT || o == OpLE
}

// Filter is a relational predicate on one metric.
// IsAuto filters are injected by the guard and never stored in RankingState.
type Filter struct {
	Metric    string   `json:"metric"`
	Operator  Operator `json:"operator"`
	Threshold float64  `json:"threshold"`
	IsAuto    bool     `json:"is_auto"`
}

func (f Filter) String() string {
	return f.Metric + " " + string(f.Operator) + " " + strconv.FormatFloat(f.Threshold, 'f', -1, 64)
}
