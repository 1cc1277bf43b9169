package contracts

import (
	"context"
	"errors"
)

var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrFilterIndex      = errors.New("filter index out of range")
	ErrNoDataset        = errors.New("no dataset loaded")
)

// TableSource produces a parsed record table (data acquisition collaborator)
// ⭐ SSOT: 데이터 소스 인터페이스
type TableSource interface {
	Name() string
	Load(ctx context.Context) (*Table, error)
}
