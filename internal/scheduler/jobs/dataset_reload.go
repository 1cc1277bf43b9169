package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/pkg/logger"
)

// TableLoader fetches a fresh record table (dataset.Loader)
type TableLoader interface {
	Load(ctx context.Context) (*contracts.Table, error)
}

// ApplyFunc hands a loaded table to the ranking session
type ApplyFunc func(table *contracts.Table) error

// DatasetReloadJob reloads the screener table through the fallback chain
// and swaps it into the running session. The ranking state is kept.
type DatasetReloadJob struct {
	loader   TableLoader
	apply    ApplyFunc
	schedule string
	logger   *logger.Logger
}

// NewDatasetReloadJob creates a new dataset reload job
func NewDatasetReloadJob(loader TableLoader, apply ApplyFunc, schedule string, log *logger.Logger) *DatasetReloadJob {
	return &DatasetReloadJob{
		loader:   loader,
		apply:    apply,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DatasetReloadJob) Name() string {
	return "dataset_reload"
}

// Schedule returns the configured cron expression (RELOAD_SCHEDULE)
func (j *DatasetReloadJob) Schedule() string {
	return j.schedule
}

// Run loads and applies the table
func (j *DatasetReloadJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled dataset reload")

	table, err := j.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if err := j.apply(table); err != nil {
		return fmt.Errorf("apply dataset: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"source":  table.Source,
		"records": table.Len(),
	}).Info("Dataset reloaded")
	return nil
}
