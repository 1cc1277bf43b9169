package commands

import (
	"context"
	"fmt"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/dataset"
	"github.com/wonny/cryptorank/internal/metrics"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/config"
	"github.com/wonny/cryptorank/pkg/database"
	"github.com/wonny/cryptorank/pkg/httputil"
	"github.com/wonny/cryptorank/pkg/logger"
	"github.com/wonny/cryptorank/pkg/redis"
)

// app bundles everything a command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	tuning  *tuning.Config
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	loader  *dataset.Loader
	redis   *redis.Client
	db      *database.DB
}

// bootstrap wires config, logging, tuning and the dataset loader.
// Callers must call close().
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(sources) > 0 {
		cfg.Dataset.Sources = sources
	}
	if tuningFile != "" {
		cfg.TuningFile = tuningFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	a := &app{
		cfg:     cfg,
		log:     logger.New(cfg),
		catalog: catalog.Default(),
		metrics: metrics.NewMetrics(),
	}

	a.tuning, err = tuning.LoadOrDefault(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("load tuning profile: %w", err)
	}
	if err := tuning.ValidateMetrics(a.tuning, a.catalog); err != nil {
		return nil, fmt.Errorf("tuning profile: %w", err)
	}

	deps := dataset.Deps{HTTP: httputil.New(cfg, a.log)}
	for _, src := range cfg.Dataset.Sources {
		if src != dataset.SourcePostgres {
			continue
		}
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		deps.DB = a.db.Pool
		a.log.Info("Connected to database")
		break
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		// 캐시는 선택 사항
		a.log.WithError(err).Warn("Redis unavailable, snapshot cache disabled")
		a.redis, _ = redis.New(&config.Config{})
	}

	srcs, err := dataset.NewSources(cfg, a.catalog, deps)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("dataset sources: %w", err)
	}
	cache := redis.NewCache(a.redis, "cryptorank")
	a.loader = dataset.NewLoader(srcs, cache, cfg.Dataset.CacheTTL, a.log, a.metrics).WithCatalog(a.catalog)

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
