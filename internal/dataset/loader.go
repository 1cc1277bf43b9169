package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/metrics"
	"github.com/wonny/cryptorank/pkg/config"
	"github.com/wonny/cryptorank/pkg/httputil"
	"github.com/wonny/cryptorank/pkg/logger"
	"github.com/wonny/cryptorank/pkg/redis"
)

// SourcePostgres is the DATASET_SOURCES entry selecting the Postgres source
const SourcePostgres = "postgres"

// SnapshotStore keeps the last good table of each source (implemented by *redis.Cache)
type SnapshotStore interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Loader walks a fallback chain of sources; the first one that yields a table wins.
// Every attempt is logged. Successful loads are snapshotted when a cache is set,
// and a failing source falls back to its snapshot before the chain moves on.
// ⭐ SSOT: 데이터셋 로딩은 여기서만
type Loader struct {
	sources  []contracts.TableSource
	cache    SnapshotStore
	cacheTTL time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
	catalog  *catalog.Catalog // quality report after each load when set
}

// NewLoader creates a loader. cache and m may be nil.
func NewLoader(sources []contracts.TableSource, cache SnapshotStore, cacheTTL time.Duration, log *logger.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		sources:  sources,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
		metrics:  m,
	}
}

// WithCatalog enables a coverage report for every loaded table
func (l *Loader) WithCatalog(cat *catalog.Catalog) *Loader {
	l.catalog = cat
	return l
}

// Sources returns the names of the configured sources in fallback order
func (l *Loader) Sources() []string {
	out := make([]string, len(l.sources))
	for i, s := range l.sources {
		out[i] = s.Name()
	}
	return out
}

// Load returns the first table any source produces
func (l *Loader) Load(ctx context.Context) (*contracts.Table, error) {
	if len(l.sources) == 0 {
		return nil, errors.New("no dataset sources configured")
	}

	var errs []error
	for attempt, src := range l.sources {
		log := l.logger.WithFields(map[string]interface{}{
			"source":  src.Name(),
			"attempt": attempt + 1,
		})

		start := time.Now()
		table, err := src.Load(ctx)
		if err != nil {
			l.metrics.IncDatasetLoad(src.Name(), metrics.StatusFailure)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))

			if ctx.Err() != nil {
				log.WithError(err).Warn("Dataset source failed")
				break
			}

			// live source 실패 시에만 snapshot 사용 (reload마다 stale table 재적용 방지)
			if snap, ok := l.cached(ctx, src.Name()); ok {
				l.metrics.IncDatasetLoad(src.Name(), metrics.StatusCached)
				log.WithError(err).WithField("records", snap.Len()).Warn("Dataset source failed, serving last snapshot")
				return snap, nil
			}

			log.WithError(err).Warn("Dataset source failed, trying next")
			continue
		}

		l.metrics.IncDatasetLoad(src.Name(), metrics.StatusSuccess)
		log.WithFields(map[string]interface{}{
			"records":     table.Len(),
			"dropped":     table.Dropped,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Dataset loaded")

		l.snapshot(ctx, src.Name(), table)
		l.reportQuality(src.Name(), table)
		return table, nil
	}

	return nil, fmt.Errorf("all dataset sources failed: %w", errors.Join(errs...))
}

// coverage below this is worth a warning
const minCoverage = 0.5

func (l *Loader) reportQuality(source string, table *contracts.Table) {
	if l.catalog == nil {
		return
	}

	report := CheckQuality(table, l.catalog)
	log := l.logger.WithFields(map[string]interface{}{
		"source":  source,
		"score":   report.Score,
		"records": report.TotalRecords,
		"dropped": report.Dropped,
	})
	if sparse := report.Uncovered(l.catalog, minCoverage); len(sparse) > 0 {
		log.WithField("sparse_metrics", sparse).Warn("Dataset has sparse metrics")
		return
	}
	log.Debug("Dataset quality checked")
}

func (l *Loader) cached(ctx context.Context, source string) (*contracts.Table, bool) {
	if l.cache == nil || !l.cache.Enabled() {
		return nil, false
	}

	var table contracts.Table
	found, err := l.cache.Get(ctx, redis.SnapshotKey(source), &table)
	if err != nil {
		l.logger.WithError(err).WithField("source", source).Warn("Snapshot cache read failed")
		return nil, false
	}
	if !found || table.Len() == 0 {
		return nil, false
	}
	return &table, true
}

func (l *Loader) snapshot(ctx context.Context, source string, table *contracts.Table) {
	if l.cache == nil || !l.cache.Enabled() || l.cacheTTL <= 0 {
		return
	}
	if err := l.cache.Set(ctx, redis.SnapshotKey(source), table, l.cacheTTL); err != nil {
		l.logger.WithError(err).WithField("source", source).Warn("Snapshot cache write failed")
	}
}

// Deps are the optional collaborators of configured sources
type Deps struct {
	HTTP *httputil.Client
	DB   Querier
}

// NewSources builds the fallback chain from DATASET_SOURCES.
// Entries are file paths, http(s) URLs, or "postgres".
func NewSources(cfg *config.Config, cat *catalog.Catalog, deps Deps) ([]contracts.TableSource, error) {
	delim, err := ParseDelimiter(cfg.Dataset.Delimiter)
	if err != nil {
		return nil, err
	}
	opts := ParseOptions{
		Delimiter: delim,
		Fields:    cat.SourceFields(),
	}

	sources := make([]contracts.TableSource, 0, len(cfg.Dataset.Sources))
	for _, entry := range cfg.Dataset.Sources {
		switch {
		case entry == SourcePostgres:
			if deps.DB == nil {
				return nil, fmt.Errorf("source %q requires a database connection", entry)
			}
			sources = append(sources, NewPostgresSource(deps.DB, cfg.Dataset.Query, opts))
		case strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://"):
			if deps.HTTP == nil {
				return nil, fmt.Errorf("source %q requires an http client", entry)
			}
			sources = append(sources, NewHTTPSource(entry, deps.HTTP, opts))
		default:
			sources = append(sources, NewFileSource(entry, opts))
		}
	}
	return sources, nil
}
