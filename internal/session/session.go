// Package session owns the mutable ranking state and re-runs the ranking
// pipeline on every mutation.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/guard"
	"github.com/wonny/cryptorank/internal/metrics"
	"github.com/wonny/cryptorank/internal/normalize"
	"github.com/wonny/cryptorank/internal/screening"
	"github.com/wonny/cryptorank/internal/selection"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/logger"
)

// Session is one ranking session over one loaded table.
// Every mutator validates its input, applies it, recomputes synchronously and
// returns the fresh result. Invalid input leaves the state untouched.
// A Session is not safe for concurrent use; callers serialize mutations.
// ⭐ SSOT: RankingState 변경은 여기서만
type Session struct {
	id         string
	cat        *catalog.Catalog
	cfg        *tuning.Config
	guard      *guard.AutoGuard
	ranker     *selection.Ranker
	exclusions catalog.ExclusionSet
	logger     *logger.Logger
	metrics    *metrics.Metrics

	// per dataset
	table   *contracts.Table
	cache   *normalize.Cache
	builder *screening.Builder

	state  contracts.RankingState
	topN   int
	pool   screening.Pool
	result contracts.RankedResult
}

// New creates a session with the default state of cfg. m may be nil.
func New(cat *catalog.Catalog, cfg *tuning.Config, log *logger.Logger, m *metrics.Metrics) *Session {
	exclusions := cfg.Eligibility.Exclusions
	if exclusions == nil {
		exclusions = catalog.DefaultExclusions
	}

	s := &Session{
		id:         uuid.NewString(),
		cat:        cat,
		cfg:        cfg,
		guard:      guard.New(cfg.AutoGuard, cat),
		ranker:     selection.NewRanker(cfg, log),
		exclusions: catalog.NewExclusionSet(exclusions...),
		metrics:    m,
		topN:       cfg.Result.TopN,
	}
	s.logger = log.WithField("session_id", s.id)
	s.state = s.defaultState()

	hash, _ := tuning.Hash(cfg)
	s.logger.WithFields(map[string]interface{}{
		"profile":     cfg.Meta.ProfileID,
		"tuning_hash": hash,
		"metrics":     s.state.SelectedMetrics,
		"mode":        string(s.state.Mode),
	}).Info("Ranking session created")

	s.recompute()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the metric catalog
func (s *Session) Catalog() *catalog.Catalog {
	return s.cat
}

// State returns a copy of the current ranking state
func (s *Session) State() contracts.RankingState {
	return s.state.Clone()
}

// Table returns the loaded table (nil before LoadTable)
func (s *Session) Table() *contracts.Table {
	return s.table
}

// TopN returns the result size limit
func (s *Session) TopN() int {
	return s.topN
}

// Result returns the most recent ranked result
func (s *Session) Result() contracts.RankedResult {
	return s.result
}

// PoolSummary returns counters for the most recent candidate pool
func (s *Session) PoolSummary() contracts.PoolSummary {
	return s.pool.Summary()
}

// LoadTable replaces the dataset, rebuilds every metric cache and recomputes.
// The ranking state is kept.
func (s *Session) LoadTable(table *contracts.Table) (contracts.RankedResult, error) {
	if table == nil {
		return s.reject("load_table", contracts.ErrNoDataset)
	}

	start := time.Now()
	s.table = table
	s.cache = normalize.Build(s.cat, table, s.cfg.Normalization)
	eval := screening.NewEvaluator(s.cache, s.exclusions, s.cfg.Eligibility)
	s.builder = screening.NewBuilder(table, eval, s.cfg.Eligibility.AllowedMissing, s.logger)
	s.metrics.SetDatasetRecords(table.Len())

	s.logger.WithFields(map[string]interface{}{
		"source":      table.Source,
		"records":     table.Len(),
		"dropped":     table.Dropped,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Dataset loaded into session")

	return s.recompute(), nil
}

// SetSelectedMetrics replaces the ordered metric selection (list order = priority order).
// Duplicates are dropped keeping the first occurrence. An empty list is allowed.
func (s *Session) SetSelectedMetrics(ids []string) (contracts.RankedResult, error) {
	if err := s.cat.Validate(ids...); err != nil {
		return s.reject("set_metrics", err)
	}

	selected := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			selected = append(selected, id)
		}
	}

	s.state.SelectedMetrics = selected
	return s.recompute(), nil
}

// SetMode switches the scoring discipline
func (s *Session) SetMode(mode contracts.Mode) (contracts.RankedResult, error) {
	m, err := contracts.ParseMode(string(mode))
	if err != nil {
		return s.reject("set_mode", err)
	}

	s.state.Mode = m
	return s.recompute(), nil
}

// AddFilter parses and appends a user filter
func (s *Session) AddFilter(metric, operator, threshold string) (contracts.RankedResult, error) {
	if err := s.cat.Validate(metric); err != nil {
		return s.reject("add_filter", err)
	}
	op, err := contracts.ParseOperator(operator)
	if err != nil {
		return s.reject("add_filter", err)
	}
	v, err := ParseThreshold(threshold)
	if err != nil {
		return s.reject("add_filter", err)
	}

	s.state.Filters = append(s.state.Filters, contracts.Filter{
		Metric:    metric,
		Operator:  op,
		Threshold: v,
	})
	return s.recompute(), nil
}

// RemoveFilter removes the user filter at index
func (s *Session) RemoveFilter(index int) (contracts.RankedResult, error) {
	if index < 0 || index >= len(s.state.Filters) {
		return s.reject("remove_filter", fmt.Errorf("%w: %d (have %d)", contracts.ErrFilterIndex, index, len(s.state.Filters)))
	}

	filters := make([]contracts.Filter, 0, len(s.state.Filters)-1)
	filters = append(filters, s.state.Filters[:index]...)
	filters = append(filters, s.state.Filters[index+1:]...)
	s.state.Filters = filters
	return s.recompute(), nil
}

// SetDirectionOverride overrides the catalog direction of one metric.
// Setting it back to the catalog default removes the override.
func (s *Session) SetDirectionOverride(metric string, higherIsBetter bool) (contracts.RankedResult, error) {
	def, ok := s.cat.Get(metric)
	if !ok {
		return s.reject("set_direction", fmt.Errorf("%w: %q", contracts.ErrUnknownMetric, metric))
	}

	if def.Direction.HigherIsBetter() == higherIsBetter {
		delete(s.state.DirectionOverrides, metric)
	} else {
		s.state.DirectionOverrides[metric] = higherIsBetter
	}
	return s.recompute(), nil
}

// SetTopN changes the result size limit
func (s *Session) SetTopN(n int) (contracts.RankedResult, error) {
	if n < 1 {
		return s.reject("set_top_n", fmt.Errorf("top n must be >= 1, got %d", n))
	}
	s.topN = n
	return s.recompute(), nil
}

// Reset restores the default state of the tuning profile
func (s *Session) Reset() (contracts.RankedResult, error) {
	s.state = s.defaultState()
	s.topN = s.cfg.Result.TopN
	return s.recompute(), nil
}

// Direction returns the effective direction of metric in the current state
func (s *Session) Direction(metric string) contracts.Direction {
	if v, ok := s.state.DirectionOverrides[metric]; ok {
		return contracts.DirectionFromBool(v)
	}
	if def, ok := s.cat.Get(metric); ok {
		return def.Direction
	}
	return contracts.DirectionMax
}

func (s *Session) defaultState() contracts.RankingState {
	mode, err := contracts.ParseMode(s.cfg.Result.DefaultMode)
	if err != nil {
		mode = contracts.ModeBalanced
	}

	selected := make([]string, 0, len(s.cfg.Result.DefaultMetrics))
	for _, id := range s.cfg.Result.DefaultMetrics {
		if s.cat.Has(id) {
			selected = append(selected, id)
		}
	}

	return contracts.RankingState{
		SelectedMetrics:    selected,
		Mode:               mode,
		Filters:            []contracts.Filter{},
		DirectionOverrides: map[string]bool{},
	}
}

func (s *Session) reject(op string, err error) (contracts.RankedResult, error) {
	s.metrics.IncRejected(op)
	s.logger.WithError(err).WithField("operation", op).Warn("Mutation rejected")
	return s.result, err
}

func (s *Session) criteria() []selection.Criterion {
	out := make([]selection.Criterion, 0, len(s.state.SelectedMetrics))
	for _, id := range s.state.SelectedMetrics {
		def := s.cat.MustGet(id)
		out = append(out, selection.Criterion{
			Metric:         id,
			HigherIsBetter: s.Direction(id).HigherIsBetter(),
			FloorGap:       def.FloorGap,
		})
	}
	return out
}

// recompute runs CandidatePool -> AutoGuard -> ScoringEngine and publishes a new result.
// Never fails: degenerate input yields an empty result.
func (s *Session) recompute() contracts.RankedResult {
	start := time.Now()
	state := s.state

	result := contracts.RankedResult{
		Mode:         state.Mode,
		Metrics:      append([]string{}, state.SelectedMetrics...),
		Items:        []contracts.RankedItem{},
		TotalRecords: s.table.Len(),
	}

	if s.table == nil || len(state.SelectedMetrics) == 0 {
		s.pool = screening.Pool{Indices: []int{}, Total: s.table.Len(), Excluded: map[string]int{}}
		s.result = result
		return result
	}

	// auto filters live only for this cycle
	guards := s.guard.Filters(state)

	s.pool = s.builder.Build(screening.Request{
		Metrics: state.SelectedMetrics,
		Filters: state.Filters,
		Guards:  guards,
	})

	result.Items = s.ranker.Rank(state.Mode, selection.Input{
		Table:    s.table,
		Cache:    s.cache,
		Pool:     s.pool.Indices,
		Criteria: s.criteria(),
		TopN:     s.topN,
	})
	result.PoolSize = s.pool.Size()
	result.AutoFilters = guards

	elapsed := time.Since(start)
	s.metrics.ObserveRecompute(string(state.Mode), elapsed.Seconds(), result.PoolSize)
	s.logger.WithFields(map[string]interface{}{
		"mode":        string(state.Mode),
		"metrics":     state.SelectedMetrics,
		"filters":     len(state.Filters),
		"auto":        len(guards),
		"pool":        result.PoolSize,
		"duration_us": elapsed.Microseconds(),
	}).Debug("Ranking recomputed")

	s.result = result
	return result
}
