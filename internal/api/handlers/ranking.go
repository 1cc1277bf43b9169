package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/session"
	"github.com/wonny/cryptorank/pkg/logger"
)

// maxBodyBytes bounds mutation request bodies
const maxBodyBytes = 64 << 10

// RankingHandler exposes one ranking session over HTTP.
// Mutations are serialized; every mutation returns the fresh result.
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	mu      sync.Mutex
	session *session.Session
	logger  *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(s *session.Session, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		session: s,
		logger:  log,
	}
}

// RankingResponse is returned by GET /api/ranking and every mutation
type RankingResponse struct {
	SessionID string                 `json:"session_id"`
	State     contracts.RankingState `json:"state"`
	TopN      int                    `json:"top_n"`
	Result    contracts.RankedResult `json:"result"`
}

// DatasetInfo describes the loaded table
type DatasetInfo struct {
	Loaded  bool   `json:"loaded"`
	Source  string `json:"source,omitempty"`
	Records int    `json:"records"`
	Dropped int    `json:"dropped"`
}

// ApplyTable swaps the dataset of the session (scheduled reloads)
func (h *RankingHandler) ApplyTable(table *contracts.Table) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.session.LoadTable(table)
	return err
}

// Dataset returns information about the loaded table
func (h *RankingHandler) Dataset() DatasetInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := h.session.Table()
	if table == nil {
		return DatasetInfo{}
	}
	return DatasetInfo{
		Loaded:  true,
		Source:  table.Source,
		Records: table.Len(),
		Dropped: table.Dropped,
	}
}

// GetCatalog lists the available metrics
// GET /api/catalog
func (h *RankingHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": h.session.Catalog().All(),
	})
}

// GetRanking returns the current result
// GET /api/ranking
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := h.snapshot()
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, resp)
}

// GetPool returns the candidate pool counters
// GET /api/pool
func (h *RankingHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	summary := h.session.PoolSummary()
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, summary)
}

// PutMetrics replaces the ordered metric selection
// PUT /api/ranking/metrics {"metrics": ["ret_30d", "vol_30d"]}
func (h *RankingHandler) PutMetrics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metrics []string `json:"metrics"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	h.mutate(w, func(s *session.Session) error {
		_, err := s.SetSelectedMetrics(req.Metrics)
		return err
	})
}

// PutMode switches the scoring discipline
// PUT /api/ranking/mode {"mode": "priority"}
func (h *RankingHandler) PutMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	h.mutate(w, func(s *session.Session) error {
		_, err := s.SetMode(contracts.Mode(strings.ToLower(req.Mode)))
		return err
	})
}

// PostFilter adds a user filter. threshold may be a JSON string or number.
// POST /api/ranking/filters {"metric": "vol_30d", "operator": "<=", "threshold": "80"}
func (h *RankingHandler) PostFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metric    string          `json:"metric"`
		Operator  string          `json:"operator"`
		Threshold json.RawMessage `json:"threshold"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	h.mutate(w, func(s *session.Session) error {
		_, err := s.AddFilter(req.Metric, req.Operator, thresholdText(req.Threshold))
		return err
	})
}

// DeleteFilter removes the user filter at index
// DELETE /api/ranking/filters/{index}
func (h *RankingHandler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "filter index must be an integer")
		return
	}

	h.mutate(w, func(s *session.Session) error {
		_, err := s.RemoveFilter(index)
		return err
	})
}

// PutDirection overrides the direction of one metric
// PUT /api/ranking/directions/{metric} {"higher_is_better": false}
func (h *RankingHandler) PutDirection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HigherIsBetter *bool `json:"higher_is_better"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.HigherIsBetter == nil {
		respondError(w, http.StatusBadRequest, "higher_is_better is required")
		return
	}

	metric := mux.Vars(r)["metric"]
	h.mutate(w, func(s *session.Session) error {
		_, err := s.SetDirectionOverride(metric, *req.HigherIsBetter)
		return err
	})
}

// PutTopN changes the result size
// PUT /api/ranking/top {"top_n": 20}
func (h *RankingHandler) PutTopN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TopN int `json:"top_n"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	h.mutate(w, func(s *session.Session) error {
		_, err := s.SetTopN(req.TopN)
		return err
	})
}

// PostReset restores the default state
// POST /api/ranking/reset
func (h *RankingHandler) PostReset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, func(s *session.Session) error {
		_, err := s.Reset()
		return err
	})
}

// mutate applies fn under the lock and responds with the fresh state
func (h *RankingHandler) mutate(w http.ResponseWriter, fn func(s *session.Session) error) {
	h.mu.Lock()
	err := fn(h.session)
	resp := h.snapshot()
	h.mu.Unlock()

	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// snapshot must be called with mu held
func (h *RankingHandler) snapshot() RankingResponse {
	return RankingResponse{
		SessionID: h.session.ID(),
		State:     h.session.State(),
		TopN:      h.session.TopN(),
		Result:    h.session.Result(),
	}
}

func (h *RankingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithError(err).Debug("Invalid request body")
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// thresholdText keeps the user's text for ParseThreshold
func thresholdText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// statusFor maps mutator errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrFilterIndex):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrNoDataset):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
