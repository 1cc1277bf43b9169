package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/internal/api/handlers"
	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/metrics"
	"github.com/wonny/cryptorank/internal/session"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/config"
	"github.com/wonny/cryptorank/pkg/logger"
	"github.com/wonny/cryptorank/pkg/redis"
)

func record(symbol, ret30, ret90, vol30 string) contracts.Record {
	return contracts.Record{
		Symbol: symbol,
		ID:     contracts.ExtractTicker(symbol),
		Fields: map[string]string{"ret_30d_pct": ret30, "ret_90d_pct": ret90, "vol_30d_pct": vol30},
	}
}

func testTable() *contracts.Table {
	return &contracts.Table{Source: "test", Records: []contracts.Record{
		record("BINANCE:BTC/USDT", "10", "20", "50"),
		record("BINANCE:ETH/USDT", "15", "25", "70"),
		record("BINANCE:DOGE/USDT", "80", "150", "220"),
		record("BINANCE:USDC/USDT", "0", "0", "1"),
	}}
}

type testServer struct {
	handler http.Handler
	ranking *handlers.RankingHandler
}

func newTestServer(t *testing.T, withTable bool) *testServer {
	t.Helper()

	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	s := session.New(catalog.Default(), tuning.Default(), logger.Nop(), m)
	if withTable {
		_, err := s.LoadTable(testTable())
		require.NoError(t, err)
	}

	client, err := redis.New(&config.Config{})
	require.NoError(t, err)

	h := handlers.NewRankingHandler(s, logger.Nop())
	return &testServer{
		ranking: h,
		handler: NewRouter(RouterDeps{
			Ranking:     h,
			Limiter:     redis.NewRateLimiter(client, "cryptorank"),
			MutationCap: 60,
			Gatherer:    reg,
			Logger:      logger.Nop(),
		}),
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeRanking(t *testing.T, rec *httptest.ResponseRecorder) handlers.RankingResponse {
	t.Helper()
	var resp handlers.RankingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	require.NoError(t, ts.ranking.ApplyTable(testTable()))
	rec = ts.do(t, http.MethodGet, "/health", "")
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"records":4`)
}

func TestGetCatalog(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Metrics []contracts.MetricDefinition `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Metrics, len(catalog.Default().All()))
}

func TestGetRanking(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/ranking", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeRanking(t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, contracts.ModeBalanced, resp.Result.Mode)
	assert.ElementsMatch(t, []string{"BTC", "ETH", "DOGE"}, resp.Result.IDs())
	assert.Equal(t, 10, resp.TopN)
}

func TestMutations(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPut, "/api/ranking/metrics", `{"metrics":["ret_30d","ret_90d"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ret_30d", "ret_90d"}, decodeRanking(t, rec).State.SelectedMetrics)

	rec = ts.do(t, http.MethodPut, "/api/ranking/mode", `{"mode":"PRIORITY"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRanking(t, rec)
	assert.Equal(t, contracts.ModePriority, resp.Result.Mode)
	require.Len(t, resp.Result.AutoFilters, 1)
	assert.NotContains(t, resp.Result.IDs(), "DOGE")

	rec = ts.do(t, http.MethodPost, "/api/ranking/filters", `{"metric":"ret_30d","operator":">=","threshold":"12,5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeRanking(t, rec)
	require.Len(t, resp.State.Filters, 1)
	assert.Equal(t, 12.5, resp.State.Filters[0].Threshold)
	assert.Equal(t, []string{"ETH"}, resp.Result.IDs())

	rec = ts.do(t, http.MethodPost, "/api/ranking/filters", `{"metric":"vol_30d","operator":"<","threshold":300}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeRanking(t, rec).Result.AutoFilters)

	rec = ts.do(t, http.MethodDelete, "/api/ranking/filters/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeRanking(t, rec).State.Filters, 1)

	rec = ts.do(t, http.MethodPut, "/api/ranking/directions/ret_30d", `{"higher_is_better":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"ret_30d": false}, decodeRanking(t, rec).State.DirectionOverrides)

	rec = ts.do(t, http.MethodPut, "/api/ranking/top", `{"top_n":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeRanking(t, rec).Result.Items, 1)

	rec = ts.do(t, http.MethodPost, "/api/ranking/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeRanking(t, rec)
	assert.Empty(t, resp.State.Filters)
	assert.Equal(t, contracts.ModeBalanced, resp.State.Mode)
	assert.Equal(t, 10, resp.TopN)
}

func TestMutations_Rejected(t *testing.T) {
	ts := newTestServer(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown metric", http.MethodPut, "/api/ranking/metrics", `{"metrics":["sharpe"]}`, http.StatusBadRequest},
		{"bad mode", http.MethodPut, "/api/ranking/mode", `{"mode":"weighted"}`, http.StatusBadRequest},
		{"bad threshold", http.MethodPost, "/api/ranking/filters", `{"metric":"ret_30d","operator":">=","threshold":"abc"}`, http.StatusBadRequest},
		{"bad operator", http.MethodPost, "/api/ranking/filters", `{"metric":"ret_30d","operator":"~","threshold":1}`, http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/api/ranking/mode", `{"mode":"priority","x":1}`, http.StatusBadRequest},
		{"malformed", http.MethodPut, "/api/ranking/metrics", `{"metrics":`, http.StatusBadRequest},
		{"filter index", http.MethodDelete, "/api/ranking/filters/3", "", http.StatusNotFound},
		{"filter index text", http.MethodDelete, "/api/ranking/filters/abc", "", http.StatusBadRequest},
		{"direction missing", http.MethodPut, "/api/ranking/directions/ret_30d", `{}`, http.StatusBadRequest},
		{"direction metric", http.MethodPut, "/api/ranking/directions/sharpe", `{"higher_is_better":true}`, http.StatusBadRequest},
		{"top n", http.MethodPut, "/api/ranking/top", `{"top_n":0}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	// state untouched
	resp := decodeRanking(t, ts.do(t, http.MethodGet, "/api/ranking", ""))
	assert.Empty(t, resp.State.Filters)
	assert.Equal(t, contracts.ModeBalanced, resp.State.Mode)
}

func TestGetPool(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/pool", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary contracts.PoolSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, 3, summary.EligibleRecords)
	assert.Equal(t, 1, summary.Excluded["excluded"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPut, "/api/ranking/mode", `{"mode":"priority"}`)

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), metrics.MetricRecomputationsTotal)
}

func TestNotFoundAndMethod(t *testing.T) {
	ts := newTestServer(t, true)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/unknown", "").Code)
	assert.NotEqual(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/ranking", "").Code)
}
