package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/metrics"
	"github.com/wonny/cryptorank/internal/normalize"
	"github.com/wonny/cryptorank/internal/tuning"
	"github.com/wonny/cryptorank/pkg/config"
	"github.com/wonny/cryptorank/pkg/httputil"
	"github.com/wonny/cryptorank/pkg/logger"
	"github.com/wonny/cryptorank/pkg/redis"
)

const screenerCSV = `symbol,ret_30d_pct,vol_30d_pct,notes
BINANCE:BTC/USDT,10.5,45,core
BINANCE:ETH/USDT,12,60,
BINANCE:SOL/USDT,n/a,90,"quoted, note"
broken,row
,1,2,x
`

func opts() ParseOptions {
	return ParseOptions{Source: "test", Fields: catalog.Default().SourceFields()}
}

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(screenerCSV), opts())
	require.NoError(t, err)

	require.Equal(t, 3, table.Len())
	assert.Equal(t, 2, table.Dropped)
	assert.Equal(t, "test", table.Source)

	btc := table.Records[0]
	assert.Equal(t, "BTC", btc.ID)
	assert.Equal(t, "BINANCE:BTC/USDT", btc.Symbol)
	assert.Equal(t, "10.5", btc.Fields["ret_30d_pct"])
	_, hasNotes := btc.Fields["notes"]
	assert.False(t, hasNotes, "unknown columns are ignored")

	assert.Equal(t, "n/a", table.Records[2].Fields["ret_30d_pct"])
}

func TestParse_Semicolon(t *testing.T) {
	in := "Symbol;RET_30D_PCT;vol_30d_pct\r\n" +
		"KRAKEN:XRP-USD;1,5;30\r\n" +
		"KRAKEN:ADA-USD;2,0;45,25\r\n" +
		"KRAKEN:DOT-USD;12;1.234,5\r\n"
	table, err := Parse(strings.NewReader(in), opts())
	require.NoError(t, err)

	require.Equal(t, 3, table.Len())
	assert.Equal(t, "XRP", table.Records[0].ID)
	assert.Equal(t, "1,5", table.Records[0].Fields["ret_30d_pct"])

	// decimal commas survive into the metric cache
	cache := normalize.Build(catalog.Default(), table, tuning.Default().Normalization)
	ret, ok := cache.Metric("ret_30d")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1.5, 2, 12}, ret.Raw, 1e-12)

	vol, ok := cache.Metric("vol_30d")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{30, 45.25, 1234.5}, vol.Raw, 1e-12)
}

func TestParse_HeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no symbol", "ticker,ret_30d_pct\nBTC,1\n"},
		{"no metrics", "symbol,foo\nBTC,1\n"},
		{"duplicate", "symbol,ret_30d_pct,ret_30d_pct\nBTC,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), opts())
			assert.True(t, errors.Is(err, ErrHeader), "got %v", err)
		})
	}
}

func TestParse_NoValidRows(t *testing.T) {
	_, err := Parse(strings.NewReader("symbol,ret_30d_pct\nBTC\n"), opts())
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter([]byte("a,b,c\n1;2;3;4;5")))
	assert.Equal(t, ';', DetectDelimiter([]byte("a;b;c")))
	assert.Equal(t, '\t', DetectDelimiter([]byte("a\tb\tc,d")))
	assert.Equal(t, ',', DetectDelimiter([]byte("single")))
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', "semicolon": ';', "tab": '\t', `\t`: '\t'} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDelimiter("|")
	assert.Error(t, err)
}

func TestTableFromRows(t *testing.T) {
	names := []string{"symbol", "ret_30d_pct", "vol_30d_pct"}
	values := [][]any{
		{"BINANCE:BTC/USDT", 10.5, int64(45)},
		{"BINANCE:ETH/USDT", nil, 60.25},
		{nil, 1.0, 2.0},
		{"BINANCE:SOL/USDT", struct{}{}, 1.0},
	}

	table, err := tableFromRows(names, values, opts())
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, 2, table.Dropped)
	assert.Equal(t, "10.5", table.Records[0].Fields["ret_30d_pct"])
	assert.Equal(t, "45", table.Records[0].Fields["vol_30d_pct"])
	assert.Equal(t, "", table.Records[1].Fields["ret_30d_pct"])
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screener.csv")
	require.NoError(t, os.WriteFile(path, []byte(screenerCSV), 0o600))

	src := NewFileSource(path, opts())
	assert.Equal(t, path, src.Name())

	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, path, table.Source)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv"), opts()).Load(context.Background())
	assert.Error(t, err)
}

func testHTTPClient() *httputil.Client {
	cfg := &config.Config{Dataset: config.DatasetConfig{HTTPRateLimit: 100}}
	return httputil.New(cfg, logger.Nop()).DisableRetry()
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(screenerCSV))
	}))
	defer server.Close()

	table, err := NewHTTPSource(server.URL, testHTTPClient(), opts()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, server.URL, table.Source)
}

type stubSource struct {
	name  string
	table *contracts.Table
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(ctx context.Context) (*contracts.Table, error) {
	s.calls++
	return s.table, s.err
}

func TestLoader_Fallback(t *testing.T) {
	first := &stubSource{name: "primary.csv", err: errors.New("no such file")}
	second := &stubSource{name: "https://mirror", table: &contracts.Table{Records: []contracts.Record{{ID: "BTC"}}}}
	third := &stubSource{name: "postgres", err: errors.New("unused")}

	m := metrics.NewMetrics()
	loader := NewLoader([]contracts.TableSource{first, second, third}, nil, time.Minute, logger.Nop(), m)
	assert.Equal(t, []string{"primary.csv", "https://mirror", "postgres"}, loader.Sources())

	table, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "first reachable source wins")
}

func TestLoader_AllFail(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("boom")}
	b := &stubSource{name: "b", err: ErrEmptyTable}

	_, err := NewLoader([]contracts.TableSource{a, b}, nil, 0, logger.Nop(), nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyTable))
	assert.Contains(t, err.Error(), "a: boom")

	_, err = NewLoader(nil, nil, 0, logger.Nop(), nil).Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_DisabledCache(t *testing.T) {
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	cache := redis.NewCache(client, "cryptorank")

	src := &stubSource{name: "a", table: &contracts.Table{Records: []contracts.Record{{ID: "ETH"}}}}
	loader := NewLoader([]contracts.TableSource{src}, cache, time.Minute, logger.Nop(), nil)

	for i := 0; i < 2; i++ {
		_, err := loader.Load(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls, "disabled cache never short-circuits")
}

// memoryStore is an in-process SnapshotStore with redis.Cache semantics (JSON values)
type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Enabled() bool { return true }

func (m *memoryStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func TestLoader_SnapshotOnlyAfterFailure(t *testing.T) {
	store := newMemoryStore()
	src := &stubSource{name: "primary.csv", table: &contracts.Table{
		Source:  "primary.csv",
		Records: []contracts.Record{{ID: "ETH", Symbol: "BINANCE:ETH/USDT"}},
	}}
	next := &stubSource{name: "https://mirror", err: errors.New("unused")}
	loader := NewLoader([]contracts.TableSource{src, next}, store, time.Minute, logger.Nop(), metrics.NewMetrics())

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, store.data, redis.SnapshotKey("primary.csv"))

	// a fresh table replaces the previous one on every reload
	src.table = &contracts.Table{Records: []contracts.Record{{ID: "SOL"}, {ID: "ADA"}}}
	table, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []string{"SOL", "ADA"}, []string{table.Records[0].ID, table.Records[1].ID})

	// live source down: last snapshot of that source, chain stops there
	src.table, src.err = nil, errors.New("connection refused")
	table, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 0, next.calls)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "SOL", table.Records[0].ID)
}

func TestNewSources(t *testing.T) {
	cfg := &config.Config{Dataset: config.DatasetConfig{
		Sources: []string{"data/screener.csv", "https://example.com/screener.csv", SourcePostgres},
		Query:   "SELECT 1",
	}}

	_, err := NewSources(cfg, catalog.Default(), Deps{HTTP: testHTTPClient()})
	assert.Error(t, err, "postgres needs a database")

	cfg.Dataset.Sources = cfg.Dataset.Sources[:2]
	sources, err := NewSources(cfg, catalog.Default(), Deps{HTTP: testHTTPClient()})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.IsType(t, &FileSource{}, sources[0])
	assert.IsType(t, &HTTPSource{}, sources[1])

	cfg.Dataset.Delimiter = "pipe"
	_, err = NewSources(cfg, catalog.Default(), Deps{})
	assert.Error(t, err)
}

func TestCheckQuality(t *testing.T) {
	cat, err := catalog.New([]contracts.MetricDefinition{
		{ID: "ret", SourceField: "ret_pct", Kind: contracts.KindReturn},
		{ID: "vol", SourceField: "vol_pct", Kind: contracts.KindRisk},
	})
	require.NoError(t, err)

	table := &contracts.Table{Dropped: 2, Records: []contracts.Record{
		{ID: "A", Fields: map[string]string{"ret_pct": "1", "vol_pct": "n/a"}},
		{ID: "B", Fields: map[string]string{"ret_pct": "2,5", "vol_pct": "10"}},
		{ID: "C", Fields: map[string]string{"ret_pct": "", "vol_pct": "abc"}},
		{ID: "D", Fields: map[string]string{"ret_pct": "-4%"}},
	}}

	report := CheckQuality(table, cat)
	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 2, report.Dropped)
	assert.InDelta(t, 0.75, report.Coverage["ret"], 1e-9)
	assert.InDelta(t, 0.25, report.Coverage["vol"], 1e-9)
	assert.InDelta(t, 0.5, report.Score, 1e-9)
	assert.Equal(t, []string{"vol"}, report.Uncovered(cat, 0.5))

	empty := CheckQuality(nil, cat)
	assert.Equal(t, 0, empty.TotalRecords)
	assert.Zero(t, empty.Score)
}
