package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cast"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/pkg/httputil"
)

// FileSource reads a delimited file from local disk
type FileSource struct {
	path string
	opts ParseOptions
}

// NewFileSource creates a file source
func NewFileSource(path string, opts ParseOptions) *FileSource {
	opts.Source = path
	return &FileSource{path: path, opts: opts}
}

// Name implements contracts.TableSource
func (s *FileSource) Name() string {
	return s.path
}

// Load implements contracts.TableSource
func (s *FileSource) Load(ctx context.Context) (*contracts.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return Parse(f, s.opts)
}

// HTTPSource fetches a delimited export over HTTP(S)
type HTTPSource struct {
	url    string
	client *httputil.Client
	opts   ParseOptions
}

// NewHTTPSource creates an HTTP source
func NewHTTPSource(url string, client *httputil.Client, opts ParseOptions) *HTTPSource {
	opts.Source = url
	return &HTTPSource{url: url, client: client, opts: opts}
}

// Name implements contracts.TableSource
func (s *HTTPSource) Name() string {
	return s.url
}

// Load implements contracts.TableSource
func (s *HTTPSource) Load(ctx context.Context) (*contracts.Table, error) {
	body, err := s.client.GetBytes(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(body), s.opts)
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the snapshot table with a configured query.
// Column names map to source fields the same way CSV headers do.
type PostgresSource struct {
	db    Querier
	query string
	opts  ParseOptions
}

// NewPostgresSource creates a Postgres source
func NewPostgresSource(db Querier, query string, opts ParseOptions) *PostgresSource {
	opts.Source = "postgres"
	return &PostgresSource{db: db, query: query, opts: opts}
}

// Name implements contracts.TableSource
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load implements contracts.TableSource
func (s *PostgresSource) Load(ctx context.Context) (*contracts.Table, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}

	var values [][]any
	for rows.Next() {
		v, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return tableFromRows(names, values, s.opts)
}

// tableFromRows applies the delimited-text header and row rules to typed SQL rows.
// NULL becomes an empty (missing) field; other values are stringified with cast.
func tableFromRows(names []string, values [][]any, opts ParseOptions) (*contracts.Table, error) {
	cols, err := mapHeader(names, opts)
	if err != nil {
		return nil, err
	}

	table := &contracts.Table{
		Source:   opts.Source,
		LoadedAt: time.Now(),
		Records:  []contracts.Record{},
	}

	for _, row := range values {
		cells := make([]string, len(row))
		ok := true
		for i, v := range row {
			if v == nil {
				continue
			}
			text, err := cast.ToStringE(v)
			if err != nil {
				ok = false
				break
			}
			cells[i] = text
		}
		if !ok {
			table.Dropped++
			continue
		}
		addRow(table, cols, len(names), cells)
	}

	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%w (dropped %d)", ErrEmptyTable, table.Dropped)
	}
	return table, nil
}
