// Package dataset is the data-acquisition side of the ranking engine:
// it turns delimited screener exports into a contracts.Table.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/cryptorank/internal/contracts"
)

// DefaultSymbolColumn is the header of the composite symbol column
const DefaultSymbolColumn = "symbol"

var (
	ErrHeader     = errors.New("invalid header")
	ErrEmptyTable = errors.New("no valid rows")
)

// ParseOptions controls delimited-text parsing
type ParseOptions struct {
	Source       string
	Delimiter    rune     // 0 = auto-detect from header line
	SymbolColumn string   // "" = DefaultSymbolColumn
	Fields       []string // known source fields; other columns are ignored
}

// Parse reads a delimited table.
// Header is validated (symbol column required, at least one known field, no duplicate known fields).
// Rows with a wrong field count or an empty symbol are dropped and counted in Table.Dropped.
func Parse(r io.Reader, opts ParseOptions) (*contracts.Table, error) {
	br := bufio.NewReader(r)

	delim := opts.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = DetectDelimiter(head)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrHeader)
		}
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}

	cols, err := mapHeader(header, opts)
	if err != nil {
		return nil, err
	}

	table := &contracts.Table{
		Source:   opts.Source,
		LoadedAt: time.Now(),
		Records:  []contracts.Record{},
	}

	width := len(header)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 깨진 행은 건너뜀
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				table.Dropped++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		addRow(table, cols, width, row)
	}

	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%w (dropped %d)", ErrEmptyTable, table.Dropped)
	}
	return table, nil
}

// addRow validates one row and appends it as a record
func addRow(table *contracts.Table, cols columns, width int, row []string) {
	if isBlank(row) {
		return
	}
	if len(row) != width {
		table.Dropped++
		return
	}

	symbol := strings.TrimSpace(row[cols.symbol])
	id := contracts.ExtractTicker(symbol)
	if id == "" {
		table.Dropped++
		return
	}

	fields := make(map[string]string, len(cols.fields))
	for idx, name := range cols.fields {
		fields[name] = strings.TrimSpace(row[idx])
	}

	table.Records = append(table.Records, contracts.Record{
		Symbol: symbol,
		ID:     id,
		Fields: fields,
	})
}

type columns struct {
	symbol int
	fields map[int]string // column index -> source field
}

func mapHeader(header []string, opts ParseOptions) (columns, error) {
	symbolCol := opts.SymbolColumn
	if symbolCol == "" {
		symbolCol = DefaultSymbolColumn
	}

	known := make(map[string]bool, len(opts.Fields))
	for _, f := range opts.Fields {
		known[strings.ToLower(f)] = true
	}

	cols := columns{symbol: -1, fields: map[int]string{}}
	seen := map[string]bool{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case name == strings.ToLower(symbolCol):
			if cols.symbol >= 0 {
				return cols, fmt.Errorf("%w: duplicate column %q", ErrHeader, name)
			}
			cols.symbol = i
		case known[name]:
			if seen[name] {
				return cols, fmt.Errorf("%w: duplicate column %q", ErrHeader, name)
			}
			seen[name] = true
			cols.fields[i] = name
		}
	}

	if cols.symbol < 0 {
		return cols, fmt.Errorf("%w: missing %q column", ErrHeader, symbolCol)
	}
	if len(cols.fields) == 0 {
		return cols, fmt.Errorf("%w: no known metric columns", ErrHeader)
	}
	return cols, nil
}

// DetectDelimiter picks ',', ';' or tab by frequency in the first line.
// Ties and lines without any candidate fall back to ','.
func DetectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseDelimiter maps a configured delimiter name to a rune.
// "" returns 0 (auto-detect).
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", s)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
