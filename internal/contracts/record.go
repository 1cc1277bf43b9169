package contracts

import (
	"strings"
	"time"
)

// Record is one parsed row of the screener table.
// Fields only holds columns known to the metric catalog (keyed by source field).
// Immutable once ingested.
type Record struct {
	Symbol string            `json:"symbol"`
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Field returns the raw text of a source field
func (r Record) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Table is the record table of one dataset load
type Table struct {
	Records  []Record  `json:"records"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Dropped  int       `json:"dropped"` // malformed rows skipped during parsing
}

// Len returns the number of records
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// ExtractTicker derives the identifier from a composite symbol.
//
//	"BINANCE:BTC/USDT" -> "BTC"
//	"eth-usd"          -> "ETH"
//	"SOL"              -> "SOL"
func ExtractTicker(symbol string) string {
	s := strings.TrimSpace(symbol)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexAny(s, "/-_ "); i > 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
