// Package catalog is the static registry of rankable metrics.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/cryptorank/internal/contracts"
)

// Catalog is an immutable, ordered set of metric definitions
// ⭐ SSOT: 지표 정의는 여기서만
type Catalog struct {
	defs  []contracts.MetricDefinition
	index map[string]int
}

// New builds a catalog, rejecting duplicate ids and empty source fields
func New(defs []contracts.MetricDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]contracts.MetricDefinition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	for _, d := range defs {
		if d.ID == "" || d.SourceField == "" {
			return nil, fmt.Errorf("metric %q: id and source_field are required", d.ID)
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("metric %q defined twice", d.ID)
		}
		if d.Direction == "" {
			d.Direction = contracts.DirectionMax
		}
		c.index[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	return c, nil
}

// Default returns the built-in crypto screener catalog
func Default() *Catalog {
	c, err := New(defaultMetrics)
	if err != nil {
		panic(err) // static table
	}
	return c
}

// Get looks up a metric by id
func (c *Catalog) Get(id string) (contracts.MetricDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return contracts.MetricDefinition{}, false
	}
	return c.defs[i], true
}

// MustGet is Get for ids already validated by the caller
func (c *Catalog) MustGet(id string) contracts.MetricDefinition {
	d, ok := c.Get(id)
	if !ok {
		panic("catalog: unknown metric " + id)
	}
	return d
}

// Has reports whether id is a known metric
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Validate returns ErrUnknownMetric for the first unknown id
func (c *Catalog) Validate(ids ...string) error {
	for _, id := range ids {
		if !c.Has(id) {
			return fmt.Errorf("%w: %q", contracts.ErrUnknownMetric, id)
		}
	}
	return nil
}

// All returns the definitions in catalog order
func (c *Catalog) All() []contracts.MetricDefinition {
	return append([]contracts.MetricDefinition(nil), c.defs...)
}

// IDs returns all metric ids in catalog order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.defs))
	for i, d := range c.defs {
		ids[i] = d.ID
	}
	return ids
}

// SourceFields returns the distinct source columns, sorted
func (c *Catalog) SourceFields() []string {
	seen := make(map[string]bool, len(c.defs))
	out := make([]string, 0, len(c.defs))
	for _, d := range c.defs {
		if !seen[d.SourceField] {
			seen[d.SourceField] = true
			out = append(out, d.SourceField)
		}
	}
	sort.Strings(out)
	return out
}

// OfKind returns the ids of every metric of the given kind
func (c *Catalog) OfKind(kind contracts.MetricKind) []string {
	var out []string
	for _, d := range c.defs {
		if d.Kind == kind {
			out = append(out, d.ID)
		}
	}
	return out
}

// ExclusionSet is a case-insensitive identifier denylist
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from identifiers
func NewExclusionSet(ids ...string) ExclusionSet {
	s := make(ExclusionSet, len(ids))
	for _, id := range ids {
		s[strings.ToUpper(strings.TrimSpace(id))] = struct{}{}
	}
	return s
}

// Contains reports whether id is denied
func (s ExclusionSet) Contains(id string) bool {
	_, ok := s[strings.ToUpper(id)]
	return ok
}

// DefaultExclusions lists pegged instruments that never belong in a ranking:
// fiat stablecoins and gold-backed tokens.
var DefaultExclusions = []string{
	"USDT", "USDC", "DAI", "BUSD", "TUSD", "USDP", "FDUSD", "PYUSD",
	"USDD", "GUSD", "FRAX", "LUSD", "USDE", "EURT", "EURC", "PAXG", "XAUT",
}
