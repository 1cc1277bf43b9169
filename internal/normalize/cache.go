// Package normalize builds the per-metric normalization cache (winsorized
// values, Hazen percentiles, robust spread) that both ranking modes read.
package normalize

import (
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/tuning"
)

// MetricCache is the normalization state of one metric over the whole table.
// Every per-record slice has exactly one entry per record; NaN marks missing.
type MetricCache struct {
	Metric     string
	Raw        []float64 // parsed, unclipped (filters and output)
	Winsorized []float64 // clipped to [q_low, q_high]
	Percentile []float64 // Hazen percentile of the winsorized value, in (0, 1)
	Sorted     []float64 // winsorized valid values, ascending
	IQR        float64   // Q75 - Q25 of winsorized values, >= epsilon
	Valid      int
}

// Missing reports whether record i has no value for this metric
func (m *MetricCache) Missing(i int) bool {
	return math.IsNaN(m.Raw[i])
}

// Adjusted returns the direction-adjusted percentile of record i
// (min-direction metrics are flipped so that higher is always better).
func (m *MetricCache) Adjusted(i int, higherIsBetter bool) (float64, bool) {
	p := m.Percentile[i]
	if math.IsNaN(p) {
		return 0, false
	}
	if !higherIsBetter {
		p = 1 - p
	}
	return p, true
}

// LocalGap returns the median of adjacent differences in a window of
// `window` sorted values centred on mid. Returns 0 when fewer than two values exist.
func (m *MetricCache) LocalGap(mid float64, window int) float64 {
	n := len(m.Sorted)
	if n < 2 {
		return 0
	}
	if window > n {
		window = n
	}
	if window < 2 {
		window = 2
	}

	pos := sort.SearchFloat64s(m.Sorted, mid)
	lo := pos - window/2
	if lo > n-window {
		lo = n - window
	}
	if lo < 0 {
		lo = 0
	}
	seg := m.Sorted[lo : lo+window]

	gaps := make([]float64, len(seg)-1)
	for i := 1; i < len(seg); i++ {
		gaps[i-1] = seg[i] - seg[i-1]
	}
	return median(gaps)
}

// Cache holds one MetricCache per catalog metric for a single table.
// Rebuilt only when a new table is loaded.
type Cache struct {
	metrics map[string]*MetricCache
	n       int
}

// Build parses and normalizes every catalog metric of table
func Build(cat *catalog.Catalog, table *contracts.Table, cfg tuning.Normalization) *Cache {
	n := table.Len()
	c := &Cache{
		metrics: make(map[string]*MetricCache),
		n:       n,
	}

	for _, def := range cat.All() {
		raw := make([]float64, n)
		for i := 0; i < n; i++ {
			text, _ := table.Records[i].Field(def.SourceField)
			v, ok := ParseValue(text)
			if !ok {
				v = math.NaN()
			}
			raw[i] = v
		}
		c.metrics[def.ID] = BuildMetric(def.ID, raw, cfg)
	}

	return c
}

// Len returns the record count the cache was built for
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.n
}

// Metric returns the cache of one metric
func (c *Cache) Metric(id string) (*MetricCache, bool) {
	if c == nil {
		return nil, false
	}
	m, ok := c.metrics[id]
	return m, ok
}

// BuildMetric normalizes one column of raw values (NaN = missing)
func BuildMetric(id string, raw []float64, cfg tuning.Normalization) *MetricCache {
	n := len(raw)
	m := &MetricCache{
		Metric:     id,
		Raw:        raw,
		Winsorized: make([]float64, n),
		Percentile: make([]float64, n),
		IQR:        1,
	}

	valid := make([]int, 0, n)
	for i, v := range raw {
		if math.IsNaN(v) {
			m.Winsorized[i] = math.NaN()
			m.Percentile[i] = math.NaN()
			continue
		}
		valid = append(valid, i)
	}
	m.Valid = len(valid)
	if m.Valid == 0 {
		m.Sorted = []float64{}
		return m
	}

	// 1. Winsorize
	sortedRaw := make([]float64, 0, len(valid))
	for _, i := range valid {
		sortedRaw = append(sortedRaw, raw[i])
	}
	sort.Float64s(sortedRaw)
	lo := Quantile(sortedRaw, cfg.WinsorLowPct)
	hi := Quantile(sortedRaw, cfg.WinsorHighPct)
	for _, i := range valid {
		m.Winsorized[i] = math.Min(math.Max(raw[i], lo), hi)
	}

	// 2. Hazen percentile (ties share the midpoint rank)
	sort.SliceStable(valid, func(a, b int) bool {
		return m.Winsorized[valid[a]] < m.Winsorized[valid[b]]
	})
	count := float64(len(valid))
	for start := 0; start < len(valid); {
		end := start
		for end+1 < len(valid) && m.Winsorized[valid[end+1]] == m.Winsorized[valid[start]] {
			end++
		}
		rank := float64(start+end) / 2
		pct := (rank + 0.5) / count
		for k := start; k <= end; k++ {
			m.Percentile[valid[k]] = pct
		}
		start = end + 1
	}

	m.Sorted = make([]float64, len(valid))
	for k, i := range valid {
		m.Sorted[k] = m.Winsorized[i]
	}

	// 3. Robust spread
	m.IQR = Quantile(m.Sorted, 0.75) - Quantile(m.Sorted, 0.25)
	if m.IQR < cfg.IQREpsilon {
		m.IQR = cfg.IQREpsilon
	}

	return m
}

// Quantile returns the p-quantile of ascending values using linear
// interpolation between closest ranks (pos = (n-1)p).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	pos := float64(n-1) * p
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

var missingTokens = map[string]bool{
	"":     true,
	"-":    true,
	"--":   true,
	"n/a":  true,
	"na":   true,
	"nan":  true,
	"null": true,
	"none": true,
}

// ParseValue converts a raw cell into a finite number.
// Placeholders ("-", "N/A", "NaN", empty) and non-numeric text are missing.
func ParseValue(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if missingTokens[strings.ToLower(s)] {
		return 0, false
	}
	s = strings.TrimSuffix(s, "%")
	s = NormalizeSeparators(strings.NewReplacer("_", "", " ", "").Replace(s))

	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizeSeparators rewrites grouping and decimal separators to the "1234.5" form.
// When both "," and "." appear the last one is the decimal separator.
// A single "," is a decimal comma ("1,5" on semicolon exports); several are grouping.
func NormalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") > 1:
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
