package dataset

import (
	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/normalize"
)

// QualityReport summarizes how complete a loaded table is
type QualityReport struct {
	TotalRecords int                `json:"total_records"`
	Dropped      int                `json:"dropped"`
	Coverage     map[string]float64 `json:"coverage"` // metric id -> share of records with a valid value
	Score        float64            `json:"score"`    // mean coverage over the catalog
}

// CheckQuality computes per-metric coverage of table.
// A value counts as covered when it parses to a finite number.
// ⭐ SSOT: 데이터셋 품질 검증
func CheckQuality(table *contracts.Table, cat *catalog.Catalog) QualityReport {
	report := QualityReport{
		TotalRecords: table.Len(),
		Coverage:     make(map[string]float64),
	}
	if table == nil {
		return report
	}
	report.Dropped = table.Dropped

	defs := cat.All()
	if len(defs) == 0 || table.Len() == 0 {
		return report
	}

	total := 0.0
	for _, def := range defs {
		valid := 0
		for _, rec := range table.Records {
			text, _ := rec.Field(def.SourceField)
			if _, ok := normalize.ParseValue(text); ok {
				valid++
			}
		}
		cov := float64(valid) / float64(table.Len())
		report.Coverage[def.ID] = cov
		total += cov
	}
	report.Score = total / float64(len(defs))

	return report
}

// Uncovered returns metrics whose coverage is below threshold, in catalog order
func (r QualityReport) Uncovered(cat *catalog.Catalog, threshold float64) []string {
	var out []string
	for _, def := range cat.All() {
		if r.Coverage[def.ID] < threshold {
			out = append(out, def.ID)
		}
	}
	return out
}
