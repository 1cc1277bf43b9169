package commands

import (
	"fmt"
	"strings"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintRankingHeader prints dataset, state and pool counters
func PrintRankingHeader(table *contracts.Table, state contracts.RankingState, pool contracts.PoolSummary, result contracts.RankedResult) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Ranking (%s)\n", state.Mode)
	PrintSeparator()
	PrintKeyValue("Source", table.Source, 9)
	PrintKeyValue("Metrics", strings.Join(state.SelectedMetrics, " > "), 9)
	for _, f := range state.Filters {
		PrintKeyValue("Filter", FormatFilter(f), 9)
	}
	for _, f := range result.AutoFilters {
		PrintKeyValue("Guard", FormatFilter(f)+" (auto)", 9)
	}
	PrintKeyValue("Pool", fmt.Sprintf("%d / %d eligible", pool.EligibleRecords, pool.TotalRecords), 9)
	PrintSeparator()
}

// PrintRanking prints the ranked items as a table
func PrintRanking(result contracts.RankedResult, cat *catalog.Catalog) {
	if len(result.Items) == 0 {
		PrintWarning("No records matched")
		return
	}

	columns := []string{"#", "ID", "Symbol", "Score"}
	widths := []int{3, 8, 20, 7}
	for _, m := range result.Metrics {
		label := m
		if def, ok := cat.Get(m); ok && def.Unit != "" {
			label = fmt.Sprintf("%s (%s)", m, def.Unit)
		}
		columns = append(columns, label)
		widths = append(widths, max(len(label), 10))
	}

	PrintTableHeader(columns, widths)
	for _, it := range result.Items {
		row := []string{
			fmt.Sprintf("%d", it.Rank),
			it.ID,
			truncate(it.Symbol, 20),
			fmt.Sprintf("%.3f", it.Score),
		}
		for _, v := range it.Values {
			row = append(row, FormatValue(v))
		}
		PrintTableRow(row, widths)
	}
}

// PrintCatalog prints every metric definition
func PrintCatalog(cat *catalog.Catalog) {
	columns := []string{"ID", "Label", "Field", "Unit", "Dir", "Kind"}
	widths := []int{13, 22, 17, 4, 4, 9}

	PrintTableHeader(columns, widths)
	for _, def := range cat.All() {
		PrintTableRow([]string{
			def.ID, def.Label, def.SourceField, def.Unit, string(def.Direction), string(def.Kind),
		}, widths)
	}
}

// FormatFilter renders a filter as "metric op value"
func FormatFilter(f contracts.Filter) string {
	return fmt.Sprintf("%s %s %g", f.Metric, f.Operator, f.Threshold)
}

// FormatValue renders a raw metric value ("-" when missing)
func FormatValue(v contracts.MetricValue) string {
	if v.Missing {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
