package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/cryptorank/internal/contracts"
	"github.com/wonny/cryptorank/internal/session"
)

// rankCmd computes one ranking and prints it
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Top-N 랭킹 계산",
	Long: `데이터셋을 불러와 한 번 랭킹을 계산하고 출력합니다.

Flags are applied in order: metrics, mode, directions, filters, top.

Example:
  go run ./cmd/rank rank --metrics ret_30d,ret_90d --mode priority
  go run ./cmd/rank rank --metrics vol_30d --direction vol_30d=max --top 5
  go run ./cmd/rank rank --filter "ret_30d>=12,5" --format json`,
	RunE: runRank,
}

var (
	rankMetrics    []string
	rankMode       string
	rankFilters    []string
	rankDirections []string
	rankTop        int
	rankFormat     string
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringSliceVar(&rankMetrics, "metrics", nil, "selected metrics in priority order (default: tuning profile)")
	rankCmd.Flags().StringVar(&rankMode, "mode", "", "balanced | priority (default: tuning profile)")
	rankCmd.Flags().StringArrayVar(&rankFilters, "filter", nil, `filter expression, e.g. "vol_30d<=80" (repeatable)`)
	rankCmd.Flags().StringArrayVar(&rankDirections, "direction", nil, `direction override, e.g. "vol_30d=max" (repeatable)`)
	rankCmd.Flags().IntVar(&rankTop, "top", 0, "result size (default: tuning profile)")
	rankCmd.Flags().StringVar(&rankFormat, "format", "table", "table | json")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	table, err := a.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	s := session.New(a.catalog, a.tuning, a.log, a.metrics)
	if _, err := s.LoadTable(table); err != nil {
		return err
	}

	result, err := applyRankFlags(s)
	if err != nil {
		return err
	}

	if rankFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"state":  s.State(),
			"pool":   s.PoolSummary(),
			"result": result,
		})
	}

	PrintRankingHeader(table, s.State(), s.PoolSummary(), result)
	PrintRanking(result, a.catalog)
	return nil
}

// applyRankFlags replays the CLI flags as session mutations
func applyRankFlags(s *session.Session) (contracts.RankedResult, error) {
	result := s.Result()
	var err error

	if len(rankMetrics) > 0 {
		if result, err = s.SetSelectedMetrics(rankMetrics); err != nil {
			return result, err
		}
	}
	if rankMode != "" {
		if result, err = s.SetMode(contracts.Mode(strings.ToLower(rankMode))); err != nil {
			return result, err
		}
	}
	for _, expr := range rankDirections {
		metric, dir, ok := strings.Cut(expr, "=")
		if !ok {
			return result, fmt.Errorf("invalid direction %q (want metric=max|min)", expr)
		}
		d, err := contracts.ParseDirection(strings.ToLower(strings.TrimSpace(dir)))
		if err != nil {
			return result, err
		}
		if result, err = s.SetDirectionOverride(strings.TrimSpace(metric), d.HigherIsBetter()); err != nil {
			return result, err
		}
	}
	for _, expr := range rankFilters {
		metric, op, threshold, err := ParseFilterExpr(expr)
		if err != nil {
			return result, err
		}
		if result, err = s.AddFilter(metric, op, threshold); err != nil {
			return result, err
		}
	}
	if rankTop > 0 {
		if result, err = s.SetTopN(rankTop); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ParseFilterExpr splits "vol_30d <= 80" into metric, operator and threshold text.
// The operator is the run of comparison characters after the metric name.
func ParseFilterExpr(expr string) (metric, op, threshold string, err error) {
	i := strings.IndexAny(expr, "<>=!≥≤≠")
	if i <= 0 {
		return "", "", "", fmt.Errorf("invalid filter %q (want metric<op>value)", expr)
	}

	metric = strings.TrimSpace(expr[:i])
	rest := expr[i:]
	j := 0
	for j < len(rest) && strings.ContainsRune("<>=!", rune(rest[j])) {
		j++
	}
	if j == 0 {
		// ≥ / ≤ (multi-byte)
		r := []rune(rest)[0]
		j = len(string(r))
	}

	op = rest[:j]
	threshold = strings.TrimSpace(rest[j:])
	if metric == "" || threshold == "" {
		return "", "", "", fmt.Errorf("invalid filter %q (want metric<op>value)", expr)
	}
	return metric, op, threshold, nil
}
