package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	tuningFile string
	sources    []string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rank",
	Short: "cryptorank - crypto screener ranking engine",
	Long: `cryptorank CLI

스크리너 스냅샷을 불러와 선택한 지표로 Top-N 랭킹을 계산합니다.
Balanced (평균 백분위) 와 Priority (허용오차 lexicographic) 두 모드를 지원합니다.

Usage:
  go run ./cmd/rank [command]

Examples:
  go run ./cmd/rank rank --metrics ret_30d,vol_30d --mode priority --top 10
  go run ./cmd/rank rank --filter "vol_30d<=80" --filter "ret_90d>0"
  go run ./cmd/rank catalog
  go run ./cmd/rank serve --port 8089`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tuningFile, "tuning", "", "tuning profile YAML (default: TUNING_FILE or built-in)")
	rootCmd.PersistentFlags().StringSliceVar(&sources, "source", nil, "dataset sources in fallback order (default: DATASET_SOURCES)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
