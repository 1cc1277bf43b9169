package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/tuning"
)

// catalogCmd lists the metric catalog
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "지표 카탈로그 출력",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.Default()
		PrintCatalog(cat)

		tune, err := tuning.LoadOrDefault(tuningFile)
		if err != nil {
			return err
		}
		fmt.Println()
		PrintKeyValue("Default metrics", fmt.Sprintf("%v", tune.Result.DefaultMetrics), 16)
		PrintKeyValue("Default mode", tune.Result.DefaultMode, 16)
		PrintKeyValue("Top N", fmt.Sprintf("%d", tune.Result.TopN), 16)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
