package catalog

import "github.com/wonny/cryptorank/internal/contracts"

// defaultMetrics mirrors the screener export columns.
// Percent metrics use 0.05 percentage points as the materiality floor.
var defaultMetrics = []contracts.MetricDefinition{
	// Performance
	{ID: "ret_1d", Label: "Return 1D", SourceField: "ret_1d_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},
	{ID: "ret_7d", Label: "Return 7D", SourceField: "ret_7d_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},
	{ID: "ret_30d", Label: "Return 30D", SourceField: "ret_30d_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},
	{ID: "ret_90d", Label: "Return 90D", SourceField: "ret_90d_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},
	{ID: "ret_ytd", Label: "Return YTD", SourceField: "ret_ytd_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},
	{ID: "ret_1y", Label: "Return 1Y", SourceField: "ret_1y_pct", Unit: "%", Direction: contracts.DirectionMax, Kind: contracts.KindReturn, FloorGap: 0.05},

	// Risk
	{ID: "vol_7d", Label: "Volatility 7D (ann.)", SourceField: "vol_7d_pct", Unit: "%", Direction: contracts.DirectionMin, Kind: contracts.KindRisk, FloorGap: 0.05},
	{ID: "vol_30d", Label: "Volatility 30D (ann.)", SourceField: "vol_30d_pct", Unit: "%", Direction: contracts.DirectionMin, Kind: contracts.KindRisk, FloorGap: 0.05},
	{ID: "drawdown_90d", Label: "Max Drawdown 90D", SourceField: "drawdown_90d_pct", Unit: "%", Direction: contracts.DirectionMin, Kind: contracts.KindRisk, FloorGap: 0.05},
	{ID: "atr14", Label: "ATR14 / Price", SourceField: "atr14_pct", Unit: "%", Direction: contracts.DirectionMin, Kind: contracts.KindRisk, FloorGap: 0.01},

	// Liquidity / size
	{ID: "volume_24h", Label: "Volume 24h", SourceField: "volume_24h_usd", Unit: "USD", Direction: contracts.DirectionMax, Kind: contracts.KindLiquidity, FloorGap: 1000},
	{ID: "market_cap", Label: "Market Cap", SourceField: "market_cap_usd", Unit: "USD", Direction: contracts.DirectionMax, Kind: contracts.KindSize, FloorGap: 100000},
}
