package tuning

// Config holds every heuristic constant of the ranking engine.
// None of these values are claimed optimal; the mechanisms are fixed, the numbers are tunable.
type Config struct {
	Meta          Meta          `yaml:"meta" json:"meta"`
	Normalization Normalization `yaml:"normalization" json:"normalization"`
	Eligibility   Eligibility   `yaml:"eligibility" json:"eligibility"`
	Priority      Priority      `yaml:"priority" json:"priority"`
	Funnel        Funnel        `yaml:"funnel" json:"funnel"`
	AutoGuard     AutoGuard     `yaml:"auto_guard" json:"auto_guard"`
	Result        Result        `yaml:"result" json:"result"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Normalization controls per-metric cache construction
type Normalization struct {
	WinsorLowPct  float64 `yaml:"winsor_low_pct" json:"winsor_low_pct"`   // 0.005
	WinsorHighPct float64 `yaml:"winsor_high_pct" json:"winsor_high_pct"` // 0.995
	IQREpsilon    float64 `yaml:"iqr_epsilon" json:"iqr_epsilon"`
}

// Eligibility controls candidate pool construction
type Eligibility struct {
	AllowedMissing  int      `yaml:"allowed_missing" json:"allowed_missing"`
	FilterDecimals  int      `yaml:"filter_decimals" json:"filter_decimals"`
	EqualityEpsilon float64  `yaml:"equality_epsilon" json:"equality_epsilon"`
	Exclusions      []string `yaml:"exclusions" json:"exclusions"`
}

// Priority controls the near-tie comparator
type Priority struct {
	ToleranceC             float64 `yaml:"tolerance_c" json:"tolerance_c"`
	MinPercentileTolerance float64 `yaml:"min_percentile_tolerance" json:"min_percentile_tolerance"`
	WindowMin              int     `yaml:"window_min" json:"window_min"`
	WindowMax              int     `yaml:"window_max" json:"window_max"`
	GapMultiplier          float64 `yaml:"gap_multiplier" json:"gap_multiplier"`
	WeightDecay            float64 `yaml:"weight_decay" json:"weight_decay"` // 0.5 -> weights 1, 0.5, 0.25 ...
}

// Funnel controls staged narrowing for large pools
type Funnel struct {
	Threshold   int `yaml:"threshold" json:"threshold"`
	Stage1Width int `yaml:"stage1_width" json:"stage1_width"`
	Stage2Width int `yaml:"stage2_width" json:"stage2_width"`
}

// AutoGuard is the transient risk ceiling injected in priority mode
type AutoGuard struct {
	Enable    bool    `yaml:"enable" json:"enable"`
	Metric    string  `yaml:"metric" json:"metric"`
	Operator  string  `yaml:"operator" json:"operator"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// Result controls the published output
type Result struct {
	TopN           int      `yaml:"top_n" json:"top_n"`
	DefaultMode    string   `yaml:"default_mode" json:"default_mode"`
	DefaultMetrics []string `yaml:"default_metrics" json:"default_metrics"`
}

// Default returns the reference profile
func Default() *Config {
	return &Config{
		Meta: Meta{
			ProfileID: "default",
			Version:   "1",
		},
		Normalization: Normalization{
			WinsorLowPct:  0.005,
			WinsorHighPct: 0.995,
			IQREpsilon:    1e-9,
		},
		Eligibility: Eligibility{
			AllowedMissing:  1,
			FilterDecimals:  2,
			EqualityEpsilon: 0.01,
			Exclusions:      nil, // nil -> catalog.DefaultExclusions
		},
		Priority: Priority{
			ToleranceC:             0.6,
			MinPercentileTolerance: 0.012,
			WindowMin:              6,
			WindowMax:              40,
			GapMultiplier:          1.0,
			WeightDecay:            0.5,
		},
		Funnel: Funnel{
			Threshold:   600,
			Stage1Width: 120,
			Stage2Width: 40,
		},
		AutoGuard: AutoGuard{
			Enable:    true,
			Metric:    "vol_30d",
			Operator:  "<=",
			Threshold: 150,
		},
		Result: Result{
			TopN:           10,
			DefaultMode:    "balanced",
			DefaultMetrics: []string{"ret_30d", "ret_90d", "vol_30d"},
		},
	}
}
