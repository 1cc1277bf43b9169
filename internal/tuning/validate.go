package tuning

import (
	"fmt"

	"github.com/wonny/cryptorank/internal/catalog"
	"github.com/wonny/cryptorank/internal/contracts"
)

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all range constraints that do not depend on the metric catalog
func Validate(cfg *Config) error {
	// === Normalization ===
	n := cfg.Normalization
	if n.WinsorLowPct < 0 || n.WinsorLowPct >= 0.5 {
		return ValidationError{"normalization.winsor_low_pct", "must be in [0, 0.5)"}
	}
	if n.WinsorHighPct <= 0.5 || n.WinsorHighPct > 1 {
		return ValidationError{"normalization.winsor_high_pct", "must be in (0.5, 1]"}
	}
	if n.IQREpsilon <= 0 {
		return ValidationError{"normalization.iqr_epsilon", "must be > 0"}
	}

	// === Eligibility ===
	e := cfg.Eligibility
	if e.AllowedMissing < 0 {
		return ValidationError{"eligibility.allowed_missing", "must be >= 0"}
	}
	if e.FilterDecimals < 0 || e.FilterDecimals > 8 {
		return ValidationError{"eligibility.filter_decimals", "must be in [0, 8]"}
	}
	if e.EqualityEpsilon < 0 {
		return ValidationError{"eligibility.equality_epsilon", "must be >= 0"}
	}

	// === Priority ===
	p := cfg.Priority
	if p.ToleranceC < 0 {
		return ValidationError{"priority.tolerance_c", "must be >= 0"}
	}
	if p.MinPercentileTolerance < 0 || p.MinPercentileTolerance >= 1 {
		return ValidationError{"priority.min_percentile_tolerance", "must be in [0, 1)"}
	}
	if p.WindowMin < 2 {
		return ValidationError{"priority.window_min", "must be >= 2"}
	}
	if p.WindowMin > p.WindowMax {
		return ValidationError{"priority", "window_min must be <= window_max"}
	}
	if p.GapMultiplier < 0 {
		return ValidationError{"priority.gap_multiplier", "must be >= 0"}
	}
	if p.WeightDecay <= 0 || p.WeightDecay > 1 {
		return ValidationError{"priority.weight_decay", "must be in (0, 1]"}
	}

	// === Funnel ===
	f := cfg.Funnel
	if f.Threshold < 1 {
		return ValidationError{"funnel.threshold", "must be >= 1"}
	}
	if f.Stage2Width > f.Stage1Width {
		return ValidationError{"funnel", "stage2_width must be <= stage1_width"}
	}

	// === Result ===
	if cfg.Result.TopN < 1 {
		return ValidationError{"result.top_n", "must be >= 1"}
	}
	if cfg.Result.TopN > f.Stage2Width {
		return ValidationError{"result.top_n", fmt.Sprintf("must be <= funnel.stage2_width=%d", f.Stage2Width)}
	}
	if _, err := contracts.ParseMode(cfg.Result.DefaultMode); err != nil {
		return ValidationError{"result.default_mode", err.Error()}
	}

	// === AutoGuard ===
	if cfg.AutoGuard.Enable {
		op, err := contracts.ParseOperator(cfg.AutoGuard.Operator)
		if err != nil {
			return ValidationError{"auto_guard.operator", err.Error()}
		}
		if !op.IsCeiling() {
			return ValidationError{"auto_guard.operator", "must be < or <="}
		}
	}

	return nil
}

// ValidateMetrics checks every metric id in the profile against a catalog
func ValidateMetrics(cfg *Config, cat *catalog.Catalog) error {
	for i, id := range cfg.Result.DefaultMetrics {
		if !cat.Has(id) {
			return ValidationError{fmt.Sprintf("result.default_metrics[%d]", i), fmt.Sprintf("unknown metric %q", id)}
		}
	}

	if cfg.AutoGuard.Enable {
		def, ok := cat.Get(cfg.AutoGuard.Metric)
		if !ok {
			return ValidationError{"auto_guard.metric", fmt.Sprintf("unknown metric %q", cfg.AutoGuard.Metric)}
		}
		if def.Kind != contracts.KindRisk {
			return ValidationError{"auto_guard.metric", fmt.Sprintf("%q is not a risk metric", def.ID)}
		}
	}

	return nil
}
