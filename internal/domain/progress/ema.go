package progress

import (
	"math"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTIVE EMA UPDATER
// ══════════════════════════════════════════════════════════════════════════════

// EMAConfig tunes the adaptive exponential moving average. The zero value is
// not usable; start from DefaultEMAConfig.
type EMAConfig struct {
	// Alpha is the steady-state smoothing factor.
	Alpha float64

	// BootstrapAlpha is the higher factor used while an outcome has fewer
	// than BootstrapThreshold observations, so early estimates move quickly
	// toward ground truth.
	BootstrapAlpha float64

	// BootstrapThreshold is the observation count at which the updater
	// switches from BootstrapAlpha to Alpha.
	BootstrapThreshold int

	// MinValue and MaxValue clamp both observations and results.
	MinValue float64
	MaxValue float64
}

// DefaultEMAConfig returns the standard tuning.
func DefaultEMAConfig() EMAConfig {
	return EMAConfig{
		Alpha:              0.3,
		BootstrapAlpha:     0.5,
		BootstrapThreshold: 3,
		MinValue:           0.0,
		MaxValue:           1.0,
	}
}

// Validate checks the config's own bounds.
func (c EMAConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 || c.BootstrapAlpha <= 0 || c.BootstrapAlpha > 1 {
		return shared.ErrInvalidAlpha
	}
	if c.BootstrapThreshold < 0 {
		return shared.ErrNegativeObsCount
	}
	if c.MinValue >= c.MaxValue {
		return shared.NewDomainError("progress", "Validate", shared.ErrValueOutOfRange,
			"EMA min bound must be below max bound")
	}
	return nil
}

// EMAResult reports one update with its metadata.
type EMAResult struct {
	// NewEMA is the updated estimate, clamped to the configured range.
	NewEMA float64

	// WasBootstrapped is true when this was the first observation and the
	// estimate was seeded directly from it.
	WasBootstrapped bool

	// EffectiveAlpha is the smoothing factor actually applied. 1.0 for a
	// bootstrap.
	EffectiveAlpha float64

	// Delta is NewEMA minus the previous estimate. Zero for a bootstrap.
	Delta float64
}

// UpdateEMA applies one observation to an outcome's estimate. A nil oldEMA
// means the outcome has never been observed; the estimate is seeded from the
// clamped observation. Otherwise the smoothing factor adapts to how many
// observations the estimate has already absorbed: below the bootstrap
// threshold the higher bootstrap alpha applies, after it the steady-state
// alpha.
func UpdateEMA(oldEMA *float64, observation float64, observationCount int, cfg EMAConfig) EMAResult {
	obs := clamp(observation, cfg.MinValue, cfg.MaxValue)

	if oldEMA == nil {
		return EMAResult{
			NewEMA:          obs,
			WasBootstrapped: true,
			EffectiveAlpha:  1.0,
			Delta:           0,
		}
	}

	alpha := cfg.Alpha
	if observationCount < cfg.BootstrapThreshold {
		alpha = cfg.BootstrapAlpha
	}

	raw := alpha*obs + (1-alpha)*(*oldEMA)
	newEMA := clamp(raw, cfg.MinValue, cfg.MaxValue)

	return EMAResult{
		NewEMA:         newEMA,
		EffectiveAlpha: alpha,
		Delta:          newEMA - *oldEMA,
	}
}

// UpdateEMABatch applies observations independently per outcome over two
// parallel mappings. Outcomes absent from existing are bootstrapped; outcomes
// absent from observations are carried through untouched.
func UpdateEMABatch(existing map[string]float64, counts map[string]int, observations map[string]float64, cfg EMAConfig) (map[string]float64, map[string]EMAResult) {
	updated := make(map[string]float64, len(existing)+len(observations))
	for id, v := range existing {
		updated[id] = v
	}

	results := make(map[string]EMAResult, len(observations))
	for id, obs := range observations {
		var old *float64
		if v, ok := existing[id]; ok {
			old = &v
		}
		res := UpdateEMA(old, obs, counts[id], cfg)
		updated[id] = res.NewEMA
		results[id] = res
	}
	return updated, results
}

// HalfLife returns the number of observations after which an estimate's
// memory of a past value has decayed by half under the given alpha.
// Diagnostics only, not used in the update path.
func HalfLife(alpha float64) float64 {
	if alpha <= 0 || alpha >= 1 {
		return math.NaN()
	}
	return math.Log(0.5) / math.Log(1-alpha)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
