package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEMA_Bootstrap(t *testing.T) {
	res := UpdateEMA(nil, 0.8, 0, DefaultEMAConfig())

	assert.True(t, res.WasBootstrapped)
	assert.Equal(t, 0.8, res.NewEMA)
	assert.Equal(t, 1.0, res.EffectiveAlpha)
	assert.Equal(t, 0.0, res.Delta)
}

func TestUpdateEMA_BootstrapAlphaBelowThreshold(t *testing.T) {
	old := 0.8
	res := UpdateEMA(&old, 0.3, 1, DefaultEMAConfig())

	assert.False(t, res.WasBootstrapped)
	assert.Equal(t, 0.5, res.EffectiveAlpha)
	assert.InDelta(t, 0.55, res.NewEMA, 1e-9)
	assert.InDelta(t, -0.25, res.Delta, 1e-9)
}

func TestUpdateEMA_SteadyStateAlpha(t *testing.T) {
	old := 0.65
	res := UpdateEMA(&old, 1.0, 5, DefaultEMAConfig())

	assert.Equal(t, 0.3, res.EffectiveAlpha)
	assert.InDelta(t, 0.755, res.NewEMA, 1e-9)
}

func TestUpdateEMA_ClampsObservation(t *testing.T) {
	res := UpdateEMA(nil, 1.7, 0, DefaultEMAConfig())
	assert.Equal(t, 1.0, res.NewEMA)

	res = UpdateEMA(nil, -0.4, 0, DefaultEMAConfig())
	assert.Equal(t, 0.0, res.NewEMA)
}

func TestUpdateEMA_ResultAlwaysInRange(t *testing.T) {
	cfg := DefaultEMAConfig()
	olds := []float64{0.0, 0.25, 0.5, 0.99, 1.0}
	obs := []float64{-10, -0.1, 0, 0.5, 1, 1.1, 42}

	for _, o := range olds {
		for _, ob := range obs {
			for _, n := range []int{0, 1, 2, 3, 10} {
				old := o
				res := UpdateEMA(&old, ob, n, cfg)
				assert.GreaterOrEqual(t, res.NewEMA, cfg.MinValue)
				assert.LessOrEqual(t, res.NewEMA, cfg.MaxValue)
			}
		}
	}
}

func TestUpdateEMABatch(t *testing.T) {
	cfg := DefaultEMAConfig()
	existing := map[string]float64{"o1": 0.8, "o2": 0.4}
	counts := map[string]int{"o1": 1, "o2": 7}
	observations := map[string]float64{"o1": 0.3, "o3": 0.9}

	updated, results := UpdateEMABatch(existing, counts, observations, cfg)

	require.Len(t, updated, 3)

	// o1: bootstrap alpha, below threshold
	assert.InDelta(t, 0.55, updated["o1"], 1e-9)
	assert.Equal(t, 0.5, results["o1"].EffectiveAlpha)

	// o2: no observation, carried through untouched
	assert.Equal(t, 0.4, updated["o2"])
	_, touched := results["o2"]
	assert.False(t, touched)

	// o3: first observation, bootstrapped
	assert.Equal(t, 0.9, updated["o3"])
	assert.True(t, results["o3"].WasBootstrapped)
}

func TestHalfLife(t *testing.T) {
	// alpha 0.5 halves remaining weight every observation
	assert.InDelta(t, 1.0, HalfLife(0.5), 1e-9)

	// alpha 0.3: ln(0.5)/ln(0.7)
	assert.InDelta(t, math.Log(0.5)/math.Log(0.7), HalfLife(0.3), 1e-9)

	assert.True(t, math.IsNaN(HalfLife(0)))
	assert.True(t, math.IsNaN(HalfLife(1)))
}

func TestEMAConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultEMAConfig().Validate())

	bad := DefaultEMAConfig()
	bad.Alpha = 0
	assert.Error(t, bad.Validate())

	bad = DefaultEMAConfig()
	bad.BootstrapAlpha = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultEMAConfig()
	bad.MinValue, bad.MaxValue = 1, 0
	assert.Error(t, bad.Validate())
}

func TestMasteryRecordValidate(t *testing.T) {
	ok := &MasteryRecord{EMAByOutcome: map[string]float64{"o1": 0.5, "o2": 1.0}}
	assert.NoError(t, ok.Validate())

	bad := &MasteryRecord{EMAByOutcome: map[string]float64{"o1": 1.2}}
	assert.Error(t, bad.Validate())

	negCount := &MasteryRecord{ObservationCounts: map[string]int{"o1": -1}}
	assert.Error(t, negCount.Validate())
}
