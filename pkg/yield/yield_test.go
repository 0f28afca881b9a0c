package yield

import (
	"math"
	"testing"

	"github.com/heliometric/heliometric/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatProfile(t *testing.T, daily, latitude float64) types.IrradiationProfile {
	var monthly [12]float64
	for i := range monthly {
		monthly[i] = daily
	}
	p, err := types.NewIrradiationProfile(types.IrradiationSourcePVGIS, types.Location{Latitude: latitude, Longitude: -46.6}, monthly, 0.9)
	require.NoError(t, err)
	return p
}

func belo(t *testing.T) types.IrradiationProfile {
	p, err := types.NewIrradiationProfile(
		types.IrradiationSourcePVGIS,
		types.Location{Latitude: -19.92, Longitude: -43.94},
		[12]float64{5.9, 6.1, 5.4, 5.0, 4.5, 4.3, 4.5, 5.2, 5.4, 5.6, 5.5, 5.7},
		0.9,
	)
	require.NoError(t, err)
	return p
}

func TestEstimate(t *testing.T) {
	t.Run("no losses", func(t *testing.T) {
		res, err := Estimate(flatProfile(t, 5, -23), 10, types.LossesBreakdown{})
		require.NoError(t, err)
		assert.Equal(t, 1550.0, res.MonthlyGeneration[0])
		assert.Equal(t, 1400.0, res.MonthlyGeneration[1])
		assert.Equal(t, 18250.0, res.AnnualGeneration)
		assert.InDelta(t, 18250.0/87600, res.CapacityFactor, 1e-12)
		assert.Equal(t, 1825.0, res.SpecificProduction)
		assert.Equal(t, 1.0, res.OrientationFactor)
		assert.Equal(t, 0.0, res.TotalLosses)
	})

	t.Run("default losses", func(t *testing.T) {
		res, err := Estimate(flatProfile(t, 5, -23), 10, types.DefaultLossesBreakdown())
		require.NoError(t, err)
		// 1550 × 0.86 = 1333
		assert.Equal(t, 1333.0, res.MonthlyGeneration[0])
		assert.Equal(t, 14.0, res.TotalLosses)
	})

	t.Run("annual is the sum of whole months", func(t *testing.T) {
		res, err := Estimate(belo(t), 7.37, types.DefaultLossesBreakdown())
		require.NoError(t, err)
		var sum float64
		for _, v := range res.MonthlyGeneration {
			assert.Equal(t, math.Round(v), v)
			sum += v
		}
		assert.Equal(t, sum, res.AnnualGeneration)
		assert.Equal(t, math.Round(sum), res.AnnualGeneration)
	})

	t.Run("degenerate input", func(t *testing.T) {
		for _, size := range []float64{0, -5} {
			res, err := Estimate(belo(t), size, types.DefaultLossesBreakdown())
			require.NoError(t, err)
			assert.Equal(t, [12]float64{}, res.MonthlyGeneration)
			assert.Equal(t, 0.0, res.AnnualGeneration)
			assert.Equal(t, 0.0, res.CapacityFactor)
		}

		res, err := Estimate(types.IrradiationProfile{}, 10, types.DefaultLossesBreakdown())
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.AnnualGeneration)
		assert.Equal(t, 0.0, res.SpecificProduction)
	})

	t.Run("losses over 100 percent floor at zero", func(t *testing.T) {
		losses := types.LossesBreakdown{Shading: 60, Soiling: 50}
		assert.Equal(t, 0.0, LossFactor(losses))
		res, err := Estimate(belo(t), 10, losses)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.AnnualGeneration)
	})

	t.Run("invalid losses", func(t *testing.T) {
		_, err := Estimate(belo(t), 10, types.LossesBreakdown{Wiring: -1})
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))

		_, err = Estimate(belo(t), math.NaN(), types.LossesBreakdown{})
		assert.True(t, types.IsValidation(err))
	})
}

func TestAdditiveLossScaling(t *testing.T) {
	raw := RawGeneration(belo(t), 8.2)
	l1 := types.LossesBreakdown{Shading: 3, Soiling: 2}
	l2 := types.DefaultLossesBreakdown()

	a := ApplyAdditiveLosses(raw, l1)
	b := ApplyAdditiveLosses(raw, l2)
	want := (1 - l1.Total()/100) / (1 - l2.Total()/100)
	for i := range a {
		assert.InDelta(t, want, a[i]/b[i], 1e-12, "month %d", i+1)
	}

	// the same ratio holds on the rounded annual within rounding error
	ra, err := Estimate(belo(t), 8.2, l1)
	require.NoError(t, err)
	rb, err := Estimate(belo(t), 8.2, l2)
	require.NoError(t, err)
	assert.InDelta(t, want, ra.AnnualGeneration/rb.AnnualGeneration, 1e-3)
}

func TestOrientationFactor(t *testing.T) {
	cases := []struct {
		name     string
		azimuth  float64
		latitude float64
		want     float64
	}{
		{"south hemisphere facing north", 0, -23, 1},
		{"south hemisphere 20 degrees off", 20, -23, 0.9},
		{"south hemisphere wraps around", 340, -23, 0.9},
		{"south hemisphere facing east is capped", 90, -23, 0.8},
		{"south hemisphere facing south", 180, -23, 0.8},
		{"equator faces north", 0, 0, 1},
		{"north hemisphere facing south", 180, 40, 1},
		{"north hemisphere 10 degrees off", 170, 40, 0.95},
		{"north hemisphere facing north", 0, 40, 0.8},
		{"negative azimuth", -20, -23, 0.9},
		{"full turn", 360, -23, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, OrientationFactor(c.azimuth, c.latitude), 1e-12)
		})
	}
}

func TestEstimateWithOrientation(t *testing.T) {
	base, err := Estimate(belo(t), 10, types.DefaultLossesBreakdown())
	require.NoError(t, err)

	res, err := EstimateWithOrientation(belo(t), 10, types.DefaultLossesBreakdown(), 20)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.OrientationFactor, 1e-12)
	// each month is rounded separately so allow about a kWh per month
	assert.InDelta(t, base.AnnualGeneration*0.9, res.AnnualGeneration, 12)

	ideal, err := EstimateWithOrientation(belo(t), 10, types.DefaultLossesBreakdown(), 0)
	require.NoError(t, err)
	assert.Equal(t, base.MonthlyGeneration, ideal.MonthlyGeneration)
}

func TestSystemSizeForTarget(t *testing.T) {
	size, err := SystemSizeForTarget(flatProfile(t, 5, -23), 18250, types.LossesBreakdown{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, size)

	size, err = SystemSizeForTarget(flatProfile(t, 5, -23), 6000, types.DefaultLossesBreakdown())
	require.NoError(t, err)
	// 6000 / (1825 × 0.86) = 3.8229
	assert.Equal(t, 3.83, size)

	_, err = SystemSizeForTarget(types.IrradiationProfile{}, 6000, types.LossesBreakdown{})
	assert.True(t, types.IsValidation(err))

	_, err = SystemSizeForTarget(flatProfile(t, 5, -23), 0, types.LossesBreakdown{})
	assert.True(t, types.IsValidation(err))
}
