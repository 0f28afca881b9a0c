package environment

import (
	"math"
	"testing"

	"github.com/heliometric/heliometric/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	impact := Calculate(10000)
	assert.InDelta(t, 840, impact.CO2SavingsKg, 1e-9)
	assert.InDelta(t, 840.0/22, impact.TreesEquivalent, 1e-9)
	assert.InDelta(t, 840.0/4600, impact.CarsEquivalent, 1e-9)
	assert.InDelta(t, 2100, impact.CoalEquivalentKg, 1e-9)
	assert.InDelta(t, 840.0/430, impact.OilBarrelsEquivalent, 1e-9)
	assert.InDelta(t, 10000.0/3650, impact.HomesPowered, 1e-9)
}

func TestCalculateNoGeneration(t *testing.T) {
	for _, gen := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		assert.Equal(t, types.DefaultEnvironmentalImpact(), Calculate(gen))
	}
}

func TestCalculateLinear(t *testing.T) {
	a := Calculate(5000)
	b := Calculate(10000)
	assert.InDelta(t, 2*a.CO2SavingsKg, b.CO2SavingsKg, 1e-9)
	assert.InDelta(t, 2*a.HomesPowered, b.HomesPowered, 1e-9)
}
