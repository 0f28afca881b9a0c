// Package environment converts generated energy into avoided emissions.
package environment

import (
	"math"

	"github.com/heliometric/heliometric/pkg/types"
)

const (
	// GridEmissionFactor is the average CO2 emitted by the Brazilian
	// interconnected grid in kg per kWh.
	GridEmissionFactor = 0.084

	treeKgPerYear  = 22
	carKgPerYear   = 4600
	coalKgPerKgCO2 = 2.5
	oilKgPerBarrel = 430
	homeKWhPerYear = 3650
)

// Calculate returns the yearly impact of annualGeneration kWh. Zero, negative
// or non-finite generation has no impact.
func Calculate(annualGeneration float64) types.EnvironmentalImpact {
	if !(annualGeneration > 0) || math.IsInf(annualGeneration, 0) {
		return types.DefaultEnvironmentalImpact()
	}
	co2 := annualGeneration * GridEmissionFactor
	return types.EnvironmentalImpact{
		CO2SavingsKg:         co2,
		TreesEquivalent:      co2 / treeKgPerYear,
		CarsEquivalent:       co2 / carKgPerYear,
		CoalEquivalentKg:     co2 * coalKgPerKgCO2,
		OilBarrelsEquivalent: co2 / oilKgPerBarrel,
		HomesPowered:         annualGeneration / homeKWhPerYear,
	}
}
