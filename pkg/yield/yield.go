// Package yield estimates the energy a PV system produces from an
// irradiation profile. The estimate is split into named stages so the
// additive system losses and the multiplicative orientation loss can be
// applied and inspected separately.
package yield

import (
	"math"

	"github.com/heliometric/heliometric/pkg/types"
	"gonum.org/v1/gonum/floats"
)

const hoursPerYear = 8760

const (
	// orientationLossPerDegree is the loss in percent per degree of
	// deviation from the ideal azimuth.
	orientationLossPerDegree = 0.5
	maxOrientationLoss       = 20.0
)

// RawGeneration returns the monthly generation in kWh before any loss:
// size × daily irradiation × days in month. One kWh/m²/day equals one peak
// sun hour so a 1 kWp system produces 1 kWh per peak sun hour.
func RawGeneration(irr types.IrradiationProfile, systemSizeKW float64) [12]float64 {
	var monthly [12]float64
	if systemSizeKW <= 0 {
		return monthly
	}
	for i, v := range irr.MonthlyIrradiation {
		monthly[i] = systemSizeKW * v * float64(types.DaysInMonth[i])
	}
	return monthly
}

// LossFactor is the fraction of energy left after the additive losses,
// never below 0.
func LossFactor(losses types.LossesBreakdown) float64 {
	return math.Max(0, 1-losses.Total()/100)
}

// ApplyAdditiveLosses scales every month by LossFactor.
func ApplyAdditiveLosses(monthly [12]float64, losses types.LossesBreakdown) [12]float64 {
	f := LossFactor(losses)
	for i := range monthly {
		monthly[i] *= f
	}
	return monthly
}

// OrientationFactor returns the multiplicative factor for an array facing
// azimuth (0 north, 180 south). The ideal azimuth faces the equator: north
// for sites on or south of the equator, south otherwise. Every degree of
// deviation costs 0.5% capped at 20%.
func OrientationFactor(azimuth, latitude float64) float64 {
	az := math.Mod(azimuth, 360)
	if az < 0 {
		az += 360
	}
	var deviation float64
	if latitude <= 0 {
		deviation = math.Min(az, 360-az)
	} else {
		deviation = math.Abs(az - 180)
	}
	loss := math.Min(orientationLossPerDegree*deviation, maxOrientationLoss)
	return 1 - loss/100
}

// ApplyOrientationLoss scales every month by factor.
func ApplyOrientationLoss(monthly [12]float64, factor float64) [12]float64 {
	for i := range monthly {
		monthly[i] *= factor
	}
	return monthly
}

// Estimate returns the production of a system with the additive losses
// applied and no orientation loss.
func Estimate(irr types.IrradiationProfile, systemSizeKW float64, losses types.LossesBreakdown) (types.EnergyProductionResult, error) {
	return estimate(irr, systemSizeKW, losses, 1)
}

// EstimateWithOrientation chains every stage: raw generation, additive
// losses, then the orientation loss for the given azimuth at the profile's
// latitude.
func EstimateWithOrientation(irr types.IrradiationProfile, systemSizeKW float64, losses types.LossesBreakdown, azimuth float64) (types.EnergyProductionResult, error) {
	return estimate(irr, systemSizeKW, losses, OrientationFactor(azimuth, irr.Location.Latitude))
}

func estimate(irr types.IrradiationProfile, systemSizeKW float64, losses types.LossesBreakdown, orientation float64) (types.EnergyProductionResult, error) {
	if math.IsNaN(systemSizeKW) || math.IsInf(systemSizeKW, 0) {
		return types.EnergyProductionResult{}, types.NewValidationError("systemSizeKW", "must be a finite number")
	}
	if err := losses.Validate(); err != nil {
		return types.EnergyProductionResult{}, err
	}

	res := types.DefaultEnergyProduction()
	res.TotalLosses = losses.Total()
	res.OrientationFactor = orientation
	if systemSizeKW <= 0 || irr.IsZero() {
		return res, nil
	}

	monthly := ApplyOrientationLoss(ApplyAdditiveLosses(RawGeneration(irr, systemSizeKW), losses), orientation)
	for i, v := range monthly {
		res.MonthlyGeneration[i] = math.Round(v)
	}
	res.AnnualGeneration = floats.Sum(res.MonthlyGeneration[:])
	res.CapacityFactor = res.AnnualGeneration / (systemSizeKW * hoursPerYear)
	res.SpecificProduction = res.AnnualGeneration / systemSizeKW
	return res, nil
}

// SystemSizeForTarget returns the system size in kWp needed to produce
// annualConsumptionKWh with the given losses, rounded up to 0.01 kWp.
func SystemSizeForTarget(irr types.IrradiationProfile, annualConsumptionKWh float64, losses types.LossesBreakdown) (float64, error) {
	if annualConsumptionKWh <= 0 {
		return 0, types.NewValidationError("annualConsumption", "must be positive")
	}
	if err := losses.Validate(); err != nil {
		return 0, err
	}
	raw := RawGeneration(irr, 1)
	perKWp := floats.Sum(raw[:]) * LossFactor(losses)
	if perKWp <= 0 {
		return 0, types.NewValidationError("irradiation", "yields no generation")
	}
	return math.Ceil(annualConsumptionKWh/perKWp*100) / 100, nil
}
