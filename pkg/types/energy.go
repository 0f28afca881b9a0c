package types

import "math"

// LossesBreakdown holds the named system losses in percent.
type LossesBreakdown struct {
	Shading  float64 `json:"shading"`
	Mismatch float64 `json:"mismatch"`
	Wiring   float64 `json:"wiring"`
	Soiling  float64 `json:"soiling"`
	Inverter float64 `json:"inverter"`
	Other    float64 `json:"other"`
}

// DefaultLossesBreakdown is used when a request does not carry losses.
func DefaultLossesBreakdown() LossesBreakdown {
	return LossesBreakdown{
		Shading:  3,
		Mismatch: 2,
		Wiring:   2,
		Soiling:  2,
		Inverter: 3,
		Other:    2,
	}
}

// Total is the arithmetic sum of every component. The components are not
// compounded multiplicatively.
func (l LossesBreakdown) Total() float64 {
	return l.Shading + l.Mismatch + l.Wiring + l.Soiling + l.Inverter + l.Other
}

// Validate ensures each component is a percentage.
func (l LossesBreakdown) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"losses.shading", l.Shading},
		{"losses.mismatch", l.Mismatch},
		{"losses.wiring", l.Wiring},
		{"losses.soiling", l.Soiling},
		{"losses.inverter", l.Inverter},
		{"losses.other", l.Other},
	} {
		if math.IsNaN(c.value) || c.value < 0 || c.value > 100 {
			return NewValidationError(c.name, "must be within [0,100], got %v", c.value)
		}
	}
	return nil
}

// EnergyProductionResult is the estimated generation of a system. Monthly
// values are whole kWh and AnnualGeneration is exactly their sum.
type EnergyProductionResult struct {
	MonthlyGeneration  [12]float64 `json:"monthlyGeneration"`
	AnnualGeneration   float64     `json:"annualGeneration"`
	CapacityFactor     float64     `json:"capacityFactor"`
	SpecificProduction float64     `json:"specificProduction"`
	// TotalLosses is the additive loss percentage that was applied.
	TotalLosses float64 `json:"totalLosses"`
	// OrientationFactor is the separate multiplicative orientation stage,
	// 1 when it was not applied.
	OrientationFactor float64 `json:"orientationFactor"`
}

// DefaultEnergyProduction is the all-zero result.
func DefaultEnergyProduction() EnergyProductionResult {
	return EnergyProductionResult{OrientationFactor: 1}
}
