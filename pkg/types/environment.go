package types

// EnvironmentalImpact converts annual generation into avoided emissions and
// everyday equivalents.
type EnvironmentalImpact struct {
	CO2SavingsKg         float64 `json:"co2SavingsKg"`
	TreesEquivalent      float64 `json:"treesEquivalent"`
	CarsEquivalent       float64 `json:"carsEquivalent"`
	CoalEquivalentKg     float64 `json:"coalEquivalentKg"`
	OilBarrelsEquivalent float64 `json:"oilBarrelsEquivalent"`
	HomesPowered         float64 `json:"homesPowered"`
}

// DefaultEnvironmentalImpact is the impact of zero generation.
func DefaultEnvironmentalImpact() EnvironmentalImpact {
	return EnvironmentalImpact{}
}
