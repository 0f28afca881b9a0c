package types

import "time"

// AnalysisResult is the assembled response handed to the project and proposal
// layers. Field names are a stable contract.
type AnalysisResult struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectID,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	Location     Location           `json:"location"`
	SystemSizeKW float64            `json:"systemSizeKW"`
	Irradiation  IrradiationProfile `json:"irradiation"`
	Losses       LossesBreakdown    `json:"losses"`
	TotalLosses  float64            `json:"totalLosses"`
	Orientation  float64            `json:"orientationFactor"`
	ModuleCount  int                `json:"moduleCount"`
	TariffGroup  TariffGroup        `json:"tariffGroup,omitempty"`

	// EnergyOutput is the full yield estimate, flattened into the fields below.
	EnergyOutput EnergyProductionResult `json:"-"`

	MonthlyGeneration  [12]float64 `json:"monthlyGeneration"`
	AnnualGeneration   float64     `json:"annualGeneration"`
	CapacityFactor     float64     `json:"capacityFactor"`
	SpecificProduction float64     `json:"specificProduction"`

	FinancialAnalysis   FinancialResult         `json:"financialAnalysis"`
	EnvironmentalImpact EnvironmentalImpact     `json:"environmentalImpact"`
	MPPTCompatibility   MPPTCompatibilityResult `json:"mpptCompatibility"`

	// Warnings lists every optional sub-result that was replaced by its default.
	Warnings []string `json:"warnings,omitempty"`
}

// DefaultAnalysisResult returns a result where every optional sub-result holds
// its documented default.
func DefaultAnalysisResult() AnalysisResult {
	return AnalysisResult{
		EnergyOutput:        DefaultEnergyProduction(),
		Orientation:         1,
		FinancialAnalysis:   DefaultFinancialResult(),
		EnvironmentalImpact: DefaultEnvironmentalImpact(),
		MPPTCompatibility:   DefaultMPPTCompatibility(),
	}
}

// SetEnergyOutput copies the yield estimate into the flat contract fields.
func (r *AnalysisResult) SetEnergyOutput(e EnergyProductionResult) {
	r.EnergyOutput = e
	r.MonthlyGeneration = e.MonthlyGeneration
	r.AnnualGeneration = e.AnnualGeneration
	r.CapacityFactor = e.CapacityFactor
	r.SpecificProduction = e.SpecificProduction
	r.TotalLosses = e.TotalLosses
	r.Orientation = e.OrientationFactor
}
