package analysis

import (
	"math"

	"github.com/heliometric/heliometric/pkg/types"
)

// InverterRef selects quantity units of a catalog inverter.
type InverterRef struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// FinancialRequest carries the project costs and the tariff. Nil rates are
// filled from the team settings by ApplySettings.
type FinancialRequest struct {
	InitialInvestment     float64  `json:"initialInvestment"`
	AnnualMaintenanceCost *float64 `json:"annualMaintenanceCost,omitempty"`
	DiscountRate          *float64 `json:"discountRate,omitempty"`
	TariffEscalationRate  *float64 `json:"tariffEscalationRate,omitempty"`
	InflationRate         *float64 `json:"inflationRate,omitempty"`
	DegradationRate       *float64 `json:"degradationRate,omitempty"`
	AnalysisYears         int      `json:"analysisYears,omitempty"`

	// Tariff wins over the utility fields when both are given.
	Tariff             *types.TariffConfig      `json:"tariff,omitempty"`
	UtilityProvider    string                   `json:"utilityProvider,omitempty"`
	UtilityRate        string                   `json:"utilityRate,omitempty"`
	UtilityRateOptions types.UtilityRateOptions `json:"utilityRateOptions"`

	Consumption        []float64 `json:"consumption,omitempty"`
	ConsumptionPeak    []float64 `json:"consumptionPeak,omitempty"`
	ConsumptionOffPeak []float64 `json:"consumptionOffPeak,omitempty"`
	// PeakGenerationShare is used for group A tariffs without a peak period.
	PeakGenerationShare *float64 `json:"peakGenerationShare,omitempty"`

	maintenancePercent float64
}

// Request is everything an analysis needs. Only the location and a way to
// size the system are mandatory.
type Request struct {
	ProjectID string `json:"projectID,omitempty"`
	TeamID    string `json:"teamID,omitempty"`
	UserID    string `json:"-"`

	Location types.Location `json:"location"`
	Tilt     float64        `json:"tilt"`
	// Azimuth defaults to facing the equator.
	Azimuth      *float64                `json:"azimuth,omitempty"`
	MountingType types.MountingType      `json:"mountingType,omitempty"`
	Source       types.IrradiationSource `json:"source,omitempty"`
	UseCache     *bool                   `json:"useCache,omitempty"`

	// SystemSizeKW is derived from the module and ModuleCount when zero.
	SystemSizeKW float64                `json:"systemSizeKW,omitempty"`
	Losses       *types.LossesBreakdown `json:"losses,omitempty"`

	ModuleCount       int                       `json:"moduleCount,omitempty"`
	Module            *types.ModuleSelection    `json:"module,omitempty"`
	ModuleID          string                    `json:"moduleID,omitempty"`
	Inverters         []types.InverterSelection `json:"inverters,omitempty"`
	InverterRefs      []InverterRef             `json:"inverterRefs,omitempty"`
	ReferenceMinTempC *float64                  `json:"referenceMinTempC,omitempty"`

	Financial *FinancialRequest `json:"financial,omitempty"`
}

func setIfNil(p **float64, v float64) {
	if *p == nil {
		*p = &v
	}
}

// ApplySettings fills everything the request left unset from the team
// settings.
func (r *Request) ApplySettings(s types.Settings) {
	if r.Source == "" {
		r.Source = s.PreferredSource
	}
	if r.UseCache == nil {
		useCache := s.UseCache
		r.UseCache = &useCache
	}
	if r.Losses == nil && s.DefaultLosses != (types.LossesBreakdown{}) {
		losses := s.DefaultLosses
		r.Losses = &losses
	}
	if r.ReferenceMinTempC == nil && s.ReferenceMinTempC != 0 {
		setIfNil(&r.ReferenceMinTempC, s.ReferenceMinTempC)
	}

	if r.Financial != nil {
		r.Financial.ApplySettings(s)
	}
}

// ApplySettings fills the unset rates and the utility from the team settings.
func (f *FinancialRequest) ApplySettings(s types.Settings) {
	setIfNil(&f.DiscountRate, s.DiscountRate)
	setIfNil(&f.TariffEscalationRate, s.TariffEscalationRate)
	setIfNil(&f.InflationRate, s.InflationRate)
	setIfNil(&f.DegradationRate, s.DegradationRate)
	if f.AnalysisYears == 0 {
		f.AnalysisYears = s.AnalysisYears
	}
	f.maintenancePercent = s.MaintenancePercent
	if f.Tariff == nil && f.UtilityProvider == "" {
		f.UtilityProvider = s.UtilityProvider
		f.UtilityRate = s.UtilityRate
		f.UtilityRateOptions = s.UtilityRateOptions
	}
}

// azimuth returns the requested azimuth or the one facing the equator.
func (r Request) azimuth() float64 {
	if r.Azimuth != nil {
		return *r.Azimuth
	}
	if r.Location.Latitude <= 0 {
		return 0
	}
	return 180
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (f FinancialRequest) maintenanceCost() float64 {
	if f.AnnualMaintenanceCost != nil {
		return *f.AnnualMaintenanceCost
	}
	return f.InitialInvestment * f.maintenancePercent / 100
}

func (r Request) validate() error {
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.SystemSizeKW) || r.SystemSizeKW < 0 {
		return types.NewValidationError("systemSizeKW", "cannot be negative")
	}
	if r.ModuleCount < 0 {
		return types.NewValidationError("moduleCount", "cannot be negative")
	}
	if r.Module != nil && r.ModuleID != "" {
		return types.NewValidationError("moduleID", "cannot be combined with module")
	}
	if r.Losses != nil {
		if err := r.Losses.Validate(); err != nil {
			return err
		}
	}
	for i, ref := range r.InverterRefs {
		if ref.ID == "" {
			return types.NewValidationError("inverterRefs", "entry %d has no id", i)
		}
	}
	if r.Financial != nil {
		return r.Financial.validate()
	}
	return nil
}

func (f FinancialRequest) validate() error {
	if math.IsNaN(f.InitialInvestment) || f.InitialInvestment <= 0 {
		return types.NewValidationError("financial.initialInvestment", "must be positive")
	}
	if f.Tariff == nil && f.UtilityProvider == "" {
		return types.NewValidationError("financial.tariff", "is required when no utility is configured")
	}
	return nil
}
