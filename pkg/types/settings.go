package types

import (
	"fmt"
	"math"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// Settings holds the analysis defaults of an installer team. They are stored in
// the database and can be changed without redeploying. Requests can override
// any of them.
type Settings struct {
	// Irradiation
	PreferredSource IrradiationSource `json:"preferredSource"`
	UseCache        bool              `json:"useCache"`

	// Utility used to fill tariffs when a request doesn't carry one
	UtilityProvider    string             `json:"utilityProvider"`
	UtilityRate        string             `json:"utilityRate"`
	UtilityRateOptions UtilityRateOptions `json:"utilityRateOptions"`

	// Financial assumptions, all as fractions per year
	DiscountRate         float64 `json:"discountRate"`
	TariffEscalationRate float64 `json:"tariffEscalationRate"`
	InflationRate        float64 `json:"inflationRate"`
	DegradationRate      float64 `json:"degradationRate"`
	AnalysisYears        int     `json:"analysisYears"`
	// Annual maintenance as a percentage of the initial investment.
	MaintenancePercent float64 `json:"maintenancePercent"`

	// Electrical
	ReferenceMinTempC float64 `json:"referenceMinTempC"`

	// Losses applied when a request has none
	DefaultLosses LossesBreakdown `json:"defaultLosses"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial financial assumptions
			if s.DiscountRate == 0 {
				s.DiscountRate = 0.10
				migrated = true
			}
			if s.TariffEscalationRate == 0 {
				s.TariffEscalationRate = 0.06
				migrated = true
			}
			if s.InflationRate == 0 {
				s.InflationRate = 0.045
				migrated = true
			}
			if s.DegradationRate == 0 {
				s.DegradationRate = 0.005
				migrated = true
			}
			if s.AnalysisYears == 0 {
				s.AnalysisYears = 25
				migrated = true
			}
		case 2:
			// version 2: electrical assumptions and losses
			if s.ReferenceMinTempC == 0 {
				s.ReferenceMinTempC = -10
				migrated = true
			}
			if s.DefaultLosses == (LossesBreakdown{}) {
				s.DefaultLosses = DefaultLossesBreakdown()
				migrated = true
			}
		case 3:
			// version 3: irradiation source preference and maintenance
			if s.PreferredSource == "" {
				s.PreferredSource = IrradiationSourceAuto
				s.UseCache = true
				migrated = true
			}
			if s.MaintenancePercent == 0 {
				s.MaintenancePercent = 1
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}

// maxSettingsAnalysisYears mirrors the longest horizon the financial analysis accepts.
const maxSettingsAnalysisYears = 50

// Validate checks the settings of a team before they are stored. The utility
// is checked against the tariff catalog by the caller.
func (s Settings) Validate() error {
	if _, err := ParseIrradiationSource(string(s.PreferredSource)); err != nil {
		return NewValidationError("preferredSource", "unknown irradiation source %q", s.PreferredSource)
	}
	rates := []struct {
		field string
		v     float64
	}{
		{"discountRate", s.DiscountRate},
		{"tariffEscalationRate", s.TariffEscalationRate},
		{"inflationRate", s.InflationRate},
	}
	for _, r := range rates {
		if math.IsNaN(r.v) || r.v <= -1 || r.v > 1 {
			return NewValidationError(r.field, "must be a fraction in (-1, 1], got %v", r.v)
		}
	}
	if math.IsNaN(s.DegradationRate) || s.DegradationRate < 0 || s.DegradationRate >= 1 {
		return NewValidationError("degradationRate", "must be a fraction in [0, 1), got %v", s.DegradationRate)
	}
	if s.AnalysisYears < 0 || s.AnalysisYears > maxSettingsAnalysisYears {
		return NewValidationError("analysisYears", "must be within [0, %d], got %d", maxSettingsAnalysisYears, s.AnalysisYears)
	}
	if math.IsNaN(s.MaintenancePercent) || s.MaintenancePercent < 0 || s.MaintenancePercent > 100 {
		return NewValidationError("maintenancePercent", "must be between 0 and 100, got %v", s.MaintenancePercent)
	}
	if math.IsNaN(s.ReferenceMinTempC) || s.ReferenceMinTempC < -60 || s.ReferenceMinTempC > 25 {
		return NewValidationError("referenceMinTempC", "must be between -60 and 25, got %v", s.ReferenceMinTempC)
	}
	if s.UtilityRate != "" && s.UtilityProvider == "" {
		return NewValidationError("utilityProvider", "is required with a utility rate")
	}
	return s.DefaultLosses.Validate()
}
