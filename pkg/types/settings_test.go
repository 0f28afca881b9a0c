package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("v1: financial defaults", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 0.10, s.DiscountRate)
		assert.Equal(t, 0.06, s.TariffEscalationRate)
		assert.Equal(t, 0.045, s.InflationRate)
		assert.Equal(t, 0.005, s.DegradationRate)
		assert.Equal(t, 25, s.AnalysisYears)
	})

	t.Run("v1 keeps explicit values", func(t *testing.T) {
		s, _, err := MigrateSettings(Settings{DiscountRate: 0.12, AnalysisYears: 30}, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.12, s.DiscountRate)
		assert.Equal(t, 30, s.AnalysisYears)
	})

	t.Run("v1 to v2: electrical and losses", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, -10.0, s.ReferenceMinTempC)
		assert.Equal(t, DefaultLossesBreakdown(), s.DefaultLosses)
		// v1 fields are untouched when starting from v1
		assert.Zero(t, s.DiscountRate)
	})

	t.Run("v2 to v3: source preference", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 2)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, IrradiationSourceAuto, s.PreferredSource)
		assert.True(t, s.UseCache)
		assert.Equal(t, 1.0, s.MaintenancePercent)
	})

	t.Run("v2 to v3: explicit source keeps cache flag", func(t *testing.T) {
		s, _, err := MigrateSettings(Settings{PreferredSource: IrradiationSourcePVGIS, MaintenancePercent: 2}, 2)
		require.NoError(t, err)
		assert.Equal(t, IrradiationSourcePVGIS, s.PreferredSource)
		assert.False(t, s.UseCache)
		assert.Equal(t, 2.0, s.MaintenancePercent)
	})

	t.Run("no change: current version", func(t *testing.T) {
		current := Settings{
			PreferredSource: IrradiationSourceNASA,
			UtilityProvider: "cemig",
			UtilityRate:     "b1",
		}
		s, changed, err := MigrateSettings(current, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, current, s)
	})
}

func TestSettingsValidate(t *testing.T) {
	valid, _, err := MigrateSettings(Settings{}, 0)
	require.NoError(t, err)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{"unknown source", func(s *Settings) { s.PreferredSource = "sky" }, "preferredSource"},
		{"discount rate", func(s *Settings) { s.DiscountRate = -1 }, "discountRate"},
		{"escalation rate", func(s *Settings) { s.TariffEscalationRate = 1.5 }, "tariffEscalationRate"},
		{"degradation", func(s *Settings) { s.DegradationRate = 1 }, "degradationRate"},
		{"analysis years", func(s *Settings) { s.AnalysisYears = 51 }, "analysisYears"},
		{"maintenance", func(s *Settings) { s.MaintenancePercent = -1 }, "maintenancePercent"},
		{"reference temperature", func(s *Settings) { s.ReferenceMinTempC = 40 }, "referenceMinTempC"},
		{"rate without provider", func(s *Settings) { s.UtilityRate = "cemig_b1" }, "utilityProvider"},
		{"losses", func(s *Settings) { s.DefaultLosses.Wiring = 101 }, "losses.wiring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.modify(&s)
			err := s.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
