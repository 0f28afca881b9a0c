// Package mppt sizes PV strings against the MPPT inputs of one or more
// inverters, correcting the module open-circuit voltage for the coldest
// expected temperature.
package mppt

import (
	"fmt"
	"math"

	"github.com/heliometric/heliometric/pkg/types"
)

const (
	// DefaultReferenceMinTempC is the design minimum cell temperature used
	// when a site has no better figure.
	DefaultReferenceMinTempC = -10.0

	// stcTempC is the cell temperature at standard test conditions.
	stcTempC = 25.0
)

// CorrectedVoc returns the module open-circuit voltage at refMinTempC:
// Voc × (1 + coeff × (Tmin − 25)). A negative coefficient raises the voltage
// in the cold.
func CorrectedVoc(module types.ModuleSelection, refMinTempC float64) (float64, error) {
	if math.IsNaN(module.VocV) || module.VocV <= 0 {
		return 0, types.NewValidationError("module.vocV", "must be positive, got %v", module.VocV)
	}
	if math.IsNaN(module.TempCoeffVoc) || math.Abs(module.TempCoeffVoc) >= 0.1 {
		return 0, types.NewValidationError("module.tempCoeffVoc", "must be a fraction per °C, got %v", module.TempCoeffVoc)
	}
	v := module.VocV * (1 + module.TempCoeffVoc*(refMinTempC-stcTempC))
	if v <= 0 {
		return 0, types.NewValidationError("module.vocV", "corrected open-circuit voltage is not positive at %v°C", refMinTempC)
	}
	return v, nil
}

func validateInverter(i int, inv types.InverterSelection) error {
	field := func(name string) string {
		return fmt.Sprintf("inverters[%d].%s", i, name)
	}
	if inv.Quantity < 1 {
		return types.NewValidationError(field("quantity"), "must be at least 1, got %d", inv.Quantity)
	}
	if math.IsNaN(inv.MaxDCVoltageV) || inv.MaxDCVoltageV <= 0 {
		return types.NewValidationError(field("maxDCVoltageV"), "is required")
	}
	if inv.NumberOfMPPTs < 1 {
		return types.NewValidationError(field("numberOfMPPTs"), "must be at least 1, got %d", inv.NumberOfMPPTs)
	}
	if inv.StringsPerMPPT < 1 {
		return types.NewValidationError(field("stringsPerMPPT"), "must be at least 1, got %d", inv.StringsPerMPPT)
	}
	if inv.MaxInputCurrentPerMPPTA < 0 {
		return types.NewValidationError(field("maxInputCurrentPerMPPTA"), "cannot be negative")
	}
	if inv.RatedACPowerW < 0 {
		return types.NewValidationError(field("ratedACPowerW"), "cannot be negative")
	}
	return nil
}

// Validate sizes strings of module across every inverter and checks whether
// moduleCount modules fit. An oversized configuration is reported in the
// result, only malformed inputs return an error.
func Validate(module types.ModuleSelection, inverters []types.InverterSelection, moduleCount int, refMinTempC float64) (types.MPPTCompatibilityResult, error) {
	if len(inverters) == 0 {
		return types.MPPTCompatibilityResult{}, types.NewValidationError("inverters", "at least one inverter is required")
	}
	if moduleCount < 0 {
		return types.MPPTCompatibilityResult{}, types.NewValidationError("moduleCount", "cannot be negative")
	}
	if module.IscA < 0 {
		return types.MPPTCompatibilityResult{}, types.NewValidationError("module.iscA", "cannot be negative")
	}
	for i, inv := range inverters {
		if err := validateInverter(i, inv); err != nil {
			return types.MPPTCompatibilityResult{}, err
		}
	}
	voc, err := CorrectedVoc(module, refMinTempC)
	if err != nil {
		return types.MPPTCompatibilityResult{}, err
	}

	res := types.DefaultMPPTCompatibility()
	res.Evaluated = true
	res.CorrectedVocV = voc
	res.ReferenceMinTempC = refMinTempC
	res.RequestedModuleCount = moduleCount
	res.CurrentWithinLimits = true

	for _, inv := range inverters {
		perString := int(math.Floor(inv.MaxDCVoltageV / voc))
		perMPPT := perString * inv.StringsPerMPPT
		total := perMPPT * inv.NumberOfMPPTs

		c := types.InverterCompatibility{
			Model:               inv.Model,
			Quantity:            inv.Quantity,
			MaxModulesPerString: perString,
			MaxModulesPerMPPT:   perMPPT,
			MaxModulesTotal:     total,
			MaxModulesAllUnits:  total * inv.Quantity,
			CurrentWithinLimits: true,
		}
		if perString == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: a single module (%.1f V) exceeds the maximum DC voltage of %.0f V",
				inv.Model, voc, inv.MaxDCVoltageV,
			))
		}
		switch {
		case inv.MaxInputCurrentPerMPPTA == 0:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: MPPT input current limit unknown, current check skipped", inv.Model))
		case module.IscA > inv.MaxInputCurrentPerMPPTA:
			c.CurrentWithinLimits = false
			res.CurrentWithinLimits = false
		}

		res.Inverters = append(res.Inverters, c)
		res.TotalSystemMPPTCapacity += c.MaxModulesAllUnits
		res.TotalPowerW += float64(inv.Quantity) * inv.RatedACPowerW
		res.TotalMPPTChannels += inv.Quantity * inv.NumberOfMPPTs * inv.StringsPerMPPT
	}
	res.MaxModulesTotal = res.TotalSystemMPPTCapacity
	res.IsWithinLimits = moduleCount <= res.TotalSystemMPPTCapacity
	res.IsCompatible = res.IsWithinLimits && res.CurrentWithinLimits
	if res.TotalPowerW > 0 {
		res.DCACRatio = float64(moduleCount) * module.NominalPowerW / res.TotalPowerW
	}
	return res, nil
}
