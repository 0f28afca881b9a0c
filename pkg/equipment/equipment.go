// Package equipment holds module and inverter catalog records and converts
// them into the selections used for string sizing.
//
// Records come in two schemas. The legacy schema is a flat document with the
// Voc temperature coefficient in %/°C and a sentinel owner for public
// records. The shared schema is the Equipment type itself. Both are decoded
// and validated at the boundary so the rest of the pipeline only sees
// Equipment.
package equipment

import (
	"errors"
	"fmt"
	"math"

	"github.com/heliometric/heliometric/pkg/types"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the caller.
var ErrNotFound = errors.New("equipment not found")

// Kind discriminates Equipment.
type Kind string

const (
	KindModule   Kind = "module"
	KindInverter Kind = "inverter"
)

// ModuleSpec is the datasheet of a PV module.
type ModuleSpec struct {
	Manufacturer  string  `json:"manufacturer" yaml:"manufacturer"`
	Model         string  `json:"model" yaml:"model"`
	NominalPowerW float64 `json:"nominalPowerW" yaml:"nominalPowerW"`
	VocV          float64 `json:"vocV" yaml:"vocV"`
	VmpV          float64 `json:"vmpV,omitempty" yaml:"vmpV"`
	IscA          float64 `json:"iscA" yaml:"iscA"`
	ImpA          float64 `json:"impA,omitempty" yaml:"impA"`
	// TempCoeffVoc is a fraction per °C.
	TempCoeffVoc  float64 `json:"tempCoeffVoc" yaml:"tempCoeffVoc"`
	EfficiencyPct float64 `json:"efficiencyPct,omitempty" yaml:"efficiencyPct"`
}

// InverterSpec is the datasheet of a grid-tie inverter.
type InverterSpec struct {
	Manufacturer            string  `json:"manufacturer" yaml:"manufacturer"`
	Model                   string  `json:"model" yaml:"model"`
	RatedACPowerW           float64 `json:"ratedACPowerW" yaml:"ratedACPowerW"`
	MaxDCVoltageV           float64 `json:"maxDCVoltageV" yaml:"maxDCVoltageV"`
	NumberOfMPPTs           int     `json:"numberOfMPPTs" yaml:"numberOfMPPTs"`
	StringsPerMPPT          int     `json:"stringsPerMPPT" yaml:"stringsPerMPPT"`
	MaxInputCurrentPerMPPTA float64 `json:"maxInputCurrentPerMPPTA,omitempty" yaml:"maxInputCurrentPerMPPTA"`
	EfficiencyPct           float64 `json:"efficiencyPct,omitempty" yaml:"efficiencyPct"`
}

// Equipment is a catalog record. Exactly one of Module and Inverter is set,
// matching Kind.
type Equipment struct {
	ID       string        `json:"id" yaml:"id"`
	Kind     Kind          `json:"kind" yaml:"kind"`
	Owner    types.Owner   `json:"owner" yaml:"owner"`
	Module   *ModuleSpec   `json:"module,omitempty" yaml:"module"`
	Inverter *InverterSpec `json:"inverter,omitempty" yaml:"inverter"`
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate checks the record is consistent with its kind.
func (e Equipment) Validate() error {
	if e.ID == "" {
		return types.NewValidationError("equipment.id", "is required")
	}
	switch e.Owner.Scope {
	case types.OwnershipSystem:
	case types.OwnershipTeam, types.OwnershipUser:
		if e.Owner.ID == "" {
			return types.NewValidationError("equipment.owner.id", "is required for %s records", e.Owner.Scope)
		}
	default:
		return types.NewValidationError("equipment.owner.scope", "unknown scope %q", e.Owner.Scope)
	}

	switch e.Kind {
	case KindModule:
		m := e.Module
		if m == nil || e.Inverter != nil {
			return types.NewValidationError("equipment.module", "module records carry only a module spec")
		}
		if !positive(m.NominalPowerW) {
			return types.NewValidationError("equipment.module.nominalPowerW", "must be positive")
		}
		if !positive(m.VocV) {
			return types.NewValidationError("equipment.module.vocV", "must be positive")
		}
		if math.IsNaN(m.IscA) || m.IscA < 0 {
			return types.NewValidationError("equipment.module.iscA", "cannot be negative")
		}
		if math.IsNaN(m.TempCoeffVoc) || math.Abs(m.TempCoeffVoc) >= 0.1 {
			return types.NewValidationError("equipment.module.tempCoeffVoc", "must be a fraction per °C, got %v", m.TempCoeffVoc)
		}
	case KindInverter:
		inv := e.Inverter
		if inv == nil || e.Module != nil {
			return types.NewValidationError("equipment.inverter", "inverter records carry only an inverter spec")
		}
		if !positive(inv.RatedACPowerW) {
			return types.NewValidationError("equipment.inverter.ratedACPowerW", "must be positive")
		}
		if !positive(inv.MaxDCVoltageV) {
			return types.NewValidationError("equipment.inverter.maxDCVoltageV", "must be positive")
		}
		if inv.NumberOfMPPTs <= 0 {
			return types.NewValidationError("equipment.inverter.numberOfMPPTs", "must be positive")
		}
		if inv.StringsPerMPPT <= 0 {
			return types.NewValidationError("equipment.inverter.stringsPerMPPT", "must be positive")
		}
	default:
		return types.NewValidationError("equipment.kind", "unknown kind %q", e.Kind)
	}
	return nil
}

// ToModuleSelection returns the fields string sizing needs.
func (e Equipment) ToModuleSelection() (types.ModuleSelection, error) {
	if e.Kind != KindModule || e.Module == nil {
		return types.ModuleSelection{}, fmt.Errorf("equipment %s is a %s, not a module", e.ID, e.Kind)
	}
	return types.ModuleSelection{
		ID:            e.ID,
		Model:         e.Module.Model,
		NominalPowerW: e.Module.NominalPowerW,
		VocV:          e.Module.VocV,
		IscA:          e.Module.IscA,
		TempCoeffVoc:  e.Module.TempCoeffVoc,
	}, nil
}

// ToInverterSelection returns the fields string sizing needs for quantity
// units of the inverter.
func (e Equipment) ToInverterSelection(quantity int) (types.InverterSelection, error) {
	if e.Kind != KindInverter || e.Inverter == nil {
		return types.InverterSelection{}, fmt.Errorf("equipment %s is a %s, not an inverter", e.ID, e.Kind)
	}
	return types.InverterSelection{
		ID:                      e.ID,
		Model:                   e.Inverter.Model,
		Quantity:                quantity,
		RatedACPowerW:           e.Inverter.RatedACPowerW,
		MaxDCVoltageV:           e.Inverter.MaxDCVoltageV,
		NumberOfMPPTs:           e.Inverter.NumberOfMPPTs,
		StringsPerMPPT:          e.Inverter.StringsPerMPPT,
		MaxInputCurrentPerMPPTA: e.Inverter.MaxInputCurrentPerMPPTA,
	}, nil
}
