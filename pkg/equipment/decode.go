package equipment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/heliometric/heliometric/pkg/types"
)

// legacyPublicOwner marks public records in the legacy schema.
const legacyPublicOwner = "public"

type legacyRecord struct {
	ID           string `json:"_id"`
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Owner        string `json:"owner"`
	TeamID       string `json:"teamId"`

	// module
	Power       float64 `json:"power"`
	Voc         float64 `json:"voc"`
	Vmp         float64 `json:"vmp"`
	Isc         float64 `json:"isc"`
	Imp         float64 `json:"imp"`
	TempCoefVoc float64 `json:"tempCoefVoc"` // %/°C
	Efficiency  float64 `json:"efficiency"`

	// inverter
	MaxDCVoltage      float64 `json:"maxDcVoltage"`
	MPPTs             int     `json:"mppts"`
	StringsPerMPPT    int     `json:"stringsPerMppt"`
	MaxCurrentPerMPPT float64 `json:"maxCurrentPerMppt"`
}

func (r legacyRecord) owner() types.Owner {
	switch {
	case strings.EqualFold(r.Owner, legacyPublicOwner):
		return types.Owner{Scope: types.OwnershipSystem}
	case r.TeamID != "":
		return types.Owner{Scope: types.OwnershipTeam, ID: r.TeamID}
	default:
		return types.Owner{Scope: types.OwnershipUser, ID: r.Owner}
	}
}

// DecodeLegacy converts a legacy catalog document into Equipment.
func DecodeLegacy(b []byte) (Equipment, error) {
	var r legacyRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return Equipment{}, fmt.Errorf("failed to decode legacy equipment: %w", err)
	}

	e := Equipment{
		ID:    r.ID,
		Owner: r.owner(),
	}
	switch strings.ToLower(r.Type) {
	case "module", "panel":
		e.Kind = KindModule
		e.Module = &ModuleSpec{
			Manufacturer:  r.Manufacturer,
			Model:         r.Model,
			NominalPowerW: r.Power,
			VocV:          r.Voc,
			VmpV:          r.Vmp,
			IscA:          r.Isc,
			ImpA:          r.Imp,
			TempCoeffVoc:  r.TempCoefVoc / 100,
			EfficiencyPct: r.Efficiency,
		}
	case "inverter":
		e.Kind = KindInverter
		e.Inverter = &InverterSpec{
			Manufacturer:            r.Manufacturer,
			Model:                   r.Model,
			RatedACPowerW:           r.Power,
			MaxDCVoltageV:           r.MaxDCVoltage,
			NumberOfMPPTs:           r.MPPTs,
			StringsPerMPPT:          r.StringsPerMPPT,
			MaxInputCurrentPerMPPTA: r.MaxCurrentPerMPPT,
			EfficiencyPct:           r.Efficiency,
		}
	default:
		return Equipment{}, types.NewValidationError("equipment.type", "unknown legacy type %q", r.Type)
	}
	if err := e.Validate(); err != nil {
		return Equipment{}, err
	}
	return e, nil
}

// DecodeShared decodes a shared schema document.
func DecodeShared(b []byte) (Equipment, error) {
	var e Equipment
	if err := json.Unmarshal(b, &e); err != nil {
		return Equipment{}, fmt.Errorf("failed to decode equipment: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Equipment{}, err
	}
	return e, nil
}

// Decode detects the schema of b and decodes it. Legacy documents are
// recognized by their _id field.
func Decode(b []byte) (Equipment, error) {
	var probe struct {
		LegacyID *string `json:"_id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return Equipment{}, fmt.Errorf("failed to decode equipment: %w", err)
	}
	if probe.LegacyID != nil {
		return DecodeLegacy(b)
	}
	return DecodeShared(b)
}
