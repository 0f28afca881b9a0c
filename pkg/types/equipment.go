package types

// OwnershipScope tags who owns a catalog record.
type OwnershipScope string

const (
	// OwnershipSystem records are public and visible to every team.
	OwnershipSystem OwnershipScope = "system"
	OwnershipTeam   OwnershipScope = "team"
	OwnershipUser   OwnershipScope = "user"
)

// Owner identifies the owner of a catalog record. ID is empty for system
// records.
type Owner struct {
	Scope OwnershipScope `json:"scope"`
	ID    string         `json:"id,omitempty"`
}

// VisibleTo reports whether a record with this owner can be read by the given
// team and user.
func (o Owner) VisibleTo(teamID, userID string) bool {
	switch o.Scope {
	case OwnershipSystem:
		return true
	case OwnershipTeam:
		return o.ID != "" && o.ID == teamID
	case OwnershipUser:
		return o.ID != "" && o.ID == userID
	default:
		return false
	}
}

// ModuleSelection holds the module specification needed for string sizing.
type ModuleSelection struct {
	ID            string  `json:"id"`
	Model         string  `json:"model"`
	NominalPowerW float64 `json:"nominalPowerW"`
	VocV          float64 `json:"vocV"`
	IscA          float64 `json:"iscA"`
	// TempCoeffVoc is a fraction per °C, -0.0027 is -0.27 %/°C.
	TempCoeffVoc float64 `json:"tempCoeffVoc"`
}

// InverterSelection is one distinct inverter model chosen for a project.
type InverterSelection struct {
	ID                      string  `json:"id"`
	Model                   string  `json:"model"`
	Quantity                int     `json:"quantity"`
	RatedACPowerW           float64 `json:"ratedACPowerW"`
	MaxDCVoltageV           float64 `json:"maxDCVoltageV"`
	NumberOfMPPTs           int     `json:"numberOfMPPTs"`
	StringsPerMPPT          int     `json:"stringsPerMPPT"`
	MaxInputCurrentPerMPPTA float64 `json:"maxInputCurrentPerMPPTA"`
}

// InverterCompatibility is the string-sizing outcome for one inverter entry.
type InverterCompatibility struct {
	Model               string `json:"model"`
	Quantity            int    `json:"quantity"`
	MaxModulesPerString int    `json:"maxModulesPerString"`
	MaxModulesPerMPPT   int    `json:"maxModulesPerMppt"`
	// MaxModulesTotal is per inverter unit.
	MaxModulesTotal     int  `json:"maxModulesTotal"`
	MaxModulesAllUnits  int  `json:"maxModulesAllUnits"`
	CurrentWithinLimits bool `json:"currentWithinLimits"`
}

// MPPTCompatibilityResult aggregates string sizing over every selected
// inverter. A configuration outside the limits is an expected outcome and is
// reported here rather than as an error.
type MPPTCompatibilityResult struct {
	Evaluated               bool                    `json:"evaluated"`
	Inverters               []InverterCompatibility `json:"inverters"`
	CorrectedVocV           float64                 `json:"correctedVocV"`
	ReferenceMinTempC       float64                 `json:"referenceMinTempC"`
	TotalSystemMPPTCapacity int                     `json:"totalSystemMpptCapacity"`
	// MaxModulesTotal mirrors TotalSystemMPPTCapacity for consumers.
	MaxModulesTotal      int      `json:"maxModulesTotal"`
	TotalPowerW          float64  `json:"totalPowerW"`
	TotalMPPTChannels    int      `json:"totalMpptChannels"`
	RequestedModuleCount int      `json:"requestedModuleCount"`
	DCACRatio            float64  `json:"dcAcRatio"`
	IsWithinLimits       bool     `json:"isWithinLimits"`
	CurrentWithinLimits  bool     `json:"currentWithinLimits"`
	IsCompatible         bool     `json:"isCompatible"`
	Warnings             []string `json:"warnings,omitempty"`
}

// DefaultMPPTCompatibility is used when no equipment was selected. Nothing was
// evaluated so nothing is reported as compatible.
func DefaultMPPTCompatibility() MPPTCompatibilityResult {
	return MPPTCompatibilityResult{
		Inverters: []InverterCompatibility{},
	}
}
