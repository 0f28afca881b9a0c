package types

import (
	"fmt"
	"math"
	"time"
)

// IrradiationSource identifies where an irradiation profile came from.
type IrradiationSource string

const (
	IrradiationSourceAuto     IrradiationSource = "auto"
	IrradiationSourcePVGIS    IrradiationSource = "pvgis"
	IrradiationSourceNASA     IrradiationSource = "nasa-power"
	IrradiationSourceRegional IrradiationSource = "regional-estimate"
)

// IrradiationSourcePriority is the fixed fallback order: regional
// satellite-derived data, then global reanalysis, then the bundled table.
var IrradiationSourcePriority = []IrradiationSource{
	IrradiationSourcePVGIS,
	IrradiationSourceNASA,
	IrradiationSourceRegional,
}

// ParseIrradiationSource parses a source name. An empty string is auto.
func ParseIrradiationSource(s string) (IrradiationSource, error) {
	switch IrradiationSource(s) {
	case "", IrradiationSourceAuto:
		return IrradiationSourceAuto, nil
	case IrradiationSourcePVGIS, IrradiationSourceNASA, IrradiationSourceRegional:
		return IrradiationSource(s), nil
	default:
		return "", NewValidationError("source", "unknown irradiation source %q", s)
	}
}

// Location is a point on the globe in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate ensures the coordinates are in range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return NewValidationError("latitude", "must be between -90 and 90, got %v", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return NewValidationError("longitude", "must be between -180 and 180, got %v", l.Longitude)
	}
	return nil
}

// Brazil's bounding box, used for the regional fallback rule.
const (
	brazilMinLatitude  = -33.75
	brazilMaxLatitude  = 5.27
	brazilMinLongitude = -73.99
	brazilMaxLongitude = -34.79
)

// InBrazil reports whether the location is inside Brazil's bounding box.
func (l Location) InBrazil() bool {
	return l.Latitude >= brazilMinLatitude && l.Latitude <= brazilMaxLatitude &&
		l.Longitude >= brazilMinLongitude && l.Longitude <= brazilMaxLongitude
}

// MountingType describes how the array is installed.
type MountingType string

const (
	MountingRoof   MountingType = "roof"
	MountingGround MountingType = "ground"
)

// IrradiationProfile is a monthly irradiation estimate for one location from
// one source. Values are kWh/m²/day. It is treated as immutable once built.
type IrradiationProfile struct {
	Source             IrradiationSource `json:"source"`
	Location           Location          `json:"location"`
	MonthlyIrradiation [12]float64       `json:"monthlyIrradiation"`
	// AnnualIrradiation is the mean daily irradiation over the year.
	AnnualIrradiation float64   `json:"annualIrradiation"`
	ConfidenceScore   float64   `json:"confidenceScore"`
	RetrievedAt       time.Time `json:"retrievedAt"`
}

// NewIrradiationProfile validates the monthly values and derives the annual
// mean.
func NewIrradiationProfile(source IrradiationSource, loc Location, monthly [12]float64, confidence float64) (IrradiationProfile, error) {
	for i, v := range monthly {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return IrradiationProfile{}, NewValidationError("monthlyIrradiation", "month %d has invalid value %v", i+1, v)
		}
	}
	if confidence < 0 || confidence > 1 {
		return IrradiationProfile{}, NewValidationError("confidenceScore", "must be within [0,1], got %v", confidence)
	}
	var sum float64
	for _, v := range monthly {
		sum += v
	}
	return IrradiationProfile{
		Source:             source,
		Location:           loc,
		MonthlyIrradiation: monthly,
		AnnualIrradiation:  sum / 12,
		ConfidenceScore:    confidence,
		RetrievedAt:        time.Now().UTC(),
	}, nil
}

// IsZero reports whether every month is zero.
func (p IrradiationProfile) IsZero() bool {
	for _, v := range p.MonthlyIrradiation {
		if v != 0 {
			return false
		}
	}
	return true
}

func (p IrradiationProfile) String() string {
	return fmt.Sprintf("%s(%.4f,%.4f)=%.2f", p.Source, p.Location.Latitude, p.Location.Longitude, p.AnnualIrradiation)
}

// DaysInMonth is the number of days in each month of a non-leap year.
var DaysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
