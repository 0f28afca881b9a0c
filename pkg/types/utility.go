package types

import (
	"fmt"
	"time"
)

// UtilityProviderInfo provides metadata about an electricity distributor.
type UtilityProviderInfo struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	State string            `json:"state"`
	Rates []UtilityRateInfo `json:"rates"`
}

// UtilityRateInfo provides metadata about a specific tariff of a distributor.
type UtilityRateInfo struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Group   TariffGroup         `json:"group"`
	Options []UtilityRateOption `json:"options"`
}

// UtilityOptionType defines the type of input field for a utility option.
type UtilityOptionType string

const (
	UtilityOptionTypeSelect UtilityOptionType = "select"
	UtilityOptionTypeSwitch UtilityOptionType = "switch"
	UtilityOptionTypeNumber UtilityOptionType = "number"
)

// UtilityRateOption represents a single configuration option for a tariff.
type UtilityRateOption struct {
	Field       string                `json:"field"`
	Name        string                `json:"name"`
	Type        UtilityOptionType     `json:"type"`
	Description string                `json:"description,omitempty"`
	Choices     []UtilityOptionChoice `json:"choices,omitempty"` // Populated if Type is UtilityOptionTypeSelect
	Default     any                   `json:"default,omitempty"`
}

// UtilityOptionChoice represents a single choice in a select-type option.
type UtilityOptionChoice struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// UtilityRateOptions represents the options for the tariff.
type UtilityRateOptions struct {
	// FioBAdjustment is the share (0-1) of the distribution-wire component that
	// is not compensated for new distributed generation. It lowers the
	// effective rate credited for generation.
	FioBAdjustment     float64 `json:"fioBAdjustment"`
	ContractedDemandKW float64 `json:"contractedDemandKW"`
}

// UtilityPeriod defines a particular schedule for some tariff post.
type UtilityPeriod struct {
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	HourStart     int            `json:"hourStart"`
	HourEnd       int            `json:"hourEnd"`
	DaysOfTheWeek []time.Weekday `json:"daysOfTheWeek"`
	Location      string         `json:"location"`
	LocationPtr   *time.Location `json:"-"`
}

// Contains checks if a time is within the period.
func (p *UtilityPeriod) Contains(t time.Time) (bool, error) {
	if p.LocationPtr != nil {
		t = t.In(p.LocationPtr)
	} else if p.Location != "" {
		loc, err := time.LoadLocation(p.Location)
		if err != nil {
			return false, fmt.Errorf("failed to load location %s: %w", p.Location, err)
		}
		t = t.In(loc)
	}
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false, nil
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false, nil
	}
	if h := t.Hour(); h < p.HourStart || h >= p.HourEnd {
		return false, nil
	}
	if len(p.DaysOfTheWeek) > 0 {
		var found bool
		dow := t.Weekday()
		for _, d := range p.DaysOfTheWeek {
			if d == dow {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// Hours returns the number of hours per day covered by the period.
func (p *UtilityPeriod) Hours() int {
	if p.HourEnd <= p.HourStart {
		return 0
	}
	return p.HourEnd - p.HourStart
}

// TariffGroup is the Brazilian billing regime of a consumer unit.
type TariffGroup string

const (
	// TariffGroupA is demand-charged and time-of-use (medium/high voltage).
	TariffGroupA TariffGroup = "A"
	// TariffGroupB is a flat volumetric rate (low voltage).
	TariffGroupB TariffGroup = "B"
)

// TariffConfig holds the rates for one consumer unit. Rates are R$/kWh and
// the demand rate is R$/kW per month.
type TariffConfig struct {
	Group TariffGroup `json:"group"`

	// Group B
	EnergyRate float64 `json:"energyRate,omitempty"`

	// Group A
	PeakRate           float64        `json:"peakRate,omitempty"`
	OffPeakRate        float64        `json:"offPeakRate,omitempty"`
	ContractedDemandKW float64        `json:"contractedDemandKW,omitempty"`
	DemandRate         float64        `json:"demandRate,omitempty"`
	PeakPeriod         *UtilityPeriod `json:"peakPeriod,omitempty"`
}

// Validate checks the fields required by the tariff group.
func (t TariffConfig) Validate() error {
	switch t.Group {
	case TariffGroupB:
		if t.EnergyRate <= 0 {
			return NewValidationError("tariff.energyRate", "is required for group B")
		}
	case TariffGroupA:
		if t.PeakRate <= 0 {
			return NewValidationError("tariff.peakRate", "is required for group A")
		}
		if t.OffPeakRate <= 0 {
			return NewValidationError("tariff.offPeakRate", "is required for group A")
		}
		if t.ContractedDemandKW < 0 {
			return NewValidationError("tariff.contractedDemandKW", "cannot be negative")
		}
		if t.DemandRate < 0 {
			return NewValidationError("tariff.demandRate", "cannot be negative")
		}
	case "":
		return NewValidationError("tariff.group", "is required")
	default:
		return NewValidationError("tariff.group", "unknown tariff group %q", t.Group)
	}
	return nil
}
