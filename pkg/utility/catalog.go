package utility

import (
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/heliometric/heliometric/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed tariffs.yaml
var tariffsYAML []byte

var weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
}

type rateEntry struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Group       types.TariffGroup `yaml:"group"`
	EnergyRate  float64           `yaml:"energyRate"`
	PeakRate    float64           `yaml:"peakRate"`
	OffPeakRate float64           `yaml:"offPeakRate"`
	DemandRate  float64           `yaml:"demandRate"`
	FioBShare   float64           `yaml:"fioBShare"`
}

type distributorEntry struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	State         string      `yaml:"state"`
	Timezone      string      `yaml:"timezone"`
	PeakHourStart int         `yaml:"peakHourStart"`
	PeakHourEnd   int         `yaml:"peakHourEnd"`
	Rates         []rateEntry `yaml:"rates"`
}

// catalogDistributor implements Distributor from a tariff table entry.
type catalogDistributor struct {
	entry    distributorEntry
	location *time.Location
}

// ParseCatalog parses a YAML tariff table into distributors.
func ParseCatalog(b []byte) ([]Distributor, error) {
	var doc struct {
		Distributors []distributorEntry `yaml:"distributors"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tariff table: %w", err)
	}
	if len(doc.Distributors) == 0 {
		return nil, fmt.Errorf("tariff table has no distributors")
	}

	out := make([]Distributor, 0, len(doc.Distributors))
	for _, d := range doc.Distributors {
		if d.ID == "" {
			return nil, fmt.Errorf("tariff table has a distributor without an id")
		}
		loc, err := time.LoadLocation(d.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load location %s for %s: %w", d.Timezone, d.ID, err)
		}
		if d.PeakHourStart < 0 || d.PeakHourEnd > 24 || d.PeakHourStart >= d.PeakHourEnd {
			return nil, fmt.Errorf("distributor %s has an invalid peak window %d-%d", d.ID, d.PeakHourStart, d.PeakHourEnd)
		}
		for _, r := range d.Rates {
			if r.FioBShare < 0 || r.FioBShare > 1 {
				return nil, fmt.Errorf("rate %s has an invalid fioBShare %v", r.ID, r.FioBShare)
			}
			switch r.Group {
			case types.TariffGroupA, types.TariffGroupB:
			default:
				return nil, fmt.Errorf("rate %s has an unknown group %q", r.ID, r.Group)
			}
		}
		out = append(out, &catalogDistributor{entry: d, location: loc})
	}
	return out, nil
}

// DefaultCatalog returns the distributors of the embedded tariff table.
func DefaultCatalog() []Distributor {
	ds, err := ParseCatalog(tariffsYAML)
	if err != nil {
		panic(fmt.Errorf("invalid embedded tariff table: %w", err))
	}
	return ds
}

func (d *catalogDistributor) ID() string {
	return d.entry.ID
}

func (d *catalogDistributor) Info() types.UtilityProviderInfo {
	info := types.UtilityProviderInfo{
		ID:    d.entry.ID,
		Name:  d.entry.Name,
		State: d.entry.State,
	}
	for _, r := range d.entry.Rates {
		ri := types.UtilityRateInfo{
			ID:    r.ID,
			Name:  r.Name,
			Group: r.Group,
			Options: []types.UtilityRateOption{
				{
					Field:       "fioBAdjustment",
					Name:        "Fio B not compensated",
					Type:        types.UtilityOptionTypeNumber,
					Description: "Share (0-1) of the distribution wire component that is not credited for generation under the current transition rules.",
					Default:     0,
				},
			},
		}
		if r.Group == types.TariffGroupA {
			ri.Options = append(ri.Options, types.UtilityRateOption{
				Field:       "contractedDemandKW",
				Name:        "Contracted Demand (kW)",
				Type:        types.UtilityOptionTypeNumber,
				Description: "Demand contracted with the distributor. It is billed every month regardless of generation.",
			})
		}
		info.Rates = append(info.Rates, ri)
	}
	return info
}

func (d *catalogDistributor) peakPeriod() *types.UtilityPeriod {
	return &types.UtilityPeriod{
		HourStart:     d.entry.PeakHourStart,
		HourEnd:       d.entry.PeakHourEnd,
		DaysOfTheWeek: weekdays,
		Location:      d.entry.Timezone,
		LocationPtr:   d.location,
	}
}

func (d *catalogDistributor) Tariff(rate string, opts types.UtilityRateOptions) (types.TariffConfig, error) {
	var r *rateEntry
	for i := range d.entry.Rates {
		if d.entry.Rates[i].ID == rate {
			r = &d.entry.Rates[i]
			break
		}
	}
	if r == nil {
		return types.TariffConfig{}, types.NewValidationError("utilityRate", "unknown rate %q for %s", rate, d.entry.ID)
	}
	if math.IsNaN(opts.FioBAdjustment) || opts.FioBAdjustment < 0 || opts.FioBAdjustment > 1 {
		return types.TariffConfig{}, types.NewValidationError("utilityRateOptions.fioBAdjustment", "must be within [0, 1], got %v", opts.FioBAdjustment)
	}
	// generation is credited without the uncompensated part of Fio B
	credit := 1 - r.FioBShare*opts.FioBAdjustment

	switch r.Group {
	case types.TariffGroupB:
		return types.TariffConfig{
			Group:      types.TariffGroupB,
			EnergyRate: r.EnergyRate * credit,
		}, nil
	default:
		if !(opts.ContractedDemandKW > 0) {
			return types.TariffConfig{}, types.NewValidationError("utilityRateOptions.contractedDemandKW", "is required for %s", r.ID)
		}
		return types.TariffConfig{
			Group:              types.TariffGroupA,
			PeakRate:           r.PeakRate * credit,
			OffPeakRate:        r.OffPeakRate * credit,
			ContractedDemandKW: opts.ContractedDemandKW,
			DemandRate:         r.DemandRate,
			PeakPeriod:         d.peakPeriod(),
		}, nil
	}
}
