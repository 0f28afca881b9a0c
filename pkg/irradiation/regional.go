package irradiation

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/heliometric/heliometric/pkg/types"
	"gopkg.in/yaml.v3"
)

// regionalConfidence is deliberately below every live source.
const regionalConfidence = 0.50

//go:embed regional.yaml
var regionalYAML []byte

type region struct {
	Name     string         `yaml:"name"`
	Centroid types.Location `yaml:"centroid"`
	Monthly  []float64      `yaml:"monthly"`
}

// RegionalTable implements Provider with a bundled table of Brazilian
// macro-region averages. It never blocks and is the last fallback.
type RegionalTable struct {
	regions []region
}

// NewRegionalTable parses a regional table. Every region needs 12 months.
func NewRegionalTable(b []byte) (*RegionalTable, error) {
	var doc struct {
		Regions []region `yaml:"regions"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse regional table: %w", err)
	}
	if len(doc.Regions) == 0 {
		return nil, fmt.Errorf("regional table has no regions")
	}
	for _, r := range doc.Regions {
		if len(r.Monthly) != 12 {
			return nil, fmt.Errorf("region %s has %d months, expected 12", r.Name, len(r.Monthly))
		}
	}
	return &RegionalTable{regions: doc.Regions}, nil
}

// DefaultRegionalTable returns the embedded table.
func DefaultRegionalTable() *RegionalTable {
	t, err := NewRegionalTable(regionalYAML)
	if err != nil {
		panic(fmt.Errorf("invalid embedded regional table: %w", err))
	}
	return t
}

func (t *RegionalTable) Source() types.IrradiationSource { return types.IrradiationSourceRegional }

func (t *RegionalTable) Confidence() float64 { return regionalConfidence }

func (t *RegionalTable) Timeout() time.Duration { return 0 }

// Supports limits the table to Brazil's bounding box.
func (t *RegionalTable) Supports(loc types.Location) bool {
	return loc.InBrazil()
}

// Region returns the name of the region the location is assigned to.
func (t *RegionalTable) Region(loc types.Location) string {
	return t.nearest(loc).Name
}

func (t *RegionalTable) nearest(loc types.Location) region {
	best := t.regions[0]
	bestDist := -1.0
	for _, r := range t.regions {
		dLat := r.Centroid.Latitude - loc.Latitude
		dLon := r.Centroid.Longitude - loc.Longitude
		d := dLat*dLat + dLon*dLon
		if bestDist < 0 || d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}

func (t *RegionalTable) Fetch(ctx context.Context, req Request) (types.IrradiationProfile, error) {
	if !t.Supports(req.Location) {
		return types.IrradiationProfile{}, fmt.Errorf("%w: regional-estimate: location outside Brazil", types.ErrProviderUnavailable)
	}
	r := t.nearest(req.Location)
	var monthly [12]float64
	copy(monthly[:], r.Monthly)
	return types.NewIrradiationProfile(t.Source(), req.Location, monthly, t.Confidence())
}
