package irradiation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Agreement classifies how closely the sources of a comparison agree.
type Agreement string

const (
	// AgreementHigh means a coefficient of variation below 5%.
	AgreementHigh Agreement = "high"
	// AgreementMedium means a coefficient of variation of at most 15%.
	AgreementMedium Agreement = "medium"
	AgreementLow    Agreement = "low"
)

const (
	highAgreementMaxCV   = 5.0
	mediumAgreementMaxCV = 15.0
)

// ComparisonStats summarizes the annual irradiation of every successful
// source. StdDev is the sample standard deviation.
type ComparisonStats struct {
	Mean                   float64 `json:"mean"`
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	StdDev                 float64 `json:"stdDev"`
	CoefficientOfVariation float64 `json:"coefficientOfVariation"`
}

// Comparison is the side-by-side view of every source for a location.
// Profiles are never averaged together.
type Comparison struct {
	Location          types.Location             `json:"location"`
	Outcomes          []ProviderOutcome          `json:"outcomes"`
	Profiles          []types.IrradiationProfile `json:"profiles"`
	Stats             ComparisonStats            `json:"stats"`
	Agreement         Agreement                  `json:"agreement"`
	HighestConfidence types.IrradiationSource    `json:"highestConfidence"`
	HighestValue      types.IrradiationSource    `json:"highestValue"`
	Recommended       types.IrradiationSource    `json:"recommended"`
	Recommendation    string                     `json:"recommendation"`
}

// ClassifyAgreement maps a coefficient of variation in percent to an
// agreement level.
func ClassifyAgreement(cv float64) Agreement {
	switch {
	case cv < highAgreementMaxCV:
		return AgreementHigh
	case cv <= mediumAgreementMaxCV:
		return AgreementMedium
	default:
		return AgreementLow
	}
}

// CompareSources queries every provider that supports the location and
// waits for all of them. It needs at least two successes.
func (r *Reconciler) CompareSources(ctx context.Context, req Request) (Comparison, error) {
	if err := req.Validate(); err != nil {
		return Comparison{}, err
	}
	ctx = log.WithAttrs(
		ctx,
		slog.Float64("latitude", req.Location.Latitude),
		slog.Float64("longitude", req.Location.Longitude),
	)

	providers := r.candidates(types.IrradiationSourceAuto, req.Location)
	cmp := Comparison{
		Location: req.Location,
		Outcomes: make([]ProviderOutcome, len(providers)),
	}
	if len(providers) > 0 {
		var g errgroup.Group
		g.SetLimit(len(providers))
		for i, p := range providers {
			g.Go(func() error {
				cmp.Outcomes[i] = r.fetch(ctx, p, req)
				return nil
			})
		}
		// outcomes carry the failures, the group never errors
		_ = g.Wait()
	}

	for _, o := range cmp.Outcomes {
		if o.Status == OutcomeOK {
			cmp.Profiles = append(cmp.Profiles, *o.Profile)
		}
	}
	if len(cmp.Profiles) < 2 {
		return cmp, fmt.Errorf("%w: %d of %d sources succeeded", types.ErrInsufficientSources, len(cmp.Profiles), len(providers))
	}

	annual := make([]float64, len(cmp.Profiles))
	for i, p := range cmp.Profiles {
		annual[i] = p.AnnualIrradiation
	}
	mean, std := stat.MeanStdDev(annual, nil)
	cmp.Stats = ComparisonStats{
		Mean:   mean,
		Min:    floats.Min(annual),
		Max:    floats.Max(annual),
		StdDev: std,
	}
	// values are non-negative so a zero mean means every value is zero
	if mean > 0 {
		cmp.Stats.CoefficientOfVariation = std / mean * 100
	}
	cmp.Agreement = ClassifyAgreement(cmp.Stats.CoefficientOfVariation)

	highConf := cmp.Profiles[0]
	for _, p := range cmp.Profiles[1:] {
		if p.ConfidenceScore > highConf.ConfidenceScore {
			highConf = p
		}
	}
	cmp.HighestConfidence = highConf.Source
	cmp.HighestValue = cmp.Profiles[floats.MaxIdx(annual)].Source
	cmp.Recommended = highConf.Source

	switch cmp.Agreement {
	case AgreementHigh:
		cmp.Recommendation = "sources agree within 5%; any of them can be used interchangeably"
	case AgreementMedium:
		cmp.Recommendation = fmt.Sprintf("sources differ moderately; prefer %s which has the highest confidence", highConf.Source)
	default:
		cmp.Recommendation = fmt.Sprintf(
			"sources disagree by %.1f%%; review every profile before relying on %s and consider a site survey",
			cmp.Stats.CoefficientOfVariation,
			highConf.Source,
		)
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"compared irradiation sources",
		slog.Int("sources", len(cmp.Profiles)),
		slog.Float64("cv", cmp.Stats.CoefficientOfVariation),
		slog.String("agreement", string(cmp.Agreement)),
	)
	return cmp, nil
}
