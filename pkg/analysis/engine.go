// Package analysis assembles a full energy and financial analysis of a PV
// project from the irradiation, yield, string sizing, financial and
// environmental components.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/heliometric/heliometric/pkg/environment"
	"github.com/heliometric/heliometric/pkg/equipment"
	"github.com/heliometric/heliometric/pkg/financial"
	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/mppt"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/heliometric/heliometric/pkg/utility"
	"github.com/heliometric/heliometric/pkg/yield"
)

const (
	warnNoEquipment = "mpptCompatibility: no module and inverter selected, compatibility not evaluated"
	warnNoFinancial = "financialAnalysis: no financial inputs, metrics are undefined"
	warnNoLosses    = "losses: none given, using the default breakdown"
	warnNoModules   = "mpptCompatibility: no module count, compatibility not evaluated"
)

// Resolver resolves an irradiation profile. It is implemented by
// *irradiation.Reconciler.
type Resolver interface {
	Resolve(ctx context.Context, req irradiation.Request, preferred types.IrradiationSource, useCache bool) (types.IrradiationProfile, error)
}

// Engine runs analyses.
type Engine struct {
	irradiation Resolver
	catalog     equipment.Catalog
	utilities   *utility.Map
	metrics     *metrics.Collector

	now   func() time.Time
	newID func() string
}

// New returns an Engine. The catalog and utilities are optional; requests
// referencing them fail validation when they are nil.
func New(resolver Resolver, catalog equipment.Catalog, utilities *utility.Map, m *metrics.Collector) *Engine {
	return &Engine{
		irradiation: resolver,
		catalog:     catalog,
		utilities:   utilities,
		metrics:     m,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case types.IsValidation(err):
		return "invalid"
	case errors.Is(err, types.ErrNoDataAvailable):
		return "no_data"
	default:
		return "error"
	}
}

// Analyze runs a full analysis. Irradiation is mandatory and its failure is
// returned. String sizing and the financial analysis are optional: when
// their inputs are absent the documented defaults are used and a warning is
// recorded, but invalid inputs are always returned as errors.
func (e *Engine) Analyze(ctx context.Context, req Request) (types.AnalysisResult, error) {
	start := time.Now()
	res, err := e.analyze(ctx, req)
	e.metrics.RecordAnalysis(outcomeOf(err), time.Since(start))
	if err != nil {
		return types.AnalysisResult{}, err
	}
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, req Request) (types.AnalysisResult, error) {
	if err := req.validate(); err != nil {
		return types.AnalysisResult{}, err
	}
	ctx = log.WithAttrs(ctx, slog.String("projectID", req.ProjectID))

	res := types.DefaultAnalysisResult()
	res.ID = e.newID()
	res.ProjectID = req.ProjectID
	res.GeneratedAt = e.now().UTC()
	res.Location = req.Location

	module, inverters, err := e.equipment(ctx, req)
	if err != nil {
		return types.AnalysisResult{}, err
	}

	size := req.SystemSizeKW
	moduleCount := req.ModuleCount
	if size == 0 && module != nil && moduleCount > 0 {
		size = float64(moduleCount) * module.NominalPowerW / 1000
	}
	if size == 0 {
		return types.AnalysisResult{}, types.NewValidationError("systemSizeKW", "is required without a module and module count")
	}
	if moduleCount == 0 && module != nil && module.NominalPowerW > 0 {
		moduleCount = int(math.Ceil(size * 1000 / module.NominalPowerW))
	}
	res.SystemSizeKW = size
	res.ModuleCount = moduleCount

	losses := types.DefaultLossesBreakdown()
	if req.Losses != nil {
		losses = *req.Losses
	} else {
		res.Warnings = append(res.Warnings, warnNoLosses)
	}
	res.Losses = losses

	// tariffs are resolved before any provider is called so a bad utility
	// never costs a network round trip
	var tariff types.TariffConfig
	if req.Financial != nil {
		tariff, err = e.tariff(*req.Financial)
		if err != nil {
			return types.AnalysisResult{}, err
		}
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}
	azimuth := req.azimuth()
	profile, err := e.irradiation.Resolve(ctx, irradiation.Request{
		Location:     req.Location,
		Tilt:         req.Tilt,
		Azimuth:      azimuth,
		MountingType: req.MountingType,
	}, req.Source, useCache)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("failed to resolve irradiation: %w", err)
	}
	res.Irradiation = profile

	energy, err := yield.EstimateWithOrientation(profile, size, losses, azimuth)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	res.SetEnergyOutput(energy)

	switch {
	case module == nil || len(inverters) == 0:
		res.Warnings = append(res.Warnings, warnNoEquipment)
	case moduleCount == 0:
		res.Warnings = append(res.Warnings, warnNoModules)
	default:
		refTemp := mppt.DefaultReferenceMinTempC
		if req.ReferenceMinTempC != nil {
			refTemp = *req.ReferenceMinTempC
		}
		compat, err := mppt.Validate(*module, inverters, moduleCount, refTemp)
		if err != nil {
			return types.AnalysisResult{}, err
		}
		res.MPPTCompatibility = compat
		if !compat.IsCompatible {
			log.Ctx(ctx).InfoContext(
				ctx,
				"selected equipment is not compatible",
				slog.Int("requested", moduleCount),
				slog.Int("capacity", compat.TotalSystemMPPTCapacity),
				slog.Bool("currentWithinLimits", compat.CurrentWithinLimits),
			)
		}
	}

	if req.Financial == nil {
		res.Warnings = append(res.Warnings, warnNoFinancial)
	} else {
		in, err := financialInput(*req.Financial, tariff, energy)
		if err != nil {
			return types.AnalysisResult{}, err
		}
		fin, err := financial.Analyze(in)
		if err != nil {
			return types.AnalysisResult{}, err
		}
		res.FinancialAnalysis = fin
		res.TariffGroup = fin.TariffGroup
		log.Ctx(ctx).DebugContext(ctx, "financial analysis done", slog.String("summary", financial.String(fin)))
	}

	res.EnvironmentalImpact = environment.Calculate(res.AnnualGeneration)

	log.Ctx(ctx).InfoContext(
		ctx,
		"analysis done",
		slog.String("id", res.ID),
		slog.String("source", string(profile.Source)),
		slog.Float64("systemSizeKW", size),
		slog.Float64("annualGeneration", res.AnnualGeneration),
		slog.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

// Financial runs only the financial analysis for a known monthly generation,
// e.g. one computed by an external simulator.
func (e *Engine) Financial(ctx context.Context, f FinancialRequest, monthlyGeneration [12]float64) (types.FinancialResult, error) {
	if err := f.validate(); err != nil {
		return types.FinancialResult{}, err
	}
	for i, v := range monthlyGeneration {
		if math.IsNaN(v) || v < 0 {
			return types.FinancialResult{}, types.NewValidationError("monthlyGeneration", "month %d must be a non-negative number", i+1)
		}
	}
	tariff, err := e.tariff(f)
	if err != nil {
		return types.FinancialResult{}, err
	}
	energy := types.EnergyProductionResult{MonthlyGeneration: monthlyGeneration}
	in, err := financialInput(f, tariff, energy)
	if err != nil {
		return types.FinancialResult{}, err
	}
	fin, err := financial.Analyze(in)
	if err != nil {
		return types.FinancialResult{}, err
	}
	log.Ctx(ctx).DebugContext(ctx, "financial analysis done", slog.String("summary", financial.String(fin)))
	return fin, nil
}

// equipment returns the module and inverters of the request, looking up
// catalog references.
func (e *Engine) equipment(ctx context.Context, req Request) (*types.ModuleSelection, []types.InverterSelection, error) {
	var module *types.ModuleSelection
	if req.Module != nil {
		m := *req.Module
		module = &m
	} else if req.ModuleID != "" {
		rec, err := e.lookup(ctx, "moduleID", req.ModuleID, req.TeamID, req.UserID)
		if err != nil {
			return nil, nil, err
		}
		m, err := rec.ToModuleSelection()
		if err != nil {
			return nil, nil, types.NewValidationError("moduleID", "%s", err)
		}
		module = &m
	}

	sel := mppt.NewSelection(req.Inverters...)
	for _, ref := range req.InverterRefs {
		rec, err := e.lookup(ctx, "inverterRefs", ref.ID, req.TeamID, req.UserID)
		if err != nil {
			return nil, nil, err
		}
		q := ref.Quantity
		if q == 0 {
			q = 1
		}
		inv, err := rec.ToInverterSelection(q)
		if err != nil {
			return nil, nil, types.NewValidationError("inverterRefs", "%s", err)
		}
		// a repeated reference adds its quantity to the first one
		sel.Add(inv)
	}
	return module, sel.Items(), nil
}

func (e *Engine) lookup(ctx context.Context, field, id, teamID, userID string) (equipment.Equipment, error) {
	if e.catalog == nil {
		return equipment.Equipment{}, types.NewValidationError(field, "no equipment catalog is configured")
	}
	rec, err := e.catalog.Get(ctx, id, teamID, userID)
	if errors.Is(err, equipment.ErrNotFound) {
		return equipment.Equipment{}, types.NewValidationError(field, "unknown equipment %q", id)
	}
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("failed to get equipment %s: %w", id, err)
	}
	return rec, nil
}

func (e *Engine) tariff(f FinancialRequest) (types.TariffConfig, error) {
	if f.Tariff != nil {
		return *f.Tariff, nil
	}
	if e.utilities == nil {
		return types.TariffConfig{}, types.NewValidationError("financial.utilityProvider", "no utility catalog is configured")
	}
	return e.utilities.Tariff(f.UtilityProvider, f.UtilityRate, f.UtilityRateOptions)
}

func financialInput(f FinancialRequest, tariff types.TariffConfig, energy types.EnergyProductionResult) (financial.Input, error) {
	in := financial.Input{
		InitialInvestment:     f.InitialInvestment,
		AnnualMaintenanceCost: f.maintenanceCost(),
		DiscountRate:          deref(f.DiscountRate),
		TariffEscalationRate:  deref(f.TariffEscalationRate),
		InflationRate:         deref(f.InflationRate),
		DegradationRate:       deref(f.DegradationRate),
		AnalysisYears:         f.AnalysisYears,
		Tariff:                tariff,
		Consumption:           f.Consumption,
		ConsumptionPeak:       f.ConsumptionPeak,
		ConsumptionOffPeak:    f.ConsumptionOffPeak,
		Generation:            energy.MonthlyGeneration[:],
	}
	if tariff.Group == types.TariffGroupA {
		switch {
		case f.PeakGenerationShare != nil:
			in.PeakGenerationShare = *f.PeakGenerationShare
		case tariff.PeakPeriod != nil:
			share, err := utility.PeakGenerationShare(tariff.PeakPeriod)
			if err != nil {
				return financial.Input{}, types.NewValidationError("tariff.peakPeriod", "%s", err)
			}
			in.PeakGenerationShare = share
		}
	}
	return in, nil
}
