// Package financial runs the cash-flow analysis of a PV system under the
// Brazilian Group A and Group B tariff regimes.
package financial

import (
	"fmt"
	"math"

	"github.com/heliometric/heliometric/pkg/types"
	"gonum.org/v1/gonum/floats"
)

// DefaultAnalysisYears is used when Input.AnalysisYears is zero.
const DefaultAnalysisYears = 25

const maxAnalysisYears = 50

// Input holds everything needed for an analysis. Every series has one value
// per month, January first, in kWh. Rates are fractions per year.
type Input struct {
	InitialInvestment     float64 `json:"initialInvestment"`
	AnnualMaintenanceCost float64 `json:"annualMaintenanceCost"`
	DiscountRate          float64 `json:"discountRate"`
	TariffEscalationRate  float64 `json:"tariffEscalationRate"`
	InflationRate         float64 `json:"inflationRate"`
	DegradationRate       float64 `json:"degradationRate"`
	AnalysisYears         int     `json:"analysisYears"`

	Tariff types.TariffConfig `json:"tariff"`

	Consumption        []float64 `json:"consumption,omitempty"`
	ConsumptionPeak    []float64 `json:"consumptionPeak,omitempty"`
	ConsumptionOffPeak []float64 `json:"consumptionOffPeak,omitempty"`

	Generation        []float64 `json:"generation,omitempty"`
	GenerationPeak    []float64 `json:"generationPeak,omitempty"`
	GenerationOffPeak []float64 `json:"generationOffPeak,omitempty"`
	// PeakGenerationShare splits Generation into the peak and off-peak
	// buckets when the split series are not given (Group A only).
	PeakGenerationShare float64 `json:"peakGenerationShare,omitempty"`
}

func validateSeries(field string, s []float64) error {
	if len(s) == 0 {
		return types.NewValidationError(field, "is required")
	}
	if len(s) != 12 {
		return types.NewValidationError(field, "must have 12 months, got %d", len(s))
	}
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return types.NewValidationError(field, "month %d has invalid value %v", i+1, v)
		}
	}
	return nil
}

func validateRate(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= -1 || v > 1 {
		return types.NewValidationError(field, "must be a fraction within (-1, 1], got %v", v)
	}
	return nil
}

// Validate rejects incomplete inputs. Missing series are never zero-filled.
func (in Input) Validate() error {
	if math.IsNaN(in.InitialInvestment) || in.InitialInvestment <= 0 {
		return types.NewValidationError("initialInvestment", "must be positive")
	}
	if math.IsNaN(in.AnnualMaintenanceCost) || in.AnnualMaintenanceCost < 0 {
		return types.NewValidationError("annualMaintenanceCost", "cannot be negative")
	}
	for _, r := range []struct {
		field string
		value float64
	}{
		{"discountRate", in.DiscountRate},
		{"tariffEscalationRate", in.TariffEscalationRate},
		{"inflationRate", in.InflationRate},
	} {
		if err := validateRate(r.field, r.value); err != nil {
			return err
		}
	}
	if math.IsNaN(in.DegradationRate) || in.DegradationRate < 0 || in.DegradationRate >= 1 {
		return types.NewValidationError("degradationRate", "must be within [0, 1), got %v", in.DegradationRate)
	}
	if in.AnalysisYears < 0 || in.AnalysisYears > maxAnalysisYears {
		return types.NewValidationError("analysisYears", "must be within [1, %d], got %d", maxAnalysisYears, in.AnalysisYears)
	}
	if err := in.Tariff.Validate(); err != nil {
		return err
	}

	switch in.Tariff.Group {
	case types.TariffGroupB:
		if err := validateSeries("consumption", in.Consumption); err != nil {
			return err
		}
		return validateSeries("generation", in.Generation)
	case types.TariffGroupA:
		if err := validateSeries("consumptionPeak", in.ConsumptionPeak); err != nil {
			return err
		}
		if err := validateSeries("consumptionOffPeak", in.ConsumptionOffPeak); err != nil {
			return err
		}
		if len(in.GenerationPeak) > 0 || len(in.GenerationOffPeak) > 0 {
			if err := validateSeries("generationPeak", in.GenerationPeak); err != nil {
				return err
			}
			return validateSeries("generationOffPeak", in.GenerationOffPeak)
		}
		if err := validateSeries("generation", in.Generation); err != nil {
			return err
		}
		if math.IsNaN(in.PeakGenerationShare) || in.PeakGenerationShare < 0 || in.PeakGenerationShare > 1 {
			return types.NewValidationError("peakGenerationShare", "must be within [0, 1], got %v", in.PeakGenerationShare)
		}
	}
	return nil
}

// monthlySavings returns the energy bill reduction for each month of year 1.
// Generation only offsets energy charges, up to what was consumed.
func (in Input) monthlySavings() [12]float64 {
	var savings [12]float64
	switch in.Tariff.Group {
	case types.TariffGroupB:
		for m := range savings {
			savings[m] = math.Min(in.Generation[m], in.Consumption[m]) * in.Tariff.EnergyRate
		}
	case types.TariffGroupA:
		peak, offPeak := in.generationBuckets()
		for m := range savings {
			savings[m] = math.Min(peak[m], in.ConsumptionPeak[m])*in.Tariff.PeakRate +
				math.Min(offPeak[m], in.ConsumptionOffPeak[m])*in.Tariff.OffPeakRate
		}
	}
	return savings
}

func (in Input) generationBuckets() ([]float64, []float64) {
	if len(in.GenerationPeak) == 12 && len(in.GenerationOffPeak) == 12 {
		return in.GenerationPeak, in.GenerationOffPeak
	}
	peak := make([]float64, 12)
	offPeak := make([]float64, 12)
	for m, g := range in.Generation {
		peak[m] = g * in.PeakGenerationShare
		offPeak[m] = g * (1 - in.PeakGenerationShare)
	}
	return peak, offPeak
}

// AnnualGeneration is the year 1 generation of the input in kWh.
func (in Input) AnnualGeneration() float64 {
	if in.Tariff.Group == types.TariffGroupA && len(in.Generation) != 12 {
		return floats.Sum(in.GenerationPeak) + floats.Sum(in.GenerationOffPeak)
	}
	return floats.Sum(in.Generation)
}

// Analyze validates the input and returns the cash flow and summary
// metrics. Undefined metrics are reported as such, never as zero.
func Analyze(in Input) (types.FinancialResult, error) {
	if err := in.Validate(); err != nil {
		return types.FinancialResult{}, err
	}
	years := in.AnalysisYears
	if years == 0 {
		years = DefaultAnalysisYears
	}

	res := types.DefaultFinancialResult()
	res.Evaluated = true
	res.TariffGroup = in.Tariff.Group
	res.InitialInvestment = in.InitialInvestment
	res.MonthlySavings = in.monthlySavings()
	res.Year1Savings = floats.Sum(res.MonthlySavings[:])
	if in.Tariff.Group == types.TariffGroupA {
		// demand is billed on the contract regardless of generation
		res.AnnualDemandCharge = in.Tariff.ContractedDemandKW * in.Tariff.DemandRate * 12
	}

	flows := make([]float64, years+1)
	discounted := make([]float64, years+1)
	flows[0] = -in.InitialInvestment
	discounted[0] = -in.InitialInvestment

	annualGen := in.AnnualGeneration()
	cumulative := -in.InitialInvestment
	var totalNet, pvCost, pvEnergy float64
	res.CashFlowSeries = make([]types.CashFlowEntry, 0, years)
	for y := 1; y <= years; y++ {
		n := float64(y - 1)
		derate := math.Pow(1-in.DegradationRate, n)
		revenue := res.Year1Savings * derate * math.Pow(1+in.TariffEscalationRate, n)
		cost := in.AnnualMaintenanceCost * math.Pow(1+in.InflationRate, n)
		net := revenue - cost
		discount := math.Pow(1+in.DiscountRate, float64(y))

		flows[y] = net
		discounted[y] = net / discount
		cumulative += net
		totalNet += net
		pvCost += cost / discount
		pvEnergy += annualGen * derate / discount

		res.CashFlowSeries = append(res.CashFlowSeries, types.CashFlowEntry{
			Year:               y,
			Revenue:            revenue,
			Cost:               cost,
			NetCashFlow:        net,
			DiscountedCashFlow: discounted[y],
			CumulativeCashFlow: cumulative,
		})
	}

	res.NetPresentValue = floats.Sum(discounted)
	res.InternalRateOfReturn = IRR(flows)
	res.PaybackYears = Payback(flows)
	res.DiscountedPaybackYears = Payback(discounted)
	res.ReturnOnInvestment = (totalNet - in.InitialInvestment) / in.InitialInvestment * 100
	if pvEnergy > 0 {
		res.LevelizedCostOfEnergy = types.Defined((in.InitialInvestment + pvCost) / pvEnergy)
	}
	return res, nil
}

// String summarizes a result for logs.
func String(res types.FinancialResult) string {
	return fmt.Sprintf("npv=%.2f irr=%s payback=%s", res.NetPresentValue, res.InternalRateOfReturn, res.PaybackYears)
}
