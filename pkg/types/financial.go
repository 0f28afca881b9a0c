package types

// CashFlowEntry is one year of the analysis. Year 0 (the initial investment)
// is not an entry.
type CashFlowEntry struct {
	Year               int     `json:"year"`
	Revenue            float64 `json:"revenue"`
	Cost               float64 `json:"cost"`
	NetCashFlow        float64 `json:"netCashFlow"`
	DiscountedCashFlow float64 `json:"discountedCashFlow"`
	CumulativeCashFlow float64 `json:"cumulativeCashFlow"`
}

// FinancialResult is derived on every analysis and never persisted as
// authoritative state by the engine.
type FinancialResult struct {
	Evaluated              bool            `json:"evaluated"`
	TariffGroup            TariffGroup     `json:"tariffGroup,omitempty"`
	InitialInvestment      float64         `json:"initialInvestment"`
	NetPresentValue        float64         `json:"npv"`
	InternalRateOfReturn   Metric          `json:"irr"`
	PaybackYears           Metric          `json:"payback"`
	DiscountedPaybackYears Metric          `json:"discountedPayback"`
	CashFlowSeries         []CashFlowEntry `json:"cashFlow"`
	Year1Savings           float64         `json:"year1Savings"`
	MonthlySavings         [12]float64     `json:"monthlySavings"`
	AnnualDemandCharge     float64         `json:"annualDemandCharge"`
	ReturnOnInvestment     float64         `json:"roi"`
	LevelizedCostOfEnergy  Metric          `json:"lcoe"`
}

// DefaultFinancialResult is used when no financial inputs were supplied.
// Every derived metric is undefined rather than zero.
func DefaultFinancialResult() FinancialResult {
	return FinancialResult{
		InternalRateOfReturn:   Undefined(),
		PaybackYears:           Undefined(),
		DiscountedPaybackYears: Undefined(),
		LevelizedCostOfEnergy:  Undefined(),
		CashFlowSeries:         []CashFlowEntry{},
	}
}
