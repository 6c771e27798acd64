// Package simulator projects compound growth of an investment plan with
// periodic contributions and management fees.
package simulator

import (
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// workingPrecision is the number of decimal places kept for the running
// balance between periods.
const workingPrecision = 12

// MaxYears bounds the projection horizon.
const MaxYears = 100

var hundred = decimal.NewFromInt(100)

// Input describes an investment plan.
type Input struct {
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	Years             decimal.Decimal
	Contribution      decimal.Decimal
	Frequency         domain.ContributionFrequency
	AnnualFeePercent  decimal.Decimal
}

// TimelinePoint is the state of the plan at the end of a year, or at the
// final period when the horizon is not a whole number of years.
type TimelinePoint struct {
	Year              int
	Value             decimal.Decimal
	ContributionTotal decimal.Decimal
	FeesAccrued       decimal.Decimal
}

// Result is the outcome of a projection. Amounts are rounded to cents.
type Result struct {
	FinalValue        decimal.Decimal
	GrossGain         decimal.Decimal
	FeesTotal         decimal.Decimal
	NetGain           decimal.Decimal
	ContributionTotal decimal.Decimal
	PeriodsPerYear    int
	TotalPeriods      int
	Timeline          []TimelinePoint
}

// Validate checks that in describes a plan that can be projected.
func (in Input) Validate() error {
	switch {
	case in.Principal.IsNegative():
		return &domain.ValidationError{Message: "principal must be >= 0"}
	case !in.Years.IsPositive():
		return &domain.ValidationError{Message: "years must be > 0"}
	case in.Years.GreaterThan(decimal.NewFromInt(MaxYears)):
		return &domain.ValidationError{Message: "years must be <= 100"}
	case in.AnnualRatePercent.LessThan(hundred.Neg()):
		return &domain.ValidationError{Message: "rate must be >= -100"}
	case in.AnnualFeePercent.IsNegative():
		return &domain.ValidationError{Message: "fee must be >= 0"}
	case in.AnnualFeePercent.GreaterThan(hundred):
		return &domain.ValidationError{Message: "fee must be <= 100"}
	case in.Contribution.IsNegative():
		return &domain.ValidationError{Message: "contribution must be >= 0"}
	}
	return nil
}

// Simulate projects the plan period by period. Each period first grows the
// balance, then charges the management fee on the grown balance, then adds
// the contribution, so fees never apply to money not yet contributed.
func Simulate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	ppy := in.Frequency.PeriodsPerYear()
	periodsPerYear := decimal.NewFromInt(int64(ppy))
	totalPeriods := int(in.Years.Mul(periodsPerYear).Round(0).IntPart())
	if totalPeriods < 1 {
		totalPeriods = 1
	}

	ratePerPeriod := in.AnnualRatePercent.Div(hundred).Div(periodsPerYear)
	feePerPeriod := in.AnnualFeePercent.Div(hundred).Div(periodsPerYear)
	growth := decimal.NewFromInt(1).Add(ratePerPeriod)
	contributes := in.Contribution.IsPositive() && in.Frequency.Contributes()

	balance := in.Principal
	feesTotal := decimal.Zero
	contributionTotal := decimal.Zero
	timeline := make([]TimelinePoint, 0, totalPeriods/ppy+1)

	for period := 1; period <= totalPeriods; period++ {
		gross := balance.Mul(growth)
		fee := gross.Mul(feePerPeriod)
		feesTotal = feesTotal.Add(fee).Round(workingPrecision)
		balance = gross.Sub(fee).Round(workingPrecision)

		if contributes {
			balance = balance.Add(in.Contribution)
			contributionTotal = contributionTotal.Add(in.Contribution)
		}

		if period%ppy == 0 || period == totalPeriods {
			timeline = append(timeline, TimelinePoint{
				Year:              (period + ppy - 1) / ppy,
				Value:             domain.RoundMoney(balance),
				ContributionTotal: domain.RoundMoney(contributionTotal),
				FeesAccrued:       domain.RoundMoney(feesTotal),
			})
		}
	}

	// Gains derive from the reported figures, so they add up to the cent.
	invested := in.Principal.Add(contributionTotal)
	final := domain.RoundMoney(balance)
	fees := domain.RoundMoney(feesTotal)
	net := domain.RoundMoney(final.Sub(invested))
	return Result{
		FinalValue:        final,
		GrossGain:         domain.RoundMoney(net.Add(fees)),
		FeesTotal:         fees,
		NetGain:           net,
		ContributionTotal: domain.RoundMoney(contributionTotal),
		PeriodsPerYear:    ppy,
		TotalPeriods:      totalPeriods,
		Timeline:          timeline,
	}, nil
}
