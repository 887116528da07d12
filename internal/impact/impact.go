// Package impact quantifies the year-one business value of catching
// foundation risk before construction. Conservative benefit model; the
// benchmark constants are documented for audit transparency.
package impact

import "math"

// #region benchmarks

// Industry benchmarks behind the savings estimates.
const (
	ReworkFractionOfCost = 0.22 // share of project cost lost to rework
	ReworkReduction      = 0.45 // rework avoided with live recalibration
	DelayFractionOfCost  = 0.10 // delay-related overhead share
	DelayReduction       = 0.35
	DesignFractionOfCost = 0.08 // design phase share of project cost
	DesignTimeReduction  = 0.60

	DeployCostCr = 5.0 // estimated platform deployment for 10 projects
)

// #endregion benchmarks

// #region report

// Report summarizes estimated savings in Crore.
type Report struct {
	ReworkSavingCr     float64
	DelaySavingCr      float64
	DesignTimeSavingCr float64
	TotalSavingCr      float64
	ROIMultiplier      float64
	PaybackMonths      float64
}

// #endregion report

// #region calculate

// Calculate estimates savings for a project of the given budget. Higher-risk
// projects save more rework, so the failure probability scales that term.
// budgetCr must be positive; callers validate it before reaching this point.
func Calculate(failureProb, budgetCr float64) Report {
	reworkSaving := budgetCr * ReworkFractionOfCost * ReworkReduction * (1 + failureProb/100)
	delaySaving := budgetCr * DelayFractionOfCost * DelayReduction
	designSaving := budgetCr * DesignFractionOfCost * DesignTimeReduction

	totalSaving := reworkSaving + delaySaving + designSaving

	return Report{
		ReworkSavingCr:     round2(reworkSaving),
		DelaySavingCr:      round2(delaySaving),
		DesignTimeSavingCr: round2(designSaving),
		TotalSavingCr:      round2(totalSaving),
		ROIMultiplier:      round2(totalSaving / DeployCostCr),
		PaybackMonths:      round1(DeployCostCr / totalSaving * 12),
	}
}

// #endregion calculate

// #region rounding

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }

// #endregion rounding
