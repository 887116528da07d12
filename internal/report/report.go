// Package report renders pipeline entities as human-readable text. The
// entities themselves stay plain records; all formatting lives here.
package report

import (
	"fmt"
	"strings"

	"github.com/MrMan003/Nexus/internal/impact"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

// #region stream

// StreamSummary describes a sensor stream result in one or two lines.
func StreamSummary(r sensor.StreamResult) string {
	if !r.DeviationDetected {
		return "Sensor stream normal. No deviation detected."
	}
	return fmt.Sprintf(
		"ALERT [%s] - Soil SBC deviated %.1f%% from design value.\nRecalibration triggered: %v",
		r.AlertLevel, r.DeviationPercent, r.TriggerRecal)
}

// RecentReadings renders the last n readings as a compact list.
func RecentReadings(r sensor.StreamResult, n int) string {
	recent := r.Recent(n)
	values := make([]string, len(recent))
	for i, reading := range recent {
		values[i] = fmt.Sprintf("%.1f", reading.SBC)
	}
	return "[" + strings.Join(values, ", ") + "] kN/m²"
}

// #endregion stream

// #region patch

// PatchSummary describes a recalibration patch for the site engineer.
func PatchSummary(p recal.Patch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Deviation: %.1f%%\n", p.Severity, p.DeviationPercent)
	fmt.Fprintf(&b, "Action: %s\n", p.StructuralAction)
	fmt.Fprintf(&b, "IS Code: %s\n", p.ISCodeReference)
	fmt.Fprintf(&b, "Projected Risk: %s | Cost Delta: +%.2f Cr", p.NewRiskBand, p.CostDeltaCr)
	if p.Rationale != "" {
		fmt.Fprintf(&b, "\nRationale: %s", p.Rationale)
	}
	if p.SiteInstructions != "" {
		fmt.Fprintf(&b, "\nSite Instructions: %s", p.SiteInstructions)
	}
	return b.String()
}

// #endregion patch

// #region twin

// TwinSummary describes a simulation result.
func TwinSummary(r twin.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Safety Factor -> Mean: %g | P5: %g | P95: %g\n", r.MeanSF, r.P5SF, r.P95SF)
	fmt.Fprintf(&b, "Failure Probability: %g%%\n", r.FailureProbability)
	fmt.Fprintf(&b, "Risk Band: %s", r.RiskBand)
	if r.Narrative != "" {
		fmt.Fprintf(&b, "\nAI Analysis: %s", r.Narrative)
	}
	return b.String()
}

// #endregion twin

// #region impact

// ImpactSummary renders the savings estimate as a block.
func ImpactSummary(r impact.Report) string {
	var b strings.Builder
	line := strings.Repeat("=", 50)
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "  BUSINESS IMPACT (Year 1 Estimate)\n")
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "  Rework savings:       %.2f Cr\n", r.ReworkSavingCr)
	fmt.Fprintf(&b, "  Delay savings:        %.2f Cr\n", r.DelaySavingCr)
	fmt.Fprintf(&b, "  Design time savings:  %.2f Cr\n", r.DesignTimeSavingCr)
	fmt.Fprintf(&b, "  TOTAL SAVINGS:        %.2f Cr\n", r.TotalSavingCr)
	fmt.Fprintf(&b, "  ROI Multiplier:       %gx\n", r.ROIMultiplier)
	fmt.Fprintf(&b, "  Payback Period:       %.0f months\n", r.PaybackMonths)
	b.WriteString(line)
	return b.String()
}

// #endregion impact
