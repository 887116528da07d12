// Package recal maps a detected bearing-capacity deviation into a concrete
// structural correction. This is the closed-loop half of the system: the
// sensor engine raises the trigger, the policy here decides what changes on
// site.
package recal

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/MrMan003/Nexus/internal/config"
	"github.com/MrMan003/Nexus/internal/narrative"
)

// #region defaults

// DefaultBudgetCr is assumed when the request carries no budget.
const DefaultBudgetCr = 10.0

// #endregion defaults

// #region policy

// Policy selects a severity tier and corrective action for a deviation.
type Policy struct {
	thresholds config.SeverityThresholds
	enricher   Enricher // nil = fallback text only
}

// NewPolicy creates a policy. enricher may be nil.
func NewPolicy(thresholds config.SeverityThresholds, enricher Enricher) *Policy {
	return &Policy{thresholds: thresholds, enricher: enricher}
}

// #endregion policy

// #region generate-patch

// GeneratePatch maps a deviation percentage into exactly one corrective
// tier. Total over every finite deviation: a capacity surplus (negative
// deviation) falls into the MINOR tier like any small shortfall.
func (p *Policy) GeneratePatch(ctx context.Context, req PatchRequest) Patch {
	budget := req.BudgetCr
	if budget <= 0 {
		budget = DefaultBudgetCr
	}

	var (
		severity    Severity
		addDepthMM  int
		addPiles    int
		newRiskBand string
		costFrac    float64
		action      string
	)

	switch {
	case req.DeviationPercent > p.thresholds.Critical:
		severity = SeverityCritical
		addDepthMM = 600
		addPiles = 4
		newRiskBand = "LOW"
		costFrac = 0.18
		action = fmt.Sprintf(
			"Increase founding depth by %dmm. Add %d bored cast-in-situ piles per column. "+
				"Perform additional plate load test per IS 1888.",
			addDepthMM, addPiles)
	case req.DeviationPercent > p.thresholds.Moderate:
		severity = SeverityModerate
		addDepthMM = 350
		addPiles = 2
		newRiskBand = "MODERATE"
		costFrac = 0.09
		action = fmt.Sprintf(
			"Increase founding depth by %dmm. Add %d piles for load redistribution. "+
				"Recheck SBC with dynamic cone penetration test.",
			addDepthMM, addPiles)
	default:
		severity = SeverityMinor
		addDepthMM = 150
		addPiles = 0
		newRiskBand = "LOW-MODERATE"
		costFrac = 0.03
		action = fmt.Sprintf(
			"Increase reinforcement grade from Fe415 to Fe500. "+
				"Add %dmm to footing depth as precaution.",
			addDepthMM)
	}

	enrichment, enriched := p.enrich(ctx, narrative.EnrichRequest{
		DeviationPercent: req.DeviationPercent,
		Severity:         string(severity),
		Action:           action,
		ProjectContext:   req.ProjectContext,
		CurrentVariant:   req.CurrentVariant,
	})

	return Patch{
		DeviationPercent: round2(req.DeviationPercent),
		Severity:         severity,
		StructuralAction: action,
		AddDepthMM:       addDepthMM,
		AddPiles:         addPiles,
		NewRiskBand:      newRiskBand,
		CostDeltaCr:      round2(budget * costFrac),
		ISCodeReference:  config.ISCodes["foundation"] + "; " + config.ISCodes["seismic"],
		Rationale:        enrichment.Rationale,
		SiteInstructions: enrichment.SiteInstructions,
		Enriched:         enriched,
		RequiresApproval: severity == SeverityCritical || severity == SeverityModerate,
	}
}

// #endregion generate-patch

// #region enrich

// enrich returns model-generated text when the enricher is present and
// healthy, and the deterministic fallback otherwise. The second return tells
// the two branches apart.
func (p *Policy) enrich(ctx context.Context, req narrative.EnrichRequest) (narrative.Enrichment, bool) {
	if p.enricher != nil {
		out, err := p.enricher.EnrichPatch(ctx, req)
		if err == nil {
			return out, true
		}
		log.Printf("[RECAL] enrichment unavailable, using fallback: %v", err)
	}
	return fallbackEnrichment(req.DeviationPercent, req.Action), false
}

// fallbackEnrichment derives rationale and site instructions purely from the
// tier data. No external call.
func fallbackEnrichment(deviationPercent float64, action string) narrative.Enrichment {
	return narrative.Enrichment{
		Rationale: fmt.Sprintf(
			"A %.1f%% SBC drop reduces the safety factor below acceptable IS code limits. "+
				"The proposed depth increase and pile addition restore the required bearing capacity per IS 6403. "+
				"Immediate implementation prevents potential differential settlement and structural distress.",
			deviationPercent),
		SiteInstructions: fmt.Sprintf(
			"Stop all foundation work. Contact the structural engineer. Implement '%s' before resuming.",
			action),
	}
}

// #endregion enrich

// #region rounding

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// #endregion rounding
