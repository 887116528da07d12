package recal

import (
	"context"

	"github.com/MrMan003/Nexus/internal/narrative"
)

// #region severity

// Severity classifies how aggressive the corrective action must be.
// Distinct vocabulary from the detector's alert levels: the detector
// classifies, the policy acts.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityModerate Severity = "MODERATE"
	SeverityMinor    Severity = "MINOR"
)

// #endregion severity

// #region patch

// Patch is the structural correction emitted in response to a deviation.
// Created once per trigger; immutable.
type Patch struct {
	DeviationPercent float64
	Severity         Severity
	StructuralAction string
	AddDepthMM       int
	AddPiles         int
	NewRiskBand      string  // projected risk after the patch is applied
	CostDeltaCr      float64 // additional cost in Crore
	ISCodeReference  string
	Rationale        string
	SiteInstructions string
	Enriched         bool // true when the narrative service supplied the text above
	RequiresApproval bool
}

// #endregion patch

// #region request

// PatchRequest carries the inputs for one policy decision.
type PatchRequest struct {
	DeviationPercent float64
	ProjectContext   string
	CurrentVariant   string // rendered variant description, optional
	BudgetCr         float64
}

// #endregion request

// #region enricher

// Enricher decorates a patch with model-generated text. The policy treats it
// as fully optional: nil or failing enrichers degrade to deterministic
// fallback strings.
type Enricher interface {
	EnrichPatch(ctx context.Context, req narrative.EnrichRequest) (narrative.Enrichment, error)
}

// #endregion enricher
