package narrative

import (
	"context"
	"encoding/json"
	"fmt"
)

// #region types

// EnrichRequest carries the patch data the model needs for its explanation.
type EnrichRequest struct {
	DeviationPercent float64
	Severity         string
	Action           string
	ProjectContext   string
	CurrentVariant   string // rendered variant description, may be empty
}

// Enrichment is the two-field structure returned by the service.
type Enrichment struct {
	Rationale        string `json:"rationale"`
	SiteInstructions string `json:"site_instructions"`
}

// #endregion types

// #region enrich-patch

// EnrichPatch asks the service for an engineering rationale and plain-English
// site instructions for a recalibration patch.
func (c *Client) EnrichPatch(ctx context.Context, req EnrichRequest) (Enrichment, error) {
	variant := req.CurrentVariant
	if variant == "" {
		variant = "Not provided"
	}

	prompt := fmt.Sprintf(`You are a senior structural engineer doing an emergency site review.

SITUATION:
IoT soil sensors have detected that actual soil bearing capacity (SBC) has
dropped %.1f%% below the design assumption.
Severity classification: %s

PROJECT CONTEXT:
%s

CURRENT DESIGN:
%s

PROPOSED STRUCTURAL FIX:
%s

Provide two things:
1. RATIONALE (3 technical sentences): Why this drop in SBC is structurally
   dangerous and why the proposed fix addresses it per IS codes.
2. SITE_INSTRUCTIONS (2 sentences): Plain-English instructions the site
   engineer can relay to the foreperson immediately.

Return as JSON:
{"rationale": "...", "site_instructions": "..."}`,
		req.DeviationPercent, req.Severity, req.ProjectContext, variant, req.Action)

	raw, err := c.CallJSON(ctx, prompt)
	if err != nil {
		return Enrichment{}, err
	}

	var out Enrichment
	if err := json.Unmarshal(raw, &out); err != nil {
		return Enrichment{}, &InvalidResponseError{Raw: string(raw), Err: err}
	}
	return out, nil
}

// #endregion enrich-patch
