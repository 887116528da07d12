// Package design produces ranked foundation design variants for a project
// brief. The primary path asks the text-generation service for contextual
// variants; a deterministic rule engine covers every failure mode so the
// pipeline never stalls on the external service.
package design

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/MrMan003/Nexus/internal/config"
	"github.com/MrMan003/Nexus/internal/project"
)

// #region variant

// Variant is one candidate foundation design. Field tags match the JSON the
// model is asked to return.
type Variant struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	FoundationType string   `json:"foundation_type"`
	DepthM         float64  `json:"depth_m"`
	Piles          int      `json:"piles"`
	WidthM         float64  `json:"width_m"`
	RiskScore      float64  `json:"risk_score"` // 1-10, 10 = highest risk
	CostCr         float64  `json:"cost_cr"`
	ISCodeRefs     []string `json:"is_code_refs"`
	Rationale      string   `json:"rationale"`
}

// Context renders the variant as free text for prompt injection.
func (v Variant) Context() string {
	return fmt.Sprintf("%s %s: %s, depth %gm, %d piles, risk %g/10, cost %g Cr",
		v.ID, v.Name, v.FoundationType, v.DepthM, v.Piles, v.RiskScore, v.CostCr)
}

// #endregion variant

// #region textgen

// TextGen is the slice of the narrative client the generator needs.
type TextGen interface {
	Call(ctx context.Context, prompt string, jsonMode bool) (string, error)
	CallJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// #endregion textgen

// #region generator

// Generator creates design variants for a project brief.
type Generator struct {
	llm TextGen // nil = deterministic engine only
}

// NewGenerator creates a generator. llm may be nil.
func NewGenerator(llm TextGen) *Generator {
	return &Generator{llm: llm}
}

// #endregion generator

// #region generate

// GenerateVariants returns three ranked variants for the brief. Model
// failures degrade to the deterministic rule engine.
func (g *Generator) GenerateVariants(ctx context.Context, p project.Input) []Variant {
	if g.llm != nil {
		variants, err := g.modelVariants(ctx, p)
		if err == nil {
			return variants
		}
		log.Printf("[GDM] model unavailable, using deterministic engine: %v", err)
	}
	return g.deterministicVariants(p)
}

// Recommend returns the variant with the lowest risk score. An empty slice
// yields the zero Variant.
func Recommend(variants []Variant) Variant {
	if len(variants) == 0 {
		return Variant{}
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.RiskScore < best.RiskScore {
			best = v
		}
	}
	return best
}

// #endregion generate

// #region model-path

var requiredVariantKeys = []string{"id", "name", "depth_m", "piles", "risk_score", "cost_cr"}

func (g *Generator) modelVariants(ctx context.Context, p project.Input) ([]Variant, error) {
	prompt := fmt.Sprintf(`You are a senior structural engineer.
Generate exactly 3 foundation design variants for this project brief.
Apply relevant IS codes: %s, %s.

PROJECT BRIEF:
%s

Return a JSON ARRAY of exactly 3 objects. Each object must have:
- id           : "V1", "V2", "V3"
- name         : short descriptive name (e.g. "Cost-Optimised Raft")
- foundation_type : type (Raft / Pile / Strip / Combined)
- depth_m      : founding depth in meters (float)
- piles        : number of piles (0 if not applicable)
- width_m      : footing width in meters (float)
- risk_score   : float 1-10 (10 = highest risk)
- cost_cr      : estimated cost in Crore (float)
- is_code_refs : list of relevant IS codes applied
- rationale    : one sentence explaining the trade-off`,
		config.ISCodes["foundation"], config.ISCodes["seismic"], p.PromptContext())

	raw, err := g.llm.CallJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// Keys are validated on the raw objects so a structurally wrong response
	// is rejected rather than silently zero-filled.
	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("variant payload not an object array: %w", err)
	}
	for i, obj := range objects {
		for _, key := range requiredVariantKeys {
			if _, ok := obj[key]; !ok {
				return nil, fmt.Errorf("variant %d missing key %q", i, key)
			}
		}
	}

	var variants []Variant
	if err := json.Unmarshal(raw, &variants); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("model returned no variants")
	}
	return variants, nil
}

// #endregion model-path

// #region deterministic-path

// deterministicVariants is the rule-engine fallback: three fixed archetypes
// scaled by soil and seismic factors.
func (g *Generator) deterministicVariants(p project.Input) []Variant {
	soil := strings.ToLower(p.SoilType)
	soilFactor := 1.0
	switch {
	case strings.Contains(soil, "black"):
		soilFactor = 1.3
	case strings.Contains(soil, "sand"):
		soilFactor = 1.1
	}

	seismicFactor := map[string]float64{"II": 1.0, "III": 1.1, "IV": 1.2, "V": 1.35}[p.SeismicZone]
	if seismicFactor == 0 {
		seismicFactor = 1.0
	}

	baseDepth := 2.0 * soilFactor * seismicFactor

	return []Variant{
		{
			ID: "V1", Name: "Cost-Optimised Shallow",
			FoundationType: "Raft",
			DepthM:         round2(baseDepth), Piles: 0,
			WidthM:    round2(baseDepth * 1.5),
			RiskScore: 6.5,
			CostCr:    round2(p.BudgetCr * 0.82),
			ISCodeRefs: []string{config.ISCodes["foundation"]},
			Rationale:  "Lowest cost; acceptable for low seismic & stable soil.",
		},
		{
			ID: "V2", Name: "Balanced - Recommended",
			FoundationType: "Combined Raft + Piles",
			DepthM:         round2(baseDepth + 0.4), Piles: 4,
			WidthM:    round2(baseDepth * 1.8),
			RiskScore: 3.8,
			CostCr:    round2(p.BudgetCr),
			ISCodeRefs: []string{config.ISCodes["foundation"], config.ISCodes["seismic"]},
			Rationale:  "Best cost-safety balance for local conditions.",
		},
		{
			ID: "V3", Name: "Safety-Maximised Pile",
			FoundationType: "Bored Cast-in-Situ Piles",
			DepthM:         round2(baseDepth + 0.8), Piles: 8,
			WidthM:    round2(baseDepth * 2.0),
			RiskScore: 1.5,
			CostCr:    round2(p.BudgetCr * 1.28),
			ISCodeRefs: []string{config.ISCodes["foundation"], config.ISCodes["seismic"], config.ISCodes["concrete"]},
			Rationale:  "Maximum safety margin; recommended for Zone IV/V or poor soil.",
		},
	}
}

// #endregion deterministic-path

// #region explain

// ExplainRecommendation produces a plain-English recommendation for the site
// engineer, with a deterministic fallback.
func (g *Generator) ExplainRecommendation(ctx context.Context, variants []Variant, p project.Input) string {
	if g.llm != nil {
		prompt := fmt.Sprintf(`You are a structural engineering advisor.
A site engineer needs your recommendation.

PROJECT: %s

VARIANTS GENERATED:
%s

In 3-4 concise sentences:
1. Which variant do you recommend and why?
2. What is the key risk to watch out for on site?
3. Any IS code clause the engineer must verify?`,
			p.PromptContext(), renderVariants(variants))

		if text, err := g.llm.Call(ctx, prompt, false); err == nil {
			return text
		} else {
			log.Printf("[GDM] explanation unavailable, using fallback: %v", err)
		}
	}

	rec := Recommend(variants)
	return fmt.Sprintf(
		"Recommended variant: %s - %s. Risk score: %g/10. Cost: %g Cr. "+
			"Verify soil bearing capacity on-site before finalising.",
		rec.ID, rec.Name, rec.RiskScore, rec.CostCr)
}

func renderVariants(variants []Variant) string {
	var b strings.Builder
	for _, v := range variants {
		b.WriteString(v.Context())
		b.WriteByte('\n')
	}
	return b.String()
}

// #endregion explain

// #region rounding

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// #endregion rounding
