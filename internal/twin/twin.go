// Package twin runs a Monte Carlo simulation of soil bearing capacity
// against structural demand to produce probabilistic risk scores. Can be
// seeded with real geotechnical report values.
package twin

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/MrMan003/Nexus/internal/config"
)

// #region types

// Params configures one simulation run.
type Params struct {
	MeanSBC    float64
	StdSBC     float64
	MeanDemand float64
	StdDemand  float64
	N          int
	Seed       int64
}

// DefaultParams returns the standard simulation parameters. The fixed seed
// keeps demo runs reproducible.
func DefaultParams() Params {
	return Params{
		MeanSBC:    config.SBCDefaultMean,
		StdSBC:     config.SBCDefaultStd,
		MeanDemand: 165.0,
		StdDemand:  10.0,
		N:          config.MCIterations,
		Seed:       42,
	}
}

// Result holds the simulated safety-factor distribution summary.
type Result struct {
	FailureProbability  float64 // % of runs where SF < 1.0
	MarginalProbability float64 // % of runs where 1.0 <= SF < 1.5
	SafeProbability     float64 // % of runs where SF >= 1.5
	MeanSF              float64
	P5SF                float64 // worst 5% of scenarios
	P95SF               float64
	RiskBand            string // LOW / MODERATE / HIGH / CRITICAL
	Narrative           string
}

// #endregion types

// #region caller

// Caller is the slice of the narrative client the engine needs.
type Caller interface {
	Call(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// #endregion caller

// #region engine

// Engine runs the Monte Carlo simulation.
type Engine struct {
	llm Caller // nil = fallback narrative only
}

// NewEngine creates an engine. llm may be nil.
func NewEngine(llm Caller) *Engine {
	return &Engine{llm: llm}
}

// #endregion engine

// #region simulate

// Simulate samples soil capacity and demand distributions and summarizes
// the resulting safety factors. A narrative is attached only when a project
// context is supplied.
func (e *Engine) Simulate(ctx context.Context, params Params, projectContext string) Result {
	if params.N <= 0 {
		params.N = config.MCIterations
	}

	rng := rand.New(rand.NewSource(params.Seed))
	sf := make([]float64, params.N)
	var failures, marginals, sum float64
	for i := range sf {
		soil := rng.NormFloat64()*params.StdSBC + params.MeanSBC
		demand := rng.NormFloat64()*params.StdDemand + params.MeanDemand
		sf[i] = soil / demand
		sum += sf[i]
		switch {
		case sf[i] < 1.0:
			failures++
		case sf[i] < 1.5:
			marginals++
		}
	}

	n := float64(params.N)
	failureProb := failures / n * 100
	marginalProb := marginals / n * 100
	safeProb := (n - failures - marginals) / n * 100

	sort.Float64s(sf)

	riskBand := "LOW"
	switch {
	case failureProb > 10:
		riskBand = "CRITICAL"
	case failureProb > 5:
		riskBand = "HIGH"
	case failureProb > 2:
		riskBand = "MODERATE"
	}

	result := Result{
		FailureProbability:  round2(failureProb),
		MarginalProbability: round2(marginalProb),
		SafeProbability:     round2(safeProb),
		MeanSF:              round3(sum / n),
		P5SF:                round3(percentile(sf, 5)),
		P95SF:               round3(percentile(sf, 95)),
		RiskBand:            riskBand,
	}

	if projectContext != "" {
		result.Narrative = e.narrative(ctx, result, projectContext)
	}
	return result
}

// #endregion simulate

// #region narrative

func (e *Engine) narrative(ctx context.Context, r Result, projectContext string) string {
	if e.llm != nil {
		prompt := fmt.Sprintf(`You are a structural risk analyst.
Interpret these Monte Carlo simulation results for the project team.

PROJECT CONTEXT:
%s

SIMULATION RESULTS:
- Failure probability (SF < 1.0): %g%%
- Marginal probability (1.0 <= SF < 1.5): %g%%
- Mean safety factor: %g
- Worst-case 5th percentile SF: %g
- Risk band: %s

In 3 technical sentences:
1. What does this probability mean for the project?
2. What is the primary driver of risk?
3. What mitigation should the engineer take before breaking ground?`,
			projectContext, r.FailureProbability, r.MarginalProbability, r.MeanSF, r.P5SF, r.RiskBand)

		if text, err := e.llm.Call(ctx, prompt, false); err == nil {
			return text
		} else {
			log.Printf("[TWIN] narrative unavailable, using fallback: %v", err)
		}
	}

	return fmt.Sprintf(
		"Risk band is %s. Safety factor mean of %.2f with %.1f%% failure probability. "+
			"Review geotechnical report and increase founding depth if SF < 1.5.",
		r.RiskBand, r.MeanSF, r.FailureProbability)
}

// #endregion narrative

// #region percentile

// percentile computes the p-th percentile of sorted values with linear
// interpolation between adjacent ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// #endregion percentile

// #region rounding

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }

// #endregion rounding
