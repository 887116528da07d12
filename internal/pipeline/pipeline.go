// Package pipeline chains the full closed loop: design variants, digital
// twin simulation, sensor stream analysis, recalibration, and business
// impact. The pipeline owns the entities for a single run; nothing outlives
// the returned RunResult.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/MrMan003/Nexus/internal/audit"
	"github.com/MrMan003/Nexus/internal/design"
	"github.com/MrMan003/Nexus/internal/impact"
	"github.com/MrMan003/Nexus/internal/project"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

// #region pipeline

// Pipeline wires the layers together.
type Pipeline struct {
	design *design.Generator
	twin   *twin.Engine
	sensor *sensor.Engine
	policy *recal.Policy
	store  *audit.Store // nil = no audit recording

	// StreamConfig parameterizes the simulated sensor stream for Run.
	// Callers may pin the seed for reproducible runs.
	StreamConfig sensor.SimulateConfig
}

// New creates a pipeline. store may be nil.
func New(gen *design.Generator, twinEngine *twin.Engine, sensorEngine *sensor.Engine, policy *recal.Policy, store *audit.Store) *Pipeline {
	return &Pipeline{
		design:       gen,
		twin:         twinEngine,
		sensor:       sensorEngine,
		policy:       policy,
		store:        store,
		StreamConfig: sensor.DefaultSimulateConfig(),
	}
}

// #endregion pipeline

// #region run-result

// RunResult aggregates one end-to-end pipeline run.
type RunResult struct {
	Project     project.Input
	Variants    []design.Variant
	Recommended design.Variant
	Simulation  twin.Result
	Stream      sensor.StreamResult
	Patch       *recal.Patch // nil when recalibration did not trigger
	Impact      impact.Report
	RunID       string // audit run ID, empty when recording is off
}

// #endregion run-result

// #region run

// Run executes the full loop for a project brief.
func (p *Pipeline) Run(ctx context.Context, in project.Input) (RunResult, error) {
	if err := in.Validate(); err != nil {
		return RunResult{}, err
	}
	promptCtx := in.PromptContext()

	variants := p.design.GenerateVariants(ctx, in)
	recommended := design.Recommend(variants)
	log.Printf("[PIPE] design: %d variants, recommended=%s risk=%g", len(variants), recommended.ID, recommended.RiskScore)

	sim := p.twin.Simulate(ctx, twin.DefaultParams(), promptCtx)
	log.Printf("[PIPE] twin: failure=%g%% band=%s", sim.FailureProbability, sim.RiskBand)

	stream, err := p.sensor.SimulateStream(p.StreamConfig)
	if err != nil {
		return RunResult{}, fmt.Errorf("sensor stream: %w", err)
	}
	log.Printf("[PIPE] sensor: deviation=%g%% alert=%s trigger=%v", stream.DeviationPercent, stream.AlertLevel, stream.TriggerRecal)

	var patch *recal.Patch
	if stream.TriggerRecal {
		generated := p.policy.GeneratePatch(ctx, recal.PatchRequest{
			DeviationPercent: stream.DeviationPercent,
			ProjectContext:   promptCtx,
			CurrentVariant:   recommended.Context(),
			BudgetCr:         in.BudgetCr,
		})
		patch = &generated
		log.Printf("[PIPE] recal: severity=%s depth=+%dmm piles=+%d enriched=%v",
			patch.Severity, patch.AddDepthMM, patch.AddPiles, patch.Enriched)
	}

	result := RunResult{
		Project:     in,
		Variants:    variants,
		Recommended: recommended,
		Simulation:  sim,
		Stream:      stream,
		Patch:       patch,
		Impact:      impact.Calculate(sim.FailureProbability, in.BudgetCr),
	}
	result.RunID = p.record(in, stream, patch)
	return result, nil
}

// #endregion run

// #region record

// record writes the run and patch to the audit trail. Best effort: audit
// failures are logged and never fail the run.
func (p *Pipeline) record(in project.Input, stream sensor.StreamResult, patch *recal.Patch) string {
	if p.store == nil {
		return ""
	}

	runID, err := p.store.RecordRun(audit.RunRecord{
		ProjectID:         in.ProjectID,
		Source:            audit.SourceSimulated,
		DesignSBC:         p.StreamConfig.DesignSBC,
		ReadingCount:      len(stream.Readings),
		DeviationDetected: stream.DeviationDetected,
		DeviationPercent:  stream.DeviationPercent,
		AlertLevel:        string(stream.AlertLevel),
		TriggerRecal:      stream.TriggerRecal,
	})
	if err != nil {
		log.Printf("[PIPE] audit run not recorded: %v", err)
		return ""
	}

	if patch != nil {
		err := p.store.RecordPatch(audit.PatchRecord{
			RunID:            runID,
			Severity:         string(patch.Severity),
			StructuralAction: patch.StructuralAction,
			AddDepthMM:       patch.AddDepthMM,
			AddPiles:         patch.AddPiles,
			NewRiskBand:      patch.NewRiskBand,
			CostDeltaCr:      patch.CostDeltaCr,
			RequiresApproval: patch.RequiresApproval,
			Enriched:         patch.Enriched,
		})
		if err != nil {
			log.Printf("[PIPE] audit patch not recorded: %v", err)
		}
	}
	return runID
}

// #endregion record
