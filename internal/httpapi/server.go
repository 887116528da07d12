// Package httpapi exposes the pipeline as HTTP endpoints. Handlers are thin
// pass-throughs: payload fields map one-to-one onto the core entities.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/MrMan003/Nexus/internal/design"
	"github.com/MrMan003/Nexus/internal/impact"
	"github.com/MrMan003/Nexus/internal/pipeline"
	"github.com/MrMan003/Nexus/internal/project"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

// #region server

// Server bundles the engines behind the HTTP surface.
type Server struct {
	sensor   *sensor.Engine
	policy   *recal.Policy
	design   *design.Generator
	twin     *twin.Engine
	pipeline *pipeline.Pipeline
}

// NewServer creates the HTTP surface over the given engines.
func NewServer(sensorEngine *sensor.Engine, policy *recal.Policy, gen *design.Generator, twinEngine *twin.Engine, pipe *pipeline.Pipeline) *Server {
	return &Server{
		sensor:   sensorEngine,
		policy:   policy,
		design:   gen,
		twin:     twinEngine,
		pipeline: pipe,
	}
}

// Router builds the route table with logging and panic recovery.
func (s *Server) Router(accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/design/variants", s.handleVariants).Methods(http.MethodPost)
	r.HandleFunc("/simulate/twin", s.handleTwin).Methods(http.MethodPost)
	r.HandleFunc("/sensor/stream", s.handleSensorStream).Methods(http.MethodPost)
	r.HandleFunc("/recalibrate", s.handleRecalibrate).Methods(http.MethodPost)
	r.HandleFunc("/impact", s.handleImpact).Methods(http.MethodPost)
	r.HandleFunc("/pipeline/run", s.handlePipelineRun).Methods(http.MethodPost)

	var h http.Handler = handlers.RecoveryHandler()(r)
	if accessLog != nil {
		h = handlers.LoggingHandler(accessLog, h)
	}
	return h
}

// #endregion server

// #region wire-types

type projectRequest struct {
	ProjectID   string  `json:"project_id"`
	Structure   string  `json:"structure"`
	SoilType    string  `json:"soil_type"`
	SeismicZone string  `json:"seismic_zone"`
	LoadKN      float64 `json:"load_kN"`
	BudgetCr    float64 `json:"budget_cr"`
	Season      string  `json:"season"`
	Location    string  `json:"location"`
	Vertical    string  `json:"vertical"`
	Notes       string  `json:"notes"`
}

func (req projectRequest) toProject() project.Input {
	location := req.Location
	if location == "" {
		location = "India"
	}
	vertical := req.Vertical
	if vertical == "" {
		vertical = "Buildings"
	}
	return project.Input{
		ProjectID:   req.ProjectID,
		Structure:   req.Structure,
		SoilType:    req.SoilType,
		SeismicZone: req.SeismicZone,
		LoadKN:      req.LoadKN,
		BudgetCr:    req.BudgetCr,
		Season:      req.Season,
		Location:    location,
		Vertical:    vertical,
		Notes:       req.Notes,
	}
}

type sensorRequest struct {
	DesignSBC float64   `json:"design_sbc"`
	Readings  []float64 `json:"readings"` // real readings; empty = simulate
	Seed      *int64    `json:"seed"`
}

type sensorResponse struct {
	DeviationDetected bool      `json:"deviation_detected"`
	DeviationPercent  float64   `json:"deviation_percent"`
	AlertLevel        string    `json:"alert_level"`
	TriggerRecal      bool      `json:"trigger_recal"`
	Last5Readings     []float64 `json:"last_5_readings"`
}

type recalibrateRequest struct {
	DeviationPercent float64 `json:"deviation_percent"`
	BudgetCr         float64 `json:"budget_cr"`
	ProjectID        string  `json:"project_id"`
}

type patchResponse struct {
	DeviationPercent float64 `json:"deviation_percent"`
	Severity         string  `json:"severity"`
	StructuralAction string  `json:"structural_action"`
	AddDepthMM       int     `json:"add_depth_mm"`
	AddPiles         int     `json:"add_piles"`
	NewRiskBand      string  `json:"new_risk_band"`
	CostDeltaCr      float64 `json:"cost_delta_cr"`
	ISCodeReference  string  `json:"is_code_reference"`
	Rationale        string  `json:"rationale"`
	SiteInstructions string  `json:"site_instructions"`
	Enriched         bool    `json:"enriched"`
	RequiresApproval bool    `json:"requires_approval"`
}

type impactRequest struct {
	FailureProb float64 `json:"failure_prob"`
	BudgetCr    float64 `json:"budget_cr"`
}

// #endregion wire-types

// #region health

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "NEXUS operational",
		"version": "5.0",
	})
}

// #endregion health

// #region design

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := req.toProject()
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variants := s.design.GenerateVariants(r.Context(), p)
	writeJSON(w, http.StatusOK, map[string]any{
		"variants":       variants,
		"recommendation": s.design.ExplainRecommendation(r.Context(), variants, p),
	})
}

// #endregion design

// #region twin

func (s *Server) handleTwin(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.twin.Simulate(r.Context(), twin.DefaultParams(), req.toProject().PromptContext())
	writeJSON(w, http.StatusOK, map[string]any{
		"failure_probability":  result.FailureProbability,
		"marginal_probability": result.MarginalProbability,
		"safe_probability":     result.SafeProbability,
		"mean_sf":              result.MeanSF,
		"p5_sf":                result.P5SF,
		"risk_band":            result.RiskBand,
		"narrative":            result.Narrative,
	})
}

// #endregion twin

// #region sensor

func (s *Server) handleSensorStream(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DesignSBC == 0 {
		req.DesignSBC = sensor.DefaultSimulateConfig().DesignSBC
	}

	var (
		result sensor.StreamResult
		err    error
	)
	if len(req.Readings) > 0 {
		result, err = s.sensor.IngestReadings(req.Readings, req.DesignSBC)
	} else {
		cfg := sensor.DefaultSimulateConfig()
		cfg.DesignSBC = req.DesignSBC
		cfg.Seed = req.Seed
		result, err = s.sensor.SimulateStream(cfg)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	last5 := result.Recent(5)
	values := make([]float64, len(last5))
	for i, reading := range last5 {
		values[i] = reading.SBC
	}
	writeJSON(w, http.StatusOK, sensorResponse{
		DeviationDetected: result.DeviationDetected,
		DeviationPercent:  result.DeviationPercent,
		AlertLevel:        string(result.AlertLevel),
		TriggerRecal:      result.TriggerRecal,
		Last5Readings:     values,
	})
}

// #endregion sensor

// #region recalibrate

func (s *Server) handleRecalibrate(w http.ResponseWriter, r *http.Request) {
	var req recalibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := s.policy.GeneratePatch(r.Context(), recal.PatchRequest{
		DeviationPercent: req.DeviationPercent,
		BudgetCr:         req.BudgetCr,
	})
	writeJSON(w, http.StatusOK, patchResponse{
		DeviationPercent: patch.DeviationPercent,
		Severity:         string(patch.Severity),
		StructuralAction: patch.StructuralAction,
		AddDepthMM:       patch.AddDepthMM,
		AddPiles:         patch.AddPiles,
		NewRiskBand:      patch.NewRiskBand,
		CostDeltaCr:      patch.CostDeltaCr,
		ISCodeReference:  patch.ISCodeReference,
		Rationale:        patch.Rationale,
		SiteInstructions: patch.SiteInstructions,
		Enriched:         patch.Enriched,
		RequiresApproval: patch.RequiresApproval,
	})
}

// #endregion recalibrate

// #region impact

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	var req impactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BudgetCr <= 0 {
		writeError(w, http.StatusBadRequest, "budget_cr must be positive")
		return
	}

	report := impact.Calculate(req.FailureProb, req.BudgetCr)
	writeJSON(w, http.StatusOK, map[string]any{
		"rework_saving_cr": report.ReworkSavingCr,
		"delay_saving_cr":  report.DelaySavingCr,
		"design_saving_cr": report.DesignTimeSavingCr,
		"total_saving_cr":  report.TotalSavingCr,
		"roi_multiplier":   report.ROIMultiplier,
		"payback_months":   report.PaybackMonths,
	})
}

// #endregion impact

// #region pipeline

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.toProject())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]any{
		"run_id":      result.RunID,
		"variants":    result.Variants,
		"recommended": result.Recommended,
		"simulation": map[string]any{
			"failure_probability": result.Simulation.FailureProbability,
			"mean_sf":             result.Simulation.MeanSF,
			"risk_band":           result.Simulation.RiskBand,
		},
		"sensor": sensorResponse{
			DeviationDetected: result.Stream.DeviationDetected,
			DeviationPercent:  result.Stream.DeviationPercent,
			AlertLevel:        string(result.Stream.AlertLevel),
			TriggerRecal:      result.Stream.TriggerRecal,
		},
		"impact": result.Impact,
	}
	if result.Patch != nil {
		resp["patch"] = patchResponse{
			DeviationPercent: result.Patch.DeviationPercent,
			Severity:         string(result.Patch.Severity),
			StructuralAction: result.Patch.StructuralAction,
			AddDepthMM:       result.Patch.AddDepthMM,
			AddPiles:         result.Patch.AddPiles,
			NewRiskBand:      result.Patch.NewRiskBand,
			CostDeltaCr:      result.Patch.CostDeltaCr,
			ISCodeReference:  result.Patch.ISCodeReference,
			Rationale:        result.Patch.Rationale,
			SiteInstructions: result.Patch.SiteInstructions,
			Enriched:         result.Patch.Enriched,
			RequiresApproval: result.Patch.RequiresApproval,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// #endregion pipeline

// #region helpers

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// #endregion helpers
