package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrMan003/Nexus/internal/config"
	"github.com/MrMan003/Nexus/internal/design"
	"github.com/MrMan003/Nexus/internal/pipeline"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

func newTestServer() *Server {
	sensorEngine := sensor.NewEngine(config.DefaultAlertThresholds())
	policy := recal.NewPolicy(config.DefaultSeverityThresholds(), nil)
	gen := design.NewGenerator(nil)
	twinEngine := twin.NewEngine(nil)
	pipe := pipeline.New(gen, twinEngine, sensorEngine, policy, nil)
	seed := int64(7)
	pipe.StreamConfig.Seed = &seed
	return NewServer(sensorEngine, policy, gen, twinEngine, pipe)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var payload map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode %s %s response: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w, payload
}

func TestHealth(t *testing.T) {
	h := newTestServer().Router(nil)
	w, payload := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if payload["status"] != "NEXUS operational" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSensorStream_RawReadings(t *testing.T) {
	h := newTestServer().Router(nil)
	w, payload := doJSON(t, h, http.MethodPost, "/sensor/stream",
		`{"design_sbc": 180, "readings": [180, 150, 148, 151, 149]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, payload)
	}
	if payload["deviation_percent"] != 13.56 {
		t.Errorf("deviation = %v", payload["deviation_percent"])
	}
	if payload["alert_level"] != "WARNING" {
		t.Errorf("alert = %v", payload["alert_level"])
	}
	if payload["trigger_recal"] != true {
		t.Errorf("trigger = %v", payload["trigger_recal"])
	}
	if last5, ok := payload["last_5_readings"].([]any); !ok || len(last5) != 5 {
		t.Errorf("last_5_readings = %v", payload["last_5_readings"])
	}
}

func TestSensorStream_Simulated(t *testing.T) {
	h := newTestServer().Router(nil)
	w, payload := doJSON(t, h, http.MethodPost, "/sensor/stream", `{"seed": 7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, payload)
	}
	if payload["deviation_detected"] != true {
		t.Errorf("payload = %v", payload)
	}

	// Same seed, same result.
	_, again := doJSON(t, h, http.MethodPost, "/sensor/stream", `{"seed": 7}`)
	if payload["deviation_percent"] != again["deviation_percent"] {
		t.Errorf("seeded responses differ: %v vs %v", payload["deviation_percent"], again["deviation_percent"])
	}
}

func TestSensorStream_InvalidBaseline(t *testing.T) {
	h := newTestServer().Router(nil)
	w, _ := doJSON(t, h, http.MethodPost, "/sensor/stream", `{"design_sbc": -10, "readings": [1, 2, 3]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRecalibrate(t *testing.T) {
	h := newTestServer().Router(nil)
	w, payload := doJSON(t, h, http.MethodPost, "/recalibrate",
		`{"deviation_percent": 16.89, "budget_cr": 12.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, payload)
	}
	if payload["severity"] != "MODERATE" {
		t.Errorf("severity = %v", payload["severity"])
	}
	if payload["add_depth_mm"] != float64(350) || payload["add_piles"] != float64(2) {
		t.Errorf("figures = %v / %v", payload["add_depth_mm"], payload["add_piles"])
	}
	// 12.5 × 0.09 = 1.13 rounded
	if payload["cost_delta_cr"] != 1.13 {
		t.Errorf("cost delta = %v", payload["cost_delta_cr"])
	}
	if payload["rationale"] == "" || payload["site_instructions"] == "" {
		t.Error("fallback text missing")
	}
	if payload["enriched"] != false {
		t.Errorf("enriched = %v", payload["enriched"])
	}
}

func TestDesignVariants(t *testing.T) {
	h := newTestServer().Router(nil)
	body := `{"project_id":"T-1","structure":"Tower","soil_type":"Black Cotton Soil",
		"seismic_zone":"III","load_kN":2500,"budget_cr":12.5,"season":"Monsoon"}`
	w, payload := doJSON(t, h, http.MethodPost, "/design/variants", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, payload)
	}
	variants, ok := payload["variants"].([]any)
	if !ok || len(variants) != 3 {
		t.Errorf("variants = %v", payload["variants"])
	}
	if payload["recommendation"] == "" {
		t.Error("recommendation missing")
	}
}

func TestDesignVariants_InvalidProject(t *testing.T) {
	h := newTestServer().Router(nil)
	w, _ := doJSON(t, h, http.MethodPost, "/design/variants",
		`{"project_id":"T-1","seismic_zone":"IX","load_kN":0,"budget_cr":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestImpact(t *testing.T) {
	h := newTestServer().Router(nil)
	w, payload := doJSON(t, h, http.MethodPost, "/impact", `{"failure_prob": 0, "budget_cr": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if payload["total_saving_cr"] != 1.82 {
		t.Errorf("total = %v", payload["total_saving_cr"])
	}
}

func TestImpact_NonPositiveBudget(t *testing.T) {
	h := newTestServer().Router(nil)
	w, _ := doJSON(t, h, http.MethodPost, "/impact", `{"failure_prob": 5, "budget_cr": 0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPipelineRun(t *testing.T) {
	h := newTestServer().Router(nil)
	body := `{"project_id":"T-1","structure":"Tower","soil_type":"Black Cotton Soil",
		"seismic_zone":"III","load_kN":2500,"budget_cr":12.5,"season":"Monsoon"}`
	w, payload := doJSON(t, h, http.MethodPost, "/pipeline/run", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, payload)
	}
	if _, ok := payload["sensor"]; !ok {
		t.Error("sensor section missing")
	}
	if _, ok := payload["impact"]; !ok {
		t.Error("impact section missing")
	}
}
