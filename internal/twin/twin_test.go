package twin

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSimulate_Reproducible(t *testing.T) {
	e := NewEngine(nil)
	first := e.Simulate(context.Background(), DefaultParams(), "")
	second := e.Simulate(context.Background(), DefaultParams(), "")
	if first != second {
		t.Errorf("seeded runs differ:\n%+v\n%+v", first, second)
	}
}

func TestSimulate_Distribution(t *testing.T) {
	e := NewEngine(nil)
	got := e.Simulate(context.Background(), DefaultParams(), "")

	total := got.FailureProbability + got.MarginalProbability + got.SafeProbability
	if total < 99.99 || total > 100.01 {
		t.Errorf("probabilities sum to %v", total)
	}
	// Mean SBC 180 over mean demand 165: mean SF just above unity.
	if got.MeanSF < 0.9 || got.MeanSF > 1.3 {
		t.Errorf("mean SF = %v, outside plausible range", got.MeanSF)
	}
	if got.P5SF >= got.MeanSF || got.P95SF <= got.MeanSF {
		t.Errorf("percentiles not ordered: p5=%v mean=%v p95=%v", got.P5SF, got.MeanSF, got.P95SF)
	}
	if got.RiskBand == "" {
		t.Error("risk band empty")
	}
	if got.Narrative != "" {
		t.Error("narrative should be empty without project context")
	}
}

func TestSimulate_RiskBands(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name     string
		params   Params
		wantBand string
	}{
		{
			// Demand far above capacity: constant failure.
			name:     "critical",
			params:   Params{MeanSBC: 100, StdSBC: 5, MeanDemand: 200, StdDemand: 5, N: 500, Seed: 1},
			wantBand: "CRITICAL",
		},
		{
			// Capacity far above demand: no failures.
			name:     "low",
			params:   Params{MeanSBC: 400, StdSBC: 5, MeanDemand: 100, StdDemand: 5, N: 500, Seed: 1},
			wantBand: "LOW",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Simulate(context.Background(), tt.params, "")
			if got.RiskBand != tt.wantBand {
				t.Errorf("risk band = %q, want %q (failure %v%%)", got.RiskBand, tt.wantBand, got.FailureProbability)
			}
		})
	}
}

type stubCaller struct {
	text string
	err  error
}

func (s *stubCaller) Call(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	return s.text, s.err
}

func TestSimulate_NarrativeFallback(t *testing.T) {
	e := NewEngine(&stubCaller{err: errors.New("service down")})
	got := e.Simulate(context.Background(), DefaultParams(), "tower on black cotton soil")
	if got.Narrative == "" {
		t.Fatal("expected fallback narrative")
	}
	if !strings.Contains(got.Narrative, got.RiskBand) {
		t.Errorf("fallback narrative should cite the risk band: %q", got.Narrative)
	}
}

func TestSimulate_NarrativeFromModel(t *testing.T) {
	e := NewEngine(&stubCaller{text: "Risk is acceptable."})
	got := e.Simulate(context.Background(), DefaultParams(), "tower")
	if got.Narrative != "Risk is acceptable." {
		t.Errorf("narrative = %q", got.Narrative)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 3},
		{100, 5},
		{25, 2},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
