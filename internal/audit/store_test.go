package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGetRun(t *testing.T) {
	s := tempStore(t)

	id, err := s.RecordRun(RunRecord{
		ProjectID:         "LNT-HYD-2026-001",
		Source:            SourceSimulated,
		DesignSBC:         180,
		ReadingCount:      20,
		DeviationDetected: true,
		DeviationPercent:  16.89,
		AlertLevel:        "WARNING",
		TriggerRecal:      true,
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated run ID")
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ProjectID != "LNT-HYD-2026-001" || got.DeviationPercent != 16.89 {
		t.Errorf("got %+v", got)
	}
	if !got.TriggerRecal || !got.DeviationDetected {
		t.Errorf("flags lost in round trip: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not filled in")
	}
}

func TestRecordAndGetPatch(t *testing.T) {
	s := tempStore(t)

	id, err := s.RecordRun(RunRecord{Source: SourceIngested, DesignSBC: 180, ReadingCount: 5})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	err = s.RecordPatch(PatchRecord{
		RunID:            id,
		Severity:         "MODERATE",
		StructuralAction: "Increase founding depth by 350mm.",
		AddDepthMM:       350,
		AddPiles:         2,
		NewRiskBand:      "MODERATE",
		CostDeltaCr:      1.13,
		RequiresApproval: true,
	})
	if err != nil {
		t.Fatalf("RecordPatch: %v", err)
	}

	got, ok, err := s.GetPatch(id)
	if err != nil {
		t.Fatalf("GetPatch: %v", err)
	}
	if !ok {
		t.Fatal("expected a patch")
	}
	if got.AddDepthMM != 350 || got.AddPiles != 2 || !got.RequiresApproval {
		t.Errorf("got %+v", got)
	}
}

func TestGetPatch_NoneRecorded(t *testing.T) {
	s := tempStore(t)
	id, err := s.RecordRun(RunRecord{Source: SourceSimulated, DesignSBC: 180, ReadingCount: 20})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	_, ok, err := s.GetPatch(id)
	if err != nil {
		t.Fatalf("GetPatch: %v", err)
	}
	if ok {
		t.Error("expected no patch for a quiet run")
	}
}

func TestListRuns(t *testing.T) {
	s := tempStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.RecordRun(RunRecord{
			Source:       SourceSimulated,
			DesignSBC:    180,
			ReadingCount: 20,
			AlertLevel:   "NONE",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].CreatedAt.After(runs[1].CreatedAt) {
		t.Error("runs not ordered newest first")
	}
}
