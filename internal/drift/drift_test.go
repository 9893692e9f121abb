package drift

import (
	"testing"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func TestEvaluateInsufficientBaselineIsAllNormal(t *testing.T) {
	report := Evaluate(types.BehavioralBaseline{}, RecentActivity{
		AccessedURIs: []string{"fs://workspace/src/main.go"},
	})
	if report.OverallSeverity != Normal {
		t.Fatalf("expected Normal overall severity, got %s", report.OverallSeverity)
	}
	for _, f := range report.Findings {
		if f.Detail != "insufficient_baseline" {
			t.Fatalf("expected insufficient_baseline detail for %s, got %q", f.Signal, f.Detail)
		}
	}
}

func TestEvaluateResourceScopeAlertsOnNovelURIs(t *testing.T) {
	baseline := types.BehavioralBaseline{
		AgentID:         "agent-1",
		SampleGoalCount: 5,
		URIPrefixes:     []string{"fs://workspace/src/"},
		ComputedAt:      time.Now().UTC(),
	}
	recent := RecentActivity{
		AccessedURIs: []string{
			"fs://workspace/secrets/creds.env",
			"fs://workspace/infra/prod.tf",
			"fs://workspace/src/main.go",
		},
		Summaries: []types.DraftSummary{{AgentID: "agent-1", ArtifactCount: 2}},
	}
	report := Evaluate(baseline, recent)
	var found bool
	for _, f := range report.Findings {
		if f.Signal == "ResourceScope" {
			found = true
			if f.Severity != Alert {
				t.Fatalf("expected Alert for ResourceScope with 2/3 novel URIs, got %s", f.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected a ResourceScope finding")
	}
}

func TestEvaluateChangeVolumeAlertsOnSpike(t *testing.T) {
	baseline := types.BehavioralBaseline{
		AgentID:          "agent-1",
		SampleGoalCount:  5,
		AvgArtifactCount: 2,
		ComputedAt:       time.Now().UTC(),
	}
	recent := RecentActivity{
		Summaries: []types.DraftSummary{{AgentID: "agent-1", ArtifactCount: 12}},
	}
	report := Evaluate(baseline, recent)
	for _, f := range report.Findings {
		if f.Signal == "ChangeVolume" && f.Severity != Alert {
			t.Fatalf("expected Alert for 6x artifact volume spike, got %s", f.Severity)
		}
	}
}

func TestRecomputeAveragesSummaries(t *testing.T) {
	baseline := Recompute("agent-1", []string{"fs://workspace/"}, []types.DraftSummary{
		{ArtifactCount: 2, RiskScore: 0.1, Rejected: false},
		{ArtifactCount: 4, RiskScore: 0.3, Rejected: true},
	}, 3, 10)
	if baseline.SampleGoalCount != 2 {
		t.Fatalf("expected sample count 2, got %d", baseline.SampleGoalCount)
	}
	if baseline.AvgArtifactCount != 3 {
		t.Fatalf("expected avg artifact count 3, got %v", baseline.AvgArtifactCount)
	}
	if baseline.RejectionRate != 0.5 {
		t.Fatalf("expected rejection rate 0.5, got %v", baseline.RejectionRate)
	}
	if baseline.EscalationRate != 0.3 {
		t.Fatalf("expected escalation rate 0.3, got %v", baseline.EscalationRate)
	}
}

func TestBaselineStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewBaselineStore(dir)
	b := types.BehavioralBaseline{AgentID: "agent-1", SampleGoalCount: 3, ComputedAt: time.Now().UTC()}
	if err := store.Save(b); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := store.Load("agent-1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.SampleGoalCount != 3 {
		t.Fatalf("expected sample goal count 3, got %d", loaded.SampleGoalCount)
	}
	if _, ok, err := store.Load("no-such-agent"); err != nil || ok {
		t.Fatalf("expected no-such-agent load to report not-found, ok=%v err=%v", ok, err)
	}
}
