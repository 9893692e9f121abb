package draft

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/config"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func setupRunningGoalAndOverlay(t *testing.T) (string, types.GoalRun, *overlay.Overlay) {
	t.Helper()
	root := t.TempDir()
	sourceDir := filepath.Join(root, "source")
	stagingRoot := filepath.Join(root, "staging")
	taDir := filepath.Join(root, ".ta")
	if err := os.MkdirAll(sourceDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "main.go"), []byte("package main\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	g := goal.New("demo goal", "do the thing", "agent-1", sourceDir, root, filepath.Join(taDir, "changesets"), "")
	if err := goal.Transition(&g, types.GoalConfigured, ""); err != nil {
		t.Fatal(err)
	}
	if err := goal.Transition(&g, types.GoalRunning, ""); err != nil {
		t.Fatal(err)
	}

	ov, err := overlay.Create(g.ID, sourceDir, stagingRoot, nil)
	if err != nil {
		t.Fatalf("overlay create: %v", err)
	}
	return taDir, g, ov
}

func buildInputs(taDir string, ov *overlay.Overlay, changes []overlay.Change) BuildInputs {
	return BuildInputs{
		TaDir:         taDir,
		Overlay:       ov,
		Changes:       changes,
		ChangeStore:   changeset.NewStore(filepath.Join(taDir, "changesets")),
		DraftStore:    NewStore(taDir),
		GoalStore:     goal.NewStore(taDir),
		Settings:      config.Default(),
		CallerSummary: DefaultSummary,
		AgentID:       "agent-1",
	}
}

func TestBuildRefusesEmptyDiff(t *testing.T) {
	taDir, g, ov := setupRunningGoalAndOverlay(t)
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected an untouched overlay to diff empty, got %d changes", len(changes))
	}
	if _, err := Build(g, buildInputs(taDir, ov, changes)); err == nil {
		t.Fatalf("expected empty-diff build to be refused")
	}
}

func TestBuildProducesPendingReviewDraftAndTransitionsGoal(t *testing.T) {
	taDir, g, ov := setupRunningGoalAndOverlay(t)
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "new.go"), []byte("package main\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	in := buildInputs(taDir, ov, changes)
	d, err := Build(g, in)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.Status != types.DraftPendingReview {
		t.Fatalf("expected PendingReview status, got %s", d.Status)
	}
	if len(d.Changes.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(d.Changes.Artifacts))
	}

	updated, err := in.GoalStore.Load(g.ID)
	if err != nil {
		t.Fatalf("load goal: %v", err)
	}
	if updated.State != types.GoalPrReady {
		t.Fatalf("expected goal in PrReady, got %s", updated.State)
	}
	if updated.DraftID != d.ID {
		t.Fatalf("expected goal.draft_id to be set to the new draft")
	}

	for _, cs := range mustList(t, changeset.NewStore(filepath.Join(taDir, "changesets")), g.ID) {
		ok, err := changeset.VerifyHash(cs)
		if err != nil || !ok {
			t.Fatalf("expected persisted changeset %s to verify, ok=%v err=%v", cs.ID, ok, err)
		}
	}
}

func mustList(t *testing.T, store changeset.Store, goalID string) []changeset.ChangeSet {
	t.Helper()
	out, err := store.List(goalID)
	if err != nil {
		t.Fatalf("list changesets: %v", err)
	}
	return out
}

func TestBuildFlagsMissingSummaryUnderErrorEnforcement(t *testing.T) {
	taDir, g, ov := setupRunningGoalAndOverlay(t)
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "main.go"), []byte("package main\n\n// changed\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	in := buildInputs(taDir, ov, changes)
	in.Settings.Build.SummaryEnforcement = config.SummaryError
	_, err = Build(g, in)
	if err == nil {
		t.Fatalf("expected summary enforcement error for an unexplained artifact")
	}
	if !strings.Contains(err.Error(), "missing descriptions") {
		t.Fatalf("expected error to mention %q, got %q", "missing descriptions", err.Error())
	}
}

func TestBuildExemptsLockfilesFromSummaryEnforcement(t *testing.T) {
	taDir, g, ov := setupRunningGoalAndOverlay(t)
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "package.json"), []byte(`{"name":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	in := buildInputs(taDir, ov, changes)
	in.Settings.Build.SummaryEnforcement = config.SummaryError
	if _, err := Build(g, in); err != nil {
		t.Fatalf("expected package.json to be exempt from summary enforcement: %v", err)
	}
}

func TestDropRemovesArtifactAndLogsDecision(t *testing.T) {
	d := types.DraftPackage{
		ID:     "draft-1",
		Status: types.DraftPendingReview,
		Changes: types.Changes{Artifacts: []types.Artifact{
			{URI: "fs://workspace/a.go", Disposition: types.DispositionPending},
			{URI: "fs://workspace/b.go", Disposition: types.DispositionPending},
		}},
	}
	if err := Drop(&d, "fs://workspace/a.go"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(d.Changes.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact remaining, got %d", len(d.Changes.Artifacts))
	}
	if d.Changes.Artifacts[0].URI != "fs://workspace/b.go" {
		t.Fatalf("expected b.go to remain, got %s", d.Changes.Artifacts[0].URI)
	}
	if len(d.Plan.DecisionLog) != 1 {
		t.Fatalf("expected a decision log entry, got %v", d.Plan.DecisionLog)
	}
}

func TestFileReplacesArtifactAndResetsDisposition(t *testing.T) {
	taDir, g, ov := setupRunningGoalAndOverlay(t)
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	in := buildInputs(taDir, ov, changes)
	d, err := Build(g, in)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	d.Changes.Artifacts[0].Disposition = types.DispositionRejected

	correctedPath := filepath.Join(t.TempDir(), "corrected.go")
	if err := os.WriteFile(correctedPath, []byte("package main\n\nfunc main() { println(\"fixed\") }\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err = File(&d, d.Changes.Artifacts[0].URI, FileInputs{
		ChangeStore:   in.ChangeStore,
		GoalID:        g.ID,
		Overlay:       ov,
		CorrectedPath: correctedPath,
		AmendedBy:     "reviewer-1",
		Reason:        "fix compile error",
	})
	if err != nil {
		t.Fatalf("file amend: %v", err)
	}
	if d.Changes.Artifacts[0].Disposition != types.DispositionPending {
		t.Fatalf("expected disposition reset to Pending, got %s", d.Changes.Artifacts[0].Disposition)
	}
	if d.Changes.Artifacts[0].Amendment == nil || d.Changes.Artifacts[0].Amendment.AmendedBy != "reviewer-1" {
		t.Fatalf("expected an amendment record attributing reviewer-1")
	}
}

func TestFixCreatesScopedFollowUpGoal(t *testing.T) {
	_, g, _ := setupRunningGoalAndOverlay(t)
	d := types.DraftPackage{
		ID: "draft-1",
		Changes: types.Changes{Artifacts: []types.Artifact{
			{URI: "fs://workspace/a.go", Disposition: types.DispositionDiscuss},
			{URI: "fs://workspace/b.go", Disposition: types.DispositionApproved},
		}},
	}
	follow, err := Fix(d, g, FixScope{}, "please reconsider a.go", "agent-1")
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if follow.ParentGoalID != g.ID {
		t.Fatalf("expected follow-up goal to link to parent")
	}
	if follow.State != types.GoalCreated {
		t.Fatalf("expected follow-up goal to start Created, got %s", follow.State)
	}
}

func TestFixRefusesEmptyScope(t *testing.T) {
	_, g, _ := setupRunningGoalAndOverlay(t)
	d := types.DraftPackage{ID: "draft-1"}
	if _, err := Fix(d, g, FixScope{}, "guidance", "agent-1"); err == nil {
		t.Fatalf("expected fix against a draft with no matching artifacts to fail")
	}
}
