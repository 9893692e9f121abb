package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/audit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/config"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/draft"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/policy"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/submit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func setup(t *testing.T) (string, types.GoalRun, *overlay.Overlay, draft.Store, goal.Store, changeset.Store) {
	t.Helper()
	root := t.TempDir()
	sourceDir := filepath.Join(root, "source")
	stagingRoot := filepath.Join(root, ".ta", "staging")
	taDir := filepath.Join(root, ".ta")
	if err := os.MkdirAll(sourceDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "main.go"), []byte("package main\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	g := goal.New("demo", "do it", "agent-1", sourceDir, root, filepath.Join(taDir, "changesets"), "")
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
	g.Snapshot = &ov.Snapshot

	goalStore := goal.NewStore(taDir)
	draftStore := draft.NewStore(taDir)
	changeStore := changeset.NewStore(filepath.Join(taDir, "changesets"))
	return taDir, g, ov, draftStore, goalStore, changeStore
}

func buildDraft(t *testing.T, taDir string, g types.GoalRun, ov *overlay.Overlay, draftStore draft.Store, goalStore goal.Store, changeStore changeset.Store) types.DraftPackage {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	d, err := draft.Build(g, draft.BuildInputs{
		TaDir:         taDir,
		Overlay:       ov,
		Changes:       changes,
		ChangeStore:   changeStore,
		DraftStore:    draftStore,
		GoalStore:     goalStore,
		Settings:      config.Default(),
		CallerSummary: draft.DefaultSummary,
		AgentID:       "agent-1",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return d
}

func TestApplyWritesApprovedArtifactsAndTransitionsGoalAndDraft(t *testing.T) {
	taDir, g, ov, draftStore, goalStore, changeStore := setup(t)
	d := buildDraft(t, taDir, g, ov, draftStore, goalStore, changeStore)

	g, err := goalStore.Load(g.ID)
	if err != nil {
		t.Fatalf("reload goal: %v", err)
	}
	g.Snapshot = &ov.Snapshot
	if err := goalStore.Save(g); err != nil {
		t.Fatal(err)
	}

	d.Status = types.DraftApproved
	if err := draftStore.Save(d); err != nil {
		t.Fatal(err)
	}

	auditLog := audit.NewLog(taDir)
	result, err := Apply(d, ApplyInputs{
		TaDir:        taDir,
		DraftStore:   draftStore,
		GoalStore:    goalStore,
		ChangeStore:  changeStore,
		AuditLog:     auditLog,
		Submit:       submit.None{},
		WorkspaceDir: filepath.Dir(taDir),
		ActorID:      "agent-1",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 1 {
		t.Fatalf("expected 1 applied file, got %d", len(result.Applied))
	}
	if result.Goal.State != types.GoalApplied {
		t.Fatalf("expected goal Applied, got %s", result.Goal.State)
	}
	if result.Draft.Status != types.DraftApplied {
		t.Fatalf("expected draft Applied, got %s", result.Draft.Status)
	}

	content, err := os.ReadFile(filepath.Join(g.SourceDir, "main.go"))
	if err != nil {
		t.Fatalf("read applied file: %v", err)
	}
	if string(content) != "package main\n\nfunc main() {}\n" {
		t.Fatalf("unexpected applied content: %q", content)
	}

	events, err := auditLog.All()
	if err != nil {
		t.Fatalf("audit all: %v", err)
	}
	if len(events) != 1 || events[0].Action != "draft.apply" {
		t.Fatalf("expected a draft.apply audit event, got %v", events)
	}
}

func TestApplyRefusesNonApprovedDraftInStandardMode(t *testing.T) {
	taDir, g, ov, draftStore, goalStore, changeStore := setup(t)
	d := buildDraft(t, taDir, g, ov, draftStore, goalStore, changeStore)

	_, err := Apply(d, ApplyInputs{
		TaDir:        taDir,
		DraftStore:   draftStore,
		GoalStore:    goalStore,
		ChangeStore:  changeStore,
		AuditLog:     audit.NewLog(taDir),
		Submit:       submit.None{},
		WorkspaceDir: filepath.Dir(taDir),
		ActorID:      "agent-1",
	})
	if err == nil {
		t.Fatalf("expected standard apply to refuse a PendingReview draft")
	}
}

func TestSelectiveApplyAssignsDispositionsAndAppliesOnlyApproved(t *testing.T) {
	taDir, g, ov, draftStore, goalStore, changeStore := setup(t)
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ov.StagingDir, "extra.go"), []byte("package main\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	d, err := draft.Build(g, draft.BuildInputs{
		TaDir:         taDir,
		Overlay:       ov,
		Changes:       changes,
		ChangeStore:   changeStore,
		DraftStore:    draftStore,
		GoalStore:     goalStore,
		Settings:      config.Default(),
		CallerSummary: draft.DefaultSummary,
		AgentID:       "agent-1",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	g, err = goalStore.Load(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	g.Snapshot = &ov.Snapshot
	if err := goalStore.Save(g); err != nil {
		t.Fatal(err)
	}

	result, err := Apply(d, ApplyInputs{
		TaDir:        taDir,
		DraftStore:   draftStore,
		GoalStore:    goalStore,
		ChangeStore:  changeStore,
		AuditLog:     audit.NewLog(taDir),
		Submit:       submit.None{},
		WorkspaceDir: filepath.Dir(taDir),
		ActorID:      "agent-1",
		Patterns:     SelectivePatterns{Approve: []string{"fs://workspace/main.go"}},
	})
	if err != nil {
		t.Fatalf("selective apply: %v", err)
	}
	if len(result.Applied) != 1 || result.Applied[0].RelPath != "main.go" {
		t.Fatalf("expected only main.go applied, got %v", result.Applied)
	}
	if _, err := os.Stat(filepath.Join(g.SourceDir, "extra.go")); err == nil {
		t.Fatalf("expected extra.go not to be applied under selective approve")
	}
}

func TestApplyDeniesWhenBoundManifestIsExpired(t *testing.T) {
	taDir, g, ov, draftStore, goalStore, changeStore := setup(t)
	d := buildDraft(t, taDir, g, ov, draftStore, goalStore, changeStore)

	g, err := goalStore.Load(g.ID)
	if err != nil {
		t.Fatalf("reload goal: %v", err)
	}
	g.Snapshot = &ov.Snapshot
	if err := goalStore.Save(g); err != nil {
		t.Fatal(err)
	}

	d.Status = types.DraftApproved
	if err := draftStore.Save(d); err != nil {
		t.Fatal(err)
	}

	expired := policy.CapabilityManifest{
		ID:      "m1",
		AgentID: "agent-1",
		Grants: []policy.CapabilityGrant{
			{Tool: "fs", Verb: "apply", ResourcePattern: "fs://workspace/**"},
		},
		IssuedAt:  time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-1 * time.Hour),
	}

	_, err = Apply(d, ApplyInputs{
		TaDir:        taDir,
		DraftStore:   draftStore,
		GoalStore:    goalStore,
		ChangeStore:  changeStore,
		AuditLog:     audit.NewLog(taDir),
		Submit:       submit.None{},
		WorkspaceDir: filepath.Dir(taDir),
		ActorID:      "agent-1",
		Manifest:     &expired,
	})
	if err == nil {
		t.Fatalf("expected apply to be denied by an expired manifest")
	}

	reloaded, loadErr := goalStore.Load(g.ID)
	if loadErr != nil {
		t.Fatalf("reload goal: %v", loadErr)
	}
	if reloaded.State == types.GoalApplied {
		t.Fatalf("goal should not have transitioned to Applied when policy denied the apply")
	}
}
