package overlay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCreateSnapshotsAndDiffIsEmptyImmediately(t *testing.T) {
	sourceDir := t.TempDir()
	stagingRoot := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "README.md"), "# Original\n")

	ov, err := Create("goal-1", sourceDir, stagingRoot, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := ov.Snapshot.Files["README.md"]; !ok {
		t.Fatalf("expected README.md in snapshot")
	}
	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected empty diff immediately after create, got %+v", changes)
	}
}

func TestDiffAllDetectsModifyAndCreate(t *testing.T) {
	sourceDir := t.TempDir()
	stagingRoot := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "README.md"), "# Original\n")
	writeFile(t, filepath.Join(sourceDir, "src/main.rs"), "fn main(){}\n")

	ov, err := Create("goal-1", sourceDir, stagingRoot, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	writeFile(t, filepath.Join(ov.StagingDir, "README.md"), "# Updated\n")
	writeFile(t, filepath.Join(ov.StagingDir, "NEW.md"), "new\n")

	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}
	byPath := map[string]Change{}
	for _, c := range changes {
		byPath[c.RelPath] = c
	}
	if byPath["README.md"].Kind != types.ChangeModify {
		t.Fatalf("expected README.md Modify, got %v", byPath["README.md"].Kind)
	}
	if byPath["NEW.md"].Kind != types.ChangeAdd {
		t.Fatalf("expected NEW.md Add, got %v", byPath["NEW.md"].Kind)
	}
}

// TestPhantomConflictAutoResolves covers spec §8 scenario 4: a.txt is
// modified by the agent, b.txt is untouched by the agent but drifts in
// source. Apply should auto-resolve b.txt and fail only on a.txt.
func TestPhantomConflictAutoResolves(t *testing.T) {
	sourceDir := t.TempDir()
	stagingRoot := t.TempDir()
	targetDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "a.txt"), "A0")
	writeFile(t, filepath.Join(sourceDir, "b.txt"), "B0")

	ov, err := Create("goal-1", sourceDir, stagingRoot, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	writeFile(t, filepath.Join(ov.StagingDir, "a.txt"), "A1")

	// target starts as a copy of original source, then drifts externally.
	writeFile(t, filepath.Join(targetDir, "a.txt"), "A2")
	writeFile(t, filepath.Join(targetDir, "b.txt"), "B2")
	// Date the drift past the snapshot's mtime second so the mtime fast
	// path does not skip it.
	drifted := time.Now().Add(time.Hour)
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.Chtimes(filepath.Join(targetDir, name), drifted, drifted); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	uris := map[string]bool{}
	for _, c := range changes {
		uris[c.URI] = true
	}
	// b.txt is in the draft's artifact set too, so its conflict overlaps
	// and goes through the phantom check instead of being informational.
	uris[workspace.ToURI("b.txt")] = true

	_, err = ov.ApplyWithConflictCheck(changes, ApplyOptions{
		TargetDir:    targetDir,
		Resolution:   Abort,
		ArtifactURIs: uris,
	})
	if err == nil {
		t.Fatalf("expected apply to fail on true conflict for a.txt")
	}
	if want := workspace.ToURI("a.txt"); !strings.Contains(err.Error(), "a.txt") {
		t.Fatalf("expected error to mention %s, got %v", want, err)
	}
	if strings.Contains(err.Error(), "b.txt") {
		t.Fatalf("did not expect phantom-resolved b.txt in conflict error, got %v", err)
	}
}

func TestApplyWritesApprovedFiles(t *testing.T) {
	sourceDir := t.TempDir()
	stagingRoot := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "README.md"), "# Original\n")

	ov, err := Create("goal-1", sourceDir, stagingRoot, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	writeFile(t, filepath.Join(ov.StagingDir, "README.md"), "# Updated\n")
	writeFile(t, filepath.Join(ov.StagingDir, "NEW.md"), "new\n")

	changes, err := ov.DiffAll()
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	uris := map[string]bool{}
	for _, c := range changes {
		uris[c.URI] = true
	}
	result, err := ov.ApplyWithConflictCheck(changes, ApplyOptions{TargetDir: sourceDir, Resolution: Abort, ArtifactURIs: uris})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied files, got %d", len(result.Applied))
	}
	data, err := os.ReadFile(filepath.Join(sourceDir, "README.md"))
	if err != nil {
		t.Fatalf("read applied file: %v", err)
	}
	if string(data) != "# Updated\n" {
		t.Fatalf("unexpected applied content: %q", data)
	}
}
