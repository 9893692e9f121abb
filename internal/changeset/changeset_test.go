package changeset

import "testing"

func TestNewChangeSetVerifiesHash(t *testing.T) {
	cs, err := New("cs-1", "goal-1", "fs://workspace/README.md", DiffContent{Kind: DiffCreateFile, Content: "hi\n"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err := VerifyHash(cs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected hash to verify")
	}
}

func TestVerifyHashDetectsTampering(t *testing.T) {
	cs, err := New("cs-1", "goal-1", "fs://workspace/README.md", DiffContent{Kind: DiffCreateFile, Content: "hi\n"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs.Diff.Content = "tampered\n"
	ok, err := VerifyHash(cs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected tampered changeset to fail verification")
	}
}

func TestStoreSaveGetList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	cs1, _ := New("cs-1", "goal-1", "fs://workspace/a.txt", DiffContent{Kind: DiffCreateFile, Content: "a"}, "")
	cs2, _ := New("cs-2", "goal-1", "fs://workspace/b.txt", DiffContent{Kind: DiffCreateFile, Content: "b"}, "")
	if err := store.Save(cs1); err != nil {
		t.Fatalf("save cs1: %v", err)
	}
	if err := store.Save(cs2); err != nil {
		t.Fatalf("save cs2: %v", err)
	}
	got, err := store.Get("goal-1", "cs-1")
	if err != nil {
		t.Fatalf("get cs1: %v", err)
	}
	if got.TargetURI != "fs://workspace/a.txt" {
		t.Fatalf("unexpected target uri: %s", got.TargetURI)
	}
	list, err := store.List("goal-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 changesets, got %d", len(list))
	}
}
