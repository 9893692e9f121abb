package audit

import "testing"

func TestRecordBuildsVerifiableChain(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	if _, err := log.Record("agent-1", "policy.evaluate", "fs://workspace/src/main.go", nil); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if _, err := log.Record("agent-1", "draft.build", "", map[string]string{"goal": "g1"}); err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if _, err := log.Record("agent-1", "draft.apply", "", nil); err != nil {
		t.Fatalf("record 3: %v", err)
	}

	events, err := log.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if err := VerifyChain(events); err != nil {
		t.Fatalf("expected chain to verify: %v", err)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Record("agent-1", "policy.evaluate", "", nil)
	log.Record("agent-1", "draft.build", "", nil)

	events, err := log.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	events[0].Action = "tampered"
	if err := VerifyChain(events); err == nil {
		t.Fatalf("expected chain verification to fail after tampering")
	}
}

func TestRecordRedactsSensitiveMetadata(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	event, err := log.Record("agent-1", "policy.evaluate", "", map[string]string{
		"api_token": "super-secret",
		"count":     "3",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if event.Metadata["api_token"] != "[redacted]" {
		t.Fatalf("expected api_token to be redacted, got %q", event.Metadata["api_token"])
	}
	if event.Metadata["count"] != "3" {
		t.Fatalf("expected count to survive redaction, got %q", event.Metadata["count"])
	}
}
