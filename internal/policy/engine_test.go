package policy

import (
	"testing"
	"time"
)

func testManifest(agent string, expires time.Time) CapabilityManifest {
	return CapabilityManifest{
		ID:      "m1",
		AgentID: agent,
		Grants: []CapabilityGrant{
			{Tool: "fs", Verb: "write", ResourcePattern: "fs://workspace/src/**"},
			{Tool: "fs", Verb: "apply", ResourcePattern: "fs://workspace/**"},
		},
		IssuedAt:  expires.Add(-time.Hour),
		ExpiresAt: expires,
	}
}

func TestEvaluateDeniesPathTraversal(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/../etc/passwd"}, time.Now())
	if d.Kind != Deny {
		t.Fatalf("expected Deny, got %v", d.Kind)
	}
}

func TestEvaluateDeniesPercentEncodedTraversal(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/%2E%2E/etc/passwd"}, time.Now())
	if d.Kind != Deny {
		t.Fatalf("expected Deny for percent-encoded traversal, got %v", d.Kind)
	}
}

func TestEvaluateDeniesMissingManifest(t *testing.T) {
	e := NewEngine()
	d := e.Evaluate(Request{AgentID: "agent-unknown", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/src/main.go"}, time.Now())
	if d.Kind != Deny || d.Reason != "no manifest" {
		t.Fatalf("expected Deny(no manifest), got %v %q", d.Kind, d.Reason)
	}
}

func TestEvaluateDeniesExpiredManifestRegardlessOfGrants(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(-time.Minute)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/src/main.go"}, time.Now())
	if d.Kind != Deny || d.Reason != "expired" {
		t.Fatalf("expected Deny(expired), got %v %q", d.Kind, d.Reason)
	}
}

func TestEvaluateRequiresApprovalForSideEffectVerbsWithGrant(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "apply", TargetURI: "fs://workspace/src/main.go"}, time.Now())
	if d.Kind != RequireApproval {
		t.Fatalf("expected RequireApproval, got %v", d.Kind)
	}
}

func TestEvaluateDeniesSideEffectVerbsWithoutGrant(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "commit", TargetURI: "fs://workspace/docs/x.md"}, time.Now())
	if d.Kind != Deny {
		t.Fatalf("expected Deny for ungranted side-effect verb, got %v", d.Kind)
	}
}

func TestEvaluateAllowsMatchingGrant(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/src/main.go"}, time.Now())
	if d.Kind != Allow {
		t.Fatalf("expected Allow, got %v", d.Kind)
	}
}

func TestEvaluateDeniesNonMatchingPattern(t *testing.T) {
	e := NewEngine()
	e.LoadManifest(testManifest("agent-1", time.Now().Add(time.Hour)))
	d := e.Evaluate(Request{AgentID: "agent-1", Tool: "fs", Verb: "write", TargetURI: "fs://workspace/docs/readme.md"}, time.Now())
	if d.Kind != Deny || d.Reason != "no grant" {
		t.Fatalf("expected Deny(no grant), got %v %q", d.Kind, d.Reason)
	}
}
