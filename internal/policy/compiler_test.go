package policy

import (
	"testing"
	"time"
)

func TestCompileRejectsActionBothBoundedAndForbidden(t *testing.T) {
	profile := AlignmentProfile{
		Principal: "agent-1",
		Envelope: AutonomyEnvelope{
			BoundedActions:   []string{"fs_write"},
			ForbiddenActions: []string{"fs_write"},
		},
	}
	_, err := Compile(profile, "agent-1", time.Now(), time.Hour)
	if err == nil {
		t.Fatalf("expected compile error for overlapping bounded/forbidden action")
	}
}

func TestCompileParsesToolVerbBoundedAction(t *testing.T) {
	profile := AlignmentProfile{
		Envelope: AutonomyEnvelope{BoundedActions: []string{"fs_write:fs://workspace/src/**"}},
	}
	m, err := Compile(profile, "agent-1", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(m.Grants))
	}
	g := m.Grants[0]
	if g.Tool != "fs" || g.Verb != "write" || g.ResourcePattern != "fs://workspace/src/**" {
		t.Fatalf("unexpected grant: %+v", g)
	}
}

func TestCompileParsesExecBoundedAction(t *testing.T) {
	profile := AlignmentProfile{
		Envelope: AutonomyEnvelope{BoundedActions: []string{"exec: cargo test"}},
	}
	m, err := Compile(profile, "agent-1", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Grants[0].Tool != "exec" || m.Grants[0].ResourcePattern != "cargo test" {
		t.Fatalf("unexpected grant: %+v", m.Grants[0])
	}
}

func TestCompileRejectsMalformedBoundedAction(t *testing.T) {
	profile := AlignmentProfile{Envelope: AutonomyEnvelope{BoundedActions: []string{"nodash"}}}
	if _, err := Compile(profile, "agent-1", time.Now(), time.Hour); err == nil {
		t.Fatalf("expected error for malformed bounded action")
	}
}
