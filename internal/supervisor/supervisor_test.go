package supervisor

import (
	"testing"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func artifact(uri string, disposition types.Disposition, deps ...types.ChangeDependency) types.Artifact {
	return types.Artifact{URI: uri, Disposition: disposition, Dependencies: deps}
}

func TestValidateDetectsSelfDependency(t *testing.T) {
	artifacts := []types.Artifact{
		artifact("a", types.DispositionPending, types.ChangeDependency{TargetURI: "a", Kind: types.DependsOn}),
	}
	result := Validate(artifacts)
	if result.Valid {
		t.Fatalf("expected invalid result for self dependency")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", result.Errors)
	}
}

func TestValidateDetectsCycle(t *testing.T) {
	artifacts := []types.Artifact{
		artifact("a", types.DispositionPending, types.ChangeDependency{TargetURI: "b", Kind: types.DependsOn}),
		artifact("b", types.DispositionPending, types.ChangeDependency{TargetURI: "a", Kind: types.DependsOn}),
	}
	result := Validate(artifacts)
	if result.Valid {
		t.Fatalf("expected invalid result for cycle")
	}
}

func TestValidateDAGIsValid(t *testing.T) {
	artifacts := []types.Artifact{
		artifact("a", types.DispositionApproved, types.ChangeDependency{TargetURI: "b", Kind: types.DependsOn}),
		artifact("b", types.DispositionApproved),
	}
	result := Validate(artifacts)
	if !result.Valid {
		t.Fatalf("expected valid DAG, got errors %+v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", result.Warnings)
	}
}

func TestValidateCoupledRejectionWarning(t *testing.T) {
	artifacts := []types.Artifact{
		artifact("main.rs", types.DispositionApproved, types.ChangeDependency{TargetURI: "lib.rs", Kind: types.DependsOn}),
		artifact("lib.rs", types.DispositionRejected),
	}
	result := Validate(artifacts)
	if len(result.Warnings) == 0 {
		t.Fatalf("expected coupled-rejection warning")
	}
}

func TestValidateBrokenDependencyWarning(t *testing.T) {
	artifacts := []types.Artifact{
		artifact("a", types.DispositionApproved, types.ChangeDependency{TargetURI: "b", Kind: types.DependsOn}),
		artifact("b", types.DispositionRejected),
	}
	result := Validate(artifacts)
	found := false
	for _, w := range result.Warnings {
		if w == (BrokenDependency{Artifact: "a", DependsOnRejected: []string{"b"}}).String() {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected broken-dependency warning, got %+v", result.Warnings)
	}
}
