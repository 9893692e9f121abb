package constitution

import "testing"

func TestValidateReportsDeclaredUndeclaredAndUnused(t *testing.T) {
	c := Constitution{
		GoalID: "g1",
		Entries: []Entry{
			{Pattern: "src/**", Intent: "feature work"},
			{Pattern: "docs/**", Intent: "unused"},
		},
		Enforcement: EnforcementWarning,
	}
	v := Validate(c, []string{"fs://workspace/src/main.go", "fs://workspace/.github/workflows/ci.yml"})
	if len(v.Declared) != 1 || v.Declared[0] != "fs://workspace/src/main.go" {
		t.Fatalf("unexpected declared: %+v", v.Declared)
	}
	if len(v.Undeclared) != 1 || v.Undeclared[0] != "fs://workspace/.github/workflows/ci.yml" {
		t.Fatalf("unexpected undeclared: %+v", v.Undeclared)
	}
	if len(v.Unused) != 1 || v.Unused[0] != "docs/**" {
		t.Fatalf("unexpected unused: %+v", v.Unused)
	}
}
