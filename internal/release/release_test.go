package release

import (
	"testing"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/reviewchannel"
)

func TestRunSubstitutesVarsAndRecordsConfirmedSteps(t *testing.T) {
	p := Pipeline{Steps: []Step{
		{Name: "tag", Description: "Tag the release as ${TAG}"},
		{Name: "publish", Description: "Publish ${TAG} for ${VERSION}"},
	}}
	vars := Vars{Version: "1.2.0", Tag: "v1.2.0", Commits: "fix: bug", LastTag: "v1.1.0"}
	channel := &reviewchannel.AutoApprove{}

	results, err := Run(p, vars, channel, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(results))
	}
	if results[0].Rendered != "Tag the release as v1.2.0" {
		t.Fatalf("expected substitution, got %q", results[0].Rendered)
	}
	if !results[0].Confirmed {
		t.Fatalf("expected step to be confirmed under AutoApprove")
	}
}

func TestRunHaltsOnCancelledConfirmation(t *testing.T) {
	p := Pipeline{Steps: []Step{{Name: "tag", Description: "tag it"}}}
	channel := &rejectingChannel{}

	results, err := Run(p, Vars{}, channel, RunOptions{})
	if err == nil {
		t.Fatalf("expected halt on rejected confirmation")
	}
	if len(results) != 0 {
		t.Fatalf("expected no confirmed steps, got %d", len(results))
	}
}

func TestRunFromStepSkipsEarlierSteps(t *testing.T) {
	p := Pipeline{Steps: []Step{
		{Name: "one", Description: "first"},
		{Name: "two", Description: "second"},
		{Name: "three", Description: "third"},
	}}
	channel := &reviewchannel.AutoApprove{}
	results, err := Run(p, Vars{}, channel, RunOptions{FromStep: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 remaining steps, got %d", len(results))
	}
	if results[0].Step.Name != "two" {
		t.Fatalf("expected to resume at step two, got %s", results[0].Step.Name)
	}
}

func TestRunDryRunRequestsNoConfirmation(t *testing.T) {
	p := Pipeline{Steps: []Step{{Name: "tag", Description: "tag it"}}}
	channel := &rejectingChannel{}
	results, err := Run(p, Vars{}, channel, RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run should never fail on confirmation: %v", err)
	}
	if len(results) != 1 || !results[0].DryRun {
		t.Fatalf("expected one dry-run step result")
	}
}

// rejectingChannel always declines confirmation, used to test halt behavior.
type rejectingChannel struct{}

func (rejectingChannel) RequestInteraction(reviewchannel.Interaction) (reviewchannel.Response, error) {
	return reviewchannel.Response{Confirmed: false}, nil
}

func (rejectingChannel) Notify(string) {}
