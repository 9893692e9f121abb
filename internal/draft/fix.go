package draft

import (
	"fmt"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// FixScope selects which artifacts a Fix follow-up targets: either an
// explicit URI, or every artifact in the given dispositions (defaulting to
// Discuss and amended artifacts per spec §4.9).
type FixScope struct {
	URI          string
	Dispositions []types.Disposition
	OnlyAmended  bool
}

// DefaultFixDispositions is the implicit scope when neither a URI nor
// explicit dispositions are given (spec §4.9: "Discuss or Amended by
// default").
var DefaultFixDispositions = []types.Disposition{types.DispositionDiscuss}

// ScopedURIs resolves scope against a draft's artifacts.
func (s FixScope) ScopedURIs(d types.DraftPackage) []string {
	if s.URI != "" {
		return []string{s.URI}
	}
	dispositions := s.Dispositions
	includeAmended := s.OnlyAmended
	if len(dispositions) == 0 {
		dispositions = DefaultFixDispositions
		includeAmended = true
	}
	want := make(map[types.Disposition]bool, len(dispositions))
	for _, disp := range dispositions {
		want[disp] = true
	}
	var uris []string
	for _, a := range d.Changes.Artifacts {
		if want[a.Disposition] || (includeAmended && a.Amendment != nil) {
			uris = append(uris, a.URI)
		}
	}
	return uris
}

// Fix creates a scoped follow-up GoalRun restricted to the artifacts
// resolved by scope, reusing the goal-start mechanism with a parent-goal
// link and an injected objective carrying the operator's guidance
// (spec §4.9).
func Fix(d types.DraftPackage, parent types.GoalRun, scope FixScope, guidance, agentID string) (types.GoalRun, error) {
	uris := scope.ScopedURIs(d)
	if len(uris) == 0 {
		return types.GoalRun{}, opfail.New(opfail.ValidationError, "draft:fix", d.ID,
			"pick a URI or a disposition that actually has matching artifacts",
			fmt.Errorf("fix scope matched no artifacts in draft %s", d.ID))
	}

	objective := fmt.Sprintf("Follow-up on draft %s, scoped to:\n%s\n\nGuidance:\n%s",
		d.ID, strings.Join(uris, "\n"), guidance)

	g := goal.New(
		fmt.Sprintf("Fix: %s", parent.Title),
		objective,
		agentID,
		parent.SourceDir,
		parent.WorkspaceDir,
		parent.ChangeStoreDir,
		parent.ID,
	)
	return g, nil
}
