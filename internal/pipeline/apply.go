// Package pipeline orchestrates the Draft Package apply step across the
// policy, overlay, draft, supervisor, audit, goal, and submit packages
// (spec §4.8), the way the teacher's
// multi-stage apply-with-rollback control flow ties its own subsystems
// together (paas_deploy_apply.go).
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/audit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/draft"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/globmatch"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/policy"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/submit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/supervisor"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// SelectivePatterns is the caller's disposition-assignment request (spec
// §4.8 step 2): pattern lists plus the special tokens "all"/"rest".
type SelectivePatterns struct {
	Approve []string
	Reject  []string
	Discuss []string
}

// Selective reports whether any pattern was actually supplied; an empty
// SelectivePatterns means standard (all-or-nothing) apply.
func (p SelectivePatterns) Selective() bool {
	return len(p.Approve) > 0 || len(p.Reject) > 0 || len(p.Discuss) > 0
}

// ApplyInputs bundles every dependency the apply pipeline needs.
type ApplyInputs struct {
	TaDir        string
	DraftStore   draft.Store
	GoalStore    goal.Store
	ChangeStore  changeset.Store
	AuditLog     audit.Log
	Submit       submit.Adapter
	TargetDir    string // explicit override; falls back to goal.SourceDir, then workspace root
	Resolution   overlay.ResolutionStrategy
	Patterns     SelectivePatterns
	ActorID      string
	WorkspaceDir string
	// Manifest, if set, gates every artifact URI through the Policy
	// Engine for the "apply" verb before any file is written (spec §4.1
	// step 4, §4.8: the capability manifest authorizes the real-tree
	// write, independent of the human approval already recorded on the
	// draft's status). Nil means the goal was never bound to a manifest
	// (e.g. it predates `goal start --profile`) and apply proceeds on
	// draft-status authorization alone.
	Manifest *policy.CapabilityManifest
}

// ApplyResult summarizes a successful apply.
type ApplyResult struct {
	Draft        types.DraftPackage
	Goal         types.GoalRun
	Applied      []overlay.AppliedFile
	SubmitResult submit.Result
	ClosedParent *types.GoalRun
}

// Apply runs the full §4.8 algorithm against an already-loaded draft.
func Apply(d types.DraftPackage, in ApplyInputs) (ApplyResult, error) {
	if err := requireApplyStatus(d, in.Patterns.Selective()); err != nil {
		return ApplyResult{}, err
	}

	if in.Patterns.Selective() {
		assignDispositions(&d, in.Patterns)
		result := supervisor.Validate(d.Changes.Artifacts)
		if len(result.Errors) > 0 || len(result.Warnings) > 0 {
			return ApplyResult{}, opfail.Newf(opfail.ValidationError, "pipeline:apply", d.ID,
				"resolve the reported dependency errors/warnings before retrying selective apply",
				"dependency conflict blocked selective apply: errors=%v warnings=%v", result.Errors, result.Warnings)
		}
	}

	if err := gateApplyByPolicy(d, in); err != nil {
		return ApplyResult{}, err
	}

	g, err := in.GoalStore.Load(d.GoalID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load goal %s: %w", d.GoalID, err)
	}

	targetDir := in.TargetDir
	if targetDir == "" {
		targetDir = g.SourceDir
	}
	if targetDir == "" {
		targetDir = in.WorkspaceDir
	}

	var applied []overlay.AppliedFile
	if g.Snapshot != nil {
		excludes, err := overlay.LoadExcludeSet(g.SourceDir, g.ExcludePatterns)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("load exclude rules: %w", err)
		}
		ov := &overlay.Overlay{
			GoalID:     g.ID,
			SourceDir:  g.SourceDir,
			StagingDir: filepath.Join(in.WorkspaceDir, ".ta", "staging", g.ID),
			Excludes:   excludes,
			Snapshot:   *g.Snapshot,
		}
		artifactURIs := applyURISet(d, in.Patterns.Selective())
		applyResult, err := ov.ApplyWithConflictCheck(diffChangesFromArtifacts(d), overlay.ApplyOptions{
			TargetDir:    targetDir,
			Resolution:   in.Resolution,
			ArtifactURIs: artifactURIs,
		})
		if err != nil {
			return ApplyResult{}, err
		}
		applied = applyResult.Applied
	}

	submitResult := in.Submit.Commit(targetDir, fmt.Sprintf("apply draft %s", d.ID))

	// A goal whose draft was applied without `draft approve` (e.g. a
	// selective apply of a PendingReview draft) is still PrReady; walk it
	// through UnderReview and Approved so the Applied edge is legal.
	for _, step := range []types.GoalRunState{types.GoalUnderReview, types.GoalApproved} {
		if goal.CanTransition(g.State, step) {
			_ = goal.Transition(&g, step, "")
		}
	}

	now := time.Now().UTC()
	if err := goal.Transition(&g, types.GoalApplied, ""); err != nil {
		return ApplyResult{}, err
	}
	if err := in.GoalStore.Save(g); err != nil {
		return ApplyResult{}, fmt.Errorf("persist goal: %w", err)
	}

	d.Status = types.DraftApplied
	d.AppliedAt = &now
	if err := in.DraftStore.Save(d); err != nil {
		return ApplyResult{}, fmt.Errorf("persist draft: %w", err)
	}

	var closedParent *types.GoalRun
	if g.ParentGoalID != "" {
		if parent, err := in.GoalStore.Load(g.ParentGoalID); err == nil && parent.DraftID != "" {
			if parentDraft, err := in.DraftStore.Load(parent.DraftID); err == nil && !isTerminalDraft(parentDraft.Status) {
				parentDraft.Status = types.DraftClosed
				parentDraft.ClosedReason = "auto-closed: follow-up applied"
				if err := in.DraftStore.Save(parentDraft); err == nil {
					closedParent = &parent
				}
			}
		}
	}

	if _, err := in.AuditLog.Record(in.ActorID, "draft.apply", "", map[string]string{"draft_id": d.ID, "goal_id": g.ID}); err != nil {
		// audit-write failure never aborts the user action (spec §7).
		_ = err
	}

	return ApplyResult{Draft: d, Goal: g, Applied: applied, SubmitResult: submitResult, ClosedParent: closedParent}, nil
}

func requireApplyStatus(d types.DraftPackage, selective bool) error {
	if selective {
		if d.Status == types.DraftPendingReview || d.Status == types.DraftApproved {
			return nil
		}
		return opfail.Newf(opfail.InvalidTransition, "pipeline:apply", d.ID,
			"selective apply requires a draft in PendingReview or Approved", "draft %s is %s", d.ID, d.Status)
	}
	if d.Status != types.DraftApproved {
		return opfail.Newf(opfail.InvalidTransition, "pipeline:apply", d.ID,
			"approve the draft before applying it", "draft %s is %s, not Approved", d.ID, d.Status)
	}
	return nil
}

// assignDispositions applies approve/reject/discuss patterns in the fixed
// order approve -> reject -> discuss, later matches overriding earlier
// ones, honoring the "all"/"rest" special tokens (spec §4.8 step 2).
func assignDispositions(d *types.DraftPackage, p SelectivePatterns) {
	apply := func(patterns []string, disposition types.Disposition) {
		matchAll := containsToken(patterns, "all")
		matchRest := containsToken(patterns, "rest")
		specific := filterTokens(patterns)
		for i := range d.Changes.Artifacts {
			a := &d.Changes.Artifacts[i]
			switch {
			case matchAll:
				a.Disposition = disposition
			case matchRest && a.Disposition == types.DispositionPending:
				a.Disposition = disposition
			case matchesAny(specific, a.URI):
				a.Disposition = disposition
			}
		}
	}
	apply(p.Approve, types.DispositionApproved)
	apply(p.Reject, types.DispositionRejected)
	apply(p.Discuss, types.DispositionDiscuss)
}

func containsToken(patterns []string, token string) bool {
	for _, p := range patterns {
		if p == token {
			return true
		}
	}
	return false
}

func filterTokens(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if p != "all" && p != "rest" {
			out = append(out, p)
		}
	}
	return out
}

func matchesAny(patterns []string, uri string) bool {
	anchored := make([]string, len(patterns))
	for i, p := range patterns {
		anchored[i] = globmatch.Anchor(p)
	}
	return globmatch.MatchAny(anchored, uri)
}

func applyURISet(d types.DraftPackage, selective bool) map[string]bool {
	uris := map[string]bool{}
	for _, a := range d.Changes.Artifacts {
		if !selective || a.Disposition == types.DispositionApproved {
			uris[a.URI] = true
		}
	}
	return uris
}

// diffChangesFromArtifacts rebuilds the minimal overlay.Change list apply
// needs (URI/RelPath/Kind) from a draft's artifacts; the actual diff
// content isn't needed here since ApplyWithConflictCheck copies bytes
// straight from staging.
func diffChangesFromArtifacts(d types.DraftPackage) []overlay.Change {
	changes := make([]overlay.Change, 0, len(d.Changes.Artifacts))
	for _, a := range d.Changes.Artifacts {
		relPath, ok := workspace.RelFromURI(a.URI)
		if !ok {
			continue
		}
		changes = append(changes, overlay.Change{RelPath: relPath, URI: a.URI, Kind: a.ChangeType})
	}
	return changes
}

// gateApplyByPolicy runs every artifact URI this apply would touch through
// the Policy Engine for the "apply" verb (spec §4.1 step 4: side-effect
// verbs always come back RequireApproval given a matching grant, never a
// silent Allow, and Deny without one). A human approval recorded on the
// draft's status is necessary but not sufficient — an expired or revoked
// manifest still blocks the write. A draft with no bound manifest (nil
// Manifest) is unaffected: the capability layer is opt-in per goal.
func gateApplyByPolicy(d types.DraftPackage, in ApplyInputs) error {
	if in.Manifest == nil {
		return nil
	}
	engine := policy.NewEngine()
	engine.LoadManifest(*in.Manifest)
	now := time.Now().UTC()
	for _, a := range d.Changes.Artifacts {
		if in.Patterns.Selective() && a.Disposition != types.DispositionApproved {
			continue
		}
		decision := engine.Evaluate(policy.Request{
			AgentID:   in.Manifest.AgentID,
			Tool:      "fs",
			Verb:      "apply",
			TargetURI: a.URI,
		}, now)
		if decision.Kind == policy.Deny {
			return opfail.Newf(opfail.PolicyDeny, "pipeline:apply", a.URI,
				"re-issue a goal with a manifest granting fs/apply over this path, or drop the artifact from the apply set",
				"policy denied apply of %s: %s", a.URI, decision.Reason)
		}
	}
	return nil
}

func isTerminalDraft(s types.DraftStatus) bool {
	switch s {
	case types.DraftApplied, types.DraftDenied, types.DraftSuperseded, types.DraftClosed:
		return true
	default:
		return false
	}
}
