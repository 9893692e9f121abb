package draft

import (
	"fmt"
	"strings"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/config"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/constitution"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/globmatch"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// DefaultSummary is the caller-supplied default that, when seen verbatim,
// lets an agent-provided change_summary.json's "what changed" line take
// precedence (spec §4.4 step 8).
const DefaultSummary = "Agent-authored changes"

// BuildInputs bundles everything the build pipeline needs beyond the
// resolved GoalRun (spec §4.4 "Inputs").
type BuildInputs struct {
	TaDir          string
	Overlay        *overlay.Overlay
	Changes        []overlay.Change
	ChangeStore    changeset.Store
	DraftStore     Store
	GoalStore      goal.Store
	Settings       config.Settings
	ExemptPatterns []string // additional patterns from .ta/summary-exempt
	CallerSummary  string
	AgentID        string
}

// Build runs the full §4.4 algorithm against an already-resolved GoalRun
// and its overlay's diffed changes, producing a persisted DraftPackage and
// transitioning the goal to PrReady.
func Build(g types.GoalRun, in BuildInputs) (types.DraftPackage, error) {
	if len(in.Changes) == 0 {
		return types.DraftPackage{}, opfail.New(opfail.ValidationError, "draft:build", g.ID,
			"make changes in the overlay staging directory before building a draft", fmt.Errorf("overlay diff is empty, nothing to build"))
	}

	artifacts := make([]types.Artifact, 0, len(in.Changes))
	for _, change := range in.Changes {
		artifact, cs, err := artifactForChange(g.ID, change)
		if err != nil {
			return types.DraftPackage{}, err
		}
		if err := in.ChangeStore.Save(cs); err != nil {
			return types.DraftPackage{}, fmt.Errorf("persist changeset for %s: %w", change.URI, err)
		}
		artifacts = append(artifacts, artifact)
	}

	var decisionLog []string
	var dependencyNotes []string
	summary := loadChangeSummary(in.Overlay.StagingDir)
	if summary != nil {
		for i := range artifacts {
			if entry, ok := summary.Artifacts[artifacts[i].URI]; ok {
				applyChangeSummary(&artifacts[i], entry, &decisionLog)
			}
		}
		dependencyNotes = summary.DependencyNotes
	}

	for i := range artifacts {
		if sidecar := loadSidecar(in.Overlay.StagingDir, in.Changes[i].RelPath); sidecar != nil {
			applySidecar(&artifacts[i], sidecar)
		}
	}

	exemptPatterns := append(append([]string(nil), in.Settings.ExemptPatterns()...), in.ExemptPatterns...)
	var flagged []string
	for _, a := range artifacts {
		if hasSummary(a) {
			continue
		}
		if matchesAnyExempt(a.URI, exemptPatterns) {
			continue
		}
		flagged = append(flagged, a.URI)
	}
	if len(flagged) > 0 {
		switch in.Settings.Build.SummaryEnforcement {
		case config.SummaryError:
			return types.DraftPackage{}, opfail.New(opfail.SummaryEnforcement, "draft:build", g.ID,
				"add a change_summary.json entry or a *.diff.explanation.yaml sidecar for the flagged artifacts",
				fmt.Errorf("%d artifact(s) missing descriptions: %s", len(flagged), strings.Join(flagged, ", ")))
		case config.SummaryWarn:
			decisionLog = append(decisionLog, fmt.Sprintf("warning: %d artifact(s) missing a summary: %s", len(flagged), strings.Join(flagged, ", ")))
		}
	}

	var constitutionViolation error
	if c, ok, err := constitution.Load(in.TaDir, g.ID); err != nil {
		return types.DraftPackage{}, err
	} else if ok {
		uris := make([]string, len(artifacts))
		for i, a := range artifacts {
			uris[i] = a.URI
		}
		v := constitution.Validate(c, uris)
		if len(v.Undeclared) > 0 {
			msg := fmt.Errorf("artifacts access undeclared URIs: %s", strings.Join(v.Undeclared, ", "))
			if c.Enforcement == constitution.EnforcementError {
				constitutionViolation = msg
			} else {
				decisionLog = append(decisionLog, "warning: "+msg.Error())
			}
		}
	}
	if constitutionViolation != nil {
		return types.DraftPackage{}, opfail.New(opfail.ConstitutionViolation, "draft:build", g.ID,
			"amend the draft to remove undeclared artifacts, or update the goal's access constitution", constitutionViolation)
	}

	whatChanged := in.CallerSummary
	if summary != nil && in.CallerSummary == DefaultSummary {
		if first := firstArtifactWhat(summary); first != "" {
			whatChanged = first
		}
	}

	now := time.Now().UTC()
	d := types.DraftPackage{
		ID:        NewID(),
		GoalID:    g.ID,
		Version:   1,
		CreatedAt: now,
		AgentID:   in.AgentID,
		Summary: types.Summary{
			WhatChanged:   whatChanged,
			OpenQuestions: dependencyNotes,
		},
		Plan:       types.Plan{DecisionLog: decisionLog},
		Changes:    types.Changes{Artifacts: artifacts},
		Provenance: types.Provenance{AgentID: in.AgentID, GeneratedAt: now},
		Status:     types.DraftPendingReview,
	}

	if g.ParentGoalID != "" {
		if parent, err := in.GoalStore.Load(g.ParentGoalID); err == nil && parent.DraftID != "" {
			if parentDraft, err := in.DraftStore.Load(parent.DraftID); err == nil && !isTerminalDraft(parentDraft.Status) {
				parentDraft.Status = types.DraftSuperseded
				parentDraft.SupersededBy = d.ID
				if err := in.DraftStore.Save(parentDraft); err != nil {
					return types.DraftPackage{}, fmt.Errorf("supersede parent draft: %w", err)
				}
			}
		}
	}

	if err := in.DraftStore.Save(d); err != nil {
		return types.DraftPackage{}, fmt.Errorf("persist draft: %w", err)
	}

	g.DraftID = d.ID
	if err := goal.Transition(&g, types.GoalPrReady, ""); err != nil {
		return types.DraftPackage{}, err
	}
	if err := in.GoalStore.Save(g); err != nil {
		return types.DraftPackage{}, fmt.Errorf("persist goal: %w", err)
	}

	return d, nil
}

func artifactForChange(goalID string, change overlay.Change) (types.Artifact, changeset.ChangeSet, error) {
	cs, err := changeset.New(NewID(), goalID, change.URI, change.Diff, "")
	if err != nil {
		return types.Artifact{}, changeset.ChangeSet{}, fmt.Errorf("build changeset for %s: %w", change.URI, err)
	}
	artifact := types.Artifact{
		URI:         change.URI,
		ChangeType:  change.Kind,
		ChangeSetID: cs.ID,
		Disposition: types.DispositionPending,
	}
	return artifact, cs, nil
}

func hasSummary(a types.Artifact) bool {
	if a.Rationale != "" {
		return true
	}
	return a.ExplanationTiers != nil && a.ExplanationTiers.Summary != ""
}

// matchesAnyExempt checks exemption patterns (plain basename/glob
// fragments like "package.json" or "*lockfiles*", not scheme-anchored
// fs:// patterns) against both the full URI and its basename.
func matchesAnyExempt(uri string, patterns []string) bool {
	base := uri
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		base = uri[idx+1:]
	}
	for _, p := range patterns {
		if globmatch.Match(p, uri) || globmatch.Match(p, base) {
			return true
		}
	}
	return false
}

func firstArtifactWhat(cs *changeSummary) string {
	for _, entry := range cs.Artifacts {
		if entry.What != "" {
			return entry.What
		}
	}
	return ""
}

func isTerminalDraft(s types.DraftStatus) bool {
	switch s {
	case types.DraftApplied, types.DraftDenied, types.DraftSuperseded, types.DraftClosed:
		return true
	default:
		return false
	}
}
