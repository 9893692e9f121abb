package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/drift"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func cmdDrift(args []string) {
	if len(args) == 0 {
		printUsage("usage: ta drift <baseline|report> <agent-id>")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "baseline":
		cmdDriftBaseline(rest)
	case "report":
		cmdDriftReport(rest)
	default:
		printUnknown("drift " + sub)
		os.Exit(1)
	}
}

// dependencyArtifactNames mirrors internal/drift's per-language manifest
// list for deriving a DraftSummary's dependency_artifact_count.
var dependencyArtifactNames = map[string]bool{
	"Cargo.toml": true, "package.json": true, "go.mod": true,
	"requirements.txt": true, "pyproject.toml": true,
}

func isLikelyDependencyArtifact(uri string) bool {
	name := uri
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		name = uri[idx+1:]
	}
	if dependencyArtifactNames[name] {
		return true
	}
	return strings.Contains(strings.ToLower(name), "lock")
}

// escalationCounts tallies an agent's lifetime draft.apply actions (the
// audit trail's record of a side-effect verb going through, the proxy
// available here for a RequireApproval/Deny escalation) against all
// recorded actions, the pair the EscalationFrequency signal's baseline
// and recent-window rates are both built from.
func escalationCounts(events []types.AuditEvent, agentID string) (escalations, total int) {
	for _, e := range events {
		if e.ActorID != agentID {
			continue
		}
		total++
		if e.Action == "draft.apply" {
			escalations++
		}
	}
	return escalations, total
}

func anyRejected(artifacts []types.Artifact) bool {
	for _, a := range artifacts {
		if a.Disposition == types.DispositionRejected {
			return true
		}
	}
	return false
}

func draftSummariesForAgent(drafts []types.DraftPackage, agentID string) []types.DraftSummary {
	var out []types.DraftSummary
	for _, d := range drafts {
		if d.AgentID != agentID {
			continue
		}
		depCount := 0
		for _, a := range d.Changes.Artifacts {
			if isLikelyDependencyArtifact(a.URI) {
				depCount++
			}
		}
		out = append(out, types.DraftSummary{
			AgentID:                 d.AgentID,
			ArtifactCount:           len(d.Changes.Artifacts),
			RiskScore:               d.Risk.Score,
			Rejected:                d.Status == types.DraftDenied || anyRejected(d.Changes.Artifacts),
			DependencyArtifactCount: depCount,
			CreatedAt:               d.CreatedAt,
		})
	}
	return out
}

func accessedURIsForAgent(drafts []types.DraftPackage, agentID string) []string {
	var uris []string
	for _, d := range drafts {
		if d.AgentID != agentID {
			continue
		}
		for _, a := range d.Changes.Artifacts {
			uris = append(uris, a.URI)
		}
	}
	return uris
}

// uriPrefixesFor reduces a list of fs://workspace/... URIs to their
// top-level directory prefixes, the shape BehavioralBaseline.URIPrefixes
// expects for the ResourceScope signal's prefix-containment check.
func uriPrefixesFor(uris []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, uri := range uris {
		rest := strings.TrimPrefix(uri, "fs://workspace/")
		idx := strings.Index(rest, "/")
		prefix := "fs://workspace/"
		if idx >= 0 {
			prefix += rest[:idx+1]
		}
		if !seen[prefix] {
			seen[prefix] = true
			out = append(out, prefix)
		}
	}
	return out
}

func filterByAgent(drafts []types.DraftPackage, agentID string) []types.DraftPackage {
	var out []types.DraftPackage
	for _, d := range drafts {
		if d.AgentID == agentID {
			out = append(out, d)
		}
	}
	return out
}

func cmdDriftBaseline(args []string) {
	fs := flag.NewFlagSet("drift baseline", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		printUsage("usage: ta drift baseline <agent-id>")
		os.Exit(1)
	}
	agentID := fs.Arg(0)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("drift:baseline", false, err)
	}
	drafts, err := ctx.DraftStore.List("")
	if err != nil {
		opfail.Report("drift:baseline", false, err)
	}
	summaries := draftSummariesForAgent(drafts, agentID)
	uriPrefixes := uriPrefixesFor(accessedURIsForAgent(drafts, agentID))

	events, err := ctx.AuditLog.All()
	if err != nil {
		opfail.Report("drift:baseline", false, err)
	}
	escalations, total := escalationCounts(events, agentID)

	baseline := drift.Recompute(agentID, uriPrefixes, summaries, escalations, total)
	store := drift.NewBaselineStore(ctx.TaDir)
	if err := store.Save(baseline); err != nil {
		opfail.Report("drift:baseline", false, err)
	}

	fmt.Printf("%s %s\n", style.Success("recomputed baseline for"), agentID)
	fmt.Printf("  sample_goals:       %d\n", baseline.SampleGoalCount)
	fmt.Printf("  avg_artifact_count: %.2f\n", baseline.AvgArtifactCount)
	fmt.Printf("  avg_risk_score:     %.2f\n", baseline.AvgRiskScore)
	fmt.Printf("  rejection_rate:     %.2f\n", baseline.RejectionRate)
	fmt.Printf("  escalation_rate:    %.2f\n", baseline.EscalationRate)
}

func cmdDriftReport(args []string) {
	fs := flag.NewFlagSet("drift report", flag.ExitOnError)
	recentN := fs.Int("recent", 5, "number of most recent drafts to evaluate")
	fs.Parse(args)
	if fs.NArg() < 1 {
		printUsage("usage: ta drift report <agent-id> [--recent N]")
		os.Exit(1)
	}
	agentID := fs.Arg(0)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("drift:report", false, err)
	}
	baselineStore := drift.NewBaselineStore(ctx.TaDir)
	baseline, ok, err := baselineStore.Load(agentID)
	if err != nil {
		opfail.Report("drift:report", false, err)
	}
	if !ok {
		fmt.Println(style.Warn("no stored baseline for " + agentID + "; run `ta drift baseline " + agentID + "` first"))
	}

	drafts, err := ctx.DraftStore.List("")
	if err != nil {
		opfail.Report("drift:report", false, err)
	}
	agentDrafts := filterByAgent(drafts, agentID)
	if len(agentDrafts) > *recentN {
		agentDrafts = agentDrafts[len(agentDrafts)-*recentN:]
	}
	summaries := draftSummariesForAgent(agentDrafts, agentID)
	recentURIs := accessedURIsForAgent(agentDrafts, agentID)

	events, err := ctx.AuditLog.All()
	if err != nil {
		opfail.Report("drift:report", false, err)
	}
	// Count only audit activity from the oldest evaluated draft onward, so
	// the recent window is compared against the baseline's lifetime rate.
	if len(agentDrafts) > 0 {
		since := agentDrafts[0].CreatedAt
		var windowed []types.AuditEvent
		for _, e := range events {
			if !e.Timestamp.Before(since) {
				windowed = append(windowed, e)
			}
		}
		events = windowed
	}
	escalations, total := escalationCounts(events, agentID)

	report := drift.Evaluate(baseline, drift.RecentActivity{
		AccessedURIs: recentURIs,
		Summaries:    summaries,
		Escalations:  escalations,
		TotalActions: total,
	})

	fmt.Printf("%s %s\n", style.Heading("drift report for"), agentID)
	for _, f := range report.Findings {
		line := fmt.Sprintf("%-22s %s", f.Signal, style.Status(string(f.Severity)))
		if f.Detail != "" {
			line += " (" + f.Detail + ")"
		}
		fmt.Println("  " + line)
	}
	fmt.Printf("  %-22s %s\n", "overall", style.Status(string(report.OverallSeverity)))
}
