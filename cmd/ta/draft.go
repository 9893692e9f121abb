package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/config"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/draft"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/pipeline"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/policy"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/submit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func cmdDraft(args []string) {
	if len(args) == 0 {
		printUsage("usage: ta draft <build|list|view|approve|deny|apply|amend|fix|review|close|gc> [args...]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "build":
		cmdDraftBuild(rest)
	case "list":
		cmdDraftList(rest)
	case "view":
		cmdDraftView(rest)
	case "approve":
		cmdDraftApprove(rest)
	case "deny":
		cmdDraftDeny(rest)
	case "apply":
		cmdDraftApply(rest)
	case "amend":
		cmdDraftAmend(rest)
	case "fix":
		cmdDraftFix(rest)
	case "review":
		cmdDraftReview(rest)
	case "close":
		cmdDraftClose(rest)
	case "gc":
		cmdDraftGC(rest)
	default:
		printUnknown("draft " + sub)
		os.Exit(1)
	}
}

// resolveGoal finds the goal a draft verb should act against: an explicit
// id/positional argument, or the most recently updated Running goal.
func resolveGoal(ctx context, explicit string) (types.GoalRun, error) {
	if explicit != "" {
		return ctx.GoalStore.Load(explicit)
	}
	g, ok, err := ctx.GoalStore.MostRecentRunning()
	if err != nil {
		return types.GoalRun{}, err
	}
	if !ok {
		return types.GoalRun{}, opfail.New(opfail.NotFound, "draft:build", "",
			"pass an explicit goal id, or start a goal with `ta goal start`",
			fmt.Errorf("no goal in state Running"))
	}
	return g, nil
}

func cmdDraftBuild(args []string) {
	fs := flag.NewFlagSet("draft build", flag.ExitOnError)
	summary := fs.String("summary", draft.DefaultSummary, "human summary of what changed")
	latest := fs.Bool("latest", false, "build against the most recently updated Running goal")
	fs.Parse(flagsFirst(args, map[string]bool{"latest": true}))

	var goalArg string
	if fs.NArg() > 0 && !*latest {
		goalArg = fs.Arg(0)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:build", false, err)
	}
	g, err := resolveGoal(ctx, goalArg)
	if err != nil {
		opfail.Report("draft:build", false, err)
	}
	ov, err := reopenOverlay(ctx, g)
	if err != nil {
		opfail.Report("draft:build", false, err)
	}
	changes, err := ov.DiffAll()
	if err != nil {
		opfail.Report("draft:build", false, err)
	}
	exempt, err := config.ExemptionPatterns(ctx.TaDir)
	if err != nil {
		opfail.Report("draft:build", false, err)
	}

	d, err := draft.Build(g, draft.BuildInputs{
		TaDir:          ctx.TaDir,
		Overlay:        ov,
		Changes:        changes,
		ChangeStore:    ctx.ChangeStore,
		DraftStore:     ctx.DraftStore,
		GoalStore:      ctx.GoalStore,
		Settings:       ctx.Settings,
		ExemptPatterns: exempt,
		CallerSummary:  *summary,
		AgentID:        g.AgentID,
	})
	if err != nil {
		opfail.Report("draft:build", false, err)
	}

	recordAudit(ctx, g.AgentID, "draft.build", "", map[string]string{"draft_id": d.ID, "goal_id": g.ID})
	fmt.Printf("%s %s\n", style.Success("built draft"), d.ID)
	fmt.Printf("  status:    %s\n", d.Status)
	fmt.Printf("  artifacts: %d\n", len(d.Changes.Artifacts))
	if len(d.Plan.DecisionLog) > 0 {
		fmt.Println(style.Dim("  notes:"))
		for _, line := range d.Plan.DecisionLog {
			fmt.Printf("    - %s\n", line)
		}
	}
}

func cmdDraftList(args []string) {
	fs := flag.NewFlagSet("draft list", flag.ExitOnError)
	goalID := fs.String("goal", "", "filter by goal id")
	stale := fs.Bool("stale", false, "only show drafts idle past the configured GC staleness threshold")
	fs.Parse(args)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:list", false, err)
	}
	drafts, err := ctx.DraftStore.List(*goalID)
	if err != nil {
		opfail.Report("draft:list", false, err)
	}

	threshold := time.Duration(ctx.Settings.GC.StalenessDays) * 24 * time.Hour
	now := time.Now().UTC()
	headers := []string{"ID", "GOAL", "STATUS", "ARTIFACTS", "WHAT CHANGED"}
	var rows [][]string
	for _, d := range drafts {
		if *stale && (isTerminalDraftStatus(d.Status) || now.Sub(d.CreatedAt) < threshold) {
			continue
		}
		rows = append(rows, []string{d.ID, d.GoalID, string(d.Status), fmt.Sprintf("%d", len(d.Changes.Artifacts)), d.Summary.WhatChanged})
	}
	if len(rows) == 0 {
		fmt.Println(style.Dim("no drafts"))
		return
	}
	fmt.Println(style.RenderTable(headers, rows, 2))
}

func isTerminalDraftStatus(s types.DraftStatus) bool {
	switch s {
	case types.DraftApplied, types.DraftDenied, types.DraftSuperseded, types.DraftClosed:
		return true
	default:
		return false
	}
}

func cmdDraftView(args []string) {
	fs := flag.NewFlagSet("draft view", flag.ExitOnError)
	format := fs.String("format", "terminal", "terminal|markdown|json|html")
	detail := fs.String("detail", "top", "top|medium|full")
	file := fs.String("file", "", "show only the artifact at this URI or relative path")
	fs.Bool("color", false, "accepted but has no effect; color follows terminal detection and the NO_COLOR/TA_COLOR/CLICOLOR_FORCE environment variables")
	fs.Parse(flagsFirst(args, map[string]bool{"color": true}))
	if fs.NArg() < 1 {
		printUsage("usage: ta draft view <id> [--detail top|medium|full] [--file <p>] [--format terminal|markdown|json|html]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:view", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:view", false, err)
	}
	if *file != "" {
		d.Changes.Artifacts = filterArtifactsByURI(d.Changes.Artifacts, *file)
	}

	switch *format {
	case "json":
		printJSON(d)
		return
	case "markdown", "html":
		opfail.Report("draft:view", false, fmt.Errorf("--format %s is not yet implemented; use terminal or json", *format))
	}

	fmt.Printf("%s %s\n", style.Heading("draft"), d.ID)
	fmt.Printf("  goal:        %s\n", d.GoalID)
	fmt.Printf("  status:      %s\n", style.Status(string(d.Status)))
	fmt.Printf("  what changed: %s\n", d.Summary.WhatChanged)
	if *detail != "top" {
		if d.Summary.Why != "" {
			fmt.Printf("  why:         %s\n", d.Summary.Why)
		}
		if d.Summary.Impact != "" {
			fmt.Printf("  impact:      %s\n", d.Summary.Impact)
		}
	}
	if *detail == "full" && d.Summary.Rollback != "" {
		fmt.Printf("  rollback:    %s\n", d.Summary.Rollback)
	}
	if len(d.Summary.OpenQuestions) > 0 {
		fmt.Println(style.Dim("  dependency notes:"))
		for _, q := range d.Summary.OpenQuestions {
			fmt.Printf("    - %s\n", q)
		}
	}
	fmt.Println(style.Dim("  artifacts:"))
	headers := []string{"URI", "CHANGE", "DISPOSITION"}
	var rows [][]string
	for _, a := range d.Changes.Artifacts {
		rows = append(rows, []string{a.URI, string(a.ChangeType), string(a.Disposition)})
		if *detail == "full" && a.Rationale != "" {
			rows = append(rows, []string{"", "", style.Dim(a.Rationale)})
		}
	}
	fmt.Println(style.RenderTable(headers, rows, 2))
}

func filterArtifactsByURI(artifacts []types.Artifact, needle string) []types.Artifact {
	var out []types.Artifact
	for _, a := range artifacts {
		if a.URI == needle || strings.HasSuffix(a.URI, "/"+needle) {
			out = append(out, a)
		}
	}
	return out
}

func cmdDraftApprove(args []string) {
	fs := flag.NewFlagSet("draft approve", flag.ExitOnError)
	reviewer := fs.String("reviewer", "", "reviewer identity")
	fs.Parse(flagsFirst(args, nil))
	if fs.NArg() < 1 {
		printUsage("usage: ta draft approve <id> [--reviewer <who>]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:approve", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:approve", false, err)
	}
	if d.Status != types.DraftPendingReview {
		opfail.Report("draft:approve", false, opfail.Newf(opfail.InvalidTransition, "draft:approve", d.ID,
			"only a PendingReview draft can be approved", "draft %s is %s, not PendingReview", d.ID, d.Status))
	}
	now := time.Now().UTC()
	d.Status = types.DraftApproved
	d.ApprovedBy = *reviewer
	d.ApprovedAt = &now
	if err := ctx.DraftStore.Save(d); err != nil {
		opfail.Report("draft:approve", false, err)
	}

	g, err := ctx.GoalStore.Load(d.GoalID)
	if err == nil {
		if goal.CanTransition(g.State, types.GoalUnderReview) {
			_ = goal.Transition(&g, types.GoalUnderReview, "")
		}
		if goal.CanTransition(g.State, types.GoalApproved) {
			_ = goal.Transition(&g, types.GoalApproved, "")
		}
		_ = ctx.GoalStore.Save(g)
	}

	recordAudit(ctx, *reviewer, "draft.approve", "", map[string]string{"draft_id": d.ID})
	fmt.Println(style.Success("approved draft " + d.ID))
}

func cmdDraftDeny(args []string) {
	fs := flag.NewFlagSet("draft deny", flag.ExitOnError)
	reason := fs.String("reason", "", "reason for denial")
	fs.Parse(flagsFirst(args, nil))
	if fs.NArg() < 1 || *reason == "" {
		printUsage("usage: ta draft deny <id> --reason <r>")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:deny", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:deny", false, err)
	}
	if d.Status != types.DraftPendingReview {
		opfail.Report("draft:deny", false, opfail.Newf(opfail.InvalidTransition, "draft:deny", d.ID,
			"only a PendingReview draft can be denied", "draft %s is %s, not PendingReview", d.ID, d.Status))
	}
	d.Status = types.DraftDenied
	d.DeniedReason = *reason
	if err := ctx.DraftStore.Save(d); err != nil {
		opfail.Report("draft:deny", false, err)
	}

	g, err := ctx.GoalStore.Load(d.GoalID)
	if err == nil {
		if goal.CanTransition(g.State, types.GoalUnderReview) {
			_ = goal.Transition(&g, types.GoalUnderReview, "")
		}
		if goal.CanTransition(g.State, types.GoalRunning) {
			_ = goal.Transition(&g, types.GoalRunning, *reason)
		}
		_ = ctx.GoalStore.Save(g)
	}

	recordAudit(ctx, "", "draft.deny", "", map[string]string{"draft_id": d.ID, "reason": *reason})
	fmt.Println(style.Warn("denied draft " + d.ID + ": " + *reason))
}

func cmdDraftApply(args []string) {
	fs := flag.NewFlagSet("draft apply", flag.ExitOnError)
	target := fs.String("target", "", "explicit target directory override")
	resolution := fs.String("conflict-resolution", "abort", "abort|force-overwrite|merge")
	submitFlag := fs.Bool("submit", false, "invoke the configured submit adapter after apply")
	actor := fs.String("actor", "", "acting identity, for the audit log")
	var approve, reject, discuss multiFlag
	fs.Var(&approve, "approve", "selective-approval pattern (repeatable)")
	fs.Var(&reject, "reject", "selective-rejection pattern (repeatable)")
	fs.Var(&discuss, "discuss", "selective-discuss pattern (repeatable)")
	fs.Parse(flagsFirst(args, map[string]bool{"submit": true}))
	if fs.NArg() < 1 {
		printUsage("usage: ta draft apply <id> [--target <d>] [--conflict-resolution abort|force-overwrite|merge] [--approve <pat>]... [--reject <pat>]... [--discuss <pat>]... [--submit]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:apply", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:apply", false, err)
	}

	adapter := submit.Adapter(submit.None{})
	if *submitFlag {
		adapter = ctx.submitAdapter()
	}

	var manifest *policy.CapabilityManifest
	if g, err := ctx.GoalStore.Load(d.GoalID); err == nil && g.ManifestID != "" {
		if m, err := policy.Load(ctx.manifestsDir(), g.ManifestID); err == nil {
			manifest = &m
		}
	}

	result, err := pipeline.Apply(d, pipeline.ApplyInputs{
		TaDir:        ctx.TaDir,
		DraftStore:   ctx.DraftStore,
		GoalStore:    ctx.GoalStore,
		ChangeStore:  ctx.ChangeStore,
		AuditLog:     ctx.AuditLog,
		Submit:       adapter,
		TargetDir:    *target,
		Resolution:   overlay.ResolutionStrategy(resolutionLabel(*resolution)),
		Patterns:     pipeline.SelectivePatterns{Approve: approve, Reject: reject, Discuss: discuss},
		ActorID:      *actor,
		WorkspaceDir: ctx.WorkspaceDir,
		Manifest:     manifest,
	})
	if err != nil {
		opfail.Report("draft:apply", false, err)
	}

	fmt.Printf("%s %s\n", style.Success("applied draft"), d.ID)
	for _, a := range result.Applied {
		fmt.Printf("  %s %s\n", style.Dim(string(a.Kind)), a.RelPath)
	}
	if result.ClosedParent != nil {
		fmt.Println(style.Dim("  auto-closed parent draft for goal " + result.ClosedParent.ID))
	}
}

// resolutionLabel maps the CLI's hyphenated spelling onto the
// ResolutionStrategy's Go-identifier spelling.
func resolutionLabel(s string) string {
	switch s {
	case "force-overwrite":
		return string(overlay.ForceOverwrite)
	case "merge":
		return string(overlay.Merge)
	default:
		return string(overlay.Abort)
	}
}

func cmdDraftAmend(args []string) {
	fs := flag.NewFlagSet("draft amend", flag.ExitOnError)
	file := fs.String("file", "", "path to corrected file content")
	drop := fs.Bool("drop", false, "drop the artifact instead of replacing it")
	reason := fs.String("reason", "", "reason for the amendment")
	amendedBy := fs.String("amended-by", "", "who made the amendment")
	fs.Parse(flagsFirst(args, map[string]bool{"drop": true}))
	if fs.NArg() < 2 {
		printUsage("usage: ta draft amend <id> <uri> {--file <p>|--drop} [--reason <r>] [--amended-by <who>]")
		os.Exit(1)
	}
	if (*file == "") == !*drop {
		opfail.Report("draft:amend", false, fmt.Errorf("exactly one of --file or --drop is required"))
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:amend", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:amend", false, err)
	}
	uri := fs.Arg(1)

	if *drop {
		if err := draft.Drop(&d, uri); err != nil {
			opfail.Report("draft:amend", false, err)
		}
	} else {
		g, err := ctx.GoalStore.Load(d.GoalID)
		if err != nil {
			opfail.Report("draft:amend", false, err)
		}
		ov, err := reopenOverlay(ctx, g)
		if err != nil {
			opfail.Report("draft:amend", false, err)
		}
		if err := draft.File(&d, uri, draft.FileInputs{
			ChangeStore:   ctx.ChangeStore,
			GoalID:        d.GoalID,
			Overlay:       ov,
			CorrectedPath: *file,
			AmendedBy:     *amendedBy,
			Reason:        *reason,
		}); err != nil {
			opfail.Report("draft:amend", false, err)
		}
	}

	if err := ctx.DraftStore.Save(d); err != nil {
		opfail.Report("draft:amend", false, err)
	}
	recordAudit(ctx, *amendedBy, "draft.amend", uri, map[string]string{"draft_id": d.ID})
	fmt.Println(style.Success("amended draft " + d.ID))
}

func cmdDraftFix(args []string) {
	fs := flag.NewFlagSet("draft fix", flag.ExitOnError)
	guidance := fs.String("guidance", "", "guidance for the follow-up goal")
	agentID := fs.String("agent", "", "agent id for the follow-up goal")
	noLaunch := fs.Bool("no-launch", false, "create the follow-up goal record without staging an overlay or starting it")
	fs.Parse(flagsFirst(args, map[string]bool{"no-launch": true}))
	if fs.NArg() < 1 || *guidance == "" {
		printUsage("usage: ta draft fix <id> [<uri>] --guidance <text> [--agent <id>] [--no-launch]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:fix", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:fix", false, err)
	}
	parent, err := ctx.GoalStore.Load(d.GoalID)
	if err != nil {
		opfail.Report("draft:fix", false, err)
	}

	var scope draft.FixScope
	if fs.NArg() > 1 {
		scope.URI = fs.Arg(1)
	}

	followUp, err := draft.Fix(d, parent, scope, *guidance, *agentID)
	if err != nil {
		opfail.Report("draft:fix", false, err)
	}

	if *noLaunch {
		if err := ctx.GoalStore.Save(followUp); err != nil {
			opfail.Report("draft:fix", false, err)
		}
		recordAudit(ctx, *agentID, "draft.fix", "", map[string]string{"draft_id": d.ID, "follow_up_goal_id": followUp.ID})
		fmt.Printf("%s %s\n", style.Success("recorded follow-up goal (not started)"), followUp.ID)
		fmt.Printf("  parent_goal: %s\n", parent.ID)
		return
	}

	ov, err := overlay.Create(followUp.ID, followUp.SourceDir, ctx.stagingRoot(), parent.ExcludePatterns)
	if err != nil {
		opfail.Report("draft:fix", false, err)
	}
	followUp.Snapshot = &ov.Snapshot
	followUp.ExcludePatterns = parent.ExcludePatterns

	if err := goal.Transition(&followUp, types.GoalConfigured, ""); err != nil {
		opfail.Report("draft:fix", false, err)
	}
	if err := goal.Transition(&followUp, types.GoalRunning, ""); err != nil {
		opfail.Report("draft:fix", false, err)
	}
	if err := ctx.GoalStore.Save(followUp); err != nil {
		opfail.Report("draft:fix", false, err)
	}

	recordAudit(ctx, *agentID, "draft.fix", "", map[string]string{"draft_id": d.ID, "follow_up_goal_id": followUp.ID})
	fmt.Printf("%s %s\n", style.Success("created follow-up goal"), followUp.ID)
	fmt.Printf("  parent_goal: %s\n", parent.ID)
	fmt.Printf("  staging:     %s\n", ov.StagingDir)
}

func cmdDraftClose(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta draft close <id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:close", false, err)
	}
	d, err := ctx.DraftStore.Load(args[0])
	if err != nil {
		opfail.Report("draft:close", false, err)
	}
	if isTerminalDraftStatus(d.Status) {
		opfail.Report("draft:close", false, opfail.Newf(opfail.InvalidTransition, "draft:close", d.ID,
			"a terminal draft cannot be closed again", "draft %s is already %s", d.ID, d.Status))
	}
	d.Status = types.DraftClosed
	d.ClosedReason = "closed by operator"
	if err := ctx.DraftStore.Save(d); err != nil {
		opfail.Report("draft:close", false, err)
	}
	recordAudit(ctx, "", "draft.close", "", map[string]string{"draft_id": d.ID})
	fmt.Println(style.Success("closed draft " + d.ID))
}
