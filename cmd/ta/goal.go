package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/policy"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func cmdGoal(args []string) {
	if len(args) == 0 {
		printUsage("usage: ta goal <start|list|status|delete> [args...]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "start":
		cmdGoalStart(rest)
	case "list":
		cmdGoalList(rest)
	case "status":
		cmdGoalStatus(rest)
	case "delete":
		cmdGoalDelete(rest)
	default:
		printUnknown("goal " + sub)
		os.Exit(1)
	}
}

func cmdGoalStart(args []string) {
	fs := flag.NewFlagSet("goal start", flag.ExitOnError)
	source := fs.String("source", ".", "directory the agent will work in")
	objective := fs.String("objective", "", "objective text")
	objectiveFile := fs.String("objective-file", "", "read objective from a file")
	agentID := fs.String("agent", "", "acting agent id")
	phase := fs.String("phase", "", "plan phase tag")
	followUp := fs.String("follow-up", "", "parent goal id, if this is a follow-up")
	profilePath := fs.String("profile", "", "AlignmentProfile YAML: compile a CapabilityManifest and bind it to this goal")
	manifestTTL := fs.Duration("manifest-ttl", 24*time.Hour, "CapabilityManifest lifetime when --profile is given")
	var excludes multiFlag
	fs.Var(&excludes, "exclude", "additional overlay exclude pattern (repeatable)")
	fs.Parse(flagsFirst(args, nil))
	if fs.NArg() < 1 {
		printUsage("usage: ta goal start <title> [--source <dir>] [--objective <text>|--objective-file <path>] [--agent <id>] [--phase <p>] [--follow-up <id>]")
		os.Exit(1)
	}
	title := fs.Arg(0)

	obj := *objective
	if *objectiveFile != "" {
		data, err := os.ReadFile(*objectiveFile)
		if err != nil {
			opfail.Report("goal:start", false, err)
		}
		obj = string(data)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("goal:start", false, err)
	}

	sourceDir, err := filepath.Abs(*source)
	if err != nil {
		opfail.Report("goal:start", false, err)
	}

	g := goal.New(title, obj, *agentID, sourceDir, ctx.WorkspaceDir, filepath.Join(ctx.TaDir, "changesets"), *followUp)
	g.PlanPhase = *phase
	g.ExcludePatterns = excludes

	if *profilePath != "" {
		data, err := os.ReadFile(*profilePath)
		if err != nil {
			opfail.Report("goal:start", false, err)
		}
		profile, err := policy.LoadAlignmentProfile(data)
		if err != nil {
			opfail.Report("goal:start", false, err)
		}
		manifest, err := policy.Compile(profile, *agentID, time.Now().UTC(), *manifestTTL)
		if err != nil {
			opfail.Report("goal:start", false, err)
		}
		if err := manifest.Save(ctx.manifestsDir()); err != nil {
			opfail.Report("goal:start", false, err)
		}
		g.ManifestID = manifest.ID
	}

	ov, err := overlay.Create(g.ID, sourceDir, ctx.stagingRoot(), excludes)
	if err != nil {
		opfail.Report("goal:start", false, err)
	}
	g.Snapshot = &ov.Snapshot

	if err := goal.Transition(&g, types.GoalConfigured, ""); err != nil {
		opfail.Report("goal:start", false, err)
	}
	if err := goal.Transition(&g, types.GoalRunning, ""); err != nil {
		opfail.Report("goal:start", false, err)
	}
	if err := ctx.GoalStore.Save(g); err != nil {
		opfail.Report("goal:start", false, err)
	}

	if _, err := ctx.AuditLog.Record(*agentID, "goal.start", "", map[string]string{"goal_id": g.ID}); err != nil {
		fmt.Fprintln(os.Stderr, style.Warn("audit write failed: "+err.Error()))
	}

	fmt.Printf("%s %s\n", style.Success("started goal"), g.ID)
	fmt.Printf("  title:      %s\n", g.Title)
	fmt.Printf("  state:      %s\n", g.State)
	fmt.Printf("  source_dir: %s\n", g.SourceDir)
	fmt.Printf("  staging:    %s\n", ov.StagingDir)
	if g.ManifestID != "" {
		fmt.Printf("  manifest:   %s\n", g.ManifestID)
	}
}

func cmdGoalList(args []string) {
	fs := flag.NewFlagSet("goal list", flag.ExitOnError)
	state := fs.String("state", "", "filter by state")
	fs.Parse(args)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("goal:list", false, err)
	}
	goals, err := ctx.GoalStore.List(types.GoalRunState(*state))
	if err != nil {
		opfail.Report("goal:list", false, err)
	}
	if len(goals) == 0 {
		fmt.Println(style.Dim("no goals"))
		return
	}
	headers := []string{"ID", "TITLE", "STATE", "AGENT", "DRAFT"}
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{g.ID, g.Title, string(g.State), g.AgentID, g.DraftID})
	}
	fmt.Println(style.RenderTable(headers, rows, 2))
}

func cmdGoalStatus(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta goal status <id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("goal:status", false, err)
	}
	g, err := ctx.GoalStore.Load(args[0])
	if err != nil {
		opfail.Report("goal:status", false, err)
	}
	fmt.Printf("%s %s\n", style.Heading("goal"), g.ID)
	fmt.Printf("  title:       %s\n", g.Title)
	fmt.Printf("  state:       %s\n", style.Status(string(g.State)))
	fmt.Printf("  agent:       %s\n", g.AgentID)
	fmt.Printf("  source_dir:  %s\n", g.SourceDir)
	fmt.Printf("  draft_id:    %s\n", g.DraftID)
	if g.ParentGoalID != "" {
		fmt.Printf("  parent_goal: %s\n", g.ParentGoalID)
	}
	if g.FailureReason != "" {
		fmt.Printf("  failure:     %s\n", g.FailureReason)
	}
	fmt.Printf("  created_at:  %s\n", g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("  updated_at:  %s\n", g.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func cmdGoalDelete(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta goal delete <id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("goal:delete", false, err)
	}
	if err := ctx.GoalStore.Delete(args[0]); err != nil {
		opfail.Report("goal:delete", false, err)
	}
	fmt.Println(style.Success("deleted goal " + args[0]))
}
