package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/release"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/reviewchannel"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
)

// loadPipeline reads path if given, otherwise falls back to the
// workspace's default .ta/release.yaml.
func loadPipeline(ctx context, path string) (release.Pipeline, error) {
	if path == "" {
		return release.Load(ctx.TaDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return release.Pipeline{}, err
	}
	var p release.Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return release.Pipeline{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func cmdRelease(args []string) {
	if len(args) == 0 {
		printUsage("usage: ta release <run|show|init> [args...]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "run":
		cmdReleaseRun(rest)
	case "show":
		cmdReleaseShow(rest)
	case "init":
		cmdReleaseInit(rest)
	default:
		printUnknown("release " + sub)
		os.Exit(1)
	}
}

func cmdReleaseRun(args []string) {
	fs := flag.NewFlagSet("release run", flag.ExitOnError)
	fromStep := fs.Int("from-step", 1, "1-indexed step to resume from")
	dryRun := fs.Bool("dry-run", false, "report each step without requesting confirmation")
	tag := fs.String("tag", "", "release tag (defaults to v<version>)")
	commits := fs.String("commits", "", "commit log text for ${COMMITS} substitution")
	lastTag := fs.String("last-tag", "", "previous tag for ${LAST_TAG} substitution")
	auto := fs.Bool("auto-approve", false, "skip interactive confirmation (non-interactive channel)")
	pipelinePath := fs.String("pipeline", "", "path to an alternate release pipeline file")
	fs.Parse(flagsFirst(args, map[string]bool{"dry-run": true, "auto-approve": true}))
	if fs.NArg() < 1 {
		printUsage("usage: ta release run <version> [--from-step N] [--pipeline <path>] [--dry-run] [--tag <t>] [--commits <text>] [--last-tag <t>] [--auto-approve]")
		os.Exit(1)
	}
	version := fs.Arg(0)
	tagVal := *tag
	if tagVal == "" {
		tagVal = "v" + version
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("release:run", false, err)
	}
	pipeline, err := loadPipeline(ctx, *pipelinePath)
	if err != nil {
		opfail.Report("release:run", false, err)
	}

	var channel reviewchannel.Channel
	if *auto || *dryRun {
		channel = &reviewchannel.AutoApprove{}
	} else {
		channel = reviewchannel.NewTerminal()
	}

	results, err := release.Run(pipeline, release.Vars{
		Version: version,
		Tag:     tagVal,
		Commits: *commits,
		LastTag: *lastTag,
	}, channel, release.RunOptions{FromStep: *fromStep, DryRun: *dryRun})
	if err != nil {
		opfail.Report("release:run", false, err)
	}

	recordAudit(ctx, "", "release.run", "", map[string]string{"version": version, "tag": tagVal})
	for _, r := range results {
		status := style.Success("done")
		if r.DryRun {
			status = style.Dim("dry-run")
		}
		fmt.Printf("  %s %s\n", status, r.Step.Name)
	}
}

func cmdReleaseShow(args []string) {
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("release:show", false, err)
	}
	pipeline, err := release.Load(ctx.TaDir)
	if err != nil {
		opfail.Report("release:show", false, err)
	}
	fmt.Println(style.Heading("release pipeline"))
	for i, step := range pipeline.Steps {
		fmt.Printf("  %d. %s\n     %s\n", i+1, step.Name, step.Description)
	}
}

func cmdReleaseInit(args []string) {
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("release:init", false, err)
	}
	if _, err := release.Load(ctx.TaDir); err == nil {
		opfail.Report("release:init", false, opfail.New(opfail.ValidationError, "release:init", ctx.TaDir,
			"edit .ta/release.yaml directly to change an existing pipeline", fmt.Errorf("release.yaml already exists")))
	}
	if err := release.Save(ctx.TaDir, release.DefaultPipeline()); err != nil {
		opfail.Report("release:init", false, err)
	}
	fmt.Println(style.Success("wrote default release pipeline to .ta/release.yaml"))
}
