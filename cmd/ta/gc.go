package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// gcCandidateStates are the goal states GC ever touches: a goal that
// finished its lifecycle (Completed) or died (Failed) leaves nothing
// behind worth mediating further.
var gcCandidateStates = []types.GoalRunState{types.GoalCompleted, types.GoalFailed}

// cmdDraftGC sweeps staging directories for goals that have sat in a
// terminal state past the configured staleness window, archiving them
// under .ta/archive/<goal_id> when requested or removing them outright.
func cmdDraftGC(args []string) {
	fs := flag.NewFlagSet("draft gc", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be reclaimed without touching disk")
	archive := fs.Bool("archive", false, "move staging dirs under .ta/archive instead of deleting")
	fs.Parse(args)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:gc", false, err)
	}

	threshold := time.Duration(ctx.Settings.GC.StalenessDays) * 24 * time.Hour
	wantArchive := *archive
	if ctx.Settings.GC.Archive != nil {
		wantArchive = wantArchive || *ctx.Settings.GC.Archive
	}

	now := time.Now().UTC()
	var swept, skipped int
	for _, state := range gcCandidateStates {
		goals, err := ctx.GoalStore.List(state)
		if err != nil {
			opfail.Report("draft:gc", false, err)
		}
		for _, g := range goals {
			if now.Sub(g.UpdatedAt) < threshold {
				skipped++
				continue
			}
			stagingDir := filepath.Join(ctx.stagingRoot(), g.ID)
			if _, statErr := os.Stat(stagingDir); os.IsNotExist(statErr) {
				continue
			}
			if *dryRun {
				fmt.Printf("%s %s (%s, idle %s)\n", style.Dim("would reclaim"), g.ID, g.State, now.Sub(g.UpdatedAt).Round(time.Hour))
				swept++
				continue
			}
			if wantArchive {
				archiveDir := filepath.Join(ctx.TaDir, "archive", g.ID)
				if err := os.MkdirAll(filepath.Dir(archiveDir), 0o700); err != nil {
					opfail.Report("draft:gc", false, err)
				}
				if err := os.Rename(stagingDir, archiveDir); err != nil {
					opfail.Report("draft:gc", false, err)
				}
			} else if err := os.RemoveAll(stagingDir); err != nil {
				opfail.Report("draft:gc", false, err)
			}
			recordAudit(ctx, "", "draft.gc", "", map[string]string{"goal_id": g.ID, "archived": fmt.Sprintf("%t", wantArchive)})
			swept++
		}
	}

	verb := "reclaimed"
	if *dryRun {
		verb = "would reclaim"
	}
	fmt.Printf("%s %d stale staging dir(s), skipped %d not yet stale\n", style.Success(verb), swept, skipped)
}
