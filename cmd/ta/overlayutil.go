package main

import (
	"fmt"
	"path/filepath"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// reopenOverlay reconstructs the *overlay.Overlay a running goal created at
// `goal start` time, so later verbs (draft build, draft amend) can diff or
// amend against the same staging directory and exclude rules without
// re-walking the source tree.
func reopenOverlay(ctx context, g types.GoalRun) (*overlay.Overlay, error) {
	if g.Snapshot == nil {
		return nil, fmt.Errorf("goal %s has no source snapshot", g.ID)
	}
	excludes, err := overlay.LoadExcludeSet(g.SourceDir, g.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("load exclude rules: %w", err)
	}
	return &overlay.Overlay{
		GoalID:     g.ID,
		SourceDir:  g.SourceDir,
		StagingDir: filepath.Join(ctx.stagingRoot(), g.ID),
		Excludes:   excludes,
		Snapshot:   *g.Snapshot,
	}, nil
}
