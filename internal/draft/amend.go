package draft

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/overlay"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// amendableStatuses are the draft states Amend is permitted against
// (spec §4.9: "mutates a draft that is still Draft | PendingReview |
// Approved").
var amendableStatuses = map[types.DraftStatus]bool{
	types.DraftDraft:         true,
	types.DraftPendingReview: true,
	types.DraftApproved:      true,
}

func requireAmendable(d types.DraftPackage) error {
	if !amendableStatuses[d.Status] {
		return opfail.Newf(opfail.InvalidTransition, "draft:amend", d.ID,
			"amend only applies to Draft, PendingReview, or Approved drafts",
			"draft %s is in terminal or unamendable status %s", d.ID, d.Status)
	}
	return nil
}

func findArtifact(d *types.DraftPackage, uri string) (*types.Artifact, error) {
	for i := range d.Changes.Artifacts {
		if d.Changes.Artifacts[i].URI == uri {
			return &d.Changes.Artifacts[i], nil
		}
	}
	return nil, opfail.Newf(opfail.NotFound, "draft:amend", d.ID,
		"check the artifact URI against `draft view`", "no artifact %s in draft %s", uri, d.ID)
}

// Drop removes an artifact from the draft and logs the human override
// (spec §4.9 "Drop(uri)").
func Drop(d *types.DraftPackage, uri string) error {
	if err := requireAmendable(*d); err != nil {
		return err
	}
	if _, err := findArtifact(d, uri); err != nil {
		return err
	}
	out := d.Changes.Artifacts[:0]
	for _, a := range d.Changes.Artifacts {
		if a.URI != uri {
			out = append(out, a)
		}
	}
	d.Changes.Artifacts = out
	d.Plan.DecisionLog = append(d.Plan.DecisionLog, fmt.Sprintf("Human dropped %s", uri))
	return nil
}

// FileInputs bundles what File needs beyond the draft and uri: the
// corrected bytes' location, the goal's change store, and the overlay to
// write the corrected staging copy into.
type FileInputs struct {
	ChangeStore   changeset.Store
	GoalID        string
	Overlay       *overlay.Overlay
	CorrectedPath string
	AmendedBy     string
	Reason        string
}

// File replaces an artifact's staged content with human-corrected bytes,
// recomputing its diff against the current source if the source file still
// exists, or recording a fresh CreateFile otherwise (spec §4.9 "File(uri,
// corrected_path)").
func File(d *types.DraftPackage, uri string, in FileInputs) error {
	if err := requireAmendable(*d); err != nil {
		return err
	}
	artifact, err := findArtifact(d, uri)
	if err != nil {
		return err
	}

	corrected, err := os.ReadFile(in.CorrectedPath)
	if err != nil {
		return fmt.Errorf("read corrected file %s: %w", in.CorrectedPath, err)
	}

	relPath, ok := workspace.RelFromURI(uri)
	if !ok {
		return fmt.Errorf("not a workspace URI: %s", uri)
	}
	sourcePath := filepath.Join(in.Overlay.SourceDir, relPath)
	stagingPath := filepath.Join(in.Overlay.StagingDir, relPath)

	var diff changeset.DiffContent
	if sourceBytes, err := os.ReadFile(sourcePath); err == nil {
		diff = changeset.DiffContent{Kind: changeset.DiffUnifiedDiff, Content: overlay.UnifiedDiff(string(sourceBytes), string(corrected))}
	} else {
		diff = changeset.DiffContent{Kind: changeset.DiffCreateFile, Content: string(corrected), NewSize: int64(len(corrected))}
	}

	cs, err := changeset.New(NewID(), in.GoalID, uri, diff, "")
	if err != nil {
		return fmt.Errorf("build corrected changeset: %w", err)
	}
	if err := in.ChangeStore.Save(cs); err != nil {
		return fmt.Errorf("persist corrected changeset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(stagingPath), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(stagingPath, corrected, 0o600); err != nil {
		return fmt.Errorf("overwrite staging file: %w", err)
	}

	artifact.ChangeSetID = cs.ID
	artifact.Amendment = &types.AmendmentRecord{
		AmendedBy: in.AmendedBy,
		AmendedAt: time.Now().UTC(),
		Type:      types.AmendmentFileReplaced,
		Reason:    in.Reason,
	}
	artifact.Disposition = types.DispositionPending
	return nil
}
