package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// ResolutionStrategy controls how true conflicts are handled during apply
// (spec §4.2).
type ResolutionStrategy string

const (
	Abort          ResolutionStrategy = "Abort"
	ForceOverwrite ResolutionStrategy = "ForceOverwrite"
	Merge          ResolutionStrategy = "Merge"
)

// Conflict is one file whose current source state diverges from its
// snapshot.
type Conflict struct {
	RelPath string
	// Overlapping is true if RelPath's URI is in the caller's artifact set.
	Overlapping bool
}

// ApplyOptions configures ApplyWithConflictCheck.
type ApplyOptions struct {
	TargetDir    string
	Resolution   ResolutionStrategy
	ArtifactURIs map[string]bool // authoritative set the draft intends to change
}

// AppliedFile is one file written or deleted by apply.
type AppliedFile struct {
	RelPath string
	Kind    types.ChangeType
}

// ApplyResult is the outcome of a successful apply.
type ApplyResult struct {
	Applied         []AppliedFile
	PhantomResolved []string // URIs dropped from the apply set as phantom conflicts
	Informational   []Conflict
}

// ApplyWithConflictCheck implements spec §4.2's conflict-check-and-apply
// algorithm: it compares the stored snapshot against whatever opts.TargetDir
// currently contains, auto-resolves phantom conflicts (the agent never
// touched the file; only source drifted), and applies the changes list
// filtered to the (possibly narrowed) authoritative URI set.
func (o *Overlay) ApplyWithConflictCheck(changes []Change, opts ApplyOptions) (ApplyResult, error) {
	conflicts, err := o.detectConflicts(opts.TargetDir)
	if err != nil {
		return ApplyResult{}, opfail.New(opfail.IOError, "apply:detect-conflicts", opts.TargetDir, "check target directory permissions", err)
	}

	var overlapping, informational []Conflict
	for _, c := range conflicts {
		uri := workspace.ToURI(c.RelPath)
		c.Overlapping = opts.ArtifactURIs[uri]
		if c.Overlapping {
			overlapping = append(overlapping, c)
		} else {
			informational = append(informational, c)
		}
	}

	excludeFromApply := map[string]bool{}
	var phantomResolved []string
	var trueConflicts []Conflict
	for _, c := range overlapping {
		phantom, err := o.isPhantomConflict(c.RelPath)
		if err != nil {
			return ApplyResult{}, opfail.New(opfail.IOError, "apply:phantom-check", c.RelPath, "inspect staging/snapshot state", err)
		}
		if phantom {
			excludeFromApply[workspace.ToURI(c.RelPath)] = true
			phantomResolved = append(phantomResolved, workspace.ToURI(c.RelPath))
			continue
		}
		trueConflicts = append(trueConflicts, c)
	}

	if len(trueConflicts) > 0 {
		switch opts.Resolution {
		case ForceOverwrite:
			// warn and continue; caller is responsible for surfacing the warning
		case Merge:
			return ApplyResult{}, opfail.New(opfail.ConflictDetected, "apply:conflict", "", "use a VCS adapter to merge; no built-in merge", fmt.Errorf("merge requires a VCS adapter"))
		default: // Abort
			names := make([]string, len(trueConflicts))
			for i, c := range trueConflicts {
				names[i] = c.RelPath
			}
			sort.Strings(names)
			return ApplyResult{}, opfail.New(opfail.ConflictDetected, "apply:conflict", fmt.Sprintf("%v", names), "resolve conflicts manually or retry with --conflict-resolution force-overwrite", fmt.Errorf("conflict detected in: %v", names))
		}
	}

	applied, err := applyChanges(changes, o.StagingDir, opts.TargetDir, opts.ArtifactURIs, excludeFromApply)
	if err != nil {
		return ApplyResult{}, opfail.New(opfail.IOError, "apply:write", opts.TargetDir, "check target directory permissions and retry", err)
	}

	return ApplyResult{Applied: applied, PhantomResolved: phantomResolved, Informational: informational}, nil
}

// detectConflicts walks the snapshot and checks each file against
// opts.TargetDir, then scans the target for files absent from the
// snapshot entirely — both count as conflicts per spec §4.2 step 1.
func (o *Overlay) detectConflicts(targetDir string) ([]Conflict, error) {
	var conflicts []Conflict
	for rel, snap := range o.Snapshot.Files {
		targetPath := filepath.Join(targetDir, rel)
		info, err := os.Stat(targetPath)
		if err != nil {
			if os.IsNotExist(err) {
				conflicts = append(conflicts, Conflict{RelPath: rel})
				continue
			}
			return nil, err
		}
		if info.ModTime().Unix() == snap.MtimeSecs {
			continue
		}
		hash, _, err := hashFile(targetPath)
		if err != nil {
			return nil, err
		}
		if hash != snap.ContentHash {
			conflicts = append(conflicts, Conflict{RelPath: rel})
		}
	}

	newFiles, err := listFiles(targetDir, o.Excludes)
	if err != nil {
		return nil, err
	}
	for rel := range newFiles {
		if _, known := o.Snapshot.Files[rel]; !known {
			conflicts = append(conflicts, Conflict{RelPath: rel})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].RelPath < conflicts[j].RelPath })
	return conflicts, nil
}

// isPhantomConflict compares the file's staging content hash against its
// snapshot content hash: equal means the agent never modified it, so the
// conflict is caused purely by concurrent source drift (spec §4.2 step 3,
// §9 glossary "Phantom conflict"). A file with no snapshot entry (it was
// created after the goal started) or an agent-deleted staging file are
// both treated as true conflicts — the heuristic only applies to files the
// snapshot and staging can be directly compared against.
func (o *Overlay) isPhantomConflict(relPath string) (bool, error) {
	snap, ok := o.Snapshot.Files[relPath]
	if !ok {
		return false, nil
	}
	stagingPath := filepath.Join(o.StagingDir, relPath)
	if _, err := os.Stat(stagingPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	hash, _, err := hashFile(stagingPath)
	if err != nil {
		return false, err
	}
	return hash == snap.ContentHash, nil
}

func applyChanges(changes []Change, stagingDir, targetDir string, artifactURIs map[string]bool, excluded map[string]bool) ([]AppliedFile, error) {
	var applied []AppliedFile
	for _, c := range changes {
		if !artifactURIs[c.URI] {
			continue
		}
		if excluded[c.URI] {
			continue
		}
		targetPath := filepath.Join(targetDir, c.RelPath)
		switch c.Kind {
		case types.ChangeDelete:
			if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
				return nil, err
			}
		default: // Add, Modify
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return nil, err
			}
			if err := copyFile(filepath.Join(stagingDir, c.RelPath), targetPath, 0o644); err != nil {
				return nil, err
			}
		}
		applied = append(applied, AppliedFile{RelPath: c.RelPath, Kind: c.Kind})
	}
	return applied, nil
}
