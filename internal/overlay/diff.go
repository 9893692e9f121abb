package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// Change is one diffed file between staging and source (spec §4.2
// "DiffAll").
type Change struct {
	RelPath string
	URI     string
	Kind    types.ChangeType
	Diff    changeset.DiffContent
}

// DiffAll walks staging and source in parallel honoring the overlay's
// exclusion rules, producing a deterministic, path-sorted list of changes.
func (o *Overlay) DiffAll() ([]Change, error) {
	stagingFiles, err := listFiles(o.StagingDir, o.Excludes)
	if err != nil {
		return nil, fmt.Errorf("list staging files: %w", err)
	}
	sourceFiles, err := listFiles(o.SourceDir, o.Excludes)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}

	var changes []Change
	for rel := range union(stagingFiles, sourceFiles) {
		_, inStaging := stagingFiles[rel]
		_, inSource := sourceFiles[rel]
		stagingPath := filepath.Join(o.StagingDir, rel)
		sourcePath := filepath.Join(o.SourceDir, rel)

		switch {
		case inStaging && inSource:
			equal, err := filesEqual(stagingPath, sourcePath)
			if err != nil {
				return nil, err
			}
			if equal {
				continue
			}
			diff, err := modifiedDiff(sourcePath, stagingPath)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{RelPath: rel, URI: workspace.ToURI(rel), Kind: types.ChangeModify, Diff: diff})
		case inStaging:
			diff, err := createdDiff(stagingPath)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{RelPath: rel, URI: workspace.ToURI(rel), Kind: types.ChangeAdd, Diff: diff})
		case inSource:
			changes = append(changes, Change{RelPath: rel, URI: workspace.ToURI(rel), Kind: types.ChangeDelete, Diff: changeset.DiffContent{Kind: changeset.DiffDeleteFile}})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].RelPath < changes[j].RelPath })
	return changes, nil
}

func listFiles(root string, excludes ExcludeSet) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return out, nil
	}
	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if info.IsDir() {
			if excludes.Excludes(relSlash) {
				return filepath.SkipDir
			}
			return nil
		}
		if excludes.Excludes(relSlash) || !info.Mode().IsRegular() {
			return nil
		}
		out[relSlash] = struct{}{}
		return nil
	})
	return out, err
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func filesEqual(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	if len(da) != len(db) {
		return false, nil
	}
	for i := range da {
		if da[i] != db[i] {
			return false, nil
		}
	}
	return true, nil
}

func modifiedDiff(sourcePath, stagingPath string) (changeset.DiffContent, error) {
	sourceBinary, err := isBinary(sourcePath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	stagingBinary, err := isBinary(stagingPath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	if sourceBinary || stagingBinary {
		oldSize, err := fileSize(sourcePath)
		if err != nil {
			return changeset.DiffContent{}, err
		}
		newSize, err := fileSize(stagingPath)
		if err != nil {
			return changeset.DiffContent{}, err
		}
		return changeset.DiffContent{
			Kind:    changeset.DiffBinarySummary,
			Content: fmt.Sprintf("[binary file changed: %d -> %d bytes]", oldSize, newSize),
			OldSize: oldSize,
			NewSize: newSize,
		}, nil
	}

	oldBytes, err := os.ReadFile(sourcePath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	newBytes, err := os.ReadFile(stagingPath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	unified := unifiedDiff(string(oldBytes), string(newBytes))
	return changeset.DiffContent{Kind: changeset.DiffUnifiedDiff, Content: unified}, nil
}

func createdDiff(stagingPath string) (changeset.DiffContent, error) {
	binary, err := isBinary(stagingPath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	if binary {
		size, err := fileSize(stagingPath)
		if err != nil {
			return changeset.DiffContent{}, err
		}
		return changeset.DiffContent{
			Kind:    changeset.DiffBinarySummary,
			Content: fmt.Sprintf("[binary file: %d bytes]", size),
			NewSize: size,
		}, nil
	}
	data, err := os.ReadFile(stagingPath)
	if err != nil {
		return changeset.DiffContent{}, err
	}
	return changeset.DiffContent{Kind: changeset.DiffCreateFile, Content: string(data)}, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// unifiedDiff renders a line-based unified diff via go-diff's
// diff-match-patch line mode, matching the teacher's pack-sourced choice
// for textual diffing.
func unifiedDiff(oldText, newText string) string {
	return UnifiedDiff(oldText, newText)
}

// UnifiedDiff is the exported form used by the draft package's Amend.File
// path to recompute a diff against human-corrected content.
func UnifiedDiff(oldText, newText string) string {
	differ := dmp.New()
	a, b, lines := differ.DiffLinesToChars(oldText, newText)
	diffs := differ.DiffMain(a, b, false)
	diffs = differ.DiffCharsToLines(diffs, lines)
	return differ.PatchToText(differ.PatchMake(oldText, diffs))
}
