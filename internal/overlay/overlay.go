package overlay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// binarySniffBytes is the fixed threshold (spec §9 design note) scanned
// for a null byte to classify a file as binary.
const binarySniffBytes = 8 * 1024

// Overlay is a created, on-disk staging copy of a source tree plus the
// snapshot captured at creation time, used by DiffAll and the
// conflict-checked apply path.
type Overlay struct {
	GoalID     string
	SourceDir  string
	StagingDir string
	Excludes   ExcludeSet
	Snapshot   types.SourceSnapshot
}

// Create walks sourceDir, copying every non-excluded file into
// stagingRoot/<goalID>/ and simultaneously capturing a SourceSnapshot
// (spec §4.2 "Create"). Snapshot capture failures for individual files are
// tolerated (logged via the returned error being nil and the file simply
// absent from the snapshot) since conflict detection degrades gracefully,
// not the overlay's core purpose of letting the agent work.
func Create(goalID, sourceDir, stagingRoot string, excludePatterns []string) (*Overlay, error) {
	excludes, err := LoadExcludeSet(sourceDir, excludePatterns)
	if err != nil {
		return nil, fmt.Errorf("load exclude rules: %w", err)
	}
	stagingDir := filepath.Join(stagingRoot, goalID)
	if err := os.MkdirAll(stagingDir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	snapshot := types.SourceSnapshot{Files: map[string]types.FileSnapshot{}}

	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(sourceDir, path)
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
		if excludes.Excludes(relSlash) {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		hash, size, err := hashFile(path)
		if err != nil {
			return nil
		}
		snapshot.Files[relSlash] = types.FileSnapshot{
			Path:        relSlash,
			MtimeSecs:   info.ModTime().Unix(),
			ContentHash: hash,
			SizeBytes:   size,
		}

		destPath := filepath.Join(stagingDir, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
			return err
		}
		return copyFile(path, destPath, info.Mode())
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot/copy source tree: %w", err)
	}

	return &Overlay{
		GoalID:     goalID,
		SourceDir:  sourceDir,
		StagingDir: stagingDir,
		Excludes:   excludes,
		Snapshot:   snapshot,
	}, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// isBinary reports whether the first binarySniffBytes bytes of path
// contain a null byte.
func isBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	buf := make([]byte, binarySniffBytes)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true, nil
		}
	}
	return false, nil
}
