// Package overlay implements the Overlay Workspace (spec §4.2): snapshot,
// staging copy, diff, and conflict-checked selective apply.
package overlay

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// defaultExcludes is the built-in exclude set applied to every overlay,
// mirroring common build-output directories across the toolchains an
// agent might touch.
var defaultExcludes = []string{
	"target/", "node_modules/", "__pycache__/", "*.pyc", ".venv/", "venv/",
	"dist/", "build/", ".build/", ".next/", ".cache/",
}

// ExcludeSet is the compiled set of rules a path is checked against, loaded
// from .taignore plus any caller-supplied patterns plus the built-in
// defaults.
type ExcludeSet struct {
	dirNames    map[string]bool
	suffixes    []string
	exactNames  map[string]bool
}

// LoadExcludeSet reads one pattern per line from .taignore under sourceDir
// ('#' starts a comment), and merges it with extra and the built-in
// default set.
func LoadExcludeSet(sourceDir string, extra []string) (ExcludeSet, error) {
	patterns := append([]string(nil), defaultExcludes...)
	patterns = append(patterns, extra...)

	taignore := filepath.Join(sourceDir, ".taignore")
	if f, err := os.Open(taignore); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	} else if !os.IsNotExist(err) {
		return ExcludeSet{}, err
	}

	set := ExcludeSet{
		dirNames:   map[string]bool{},
		exactNames: map[string]bool{},
	}
	for _, p := range patterns {
		switch {
		case strings.HasSuffix(p, "/"):
			set.dirNames[strings.TrimSuffix(p, "/")] = true
		case strings.HasPrefix(p, "*."):
			set.suffixes = append(set.suffixes, strings.TrimPrefix(p, "*"))
		default:
			set.exactNames[p] = true
		}
	}
	return set, nil
}

// Excludes reports whether relPath (slash-separated, relative to the
// overlay root) should be skipped — either because it's an infrastructure
// directory or because it matches a loaded exclude rule.
func (e ExcludeSet) Excludes(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if workspace.IsInfrastructurePath(relPath) {
		return true
	}
	parts := strings.Split(relPath, "/")
	for _, part := range parts {
		if e.dirNames[part] {
			return true
		}
	}
	name := parts[len(parts)-1]
	if e.exactNames[name] {
		return true
	}
	for _, suffix := range e.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
