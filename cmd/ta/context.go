package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/audit"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/changeset"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/config"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/draft"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/goal"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/review"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/submit"
)

// workspaceRoot walks up from the current directory looking for a .ta
// directory, the way git walks up looking for .git. If none is found,
// the current directory is used as the workspace root: settings and
// stores under a missing .ta read as defaults or empty lists, and any
// verb that saves state creates .ta as it writes.
func workspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if info, statErr := os.Stat(filepath.Join(dir, ".ta")); statErr == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return os.Getwd()
		}
		dir = parent
	}
}

// context bundles every store and setting the CLI verbs need, resolved
// once per invocation against the discovered workspace root.
type context struct {
	WorkspaceDir string
	TaDir        string
	Settings     config.Settings
	GoalStore    goal.Store
	DraftStore   draft.Store
	ChangeStore  changeset.Store
	ReviewStore  review.Store
	AuditLog     audit.Log
}

func loadContext() (context, error) {
	root, err := workspaceRoot()
	if err != nil {
		return context{}, err
	}
	taDir := filepath.Join(root, ".ta")
	settings, err := config.Load(taDir)
	if err != nil {
		return context{}, fmt.Errorf("load workflow.toml: %w", err)
	}
	return context{
		WorkspaceDir: root,
		TaDir:        taDir,
		Settings:     settings,
		GoalStore:    goal.NewStore(taDir),
		DraftStore:   draft.NewStore(taDir),
		ChangeStore:  changeset.NewStore(filepath.Join(taDir, "changesets")),
		ReviewStore:  review.NewStore(taDir),
		AuditLog:     audit.NewLog(taDir),
	}, nil
}

func (c context) stagingRoot() string {
	return filepath.Join(c.TaDir, "staging")
}

func (c context) manifestsDir() string {
	return filepath.Join(c.TaDir, "manifests")
}

func (c context) submitAdapter() submit.Adapter {
	return submit.Resolve(c.Settings.Submit.Adapter, c.Settings.Submit.Remote)
}
