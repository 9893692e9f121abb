// Package draft implements the Draft Package Pipeline (spec §4.4) and its
// amend/fix operations (spec §4.9): building a reviewable DraftPackage from
// an overlay's pending changes, and the human-correction and scoped-rework
// follow-ups.
package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/ids"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// Store is a per-entity JSON file store for DraftPackages, rooted at
// .ta/drafts, mirroring the per-entity layout internal/goal uses to avoid
// concurrent-process read-modify-write races.
type Store struct {
	dir string
}

func NewStore(taDir string) Store {
	return Store{dir: filepath.Join(taDir, "drafts")}
}

func (s Store) Save(d types.DraftPackage) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(s.dir, d.ID+".json"), data, 0o600)
}

func (s Store) Load(id string) (types.DraftPackage, error) {
	var d types.DraftPackage
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(data, &d)
	return d, err
}

// List returns every stored draft, optionally filtered by goal id, sorted
// by CreatedAt ascending.
func (s Store) List(goalID string) ([]types.DraftPackage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []types.DraftPackage
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var d types.DraftPackage
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse draft %s: %w", entry.Name(), err)
		}
		if goalID != "" && d.GoalID != goalID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// NewID returns a fresh draft id.
func NewID() string { return ids.New() }
