package changeset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store is a durable collection of ChangeSets keyed by goal id, backed by
// one JSON file per changeset (spec §4.3).
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir (<store_path> in the spec's
// persisted layout).
func NewStore(dir string) Store {
	return Store{root: dir}
}

func (s Store) goalDir(goalID string) string {
	return filepath.Join(s.root, goalID)
}

// Save durably persists cs under its goal.
func (s Store) Save(cs ChangeSet) error {
	dir := s.goalDir(cs.GoalID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dir, cs.ID+".json"), data, 0o600)
}

// Get loads a single changeset by goal and id.
func (s Store) Get(goalID, id string) (ChangeSet, error) {
	var cs ChangeSet
	data, err := os.ReadFile(filepath.Join(s.goalDir(goalID), id+".json"))
	if err != nil {
		return cs, err
	}
	if err := json.Unmarshal(data, &cs); err != nil {
		return cs, fmt.Errorf("parse changeset %s: %w", id, err)
	}
	ok, err := VerifyHash(cs)
	if err != nil {
		return cs, err
	}
	if !ok {
		return cs, &ErrHashMismatch{ID: id}
	}
	return cs, nil
}

// List returns every changeset saved for goalID, in stable save-time order
// (the filename is the changeset's own uuid, so entries are sorted by
// modification time to honor "stable iteration order by save time").
func (s Store) List(goalID string) ([]ChangeSet, error) {
	dir := s.goalDir(goalID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type timed struct {
		cs  ChangeSet
		mod int64
	}
	var all []timed
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var cs ChangeSet
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("parse changeset %s: %w", entry.Name(), err)
		}
		all = append(all, timed{cs: cs, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].mod < all[j].mod })
	out := make([]ChangeSet, len(all))
	for i, t := range all {
		out[i] = t.cs
	}
	return out, nil
}
