// Package goal implements the Goal Lifecycle (spec §4.11, §3): the
// GoalRun state machine and its per-entity JSON file store under
// .ta/goals/<uuid>.json.
package goal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/ids"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// validTransitions is the GoalRunState graph (spec §4.11): any state may
// transition to Failed; Created->Configured->Running->PrReady->
// UnderReview->Approved->Applied->Completed, with one back-edge
// UnderReview->Running for re-work after denial.
var validTransitions = map[types.GoalRunState][]types.GoalRunState{
	types.GoalCreated:     {types.GoalConfigured, types.GoalFailed},
	types.GoalConfigured:  {types.GoalRunning, types.GoalFailed},
	types.GoalRunning:     {types.GoalPrReady, types.GoalFailed},
	types.GoalPrReady:     {types.GoalUnderReview, types.GoalFailed},
	types.GoalUnderReview: {types.GoalApproved, types.GoalRunning, types.GoalFailed},
	types.GoalApproved:    {types.GoalApplied, types.GoalFailed},
	types.GoalApplied:     {types.GoalCompleted, types.GoalFailed},
	types.GoalCompleted:   {types.GoalFailed},
	types.GoalFailed:      {},
}

// CanTransition reports whether from->to is a legal edge in the goal
// lifecycle graph.
func CanTransition(from, to types.GoalRunState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a state change, stamping UpdatedAt.
func Transition(g *types.GoalRun, to types.GoalRunState, reason string) error {
	if !CanTransition(g.State, to) {
		return opfail.Newf(opfail.InvalidTransition, "goal:transition", g.ID, "check the goal's current state before retrying",
			"invalid goal transition %s -> %s", g.State, to)
	}
	g.State = to
	if to == types.GoalFailed {
		g.FailureReason = reason
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// New creates a GoalRun in state Created.
func New(title, objective, agentID, sourceDir, workspaceDir, changeStoreDir string, parentGoalID string) types.GoalRun {
	now := time.Now().UTC()
	return types.GoalRun{
		ID:             ids.New(),
		Title:          title,
		Objective:      objective,
		AgentID:        agentID,
		State:          types.GoalCreated,
		SourceDir:      sourceDir,
		WorkspaceDir:   workspaceDir,
		ChangeStoreDir: changeStoreDir,
		ParentGoalID:   parentGoalID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Store is a per-entity JSON file store for GoalRuns, rooted at
// .ta/goals. One file per goal avoids the read-modify-write races a
// shared array file would force across concurrent CLI invocations
// (spec §5).
type Store struct {
	dir string
}

func NewStore(taDir string) Store {
	return Store{dir: filepath.Join(taDir, "goals")}
}

func (s Store) Save(g types.GoalRun) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(s.dir, g.ID+".json"), data, 0o600)
}

func (s Store) Load(id string) (types.GoalRun, error) {
	var g types.GoalRun
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return g, err
	}
	err = json.Unmarshal(data, &g)
	return g, err
}

func (s Store) Delete(id string) error {
	err := os.Remove(filepath.Join(s.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns every stored goal, optionally filtered by state, sorted by
// CreatedAt ascending.
func (s Store) List(state types.GoalRunState) ([]types.GoalRun, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []types.GoalRun
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var g types.GoalRun
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("parse goal %s: %w", entry.Name(), err)
		}
		if state != "" && g.State != state {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MostRecentRunning returns the most recently updated goal in state
// Running, used by `draft build` when no explicit goal is given.
func (s Store) MostRecentRunning() (types.GoalRun, bool, error) {
	goals, err := s.List(types.GoalRunning)
	if err != nil {
		return types.GoalRun{}, false, err
	}
	if len(goals) == 0 {
		return types.GoalRun{}, false, nil
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].UpdatedAt.After(goals[j].UpdatedAt) })
	return goals[0], true, nil
}
