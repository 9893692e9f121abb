// Package review implements the Review Session (spec §4.7): the
// interactive, multi-invocation reviewer loop over a draft's artifacts.
package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/ids"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// Store is a per-entity JSON file store for ReviewSessions, rooted at
// .ta/review_sessions.
type Store struct {
	dir string
}

func NewStore(taDir string) Store {
	return Store{dir: filepath.Join(taDir, "review_sessions")}
}

func (s Store) Save(r types.ReviewSession) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(s.dir, r.ID+".json"), data, 0o600)
}

func (s Store) Load(id string) (types.ReviewSession, error) {
	var r types.ReviewSession
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(data, &r)
	return r, err
}

// List returns every review session, optionally filtered to a draft id.
func (s Store) List(draftID string) ([]types.ReviewSession, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []types.ReviewSession
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var r types.ReviewSession
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse review session %s: %w", entry.Name(), err)
		}
		if draftID != "" && r.DraftID != draftID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindActive returns the most recently updated Active session for draftID,
// if one exists.
func (s Store) FindActive(draftID string) (types.ReviewSession, bool, error) {
	sessions, err := s.List(draftID)
	if err != nil {
		return types.ReviewSession{}, false, err
	}
	var best types.ReviewSession
	found := false
	for _, sess := range sessions {
		if sess.State != types.ReviewActive {
			continue
		}
		if !found || sess.UpdatedAt.After(best.UpdatedAt) {
			best = sess
			found = true
		}
	}
	return best, found, nil
}

// Start attaches to (or creates) an Active session for a draft, seeding its
// per-URI review map from the draft's current artifact dispositions.
func Start(store Store, draftID, reviewer string, artifacts []types.Artifact) (types.ReviewSession, error) {
	if existing, ok, err := store.FindActive(draftID); err != nil {
		return types.ReviewSession{}, err
	} else if ok {
		return existing, nil
	}
	now := time.Now().UTC()
	sess := types.ReviewSession{
		ID:        ids.New(),
		DraftID:   draftID,
		Reviewer:  reviewer,
		CreatedAt: now,
		UpdatedAt: now,
		State:     types.ReviewActive,
		Reviews:   map[string]types.ArtifactReview{},
	}
	for _, a := range artifacts {
		sess.Reviews[a.URI] = types.ArtifactReview{Disposition: a.Disposition}
	}
	if err := store.Save(sess); err != nil {
		return types.ReviewSession{}, err
	}
	return sess, nil
}

// Comment appends a comment to a URI's review thread.
func Comment(store Store, sessionID, uri, author, body string) (types.ReviewSession, error) {
	sess, err := store.Load(sessionID)
	if err != nil {
		return sess, err
	}
	review := sess.Reviews[uri]
	review.Comments = append(review.Comments, types.Comment{Author: author, Body: body, CreatedAt: time.Now().UTC()})
	sess.Reviews[uri] = review
	sess.UpdatedAt = time.Now().UTC()
	return sess, store.Save(sess)
}

// Next returns the next undecided (Pending) artifact URI in the session, in
// a stable order, and updates Focus.
func Next(store Store, sessionID string) (string, bool, error) {
	sess, err := store.Load(sessionID)
	if err != nil {
		return "", false, err
	}
	var uris []string
	for uri, r := range sess.Reviews {
		if r.Disposition == types.DispositionPending {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	if len(uris) == 0 {
		return "", false, nil
	}
	sess.Focus = uris[0]
	sess.UpdatedAt = time.Now().UTC()
	if err := store.Save(sess); err != nil {
		return "", false, err
	}
	return uris[0], true, nil
}

// Counts tallies each disposition across the session's reviews.
func Counts(sess types.ReviewSession) map[types.Disposition]int {
	out := map[types.Disposition]int{}
	for _, r := range sess.Reviews {
		out[r.Disposition]++
	}
	return out
}

// Finish freezes the session (Completed) without finalizing the draft —
// operators turn the plan into concrete approvals/rejections separately
// (spec §4.7).
func Finish(store Store, sessionID string) (types.ReviewSession, error) {
	sess, err := store.Load(sessionID)
	if err != nil {
		return sess, err
	}
	sess.State = types.ReviewCompleted
	sess.UpdatedAt = time.Now().UTC()
	return sess, store.Save(sess)
}
