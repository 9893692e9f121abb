// Package constitution implements the Access Constitution (spec §3, §4.6):
// a per-goal declared URI scope, stored as YAML under
// .ta/constitutions/goal-<id>.yaml, validated against artifact URIs with
// the same glob dialect the Policy Engine uses.
package constitution

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/globmatch"
)

// Enforcement controls how an undeclared access is surfaced.
type Enforcement string

const (
	EnforcementWarning Enforcement = "warning"
	EnforcementError   Enforcement = "error"
)

// Entry is one declared-intent pattern.
type Entry struct {
	Pattern string `yaml:"pattern"`
	Intent  string `yaml:"intent"`
}

// Constitution is the per-goal declared intent document.
type Constitution struct {
	GoalID      string      `yaml:"goal_id"`
	Creator     string      `yaml:"creator"`
	CreatedAt   time.Time   `yaml:"created_at"`
	Entries     []Entry     `yaml:"entries"`
	Enforcement Enforcement `yaml:"enforcement"`
}

// Path returns the canonical on-disk path for a goal's constitution.
func Path(taDir, goalID string) string {
	return filepath.Join(taDir, "constitutions", fmt.Sprintf("goal-%s.yaml", goalID))
}

// Load reads a Constitution from its canonical path. ok is false (with a
// nil error) if no constitution exists for this goal.
func Load(taDir, goalID string) (Constitution, bool, error) {
	data, err := os.ReadFile(Path(taDir, goalID))
	if err != nil {
		if os.IsNotExist(err) {
			return Constitution{}, false, nil
		}
		return Constitution{}, false, err
	}
	var c Constitution
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Constitution{}, false, fmt.Errorf("parse constitution for goal %s: %w", goalID, err)
	}
	return c, true, nil
}

// Save writes a Constitution to its canonical path.
func Save(taDir string, c Constitution) error {
	dir := filepath.Join(taDir, "constitutions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(taDir, c.GoalID), data, 0o600)
}

// Validation is the result of checking a set of artifact URIs against a
// Constitution (spec §4.6).
type Validation struct {
	Declared    []string
	Undeclared  []string
	Unused      []string
	Enforcement Enforcement
}

// Validate matches uris against c's entries, reporting declared matches,
// undeclared (unmatched) URIs, and unused declared patterns.
func Validate(c Constitution, uris []string) Validation {
	matchedPattern := make(map[string]bool, len(c.Entries))
	v := Validation{Enforcement: c.Enforcement}
	for _, uri := range uris {
		matched := false
		for _, entry := range c.Entries {
			if globmatch.Match(globmatch.Anchor(entry.Pattern), uri) {
				matched = true
				matchedPattern[entry.Pattern] = true
			}
		}
		if matched {
			v.Declared = append(v.Declared, uri)
		} else {
			v.Undeclared = append(v.Undeclared, uri)
		}
	}
	for _, entry := range c.Entries {
		if !matchedPattern[entry.Pattern] {
			v.Unused = append(v.Unused, entry.Pattern)
		}
	}
	return v
}
