// Package policy implements the Policy Engine (spec §4.1) and Policy
// Compiler (spec §4.4/§6): evaluating action requests against a
// time-bounded CapabilityManifest compiled from an AlignmentProfile.
package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// CapabilityGrant is one tool/verb/resource-pattern triple a manifest
// authorizes.
type CapabilityGrant struct {
	Tool           string `json:"tool" yaml:"tool"`
	Verb           string `json:"verb" yaml:"verb"`
	ResourcePattern string `json:"resource_pattern" yaml:"resource_pattern"`
}

// CapabilityManifest is the compiled, time-bounded set of grants enforced
// by the Policy Engine (spec §3). It is immutable once issued.
type CapabilityManifest struct {
	ID        string             `json:"id"`
	AgentID   string             `json:"agent_id"`
	Grants    []CapabilityGrant  `json:"grants"`
	IssuedAt  time.Time          `json:"issued_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Expired reports whether the manifest is no longer valid at now.
func (m CapabilityManifest) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Save persists the manifest as a single JSON file, grounded on the
// teacher's per-entity JSON-file store convention.
func (m CapabilityManifest) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dir, m.ID+".json"), data, 0o600)
}

// Load reads a manifest previously written by Save.
func Load(dir, id string) (CapabilityManifest, error) {
	var m CapabilityManifest
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}
