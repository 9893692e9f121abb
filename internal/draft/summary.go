package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// changeSummaryEntry is one artifact's agent-authored enrichment inside
// change_summary.json (spec §4.4 step 4).
type changeSummaryEntry struct {
	What                   string   `json:"what,omitempty"`
	Why                    string   `json:"why,omitempty"`
	DependsOn              []string `json:"depends_on,omitempty"`
	DependedBy             []string `json:"depended_by,omitempty"`
	AlternativesConsidered []string `json:"alternatives_considered,omitempty"`
}

// changeSummary is the optional agent-authored enrichment document staged
// alongside the overlay's changes.
type changeSummary struct {
	Artifacts       map[string]changeSummaryEntry `json:"artifacts,omitempty"`
	DependencyNotes []string                      `json:"dependency_notes,omitempty"`
}

// loadChangeSummary reads change_summary.json from staging, returning a
// nil summary (no error) if it's absent or unparsable — enrichment is
// best-effort, never a build blocker (spec §4.4: "if present and
// parsable").
func loadChangeSummary(stagingDir string) *changeSummary {
	data, err := os.ReadFile(filepath.Join(stagingDir, "change_summary.json"))
	if err != nil {
		return nil
	}
	var cs changeSummary
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil
	}
	return &cs
}

// applyChangeSummary enriches artifact from its change_summary.json entry
// (spec §4.4 step 4).
func applyChangeSummary(artifact *types.Artifact, entry changeSummaryEntry, decisionLog *[]string) {
	switch {
	case entry.What != "":
		ensureTiers(artifact).Summary = entry.What
		if entry.Why != "" {
			ensureTiers(artifact).Explanation = entry.Why
		}
	case entry.Why != "":
		artifact.Rationale = entry.Why
	}

	for _, uri := range entry.DependsOn {
		artifact.Dependencies = append(artifact.Dependencies, types.ChangeDependency{TargetURI: uri, Kind: types.DependsOn})
	}
	for _, uri := range entry.DependedBy {
		artifact.Dependencies = append(artifact.Dependencies, types.ChangeDependency{TargetURI: uri, Kind: types.DependedBy})
	}

	if len(entry.AlternativesConsidered) > 0 && decisionLog != nil {
		for _, alt := range entry.AlternativesConsidered {
			*decisionLog = append(*decisionLog, fmt.Sprintf("%s: considered %s", artifact.URI, alt))
		}
	}
}

func ensureTiers(a *types.Artifact) *types.ExplanationTiers {
	if a.ExplanationTiers == nil {
		a.ExplanationTiers = &types.ExplanationTiers{}
	}
	return a.ExplanationTiers
}

// sidecarExplanation is the shape of <file>.diff.explanation.yaml overlays
// (spec §4.4 step 5).
type sidecarExplanation struct {
	Summary          string   `yaml:"summary,omitempty"`
	Explanation      string   `yaml:"explanation,omitempty"`
	Tags             []string `yaml:"tags,omitempty"`
	RelatedArtifacts []string `yaml:"related_artifacts,omitempty"`
}

// loadSidecar reads <stagingDir>/<relPath>.diff.explanation.yaml, returning
// nil if absent or unparsable.
func loadSidecar(stagingDir, relPath string) *sidecarExplanation {
	data, err := os.ReadFile(filepath.Join(stagingDir, relPath+".diff.explanation.yaml"))
	if err != nil {
		return nil
	}
	var s sidecarExplanation
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}

// applySidecar overlays a sidecar's fields onto the artifact's tiers,
// sidecar values taking precedence over change_summary.json (it is the
// more specific, per-file source).
func applySidecar(artifact *types.Artifact, s *sidecarExplanation) {
	tiers := ensureTiers(artifact)
	if s.Summary != "" {
		tiers.Summary = s.Summary
	}
	if s.Explanation != "" {
		tiers.Explanation = s.Explanation
	}
	if len(s.Tags) > 0 {
		tiers.Tags = s.Tags
	}
	if len(s.RelatedArtifacts) > 0 {
		tiers.RelatedArtifacts = s.RelatedArtifacts
	}
}
