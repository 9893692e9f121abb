// Package config loads workflow.toml, the per-workspace build/apply/gc/
// submit settings file (spec §6 persisted layout).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// SummaryEnforcement controls draft build's reaction to artifacts with no
// explanation tiers and no exemption match.
type SummaryEnforcement string

const (
	SummaryIgnore SummaryEnforcement = "ignore"
	SummaryWarn   SummaryEnforcement = "warn"
	SummaryError  SummaryEnforcement = "error"
)

// Settings is the root workflow.toml document.
type Settings struct {
	SchemaVersion int             `toml:"schema_version"`
	Build         BuildSettings   `toml:"build,omitempty"`
	Apply         ApplySettings   `toml:"apply,omitempty"`
	GC            GCSettings      `toml:"gc,omitempty"`
	Submit        SubmitSettings  `toml:"submit,omitempty"`
	Display       DisplaySettings `toml:"display,omitempty"`
	Metadata      Metadata        `toml:"metadata,omitempty"`
}

type Metadata struct {
	UpdatedAt string `toml:"updated_at,omitempty"`
}

type BuildSettings struct {
	SummaryEnforcement SummaryEnforcement `toml:"summary_enforcement,omitempty"`
	ExemptPatterns     []string           `toml:"exempt_patterns,omitempty"`
}

type ApplySettings struct {
	DefaultConflictResolution string `toml:"default_conflict_resolution,omitempty"`
	RequireApproval           *bool  `toml:"require_approval,omitempty"`
}

type GCSettings struct {
	StalenessDays int   `toml:"staleness_days,omitempty"`
	Archive       *bool `toml:"archive,omitempty"`
}

type SubmitSettings struct {
	Adapter string `toml:"adapter,omitempty"` // "git" | "none"
	Remote  string `toml:"remote,omitempty"`
}

type DisplaySettings struct {
	DefaultDetail string `toml:"default_detail,omitempty"` // top|medium|full
	DefaultFormat string `toml:"default_format,omitempty"` // terminal|markdown|json|html
	Color         *bool  `toml:"color,omitempty"`
}

// defaultExemptPatterns are the exemption patterns the spec names by
// default; workspaces may override them via .ta/summary-exempt.
var defaultExemptPatterns = []string{
	"*lockfiles*", "Cargo.toml", "package.json", "pyproject.toml",
	"PLAN.md", "README.md", "CHANGELOG.md",
}

// Default returns the zero-config Settings, as used when workflow.toml is
// absent.
func Default() Settings {
	return Settings{
		SchemaVersion: 1,
		Build: BuildSettings{
			SummaryEnforcement: SummaryWarn,
			ExemptPatterns:     append([]string(nil), defaultExemptPatterns...),
		},
		Apply: ApplySettings{DefaultConflictResolution: "abort"},
		GC:    GCSettings{StalenessDays: 3},
		Submit: SubmitSettings{
			Adapter: "none",
		},
		Display: DisplaySettings{DefaultDetail: "medium", DefaultFormat: "terminal"},
	}
}

// ExemptPatterns returns the effective exemption patterns: configured ones,
// or the built-in default set when none are configured.
func (s Settings) ExemptPatterns() []string {
	if len(s.Build.ExemptPatterns) > 0 {
		return s.Build.ExemptPatterns
	}
	return defaultExemptPatterns
}

// Load reads workflow.toml from dir, falling back to Default() if it does
// not exist.
func Load(dir string) (Settings, error) {
	path := filepath.Join(dir, "workflow.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, err
	}
	settings := Default()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes Settings to dir/workflow.toml, stamping Metadata.UpdatedAt.
func Save(dir string, settings Settings) error {
	settings.Metadata.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := toml.Marshal(settings)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "workflow.toml"), data, 0o600)
}

// ExemptionPatterns reads .ta/summary-exempt (gitignore-like, one pattern
// per line, '#' comments), returning nil if absent.
func ExemptionPatterns(taDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(taDir, "summary-exempt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return parseLines(data), nil
}

func parseLines(data []byte) []string {
	var out []string
	line := make([]byte, 0, 64)
	flush := func() {
		s := string(line)
		line = line[:0]
		for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
			s = s[1:]
		}
		for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
			s = s[:len(s)-1]
		}
		if s == "" || s[0] == '#' {
			return
		}
		out = append(out, s)
	}
	for _, b := range data {
		if b == '\n' {
			flush()
			continue
		}
		line = append(line, b)
	}
	flush()
	return out
}
