// Package drift implements the Drift Engine (spec §4.6): per-agent
// BehavioralBaseline storage and the six drift signals computed against
// recent audit/draft activity.
package drift

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// Severity is the max-ordered severity of a finding or report.
type Severity string

const (
	Normal  Severity = "Normal"
	Warning Severity = "Warning"
	Alert   Severity = "Alert"
)

func maxSeverity(a, b Severity) Severity {
	rank := map[Severity]int{Normal: 0, Warning: 1, Alert: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Finding is one signal's computed result.
type Finding struct {
	Signal   string   `json:"signal"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// Report is the Drift Engine's output (spec §4.6).
type Report struct {
	Findings        []Finding `json:"findings"`
	OverallSeverity Severity  `json:"overall_severity"`
}

// dependencyFileNames are the per-language dependency manifests the
// DependencyPattern signal counts edits against (spec §4.6 table).
var dependencyFileNames = map[string]bool{
	"Cargo.toml": true, "package.json": true, "go.mod": true,
	"requirements.txt": true, "pyproject.toml": true,
}

func isDependencyFile(uri string) bool {
	name := uri
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		name = uri[idx+1:]
	}
	if dependencyFileNames[name] {
		return true
	}
	return strings.Contains(strings.ToLower(name), "lock")
}

// BaselineStore persists BehavioralBaselines at .ta/baselines/<agent_id>.json.
type BaselineStore struct {
	dir string
}

func NewBaselineStore(taDir string) BaselineStore {
	return BaselineStore{dir: filepath.Join(taDir, "baselines")}
}

func (s BaselineStore) Save(b types.BehavioralBaseline) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(s.dir, b.AgentID+".json"), data, 0o600)
}

func (s BaselineStore) Load(agentID string) (types.BehavioralBaseline, bool, error) {
	var b types.BehavioralBaseline
	data, err := os.ReadFile(filepath.Join(s.dir, agentID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return b, false, nil
		}
		return b, false, err
	}
	err = json.Unmarshal(data, &b)
	return b, true, err
}

// Recompute builds a fresh BehavioralBaseline from a set of prior draft
// summaries plus the agent's historical escalation counts from the audit
// log, recomputed on demand from the audit log and prior drafts (spec
// §4.6). escalations/totalActions are the lifetime counts of
// side-effect-verb RequireApproval/Deny events versus all recorded
// actions for this agent; EscalationRate is their ratio, the baseline the
// EscalationFrequency signal later diffs the recent-window rate against.
func Recompute(agentID string, uriPrefixes []string, summaries []types.DraftSummary, escalations, totalActions int) types.BehavioralBaseline {
	if len(summaries) == 0 {
		return types.BehavioralBaseline{
			AgentID:        agentID,
			URIPrefixes:    uriPrefixes,
			EscalationRate: rate(escalations, totalActions),
			ComputedAt:     time.Now().UTC(),
		}
	}
	var totalArtifacts, totalRisk, rejected float64
	for _, s := range summaries {
		totalArtifacts += float64(s.ArtifactCount)
		totalRisk += s.RiskScore
		if s.Rejected {
			rejected++
		}
	}
	n := float64(len(summaries))
	return types.BehavioralBaseline{
		AgentID:          agentID,
		SampleGoalCount:  len(summaries),
		URIPrefixes:      uriPrefixes,
		AvgArtifactCount: totalArtifacts / n,
		AvgRiskScore:     totalRisk / n,
		RejectionRate:    rejected / n,
		EscalationRate:   rate(escalations, totalActions),
		ComputedAt:       time.Now().UTC(),
	}
}

// RecentActivity is the input the Drift Engine consumes alongside an
// optional baseline (spec §4.6).
type RecentActivity struct {
	AccessedURIs []string
	Summaries    []types.DraftSummary
	Escalations  int // side-effect-verb RequireApproval/Deny events observed
	TotalActions int
}

// Evaluate computes all six drift signals from recent activity against
// baseline, per the thresholds in spec §4.6's table.
func Evaluate(baseline types.BehavioralBaseline, recent RecentActivity) Report {
	if baseline.SampleGoalCount == 0 {
		// Insufficient baseline: report Normal for every signal rather than
		// dividing by zero (resolves an original_source-documented edge
		// case; see DESIGN.md Open Question decisions).
		findings := make([]Finding, 0, 6)
		for _, name := range []string{"ResourceScope", "EscalationFrequency", "RejectionRate", "ChangeVolume", "DependencyPattern", "ConstitutionViolation"} {
			findings = append(findings, Finding{Signal: name, Severity: Normal, Detail: "insufficient_baseline"})
		}
		return Report{Findings: findings, OverallSeverity: Normal}
	}

	var findings []Finding
	overall := Normal

	resourceScope := evalResourceScope(baseline, recent)
	findings = append(findings, resourceScope)
	overall = maxSeverity(overall, resourceScope.Severity)

	escalation := evalRate("EscalationFrequency", rate(recent.Escalations, recent.TotalActions), baseline.EscalationRate, 0.20, 0.50)
	findings = append(findings, escalation)
	overall = maxSeverity(overall, escalation.Severity)

	rejectionRate := evalRecentRejectionRate(recent.Summaries)
	rejection := evalRate("RejectionRate", rejectionRate, baseline.RejectionRate, 0.20, 0.50)
	findings = append(findings, rejection)
	overall = maxSeverity(overall, rejection.Severity)

	volume := evalChangeVolume(baseline, recent)
	findings = append(findings, volume)
	overall = maxSeverity(overall, volume.Severity)

	dependency := evalDependencyPattern(recent)
	findings = append(findings, dependency)
	overall = maxSeverity(overall, dependency.Severity)

	constitution := evalConstitutionViolation(recent)
	findings = append(findings, constitution)
	overall = maxSeverity(overall, constitution.Severity)

	return Report{Findings: findings, OverallSeverity: overall}
}

func rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func evalResourceScope(baseline types.BehavioralBaseline, recent RecentActivity) Finding {
	if len(recent.AccessedURIs) == 0 {
		return Finding{Signal: "ResourceScope", Severity: Normal}
	}
	novel := 0
	for _, uri := range recent.AccessedURIs {
		if !hasAnyPrefix(uri, baseline.URIPrefixes) {
			novel++
		}
	}
	frac := float64(novel) / float64(len(recent.AccessedURIs))
	sev := Normal
	switch {
	case frac > 0.5:
		sev = Alert
	case frac > 0.2:
		sev = Warning
	}
	return Finding{Signal: "ResourceScope", Severity: sev, Detail: percentDetail(frac)}
}

func hasAnyPrefix(uri string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(uri, p) {
			return true
		}
	}
	return false
}

func evalRate(signal string, recentRate, baselineRate, warnAt, alertAt float64) Finding {
	delta := math.Abs(recentRate - baselineRate)
	sev := Normal
	switch {
	case delta >= alertAt:
		sev = Alert
	case delta >= warnAt:
		sev = Warning
	}
	return Finding{Signal: signal, Severity: sev}
}

func evalRecentRejectionRate(summaries []types.DraftSummary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	rejected := 0
	for _, s := range summaries {
		if s.Rejected {
			rejected++
		}
	}
	return float64(rejected) / float64(len(summaries))
}

func evalChangeVolume(baseline types.BehavioralBaseline, recent RecentActivity) Finding {
	if len(recent.Summaries) == 0 || baseline.AvgArtifactCount == 0 {
		return Finding{Signal: "ChangeVolume", Severity: Normal}
	}
	total := 0
	for _, s := range recent.Summaries {
		total += s.ArtifactCount
	}
	recentAvg := float64(total) / float64(len(recent.Summaries))
	ratio := recentAvg / baseline.AvgArtifactCount
	sev := Normal
	switch {
	case ratio >= 3 || ratio <= 1.0/3.0:
		sev = Alert
	case ratio >= 2 || ratio <= 0.5:
		sev = Warning
	}
	return Finding{Signal: "ChangeVolume", Severity: sev}
}

func evalDependencyPattern(recent RecentActivity) Finding {
	if len(recent.Summaries) == 0 {
		return Finding{Signal: "DependencyPattern", Severity: Normal}
	}
	depHits := 0
	for _, uri := range recent.AccessedURIs {
		if isDependencyFile(uri) {
			depHits++
		}
	}
	perDraft := float64(depHits) / float64(len(recent.Summaries))
	sev := Normal
	switch {
	case perDraft > 2:
		sev = Alert
	case perDraft > 0.5:
		sev = Warning
	}
	return Finding{Signal: "DependencyPattern", Severity: sev}
}

func evalConstitutionViolation(recent RecentActivity) Finding {
	// The caller (drift pipeline orchestration) pre-computes the undeclared
	// fraction via internal/constitution.Validate and folds it into
	// recent.Summaries' dependency-artifact-count-style bookkeeping; here we
	// only classify a pre-supplied undeclared count carried via
	// DependencyArtifactCount for goals that have a constitution, since the
	// Drift Engine itself has no direct YAML access.
	if len(recent.Summaries) == 0 {
		return Finding{Signal: "ConstitutionViolation", Severity: Normal}
	}
	var totalArtifacts, undeclared int
	for _, s := range recent.Summaries {
		totalArtifacts += s.ArtifactCount
		undeclared += s.DependencyArtifactCount
	}
	if totalArtifacts == 0 {
		return Finding{Signal: "ConstitutionViolation", Severity: Normal}
	}
	frac := float64(undeclared) / float64(totalArtifacts)
	sev := Normal
	switch {
	case frac > 0.5:
		sev = Alert
	case undeclared > 0:
		sev = Warning
	}
	return Finding{Signal: "ConstitutionViolation", Severity: sev, Detail: percentDetail(frac)}
}

func percentDetail(frac float64) string {
	return fmt.Sprintf("%.1f%%", frac*100)
}
