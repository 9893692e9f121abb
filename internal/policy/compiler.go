package policy

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/ids"
)

// AutonomyEnvelope bounds what an agent may and must escalate/never do.
type AutonomyEnvelope struct {
	BoundedActions      []string `yaml:"bounded_actions"`
	EscalationTriggers  []string `yaml:"escalation_triggers"`
	ForbiddenActions    []string `yaml:"forbidden_actions"`
}

// CoordinationConfig is an opaque passthrough for multi-agent coordination
// settings; the core does not interpret it (no multi-principal consensus,
// spec non-goals).
type CoordinationConfig map[string]string

// AlignmentProfile is the declarative input to the compiler (spec §3).
type AlignmentProfile struct {
	Principal      string              `yaml:"principal"`
	Envelope       AutonomyEnvelope    `yaml:"autonomy_envelope"`
	ConstitutionID string              `yaml:"constitution_id,omitempty"`
	Coordination   CoordinationConfig  `yaml:"coordination,omitempty"`
}

// LoadAlignmentProfile parses an AlignmentProfile from YAML bytes.
func LoadAlignmentProfile(data []byte) (AlignmentProfile, error) {
	var p AlignmentProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse alignment profile: %w", err)
	}
	return p, nil
}

// Compile turns an AlignmentProfile into a CapabilityManifest valid for ttl
// starting at issuedAt. It rejects profiles where a string appears in both
// bounded_actions and forbidden_actions (spec §3 invariant).
func Compile(profile AlignmentProfile, agentID string, issuedAt time.Time, ttl time.Duration) (CapabilityManifest, error) {
	forbidden := map[string]bool{}
	for _, f := range profile.Envelope.ForbiddenActions {
		forbidden[strings.TrimSpace(f)] = true
	}
	for _, b := range profile.Envelope.BoundedActions {
		if forbidden[strings.TrimSpace(b)] {
			return CapabilityManifest{}, fmt.Errorf("alignment profile: %q is both bounded and forbidden", b)
		}
	}

	var grants []CapabilityGrant
	for _, action := range profile.Envelope.BoundedActions {
		grant, err := parseBoundedAction(action)
		if err != nil {
			return CapabilityManifest{}, err
		}
		grants = append(grants, grant)
	}

	return CapabilityManifest{
		ID:        ids.New(),
		AgentID:   agentID,
		Grants:    grants,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// parseBoundedAction parses one bounded_actions entry as either
// "tool_verb" (split on the first underscore) or "exec: <command>" (spec
// §6 "Policy compiler input").
func parseBoundedAction(action string) (CapabilityGrant, error) {
	action = strings.TrimSpace(action)
	if rest, ok := strings.CutPrefix(action, "exec:"); ok {
		return CapabilityGrant{
			Tool:            "exec",
			Verb:            "run",
			ResourcePattern: strings.TrimSpace(rest),
		}, nil
	}
	idx := strings.Index(action, "_")
	if idx <= 0 || idx == len(action)-1 {
		return CapabilityGrant{}, fmt.Errorf("bounded action %q is not of the form tool_verb or exec: <command>", action)
	}
	tool := action[:idx]
	verbAndPattern := action[idx+1:]
	verb := verbAndPattern
	pattern := "fs://workspace/**"
	if sep := strings.Index(verbAndPattern, ":"); sep >= 0 {
		verb = verbAndPattern[:sep]
		pattern = strings.TrimSpace(verbAndPattern[sep+1:])
	}
	return CapabilityGrant{Tool: tool, Verb: verb, ResourcePattern: pattern}, nil
}
