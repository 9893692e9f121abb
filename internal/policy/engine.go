package policy

import (
	"fmt"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/globmatch"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/workspace"
)

// Request is one action an agent asks the engine to authorize.
type Request struct {
	AgentID   string
	Tool      string
	Verb      string
	TargetURI string
}

// DecisionKind enumerates the three possible policy outcomes.
type DecisionKind string

const (
	Allow           DecisionKind = "Allow"
	Deny            DecisionKind = "Deny"
	RequireApproval DecisionKind = "RequireApproval"
)

// Decision is the engine's verdict on a Request.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// approvalVerbs are the side-effect verbs that always require human
// approval even when a grant matches (spec §4.1 step 4).
var approvalVerbs = map[string]bool{
	"apply":  true,
	"commit": true,
	"send":   true,
	"post":   true,
}

// Engine evaluates PolicyRequests against loaded manifests. It is pure —
// no I/O during Evaluate — and deterministic under single-threaded use.
type Engine struct {
	manifests map[string]CapabilityManifest
}

// NewEngine returns an Engine with no manifests loaded.
func NewEngine() *Engine {
	return &Engine{manifests: map[string]CapabilityManifest{}}
}

// LoadManifest installs (overwriting any prior) manifest for its agent.
func (e *Engine) LoadManifest(m CapabilityManifest) {
	e.manifests[m.AgentID] = m
}

// Evaluate implements the fixed, short-circuiting five-step decision order
// from spec §4.1.
func (e *Engine) Evaluate(req Request, now time.Time) Decision {
	// 1. Path traversal is checked on the raw URI to catch every encoding.
	if workspace.ContainsTraversal(req.TargetURI) {
		return Decision{Kind: Deny, Reason: "path traversal"}
	}

	// 2. No manifest for this agent.
	manifest, ok := e.manifests[req.AgentID]
	if !ok {
		return Decision{Kind: Deny, Reason: "no manifest"}
	}

	// 3. Expired manifest denies everything.
	if manifest.Expired(now) {
		return Decision{Kind: Deny, Reason: "expired"}
	}

	hasGrant := grantMatches(manifest.Grants, req)

	// 4. Side-effect verbs require a grant AND human approval.
	if approvalVerbs[req.Verb] {
		if !hasGrant {
			return Decision{Kind: Deny, Reason: fmt.Sprintf("no grant for verb %q", req.Verb)}
		}
		return Decision{Kind: RequireApproval, Reason: fmt.Sprintf("verb %q requires approval", req.Verb)}
	}

	// 5. Otherwise, allow iff a grant matches.
	if hasGrant {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: Deny, Reason: "no grant"}
}

func grantMatches(grants []CapabilityGrant, req Request) bool {
	for _, g := range grants {
		if g.Tool != req.Tool || g.Verb != req.Verb {
			continue
		}
		if globmatch.Match(g.ResourcePattern, req.TargetURI) {
			return true
		}
	}
	return false
}
