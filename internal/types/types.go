// Package types holds the data model records shared across the draft,
// supervisor, review, goal, drift, and audit packages — GoalRun,
// DraftPackage, Artifact, ReviewSession, BehavioralBaseline, and
// AuditEvent (spec §3). Keeping them in one leaf package lets the
// components above operate on the same records without importing each
// other.
package types

import "time"

// GoalRunState is a node in the goal lifecycle graph (spec §4.11).
type GoalRunState string

const (
	GoalCreated     GoalRunState = "Created"
	GoalConfigured  GoalRunState = "Configured"
	GoalRunning     GoalRunState = "Running"
	GoalPrReady     GoalRunState = "PrReady"
	GoalUnderReview GoalRunState = "UnderReview"
	GoalApproved    GoalRunState = "Approved"
	GoalApplied     GoalRunState = "Applied"
	GoalCompleted   GoalRunState = "Completed"
	GoalFailed      GoalRunState = "Failed"
)

// GoalRun is a unit of agent work (spec §3). Ownership: a GoalRun
// exclusively owns its SourceSnapshot, ChangeStore path, and staging
// directory.
type GoalRun struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Objective       string       `json:"objective"`
	AgentID         string       `json:"agent_id"`
	State           GoalRunState `json:"state"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	ApprovedBy      string       `json:"approved_by,omitempty"`
	ManifestID      string       `json:"manifest_id"`
	WorkspaceDir    string       `json:"workspace_dir"`
	ChangeStoreDir  string       `json:"change_store_dir"`
	SourceDir       string       `json:"source_dir,omitempty"`
	Snapshot        *SourceSnapshot `json:"source_snapshot,omitempty"`
	PlanPhase       string       `json:"plan_phase,omitempty"`
	ParentGoalID    string       `json:"parent_goal_id,omitempty"`
	DraftID         string       `json:"draft_id,omitempty"`
	ExcludePatterns []string     `json:"exclude_patterns,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// FileSnapshot captures one file's content-identifying state at the
// moment a goal's overlay was created.
type FileSnapshot struct {
	Path        string `json:"path"`
	MtimeSecs   int64  `json:"mtime_secs"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
}

// SourceSnapshot maps relative path to FileSnapshot, used for conflict
// detection during apply (spec §4.2).
type SourceSnapshot struct {
	Files map[string]FileSnapshot `json:"files"`
}

// ChangeType enumerates the kind of change an Artifact represents.
type ChangeType string

const (
	ChangeAdd    ChangeType = "Add"
	ChangeModify ChangeType = "Modify"
	ChangeDelete ChangeType = "Delete"
	ChangeRename ChangeType = "Rename"
)

// Disposition is the reviewer's decision for one artifact.
type Disposition string

const (
	DispositionPending  Disposition = "Pending"
	DispositionApproved Disposition = "Approved"
	DispositionRejected Disposition = "Rejected"
	DispositionDiscuss  Disposition = "Discuss"
)

// DependencyKind distinguishes forward and reverse edges between artifacts.
type DependencyKind string

const (
	DependsOn  DependencyKind = "DependsOn"
	DependedBy DependencyKind = "DependedBy"
)

// ChangeDependency is one edge from an artifact to another, by URI.
type ChangeDependency struct {
	TargetURI string         `json:"target_uri"`
	Kind      DependencyKind `json:"kind"`
}

// ExplanationTiers is the optional tiered explanation attached to an
// artifact.
type ExplanationTiers struct {
	Summary          string   `json:"summary,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	RelatedArtifacts []string `json:"related_artifacts,omitempty"`
}

// AmendmentType enumerates the kinds of amendment a human can make.
type AmendmentType string

const (
	AmendmentFileReplaced AmendmentType = "FileReplaced"
)

// AmendmentRecord documents a human correction to an artifact (spec §4.9).
type AmendmentRecord struct {
	AmendedBy string        `json:"amended_by"`
	AmendedAt time.Time     `json:"amended_at"`
	Type      AmendmentType `json:"type"`
	Reason    string        `json:"reason,omitempty"`
}

// Comment is one entry in an artifact's or session's comment thread.
type Comment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is one intended file change inside a draft (spec §3).
type Artifact struct {
	URI              string             `json:"uri"`
	ChangeType       ChangeType         `json:"change_type"`
	ChangeSetID      string             `json:"changeset_id"`
	TestsRun         []string           `json:"tests_run,omitempty"`
	Disposition      Disposition        `json:"disposition"`
	Rationale        string             `json:"rationale,omitempty"`
	Dependencies     []ChangeDependency `json:"dependencies,omitempty"`
	ExplanationTiers *ExplanationTiers  `json:"explanation_tiers,omitempty"`
	Comments         []Comment          `json:"comments,omitempty"`
	Amendment        *AmendmentRecord   `json:"amendment,omitempty"`
}

// DraftStatus is a node in the draft lifecycle graph (spec §4.11).
type DraftStatus string

const (
	DraftDraft         DraftStatus = "Draft"
	DraftPendingReview DraftStatus = "PendingReview"
	DraftApproved      DraftStatus = "Approved"
	DraftDenied        DraftStatus = "Denied"
	DraftApplied       DraftStatus = "Applied"
	DraftSuperseded    DraftStatus = "Superseded"
	DraftClosed        DraftStatus = "Closed"
)

// Summary is the draft's tiered rationale (spec §3).
type Summary struct {
	WhatChanged    string   `json:"what_changed"`
	Why            string   `json:"why,omitempty"`
	Impact         string   `json:"impact,omitempty"`
	Rollback       string   `json:"rollback,omitempty"`
	OpenQuestions  []string `json:"open_questions,omitempty"`
}

// Plan is the draft's step/decision bookkeeping.
type Plan struct {
	CompletedSteps []string `json:"completed_steps,omitempty"`
	NextSteps      []string `json:"next_steps,omitempty"`
	DecisionLog    []string `json:"decision_log,omitempty"`
}

// Changes bundles the draft's artifacts.
type Changes struct {
	Artifacts []Artifact `json:"artifacts"`
}

// Risk is an informational risk summary for the draft.
type Risk struct {
	Score float64  `json:"score,omitempty"`
	Notes []string `json:"notes,omitempty"`
}

// Provenance records who/what produced the draft.
type Provenance struct {
	AgentID    string    `json:"agent_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReviewRequest is an outstanding ask to a specific reviewer.
type ReviewRequest struct {
	Reviewer  string    `json:"reviewer"`
	Requested time.Time `json:"requested_at"`
}

// Signatures holds informational integrity hashes, never cryptographic
// attestations (spec non-goals: no cryptographic signing).
type Signatures struct {
	PackageHash string `json:"package_hash,omitempty"`
}

// DraftPackage is the reviewable bundle produced by a goal's build step
// (spec §3). Once terminal, it is immutable except for Status.
type DraftPackage struct {
	ID             string          `json:"id"`
	GoalID         string          `json:"goal_id"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	AgentID        string          `json:"agent_id"`
	Summary        Summary         `json:"summary"`
	Plan           Plan            `json:"plan"`
	Changes        Changes         `json:"changes"`
	Risk           Risk            `json:"risk"`
	Provenance     Provenance      `json:"provenance"`
	ReviewRequests []ReviewRequest `json:"review_requests,omitempty"`
	Signatures     Signatures      `json:"signatures"`
	Status         DraftStatus     `json:"status"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	DeniedReason   string          `json:"denied_reason,omitempty"`
	AppliedAt      *time.Time      `json:"applied_at,omitempty"`
	SupersededBy   string          `json:"superseded_by,omitempty"`
	ClosedReason   string          `json:"closed_reason,omitempty"`
}

// ReviewSessionState is a node in the review session's small state machine.
type ReviewSessionState string

const (
	ReviewActive    ReviewSessionState = "Active"
	ReviewPaused    ReviewSessionState = "Paused"
	ReviewCompleted ReviewSessionState = "Completed"
	ReviewAbandoned ReviewSessionState = "Abandoned"
)

// ArtifactReview is per-URI reviewer state inside a ReviewSession.
type ArtifactReview struct {
	Disposition Disposition `json:"disposition"`
	Comments    []Comment   `json:"comments,omitempty"`
	ReviewedAt  *time.Time  `json:"reviewed_at,omitempty"`
}

// ReviewSession is persistent per-draft review state (spec §3, §4.7).
type ReviewSession struct {
	ID        string                    `json:"id"`
	DraftID   string                    `json:"draft_id"`
	Reviewer  string                    `json:"reviewer"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
	State     ReviewSessionState        `json:"state"`
	Reviews   map[string]ArtifactReview `json:"reviews"`
	Notes     []string                  `json:"notes,omitempty"`
	Focus     string                    `json:"focus,omitempty"`
}

// BehavioralBaseline is a per-agent aggregate used by the drift engine
// (spec §3, §4.6).
type BehavioralBaseline struct {
	AgentID            string    `json:"agent_id"`
	SampleGoalCount    int       `json:"sample_goal_count"`
	URIPrefixes        []string  `json:"uri_prefixes"`
	AvgArtifactCount   float64   `json:"avg_artifact_count"`
	AvgRiskScore       float64   `json:"avg_risk_score"`
	EscalationRate     float64   `json:"escalation_rate"`
	RejectionRate      float64   `json:"rejection_rate"`
	ComputedAt         time.Time `json:"computed_at"`
}

// AuditEvent is one immutable record in the hash-chained audit log
// (spec §3, §4.10).
type AuditEvent struct {
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	Action    string            `json:"action"`
	TargetURI string            `json:"target_uri,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Hash      string            `json:"hash"`
	PrevHash  string            `json:"prev_hash"`
}

// DraftSummary is the per-draft aggregate the Drift Engine consumes
// alongside the audit log (spec §4.6).
type DraftSummary struct {
	AgentID                string    `json:"agent_id"`
	ArtifactCount           int       `json:"artifact_count"`
	RiskScore               float64   `json:"risk_score"`
	Rejected                bool      `json:"rejected"`
	DependencyArtifactCount int       `json:"dependency_artifact_count"`
	CreatedAt               time.Time `json:"created_at"`
}
