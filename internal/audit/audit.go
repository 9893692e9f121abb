// Package audit implements the Audit & Chain subsystem (spec §4.10): an
// append-only, hash-chained AuditEvent log at .ta/audit.jsonl, grounded on
// the teacher's JSONL-append idiom (paas_audit_store.go) and extended with
// the hash chain the teacher's own audit log never implemented.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// Log is an append-only hash-chained event stream rooted at a single
// workspace's .ta/audit.jsonl file.
type Log struct {
	path string
}

func NewLog(taDir string) Log {
	return Log{path: filepath.Join(taDir, "audit.jsonl")}
}

// sensitiveKeySubstrings flags metadata keys to redact before they're ever
// written, mirroring the teacher's key-substring redaction heuristic
// (paas_safety_guardrails.go:isPaasSensitiveFieldKey), with the same
// explicit allowlist exceptions for aggregate/structural fields.
var sensitiveKeySubstrings = []string{"secret", "token", "password", "key", "credential", "authorization"}
var sensitiveKeyAllowlist = map[string]bool{"count": true, "findings": true, "guardrail": true}

func redact(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return metadata
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if isSensitiveKey(k) {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeyAllowlist[lower] {
		return false
	}
	for _, substr := range sensitiveKeySubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

func computeHash(e types.AuditEvent) (string, error) {
	e.Hash = ""
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Record appends a new event, assigning the next sequence number and
// chaining it to the prior event's hash. Audit writes are best-effort at
// the CLI boundary (spec §7: "an audit-write failure never aborts the
// user action") — callers decide whether to surface the returned error.
func (l Log) Record(actorID, action, targetURI string, metadata map[string]string) (types.AuditEvent, error) {
	prevHash, seq, err := l.tail()
	if err != nil {
		return types.AuditEvent{}, err
	}
	event := types.AuditEvent{
		Seq:       seq + 1,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		Action:    action,
		TargetURI: targetURI,
		Metadata:  redact(metadata),
		PrevHash:  prevHash,
	}
	hash, err := computeHash(event)
	if err != nil {
		return types.AuditEvent{}, err
	}
	event.Hash = hash

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return types.AuditEvent{}, err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return types.AuditEvent{}, err
	}
	defer f.Close()
	data, err := json.Marshal(event)
	if err != nil {
		return types.AuditEvent{}, err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return types.AuditEvent{}, err
	}
	return event, nil
}

// tail returns the last event's hash and sequence number, or ("", 0, nil)
// for an empty/missing log.
func (l Log) tail() (string, int64, error) {
	events, err := l.All()
	if err != nil {
		return "", 0, err
	}
	if len(events) == 0 {
		return "", 0, nil
	}
	last := events[len(events)-1]
	return last.Hash, last.Seq, nil
}

// All reads every event in the log, in append order.
func (l Log) All() ([]types.AuditEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []types.AuditEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e types.AuditEvent
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("parse audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// ChainError reports the first point at which the hash chain fails to
// verify.
type ChainError struct {
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain broken at seq %d: %s", e.Seq, e.Reason)
}

// VerifyChain walks the log and recomputes each event's hash, confirming
// both self-integrity and the prev_hash linkage (spec §3, §4.10, §8). Chain
// corruption is reported to the operator but does not block operations
// (spec §7).
func VerifyChain(events []types.AuditEvent) error {
	var prevHash string
	for _, e := range events {
		if e.PrevHash != prevHash {
			return &ChainError{Seq: e.Seq, Reason: "prev_hash does not match preceding event"}
		}
		want, err := computeHash(e)
		if err != nil {
			return err
		}
		if want != e.Hash {
			return &ChainError{Seq: e.Seq, Reason: "content hash mismatch"}
		}
		prevHash = e.Hash
	}
	return nil
}
