// Package ids generates the unique identifiers used by GoalRun,
// DraftPackage, ChangeSet, ReviewSession, and CapabilityManifest records.
package ids

import "github.com/google/uuid"

// New returns a fresh random (v4) identifier.
func New() string {
	return uuid.NewString()
}
