package core

import (
	"context"
	"errors"
	"time"
)

// ErrWriteConflict is returned by PlanStore.Apply when the plan version
// advanced between the caller's read and the write. The integrator retries
// once with a fresh read before surfacing the conflict.
var ErrWriteConflict = errors.New("plan version changed concurrently")

// ItemSource records where an accepted item came from, and doubles as the
// idempotency key for plan writes.
type ItemSource struct {
	SessionID  string `json:"session_id"`
	ResponseID string `json:"response_id"`
}

// PlanEntry is a persisted actionable item in a student's plan. EntryID is
// the server-generated stable id, distinct from the transient per-response
// id used during extraction. Entries are never physically deleted; removal
// drops them from the active set of subsequent versions only.
type PlanEntry struct {
	StudentID string     `json:"student_id"`
	EntryID   string     `json:"entry_id"`
	Category  Category   `json:"category"`
	Text      string     `json:"text"`
	Grades    GradeSet   `json:"grades"`
	URL       string     `json:"url,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Source    ItemSource `json:"source"`
	AddedAt   time.Time  `json:"added_at"`
	Version   int        `json:"version"`
}

// PlanVersion is an append-only snapshot marker. Version numbers are
// strictly increasing per student with no gaps; reverting creates a new
// version rather than rewriting history.
type PlanVersion struct {
	StudentID   string    `json:"student_id"`
	Version     int       `json:"version"`
	Description string    `json:"description"`
	ChangedAt   time.Time `json:"changed_at"`
	Actor       string    `json:"actor"`
}

// PlanMutation describes one atomic plan change: entries to insert plus
// active-set membership changes, applied together with a version bump.
// BaseVersion is the version the caller read; Apply fails with
// ErrWriteConflict if the store has moved past it.
type PlanMutation struct {
	StudentID   string
	BaseVersion int
	Insert      []PlanEntry
	Deactivate  []string
	Reactivate  []string
	Description string
	Actor       string
}

// PlanStore persists plan entries and version history for students.
//
// Apply is the single write path and must be atomic: either all inserts,
// active-set changes and the version bump are visible, or none are. Inserts
// are idempotent on (StudentID, EntryID).
type PlanStore interface {
	ActiveEntries(ctx context.Context, studentID string) ([]PlanEntry, error)
	EntriesForVersion(ctx context.Context, studentID string, version int) ([]PlanEntry, error)
	Versions(ctx context.Context, studentID string) ([]PlanVersion, error)
	CurrentVersion(ctx context.Context, studentID string) (int, error)
	Apply(ctx context.Context, m PlanMutation) (*PlanVersion, error)
}
