package plan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/collegecompass/compass/core"
)

// MemoryStore is a volatile core.PlanStore keeping entries, version history
// and per-version active-set snapshots in process-local maps. Safe for
// concurrent access; returned slices are defensive copies. Suited for tests
// and single-process demo deployments.
type MemoryStore struct {
	mu sync.RWMutex
	// entries: studentID -> entryID -> entry
	entries map[string]map[string]core.PlanEntry
	// versions: studentID -> append-only version records
	versions map[string][]core.PlanVersion
	// snapshots: studentID -> version -> active entry ids
	snapshots map[string]map[int][]string
}

var _ core.PlanStore = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]map[string]core.PlanEntry),
		versions:  make(map[string][]core.PlanVersion),
		snapshots: make(map[string]map[int][]string),
	}
}

// CurrentVersion implements core.PlanStore. A student with no plan yet is
// at version 0.
func (s *MemoryStore) CurrentVersion(_ context.Context, studentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions[studentID]), nil
}

// ActiveEntries implements core.PlanStore.
func (s *MemoryStore) ActiveEntries(_ context.Context, studentID string) ([]core.PlanEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesForLocked(studentID, len(s.versions[studentID]))
}

// EntriesForVersion implements core.PlanStore.
func (s *MemoryStore) EntriesForVersion(_ context.Context, studentID string, version int) ([]core.PlanEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if version < 0 || version > len(s.versions[studentID]) {
		return nil, fmt.Errorf("version %d does not exist for student %s", version, studentID)
	}
	return s.entriesForLocked(studentID, version)
}

func (s *MemoryStore) entriesForLocked(studentID string, version int) ([]core.PlanEntry, error) {
	if version == 0 {
		return []core.PlanEntry{}, nil
	}
	ids := s.snapshots[studentID][version]
	out := make([]core.PlanEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[studentID][id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Versions implements core.PlanStore, oldest first.
func (s *MemoryStore) Versions(_ context.Context, studentID string) ([]core.PlanVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.PlanVersion, len(s.versions[studentID]))
	copy(out, s.versions[studentID])
	return out, nil
}

// Apply implements core.PlanStore. The optimistic BaseVersion check makes
// concurrent writers lose cleanly with core.ErrWriteConflict instead of
// minting duplicate version numbers.
func (s *MemoryStore) Apply(_ context.Context, m core.PlanMutation) (*core.PlanVersion, error) {
	if m.StudentID == "" {
		return nil, fmt.Errorf("student id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.versions[m.StudentID])
	if m.BaseVersion != current {
		return nil, fmt.Errorf("expected version %d, have %d: %w", m.BaseVersion, current, core.ErrWriteConflict)
	}

	next := current + 1

	if s.entries[m.StudentID] == nil {
		s.entries[m.StudentID] = make(map[string]core.PlanEntry)
	}
	if s.snapshots[m.StudentID] == nil {
		s.snapshots[m.StudentID] = make(map[int][]string)
	}

	// New active set: previous snapshot minus deactivations, plus
	// reactivations and inserts, insertion order preserved.
	drop := make(map[string]bool, len(m.Deactivate))
	for _, id := range m.Deactivate {
		drop[id] = true
	}

	var active []string
	for _, id := range s.snapshots[m.StudentID][current] {
		if !drop[id] {
			active = append(active, id)
		}
	}
	for _, id := range m.Reactivate {
		if _, ok := s.entries[m.StudentID][id]; !ok {
			return nil, fmt.Errorf("cannot reactivate unknown entry %s", id)
		}
		active = append(active, id)
	}
	for _, e := range m.Insert {
		e.StudentID = m.StudentID
		e.Version = next
		if _, exists := s.entries[m.StudentID][e.EntryID]; !exists {
			s.entries[m.StudentID][e.EntryID] = e
		}
		active = append(active, e.EntryID)
	}

	s.snapshots[m.StudentID][next] = active

	version := core.PlanVersion{
		StudentID:   m.StudentID,
		Version:     next,
		Description: m.Description,
		ChangedAt:   time.Now().UTC(),
		Actor:       m.Actor,
	}
	s.versions[m.StudentID] = append(s.versions[m.StudentID], version)

	return &version, nil
}
