package plan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/util"
	"github.com/collegecompass/compass/logging"
)

// ErrDuplicateItem marks an accepted item rejected because a near-identical
// entry is already active in the student's plan. It is a normal outcome
// ("already in your plan"), not an error state.
var ErrDuplicateItem = errors.New("item already in plan")

// Rejection reports one accepted item the integrator refused, with the
// reason.
type Rejection struct {
	Item   core.ActionableItem
	Reason error
}

// IntegratorOptions configures an Integrator.
type IntegratorOptions struct {
	Logger logging.Logger
}

// Integrator applies accepted actionable items to student plans. It is the
// single serialization point for plan writes: a per-student mutex wraps
// every mutation, and a lost optimistic race in the store is retried once
// with a fresh version read before the conflict is surfaced.
type Integrator struct {
	store  core.PlanStore
	logger logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIntegrator constructs an Integrator over the given store.
func NewIntegrator(store core.PlanStore, optFns ...func(o *IntegratorOptions)) *Integrator {
	opts := IntegratorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Integrator{
		store:  store,
		logger: opts.Logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (in *Integrator) studentLock(studentID string) *sync.Mutex {
	in.mu.Lock()
	defer in.mu.Unlock()
	l, ok := in.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		in.locks[studentID] = l
	}
	return l
}

// Integrate merges accepted items into the student's plan as one atomic
// unit: either all non-duplicate items are inserted and the version is
// bumped, or nothing changes. Near-duplicates of active entries come back
// as Rejections rather than failing the call.
//
// Grade assignment: an item listing multiple applicable grades is narrowed
// to the earliest grade the student has not yet completed, taken from the
// profile snapshot; with an unknown current grade the item keeps all its
// applicable grades.
func (in *Integrator) Integrate(ctx context.Context, studentID string, profile *core.StudentProfile, accepted []core.ActionableItem, source core.ItemSource, actor string) (*core.PlanVersion, []Rejection, error) {
	if studentID == "" {
		return nil, nil, fmt.Errorf("student id is required")
	}

	lock := in.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	version, rejections, err := in.integrateLocked(ctx, studentID, profile, accepted, source, actor)
	if errors.Is(err, core.ErrWriteConflict) {
		// One retry with a fresh version read; a second collision is
		// surfaced to the caller as "please retry".
		in.logger.Warn("plan write conflict, retrying once", "student_id", studentID)
		version, rejections, err = in.integrateLocked(ctx, studentID, profile, accepted, source, actor)
	}
	return version, rejections, err
}

func (in *Integrator) integrateLocked(ctx context.Context, studentID string, profile *core.StudentProfile, accepted []core.ActionableItem, source core.ItemSource, actor string) (*core.PlanVersion, []Rejection, error) {
	active, err := in.store.ActiveEntries(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("read active entries: %w", err)
	}
	base, err := in.store.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("read current version: %w", err)
	}

	now := time.Now().UTC()
	var (
		insert     []core.PlanEntry
		rejections []Rejection
	)

	for _, item := range accepted {
		if dup := findDuplicate(active, insert, item); dup {
			rejections = append(rejections, Rejection{Item: item, Reason: ErrDuplicateItem})
			continue
		}

		entry := core.PlanEntry{
			StudentID: studentID,
			EntryID:   util.NewID(),
			Category:  item.Category,
			Text:      item.Text,
			Grades:    assignGrades(item.Grades, profile),
			URL:       item.URL,
			Deadline:  item.Deadline,
			Source:    source,
			AddedAt:   now,
		}
		insert = append(insert, entry)
	}

	if len(insert) == 0 {
		// Nothing survived dedup; no version is minted for a no-op.
		return nil, rejections, nil
	}

	version, err := in.store.Apply(ctx, core.PlanMutation{
		StudentID:   studentID,
		BaseVersion: base,
		Insert:      insert,
		Description: fmt.Sprintf("added %d item(s) from chat", len(insert)),
		Actor:       actor,
	})
	if err != nil {
		return nil, nil, err
	}

	in.logger.Info("plan updated",
		"student_id", studentID,
		"version", version.Version,
		"inserted", len(insert),
		"rejected", len(rejections))

	return version, rejections, nil
}

// Revert creates a new version whose active entry set equals that of the
// target version. Intervening versions remain queryable unchanged.
func (in *Integrator) Revert(ctx context.Context, studentID string, toVersion int, actor string) (*core.PlanVersion, error) {
	lock := in.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	version, err := in.revertLocked(ctx, studentID, toVersion, actor)
	if errors.Is(err, core.ErrWriteConflict) {
		in.logger.Warn("plan write conflict on revert, retrying once", "student_id", studentID)
		version, err = in.revertLocked(ctx, studentID, toVersion, actor)
	}
	return version, err
}

func (in *Integrator) revertLocked(ctx context.Context, studentID string, toVersion int, actor string) (*core.PlanVersion, error) {
	base, err := in.store.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}
	if toVersion < 0 || toVersion > base {
		return nil, fmt.Errorf("version %d does not exist for student %s", toVersion, studentID)
	}

	target, err := in.store.EntriesForVersion(ctx, studentID, toVersion)
	if err != nil {
		return nil, fmt.Errorf("read entries for version %d: %w", toVersion, err)
	}
	current, err := in.store.ActiveEntries(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("read active entries: %w", err)
	}

	targetIDs := make(map[string]bool, len(target))
	for _, e := range target {
		targetIDs[e.EntryID] = true
	}
	currentIDs := make(map[string]bool, len(current))
	for _, e := range current {
		currentIDs[e.EntryID] = true
	}

	var deactivate, reactivate []string
	for _, e := range current {
		if !targetIDs[e.EntryID] {
			deactivate = append(deactivate, e.EntryID)
		}
	}
	for _, e := range target {
		if !currentIDs[e.EntryID] {
			reactivate = append(reactivate, e.EntryID)
		}
	}

	return in.store.Apply(ctx, core.PlanMutation{
		StudentID:   studentID,
		BaseVersion: base,
		Deactivate:  deactivate,
		Reactivate:  reactivate,
		Description: fmt.Sprintf("reverted to version %d", toVersion),
		Actor:       actor,
	})
}

// Remove marks a single entry inactive. The entry is never physically
// deleted, preserving audit history.
func (in *Integrator) Remove(ctx context.Context, studentID, entryID, actor string) (*core.PlanVersion, error) {
	lock := in.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	base, err := in.store.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}

	return in.store.Apply(ctx, core.PlanMutation{
		StudentID:   studentID,
		BaseVersion: base,
		Deactivate:  []string{entryID},
		Description: "removed item",
		Actor:       actor,
	})
}

// findDuplicate checks the candidate against active entries and the batch
// being inserted: same category plus near-identical text rejects it.
func findDuplicate(active, pending []core.PlanEntry, item core.ActionableItem) bool {
	for _, e := range active {
		if e.Category == item.Category && isNearDuplicate(item.Text, e.Text) {
			return true
		}
	}
	for _, e := range pending {
		if e.Category == item.Category && isNearDuplicate(item.Text, e.Text) {
			return true
		}
	}
	return false
}

// assignGrades narrows a multi-grade item to the earliest grade the student
// has not yet completed. Unknown current grade keeps all applicable grades,
// as does an item whose grades have all passed.
func assignGrades(grades core.GradeSet, profile *core.StudentProfile) core.GradeSet {
	if grades.IsEmpty() {
		return grades
	}
	if profile == nil || profile.Grade == 0 {
		return grades
	}
	if earliest, ok := grades.Earliest(profile.Grade); ok {
		return core.NewGradeSet(earliest)
	}
	return grades
}
