package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/core"
)

// Entry builds a plan entry for store tests.
func Entry(entryID string, category core.Category, text string) core.PlanEntry {
	return core.PlanEntry{
		StudentID: "student-1",
		EntryID:   entryID,
		Category:  category,
		Text:      text,
		Grades:    core.NewGradeSet(11),
		Source:    core.ItemSource{SessionID: "sess-1", ResponseID: "resp-1"},
		AddedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

// RunPlanStoreContract verifies the core.PlanStore behavior every
// implementation must share.
func RunPlanStoreContract(t *testing.T, newStore func(t *testing.T) core.PlanStore) {
	ctx := context.Background()

	t.Run("empty student is at version zero", func(t *testing.T) {
		store := newStore(t)

		version, err := store.CurrentVersion(ctx, "student-1")
		require.NoError(t, err)
		assert.Equal(t, 0, version)

		entries, err := store.ActiveEntries(ctx, "student-1")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("insert bumps version and activates entries", func(t *testing.T) {
		store := newStore(t)

		v, err := store.Apply(ctx, core.PlanMutation{
			StudentID:   "student-1",
			BaseVersion: 0,
			Insert:      []core.PlanEntry{Entry("e1", core.CategoryCourses, "Take AP Calculus")},
			Description: "added 1 item(s) from chat",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, v.Version)

		entries, err := store.ActiveEntries(ctx, "student-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "e1", entries[0].EntryID)
		assert.Equal(t, core.CategoryCourses, entries[0].Category)
		assert.Equal(t, core.NewGradeSet(11), entries[0].Grades)
	})

	t.Run("stale base version conflicts", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Apply(ctx, core.PlanMutation{
			StudentID:   "student-1",
			BaseVersion: 0,
			Insert:      []core.PlanEntry{Entry("e1", core.CategoryCourses, "a")},
		})
		require.NoError(t, err)

		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID:   "student-1",
			BaseVersion: 0,
			Insert:      []core.PlanEntry{Entry("e2", core.CategoryCourses, "b")},
		})
		assert.ErrorIs(t, err, core.ErrWriteConflict)
	})

	t.Run("past versions stay queryable", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 0,
			Insert: []core.PlanEntry{Entry("e1", core.CategoryCourses, "a")},
		})
		require.NoError(t, err)
		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 1,
			Insert: []core.PlanEntry{Entry("e2", core.CategoryTests, "b")},
		})
		require.NoError(t, err)

		v1, err := store.EntriesForVersion(ctx, "student-1", 1)
		require.NoError(t, err)
		require.Len(t, v1, 1)
		assert.Equal(t, "e1", v1[0].EntryID)

		v2, err := store.EntriesForVersion(ctx, "student-1", 2)
		require.NoError(t, err)
		assert.Len(t, v2, 2)

		_, err = store.EntriesForVersion(ctx, "student-1", 7)
		assert.Error(t, err)
	})

	t.Run("deactivate and reactivate", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 0,
			Insert: []core.PlanEntry{
				Entry("e1", core.CategoryCourses, "a"),
				Entry("e2", core.CategoryTests, "b"),
			},
		})
		require.NoError(t, err)

		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 1,
			Deactivate: []string{"e1"},
		})
		require.NoError(t, err)

		entries, err := store.ActiveEntries(ctx, "student-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "e2", entries[0].EntryID)

		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 2,
			Reactivate: []string{"e1"},
		})
		require.NoError(t, err)

		entries, err = store.ActiveEntries(ctx, "student-1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("version history is append only", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 0,
			Insert:      []core.PlanEntry{Entry("e1", core.CategoryCourses, "a")},
			Description: "first",
			Actor:       "student-1",
		})
		require.NoError(t, err)
		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 1,
			Deactivate:  []string{"e1"},
			Description: "second",
		})
		require.NoError(t, err)

		versions, err := store.Versions(ctx, "student-1")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 1, versions[0].Version)
		assert.Equal(t, "first", versions[0].Description)
		assert.Equal(t, "student-1", versions[0].Actor)
		assert.Equal(t, 2, versions[1].Version)
	})

	t.Run("students are independent", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Apply(ctx, core.PlanMutation{
			StudentID: "student-1", BaseVersion: 0,
			Insert: []core.PlanEntry{Entry("e1", core.CategoryCourses, "a")},
		})
		require.NoError(t, err)

		other := Entry("e9", core.CategoryTests, "x")
		other.StudentID = "student-2"
		_, err = store.Apply(ctx, core.PlanMutation{
			StudentID: "student-2", BaseVersion: 0,
			Insert: []core.PlanEntry{other},
		})
		require.NoError(t, err)

		v1, err := store.CurrentVersion(ctx, "student-1")
		require.NoError(t, err)
		v2, err := store.CurrentVersion(ctx, "student-2")
		require.NoError(t, err)
		assert.Equal(t, 1, v1)
		assert.Equal(t, 1, v2)
	})
}
